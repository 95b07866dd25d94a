package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZihaoFU245/It-s-Friday/internal/email"
)

var (
	sendAccount string
	sendTo      []string
	sendCc      []string
	sendBcc     []string
	sendSubject string
	sendBody    string
	sendHTML    string
	sendAttach  []string
	sendReplyTo string
	sendAll     bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send an email",
	Long: `Send an email from one of the configured accounts, or reply to an
existing message with --reply-to.

Examples:
  friday send --to alice@example.com --subject "Hi" --body "Hello"
  friday send --account work --to a@x.com --to b@x.com --attach report.pdf
  friday send --reply-to 18c2a1b2c3d4 --body "Thanks!" --reply-all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newManager()
		client, err := mgr.Client(cmd.Context(), sendAccount)
		if err != nil {
			return err
		}

		if sendReplyTo != "" {
			res := client.ReplyToMessage(cmd.Context(), sendReplyTo, sendBody, sendHTML, sendAll, sendAttach)
			if !res.Success {
				return fmt.Errorf("reply failed: %s", res.Error)
			}
			fmt.Printf("Reply sent (id=%s thread=%s)\n", res.ID, res.ThreadID)
			return nil
		}

		if len(sendTo) == 0 {
			return fmt.Errorf("at least one --to recipient is required")
		}

		res := client.SendEmail(cmd.Context(), email.Outgoing{
			To:          sendTo,
			Cc:          sendCc,
			Bcc:         sendBcc,
			Subject:     sendSubject,
			Body:        sendBody,
			HTMLBody:    sendHTML,
			Attachments: sendAttach,
		})
		if !res.Success {
			return fmt.Errorf("send failed: %s", res.Error)
		}
		fmt.Printf("Sent (id=%s thread=%s)\n", res.ID, res.ThreadID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendAccount, "account", "", "Account name (default account when omitted)")
	sendCmd.Flags().StringArrayVar(&sendTo, "to", nil, "Recipient (repeatable)")
	sendCmd.Flags().StringArrayVar(&sendCc, "cc", nil, "Cc recipient (repeatable)")
	sendCmd.Flags().StringArrayVar(&sendBcc, "bcc", nil, "Bcc recipient (repeatable)")
	sendCmd.Flags().StringVar(&sendSubject, "subject", "", "Message subject")
	sendCmd.Flags().StringVar(&sendBody, "body", "", "Plain text body")
	sendCmd.Flags().StringVar(&sendHTML, "html", "", "HTML body")
	sendCmd.Flags().StringArrayVar(&sendAttach, "attach", nil, "File to attach (repeatable)")
	sendCmd.Flags().StringVar(&sendReplyTo, "reply-to", "", "Reply to this message ID instead of composing fresh")
	sendCmd.Flags().BoolVar(&sendAll, "reply-all", false, "Reply to all original recipients")
}
