package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZihaoFU245/It-s-Friday/internal/email"
)

var (
	unreadAccount string
	unreadAll     bool
	unreadCount   bool
	unreadMax     int
	unreadFolder  string
	unreadHours   int
)

var unreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show unread emails",
	Long: `Show unread emails for one account or across all enabled accounts.

Examples:
  friday unread
  friday unread --account work --max 10
  friday unread --all --count
  friday unread --folder primary --hours 24`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newManager()
		opts := email.UnreadOptions{Folder: unreadFolder, HoursBack: unreadHours}

		if unreadAll {
			if unreadCount {
				var total int64
				for _, res := range mgr.CountUnreadAll(cmd.Context(), opts) {
					if res.Err != nil {
						fmt.Fprintf(os.Stderr, "%s: %v\n", res.Account, res.Err)
						continue
					}
					fmt.Printf("%s: %d unread\n", res.Account, res.Count)
					total += res.Count
				}
				fmt.Printf("total: %d unread\n", total)
				return nil
			}

			for _, res := range mgr.UnreadAll(cmd.Context(), unreadMax, opts) {
				if res.Err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", res.Account, res.Err)
					continue
				}
				fmt.Printf("=== %s (%d unread) ===\n", res.Account, len(res.Messages))
				printMessages(res.Messages)
			}
			return nil
		}

		client, err := mgr.Client(cmd.Context(), unreadAccount)
		if err != nil {
			return err
		}

		if unreadCount {
			n, err := client.CountUnreadMessages(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("count unread: %w", err)
			}
			fmt.Printf("%d unread\n", n)
			return nil
		}

		msgs, err := client.GetUnreadMessages(cmd.Context(), unreadMax, opts)
		if err != nil {
			return fmt.Errorf("get unread: %w", err)
		}
		if len(msgs) == 0 {
			fmt.Println("No unread messages.")
			return nil
		}
		printMessages(msgs)
		return nil
	},
}

func printMessages(msgs []*email.Message) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFROM\tSUBJECT\tDATE")
	for _, m := range msgs {
		subject := m.Subject
		if len(subject) > 60 {
			subject = subject[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.From, subject, m.Date)
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(unreadCmd)
	unreadCmd.Flags().StringVar(&unreadAccount, "account", "", "Account name (default account when omitted)")
	unreadCmd.Flags().BoolVar(&unreadAll, "all", false, "Query every enabled account")
	unreadCmd.Flags().BoolVar(&unreadCount, "count", false, "Only print counts")
	unreadCmd.Flags().IntVar(&unreadMax, "max", 20, "Maximum messages per account")
	unreadCmd.Flags().StringVar(&unreadFolder, "folder", "", "Folder or Gmail category (primary, promotions, social, updates, forums)")
	unreadCmd.Flags().IntVar(&unreadHours, "hours", 0, "Only messages newer than this many hours")
}
