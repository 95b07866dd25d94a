package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZihaoFU245/It-s-Friday/internal/accounts"
)

var (
	updateDisplay     string
	updateCredentials string
	updateToken       string
	updateEnabled     bool
	updateDefault     bool
)

var updateAccountCmd = &cobra.Command{
	Use:   "update-account <name>",
	Short: "Update an email account",
	Long: `Update fields of an existing account. Only flags that are set are
applied; everything else is left unchanged. Updating drops the cached
client so the next operation picks up the new configuration.

Examples:
  friday update-account work --display "Work Mail"
  friday update-account work --enabled=false
  friday update-account personal --default`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		var u accounts.Update
		if cmd.Flags().Changed("display") {
			u.DisplayName = &updateDisplay
		}
		if cmd.Flags().Changed("credentials") {
			u.GoogleCredentialsPath = &updateCredentials
		}
		if cmd.Flags().Changed("token") {
			u.GoogleTokenPath = &updateToken
		}
		if cmd.Flags().Changed("enabled") {
			u.Enabled = &updateEnabled
		}
		if cmd.Flags().Changed("default") {
			u.Default = &updateDefault
		}
		if u == (accounts.Update{}) {
			return fmt.Errorf("nothing to update: pass at least one of --display, --credentials, --token, --enabled, --default")
		}

		mgr := newManager()
		acc, err := mgr.UpdateAccount(name, u)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}

		fmt.Printf("Updated account %q (provider=%s enabled=%v default=%v)\n",
			acc.Name, acc.Provider, acc.Enabled, acc.Default)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateAccountCmd)
	updateAccountCmd.Flags().StringVar(&updateDisplay, "display", "", "Display name")
	updateAccountCmd.Flags().StringVar(&updateCredentials, "credentials", "", "OAuth client secrets file")
	updateAccountCmd.Flags().StringVar(&updateToken, "token", "", "Token file path")
	updateAccountCmd.Flags().BoolVar(&updateEnabled, "enabled", true, "Enable or disable the account")
	updateAccountCmd.Flags().BoolVar(&updateDefault, "default", false, "Make this the default account")
}
