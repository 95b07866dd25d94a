package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZihaoFU245/It-s-Friday/internal/accounts"
)

var (
	addProvider    string
	addDisplay     string
	addCredentials string
	addToken       string
	addDefault     bool
	addDisabled    bool
	addNoVerify    bool
)

var addAccountCmd = &cobra.Command{
	Use:   "add-account <name>",
	Short: "Add an email account",
	Long: `Add an email account to the directory and run the OAuth consent flow.

The name is a local handle (e.g. "work", "personal"), not the email
address. Credentials default to the [oauth] client_secrets from
config.toml and the token is stored under the data directory.

Examples:
  friday add-account work
  friday add-account personal --display "Personal Mail" --default
  friday add-account work --credentials /path/to/client_secret.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		credentials := addCredentials
		if credentials == "" {
			credentials = cfg.OAuth.ClientSecrets
		}
		if credentials == "" && addProvider == "gmail" {
			return fmt.Errorf("no OAuth credentials configured.%s", oauthSetupHint())
		}

		token := addToken
		if token == "" {
			token = filepath.Join(cfg.TokensDir(), name+".json")
		}

		mgr := newManager()
		acc := accounts.Account{
			Name:                  name,
			Provider:              addProvider,
			DisplayName:           addDisplay,
			GoogleCredentialsPath: credentials,
			GoogleTokenPath:       token,
			Enabled:               !addDisabled,
			Default:               addDefault,
		}
		if err := mgr.AddAccount(acc); err != nil {
			return fmt.Errorf("add account: %w", err)
		}

		fmt.Printf("Added account %q (%s)\n", name, addProvider)

		if addNoVerify || addDisabled {
			return nil
		}

		// Run the consent flow now so the account is usable immediately.
		fmt.Println("Verifying account (this may open a browser for consent)...")
		profile, err := mgr.Validate(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("verify account %q: %w", name, err)
		}
		fmt.Printf("Connected as %s (%d messages)\n", profile.EmailAddress, profile.TotalMessages)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addAccountCmd)
	addAccountCmd.Flags().StringVar(&addProvider, "provider", "gmail", "Provider (gmail, outlook)")
	addAccountCmd.Flags().StringVar(&addDisplay, "display", "", "Display name")
	addAccountCmd.Flags().StringVar(&addCredentials, "credentials", "", "OAuth client secrets file (default: [oauth] client_secrets)")
	addAccountCmd.Flags().StringVar(&addToken, "token", "", "Token file path (default: <data_dir>/tokens/<name>.json)")
	addAccountCmd.Flags().BoolVar(&addDefault, "default", false, "Make this the default account")
	addAccountCmd.Flags().BoolVar(&addDisabled, "disabled", false, "Add the account disabled")
	addAccountCmd.Flags().BoolVar(&addNoVerify, "no-verify", false, "Skip the OAuth consent and profile check")
}
