package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var removeForce bool

var removeAccountCmd = &cobra.Command{
	Use:   "remove-account <name>",
	Short: "Remove an email account",
	Long: `Remove an email account from the directory.

The stored OAuth token file is left in place; delete it manually if the
authorization should be revoked.

Examples:
  friday remove-account work
  friday remove-account work --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newManager()

		if !removeForce {
			fmt.Printf("Remove account %q? [y/N]: ", name)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := mgr.RemoveAccount(name); err != nil {
			return fmt.Errorf("remove account: %w", err)
		}
		fmt.Printf("Removed account %q\n", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeAccountCmd)
	removeAccountCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Skip confirmation prompt")
}
