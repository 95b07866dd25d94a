package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listAccountsJSON bool

var listAccountsCmd = &cobra.Command{
	Use:   "list-accounts",
	Short: "List configured email accounts",
	Long: `List all email accounts in the directory.

Examples:
  friday list-accounts
  friday list-accounts --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newManager()
		summaries := mgr.Summaries()

		if len(summaries) == 0 {
			fmt.Println("No accounts configured. Use 'friday add-account <name>' to add one.")
			return nil
		}

		if listAccountsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summaries)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPROVIDER\tDISPLAY NAME\tENABLED\tDEFAULT")
		fmt.Fprintln(w, "────\t────────\t────────────\t───────\t───────")
		for _, s := range summaries {
			display := s.Display
			if display == "" {
				display = "-"
			}
			def := ""
			if s.Default {
				def = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", s.Name, s.Provider, display, s.Enabled, def)
		}
		w.Flush()
		fmt.Printf("\n%d account(s)\n", len(summaries))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listAccountsCmd)
	listAccountsCmd.Flags().BoolVar(&listAccountsJSON, "json", false, "Output as JSON")
}
