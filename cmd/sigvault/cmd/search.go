package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchJSON  bool
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <chat> <substring>",
	Short: "Search a chat's messages for a substring",
	Long: `Search message bodies in a chat for a literal substring.

Matching uses the database's native LIKE semantics: ASCII letters match
case-insensitively, everything else literally.

Examples:
  sigvault search Alice coffee
  sigvault search Alice "see you at" --limit 5 --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := newEngine()
		defer engine.Close()

		msgs, err := engine.SearchByChat(cmd.Context(), args[0], args[1], searchLimit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		return printMessages(msgs, searchJSON)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum matches to return (0 = all)")
}
