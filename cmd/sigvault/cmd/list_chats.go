package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sigvault/sigvault/internal/query"
)

var (
	listChatsJSON         bool
	listChatsIncludeEmpty bool
	listChatsFilter       string
)

var listChatsCmd = &cobra.Command{
	Use:   "list-chats",
	Short: "List Signal chats with message counts",
	Long: `List private and group chats from the Signal archive.

Examples:
  sigvault list-chats
  sigvault list-chats --include-empty --json
  sigvault list-chats --chats id1,id2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := newEngine()
		defer engine.Close()

		opts := query.ListOptions{IncludeEmpty: listChatsIncludeEmpty}
		for _, id := range strings.Split(listChatsFilter, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.Chats = append(opts.Chats, id)
			}
		}

		chats, err := engine.ListConversations(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("list chats: %w", err)
		}

		if len(chats) == 0 {
			fmt.Println("No chats found.")
			return nil
		}

		if listChatsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(chats)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tMESSAGES\tID")
		for _, c := range chats {
			name := c.Name
			if name == "" {
				name = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, c.Type, c.TotalMessages, c.ID)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listChatsCmd)
	listChatsCmd.Flags().BoolVar(&listChatsJSON, "json", false, "output as JSON")
	listChatsCmd.Flags().BoolVar(&listChatsIncludeEmpty, "include-empty", false, "include chats with no messages")
	listChatsCmd.Flags().StringVar(&listChatsFilter, "chats", "", "comma-separated chat ids to include")
}
