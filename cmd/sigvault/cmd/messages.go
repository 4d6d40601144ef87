package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigvault/sigvault/internal/query"
)

var (
	messagesJSON   bool
	messagesLimit  int
	messagesOffset int
)

var messagesCmd = &cobra.Command{
	Use:   "messages <chat>",
	Short: "Show messages from a chat, newest first",
	Long: `Show messages from a chat, matched by display name and then by id.

Examples:
  sigvault messages Alice
  sigvault messages Alice --limit 50 --offset 50 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := newEngine()
		defer engine.Close()

		msgs, err := engine.MessagesByChat(cmd.Context(), args[0], messagesLimit, messagesOffset)
		if err != nil {
			return fmt.Errorf("get messages: %w", err)
		}

		return printMessages(msgs, messagesJSON)
	},
}

func printMessages(msgs []query.FormattedMessage, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(msgs)
	}

	if len(msgs) == 0 {
		fmt.Println("No messages found.")
		return nil
	}
	for _, m := range msgs {
		marker := ""
		if m.Attachments == "yes" {
			marker = " [attachment]"
		}
		fmt.Printf("%s  %s: %s%s\n", m.Date, m.Sender, m.Body, marker)
		if m.Quote != "" {
			fmt.Printf("    > %s\n", m.Quote)
		}
		for _, r := range m.Reactions {
			fmt.Printf("    %s %s\n", r.Emoji, r.FromID)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(messagesCmd)
	messagesCmd.Flags().BoolVar(&messagesJSON, "json", false, "output as JSON")
	messagesCmd.Flags().IntVar(&messagesLimit, "limit", 20, "maximum messages to show (0 = all)")
	messagesCmd.Flags().IntVar(&messagesOffset, "offset", 0, "messages to skip")
}
