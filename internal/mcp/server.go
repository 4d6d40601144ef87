// Package mcp exposes the query layer as MCP tools over stdio.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sigvault/sigvault/internal/query"
)

// Tool name constants.
const (
	ToolListChats      = "list_chats"
	ToolGetMessages    = "get_messages"
	ToolSearchMessages = "search_messages"
)

// Engine is the slice of the query layer the tool handlers need.
type Engine interface {
	ListConversations(ctx context.Context, opts query.ListOptions) ([]query.Conversation, error)
	MessagesByChat(ctx context.Context, chat string, limit, offset int) ([]query.FormattedMessage, error)
	SearchByChat(ctx context.Context, chat, substring string, limit int) ([]query.FormattedMessage, error)
}

func withChat() mcp.ToolOption {
	return mcp.WithString("chat",
		mcp.Required(),
		mcp.Description("Chat display name or conversation id"),
	)
}

func withLimit(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum results to return (default "+defaultDesc+")"),
	)
}

// Serve creates an MCP server with Signal archive tools and serves
// over stdio. It blocks until stdin is closed or the context is
// cancelled.
func Serve(ctx context.Context, engine Engine) error {
	s := server.NewMCPServer(
		"sigvault",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := &handlers{engine: engine}

	s.AddTool(listChatsTool(), h.listChats)
	s.AddTool(getMessagesTool(), h.getMessages)
	s.AddTool(searchMessagesTool(), h.searchMessages)

	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func listChatsTool() mcp.Tool {
	return mcp.NewTool(ToolListChats,
		mcp.WithDescription("List Signal chats with message counts. Chats without messages are hidden unless include_empty is set."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithBoolean("include_empty",
			mcp.Description("Include chats that have no messages"),
		),
		mcp.WithString("chats",
			mcp.Description("Comma-separated chat ids or service ids to restrict the listing to"),
		),
	)
}

func getMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolGetMessages,
		mcp.WithDescription("Get messages from a chat, newest first. The chat is matched by display name, then by id; an unknown chat returns an empty list."),
		mcp.WithReadOnlyHintAnnotation(true),
		withChat(),
		withLimit("20"),
		mcp.WithNumber("offset",
			mcp.Description("Number of messages to skip for pagination (default 0)"),
		),
	)
}

func searchMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchMessages,
		mcp.WithDescription("Search a chat's messages for a literal substring (no ranking or normalization), newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		withChat(),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Substring to match against message bodies"),
		),
		withLimit("20"),
	)
}
