package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sigvault/sigvault/internal/query"
)

const maxLimit = 1000

type handlers struct {
	engine Engine
}

// limitArg extracts a non-negative integer argument, clamped to
// maxLimit, falling back to def when absent or invalid.
func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok || v < 0 {
		return def
	}
	n := int(v)
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// jsonResult marshals v as indented JSON into a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (h *handlers) listChats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	opts := query.ListOptions{}
	if v, ok := args["include_empty"].(bool); ok {
		opts.IncludeEmpty = v
	}
	if v, ok := args["chats"].(string); ok && v != "" {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.Chats = append(opts.Chats, id)
			}
		}
	}

	chats, err := h.engine.ListConversations(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list chats failed: %v", err)), nil
	}
	if chats == nil {
		chats = []query.Conversation{}
	}
	return jsonResult(chats)
}

func (h *handlers) getMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	chat, _ := args["chat"].(string)
	if chat == "" {
		return mcp.NewToolResultError("chat parameter is required"), nil
	}

	limit := limitArg(args, "limit", 20)
	offset := limitArg(args, "offset", 0)

	msgs, err := h.engine.MessagesByChat(ctx, chat, limit, offset)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get messages failed: %v", err)), nil
	}
	return jsonResult(msgs)
}

func (h *handlers) searchMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	chat, _ := args["chat"].(string)
	if chat == "" {
		return mcp.NewToolResultError("chat parameter is required"), nil
	}
	substr, ok := args["query"].(string)
	if !ok {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	limit := limitArg(args, "limit", 20)

	msgs, err := h.engine.SearchByChat(ctx, chat, substr, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(msgs)
}
