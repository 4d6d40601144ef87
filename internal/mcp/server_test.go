package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sigvault/sigvault/internal/query"
)

// stubEngine records the arguments handlers pass through.
type stubEngine struct {
	chats    []query.Conversation
	messages []query.FormattedMessage

	gotListOpts query.ListOptions
	gotChat     string
	gotQuery    string
	gotLimit    int
	gotOffset   int
}

func (s *stubEngine) ListConversations(_ context.Context, opts query.ListOptions) ([]query.Conversation, error) {
	s.gotListOpts = opts
	return s.chats, nil
}

func (s *stubEngine) MessagesByChat(_ context.Context, chat string, limit, offset int) ([]query.FormattedMessage, error) {
	s.gotChat, s.gotLimit, s.gotOffset = chat, limit, offset
	return s.messages, nil
}

func (s *stubEngine) SearchByChat(_ context.Context, chat, substring string, limit int) ([]query.FormattedMessage, error) {
	s.gotChat, s.gotQuery, s.gotLimit = chat, substring, limit
	return s.messages, nil
}

// toolHandler is the function signature for MCP tool handler methods.
type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func callToolDirect(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty content")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", r.Content[0])
	}
	return tc.Text
}

// runTool invokes a handler, asserts success, and unmarshals the JSON result into T.
func runTool[T any](t *testing.T, name string, fn toolHandler, args map[string]any) T {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, r))
	}
	var out T
	if err := json.Unmarshal([]byte(resultText(t, r)), &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return out
}

func runToolExpectError(t *testing.T, name string, fn toolHandler, args map[string]any) {
	t.Helper()
	if r := callToolDirect(t, name, fn, args); !r.IsError {
		t.Fatal("expected error result")
	}
}

func TestListChats(t *testing.T) {
	eng := &stubEngine{chats: []query.Conversation{
		{ID: "c1", ServiceID: "svc-1", Name: "Alice", Type: "private", TotalMessages: 3},
	}}
	h := &handlers{engine: eng}

	t.Run("defaults", func(t *testing.T) {
		chats := runTool[[]query.Conversation](t, ToolListChats, h.listChats, map[string]any{})
		if len(chats) != 1 || chats[0].Name != "Alice" {
			t.Fatalf("unexpected result: %v", chats)
		}
		if eng.gotListOpts.IncludeEmpty || len(eng.gotListOpts.Chats) != 0 {
			t.Errorf("opts = %+v, want zero value", eng.gotListOpts)
		}
	})

	t.Run("include_empty and chats filter", func(t *testing.T) {
		runTool[[]query.Conversation](t, ToolListChats, h.listChats, map[string]any{
			"include_empty": true,
			"chats":         "c1, svc-2,",
		})
		if !eng.gotListOpts.IncludeEmpty {
			t.Error("IncludeEmpty not passed through")
		}
		want := []string{"c1", "svc-2"}
		if len(eng.gotListOpts.Chats) != 2 || eng.gotListOpts.Chats[0] != want[0] || eng.gotListOpts.Chats[1] != want[1] {
			t.Errorf("Chats = %v, want %v", eng.gotListOpts.Chats, want)
		}
	})

	t.Run("nil chats renders as empty array", func(t *testing.T) {
		empty := &handlers{engine: &stubEngine{}}
		r := callToolDirect(t, ToolListChats, empty.listChats, map[string]any{})
		if r.IsError {
			t.Fatalf("unexpected error: %s", resultText(t, r))
		}
		if text := resultText(t, r); text != "[]" {
			t.Errorf("got %q, want []", text)
		}
	})
}

func TestGetMessages(t *testing.T) {
	eng := &stubEngine{messages: []query.FormattedMessage{
		{Date: "2024-01-01T00:00:00Z", Sender: "Me", Body: "hi", Reactions: []query.Reaction{}},
	}}
	h := &handlers{engine: eng}

	t.Run("valid", func(t *testing.T) {
		msgs := runTool[[]query.FormattedMessage](t, ToolGetMessages, h.getMessages, map[string]any{
			"chat": "Alice", "limit": float64(5), "offset": float64(10),
		})
		if len(msgs) != 1 || msgs[0].Sender != "Me" {
			t.Fatalf("unexpected result: %v", msgs)
		}
		if eng.gotChat != "Alice" || eng.gotLimit != 5 || eng.gotOffset != 10 {
			t.Errorf("passed chat=%q limit=%d offset=%d", eng.gotChat, eng.gotLimit, eng.gotOffset)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		runTool[[]query.FormattedMessage](t, ToolGetMessages, h.getMessages, map[string]any{"chat": "Alice"})
		if eng.gotLimit != 20 || eng.gotOffset != 0 {
			t.Errorf("limit=%d offset=%d, want 20/0", eng.gotLimit, eng.gotOffset)
		}
	})

	t.Run("limit clamped", func(t *testing.T) {
		runTool[[]query.FormattedMessage](t, ToolGetMessages, h.getMessages, map[string]any{
			"chat": "Alice", "limit": float64(100000),
		})
		if eng.gotLimit != maxLimit {
			t.Errorf("limit=%d, want %d", eng.gotLimit, maxLimit)
		}
	})

	t.Run("missing chat", func(t *testing.T) {
		runToolExpectError(t, ToolGetMessages, h.getMessages, map[string]any{})
	})
}

func TestSearchMessagesTool(t *testing.T) {
	eng := &stubEngine{messages: []query.FormattedMessage{}}
	h := &handlers{engine: eng}

	t.Run("valid", func(t *testing.T) {
		runTool[[]query.FormattedMessage](t, ToolSearchMessages, h.searchMessages, map[string]any{
			"chat": "Alice", "query": "coffee",
		})
		if eng.gotChat != "Alice" || eng.gotQuery != "coffee" || eng.gotLimit != 20 {
			t.Errorf("passed chat=%q query=%q limit=%d", eng.gotChat, eng.gotQuery, eng.gotLimit)
		}
	})

	t.Run("empty query string is allowed", func(t *testing.T) {
		runTool[[]query.FormattedMessage](t, ToolSearchMessages, h.searchMessages, map[string]any{
			"chat": "Alice", "query": "",
		})
		if eng.gotQuery != "" {
			t.Errorf("query = %q, want empty", eng.gotQuery)
		}
	})

	t.Run("missing chat", func(t *testing.T) {
		runToolExpectError(t, ToolSearchMessages, h.searchMessages, map[string]any{"query": "x"})
	})

	t.Run("missing query", func(t *testing.T) {
		runToolExpectError(t, ToolSearchMessages, h.searchMessages, map[string]any{"chat": "Alice"})
	})
}
