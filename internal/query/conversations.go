package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrConversationNotFound reports that no chat matched a name or id.
// Message and search operations convert it to empty result sets.
var ErrConversationNotFound = errors.New("conversation not found")

const conversationColumns = `
	c.id,
	COALESCE(c.serviceId, ''),
	COALESCE(c.name, ''),
	COALESCE(c.profileName, ''),
	COALESCE(c.e164, ''),
	c.type,
	COALESCE(c.json, '')`

// ListOptions narrows a single listing call. Zero value means "use
// the engine defaults".
type ListOptions struct {
	IncludeEmpty bool
	Chats        []string
}

// ListConversations returns all private and group chats with their
// message counts. Chats with zero messages are excluded unless
// include-empty is set; a non-empty chats filter keeps only chats
// whose id or service id is listed.
func (e *Engine) ListConversations(ctx context.Context, opts ListOptions) ([]Conversation, error) {
	sess, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	includeEmpty := opts.IncludeEmpty || e.opts.IncludeEmpty
	chats := opts.Chats
	if len(chats) == 0 {
		chats = e.opts.Chats
	}
	allowed := make(map[string]bool, len(chats))
	for _, id := range chats {
		allowed[id] = true
	}

	rows, err := sess.DB().QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM conversations c
		WHERE c.type IN ('private', 'group')
	`, conversationColumns))
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var raws []rawConversation
	for rows.Next() {
		var c rawConversation
		if err := rows.Scan(&c.ID, &c.ServiceID, &c.Name, &c.ProfileName, &c.E164, &c.Type, &c.JSON); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		raws = append(raws, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	var results []Conversation
	for _, raw := range raws {
		conv := raw.project()
		if len(allowed) > 0 && !allowed[conv.ID] && !allowed[conv.ServiceID] {
			continue
		}
		count, err := e.messageCount(ctx, raw.ID)
		if err != nil {
			return nil, err
		}
		if count == 0 && !includeEmpty {
			continue
		}
		conv.TotalMessages = count
		results = append(results, conv)
	}
	return results, nil
}

// ResolveByName finds a chat whose name or profile name equals name
// exactly. With duplicate display names the first stored row wins;
// the ambiguity is inherited from the upstream data model.
func (e *Engine) ResolveByName(ctx context.Context, name string) (*Conversation, error) {
	return e.resolveWhere(ctx, "(c.name = ? OR c.profileName = ?)", name, name)
}

// resolveByID finds a chat by primary or service identifier.
func (e *Engine) resolveByID(ctx context.Context, id string) (*Conversation, error) {
	return e.resolveWhere(ctx, "(c.id = ? OR c.serviceId = ?)", id, id)
}

func (e *Engine) resolveWhere(ctx context.Context, where string, args ...any) (*Conversation, error) {
	sess, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	var raw rawConversation
	err = sess.DB().QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM conversations c
		WHERE c.type IN ('private', 'group') AND %s
		LIMIT 1
	`, conversationColumns, where), args...).Scan(
		&raw.ID, &raw.ServiceID, &raw.Name, &raw.ProfileName, &raw.E164, &raw.Type, &raw.JSON,
	)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	conv := raw.project()
	count, err := e.messageCount(ctx, raw.ID)
	if err != nil {
		return nil, err
	}
	conv.TotalMessages = count
	return &conv, nil
}

func (e *Engine) messageCount(ctx context.Context, conversationID string) (int64, error) {
	sess, err := e.session(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	err = sess.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE conversationId = ?", conversationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages for %s: %w", conversationID, err)
	}
	return count, nil
}

// project resolves the display name and service-id fallback.
func (c rawConversation) project() Conversation {
	name := c.Name
	if name == "" {
		name = c.ProfileName
	}
	if name == "" {
		name = nameFromPayload(c.JSON)
	}

	serviceID := c.ServiceID
	if serviceID == "" {
		serviceID = c.ID
	}

	return Conversation{
		ID:        c.ID,
		ServiceID: serviceID,
		Name:      name,
		E164:      c.E164,
		Type:      c.Type,
	}
}

// nameFromPayload pulls a display name out of the auxiliary JSON
// payload. Malformed payloads yield "".
func nameFromPayload(raw string) string {
	if raw == "" {
		return ""
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return ""
	}
	return payload.Name
}
