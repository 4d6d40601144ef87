package query

import (
	"context"
	"errors"
	"fmt"
)

const messageColumns = `
	m.id,
	m.conversationId,
	COALESCE(m.received_at, 0),
	COALESCE(m.sent_at, 0),
	COALESCE(m.sourceServiceId, ''),
	COALESCE(m.type, ''),
	COALESCE(m.body, ''),
	COALESCE(m.json, ''),
	COALESCE(m.hasAttachments, 0)`

// Ordering matches the timestamp the formatter renders: sent_at when
// present, else received_at.
const messageOrder = "ORDER BY COALESCE(NULLIF(m.sent_at, 0), m.received_at) DESC"

// Messages returns formatted messages for a conversation id, newest
// first. limit 0 means no upper bound; offset skips that many rows.
// A conversation with no messages yields an empty slice.
func (e *Engine) Messages(ctx context.Context, conversationID string, limit, offset int) ([]FormattedMessage, error) {
	contactName := e.contactNameFor(ctx, conversationID)
	return e.fetchFormatted(ctx, contactName, fmt.Sprintf(`
		SELECT %s
		FROM messages m
		WHERE m.conversationId = ?
		%s
		LIMIT %s OFFSET ?
	`, messageColumns, messageOrder, limitExpr(limit)), conversationID, offset)
}

// SearchMessages returns formatted messages in a conversation whose
// body contains substring, using SQLite's native LIKE semantics
// (ASCII case-insensitive, no normalization). An empty substring
// matches every message, including bodyless rows such as bare
// attachments. limit 0 means no cap; search has no offset.
func (e *Engine) SearchMessages(ctx context.Context, conversationID, substring string, limit int) ([]FormattedMessage, error) {
	contactName := e.contactNameFor(ctx, conversationID)
	return e.fetchFormatted(ctx, contactName, fmt.Sprintf(`
		SELECT %s
		FROM messages m
		WHERE m.conversationId = ?
		  AND COALESCE(m.body, '') LIKE '%%' || ? || '%%'
		%s
		LIMIT %s
	`, messageColumns, messageOrder, limitExpr(limit)), conversationID, substring)
}

// MessagesByChat resolves chat by display name first, then by
// identifier, and pages through its messages. An unknown chat yields
// an empty result, not an error.
func (e *Engine) MessagesByChat(ctx context.Context, chat string, limit, offset int) ([]FormattedMessage, error) {
	conv, err := e.resolveChat(ctx, chat)
	if errors.Is(err, ErrConversationNotFound) {
		return []FormattedMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return e.Messages(ctx, conv.ID, limit, offset)
}

// SearchByChat is the search counterpart of MessagesByChat.
func (e *Engine) SearchByChat(ctx context.Context, chat, substring string, limit int) ([]FormattedMessage, error) {
	conv, err := e.resolveChat(ctx, chat)
	if errors.Is(err, ErrConversationNotFound) {
		return []FormattedMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return e.SearchMessages(ctx, conv.ID, substring, limit)
}

func (e *Engine) resolveChat(ctx context.Context, chat string) (*Conversation, error) {
	conv, err := e.ResolveByName(ctx, chat)
	if errors.Is(err, ErrConversationNotFound) {
		return e.resolveByID(ctx, chat)
	}
	return conv, err
}

// contactNameFor resolves the conversation's display name once so the
// formatter does not re-resolve per row. Failures degrade to "" and
// the formatter falls back to "Unknown".
func (e *Engine) contactNameFor(ctx context.Context, conversationID string) string {
	conv, err := e.resolveByID(ctx, conversationID)
	if err != nil {
		return ""
	}
	return conv.Name
}

func (e *Engine) fetchFormatted(ctx context.Context, contactName, query string, args ...any) ([]FormattedMessage, error) {
	sess, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := sess.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	defer rows.Close()

	results := []FormattedMessage{}
	for rows.Next() {
		var m rawMessage
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.ReceivedAt, &m.SentAt,
			&m.SourceServiceID, &m.Type, &m.Body, &m.JSON, &m.HasAttachments,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		results = append(results, FormatMessage(m, contactName, sess.OwnerID()))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return results, nil
}

// limitExpr returns the LIMIT operand; -1 is SQLite for "no limit"
// (required so OFFSET can still apply).
func limitExpr(limit int) string {
	if limit <= 0 {
		return "-1"
	}
	return fmt.Sprintf("%d", limit)
}
