package query

import (
	"encoding/json"
	"time"
)

// messagePayload is the slice of the per-message auxiliary JSON this
// layer cares about. Every field is optional and parsed defensively.
type messagePayload struct {
	Reactions []struct {
		Emoji           string `json:"emoji"`
		FromID          string `json:"fromId"`
		TargetTimestamp int64  `json:"targetTimestamp"`
	} `json:"reactions"`
	Quote *struct {
		Text string `json:"text"`
	} `json:"quote"`
	Sticker *struct {
		Emoji  string `json:"emoji"`
		PackID string `json:"packId"`
	} `json:"sticker"`
}

// FormatMessage normalizes a raw message row into the stable output
// shape. Pure: no I/O, malformed payloads degrade to empty fields.
func FormatMessage(m rawMessage, contactName, ownerID string) FormattedMessage {
	out := FormattedMessage{
		Body:      m.Body,
		Reactions: []Reaction{},
	}

	ts := m.SentAt
	if ts == 0 {
		ts = m.ReceivedAt
	}
	if ts != 0 {
		out.Date = time.UnixMilli(ts).UTC().Format(time.RFC3339)
	}

	switch {
	case ownerID != "" && m.SourceServiceID == ownerID:
		out.Sender = "Me"
	case m.Type == "outgoing":
		out.Sender = "Me"
	case contactName != "":
		out.Sender = contactName
	default:
		out.Sender = "Unknown"
	}

	if m.HasAttachments {
		out.Attachments = "yes"
	}

	var payload messagePayload
	if m.JSON != "" {
		// Malformed payloads leave the zero value: empty reactions,
		// no quote, no sticker.
		_ = json.Unmarshal([]byte(m.JSON), &payload)
	}

	for _, r := range payload.Reactions {
		out.Reactions = append(out.Reactions, Reaction{
			Emoji:           r.Emoji,
			FromID:          r.FromID,
			TargetTimestamp: r.TargetTimestamp,
		})
	}
	if payload.Quote != nil {
		out.Quote = payload.Quote.Text
	}
	if payload.Sticker != nil {
		if payload.Sticker.Emoji != "" {
			out.Sticker = payload.Sticker.Emoji
		} else {
			out.Sticker = payload.Sticker.PackID
		}
	}

	return out
}
