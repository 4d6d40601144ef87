// Package query provides read-only access to Signal Desktop
// conversations and messages over an open cipher session. Output
// shapes follow the pre-existing consumer contract exactly, down to
// the "yes"/"" attachment marker.
package query

// Conversation is a read projection of a chat row.
type Conversation struct {
	ID            string `json:"id"`
	ServiceID     string `json:"serviceId"`
	Name          string `json:"name"`
	E164          string `json:"e164,omitempty"`
	Type          string `json:"type"` // "private" or "group"
	TotalMessages int64  `json:"totalMessages"`
}

// Reaction is a single emoji reaction on a message.
type Reaction struct {
	Emoji           string `json:"emoji"`
	FromID          string `json:"fromId"`
	TargetTimestamp int64  `json:"targetTimestamp,omitempty"`
}

// FormattedMessage is the stable output shape for a message. Absent
// values are empty strings, not nulls; Attachments is "yes" or "".
type FormattedMessage struct {
	Date        string     `json:"date"`
	Sender      string     `json:"sender"`
	Body        string     `json:"body"`
	Quote       string     `json:"quote"`
	Sticker     string     `json:"sticker"`
	Reactions   []Reaction `json:"reactions"`
	Attachments string     `json:"attachments"`
}

// rawMessage is a message row before formatting.
type rawMessage struct {
	ID              string
	ConversationID  string
	ReceivedAt      int64 // primary timestamp, ms since epoch
	SentAt          int64 // preferred when non-zero
	SourceServiceID string
	Type            string // "incoming", "outgoing", ...
	Body            string
	JSON            string // auxiliary payload, parsed defensively
	HasAttachments  bool
}

// rawConversation is a chat row before name resolution.
type rawConversation struct {
	ID          string
	ServiceID   string
	Name        string
	ProfileName string
	E164        string
	Type        string
	JSON        string
}
