// Package testutil builds encrypted fixture databases for tests.
package testutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// TestKey is the hex SQLCipher key fixture databases are created with.
const TestKey = "44c1a4eb4ab693583a014e376f0fab49d80a5788bdd2f6fa0e5c1ad0e33375c8"

// CreateSignalDB creates an encrypted database with the Signal schema
// subset this project reads (conversations, messages, items) under
// dir, keyed with TestKey, and returns its path. The returned handle
// stays open for seeding; it is closed via t.Cleanup.
func CreateSignalDB(t *testing.T, dir string) (string, *sql.DB) {
	t.Helper()

	path := filepath.Join(dir, "db.sqlite")
	// Key and page size go in the DSN, the same way the session opens
	// the file: the driver applies them during connection open, so
	// fixture and reader agree on the parameters that actually govern
	// the on-disk format.
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_pragma_key", fmt.Sprintf("x'%s'", TestKey))
	params.Set("_pragma_cipher_page_size", "4096")
	db, err := sql.Open("sqlite3", "file:"+path+"?"+params.Encode())
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE conversations (
			id TEXT PRIMARY KEY,
			serviceId TEXT,
			name TEXT,
			profileName TEXT,
			e164 TEXT,
			type TEXT NOT NULL,
			json TEXT
		)`,
		`CREATE TABLE messages (
			id TEXT PRIMARY KEY,
			conversationId TEXT NOT NULL,
			received_at INTEGER,
			sent_at INTEGER,
			sourceServiceId TEXT,
			type TEXT,
			body TEXT,
			json TEXT,
			hasAttachments INTEGER DEFAULT 0
		)`,
		`CREATE TABLE items (
			id TEXT PRIMARY KEY,
			json TEXT
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	return path, db
}

// SetOwner stores the session owner's service id in the items table.
func SetOwner(t *testing.T, db *sql.DB, serviceID string) {
	t.Helper()
	payload := fmt.Sprintf(`{"id":"uuid_id","value":"%s.1"}`, serviceID)
	if _, err := db.Exec("INSERT INTO items (id, json) VALUES ('uuid_id', ?)", payload); err != nil {
		t.Fatalf("set owner: %v", err)
	}
}

// InsertConversation adds a chat row.
func InsertConversation(t *testing.T, db *sql.DB, id, serviceID, name, profileName, e164, typ, payload string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO conversations (id, serviceId, name, profileName, e164, type, json)
		VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, NULLIF(?, ''))
	`, id, serviceID, name, profileName, e164, typ, payload)
	if err != nil {
		t.Fatalf("insert conversation %s: %v", id, err)
	}
}

// Message describes a message row to insert.
type Message struct {
	ID              string
	ConversationID  string
	ReceivedAt      int64
	SentAt          int64
	SourceServiceID string
	Type            string
	Body            string
	JSON            string
	HasAttachments  bool
}

// InsertMessage adds a message row.
func InsertMessage(t *testing.T, db *sql.DB, m Message) {
	t.Helper()
	attachments := 0
	if m.HasAttachments {
		attachments = 1
	}
	_, err := db.Exec(`
		INSERT INTO messages (id, conversationId, received_at, sent_at, sourceServiceId, type, body, json, hasAttachments)
		VALUES (?, ?, NULLIF(?, 0), NULLIF(?, 0), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)
	`, m.ID, m.ConversationID, m.ReceivedAt, m.SentAt, m.SourceServiceID, m.Type, m.Body, m.JSON, attachments)
	if err != nil {
		t.Fatalf("insert message %s: %v", m.ID, err)
	}
}
