// Package cipherdb opens a read-only session against Signal Desktop's
// SQLCipher database. A Session owns exactly one connection: SQLCipher
// keying is per-connection, so the pool is pinned to a single conn and
// every query runs against the keyed handle.
package cipherdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

var (
	ErrDatabaseNotFound = errors.New("database file not found")
	ErrDatabaseLocked   = errors.New("database is locked")
	ErrOpenFailed       = errors.New("database open failed")
)

// Page size Signal Desktop configures its database with. The key and
// page size travel in the DSN; the driver's remaining cipher settings
// (PBKDF2-HMAC-SHA512 derivation, HMAC-SHA512 page MACs) are its
// compiled SQLCipher 4 configuration and are not settable per
// connection.
const cipherPageSize = 4096

// Session is an open, read-only handle to the decrypted database.
type Session struct {
	db      *sql.DB
	ownerID string // the account's own service id, "" when unknown
}

// Open opens the encrypted database at path with the given hex key and
// validates the key eagerly. The caller must Close the session.
func Open(ctx context.Context, path, key string) (*Session, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", ErrOpenFailed, path, err)
	}

	db, err := sql.Open("sqlite3", cipherDSN(path, key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	// Keying is per-connection; a single pooled conn keeps every query
	// on the keyed handle.
	db.SetMaxOpenConns(1)

	// sql.Open is lazy and a wrong key fails on the first page read;
	// probe the schema so key errors surface here instead of on the
	// first query.
	var n int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		db.Close()
		return nil, classifyOpenError(err)
	}

	s := &Session{db: db}
	s.ownerID = readOwnerID(ctx, db)
	return s, nil
}

// cipherDSN builds the driver DSN with the key embedded. The key has
// to travel in the DSN: the driver keys the connection during its own
// open sequence, before any statement issued through database/sql
// could run, so a PRAGMA exec'd after open arrives too late.
func cipherDSN(path, key string) string {
	params := url.Values{}
	params.Set("mode", "ro")
	params.Set("_busy_timeout", "5000")
	params.Set("_pragma_key", fmt.Sprintf("x'%s'", key))
	params.Set("_pragma_cipher_page_size", strconv.Itoa(cipherPageSize))
	return "file:" + path + "?" + params.Encode()
}

func classifyOpenError(err error) error {
	if isSQLiteCode(err, sqlite3.ErrBusy) || isSQLiteCode(err, sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", ErrDatabaseLocked, err)
	}
	return fmt.Errorf("%w (wrong key?): %v", ErrOpenFailed, err)
}

// isSQLiteCode checks if err is a sqlite3.Error with the given code,
// handling both value and pointer forms.
func isSQLiteCode(err error, code sqlite3.ErrNo) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == code
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return sqliteErrPtr.Code == code
	}
	return false
}

// readOwnerID fetches the account's own service id from the items
// table (row "uuid_id", whose json "value" field holds
// "<serviceId>.<deviceId>").
// Best-effort: any failure leaves the owner unknown, which only
// degrades "Me" detection in formatted output.
func readOwnerID(ctx context.Context, db *sql.DB) string {
	var raw string
	err := db.QueryRowContext(ctx, "SELECT json FROM items WHERE id = 'uuid_id'").Scan(&raw)
	if err != nil {
		return ""
	}

	// The stored value is "<serviceId>.<deviceId>".
	var item struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return ""
	}
	id := item.Value
	if i := strings.IndexByte(id, '.'); i >= 0 {
		id = id[:i]
	}
	return id
}

// DB returns the underlying database handle for the query layer.
func (s *Session) DB() *sql.DB {
	return s.db
}

// OwnerID returns the session owner's service id, or "" when it could
// not be determined.
func (s *Session) OwnerID() string {
	return s.ownerID
}

// Close releases the underlying file handle.
func (s *Session) Close() error {
	return s.db.Close()
}
