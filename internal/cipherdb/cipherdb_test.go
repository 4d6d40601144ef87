package cipherdb

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sigvault/sigvault/internal/testutil"
)

func TestCipherDSN(t *testing.T) {
	dsn := cipherDSN("/data/Signal/sql/db.sqlite", testutil.TestKey)

	const prefix = "file:/data/Signal/sql/db.sqlite?"
	if !strings.HasPrefix(dsn, prefix) {
		t.Fatalf("dsn = %q, want prefix %q", dsn, prefix)
	}
	params, err := url.ParseQuery(strings.TrimPrefix(dsn, prefix))
	if err != nil {
		t.Fatalf("parse dsn params: %v", err)
	}

	// Key and page size must be connection-open parameters; the driver
	// keys the file before the first statement runs.
	if got := params.Get("_pragma_key"); got != "x'"+testutil.TestKey+"'" {
		t.Errorf("_pragma_key = %q", got)
	}
	if got := params.Get("_pragma_cipher_page_size"); got != "4096" {
		t.Errorf("_pragma_cipher_page_size = %q, want 4096", got)
	}
	if got := params.Get("mode"); got != "ro" {
		t.Errorf("mode = %q, want ro", got)
	}
	if got := params.Get("_busy_timeout"); got != "5000" {
		t.Errorf("_busy_timeout = %q, want 5000", got)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.sqlite"), testutil.TestKey)
	if !errors.Is(err, ErrDatabaseNotFound) {
		t.Fatalf("got %v, want ErrDatabaseNotFound", err)
	}
}

func TestOpenWrongKey(t *testing.T) {
	path, _ := testutil.CreateSignalDB(t, t.TempDir())

	wrongKey := strings.Repeat("ab", 32)
	_, err := Open(context.Background(), path, wrongKey)
	if !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("got %v, want ErrOpenFailed", err)
	}
}

func TestOpenReadsOwnerID(t *testing.T) {
	path, db := testutil.CreateSignalDB(t, t.TempDir())
	testutil.SetOwner(t, db, "aci-owner")

	sess, err := Open(context.Background(), path, testutil.TestKey)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()

	if got := sess.OwnerID(); got != "aci-owner" {
		t.Errorf("OwnerID = %q, want %q", got, "aci-owner")
	}
}

func TestOpenWithoutOwnerRow(t *testing.T) {
	path, _ := testutil.CreateSignalDB(t, t.TempDir())

	sess, err := Open(context.Background(), path, testutil.TestKey)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()

	if got := sess.OwnerID(); got != "" {
		t.Errorf("OwnerID = %q, want empty when the items row is absent", got)
	}
}

func TestOpenMalformedOwnerPayload(t *testing.T) {
	path, db := testutil.CreateSignalDB(t, t.TempDir())
	if _, err := db.Exec("INSERT INTO items (id, json) VALUES ('uuid_id', 'not json')"); err != nil {
		t.Fatal(err)
	}

	sess, err := Open(context.Background(), path, testutil.TestKey)
	if err != nil {
		t.Fatalf("Open must tolerate a malformed items row: %v", err)
	}
	defer sess.Close()

	if got := sess.OwnerID(); got != "" {
		t.Errorf("OwnerID = %q, want empty for malformed payload", got)
	}
}

func TestSessionIsQueryable(t *testing.T) {
	path, db := testutil.CreateSignalDB(t, t.TempDir())
	testutil.InsertConversation(t, db, "c1", "", "Alice", "", "", "private", "")

	sess, err := Open(context.Background(), path, testutil.TestKey)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()

	var n int
	if err := sess.DB().QueryRow("SELECT COUNT(*) FROM conversations").Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestOpenAppliesCipherPageSize(t *testing.T) {
	path, _ := testutil.CreateSignalDB(t, t.TempDir())

	sess, err := Open(context.Background(), path, testutil.TestKey)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()

	var pageSize int
	if err := sess.DB().QueryRow("PRAGMA cipher_page_size").Scan(&pageSize); err != nil {
		t.Fatalf("read cipher_page_size: %v", err)
	}
	if pageSize != cipherPageSize {
		t.Errorf("cipher_page_size = %d, want %d", pageSize, cipherPageSize)
	}
}
