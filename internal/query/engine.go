package query

import (
	"context"
	"fmt"

	"github.com/sigvault/sigvault/internal/cipherdb"
)

// OpenFunc produces an authenticated cipher session. The engine calls
// it at most once; key resolution and database open both live behind
// it so callers fail fast on the first operation that needs data.
type OpenFunc func(ctx context.Context) (*cipherdb.Session, error)

// Options configures query behavior.
type Options struct {
	IncludeEmpty        bool     // keep chats with zero messages in listings
	IncludeDisappearing bool     // accepted for compatibility; does not alter queries
	Chats               []string // when non-empty, restrict listings to these ids / service ids
}

// Engine owns the cipher session and exposes the conversation and
// message repositories. Not safe for concurrent use; every operation
// is a direct blocking call into the database.
type Engine struct {
	open OpenFunc
	opts Options
	sess *cipherdb.Session
}

// New creates an engine that lazily opens its session via open.
func New(open OpenFunc, opts Options) *Engine {
	return &Engine{open: open, opts: opts}
}

// NewWithSession creates an engine over an already-open session. The
// engine takes ownership and closes it.
func NewWithSession(sess *cipherdb.Session, opts Options) *Engine {
	return &Engine{sess: sess, opts: opts}
}

// session returns the memoized cipher session, opening it on first use.
func (e *Engine) session(ctx context.Context) (*cipherdb.Session, error) {
	if e.sess != nil {
		return e.sess, nil
	}
	sess, err := e.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	e.sess = sess
	return sess, nil
}

// Close releases the session if one was opened.
func (e *Engine) Close() error {
	if e.sess == nil {
		return nil
	}
	err := e.sess.Close()
	e.sess = nil
	return err
}
