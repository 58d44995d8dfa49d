package audit

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// LazyStore defers opening the configured backend until the first record is
// appended. Commands that never resolve conflicts leave no audit file behind.
type LazyStore struct {
	cfg Config

	mu     sync.Mutex
	store  Store
	closed bool
}

// NewLazyStore validates cfg without touching the backend.
func NewLazyStore(cfg Config) (*LazyStore, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Backend = strings.ToLower(cfg.Backend)
	return &LazyStore{cfg: cfg}, nil
}

// Opened reports whether the backend has been opened.
func (l *LazyStore) Opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store != nil
}

// open returns the backend, opening it on first use. A failed open is
// retried on the next call.
func (l *LazyStore) open() (Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errors.New("audit store closed")
	}
	if l.store == nil {
		s, err := Open(l.cfg)
		if err != nil {
			return nil, err
		}
		l.store = s
	}
	return l.store, nil
}

func (l *LazyStore) Append(ctx context.Context, rec Record) error {
	s, err := l.open()
	if err != nil {
		return err
	}
	return s.Append(ctx, rec)
}

// Query reads from the backend. A backend file that does not exist yet holds
// no records and is not created.
func (l *LazyStore) Query(ctx context.Context, q Query) ([]Record, error) {
	if !l.Opened() && l.cfg.Backend != "nop" {
		if _, err := os.Stat(l.cfg.Path); errors.Is(err, fs.ErrNotExist) {
			return nil, ctx.Err()
		}
	}
	s, err := l.open()
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, q)
}

// Close closes the backend if it was opened.
func (l *LazyStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.store == nil {
		return nil
	}
	err := l.store.Close()
	l.store = nil
	return err
}
