// Package memory implements an in-process jigsaw.Store.
// The session lives only as long as the process; nothing is written to disk.
package memory

import (
	"context"
	"sync"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
)

// SessionStore holds one jigsaw session behind a RWMutex.
// View calls may run concurrently, Update calls are exclusive.
type SessionStore struct {
	mu      sync.RWMutex
	session *jigsaw.Session
}

// NewSessionStore wraps an existing session. A nil session is replaced
// by a fresh jigsaw.NewSession().
func NewSessionStore(session *jigsaw.Session) *SessionStore {
	if session == nil {
		session = jigsaw.NewSession()
	}
	return &SessionStore{session: session}
}

// View implements jigsaw.Store.
func (s *SessionStore) View(ctx context.Context, fn func(*jigsaw.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(s.session)
}

// Update implements jigsaw.Store.
func (s *SessionStore) Update(ctx context.Context, fn func(*jigsaw.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.session)
}

// Ensure interface compliance.
var _ jigsaw.Store = (*SessionStore)(nil)
