// Package session provides per-user conversation session storage with
// bounded history and inactivity expiry.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/internal/model"
	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
	"github.com/lunia-labs/whatsapp-assistant/pkg/metrics"
)

// ErrNotFound is returned when no live session exists for a user.
var ErrNotFound = errors.New("session not found")

// Store is the session persistence contract.
type Store interface {
	// Get returns a snapshot of the user's session. A session idle past
	// the timeout is treated as absent.
	Get(ctx context.Context, userID string) (*model.Session, error)

	// AddMessage appends a turn to the user's session, creating the
	// session if needed and refreshing its activity timestamp.
	AddMessage(ctx context.Context, userID string, role model.Role, content string, meta map[string]string) error

	// Delete removes the user's session.
	Delete(ctx context.Context, userID string) error

	// CleanupExpired removes all sessions idle past the timeout and
	// returns how many were removed.
	CleanupExpired(ctx context.Context) int
}

// MemoryStore is an in-memory session store. All read-modify-write cycles
// run under one mutex, so concurrent turns from the same user serialize
// here and history entries are never lost.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session

	timeout    time.Duration
	maxHistory int
	logger     *logger.Logger

	// now is overridable for tests.
	now func() time.Time
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(timeout time.Duration, maxHistory int, log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*model.Session),
		timeout:    timeout,
		maxHistory: maxHistory,
		logger:     log,
		now:        time.Now,
	}
}

// Get returns a deep copy of the user's session, or ErrNotFound if no
// session exists or the session has expired. Expired sessions are removed
// on the way out.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, ErrNotFound
	}

	if s.expired(sess) {
		delete(s.sessions, userID)
		metrics.SessionsActive.Set(float64(len(s.sessions)))
		return nil, ErrNotFound
	}

	return sess.Clone(), nil
}

// AddMessage appends a turn, creating the session lazily and evicting the
// oldest turns once the history cap is exceeded.
func (s *MemoryStore) AddMessage(ctx context.Context, userID string, role model.Role, content string, meta map[string]string) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if ok && s.expired(sess) {
		sess = nil
		ok = false
	}
	if !ok {
		sess = &model.Session{
			UserID:    userID,
			CreatedAt: now,
		}
		s.sessions[userID] = sess
	}

	sess.History = append(sess.History, model.ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: now,
		Metadata:  meta,
	})
	if s.maxHistory > 0 && len(sess.History) > s.maxHistory {
		sess.History = sess.History[len(sess.History)-s.maxHistory:]
	}
	sess.LastActivity = now

	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return nil
}

// Delete removes the user's session. Deleting an absent session is not an
// error.
func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return nil
}

// CleanupExpired removes every session idle past the timeout.
func (s *MemoryStore) CleanupExpired(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, userID)
			removed++
		}
	}

	if removed > 0 {
		metrics.SessionsExpired.Add(float64(removed))
		metrics.SessionsActive.Set(float64(len(s.sessions)))
	}
	return removed
}

// Count returns the number of stored sessions, expired or not.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) expired(sess *model.Session) bool {
	return s.timeout > 0 && s.now().Sub(sess.LastActivity) > s.timeout
}

// RunSweeper periodically removes expired sessions until ctx is cancelled.
// It runs on its own timer and never blocks message processing.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.CleanupExpired(ctx); removed > 0 {
				s.logger.Info("expired sessions removed", zap.Int("count", removed))
			}
		}
	}
}
