package model

import (
	"time"
)

// Session is the durable per-user conversation record. The user's phone
// number is the unique key. History is bounded; oldest turns are evicted
// first when the cap is exceeded.
type Session struct {
	UserID       string             `json:"user_id"`
	History      []ConversationTurn `json:"history"`
	CreatedAt    time.Time          `json:"created_at"`
	LastActivity time.Time          `json:"last_activity"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the session so callers can read it without
// racing the store's own mutations.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		UserID:       s.UserID,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
	if s.History != nil {
		out.History = make([]ConversationTurn, len(s.History))
		for i, turn := range s.History {
			out.History[i] = turn
			if turn.Metadata != nil {
				md := make(map[string]string, len(turn.Metadata))
				for k, v := range turn.Metadata {
					md[k] = v
				}
				out.History[i].Metadata = md
			}
		}
	}
	if s.Metadata != nil {
		out.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// RecentHistory returns up to maxTurns of the most recent history entries.
func (s *Session) RecentHistory(maxTurns int) []ConversationTurn {
	if s == nil || maxTurns <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= maxTurns {
		return s.History
	}
	return s.History[len(s.History)-maxTurns:]
}
