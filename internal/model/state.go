package model

import (
	"time"
)

// TurnState is the per-turn working record the orchestrator threads through
// its stages. It is created at message ingress, owned exclusively by the
// processing goroutine, and discarded after delivery; only the session
// store keeps anything durable. All optional fields are explicit.
type TurnState struct {
	// Core message data
	Input       string
	SenderPhone string
	Kind        MessageKind
	Response    string

	// Conversation context, loaded from the session store at ingress.
	History []ConversationTurn

	// Message analysis
	IsGreeting bool
	IsGoodbye  bool
	IsQuestion bool
	Intent     string
	Confidence float64

	// Service action outcome
	ActionTaken  bool
	ActionResult *ActionResult
	ServiceError string

	// Validation and flow control
	ValidationError string

	// Delivery and bookkeeping
	ResponseSent     bool
	SessionUpdated   bool
	ProcessingErrors []string

	// Timing
	StartedAt      time.Time
	ProcessingTime time.Duration
}

// AddProcessingError records a non-fatal error encountered during the turn.
func (s *TurnState) AddProcessingError(msg string) {
	s.ProcessingErrors = append(s.ProcessingErrors, msg)
}
