// Package model defines data structures for the assistant.
package model

import (
	"time"
)

// Role represents the role of a conversation participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageKind represents the kind of an inbound message.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindAudio    MessageKind = "audio"
	KindImage    MessageKind = "image"
	KindDocument MessageKind = "document"
	KindError    MessageKind = "error"
	KindSystem   MessageKind = "system"
)

// InboundMessage is the parsed envelope of a message received from the
// messaging channel. The webhook layer produces it; the orchestrator
// consumes it.
type InboundMessage struct {
	Sender    string      `json:"sender"`
	Content   string      `json:"content"`
	Kind      MessageKind `json:"kind"`
	MediaURL  string      `json:"media_url,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConversationTurn is a single entry in a session's history.
type ConversationTurn struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
