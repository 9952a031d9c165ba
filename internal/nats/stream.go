package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/internal/model"
)

const (
	// StreamName is the name of the assistant analytics stream.
	StreamName = "ASSISTANT_EVENTS"

	// SubjectPrefix is the prefix for all assistant event subjects.
	SubjectPrefix = "assistant"
)

// TurnEvent is the analytics record published for each processed turn.
type TurnEvent struct {
	UserID       string        `json:"user_id"`
	Intent       string        `json:"intent"`
	Confidence   float64       `json:"confidence"`
	ActionTaken  bool          `json:"action_taken"`
	ResponseSent bool          `json:"response_sent"`
	Elapsed      time.Duration `json:"elapsed"`
	Timestamp    time.Time     `json:"timestamp"`
}

// ActionEvent is the analytics record published for each service action
// attempt.
type ActionEvent struct {
	UserID    string               `json:"user_id"`
	Action    model.ActionKind     `json:"action"`
	Success   bool                 `json:"success"`
	Details   *model.ActionDetails `json:"details,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// EventPublisher publishes assistant analytics events to JetStream.
// Publishing is best-effort: delivery of replies never depends on it.
// A nil publisher is valid and drops everything.
type EventPublisher struct {
	client *Client
}

// NewEventPublisher creates an event publisher. client may be nil when
// NATS is not configured; every method then no-ops.
func NewEventPublisher(client *Client) *EventPublisher {
	if client == nil {
		return nil
	}
	return &EventPublisher{client: client}
}

// EnsureStream ensures the analytics stream exists with proper
// configuration.
func (p *EventPublisher) EnsureStream(ctx context.Context) error {
	if p == nil {
		return nil
	}
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Assistant turn and service action events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject for a turn event.
func TurnSubject(userID string) string {
	return fmt.Sprintf("%s.turn.%s", SubjectPrefix, userID)
}

// ActionSubject returns the subject for an action event.
func ActionSubject(userID string, kind model.ActionKind) string {
	return fmt.Sprintf("%s.action.%s.%s", SubjectPrefix, userID, kind)
}

// PublishTurn publishes a turn summary event.
func (p *EventPublisher) PublishTurn(ctx context.Context, event TurnEvent) {
	if p == nil {
		return
	}
	p.publish(ctx, TurnSubject(event.UserID), event)
}

// PublishAction publishes a service action event.
func (p *EventPublisher) PublishAction(ctx context.Context, userID string, result model.ActionResult) {
	if p == nil {
		return
	}
	p.publish(ctx, ActionSubject(userID, result.Action), ActionEvent{
		UserID:    userID,
		Action:    result.Action,
		Success:   result.Success,
		Details:   result.Details,
		Timestamp: time.Now(),
	})
}

func (p *EventPublisher) publish(ctx context.Context, subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		p.client.logger.Error("failed to marshal event", zap.String("subject", subject), zap.Error(err))
		return
	}

	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		p.client.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
