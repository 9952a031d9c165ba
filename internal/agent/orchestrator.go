// Package agent sequences the conversation turn: validation, service
// intent matching, classification, response generation, delivery, and
// session bookkeeping.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/internal/intent"
	"github.com/lunia-labs/whatsapp-assistant/internal/model"
	natsclient "github.com/lunia-labs/whatsapp-assistant/internal/nats"
	"github.com/lunia-labs/whatsapp-assistant/internal/respond"
	"github.com/lunia-labs/whatsapp-assistant/internal/session"
	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
	"github.com/lunia-labs/whatsapp-assistant/pkg/metrics"
)

// Messenger delivers outbound messages on the chat channel.
type Messenger interface {
	SendText(ctx context.Context, phone, text string) error
	SendTyping(ctx context.Context, phone string) error
}

// ActionMatcher detects and executes service intents.
type ActionMatcher interface {
	MatchAndExecute(ctx context.Context, text, userID string) model.ActionResult
}

// KnowledgeBase answers general questions with optional conversation
// context. An empty answer with a nil error is a miss.
type KnowledgeBase interface {
	Query(ctx context.Context, question, convContext string) (string, error)
}

// state is a node in the turn processing machine.
type state int

const (
	stateValidate state = iota
	stateProcess
	stateGenerate
	stateSend
	stateError
	stateDone
)

// transition returns the next state for the current turn. The topology is
// small and fixed: validate branches on validation outcome, everything
// else is linear, and stateSend / stateError are the terminals that route
// to done.
func transition(s state, ts *model.TurnState) state {
	switch s {
	case stateValidate:
		if ts.ValidationError != "" {
			return stateError
		}
		return stateProcess
	case stateProcess:
		return stateGenerate
	case stateGenerate:
		return stateSend
	case stateSend, stateError:
		return stateDone
	default:
		return stateDone
	}
}

// Orchestrator drives one inbound message through the turn machine. All
// collaborators are injected at construction; matcher, knowledge base and
// events may be nil.
type Orchestrator struct {
	messenger Messenger
	matcher   ActionMatcher
	kb        KnowledgeBase
	sessions  session.Store
	generator *respond.Generator
	events    *natsclient.EventPublisher
	logger    *logger.Logger

	turnTimeout time.Duration
	maxLength   int
}

// Options configures an Orchestrator.
type Options struct {
	Messenger Messenger
	Matcher   ActionMatcher
	KB        KnowledgeBase
	Sessions  session.Store
	Generator *respond.Generator
	Events    *natsclient.EventPublisher
	Logger    *logger.Logger

	TurnTimeout time.Duration
}

// New creates a conversation orchestrator.
func New(opts Options) *Orchestrator {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = 60 * time.Second
	}
	return &Orchestrator{
		messenger:   opts.Messenger,
		matcher:     opts.Matcher,
		kb:          opts.KB,
		sessions:    opts.Sessions,
		generator:   opts.Generator,
		events:      opts.Events,
		logger:      opts.Logger,
		turnTimeout: opts.TurnTimeout,
		maxLength:   opts.Generator.MaxLength(),
	}
}

// ProcessTurn runs one inbound message end to end and returns the final
// turn state. Every failure is absorbed into a deterministic user-facing
// reply; nothing here is fatal to the process.
func (o *Orchestrator) ProcessTurn(ctx context.Context, msg model.InboundMessage) *model.TurnState {
	start := time.Now()
	correlationID := uuid.Must(uuid.NewV7()).String()
	log := o.logger.WithTurn(correlationID, msg.Sender)
	log.Info("processing message",
		zap.String("kind", string(msg.Kind)),
		zap.Int("length", len(msg.Content)),
	)

	ts := &model.TurnState{
		Input:       msg.Content,
		SenderPhone: msg.Sender,
		Kind:        msg.Kind,
		StartedAt:   start,
	}

	if sess, err := o.sessions.Get(ctx, msg.Sender); err == nil {
		ts.History = sess.History
	}

	turnCtx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	// Best-effort typing indicator before the heavy work.
	_ = o.messenger.SendTyping(turnCtx, msg.Sender)

	outcome := o.runTurn(turnCtx, ts, log)

	ts.ProcessingTime = time.Since(start)
	metrics.RecordTurn(outcome, ts.ProcessingTime.Seconds())
	o.events.PublishTurn(ctx, natsclient.TurnEvent{
		UserID:       msg.Sender,
		Intent:       ts.Intent,
		Confidence:   ts.Confidence,
		ActionTaken:  ts.ActionTaken,
		ResponseSent: ts.ResponseSent,
		Elapsed:      ts.ProcessingTime,
		Timestamp:    start,
	})

	log.Info("turn finished",
		zap.String("outcome", outcome),
		zap.String("intent", ts.Intent),
		zap.Bool("response_sent", ts.ResponseSent),
		zap.Duration("elapsed", ts.ProcessingTime),
	)
	return ts
}

// runTurn executes the machine plus the deferred knowledge base lookup and
// the session update, and returns the turn outcome label.
func (o *Orchestrator) runTurn(ctx context.Context, ts *model.TurnState, log *logger.Logger) string {
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.runMachine(ctx, ts)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// The whole-turn deadline was breached. The user gets the fixed
		// timeout apology on a fresh short deadline; the in-flight machine
		// unblocks off the expired context and is drained before the turn
		// state is read again.
		log.Error("turn processing timed out")
		o.sendApology(ts.SenderPhone, respond.TimeoutText)
		<-done
		return "timeout"
	}

	if ts.ValidationError != "" {
		return "validation_error"
	}

	// Deferred knowledge base lookup for intents without a canned reply.
	if ts.Response == "" && ts.Intent != intent.Greeting && ts.Intent != intent.Goodbye {
		answer := o.queryKnowledgeBase(ctx, ts)
		if answer == "" {
			answer = respond.FallbackText
		}
		// Knowledge base answers go out as-is; the closing suffix and
		// truncation only apply to canned replies from the generate stage.
		ts.Response = answer

		if !ts.ResponseSent && ts.Response != "" {
			o.deliver(ctx, ts)
		}
	}

	o.updateSession(ctx, ts, log)
	return "ok"
}

// runMachine drives the state machine until a terminal state. The loop is
// bounded defensively even though the topology cannot cycle.
func (o *Orchestrator) runMachine(ctx context.Context, ts *model.TurnState) {
	s := stateValidate
	for i := 0; s != stateDone && i < 8; i++ {
		switch s {
		case stateValidate:
			o.validateInput(ts)
		case stateProcess:
			o.processMessage(ctx, ts)
		case stateGenerate:
			ts.Response = o.generator.Generate(ts)
		case stateSend:
			if ts.Response != "" {
				o.deliver(ctx, ts)
			}
		case stateError:
			o.handleError(ctx, ts)
		}
		s = transition(s, ts)
	}
}

// validateInput trims and length-checks the message.
func (o *Orchestrator) validateInput(ts *model.TurnState) {
	trimmed := strings.TrimSpace(ts.Input)

	if trimmed == "" {
		ts.ValidationError = "Empty message received"
		return
	}
	if len(trimmed) > o.maxLength*2 {
		ts.ValidationError = "Message too long"
		return
	}

	ts.Input = trimmed
}

// processMessage asks the service action matcher first and falls back to
// message analysis and intent classification. A successful action
// short-circuits analysis entirely; a failed attempt is recorded but does
// not stop the turn, so the user still gets a contextual reply.
func (o *Orchestrator) processMessage(ctx context.Context, ts *model.TurnState) {
	if o.matcher != nil {
		result := o.matcher.MatchAndExecute(ctx, ts.Input, ts.SenderPhone)

		if result.Matched && result.Success {
			ts.ActionTaken = true
			ts.ActionResult = &result
			ts.Response = result.Message
			ts.Intent = fmt.Sprintf("service_%s", result.Action)
			ts.Confidence = 0.95
			o.logger.Info("service action executed", zap.String("action", string(result.Action)))
			return
		}
		if result.Matched {
			ts.ActionTaken = true
			ts.ActionResult = &result
			ts.ServiceError = result.Message
			o.logger.Warn("service action failed", zap.String("action", string(result.Action)))
		}
	}

	a := intent.Analyze(ts.Input)
	ts.IsGreeting = a.IsGreeting
	ts.IsGoodbye = a.IsGoodbye
	ts.IsQuestion = a.IsQuestion
	ts.Intent = a.Intent
	ts.Confidence = a.Confidence

	metrics.IntentsTotal.WithLabelValues(ts.Intent).Inc()
}

// deliver sends the response. Delivery failure is recorded but never
// aborts the turn.
func (o *Orchestrator) deliver(ctx context.Context, ts *model.TurnState) {
	if ts.SenderPhone == "" {
		return
	}
	if err := o.messenger.SendText(ctx, ts.SenderPhone, ts.Response); err != nil {
		ts.ResponseSent = false
		ts.AddProcessingError("Failed to send response")
		metrics.DeliveryFailures.Inc()
		o.logger.Error("failed to send response", zap.String("recipient", ts.SenderPhone), zap.Error(err))
		return
	}
	ts.ResponseSent = true
}

// handleError is the terminal node for validation failures: build the
// apology and attempt delivery.
func (o *Orchestrator) handleError(ctx context.Context, ts *model.TurnState) {
	errMsg := ts.ValidationError
	if errMsg == "" {
		errMsg = "An error occurred processing your message."
	}

	ts.Response = fmt.Sprintf("I apologize, but %s Please try again with a shorter message.", strings.ToLower(errMsg))
	ts.Kind = model.KindError
	o.deliver(ctx, ts)
}

// queryKnowledgeBase asks the knowledge base with the last few history
// turns as context. Errors and timeouts degrade to a miss.
func (o *Orchestrator) queryKnowledgeBase(ctx context.Context, ts *model.TurnState) string {
	if o.kb == nil {
		return ""
	}

	var convContext string
	if len(ts.History) > 0 {
		recent := ts.History
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		parts := make([]string, len(recent))
		for i, turn := range recent {
			parts[i] = fmt.Sprintf("%s: %s", turn.Role, turn.Content)
		}
		convContext = strings.Join(parts, " ")
	}

	answer, err := o.kb.Query(ctx, ts.Input, convContext)
	if err != nil {
		o.logger.Error("knowledge base query error", zap.Error(err))
		return ""
	}
	return answer
}

// updateSession appends the user message and the assistant reply to the
// session. A failed write is logged and never prevents the reply.
func (o *Orchestrator) updateSession(ctx context.Context, ts *model.TurnState, log *logger.Logger) {
	meta := map[string]string{
		"intent":     ts.Intent,
		"confidence": fmt.Sprintf("%.2f", ts.Confidence),
	}
	if err := o.sessions.AddMessage(ctx, ts.SenderPhone, model.RoleUser, ts.Input, meta); err != nil {
		ts.AddProcessingError(fmt.Sprintf("Session update error: %v", err))
		log.Error("session update error", zap.Error(err))
		return
	}

	if ts.Response != "" {
		replyMeta := map[string]string{
			"intent":             ts.Intent,
			"processing_time_ms": fmt.Sprintf("%d", time.Since(ts.StartedAt).Milliseconds()),
		}
		if err := o.sessions.AddMessage(ctx, ts.SenderPhone, model.RoleAssistant, ts.Response, replyMeta); err != nil {
			ts.AddProcessingError(fmt.Sprintf("Session update error: %v", err))
			log.Error("session update error", zap.Error(err))
			return
		}
	}
	ts.SessionUpdated = true
}

// sendApology delivers a fixed apology outside the (already expired) turn
// context.
func (o *Orchestrator) sendApology(phone, text string) {
	if phone == "" {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.messenger.SendText(sendCtx, phone, text); err != nil {
		metrics.DeliveryFailures.Inc()
		o.logger.Error("failed to send apology", zap.Error(err))
	}
}
