// Package action detects service intents in message text and executes the
// matching external action (email, calendar event, reminder, data query).
package action

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/internal/model"
	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
	"github.com/lunia-labs/whatsapp-assistant/pkg/metrics"
)

// EmailSender sends a plain-text email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string, cc, bcc []string) error
}

// Calendar creates calendar events and returns the created event ID. An
// empty ID means the event was not created.
type Calendar interface {
	CreateEvent(ctx context.Context, summary, description string, start, end time.Time, attendees []string, location string) (string, error)
}

// Recorder persists structured records for analytics, reminders and
// deferred queries.
type Recorder interface {
	Insert(ctx context.Context, table string, record map[string]any) error
	Select(ctx context.Context, table string, filters map[string]string, limit int) ([]map[string]any, error)
}

// EventSink receives action events for the analytics stream. Publishing is
// best-effort.
type EventSink interface {
	PublishAction(ctx context.Context, userID string, result model.ActionResult)
}

// Category pattern tables. Categories are tried in declaration order and
// the first category whose pattern fires wins; later categories are not
// evaluated.
var (
	emailPatterns = compileAll(
		`send\s+email\s+to\s+(\S+)`,
		`email\s+(\S+)\s+about\s+(.+)`,
		`enviar\s+correo\s+a\s+(\S+)`,
		`mandar\s+email\s+a\s+(\S+)`,
	)

	calendarPatterns = compileAll(
		`schedule\s+meeting\s+(.+)`,
		`create\s+appointment\s+(.+)`,
		`book\s+(.+)\s+on\s+(.+)`,
		`programar\s+cita\s+(.+)`,
		`agendar\s+(.+)\s+para\s+(.+)`,
	)

	reminderPatterns = compileAll(
		`remind\s+me\s+(.+)`,
		`set\s+reminder\s+(.+)`,
		`recordarme\s+(.+)`,
		`crear\s+recordatorio\s+(.+)`,
	)

	dataKeywords = []string{
		"show me", "get", "find", "search", "list", "query",
		"muestra", "busca", "encuentra", "lista", "consulta",
	}

	emailAddrPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)

	subjectPatterns = compileAll(
		`(?i)subject[:\s]+(.+)`,
		`(?i)asunto[:\s]+(.+)`,
		`(?i)titulo[:\s]+(.+)`,
	)

	summaryPattern = regexp.MustCompile(`(?i)(schedule|create|book|programar|agendar)\s+([^0-9]+)`)

	emailTriggerPatterns = compileAll(
		`(?i)send\s+email\s+to`,
		`(?i)enviar\s+correo\s+a`,
	)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Matcher scans message text against per-domain pattern sets and executes
// the matching service action.
type Matcher struct {
	email    EmailSender
	calendar Calendar
	store    Recorder
	events   EventSink
	logger   *logger.Logger

	// now is overridable for tests.
	now func() time.Time
}

// NewMatcher creates a service action matcher. The events sink may be nil.
func NewMatcher(email EmailSender, calendar Calendar, store Recorder, events EventSink, log *logger.Logger) *Matcher {
	return &Matcher{
		email:    email,
		calendar: calendar,
		store:    store,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// MatchAndExecute tries the service categories in fixed order against the
// message and executes the first match. Failures inside a category are
// converted to a typed failure result, never propagated.
func (m *Matcher) MatchAndExecute(ctx context.Context, text, userID string) model.ActionResult {
	lower := strings.ToLower(text)

	if matchesAny(lower, emailPatterns) {
		return m.report(ctx, userID, m.executeEmail(ctx, text, userID))
	}
	if matchesAny(lower, calendarPatterns) {
		return m.report(ctx, userID, m.executeCalendar(ctx, text, userID))
	}
	if matchesAny(lower, reminderPatterns) {
		return m.report(ctx, userID, m.executeReminder(ctx, lower, text, userID))
	}
	if containsAnyKeyword(lower, dataKeywords) {
		return m.report(ctx, userID, m.executeDataQuery(ctx, text, userID))
	}

	return model.NoAction()
}

func (m *Matcher) report(ctx context.Context, userID string, result model.ActionResult) model.ActionResult {
	metrics.RecordServiceAction(string(result.Action), result.Success)
	if m.events != nil {
		m.events.PublishAction(ctx, userID, result)
	}
	return result
}

func (m *Matcher) executeEmail(ctx context.Context, text, userID string) model.ActionResult {
	if m.email == nil {
		return model.ActionResult{
			Action:  model.ActionEmailError,
			Matched: true,
			Message: "❌ El servicio de email no está disponible en este momento.",
		}
	}

	addr := emailAddrPattern.FindString(text)
	if addr == "" {
		return model.ActionResult{
			Action:  model.ActionEmailError,
			Matched: true,
			Message: "No se encontró una dirección de email válida en el mensaje.",
		}
	}

	subject := extractEmailSubject(text)
	if subject == "" {
		subject = fmt.Sprintf("Mensaje de %s", userID)
	}
	body := extractEmailBody(text, addr)

	if err := m.email.Send(ctx, addr, subject, body, nil, nil); err != nil {
		m.logger.Error("email send failed", zap.String("recipient", addr), zap.Error(err))
		return model.ActionResult{
			Action:  model.ActionEmailError,
			Matched: true,
			Message: "❌ Error al enviar el email. Verifica la configuración.",
		}
	}

	m.logAction(ctx, userID, model.ActionEmailSent, map[string]any{
		"recipient":   addr,
		"subject":     subject,
		"body_length": len(body),
	})

	return model.ActionResult{
		Action:  model.ActionEmailSent,
		Matched: true,
		Success: true,
		Message: fmt.Sprintf("✅ Email enviado exitosamente a %s", addr),
		Details: &model.ActionDetails{
			Recipient:  addr,
			Subject:    subject,
			BodyLength: len(body),
		},
	}
}

func (m *Matcher) executeCalendar(ctx context.Context, text, userID string) model.ActionResult {
	if m.calendar == nil {
		return model.ActionResult{
			Action:  model.ActionCalendarError,
			Matched: true,
			Message: "❌ El servicio de calendario no está disponible en este momento.",
		}
	}

	summary := extractEventSummary(text)
	start := extractDateTime(text, m.now())
	if start.IsZero() {
		start = nextFullHour(m.now())
	}
	end := start.Add(time.Hour)
	attendees := emailAddrPattern.FindAllString(text, -1)

	eventID, err := m.calendar.CreateEvent(ctx, summary, "", start, end, attendees, "")
	if err != nil || eventID == "" {
		if err != nil {
			m.logger.Error("calendar event creation failed", zap.Error(err))
		}
		return model.ActionResult{
			Action:  model.ActionCalendarError,
			Matched: true,
			Message: "❌ Error al crear el evento en el calendario.",
		}
	}

	m.logAction(ctx, userID, model.ActionCalendarCreated, map[string]any{
		"event_id":   eventID,
		"summary":    summary,
		"start_time": start.Format(time.RFC3339),
	})

	return model.ActionResult{
		Action:  model.ActionCalendarCreated,
		Matched: true,
		Success: true,
		Message: fmt.Sprintf("📅 Evento creado: %s para %s", summary, start.Format("2006-01-02 15:04")),
		Details: &model.ActionDetails{
			EventID:   eventID,
			Summary:   summary,
			StartTime: &start,
		},
	}
}

func (m *Matcher) executeReminder(ctx context.Context, lower, text, userID string) model.ActionResult {
	if m.calendar == nil {
		return model.ActionResult{
			Action:  model.ActionReminderError,
			Matched: true,
			Message: "❌ Error al crear el recordatorio.",
		}
	}

	var reminderText string
	for _, p := range reminderPatterns {
		if sub := p.FindStringSubmatch(lower); sub != nil {
			reminderText = strings.TrimSpace(sub[1])
			break
		}
	}

	when := extractReminderTime(text, m.now())
	if when.IsZero() {
		when = m.now().Add(time.Hour)
	}

	eventID, err := m.calendar.CreateEvent(ctx,
		fmt.Sprintf("🔔 Recordatorio: %s", reminderText),
		fmt.Sprintf("Recordatorio solicitado por usuario %s", userID),
		when, when.Add(15*time.Minute), nil, "")
	if err != nil || eventID == "" {
		if err != nil {
			m.logger.Error("reminder event creation failed", zap.Error(err))
		}
		return model.ActionResult{
			Action:  model.ActionReminderError,
			Matched: true,
			Message: "❌ Error al crear el recordatorio.",
		}
	}

	// The durable reminder record is part of the action, not an analytics
	// side effect: a failed write fails the reminder.
	err = m.store.Insert(ctx, "reminders", map[string]any{
		"user_id":       userID,
		"reminder_text": reminderText,
		"reminder_time": when.Format(time.RFC3339),
		"event_id":      eventID,
		"status":        "active",
		"created_at":    m.now().Format(time.RFC3339),
	})
	if err != nil {
		m.logger.Error("reminder record insert failed", zap.Error(err))
		return model.ActionResult{
			Action:  model.ActionReminderError,
			Matched: true,
			Message: "❌ Error al crear el recordatorio.",
		}
	}

	return model.ActionResult{
		Action:  model.ActionReminderCreated,
		Matched: true,
		Success: true,
		Message: fmt.Sprintf("⏰ Recordatorio creado: %s para %s", reminderText, when.Format("2006-01-02 15:04")),
		Details: &model.ActionDetails{
			EventID:      eventID,
			ReminderText: reminderText,
			StartTime:    &when,
		},
	}
}

func (m *Matcher) executeDataQuery(ctx context.Context, text, userID string) model.ActionResult {
	err := m.store.Insert(ctx, "user_queries", map[string]any{
		"user_id":    userID,
		"query":      text,
		"query_type": "data_request",
		"timestamp":  m.now().Format(time.RFC3339),
		"processed":  false,
	})
	if err != nil {
		m.logger.Error("data query insert failed", zap.Error(err))
		return model.ActionResult{
			Action:  model.ActionDataError,
			Matched: true,
			Message: "❌ Error procesando la consulta.",
		}
	}

	return model.ActionResult{
		Action:  model.ActionDataQueryLogged,
		Matched: true,
		Success: true,
		Message: "📊 Tu consulta ha sido registrada para procesamiento.",
		Details: &model.ActionDetails{
			Query: text,
		},
	}
}

// logAction writes a service_actions analytics record. Failures are logged
// and swallowed; analytics must not fail the action.
func (m *Matcher) logAction(ctx context.Context, userID string, kind model.ActionKind, details map[string]any) {
	err := m.store.Insert(ctx, "service_actions", map[string]any{
		"user_id":     userID,
		"action_type": string(kind),
		"details":     details,
		"timestamp":   m.now().Format(time.RFC3339),
		"success":     true,
	})
	if err != nil {
		m.logger.Error("failed to log service action", zap.String("action", string(kind)), zap.Error(err))
	}
}

// UserActionHistory returns a user's recent service action records.
func (m *Matcher) UserActionHistory(ctx context.Context, userID string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 10
	}
	records, err := m.store.Select(ctx, "service_actions", map[string]string{"user_id": userID}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get action history: %w", err)
	}
	return records, nil
}

// Statistics aggregates service action counts by type.
func (m *Matcher) Statistics(ctx context.Context) (map[string]any, error) {
	actions, err := m.store.Select(ctx, "service_actions", nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get service statistics: %w", err)
	}

	counts := make(map[string]int)
	for _, rec := range actions {
		kind, _ := rec["action_type"].(string)
		if kind == "" {
			kind = "unknown"
		}
		counts[kind]++
	}

	return map[string]any{
		"total_actions": len(actions),
		"action_types":  counts,
		"last_updated":  m.now().Format(time.RFC3339),
	}, nil
}

func extractEmailSubject(text string) string {
	for _, p := range subjectPatterns {
		if sub := p.FindStringSubmatch(text); sub != nil {
			return strings.TrimSpace(sub[1])
		}
	}
	return ""
}

func extractEmailBody(text, recipient string) string {
	body := emailAddrPattern.ReplaceAllString(text, "")
	for _, p := range emailTriggerPatterns {
		body = p.ReplaceAllString(body, "")
	}
	body = strings.TrimSpace(body)

	if len(body) < 10 {
		return fmt.Sprintf("Mensaje enviado desde el asistente WhatsApp de Lunia Soluciones.\n\nContenido: %s", text)
	}
	return body
}

func extractEventSummary(text string) string {
	if sub := summaryPattern.FindStringSubmatch(text); sub != nil {
		if s := strings.TrimSpace(sub[2]); s != "" {
			return s
		}
	}
	return "Reunión programada desde WhatsApp"
}

func matchesAny(lower string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

func containsAnyKeyword(lower string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
