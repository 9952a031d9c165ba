package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunia-labs/whatsapp-assistant/internal/model"
	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
)

type sentEmail struct {
	to      string
	subject string
	body    string
}

type fakeEmail struct {
	sent []sentEmail
	err  error
}

func (f *fakeEmail) Send(ctx context.Context, to, subject, body string, cc, bcc []string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, body: body})
	return nil
}

type createdEvent struct {
	summary   string
	start     time.Time
	end       time.Time
	attendees []string
}

type fakeCalendar struct {
	events []createdEvent
	id     string
	err    error
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, summary, description string, start, end time.Time, attendees []string, location string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.events = append(f.events, createdEvent{summary: summary, start: start, end: end, attendees: attendees})
	return f.id, nil
}

type insertCall struct {
	table  string
	record map[string]any
}

type fakeRecorder struct {
	inserts   []insertCall
	insertErr error
	records   []map[string]any
}

func (f *fakeRecorder) Insert(ctx context.Context, table string, record map[string]any) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserts = append(f.inserts, insertCall{table: table, record: record})
	return nil
}

func (f *fakeRecorder) Select(ctx context.Context, table string, filters map[string]string, limit int) ([]map[string]any, error) {
	return f.records, nil
}

func newTestMatcher(email *fakeEmail, calendar *fakeCalendar, recorder *fakeRecorder) *Matcher {
	m := NewMatcher(email, calendar, recorder, nil, logger.NewNop())
	m.now = func() time.Time {
		return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	}
	return m
}

func TestMatchAndExecuteNoMatch(t *testing.T) {
	m := newTestMatcher(&fakeEmail{}, &fakeCalendar{id: "ev1"}, &fakeRecorder{})

	result := m.MatchAndExecute(context.Background(), "hola como estas", "521555")
	assert.False(t, result.Matched)
	assert.Equal(t, model.ActionNone, result.Action)
}

func TestMatchAndExecuteEmail(t *testing.T) {
	email := &fakeEmail{}
	recorder := &fakeRecorder{}
	m := newTestMatcher(email, &fakeCalendar{id: "ev1"}, recorder)

	result := m.MatchAndExecute(context.Background(), "send email to john@example.com about the project proposal", "521555")

	require.True(t, result.Matched)
	assert.True(t, result.Success)
	assert.Equal(t, model.ActionEmailSent, result.Action)
	assert.Equal(t, "✅ Email enviado exitosamente a john@example.com", result.Message)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "john@example.com", email.sent[0].to)
	assert.Equal(t, "Mensaje de 521555", email.sent[0].subject)
	assert.Contains(t, email.sent[0].body, "project proposal")
	assert.NotContains(t, email.sent[0].body, "john@example.com")

	// Successful actions are recorded for analytics.
	require.Len(t, recorder.inserts, 1)
	assert.Equal(t, "service_actions", recorder.inserts[0].table)
}

func TestMatchAndExecuteEmailSubject(t *testing.T) {
	email := &fakeEmail{}
	m := newTestMatcher(email, &fakeCalendar{id: "ev1"}, &fakeRecorder{})

	m.MatchAndExecute(context.Background(), "send email to ana@lunia.mx subject: propuesta comercial", "521555")

	require.Len(t, email.sent, 1)
	assert.Equal(t, "propuesta comercial", email.sent[0].subject)
}

func TestMatchAndExecuteEmailMissingAddress(t *testing.T) {
	email := &fakeEmail{}
	m := newTestMatcher(email, &fakeCalendar{id: "ev1"}, &fakeRecorder{})

	result := m.MatchAndExecute(context.Background(), "send email to my boss", "521555")

	require.True(t, result.Matched)
	assert.False(t, result.Success)
	assert.Equal(t, model.ActionEmailError, result.Action)
	assert.Equal(t, "No se encontró una dirección de email válida en el mensaje.", result.Message)
	assert.Empty(t, email.sent)
}

func TestMatchAndExecuteEmailSendFailure(t *testing.T) {
	m := newTestMatcher(&fakeEmail{err: errors.New("smtp down")}, &fakeCalendar{id: "ev1"}, &fakeRecorder{})

	result := m.MatchAndExecute(context.Background(), "send email to john@example.com about the report", "521555")

	require.True(t, result.Matched)
	assert.False(t, result.Success)
	assert.Equal(t, model.ActionEmailError, result.Action)
}

func TestMatchAndExecuteCalendar(t *testing.T) {
	calendar := &fakeCalendar{id: "ev42"}
	recorder := &fakeRecorder{}
	m := newTestMatcher(&fakeEmail{}, calendar, recorder)

	result := m.MatchAndExecute(context.Background(), "schedule meeting with the team at 3pm", "521555")

	require.True(t, result.Matched)
	assert.True(t, result.Success)
	assert.Equal(t, model.ActionCalendarCreated, result.Action)
	assert.Contains(t, result.Message, "📅 Evento creado:")

	require.Len(t, calendar.events, 1)
	ev := calendar.events[0]
	assert.Equal(t, 15, ev.start.Hour())
	assert.Equal(t, ev.start.Add(time.Hour), ev.end)
	require.NotNil(t, result.Details)
	assert.Equal(t, "ev42", result.Details.EventID)

	// The analytics record carries the requesting user so the per-user
	// action history picks calendar events up.
	require.Len(t, recorder.inserts, 1)
	assert.Equal(t, "service_actions", recorder.inserts[0].table)
	assert.Equal(t, "521555", recorder.inserts[0].record["user_id"])
}

func TestMatchAndExecuteCalendarDefaultsToNextHour(t *testing.T) {
	calendar := &fakeCalendar{id: "ev42"}
	m := newTestMatcher(&fakeEmail{}, calendar, &fakeRecorder{})

	result := m.MatchAndExecute(context.Background(), "schedule meeting with marketing", "521555")

	require.True(t, result.Success)
	require.Len(t, calendar.events, 1)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), calendar.events[0].start)
}

func TestMatchAndExecuteCalendarFailure(t *testing.T) {
	m := newTestMatcher(&fakeEmail{}, &fakeCalendar{err: errors.New("api down")}, &fakeRecorder{})

	result := m.MatchAndExecute(context.Background(), "schedule meeting with the team", "521555")

	require.True(t, result.Matched)
	assert.False(t, result.Success)
	assert.Equal(t, model.ActionCalendarError, result.Action)
	assert.Equal(t, "❌ Error al crear el evento en el calendario.", result.Message)
}

func TestMatchAndExecuteCategoryOrder(t *testing.T) {
	email := &fakeEmail{}
	calendar := &fakeCalendar{id: "ev1"}
	m := newTestMatcher(email, calendar, &fakeRecorder{})

	// Email and calendar patterns both fire; email wins by category order.
	result := m.MatchAndExecute(context.Background(), "send email to a@b.com schedule meeting today", "521555")

	assert.Equal(t, model.ActionEmailSent, result.Action)
	assert.Len(t, email.sent, 1)
	assert.Empty(t, calendar.events)
}

func TestMatchAndExecuteReminder(t *testing.T) {
	calendar := &fakeCalendar{id: "ev7"}
	recorder := &fakeRecorder{}
	m := newTestMatcher(&fakeEmail{}, calendar, recorder)

	result := m.MatchAndExecute(context.Background(), "remind me to call the client in 30 minutes", "521555")

	require.True(t, result.Success)
	assert.Equal(t, model.ActionReminderCreated, result.Action)
	assert.Contains(t, result.Message, "⏰ Recordatorio creado:")

	require.Len(t, calendar.events, 1)
	assert.Contains(t, calendar.events[0].summary, "🔔 Recordatorio:")
	assert.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), calendar.events[0].start)
	assert.Equal(t, 15*time.Minute, calendar.events[0].end.Sub(calendar.events[0].start))

	require.Len(t, recorder.inserts, 1)
	assert.Equal(t, "reminders", recorder.inserts[0].table)
}

func TestMatchAndExecuteReminderInsertFailure(t *testing.T) {
	m := newTestMatcher(&fakeEmail{}, &fakeCalendar{id: "ev7"}, &fakeRecorder{insertErr: errors.New("db down")})

	result := m.MatchAndExecute(context.Background(), "remind me to call the client", "521555")

	require.True(t, result.Matched)
	assert.False(t, result.Success)
	assert.Equal(t, model.ActionReminderError, result.Action)
}

func TestMatchAndExecuteDataQuery(t *testing.T) {
	recorder := &fakeRecorder{}
	m := newTestMatcher(&fakeEmail{}, &fakeCalendar{id: "ev1"}, recorder)

	result := m.MatchAndExecute(context.Background(), "muestra mis reportes recientes", "521555")

	require.True(t, result.Success)
	assert.Equal(t, model.ActionDataQueryLogged, result.Action)
	assert.Equal(t, "📊 Tu consulta ha sido registrada para procesamiento.", result.Message)

	require.Len(t, recorder.inserts, 1)
	assert.Equal(t, "user_queries", recorder.inserts[0].table)
}

func TestMatchAndExecuteEmailUnavailable(t *testing.T) {
	m := NewMatcher(nil, &fakeCalendar{id: "ev1"}, &fakeRecorder{}, nil, logger.NewNop())

	result := m.MatchAndExecute(context.Background(), "send email to john@example.com about the report", "521555")

	require.True(t, result.Matched)
	assert.False(t, result.Success)
	assert.Equal(t, model.ActionEmailError, result.Action)
	assert.Contains(t, result.Message, "no está disponible")
}

func TestUserActionHistory(t *testing.T) {
	recorder := &fakeRecorder{records: []map[string]any{
		{"action_type": "email_sent"},
		{"action_type": "email_sent"},
		{"action_type": "calendar_event_created"},
	}}
	m := newTestMatcher(&fakeEmail{}, &fakeCalendar{}, recorder)

	history, err := m.UserActionHistory(context.Background(), "521555", 10)
	require.NoError(t, err)
	assert.Len(t, history, 3)

	stats, err := m.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats["total_actions"])
	counts := stats["action_types"].(map[string]int)
	assert.Equal(t, 2, counts["email_sent"])
	assert.Equal(t, 1, counts["calendar_event_created"])
}
