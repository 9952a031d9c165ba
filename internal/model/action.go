package model

import (
	"time"
)

// ActionKind tags the outcome of a service action attempt.
type ActionKind string

const (
	ActionNone            ActionKind = "none"
	ActionEmailSent       ActionKind = "email_sent"
	ActionEmailError      ActionKind = "email_error"
	ActionCalendarCreated ActionKind = "calendar_event_created"
	ActionCalendarError   ActionKind = "calendar_error"
	ActionReminderCreated ActionKind = "reminder_created"
	ActionReminderError   ActionKind = "reminder_error"
	ActionDataQueryLogged ActionKind = "data_query_logged"
	ActionDataError       ActionKind = "data_error"
)

// ActionDetails carries structured data about an executed action. Fields
// are populated per kind; unused fields stay zero.
type ActionDetails struct {
	Recipient    string     `json:"recipient,omitempty"`
	Subject      string     `json:"subject,omitempty"`
	BodyLength   int        `json:"body_length,omitempty"`
	EventID      string     `json:"event_id,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	ReminderText string     `json:"reminder_text,omitempty"`
	Query        string     `json:"query,omitempty"`
}

// ActionResult is the outcome of the service action matcher for one message.
// Matched reports whether any category's pattern fired at all; Success
// reports whether the resulting action completed.
type ActionResult struct {
	Action  ActionKind     `json:"action"`
	Matched bool           `json:"matched"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details *ActionDetails `json:"details,omitempty"`
}

// NoAction is the result returned when no category matched the message.
func NoAction() ActionResult {
	return ActionResult{
		Action:  ActionNone,
		Matched: false,
		Success: false,
		Message: "No service action detected",
	}
}
