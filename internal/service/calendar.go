package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
)

// CalendarClient creates events through a calendar REST API.
type CalendarClient struct {
	baseURL    string
	calendarID string
	token      string
	http       *http.Client
	logger     *logger.Logger
}

// NewCalendarClient creates a calendar API client.
func NewCalendarClient(baseURL, calendarID, token string, log *logger.Logger) *CalendarClient {
	return &CalendarClient{
		baseURL:    baseURL,
		calendarID: calendarID,
		token:      token,
		http:       &http.Client{Timeout: 15 * time.Second},
		logger:     log,
	}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
}

type eventAttendee struct {
	Email string `json:"email"`
}

type eventRequest struct {
	Summary     string          `json:"summary"`
	Description string          `json:"description,omitempty"`
	Start       eventTime       `json:"start"`
	End         eventTime       `json:"end"`
	Attendees   []eventAttendee `json:"attendees,omitempty"`
	Location    string          `json:"location,omitempty"`
}

type eventResponse struct {
	ID string `json:"id"`
}

// CreateEvent creates a calendar event and returns its ID. An empty ID with
// a nil error means the API accepted the request but created nothing.
func (c *CalendarClient) CreateEvent(ctx context.Context, summary, description string, start, end time.Time, attendees []string, location string) (string, error) {
	req := eventRequest{
		Summary:     summary,
		Description: description,
		Start:       eventTime{DateTime: start.Format(time.RFC3339)},
		End:         eventTime{DateTime: end.Format(time.RFC3339)},
		Location:    location,
	}
	for _, email := range attendees {
		req.Attendees = append(req.Attendees, eventAttendee{Email: email})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	url := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, c.calendarID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("calendar API request failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data),
		)
		return "", fmt.Errorf("calendar API returned status %d", resp.StatusCode)
	}

	var event eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return "", fmt.Errorf("failed to decode event response: %w", err)
	}

	c.logger.Info("calendar event created", zap.String("event_id", event.ID))
	return event.ID, nil
}
