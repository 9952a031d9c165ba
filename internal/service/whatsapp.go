// Package service contains clients for the external collaborators: the
// WhatsApp channel, SMTP email, the calendar API and audio transcription.
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

// WhatsAppClient sends messages through an Evolution API instance.
type WhatsAppClient struct {
	baseURL  string
	apiKey   string
	instance string
	http     *http.Client
	logger   *logger.Logger
}

// NewWhatsAppClient creates an Evolution API client.
func NewWhatsAppClient(baseURL, apiKey, instance string, timeout time.Duration, log *logger.Logger) *WhatsAppClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsAppClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		instance: instance,
		http:     &http.Client{Timeout: timeout},
		logger:   log,
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendPresenceRequest struct {
	Number   string `json:"number"`
	Presence string `json:"presence"`
	Delay    int    `json:"delay"`
}

// SendText delivers a text message to the recipient phone number.
func (c *WhatsAppClient) SendText(ctx context.Context, phone, text string) error {
	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instance)
	if err := c.post(ctx, url, sendTextRequest{Number: phone, Text: text}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendTyping shows a typing indicator to the recipient. Best-effort; the
// caller can ignore the error.
func (c *WhatsAppClient) SendTyping(ctx context.Context, phone string) error {
	url := fmt.Sprintf("%s/chat/sendPresence/%s", c.baseURL, c.instance)
	return c.post(ctx, url, sendPresenceRequest{Number: phone, Presence: "composing", Delay: 1200})
}

func (c *WhatsAppClient) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("evolution API request failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data),
		)
		return fmt.Errorf("evolution API returned status %d", resp.StatusCode)
	}
	return nil
}
