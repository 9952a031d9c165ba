package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunia-labs/whatsapp-assistant/internal/model"
	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	return f.text, f.err
}

func newWebhook(secret string, transcriber Transcriber) *WebhookHandler {
	return NewWebhookHandler(nil, transcriber, secret, logger.NewNop())
}

func postWebhook(h *WebhookHandler, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(body))
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	h.Receive(rec, req)
	return rec
}

func TestReceiveRejectsBadSecret(t *testing.T) {
	h := newWebhook("s3cret", nil)

	rec := postWebhook(h, `{}`, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postWebhook(h, `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReceiveRejectsInvalidBody(t *testing.T) {
	h := newWebhook("", nil)

	rec := postWebhook(h, `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiveIgnoresSelfAndStatusEvents(t *testing.T) {
	h := newWebhook("", nil)

	// Self-sent message.
	rec := postWebhook(h, `{"event":"messages.upsert","data":{"key":{"remoteJid":"521@s.whatsapp.net","fromMe":true},"message":{"conversation":"hola"}}}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")

	// Non-message event.
	rec = postWebhook(h, `{"event":"connection.update","data":{}}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")

	// Unsupported message type.
	rec = postWebhook(h, `{"event":"messages.upsert","data":{"key":{"remoteJid":"521@s.whatsapp.net"},"message":{}}}`, "")
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestReceiveRejectsOversizedContent(t *testing.T) {
	h := newWebhook("", nil)

	big := strings.Repeat("a", 100001)
	body := `{"event":"messages.upsert","data":{"key":{"remoteJid":"5215512345678@s.whatsapp.net"},"message":{"conversation":"` + big + `"}}}`
	rec := postWebhook(h, body, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestToInboundText(t *testing.T) {
	h := newWebhook("", nil)

	env := &webhookEnvelope{Event: "messages.upsert"}
	env.Data.Key.RemoteJid = "5215512345678@s.whatsapp.net"
	env.Data.Message.Conversation = "hola"

	msg, ok := h.toInbound(context.Background(), env)
	require.True(t, ok)
	assert.Equal(t, "5215512345678", msg.Sender)
	assert.Equal(t, "hola", msg.Content)
	assert.Equal(t, model.KindText, msg.Kind)
}

func TestToInboundExtendedText(t *testing.T) {
	h := newWebhook("", nil)

	env := &webhookEnvelope{Event: "messages.upsert"}
	env.Data.Key.RemoteJid = "5215512345678@s.whatsapp.net"
	env.Data.Message.ExtendedTextMessage = &struct {
		Text string `json:"text"`
	}{Text: "hola con link"}

	msg, ok := h.toInbound(context.Background(), env)
	require.True(t, ok)
	assert.Equal(t, "hola con link", msg.Content)
}

func TestToInboundAudio(t *testing.T) {
	h := newWebhook("", &fakeTranscriber{text: "mensaje transcrito"})

	env := &webhookEnvelope{Event: "messages.upsert"}
	env.Data.Key.RemoteJid = "5215512345678@s.whatsapp.net"
	env.Data.Message.AudioMessage = &struct {
		URL string `json:"url"`
	}{URL: "https://cdn.example.com/audio.ogg"}

	msg, ok := h.toInbound(context.Background(), env)
	require.True(t, ok)
	assert.Equal(t, model.KindAudio, msg.Kind)
	assert.Equal(t, "mensaje transcrito", msg.Content)
}

func TestToInboundAudioFailureSentinel(t *testing.T) {
	env := &webhookEnvelope{Event: "messages.upsert"}
	env.Data.Key.RemoteJid = "5215512345678@s.whatsapp.net"
	env.Data.Message.AudioMessage = &struct {
		URL string `json:"url"`
	}{URL: "https://cdn.example.com/audio.ogg"}

	// Transcription error.
	h := newWebhook("", &fakeTranscriber{err: errors.New("whisper down")})
	msg, ok := h.toInbound(context.Background(), env)
	require.True(t, ok)
	assert.Equal(t, "[Audio transcription failed]", msg.Content)

	// No transcriber configured.
	h = newWebhook("", nil)
	msg, ok = h.toInbound(context.Background(), env)
	require.True(t, ok)
	assert.Equal(t, "[OpenAI client not available for transcription]", msg.Content)

	// Empty transcription gets its own sentinel.
	h = newWebhook("", &fakeTranscriber{text: "   "})
	msg, ok = h.toInbound(context.Background(), env)
	require.True(t, ok)
	assert.Equal(t, "[Transcription resulted in empty text]", msg.Content)
}

func TestToInboundImageCaption(t *testing.T) {
	h := newWebhook("", nil)

	env := &webhookEnvelope{Event: "messages.upsert"}
	env.Data.Key.RemoteJid = "5215512345678@s.whatsapp.net"
	env.Data.Message.ImageMessage = &struct {
		URL     string `json:"url"`
		Caption string `json:"caption"`
	}{URL: "https://cdn.example.com/foto.jpg", Caption: "cuánto cuesta esto?"}

	msg, ok := h.toInbound(context.Background(), env)
	require.True(t, ok)
	assert.Equal(t, model.KindImage, msg.Kind)
	assert.Equal(t, "cuánto cuesta esto?", msg.Content)

	// A captionless image carries no text to act on.
	env.Data.Message.ImageMessage.Caption = ""
	_, ok = h.toInbound(context.Background(), env)
	assert.False(t, ok)
}

func TestToInboundDocumentCaption(t *testing.T) {
	h := newWebhook("", nil)

	env := &webhookEnvelope{Event: "messages.upsert"}
	env.Data.Key.RemoteJid = "5215512345678@s.whatsapp.net"
	env.Data.Message.DocumentMessage = &struct {
		URL     string `json:"url"`
		Caption string `json:"caption"`
	}{URL: "https://cdn.example.com/propuesta.pdf", Caption: "revisa este documento"}

	msg, ok := h.toInbound(context.Background(), env)
	require.True(t, ok)
	assert.Equal(t, model.KindDocument, msg.Kind)
	assert.Equal(t, "revisa este documento", msg.Content)
}

func TestSenderPhone(t *testing.T) {
	assert.Equal(t, "5215512345678", senderPhone("5215512345678@s.whatsapp.net"))
	assert.Equal(t, "5215512345678", senderPhone("5215512345678"))
}
