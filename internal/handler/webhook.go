// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/internal/agent"
	"github.com/lunia-labs/whatsapp-assistant/internal/middleware"
	"github.com/lunia-labs/whatsapp-assistant/internal/model"
	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
)

// Sentinels replace audio content when speech to text is unavailable,
// fails, or comes back blank. Downstream processing turns them into the
// audio apology instead of a knowledge base query.
const (
	transcriptionFailedSentinel      = "[Audio transcription failed]"
	transcriptionEmptySentinel       = "[Transcription resulted in empty text]"
	transcriptionUnavailableSentinel = "[OpenAI client not available for transcription]"
)

// Transcriber converts an audio attachment into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// webhookEnvelope is the Evolution API event payload.
type webhookEnvelope struct {
	Event    string      `json:"event"`
	Instance string      `json:"instance"`
	Data     webhookData `json:"data"`
}

type webhookData struct {
	Key struct {
		RemoteJid string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	PushName    string `json:"pushName"`
	MessageType string `json:"messageType"`
	Message     struct {
		Conversation        string `json:"conversation"`
		ExtendedTextMessage *struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage"`
		AudioMessage *struct {
			URL string `json:"url"`
		} `json:"audioMessage"`
		ImageMessage *struct {
			URL     string `json:"url"`
			Caption string `json:"caption"`
		} `json:"imageMessage"`
		DocumentMessage *struct {
			URL     string `json:"url"`
			Caption string `json:"caption"`
		} `json:"documentMessage"`
	} `json:"message"`
}

// WebhookHandler receives Evolution API message events and feeds them to
// the orchestrator.
type WebhookHandler struct {
	orchestrator *agent.Orchestrator
	transcriber  Transcriber
	secret       string
	logger       *logger.Logger
}

// NewWebhookHandler creates a new webhook handler. The transcriber may be
// nil when speech to text is not configured; the secret may be empty to
// disable verification.
func NewWebhookHandler(orch *agent.Orchestrator, transcriber Transcriber, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		orchestrator: orch,
		transcriber:  transcriber,
		secret:       secret,
		logger:       log,
	}
}

// Receive handles POST /webhook/whatsapp
//
// The webhook acknowledges immediately and processes the turn in the
// background; Evolution API retries on non-2xx and a slow turn must not
// trigger duplicate deliveries.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		provided := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid webhook secret")
			return
		}
	}

	var env webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, ok := h.toInbound(r.Context(), &env)
	if !ok {
		// Status events, self-sent messages and unsupported types are
		// acknowledged without processing.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	// Oversized or malformed payloads never reach the orchestrator. The
	// length ceiling here is far above the conversational limit; friendly
	// too-long replies stay the orchestrator's job.
	if err := middleware.ValidateMessageContent(msg.Content); err != nil {
		h.logger.Warn("rejected webhook message content", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		h.orchestrator.ProcessTurn(ctx, msg)
	}()

	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// toInbound extracts an inbound message from the webhook envelope. Audio
// attachments are transcribed inline so the orchestrator only ever sees
// text.
func (h *WebhookHandler) toInbound(ctx context.Context, env *webhookEnvelope) (model.InboundMessage, bool) {
	if env.Event != "" && env.Event != "messages.upsert" {
		return model.InboundMessage{}, false
	}
	if env.Data.Key.FromMe {
		return model.InboundMessage{}, false
	}

	sender := senderPhone(env.Data.Key.RemoteJid)
	if sender == "" {
		return model.InboundMessage{}, false
	}

	msg := model.InboundMessage{
		Sender:    sender,
		Kind:      model.KindText,
		Timestamp: time.Now(),
	}

	switch {
	case env.Data.Message.Conversation != "":
		msg.Content = env.Data.Message.Conversation
	case env.Data.Message.ExtendedTextMessage != nil:
		msg.Content = env.Data.Message.ExtendedTextMessage.Text
	case env.Data.Message.AudioMessage != nil:
		msg.Kind = model.KindAudio
		msg.MediaURL = env.Data.Message.AudioMessage.URL
		msg.Content = h.transcribe(ctx, msg.MediaURL)
	case env.Data.Message.ImageMessage != nil:
		msg.Kind = model.KindImage
		msg.MediaURL = env.Data.Message.ImageMessage.URL
		msg.Content = env.Data.Message.ImageMessage.Caption
	case env.Data.Message.DocumentMessage != nil:
		msg.Kind = model.KindDocument
		msg.MediaURL = env.Data.Message.DocumentMessage.URL
		msg.Content = env.Data.Message.DocumentMessage.Caption
	default:
		return model.InboundMessage{}, false
	}

	if msg.Content == "" {
		return model.InboundMessage{}, false
	}
	return msg, true
}

func (h *WebhookHandler) transcribe(ctx context.Context, audioURL string) string {
	if h.transcriber == nil {
		return transcriptionUnavailableSentinel
	}
	if audioURL == "" {
		return transcriptionFailedSentinel
	}

	text, err := h.transcriber.Transcribe(ctx, audioURL)
	if err != nil {
		h.logger.Error("audio transcription failed", zap.Error(err))
		return transcriptionFailedSentinel
	}
	if strings.TrimSpace(text) == "" {
		return transcriptionEmptySentinel
	}
	return text
}

// senderPhone strips the JID domain, e.g. "5215512345678@s.whatsapp.net"
// becomes "5215512345678".
func senderPhone(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}
