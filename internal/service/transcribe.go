package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
)

// Transcriber converts audio messages to text via the Whisper API.
type Transcriber struct {
	client    *openai.Client
	http      *http.Client
	maxSizeMB int
	logger    *logger.Logger
}

// NewTranscriber creates a Whisper-backed audio transcriber.
func NewTranscriber(apiKey string, maxSizeMB int, log *logger.Logger) (*Transcriber, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 25
	}
	return &Transcriber{
		client:    openai.NewClient(apiKey),
		http:      &http.Client{Timeout: 60 * time.Second},
		maxSizeMB: maxSizeMB,
		logger:    log,
	}, nil
}

// Transcribe downloads the audio at the given URL and returns its
// transcription. An empty result with a nil error means the audio held no
// recognizable speech.
func (t *Transcriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("audio download returned status %d", resp.StatusCode)
	}

	maxBytes := int64(t.maxSizeMB) * 1024 * 1024
	if resp.ContentLength > maxBytes {
		return "", fmt.Errorf("audio exceeds %dMB limit", t.maxSizeMB)
	}

	tmp, err := os.CreateTemp("", "audio-*.ogg")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	written, err := io.Copy(tmp, io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to save audio: %w", err)
	}
	if written > maxBytes {
		return "", fmt.Errorf("audio exceeds %dMB limit", t.maxSizeMB)
	}

	transcription, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: tmp.Name(),
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	t.logger.Debug("audio transcribed", zap.Int64("bytes", written))
	return transcription.Text, nil
}
