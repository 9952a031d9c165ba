package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
)

// PostgRESTStore talks to a Supabase/PostgREST endpoint.
type PostgRESTStore struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

// NewPostgRESTStore creates a PostgREST-backed store.
func NewPostgRESTStore(baseURL, apiKey string, log *logger.Logger) (*PostgRESTStore, error) {
	if baseURL == "" || apiKey == "" {
		return nil, errors.New("incomplete store configuration")
	}
	return &PostgRESTStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  log,
	}, nil
}

// Insert writes one record.
func (s *PostgRESTStore) Insert(ctx context.Context, table string, record map[string]any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tableURL(table, nil, 0), bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	req.Header.Set("Prefer", "return=minimal")

	return s.do(req, nil)
}

// Select returns records matching all filters.
func (s *PostgRESTStore) Select(ctx context.Context, table string, filters map[string]string, limit int) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tableURL(table, filters, limit), nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

	var records []map[string]any
	if err := s.do(req, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Delete removes records matching all filters. Unfiltered deletes are
// refused.
func (s *PostgRESTStore) Delete(ctx context.Context, table string, filters map[string]string) error {
	if len(filters) == 0 {
		return errors.New("refusing unfiltered delete")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.tableURL(table, filters, 0), nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)

	return s.do(req, nil)
}

func (s *PostgRESTStore) tableURL(table string, filters map[string]string, limit int) string {
	q := url.Values{}
	for col, val := range filters {
		q.Set(col, "eq."+val)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	u := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, table)
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (s *PostgRESTStore) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func (s *PostgRESTStore) do(req *http.Request, out any) error {
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.Error("store request failed",
			zap.String("method", req.Method),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data),
		)
		return fmt.Errorf("store returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode store response: %w", err)
		}
	}
	return nil
}
