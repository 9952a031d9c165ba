package kb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
)

type fakeAnswerer struct {
	answer  string
	err     error
	calls   int
	prompts []string
}

func (f *fakeAnswerer) Answer(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeAnswerer) Name() string { return "fake" }

func TestQueryEmptyQuestion(t *testing.T) {
	answerer := &fakeAnswerer{answer: "never"}
	s := NewService(answerer, 8, time.Second, logger.NewNop())

	answer, err := s.Query(context.Background(), "   ", "")
	require.NoError(t, err)
	assert.Equal(t, "", answer)
	assert.Zero(t, answerer.calls)
}

func TestQueryAnswerAndCache(t *testing.T) {
	answerer := &fakeAnswerer{answer: "Ofrecemos consultoría en IA."}
	s := NewService(answerer, 8, time.Second, logger.NewNop())

	answer, err := s.Query(context.Background(), "¿qué servicios ofrecen?", "")
	require.NoError(t, err)
	assert.Equal(t, "Ofrecemos consultoría en IA.", answer)

	// Second identical query is served from cache.
	answer, err = s.Query(context.Background(), "¿qué servicios ofrecen?", "")
	require.NoError(t, err)
	assert.Equal(t, "Ofrecemos consultoría en IA.", answer)
	assert.Equal(t, 1, answerer.calls)
	assert.Equal(t, 1, s.CacheSize())
}

func TestQueryContextChangesPrompt(t *testing.T) {
	answerer := &fakeAnswerer{answer: "respuesta"}
	s := NewService(answerer, 8, time.Second, logger.NewNop())

	_, err := s.Query(context.Background(), "¿y los precios?", "user: hola assistant: buenos días")
	require.NoError(t, err)
	require.Len(t, answerer.prompts, 1)
	assert.Equal(t, "Context: user: hola assistant: buenos días\n\nQuestion: ¿y los precios?", answerer.prompts[0])

	// Same question under a different context is a separate cache entry.
	_, err = s.Query(context.Background(), "¿y los precios?", "")
	require.NoError(t, err)
	assert.Equal(t, 2, answerer.calls)
}

func TestQueryEmptyAnswerIsMiss(t *testing.T) {
	answerer := &fakeAnswerer{answer: "  "}
	s := NewService(answerer, 8, time.Second, logger.NewNop())

	answer, err := s.Query(context.Background(), "¿quién fundó la empresa?", "")
	require.NoError(t, err)
	assert.Equal(t, "", answer)
	assert.Zero(t, s.CacheSize())

	answerer.answer = "Empty Response"
	answer, err = s.Query(context.Background(), "¿quién fundó la empresa?", "")
	require.NoError(t, err)
	assert.Equal(t, "", answer)
	assert.Zero(t, s.CacheSize())
}

func TestQueryProviderError(t *testing.T) {
	answerer := &fakeAnswerer{err: errors.New("provider down")}
	s := NewService(answerer, 8, time.Second, logger.NewNop())

	_, err := s.Query(context.Background(), "¿qué servicios ofrecen?", "")
	assert.Error(t, err)
	assert.Zero(t, s.CacheSize())
}
