package kb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
	"github.com/lunia-labs/whatsapp-assistant/pkg/metrics"
)

// Service wraps a provider with the query cache, context enrichment, and a
// per-query timeout.
type Service struct {
	answerer Answerer
	cache    *queryCache
	timeout  time.Duration
	logger   *logger.Logger
}

// NewService creates a knowledge base query service.
func NewService(answerer Answerer, cacheSize int, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		answerer: answerer,
		cache:    newQueryCache(cacheSize),
		timeout:  timeout,
		logger:   log,
	}
}

// Query asks the knowledge base a question with optional conversation
// context. It returns the empty string on a miss: an empty question, a
// provider answer with no content, or a timeout. Provider errors are
// returned so the caller can degrade.
func (s *Service) Query(ctx context.Context, question, convContext string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", nil
	}

	key := cacheKey(question, convContext)
	if answer, ok := s.cache.get(key); ok {
		metrics.KnowledgeBaseCacheHits.WithLabelValues("hit").Inc()
		s.logger.Debug("knowledge base cache hit", zap.String("question", question))
		return answer, nil
	}
	metrics.KnowledgeBaseCacheHits.WithLabelValues("miss").Inc()

	prompt := question
	if convContext != "" {
		prompt = fmt.Sprintf("Context: %s\n\nQuestion: %s", convContext, question)
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	answer, err := s.answerer.Answer(queryCtx, prompt)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordKnowledgeBaseQuery(s.answerer.Name(), "error", elapsed)
		return "", fmt.Errorf("knowledge base query failed: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" || answer == "Empty Response" {
		metrics.RecordKnowledgeBaseQuery(s.answerer.Name(), "miss", elapsed)
		return "", nil
	}

	metrics.RecordKnowledgeBaseQuery(s.answerer.Name(), "success", elapsed)
	s.cache.put(key, answer)
	return answer, nil
}

// CacheSize returns the number of cached answers.
func (s *Service) CacheSize() int {
	return s.cache.len()
}
