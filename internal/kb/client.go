// Package kb provides the retrieval-backed knowledge base collaborator:
// provider clients, a bounded query cache, and the query service the
// orchestrator consumes.
package kb

import (
	"context"
)

// Answerer is the interface for knowledge base providers.
type Answerer interface {
	// Answer returns the provider's answer for the prompt. An empty answer
	// is a miss, not an error.
	Answer(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of knowledge base provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// systemPrompt frames every provider call. The knowledge base is scoped to
// company information; providers must decline rather than invent.
const systemPrompt = "Eres el asistente de conocimiento de Lunia Soluciones, una consultora de IA. " +
	"Responde únicamente con información sobre los servicios, soluciones y procesos de la empresa. " +
	"Si no tienes información suficiente para responder, responde exactamente con una cadena vacía."

// NewAnswerer creates a knowledge base provider client.
func NewAnswerer(provider Provider, apiKey, model string) (Answerer, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicAnswerer(apiKey, model)
	case ProviderOpenAI:
		return NewOpenAIAnswerer(apiKey, model)
	default:
		return NewOpenAIAnswerer(apiKey, model)
	}
}
