package respond

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lunia-labs/whatsapp-assistant/internal/intent"
	"github.com/lunia-labs/whatsapp-assistant/internal/model"
)

func TestIsProcessingFailure(t *testing.T) {
	assert.True(t, IsProcessingFailure("[Audio transcription failed]"))
	assert.True(t, IsProcessingFailure("  [Transcription resulted in empty text]  "))
	assert.False(t, IsProcessingFailure("audio transcription failed"))
	assert.False(t, IsProcessingFailure("[Audio transcription failed] extra"))
}

func TestGenerateGreeting(t *testing.T) {
	g := NewGenerator(4000, true)

	state := &model.TurnState{
		Input:       "Hola",
		SenderPhone: "521555",
		Intent:      intent.Greeting,
		IsGreeting:  true,
	}

	response := g.Generate(state)
	assert.Contains(t, response, "Asistente AI de Lunia Soluciones")
	assert.Contains(t, response, "¿Hay algo más en lo que pueda ayudarte?")
}

func TestGenerateGoodbyeOmitsSuffix(t *testing.T) {
	g := NewGenerator(4000, true)

	state := &model.TurnState{
		Input:       "adios",
		SenderPhone: "521555",
		Intent:      intent.Goodbye,
		IsGoodbye:   true,
	}

	response := g.Generate(state)
	assert.Contains(t, response, "¡Hasta luego!")
	assert.NotContains(t, response, "¿Hay algo más en lo que pueda ayudarte?")
}

func TestGenerateAudioFailure(t *testing.T) {
	g := NewGenerator(4000, true)

	state := &model.TurnState{
		Input:       "[Audio transcription failed]",
		SenderPhone: "521555",
		Intent:      intent.GeneralInquiry,
	}

	response := g.Generate(state)
	assert.Contains(t, response, "mensaje de audio")
}

func TestGenerateDefersToKnowledgeBase(t *testing.T) {
	g := NewGenerator(4000, true)

	state := &model.TurnState{
		Input:       "cuéntame sobre sus proyectos",
		SenderPhone: "521555",
		Intent:      intent.GeneralInquiry,
	}

	assert.Equal(t, "", g.Generate(state))
}

func TestGenerateActionPassthrough(t *testing.T) {
	g := NewGenerator(4000, true)

	state := &model.TurnState{
		Input:       "send email to a@b.com hello world",
		SenderPhone: "521555",
		ActionTaken: true,
		Response:    "✅ Email enviado exitosamente a a@b.com",
	}

	response := g.Generate(state)
	assert.Equal(t, "✅ Email enviado exitosamente a a@b.com", response)
	assert.NotContains(t, response, "¿Hay algo más en lo que pueda ayudarte?")
}

func TestGenerateUnavailableNotices(t *testing.T) {
	g := NewGenerator(4000, false)

	state := &model.TurnState{Input: "send email please", SenderPhone: "521555", Intent: intent.EmailRequest}
	assert.Contains(t, g.Generate(state), "requiere configuración adicional")

	state = &model.TurnState{Input: "agenda en calendar", SenderPhone: "521555", Intent: intent.CalendarRequest}
	assert.Contains(t, g.Generate(state), "programar citas")
}

func TestPostProcessTruncates(t *testing.T) {
	g := NewGenerator(200, true)

	long := strings.Repeat("Esta es una oración de prueba. ", 30)
	state := &model.TurnState{SenderPhone: "521555"}

	response := g.PostProcess(long, state)
	assert.LessOrEqual(t, len(response), 200)
	assert.Contains(t, response, "(Mensaje truncado por longitud)")
}

func TestPostProcessSuffixSkippedWhenNearLimit(t *testing.T) {
	g := NewGenerator(100, true)

	text := strings.Repeat("a", 90)
	state := &model.TurnState{SenderPhone: "521555"}

	response := g.PostProcess(text, state)
	assert.NotContains(t, response, "¿Hay algo más")
}
