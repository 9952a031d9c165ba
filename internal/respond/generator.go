// Package respond selects and post-processes canned replies keyed by intent.
package respond

import (
	"strings"

	"github.com/lunia-labs/whatsapp-assistant/internal/intent"
	"github.com/lunia-labs/whatsapp-assistant/internal/model"
)

// Fixed reply templates. The assistant answers in Spanish; operational
// apologies stay in English to match the upstream channel errors.
const (
	greetingTemplate = "¡Hola! Soy el Asistente AI de Lunia Soluciones. Estoy aquí para ayudarte con consultoría en IA, " +
		"desarrollo de soluciones, programación de citas y más. ¿En qué puedo asistirte hoy?\n\n" +
		"Puedo ayudarte con:\n" +
		"📧 Enviar emails\n" +
		"📅 Programar eventos y recordatorios\n" +
		"🤖 Consultoría en IA\n" +
		"💼 Información sobre nuestros servicios"

	goodbyeTemplate = "¡Hasta luego! Gracias por contactar a Lunia Soluciones. " +
		"Esperamos poder ayudarte con tus necesidades de IA en el futuro. ¡Que tengas un excelente día!"

	audioFailureTemplate = "Recibí un mensaje de audio, pero hubo un problema al procesarlo. " +
		"¿Podrías intentar enviar un mensaje de texto, o asegurarte de que el audio sea claro?"

	pricingTemplate = "Nuestros servicios de consultoría en IA están adaptados a las necesidades específicas de cada cliente. " +
		"Los precios dependen del alcance y la complejidad de tu proyecto. " +
		"¿Te gustaría programar una consulta para discutir tus requerimientos y obtener una cotización personalizada?"

	servicesTemplate = "Lunia Soluciones ofrece servicios integrales de consultoría en IA:\n\n" +
		"🎯 Desarrollo de Estrategia en IA\n" +
		"🤖 Soluciones de Machine Learning\n" +
		"📊 Análisis de Datos e Insights\n" +
		"⚙️ Automatización de Procesos\n" +
		"🔧 Servicios de Integración de IA\n\n" +
		"¿Cuál de estas áreas te interesa más?"

	schedulingTemplate = "¡Estaré encantado de ayudarte a programar una consulta! " +
		"Por favor déjame saber tu horario preferido y podemos organizar una reunión " +
		"para discutir tus necesidades de IA en detalle.\n\n" +
		"También puedo crear recordatorios y eventos en calendario. " +
		"Solo dime qué necesitas programar."

	emailUnavailableTemplate = "Entiendo que quieres enviar un email. Esta funcionalidad requiere configuración adicional. " +
		"Por favor contacta directamente a nuestro equipo para asistencia con emails."

	calendarUnavailableTemplate = "Entiendo que quieres programar algo en calendario. Esta funcionalidad requiere configuración adicional. " +
		"Por favor contacta directamente a nuestro equipo para programar citas."

	// FallbackText is the reply when the knowledge base has no answer.
	FallbackText = "Entiendo que estás preguntando sobre eso, pero no tengo información específica disponible. " +
		"¿Podrías reformular tu pregunta o preguntar sobre nuestros servicios de consultoría en IA? " +
		"Estoy aquí para ayudar con información sobre las soluciones y servicios de Lunia."

	// TimeoutText is the reply when turn processing exceeds its deadline.
	TimeoutText = "Request timed out. Please try again."

	// InternalErrorText is the reply for unexpected processing failures.
	InternalErrorText = "I encountered an error processing your request. Please try again."

	continueSuffix  = "\n\n¿Hay algo más en lo que pueda ayudarte?"
	truncatedSuffix = "\n\n(Mensaje truncado por longitud)"
)

// processingFailureSentinels are the exact literals upstream transcription
// substitutes for unprocessable audio. Matching is verbatim: any change to
// these strings on either side breaks the contract.
var processingFailureSentinels = []string{
	"[Audio transcription failed]",
	"[Audio file not found for transcription]",
	"[Audio file was a placeholder, not transcribed]",
	"[OpenAI client not available for transcription]",
	"[Audio message URL received, but live download/processing is not part of this simulation step]",
	"[Transcription resulted in empty text]",
	"[Audio transcription failed or unavailable]",
}

// IsProcessingFailure reports whether the message is one of the known
// upstream processing-failure sentinels.
func IsProcessingFailure(message string) bool {
	trimmed := strings.TrimSpace(message)
	for _, s := range processingFailureSentinels {
		if trimmed == s {
			return true
		}
	}
	return false
}

// Generator produces canned replies for classified turns.
type Generator struct {
	maxLength  int
	hasActions bool
}

// NewGenerator creates a response generator. maxLength is the channel
// message limit; hasActions reports whether a service action matcher is
// wired (without one, email and calendar requests get an unavailability
// notice instead of silence).
func NewGenerator(maxLength int, hasActions bool) *Generator {
	if maxLength <= 0 {
		maxLength = 4000
	}
	return &Generator{maxLength: maxLength, hasActions: hasActions}
}

// MaxLength returns the configured channel message limit.
func (g *Generator) MaxLength() int {
	return g.maxLength
}

// Generate selects a response for the turn. It returns the empty string for
// intents that defer to the knowledge base. A response already produced by
// a service action passes through untouched except for post-processing
// rules that account for it.
func (g *Generator) Generate(state *model.TurnState) string {
	if state.ActionTaken && state.Response != "" {
		return state.Response
	}

	var response string
	switch {
	case state.Intent == intent.Greeting:
		response = greetingTemplate
	case state.Intent == intent.Goodbye:
		response = goodbyeTemplate
	case IsProcessingFailure(state.Input):
		response = audioFailureTemplate
	case state.Intent == intent.PricingInquiry:
		response = pricingTemplate
	case state.Intent == intent.ServiceInquiry:
		response = servicesTemplate
	case state.Intent == intent.Scheduling:
		response = schedulingTemplate
	case state.Intent == intent.EmailRequest && !g.hasActions:
		response = emailUnavailableTemplate
	case state.Intent == intent.CalendarRequest && !g.hasActions:
		response = calendarUnavailableTemplate
	default:
		// General inquiries defer to the knowledge base; the driver fills
		// the response in afterwards.
		return ""
	}

	return g.PostProcess(response, state)
}

// PostProcess enforces the channel length limit, preferring cuts at
// sentence boundaries, and appends the invitation-to-continue suffix when
// the turn allows it.
func (g *Generator) PostProcess(response string, state *model.TurnState) string {
	if len(response) > g.maxLength {
		response = truncateAtSentence(response, g.maxLength)
	}

	if state.SenderPhone != "" && !state.IsGoodbye && !state.ActionTaken {
		if len(response)+50 < g.maxLength {
			response += continueSuffix
		}
	}

	return strings.TrimSpace(response)
}

func truncateAtSentence(response string, maxLength int) string {
	sentences := strings.Split(response, ".")
	var truncated strings.Builder
	for _, sentence := range sentences {
		if truncated.Len()+len(sentence)+1 > maxLength-50 {
			break
		}
		truncated.WriteString(sentence)
		truncated.WriteString(".")
	}

	if truncated.Len() > 0 {
		return truncated.String() + truncatedSuffix
	}
	return response[:maxLength-50] + "..."
}
