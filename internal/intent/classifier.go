// Package intent classifies message text into discrete intent labels using
// ordered keyword rules.
package intent

import (
	"strings"
)

// Intent labels produced by the classifier.
const (
	Greeting        = "greeting"
	Goodbye         = "goodbye"
	PricingInquiry  = "pricing_inquiry"
	ServiceInquiry  = "service_inquiry"
	Scheduling      = "scheduling"
	EmailRequest    = "email_request"
	CalendarRequest = "calendar_request"
	AIConsultation  = "ai_consultation"
	GeneralInquiry  = "general_inquiry"
)

// Confidence constants. Scores are fixed policy, not computed.
const (
	ConfidenceHigh    = 0.9
	ConfidenceDefault = 0.7
)

var greetingWords = []string{
	"hello", "hi", "hola", "hey", "good morning", "good afternoon", "good evening",
}

var goodbyeWords = []string{
	"bye", "adios", "goodbye", "see you", "hasta luego", "chau", "thanks bye",
}

var questionPrefixes = []string{
	"what", "how", "why", "when", "where", "who", "which", "can you", "do you",
}

// rule pairs a keyword set with the label it produces. Rules are evaluated
// in table order and the first match wins, so ordering is load-bearing:
// moving a rule changes tie-break behavior.
type rule struct {
	keywords []string
	label    string
}

var rules = []rule{
	{greetingWords, Greeting},
	{goodbyeWords, Goodbye},
	{[]string{"price", "cost", "budget", "pricing"}, PricingInquiry},
	{[]string{"service", "services", "what do you", "what can you"}, ServiceInquiry},
	{[]string{"schedule", "appointment", "meeting", "call"}, Scheduling},
	{[]string{"email", "send", "enviar", "correo"}, EmailRequest},
	{[]string{"calendar", "evento", "cita", "recordatorio"}, CalendarRequest},
	{[]string{"ai", "artificial intelligence", "machine learning", "ml"}, AIConsultation},
}

// Analysis holds the derived flags and classification for one message.
type Analysis struct {
	IsGreeting bool
	IsGoodbye  bool
	IsQuestion bool
	Intent     string
	Confidence float64
}

// Classify maps raw message text to an intent label and confidence score.
// It always returns a label; unmatched text falls through to
// general_inquiry.
func Classify(text string) (string, float64) {
	lower := strings.ToLower(strings.TrimSpace(text))

	for _, r := range rules {
		if containsAny(lower, r.keywords) {
			if r.label == Greeting || r.label == Goodbye {
				return r.label, ConfidenceHigh
			}
			return r.label, ConfidenceDefault
		}
	}

	return GeneralInquiry, ConfidenceDefault
}

// Analyze computes the message flags and runs classification in one pass.
func Analyze(text string) Analysis {
	lower := strings.ToLower(strings.TrimSpace(text))

	a := Analysis{
		IsGreeting: containsAny(lower, greetingWords),
		IsGoodbye:  containsAny(lower, goodbyeWords),
		IsQuestion: isQuestion(text),
	}
	a.Intent, a.Confidence = Classify(text)
	return a
}

func isQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	lower := strings.ToLower(text)
	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
