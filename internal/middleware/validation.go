package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidatePhone validates a WhatsApp phone identifier: digits only, with
// an optional leading plus, E.164-ish length.
func ValidatePhone(phone string) error {
	if phone == "" {
		return errors.New("phone cannot be empty")
	}

	digits := phone
	if digits[0] == '+' {
		digits = digits[1:]
	}
	if len(digits) < 7 || len(digits) > 15 {
		return errors.New("invalid phone length")
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return errors.New("phone must contain only digits")
		}
	}
	return nil
}

// ValidateMessageContent validates inbound message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}
