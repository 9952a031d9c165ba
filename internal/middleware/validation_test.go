package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("5215512345678"))
	assert.NoError(t, ValidatePhone("+5215512345678"))

	assert.Error(t, ValidatePhone(""))
	assert.Error(t, ValidatePhone("12345"))
	assert.Error(t, ValidatePhone("521551234567890123"))
	assert.Error(t, ValidatePhone("52155abc5678"))
}

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("hola"))

	assert.Error(t, ValidateMessageContent(""))
	assert.Error(t, ValidateMessageContent(strings.Repeat("a", 100001)))
	assert.Error(t, ValidateMessageContent(string([]byte{0xff, 0xfe})))
}
