package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"paymentgw/internal/validation"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, validation.ValidateEmail("alice@example.com"))
	assert.Error(t, validation.ValidateEmail(""))
	assert.Error(t, validation.ValidateEmail("not-an-email"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, validation.ValidatePassword("correcthorse"))
	assert.Error(t, validation.ValidatePassword("short"))
	assert.Error(t, validation.ValidatePassword(strings.Repeat("a", 73)))
}

func TestValidateWebhookURL(t *testing.T) {
	assert.NoError(t, validation.ValidateWebhookURL(""))
	assert.NoError(t, validation.ValidateWebhookURL("https://example.com/hook"))
	assert.Error(t, validation.ValidateWebhookURL("ftp://example.com/hook"))
	assert.Error(t, validation.ValidateWebhookURL("not a url %%%"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, validation.MaxListLimit, validation.ClampLimit(0))
	assert.Equal(t, validation.MaxListLimit, validation.ClampLimit(-5))
	assert.Equal(t, validation.MaxListLimit, validation.ClampLimit(500))
	assert.Equal(t, 20, validation.ClampLimit(20))
}
