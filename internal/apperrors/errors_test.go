package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"paymentgw/internal/apperrors"
)

func TestAppError_StatusAndCode(t *testing.T) {
	cases := []struct {
		err  *apperrors.AppError
		code apperrors.Code
		status int
	}{
		{apperrors.AccountNotFound(), apperrors.CodeAccountNotFound, 404},
		{apperrors.InsufficientBalance(), apperrors.CodeInsufficientBalance, 400},
		{apperrors.Unauthorized(""), apperrors.CodeUnauthorized, 401},
		{apperrors.Forbidden(""), apperrors.CodeForbidden, 403},
		{apperrors.RateLimited(30), apperrors.CodeRateLimit, 429},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, c.err.Code)
		assert.Equal(t, c.status, c.err.Status)
	}
}

func TestUnauthorized_DefaultMessage(t *testing.T) {
	err := apperrors.Unauthorized("")
	assert.Equal(t, "authentication is required", err.Message)

	err = apperrors.Unauthorized("token expired")
	assert.Equal(t, "token expired", err.Message)
}

func TestRetryAfter_SetOnlyWhereExpected(t *testing.T) {
	assert.Equal(t, 30, apperrors.RateLimited(30).RetryAfter)
	assert.Equal(t, 5, apperrors.DuplicateRequest(5).RetryAfter)
	assert.Equal(t, 0, apperrors.AccountNotFound().RetryAfter)
}

func TestAppError_UnwrapAndAs(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("query failed: %w", apperrors.Internal(cause))

	ae, ok := apperrors.As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, apperrors.CodeInternal, ae.Code)
	assert.ErrorIs(t, ae, cause)
}

func TestAs_NotAnAppError(t *testing.T) {
	_, ok := apperrors.As(errors.New("plain error"))
	assert.False(t, ok)
}
