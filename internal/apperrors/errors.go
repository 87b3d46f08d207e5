// Package apperrors defines the typed error values handlers and services
// return, and the HTTP status/code each maps to.
package apperrors

import "fmt"

type Code string

const (
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeAccountNotFound     Code = "ACCOUNT_NOT_FOUND"
	CodeUserNotFound        Code = "USER_NOT_FOUND"
	CodeTransactionNotFound Code = "TRANSACTION_NOT_FOUND"
	CodeDuplicateRequest    Code = "DUPLICATE_REQUEST"
	CodeConcurrentUpdate    Code = "CONCURRENT_UPDATE"
	CodeBankTransient       Code = "BANK_TRANSIENT"
	CodeBankPermanent       Code = "BANK_PERMANENT"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeRateLimit           Code = "RATE_LIMITED"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// AppError is the single error type that crosses the handler/service
// boundary. Status is the HTTP status the error middleware writes;
// RetryAfter is only set for DuplicateRequest/RateLimit responses.
type AppError struct {
	Code       Code
	Message    string
	Status     int
	RetryAfter int // seconds, 0 means unset
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

func new(code Code, status int, message string) *AppError {
	return &AppError{Code: code, Status: status, Message: message}
}

func InsufficientBalance() *AppError {
	return new(CodeInsufficientBalance, 400, "account balance is insufficient for this withdrawal")
}

func AccountNotFound() *AppError {
	return new(CodeAccountNotFound, 404, "account not found")
}

func UserNotFound() *AppError {
	return new(CodeUserNotFound, 404, "user not found")
}

func TransactionNotFound() *AppError {
	return new(CodeTransactionNotFound, 404, "transaction not found")
}

// DuplicateRequest reports a request whose idempotency key is already in
// use. The idempotency middleware returns it while the key is still
// PROCESSING, with retryAfterSeconds telling the caller how long to wait; a
// COMPLETED key is replayed rather than rejected. The transaction service
// returns it with 0 (no Retry-After header) when a transaction row already
// carries the key.
func DuplicateRequest(retryAfterSeconds int) *AppError {
	e := new(CodeDuplicateRequest, 409, "a request with this idempotency key is already in flight")
	e.RetryAfter = retryAfterSeconds
	return e
}

func ConcurrentUpdate() *AppError {
	return new(CodeConcurrentUpdate, 409, "the resource was modified concurrently, retry the request")
}

func BankTransient(cause error) *AppError {
	e := new(CodeBankTransient, 502, "the bank is temporarily unavailable")
	e.cause = cause
	return e
}

func BankPermanent(cause error) *AppError {
	e := new(CodeBankPermanent, 502, "the bank rejected the request")
	e.cause = cause
	return e
}

func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication is required"
	}
	return new(CodeUnauthorized, 401, message)
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "you do not have access to this resource"
	}
	return new(CodeForbidden, 403, message)
}

func Validation(message string) *AppError {
	return new(CodeValidation, 400, message)
}

func RateLimited(retryAfterSeconds int) *AppError {
	e := new(CodeRateLimit, 429, "rate limit exceeded")
	e.RetryAfter = retryAfterSeconds
	return e
}

func Internal(cause error) *AppError {
	e := new(CodeInternal, 500, "an internal error occurred")
	e.cause = cause
	return e
}

// As pulls an *AppError out of err or out of the chain reached by
// repeatedly calling its Unwrap() error method.
func As(err error) (*AppError, bool) {
	ae, ok := err.(*AppError)
	if ok {
		return ae, true
	}
	type unwrapper interface{ Unwrap() error }
	for u, ok := err.(unwrapper); ok; u, ok = err.(unwrapper) {
		err = u.Unwrap()
		if ae, ok := err.(*AppError); ok {
			return ae, true
		}
	}
	return nil, false
}
