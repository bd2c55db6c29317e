// Package errors provides standardized error handling for the AgentMint API.
//
// Every failure in the token lifecycle is represented as an *AppError with:
//   - Code: machine-readable error identifier (e.g. "REPLAY_DETECTED")
//   - Detail: internal context for logs
//   - StatusCode: HTTP status resolved from the code
//
// Client responses are redacted: the body is always the fixed categorical
// message for the code ("invalid token", "token already used", ...), never
// the detail. The full internal detail is logged at warn level by Respond,
// together with the resolved status.
package errors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentmint-dev/agentmint/internal/logger"
)

// AppError represents a categorized application error with HTTP context.
type AppError struct {
	// Code is a machine-readable error identifier.
	// Format: UPPER_SNAKE_CASE (e.g. "POLICY_VIOLATION")
	Code string

	// Detail carries internal context for logs: offending values, wrapped
	// error messages, identifiers. Never included in client responses.
	Detail string

	// StatusCode is the HTTP status to return. Resolved from Code.
	StatusCode int
}

// Error implements the error interface with the full internal detail.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return e.Code
}

// Error codes
const (
	CodeTokenExpired     = "TOKEN_EXPIRED"
	CodeInvalidSignature = "INVALID_SIGNATURE"
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeUnauthorized     = "UNAUTHORIZED"

	CodeReplayDetected  = "REPLAY_DETECTED"
	CodePolicyViolation = "POLICY_VIOLATION"
	CodeRateLimited     = "RATE_LIMITED"

	CodeValidation = "VALIDATION_FAILED"
	CodeBase64     = "BASE64_ERROR"

	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	CodeDatabase      = "DATABASE_ERROR"
	CodeSerialization = "SERIALIZATION_ERROR"
	CodeSigning       = "SIGNING_ERROR"
)

// statusFor returns the HTTP status code for an error code.
func statusFor(code string) int {
	switch code {
	case CodeTokenExpired, CodeInvalidSignature, CodeInvalidToken, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeReplayDetected:
		return http.StatusConflict
	case CodePolicyViolation:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeValidation, CodeBase64:
		return http.StatusBadRequest
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeDatabase, CodeSerialization, CodeSigning:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the fixed categorical string sent to clients.
// SECURITY: never derived from Detail - internal state, SQL fragments, and
// key material must not leak through response bodies.
func (e *AppError) ClientMessage() string {
	switch e.Code {
	case CodeTokenExpired:
		return "token expired"
	case CodeInvalidSignature:
		return "invalid signature"
	case CodeInvalidToken:
		return "invalid token"
	case CodeReplayDetected:
		return "token already used"
	case CodePolicyViolation:
		return "policy violation"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeRateLimited:
		return "rate limited"
	case CodeValidation:
		return "invalid request"
	case CodeServiceUnavailable:
		return "service unavailable"
	default:
		// DATABASE_ERROR, SERIALIZATION_ERROR, SIGNING_ERROR, BASE64_ERROR
		// and anything unclassified collapse to the generic string.
		return "internal error"
	}
}

// New creates a new AppError with the status resolved from the code.
func New(code, detail string) *AppError {
	return &AppError{
		Code:       code,
		Detail:     detail,
		StatusCode: statusFor(code),
	}
}

func TokenExpired() *AppError {
	return New(CodeTokenExpired, "")
}

func InvalidSignature() *AppError {
	return New(CodeInvalidSignature, "")
}

func InvalidToken(detail string) *AppError {
	return New(CodeInvalidToken, detail)
}

func ReplayDetected(jti string) *AppError {
	return New(CodeReplayDetected, jti)
}

func PolicyViolation(detail string) *AppError {
	return New(CodePolicyViolation, detail)
}

func Unauthorized(detail string) *AppError {
	return New(CodeUnauthorized, detail)
}

func RateLimited(detail string) *AppError {
	return New(CodeRateLimited, detail)
}

func Validation(detail string) *AppError {
	return New(CodeValidation, detail)
}

func ServiceUnavailable(detail string) *AppError {
	return New(CodeServiceUnavailable, detail)
}

func Database(err error) *AppError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return New(CodeDatabase, detail)
}

func Serialization(err error) *AppError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return New(CodeSerialization, detail)
}

func Base64(err error) *AppError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return New(CodeBase64, detail)
}

func Signing(detail string) *AppError {
	return New(CodeSigning, detail)
}

// LockPoisoned reports a store whose exclusion primitive is unusable.
// Maps to 500 and the generic client message.
func LockPoisoned(name string) *AppError {
	return New(CodeSigning, fmt.Sprintf("%s lock poisoned", name))
}

// From coerces an arbitrary error into an *AppError. Non-AppError values are
// treated as internal database-class failures.
func From(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Database(err)
}

// Respond logs the failure with full internal detail and writes the redacted
// client body. This is the single exit point for request failures.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	logger.Log.Warn().
		Str("code", appErr.Code).
		Str("detail", appErr.Detail).
		Int("status", appErr.StatusCode).
		Msg("request failed")
	c.JSON(appErr.StatusCode, gin.H{"error": appErr.ClientMessage()})
	c.Abort()
}
