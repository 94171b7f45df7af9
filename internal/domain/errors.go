// Package domain contains the core plugin protocol entities and decision logic.
// These types are framework-agnostic and mirror the wire contract the Loom
// orchestrator expects from provider plugins.
package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorCode identifies a plugin failure category. The set is closed: every
// failure the plugin reports uses exactly one of these codes.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "invalid_request"
	ErrAuthenticationFailed ErrorCode = "authentication_failed"
	ErrRateLimitExceeded    ErrorCode = "rate_limit_exceeded"
	ErrModelNotFound        ErrorCode = "model_not_found"
	ErrProviderUnavailable  ErrorCode = "provider_unavailable"
	ErrTimeout              ErrorCode = "timeout"
	ErrInternal             ErrorCode = "internal_error"
)

// PluginError is the error body returned to the host whenever validation or
// the upstream call fails. Transient tells the host whether retrying the same
// request may succeed.
type PluginError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Transient bool                   `json:"transient"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	if e.Code != "" {
		return string(e.Code) + ": " + e.Message
	}
	return e.Message
}

// NewPluginError creates a PluginError with the transience implied by its code.
func NewPluginError(code ErrorCode, message string) *PluginError {
	return &PluginError{
		Code:      code,
		Message:   message,
		Transient: IsTransient(code),
	}
}

// IsTransient reports whether retrying a request that failed with this code
// may succeed.
func IsTransient(code ErrorCode) bool {
	switch code {
	case ErrRateLimitExceeded, ErrProviderUnavailable, ErrTimeout:
		return true
	default:
		return false
	}
}

// upstreamErrorBody is the OpenAI-compatible error envelope.
type upstreamErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Classify maps an upstream HTTP status and response body to a PluginError.
// The mapping is total: any non-200 status yields exactly one code.
//
//	401  -> authentication_failed
//	429  -> rate_limit_exceeded
//	404  -> model_not_found
//	5xx  -> provider_unavailable
//	else -> internal_error
//
// Network timeouts never reach this function; they are reported as ErrTimeout
// by the call site.
func Classify(status int, body []byte) *PluginError {
	var code ErrorCode
	switch {
	case status == http.StatusUnauthorized:
		code = ErrAuthenticationFailed
	case status == http.StatusTooManyRequests:
		code = ErrRateLimitExceeded
	case status == http.StatusNotFound:
		code = ErrModelNotFound
	case status >= http.StatusInternalServerError:
		code = ErrProviderUnavailable
	default:
		code = ErrInternal
	}

	message := string(body)
	var envelope upstreamErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	if message == "" {
		message = fmt.Sprintf("provider returned status %d", status)
	}

	return NewPluginError(code, message)
}
