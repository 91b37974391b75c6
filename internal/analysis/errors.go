package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies why an analysis did not produce a Result.
type Kind string

const (
	KindBadRequest           Kind = "bad_request"
	KindRateLimited          Kind = "rate_limited"
	KindUsageLimitReached    Kind = "usage_limit_reached"
	KindProviderFailure      Kind = "provider_failure"
	KindParseFailure         Kind = "parse_failure"
	KindUnsupportedMediaType Kind = "unsupported_media_type"
)

// Fixed caller-facing messages.
const (
	MessageMissingInput  = "Please provide either imageUrl or imageBase64"
	MessageRateLimited   = "Rate limit exceeded. Please try again in a moment."
	MessageUsageLimit    = "Usage limit reached. Please add credits to continue."
	MessageProviderError = "Failed to analyze image"
	MessageEmptyAnalysis = "No analysis received from AI"
	MessageParseFailure  = "Failed to parse analysis results"
	MessageUnsupported   = "Only image files are supported"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrBadRequest           = &Error{Kind: KindBadRequest}
	ErrRateLimited          = &Error{Kind: KindRateLimited}
	ErrUsageLimitReached    = &Error{Kind: KindUsageLimitReached}
	ErrProviderFailure      = &Error{Kind: KindProviderFailure}
	ErrParseFailure         = &Error{Kind: KindParseFailure}
	ErrUnsupportedMediaType = &Error{Kind: KindUnsupportedMediaType}
)

// Error is a classified analysis failure. Message is safe to show to end
// users; Detail holds raw provider text meant for logs only.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds a classified error with a user-facing message.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// AsError extracts the classified error from err. Unclassified errors are
// reported as provider failures with the generic message.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return &Error{Kind: KindProviderFailure, Message: MessageProviderError, Err: err}
}
