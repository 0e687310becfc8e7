package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"
)

// ErrorType classifies a failed GitLab call.
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a classified GitLab failure.
type Error struct {
	Type       ErrorType
	Resource   string
	Message    string
	StatusCode int
	Retryable  bool
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("gitlab %s (%s): %s", e.Type, e.Resource, e.Message)
	}
	return fmt.Sprintf("gitlab %s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Skippable reports whether the project or group should be skipped rather
// than failing the whole sync.
func (e *Error) Skippable() bool {
	return e.Type == ErrorTypePermission || e.Type == ErrorTypeNotFound
}

// AsError returns the classified error inside err, if any.
func AsError(err error) (*Error, bool) {
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr, true
	}
	return nil, false
}

// Wrap classifies err for resource. Context cancellation is returned as-is.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if gErr, ok := AsError(err); ok {
		return gErr
	}

	var respErr *gl.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return fromResponse(respErr, resource)
	}

	if isNetworkError(err) {
		return &Error{
			Type:      ErrorTypeNetwork,
			Resource:  resource,
			Message:   "network error",
			Retryable: true,
			Cause:     err,
		}
	}

	return &Error{
		Type:     ErrorTypeUnknown,
		Resource: resource,
		Message:  err.Error(),
		Cause:    err,
	}
}

func fromResponse(respErr *gl.ErrorResponse, resource string) *Error {
	status := respErr.Response.StatusCode
	out := &Error{
		Resource:   resource,
		Message:    respErr.Message,
		StatusCode: status,
		Cause:      respErr,
	}
	switch {
	case status == http.StatusUnauthorized:
		out.Type = ErrorTypeAuth
	case status == http.StatusTooManyRequests:
		out.Type = ErrorTypeRateLimit
		out.Retryable = true
		out.RetryAfter = retryAfter(respErr.Response.Header)
	case status == http.StatusForbidden:
		out.Type = ErrorTypePermission
	case status == http.StatusNotFound:
		out.Type = ErrorTypeNotFound
	case status >= 500:
		out.Type = ErrorTypeServer
		out.Retryable = true
	default:
		out.Type = ErrorTypeUnknown
	}
	if out.Message == "" {
		out.Message = http.StatusText(status)
	}
	return out
}

func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
		"unexpected eof",
	} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
