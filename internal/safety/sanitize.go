// Package safety is the boundary between backend failures and the text a
// model (or an API caller) is allowed to see. Every string produced here is
// generic: it names a failure category, never the underlying message.
package safety

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"

	"github.com/reinhart/lumen/internal/ledger"
)

// Failure categories for tool execution.
const (
	CategoryTimeout     = "timeout"
	CategoryUnavailable = "data unavailable"
	CategoryInternal    = "internal error"
)

// ToolCategory reduces a tool handler error to a category label.
func ToolCategory(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, ledger.ErrUnavailable):
		return CategoryUnavailable
	default:
		return CategoryInternal
	}
}

// ToolFailure is the model-facing message for a failed tool body.
func ToolFailure(err error) string {
	return "tool execution failed: " + ToolCategory(err)
}

// ProviderKind classifies a provider failure.
type ProviderKind int

const (
	KindUnknown ProviderKind = iota
	KindTimeout
	KindConnection
	KindAuth
	KindRateLimit
	KindHTTPStatus
	KindMalformed
)

// ProviderError is a provider failure that has already been classified by
// the adapter that observed it.
type ProviderError struct {
	Kind   ProviderKind
	Status int
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider failure (kind %d)", e.Kind)
	}
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ClassifyTransport recognises timeouts and connection failures from the
// standard library. Anything else is KindUnknown.
func ClassifyTransport(err error) ProviderKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindConnection
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindConnection
	}
	return KindUnknown
}

// StatusKind maps an upstream HTTP status to a failure kind.
func StatusKind(status int) ProviderKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimit
	case status == 408 || status == 504:
		return KindTimeout
	case status > 0:
		return KindHTTPStatus
	default:
		return KindUnknown
	}
}

// ProviderFailure is the caller-facing message for a failed provider call.
func ProviderFailure(provider string, err error) string {
	kind, status := KindUnknown, 0
	var pe *ProviderError
	if errors.As(err, &pe) {
		kind, status = pe.Kind, pe.Status
	}
	if kind == KindUnknown {
		kind = ClassifyTransport(err)
	}

	switch kind {
	case KindTimeout:
		return provider + " request timed out"
	case KindConnection:
		return "could not connect to " + provider + " provider"
	case KindAuth:
		return provider + " authentication failed - check API key"
	case KindRateLimit:
		return provider + " rate limit exceeded"
	case KindHTTPStatus:
		return fmt.Sprintf("%s returned HTTP %d", provider, status)
	case KindMalformed:
		return provider + " returned a malformed response"
	default:
		return provider + " request failed"
	}
}
