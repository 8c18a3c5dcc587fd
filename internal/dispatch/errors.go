// errors.go — The unified error taxonomy. The dispatcher is the only place
// where provider-specific failures become these kinds; operation adapters
// and the CLI switch on Kind, never on raw upstream errors.
package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies a failed call.
type ErrorKind string

const (
	// KindInvalidInput: a caller-supplied argument failed validation.
	KindInvalidInput ErrorKind = "INVALID_INPUT"
	// KindNoProviders: the capability has no enabled, configured provider.
	KindNoProviders ErrorKind = "NO_PROVIDERS"
	// KindRateLimited: the proxy or a provider throttled us.
	KindRateLimited ErrorKind = "RATE_LIMITED"
	// KindClient: a non-429 4xx — a configuration fault that would repeat
	// identically on every provider, so failover stops.
	KindClient ErrorKind = "CLIENT"
	// KindUpstreamUnavailable: every candidate failed with
	// 5xx/network/TLS/timeout (or was skipped).
	KindUpstreamUnavailable ErrorKind = "UPSTREAM_UNAVAILABLE"
	// KindDeadlineExceeded: the overall operation deadline expired.
	KindDeadlineExceeded ErrorKind = "DEADLINE_EXCEEDED"
	// KindCancelled: the user or caller cancelled.
	KindCancelled ErrorKind = "CANCELLED"
)

// AttemptReason records why one candidate did not produce a reply.
type AttemptReason struct {
	ProviderID string `json:"provider_id"`
	Reason     string `json:"reason"` // "circuit_open", "rate_limited", "http_500", ...
}

// CallError is the dispatcher's failure value.
type CallError struct {
	Kind            ErrorKind
	Status          int           // upstream HTTP status for KindClient
	UpstreamMessage string        // upstream-provided message, sanitized
	RetryAfter      time.Duration // for KindRateLimited
	Reasons         []AttemptReason
	cause           error
}

func (e *CallError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (http %d)", e.Status)
	}
	if e.UpstreamMessage != "" {
		sb.WriteString(": ")
		sb.WriteString(e.UpstreamMessage)
	}
	if len(e.Reasons) > 0 {
		parts := make([]string, len(e.Reasons))
		for i, r := range e.Reasons {
			parts[i] = r.ProviderID + "=" + r.Reason
		}
		fmt.Fprintf(&sb, " [%s]", strings.Join(parts, " "))
	}
	return sb.String()
}

func (e *CallError) Unwrap() error { return e.cause }

// AsCallError extracts a *CallError from an error chain.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the error's kind, or KindUpstreamUnavailable for errors
// that did not originate in the dispatcher.
func KindOf(err error) ErrorKind {
	if ce, ok := AsCallError(err); ok {
		return ce.Kind
	}
	return KindUpstreamUnavailable
}
