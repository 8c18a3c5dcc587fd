// dispatcher.go — Provider selection, admission, execution, and failover.
// One Call walks the candidate list in priority order; each candidate sees
// at most one in-flight request, and the loop never fans out.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mdsaad31/mdsaad-cli/internal/breaker"
	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
	"github.com/mdsaad31/mdsaad-cli/internal/provider"
	"github.com/mdsaad31/mdsaad-cli/internal/ratelimit"
	"github.com/mdsaad31/mdsaad-cli/internal/secure"
	"github.com/mdsaad31/mdsaad-cli/internal/util"
)

// Options tunes one Call.
type Options struct {
	PreferredProvider string
	// Budget bounds how long the dispatcher may wait on a rate-limit
	// denial before skipping the candidate. Zero means the default.
	Budget time.Duration
}

// DefaultBudget bounds the admit-wait per call: 2 seconds.
const DefaultBudget = 2 * time.Second

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 8 << 20

// Reply is a successful call with its attempt metadata.
type Reply struct {
	Value        any // normalized reply for the capability
	ProviderID   string
	Attempt      int
	ResponseTime time.Duration
	RequestID    string
}

// Dispatcher orchestrates candidate selection, admission checks, the HTTP
// call, and outcome recording.
type Dispatcher struct {
	registry *provider.Registry
	limiter  *ratelimit.Limiter
	breaker  *breaker.Breaker
	clock    *clockid.Clock
	log      *logrus.Logger
	headers  secure.HeaderPolicy
	signer   secure.Signer
	client   *http.Client
}

// New wires a dispatcher. The http.Client is shared across attempts;
// per-attempt deadlines come from request contexts, so the client itself
// carries no timeout.
func New(reg *provider.Registry, lim *ratelimit.Limiter, brk *breaker.Breaker,
	clock *clockid.Clock, log *logrus.Logger, headers secure.HeaderPolicy,
	signer secure.Signer, client *http.Client) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Dispatcher{
		registry: reg,
		limiter:  lim,
		breaker:  brk,
		clock:    clock,
		log:      log,
		headers:  headers,
		signer:   signer,
		client:   client,
	}
}

// Call dispatches payload to the first healthy provider declaring the
// capability. Failover is sequential; terminal client errors stop it.
func (d *Dispatcher) Call(ctx context.Context, cap provider.Capability, payload any, opts Options) (*Reply, error) {
	budget := opts.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	candidates := d.candidates(cap, opts.PreferredProvider)
	if len(candidates) == 0 {
		return nil, &CallError{Kind: KindNoProviders}
	}

	requestID := d.clock.NewRequestID()
	logger := d.log.WithFields(logrus.Fields{"request_id": requestID, "capability": cap})

	var reasons []AttemptReason
	attempt := 0
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, d.ctxError(err, reasons)
		}

		if allow := d.breaker.Allow(cand.ID); !allow.OK {
			reasons = append(reasons, AttemptReason{ProviderID: cand.ID, Reason: "circuit_open"})
			logger.WithField("provider", cand.ID).Debug("candidate skipped: circuit open")
			continue
		}

		attempt++
		reply, reason, err := d.attempt(ctx, logger, &cand, cap, payload, attempt, budget, requestID)
		if err != nil {
			return nil, err // terminal: INVALID_INPUT, CLIENT, CANCELLED, DEADLINE_EXCEEDED
		}
		if reply != nil {
			return reply, nil
		}
		reasons = append(reasons, AttemptReason{ProviderID: cand.ID, Reason: reason})
	}

	return nil, &CallError{Kind: KindUpstreamUnavailable, Reasons: reasons}
}

// candidates returns enabled, configured providers for the capability in
// dispatch order, with the preferred provider (when it qualifies) first.
func (d *Dispatcher) candidates(cap provider.Capability, preferred string) []provider.Provider {
	listed := d.registry.ListByCapability(cap)
	out := make([]provider.Provider, 0, len(listed))
	for _, p := range listed {
		if p.Configured() {
			out = append(out, p)
		}
	}
	if preferred != "" {
		for i, p := range out {
			if p.ID == preferred && i > 0 {
				hoisted := append([]provider.Provider{p}, append(out[:i:i], out[i+1:]...)...)
				out = hoisted
				break
			}
		}
	}
	return out
}

// attempt runs one candidate. Returns (reply, "", nil) on success,
// (nil, skipReason, nil) to continue failover, or (nil, "", err) when the
// whole call must stop.
func (d *Dispatcher) attempt(ctx context.Context, logger *logrus.Entry, p *provider.Provider,
	cap provider.Capability, payload any, attempt int, budget time.Duration, requestID string) (*Reply, string, error) {

	spec, err := provider.BuildRequest(p, cap, payload)
	if err != nil {
		// Adapter rejections are caller-input faults, identical on every
		// provider: do not failover.
		return nil, "", &CallError{Kind: KindInvalidInput, UpstreamMessage: err.Error(), cause: err}
	}

	if err := secure.ValidateURL(spec.URL); err != nil {
		return nil, "", &CallError{Kind: KindInvalidInput, UpstreamMessage: err.Error(), cause: err}
	}

	// Admission: wait out short denials within the budget, skip otherwise.
	for {
		decision := d.limiter.Admit(p.ID, spec.Endpoint)
		if decision.OK {
			break
		}
		if decision.RetryAfter <= 0 || decision.RetryAfter >= budget {
			logger.WithFields(logrus.Fields{"provider": p.ID, "retry_after": decision.RetryAfter}).
				Debug("candidate skipped: rate limited")
			return nil, "rate_limited", nil
		}
		select {
		case <-ctx.Done():
			return nil, "", d.ctxError(ctx.Err(), nil)
		case <-d.clock.After(decision.RetryAfter):
		}
	}

	started := d.clock.Now()
	status, body, retryHeader, err := d.execute(ctx, p, spec)
	elapsed := d.clock.Now().Sub(started)

	if err != nil {
		// Caller-initiated cancellation and the operation deadline are not
		// provider failures; the breaker must not see them.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", d.ctxError(ctxErr, nil)
		}
		d.breaker.RecordFailure(p.ID)
		logger.WithError(err).WithField("provider", p.ID).Debug("attempt failed: network")
		return nil, "network_error", nil
	}

	switch {
	case status >= 200 && status < 300:
		d.breaker.RecordSuccess(p.ID)
		value, parseErr := d.parse(p, cap, payload, body)
		if parseErr != nil {
			// A 2xx with an unparseable body is an upstream fault.
			d.breaker.RecordFailure(p.ID)
			logger.WithError(parseErr).WithField("provider", p.ID).Debug("attempt failed: bad body")
			return nil, "malformed_response", nil
		}
		logger.WithFields(logrus.Fields{
			"provider": p.ID, "attempt": attempt, "elapsed_ms": elapsed.Milliseconds(),
		}).Debug("call succeeded")
		return &Reply{
			Value:        value,
			ProviderID:   p.ID,
			Attempt:      attempt,
			ResponseTime: elapsed,
			RequestID:    requestID,
		}, "", nil

	case status == http.StatusTooManyRequests:
		// Not a breaker trip: rate limiting is recoverable. Report it to
		// the limiter as a blocked window instead.
		retryAfter := util.ParseRetryAfter(retryHeader, d.clock.WallNow(), parseRetryAfterBody(body, time.Minute))
		d.limiter.SetBlockedUntil(p.ID, spec.Endpoint, d.clock.Now().Add(retryAfter))
		logger.WithFields(logrus.Fields{"provider": p.ID, "retry_after": retryAfter}).
			Debug("attempt failed: upstream 429")
		return nil, "rate_limited_upstream", nil

	case status >= 400 && status < 500:
		// Configuration faults (bad key, bad request, out of funds) would
		// repeat identically on every provider: terminal, no breaker trip.
		return nil, "", &CallError{
			Kind:            KindClient,
			Status:          status,
			UpstreamMessage: upstreamMessage(body),
		}

	default: // 5xx and anything unrecognized
		d.breaker.RecordFailure(p.ID)
		logger.WithFields(logrus.Fields{"provider": p.ID, "status": status}).
			Debug("attempt failed: upstream error")
		return nil, fmt.Sprintf("http_%d", status), nil
	}
}

// execute performs the HTTP exchange with the provider's timeout.
func (d *Dispatcher) execute(ctx context.Context, p *provider.Provider, spec *provider.RequestSpec) (int, []byte, string, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if spec.Body != nil {
		bodyReader = bytes.NewReader(spec.Body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, spec.Method, spec.URL, bodyReader)
	if err != nil {
		return 0, nil, "", err
	}
	if spec.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	d.headers.Apply(req, p.Credential, p.APIKeyInURL)
	if spec.Body != nil {
		if err := d.signer.Sign(req, spec.Body, d.clock.NowMillis()); err != nil {
			return 0, nil, "", err
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, "", err
	}
	return resp.StatusCode, body, resp.Header.Get("Retry-After"), nil
}

// parse sanitizes the upstream JSON structurally, then decodes it through
// the provider's adapter.
func (d *Dispatcher) parse(p *provider.Provider, cap provider.Capability, payload any, body []byte) (any, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		if clean, err := json.Marshal(secure.SanitizeValue(decoded)); err == nil {
			body = clean
		}
	}
	return provider.ParseResponse(p, cap, payload, body)
}

func (d *Dispatcher) ctxError(ctxErr error, reasons []AttemptReason) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return &CallError{Kind: KindDeadlineExceeded, Reasons: reasons, cause: ctxErr}
	}
	return &CallError{Kind: KindCancelled, Reasons: reasons, cause: ctxErr}
}

// upstreamMessage pulls a human-readable error out of a 4xx body.
func upstreamMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return secure.SanitizeString(envelope.Error.Message)
		}
		if envelope.Message != "" {
			return secure.SanitizeString(envelope.Message)
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return secure.SanitizeString(msg)
}

// parseRetryAfterBody reads a retry hint from a 429 JSON body, falling
// back to the given default.
func parseRetryAfterBody(body []byte, fallback time.Duration) time.Duration {
	var envelope struct {
		RetryAfter   float64 `json:"retry_after"`
		RetryAfterMs float64 `json:"retry_after_ms"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.RetryAfterMs > 0 {
			return time.Duration(envelope.RetryAfterMs) * time.Millisecond
		}
		if envelope.RetryAfter > 0 {
			return time.Duration(envelope.RetryAfter * float64(time.Second))
		}
	}
	return fallback
}
