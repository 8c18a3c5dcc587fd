// proxy.go — Proxy fallback layer. Operations try the configured proxy
// endpoints, in order, before any direct provider. A hard failure on every
// endpoint surfaces as ErrExhausted, which callers interpret as "fall
// through to direct dispatch". A proxy 429 never falls through: the user
// is being throttled, not the infrastructure.
package proxy

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
	"golang.org/x/time/rate"

	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
	"github.com/mdsaad31/mdsaad-cli/internal/dispatch"
	"github.com/mdsaad31/mdsaad-cli/internal/provider"
	"github.com/mdsaad31/mdsaad-cli/internal/secure"
	"github.com/mdsaad31/mdsaad-cli/internal/util"
)

// ErrExhausted signals that every proxy endpoint failed with a
// transition-eligible error.
var ErrExhausted = errors.New("proxy endpoints exhausted")

// DefaultPrimaryURL is the managed proxy endpoint tried first.
const DefaultPrimaryURL = "https://proxy.mdsaad.dev"

// Attempt records one proxy endpoint try, for verbose output.
type Attempt struct {
	URL     string `json:"url"`
	Outcome string `json:"outcome"` // "ok", "http_503", "network_error", "malformed_reply"
}

// capWindow is one client-side hourly window.
type capWindow struct {
	limiter *rate.Limiter
	perHour int
}

// Client walks the ordered proxy URL list and enforces the layer's own
// per-capability windows before any byte leaves the machine.
type Client struct {
	urls    []string
	http    *http.Client
	clock   *clockid.Clock
	log     *logrus.Logger
	headers secure.HeaderPolicy
	windows map[provider.Capability]*capWindow
	timeout time.Duration
}

// hourly builds a limiter that refills a full burst over one hour.
func hourly(perHour int) *capWindow {
	return &capWindow{
		limiter: rate.NewLimiter(rate.Limit(float64(perHour)/3600.0), perHour),
		perHour: perHour,
	}
}

// New creates a proxy client over the given URL list (first is primary).
func New(urls []string, clock *clockid.Clock, log *logrus.Logger, headers secure.HeaderPolicy, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		urls:    urls,
		http:    client,
		clock:   clock,
		log:     log,
		headers: headers,
		windows: map[provider.Capability]*capWindow{
			provider.CapChat:            hourly(50),
			provider.CapWeatherCurrent:  hourly(100),
			provider.CapWeatherForecast: hourly(100),
			provider.CapExchangeRate:    hourly(100),
		},
		timeout: 30 * time.Second,
	}
}

// Enabled reports whether any proxy endpoint is configured.
func (c *Client) Enabled() bool { return len(c.urls) > 0 }

// Do issues one capability request through the proxy list. On success the
// returned value matches the direct adapters' normalized shape for the
// capability. Returns ErrExhausted when the caller should go direct.
func (c *Client) Do(ctx context.Context, cap provider.Capability, payload any) (any, []Attempt, error) {
	if w := c.windows[cap]; w != nil {
		res := w.limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			return nil, nil, &dispatch.CallError{Kind: dispatch.KindRateLimited, RetryAfter: delay}
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, &dispatch.CallError{Kind: dispatch.KindInvalidInput, UpstreamMessage: err.Error()}
	}

	var attempts []Attempt
	for _, base := range c.urls {
		if err := ctx.Err(); err != nil {
			return nil, attempts, ctxCallError(err)
		}

		value, outcome, terminal := c.tryEndpoint(ctx, base, cap, body)
		attempts = append(attempts, Attempt{URL: base, Outcome: outcome})
		if terminal != nil {
			return nil, attempts, terminal
		}
		if value != nil {
			return value, attempts, nil
		}
		c.log.WithFields(logrus.Fields{"proxy": base, "outcome": outcome}).
			Debug("proxy endpoint failed, transitioning")
	}
	return nil, attempts, ErrExhausted
}

// tryEndpoint runs one proxy URL. A nil value with nil terminal means
// "transition to the next endpoint".
func (c *Client) tryEndpoint(ctx context.Context, base string, cap provider.Capability, body []byte) (any, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := strings.TrimSuffix(base, "/") + "/v1/" + string(cap)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, "bad_url", nil
	}
	req.Header.Set("Content-Type", "application/json")
	c.headers.Apply(req, "", false)

	resp, err := c.http.Do(req)
	if err != nil {
		// Covers ECONNREFUSED, ENOTFOUND, TLS failures, and timeouts —
		// all transition-eligible. Caller cancellation is not.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "cancelled", ctxCallError(ctxErr)
		}
		return nil, "network_error", nil
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, "read_error", nil
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		value, err := parseNormalized(cap, respBody)
		if err != nil {
			// A proxy that does not speak the normalized shape is broken.
			return nil, "malformed_reply", nil
		}
		return value, "ok", nil

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := util.ParseRetryAfter(resp.Header.Get("Retry-After"), c.clock.WallNow(), time.Minute)
		return nil, "rate_limited", &dispatch.CallError{
			Kind:       dispatch.KindRateLimited,
			RetryAfter: retryAfter,
		}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Terminal client fault: break the loop, no fall-through.
		return nil, fmt.Sprintf("http_%d", resp.StatusCode), &dispatch.CallError{
			Kind:            dispatch.KindClient,
			Status:          resp.StatusCode,
			UpstreamMessage: strings.TrimSpace(string(respBody)),
		}

	default:
		return nil, fmt.Sprintf("http_%d", resp.StatusCode), nil
	}
}

// parseNormalized decodes a proxy reply into the capability's normalized
// shape, rejecting structurally empty replies.
func parseNormalized(cap provider.Capability, body []byte) (any, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		if clean, err := json.Marshal(secure.SanitizeValue(decoded)); err == nil {
			body = clean
		}
	}
	switch cap {
	case provider.CapChat:
		var reply provider.NormalizedReply
		if err := json.Unmarshal(body, &reply); err != nil {
			return nil, err
		}
		if reply.Content == "" {
			return nil, errors.New("proxy chat reply has no content")
		}
		return &reply, nil
	case provider.CapWeatherCurrent, provider.CapWeatherForecast:
		var report provider.WeatherReport
		if err := json.Unmarshal(body, &report); err != nil {
			return nil, err
		}
		if report.Location.Name == "" && report.Location.Lat == 0 && report.Location.Lon == 0 {
			return nil, errors.New("proxy weather reply has no location")
		}
		return &report, nil
	case provider.CapExchangeRate:
		var xr provider.ExchangeRate
		if err := json.Unmarshal(body, &xr); err != nil {
			return nil, err
		}
		if xr.Rate == 0 {
			return nil, errors.New("proxy rate reply has no rate")
		}
		return &xr, nil
	}
	return nil, fmt.Errorf("capability %q not served by proxy", cap)
}

func ctxCallError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &dispatch.CallError{Kind: dispatch.KindDeadlineExceeded}
	}
	return &dispatch.CallError{Kind: dispatch.KindCancelled}
}

// Remaining reports how many calls are left in a capability's client-side
// window, for the quota command.
func (c *Client) Remaining(cap provider.Capability) (remaining, perHour int) {
	w := c.windows[cap]
	if w == nil {
		return 0, 0
	}
	// Tokens is a float approximation of the refilling bucket.
	tokens := int(w.limiter.Tokens())
	if tokens < 0 {
		tokens = 0
	}
	if tokens > w.perHour {
		tokens = w.perHour
	}
	return tokens, w.perHour
}
