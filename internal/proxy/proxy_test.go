package proxy

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
	"github.com/mdsaad31/mdsaad-cli/internal/dispatch"
	"github.com/mdsaad31/mdsaad-cli/internal/provider"
	"github.com/mdsaad31/mdsaad-cli/internal/secure"
)

const proxyChatReply = `{"content": "hi", "model": "x", "usage": {"total_tokens": 4}, "finish_reason": "stop"}`

func newTestClient(urls []string) *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	httpClient := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}}
	return New(urls, clockid.New(clockwork.NewRealClock()), log, secure.HeaderPolicy{Version: "test"}, httpClient)
}

func chatPayload() provider.ChatPayload {
	return provider.ChatPayload{Messages: []provider.Message{{Role: provider.RoleUser, Content: "hello"}}}
}

func tlsServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	s := httptest.NewTLSServer(handler)
	t.Cleanup(s.Close)
	return s
}

func TestPrimarySucceeds(t *testing.T) {
	t.Parallel()
	primary := tlsServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat", r.URL.Path)
		io.WriteString(w, proxyChatReply)
	})

	c := newTestClient([]string{primary.URL})
	value, attempts, err := c.Do(context.Background(), provider.CapChat, chatPayload())
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "ok", attempts[0].Outcome)
	assert.Equal(t, "hi", value.(*provider.NormalizedReply).Content)
}

// A refuses the connection, B returns 503 —
// exhaustion tells the caller to go direct, with both attempts traced.
func TestExhaustionFallsThrough(t *testing.T) {
	t.Parallel()
	// A server that is already closed refuses connections.
	refused := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	refusedURL := refused.URL
	refused.Close()

	unavailable := tlsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	})

	c := newTestClient([]string{refusedURL, unavailable.URL})
	_, attempts, err := c.Do(context.Background(), provider.CapChat, chatPayload())
	require.ErrorIs(t, err, ErrExhausted)
	require.Len(t, attempts, 2)
	assert.Equal(t, "network_error", attempts[0].Outcome)
	assert.Equal(t, "http_503", attempts[1].Outcome)
}

func TestClientErrorIsTerminal(t *testing.T) {
	t.Parallel()
	bad := tlsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		io.WriteString(w, "bad payload")
	})
	never := tlsServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("second endpoint contacted after terminal 4xx")
	})

	c := newTestClient([]string{bad.URL, never.URL})
	_, _, err := c.Do(context.Background(), provider.CapChat, chatPayload())
	ce, ok := dispatch.AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, dispatch.KindClient, ce.Kind)
	assert.Equal(t, 400, ce.Status)
	assert.False(t, errors.Is(err, ErrExhausted), "4xx must not read as exhaustion")
}

func Test429NeverFallsThrough(t *testing.T) {
	t.Parallel()
	throttled := tlsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(429)
	})
	never := tlsServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("second endpoint contacted after 429")
	})

	c := newTestClient([]string{throttled.URL, never.URL})
	_, _, err := c.Do(context.Background(), provider.CapChat, chatPayload())
	ce, ok := dispatch.AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, dispatch.KindRateLimited, ce.Kind)
	assert.Equal(t, 2*time.Minute, ce.RetryAfter)
}

func TestMalformedReplyTransitions(t *testing.T) {
	t.Parallel()
	broken := tlsServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"unexpected": true}`)
	})
	good := tlsServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, proxyChatReply)
	})

	c := newTestClient([]string{broken.URL, good.URL})
	value, attempts, err := c.Do(context.Background(), provider.CapChat, chatPayload())
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "malformed_reply", attempts[0].Outcome)
	assert.Equal(t, "hi", value.(*provider.NormalizedReply).Content)
}

func TestClientSideWindowDeniesEarly(t *testing.T) {
	t.Parallel()
	calls := 0
	server := tlsServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, proxyChatReply)
	})

	c := newTestClient([]string{server.URL})
	// Exhaust the chat window without waiting an hour.
	c.windows[provider.CapChat] = &capWindow{limiter: rate.NewLimiter(rate.Limit(1.0/3600), 2), perHour: 2}

	for i := 0; i < 2; i++ {
		_, _, err := c.Do(context.Background(), provider.CapChat, chatPayload())
		require.NoError(t, err, "call %d", i)
	}
	_, _, err := c.Do(context.Background(), provider.CapChat, chatPayload())
	ce, ok := dispatch.AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, dispatch.KindRateLimited, ce.Kind)
	assert.Greater(t, ce.RetryAfter, time.Duration(0))
	assert.Equal(t, 2, calls, "denied call must not reach the proxy")
}

func TestWeatherNormalizedShape(t *testing.T) {
	t.Parallel()
	server := tlsServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"location": {"name": "London", "lat": 51.5, "lon": -0.1}, "current": {"temperature": 11}, "units": "metric"}`)
	})

	c := newTestClient([]string{server.URL})
	value, _, err := c.Do(context.Background(), provider.CapWeatherCurrent, provider.WeatherQuery{Location: "London"})
	require.NoError(t, err)
	report := value.(*provider.WeatherReport)
	assert.Equal(t, "London", report.Location.Name)
	assert.Equal(t, 11.0, report.Current.Temperature)
}
