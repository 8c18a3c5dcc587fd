// ratelimit.go — Sliding-window admission control, per provider/endpoint.
// The limiter counts attempts admitted (regardless of outcome); the circuit
// breaker counts consecutive failures by outcome. The two never share state.
package ratelimit

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
)

// DenyReason explains why an admission was refused.
type DenyReason string

const (
	// WindowFull: the window_ms sliding window already holds window_limit
	// admissions.
	WindowFull DenyReason = "WINDOW_FULL"
	// BurstFull: the last-second sub-window already holds burst_limit
	// admissions.
	BurstFull DenyReason = "BURST_FULL"
	// Blocked: the provider told us to back off (429 Retry-After).
	Blocked DenyReason = "BLOCKED"
)

// Decision is the outcome of an Admit call.
type Decision struct {
	OK         bool
	Reason     DenyReason
	RetryAfter time.Duration
}

// Limits configures one provider's admission window. Zero values disable
// the corresponding check.
type Limits struct {
	RequestsPerWindow int
	Window            time.Duration
	BurstPerSecond    int
}

// window holds admission state for one (provider, endpoint) key.
type window struct {
	admissions   []time.Time // sorted ascending
	blockedUntil time.Time
}

// Limiter owns all rate-window state. Admission is record-on-admit: an OK
// decision has already consumed a slot.
type Limiter struct {
	mu     sync.Mutex
	clock  *clockid.Clock
	log    *logrus.Logger
	limits map[string]Limits  // provider -> limits
	keys   map[string]*window // provider+"\x00"+endpoint -> window
}

// New creates an empty limiter. Providers are registered with Configure.
func New(clock *clockid.Clock, log *logrus.Logger) *Limiter {
	return &Limiter{
		clock:  clock,
		log:    log,
		limits: make(map[string]Limits),
		keys:   make(map[string]*window),
	}
}

// Configure sets the limits used for every endpoint of a provider.
func (l *Limiter) Configure(providerID string, limits Limits) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits[providerID] = limits
}

func key(providerID, endpoint string) string {
	return providerID + "\x00" + endpoint
}

// Admit decides whether one outgoing call to (provider, endpoint) may
// proceed now, and on OK records the admission atomically.
func (l *Limiter) Admit(providerID, endpoint string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	limits := l.limits[providerID]

	w := l.keys[key(providerID, endpoint)]
	if w == nil {
		w = &window{}
		l.keys[key(providerID, endpoint)] = w
	}

	if now.Before(w.blockedUntil) {
		return Decision{Reason: Blocked, RetryAfter: w.blockedUntil.Sub(now)}
	}

	// Drop admissions that have slid out of the window.
	if limits.Window > 0 {
		cutoff := now.Add(-limits.Window)
		i := 0
		for i < len(w.admissions) && !w.admissions[i].After(cutoff) {
			i++
		}
		w.admissions = w.admissions[i:]
	}

	if limits.RequestsPerWindow > 0 && limits.Window > 0 && len(w.admissions) >= limits.RequestsPerWindow {
		oldest := w.admissions[0]
		retry := oldest.Add(limits.Window).Sub(now)
		return Decision{Reason: WindowFull, RetryAfter: retry}
	}

	if limits.BurstPerSecond > 0 {
		burstCutoff := now.Add(-time.Second)
		var oldestInBurst time.Time
		count := 0
		for i := len(w.admissions) - 1; i >= 0; i-- {
			if w.admissions[i].After(burstCutoff) {
				oldestInBurst = w.admissions[i]
				count++
			} else {
				break
			}
		}
		if count >= limits.BurstPerSecond {
			retry := time.Second - now.Sub(oldestInBurst)
			return Decision{Reason: BurstFull, RetryAfter: retry}
		}
	}

	w.admissions = append(w.admissions, now)
	return Decision{OK: true}
}

// SetBlockedUntil records an upstream-requested backoff (429 Retry-After).
// Admit denies with the remaining delay until the deadline passes.
func (l *Limiter) SetBlockedUntil(providerID, endpoint string, until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.keys[key(providerID, endpoint)]
	if w == nil {
		w = &window{}
		l.keys[key(providerID, endpoint)] = w
	}
	if until.After(w.blockedUntil) {
		w.blockedUntil = until
		l.log.WithFields(logrus.Fields{
			"provider": providerID,
			"endpoint": endpoint,
			"until":    until,
		}).Debug("rate limiter: provider blocked by upstream")
	}
}

// Usage is a point-in-time view of one rate window, for the quota command.
type Usage struct {
	ProviderID  string
	Endpoint    string
	WindowCount int
	LastSecond  int
	Limits      Limits
	BlockedFor  time.Duration
}

// Snapshot reports current usage across all known keys.
func (l *Limiter) Snapshot() []Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	out := make([]Usage, 0, len(l.keys))
	for k, w := range l.keys {
		var provider, endpoint string
		for i := 0; i < len(k); i++ {
			if k[i] == 0 {
				provider, endpoint = k[:i], k[i+1:]
				break
			}
		}
		limits := l.limits[provider]
		u := Usage{ProviderID: provider, Endpoint: endpoint, Limits: limits}
		cutoff := now.Add(-limits.Window)
		burstCutoff := now.Add(-time.Second)
		for _, at := range w.admissions {
			if limits.Window > 0 && at.After(cutoff) {
				u.WindowCount++
			}
			if at.After(burstCutoff) {
				u.LastSecond++
			}
		}
		if w.blockedUntil.After(now) {
			u.BlockedFor = w.blockedUntil.Sub(now)
		}
		out = append(out, u)
	}
	return out
}
