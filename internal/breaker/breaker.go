// breaker.go — Per-provider circuit breaker with CLOSED/OPEN/HALF_OPEN states.
// The breaker counts consecutive failures by outcome; admission counting
// lives in the rate limiter. Callers classify errors before reporting —
// the breaker trusts what it is told.
package breaker

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
)

// State is one of the three circuit states.
type State string

const (
	Closed   State = "CLOSED"
	Open     State = "OPEN"
	HalfOpen State = "HALF_OPEN"
)

// Config bounds one provider's failure accounting.
type Config struct {
	FailThreshold  int           // consecutive failures before tripping
	OpenFor        time.Duration // how long OPEN rejects before probing
	HalfOpenProbes int           // trial admissions in HALF_OPEN
}

// DefaultConfig matches the fabric-wide defaults: trip after 5 consecutive
// failures, hold open for 30 seconds, probe once.
func DefaultConfig() Config {
	return Config{FailThreshold: 5, OpenFor: 30 * time.Second, HalfOpenProbes: 1}
}

// Decision is the outcome of an Allow call.
type Decision struct {
	OK       bool
	State    State
	ReopenIn time.Duration
}

type circuit struct {
	mu                  sync.Mutex
	cfg                 Config
	state               State
	consecutiveFailures int
	lastFailure         time.Time
	openedAt            time.Time
	probesInFlight      int
}

// Breaker owns the circuit state for every provider.
type Breaker struct {
	mu       sync.Mutex
	clock    *clockid.Clock
	log      *logrus.Logger
	circuits map[string]*circuit
	defaults Config
}

// New creates a breaker using cfg as the default for unconfigured providers.
func New(clock *clockid.Clock, log *logrus.Logger, cfg Config) *Breaker {
	if cfg.FailThreshold <= 0 {
		cfg.FailThreshold = DefaultConfig().FailThreshold
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = DefaultConfig().OpenFor
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = DefaultConfig().HalfOpenProbes
	}
	return &Breaker{clock: clock, log: log, circuits: make(map[string]*circuit), defaults: cfg}
}

// Configure overrides the circuit config for one provider.
func (b *Breaker) Configure(providerID string, cfg Config) {
	c := b.circuitFor(providerID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.FailThreshold > 0 {
		c.cfg.FailThreshold = cfg.FailThreshold
	}
	if cfg.OpenFor > 0 {
		c.cfg.OpenFor = cfg.OpenFor
	}
	if cfg.HalfOpenProbes > 0 {
		c.cfg.HalfOpenProbes = cfg.HalfOpenProbes
	}
}

func (b *Breaker) circuitFor(providerID string) *circuit {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.circuits[providerID]
	if c == nil {
		c = &circuit{cfg: b.defaults, state: Closed}
		b.circuits[providerID] = c
	}
	return c
}

// Allow reports whether a call to the provider may proceed. In HALF_OPEN
// exactly one trial admission is granted; concurrent callers are denied
// until the outstanding probe resolves.
func (b *Breaker) Allow(providerID string) Decision {
	c := b.circuitFor(providerID)
	c.mu.Lock()
	defer c.mu.Unlock()

	now := b.clock.Now()
	switch c.state {
	case Closed:
		return Decision{OK: true, State: Closed}
	case Open:
		reopenAt := c.openedAt.Add(c.cfg.OpenFor)
		if now.Before(reopenAt) {
			return Decision{State: Open, ReopenIn: reopenAt.Sub(now)}
		}
		c.state = HalfOpen
		c.probesInFlight = 1
		b.log.WithField("provider", providerID).Info("circuit half-open, probing")
		return Decision{OK: true, State: HalfOpen}
	case HalfOpen:
		if c.probesInFlight < c.cfg.HalfOpenProbes {
			c.probesInFlight++
			return Decision{OK: true, State: HalfOpen}
		}
		return Decision{State: HalfOpen, ReopenIn: 0}
	}
	return Decision{OK: true, State: Closed}
}

// RecordSuccess closes the circuit and clears the failure streak.
func (b *Breaker) RecordSuccess(providerID string) {
	c := b.circuitFor(providerID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Closed {
		b.log.WithField("provider", providerID).Info("circuit closed")
	}
	c.state = Closed
	c.consecutiveFailures = 0
	c.probesInFlight = 0
}

// RecordFailure notes one upstream-implicated failure. In CLOSED, the
// streak trips the circuit at the threshold; in HALF_OPEN, the probe
// failure reopens immediately.
func (b *Breaker) RecordFailure(providerID string) {
	c := b.circuitFor(providerID)
	c.mu.Lock()
	defer c.mu.Unlock()

	now := b.clock.Now()
	c.consecutiveFailures++
	c.lastFailure = now

	switch c.state {
	case Closed:
		if c.consecutiveFailures >= c.cfg.FailThreshold {
			c.state = Open
			c.openedAt = now
			b.log.WithFields(logrus.Fields{
				"provider": providerID,
				"failures": c.consecutiveFailures,
			}).Warn("circuit opened")
		}
	case HalfOpen:
		c.state = Open
		c.openedAt = now
		c.probesInFlight = 0
		b.log.WithField("provider", providerID).Warn("circuit reopened after failed probe")
	}
}

// Reset forces a provider's circuit back to CLOSED with clear counters.
func (b *Breaker) Reset(providerID string) {
	c := b.circuitFor(providerID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Closed
	c.consecutiveFailures = 0
	c.probesInFlight = 0
}

// Status is a read-only view of one circuit, for the providers command.
type Status struct {
	State               State
	ConsecutiveFailures int
	OpenedAt            time.Time
}

// Status reports the current circuit state for a provider.
func (b *Breaker) Status(providerID string) Status {
	c := b.circuitFor(providerID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, ConsecutiveFailures: c.consecutiveFailures, OpenedAt: c.openedAt}
}
