package breaker

import (
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
)

func newTestBreaker(cfg Config) (*Breaker, clockwork.FakeClock) {
	fc := clockwork.NewFakeClock()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(clockid.New(fc), log, cfg), fc
}

func TestClosedAlwaysAllows(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(Config{})
	for i := 0; i < 100; i++ {
		if d := b.Allow("p"); !d.OK || d.State != Closed {
			t.Fatalf("allow %d = %+v, want OK in CLOSED", i, d)
		}
	}
}

// TestTripMonotonicity: fail_threshold consecutive failures with no
// interleaved success deterministically open the circuit.
func TestTripMonotonicity(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(Config{FailThreshold: 5})

	for i := 0; i < 4; i++ {
		b.RecordFailure("p")
		if s := b.Status("p"); s.State != Closed {
			t.Fatalf("state after %d failures = %s, want CLOSED", i+1, s.State)
		}
	}
	b.RecordFailure("p")
	if s := b.Status("p"); s.State != Open {
		t.Fatalf("state after 5 failures = %s, want OPEN", s.State)
	}
}

func TestSuccessClearsStreak(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(Config{FailThreshold: 3})

	b.RecordFailure("p")
	b.RecordFailure("p")
	b.RecordSuccess("p")
	b.RecordFailure("p")
	b.RecordFailure("p")
	if s := b.Status("p"); s.State != Closed {
		t.Fatalf("state = %s after interleaved success, want CLOSED", s.State)
	}
	b.RecordFailure("p")
	if s := b.Status("p"); s.State != Open {
		t.Fatalf("state = %s after 3 consecutive failures, want OPEN", s.State)
	}
}

// TestReopenBoundary: OPEN denies for every now < openedAt+openFor and
// grants exactly one probe at the boundary.
func TestReopenBoundary(t *testing.T) {
	t.Parallel()
	b, fc := newTestBreaker(Config{FailThreshold: 1, OpenFor: 30 * time.Second})

	b.RecordFailure("p")

	if d := b.Allow("p"); d.OK {
		t.Fatal("allow immediately after trip succeeded")
	}
	fc.Advance(29 * time.Second)
	d := b.Allow("p")
	if d.OK {
		t.Fatal("allow at 29s succeeded, want denial")
	}
	if d.ReopenIn != time.Second {
		t.Errorf("reopen in = %v, want 1s", d.ReopenIn)
	}

	fc.Advance(time.Second)
	if d := b.Allow("p"); !d.OK || d.State != HalfOpen {
		t.Fatalf("allow at boundary = %+v, want half-open probe", d)
	}
	// Only one probe outstanding.
	if d := b.Allow("p"); d.OK {
		t.Fatal("second concurrent half-open probe allowed")
	}
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	t.Parallel()
	b, fc := newTestBreaker(Config{FailThreshold: 1, OpenFor: time.Second})

	b.RecordFailure("p")
	fc.Advance(time.Second)
	if d := b.Allow("p"); !d.OK {
		t.Fatalf("probe denied: %+v", d)
	}
	b.RecordSuccess("p")

	s := b.Status("p")
	if s.State != Closed || s.ConsecutiveFailures != 0 {
		t.Fatalf("status after probe success = %+v, want CLOSED with zero failures", s)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()
	b, fc := newTestBreaker(Config{FailThreshold: 1, OpenFor: time.Second})

	b.RecordFailure("p")
	fc.Advance(time.Second)
	if d := b.Allow("p"); !d.OK {
		t.Fatalf("probe denied: %+v", d)
	}
	b.RecordFailure("p")

	if s := b.Status("p"); s.State != Open {
		t.Fatalf("state after probe failure = %s, want OPEN", s.State)
	}
	// openedAt moved forward: a full OpenFor must elapse again.
	if d := b.Allow("p"); d.OK {
		t.Fatal("allow right after reopen succeeded")
	}
	fc.Advance(time.Second)
	if d := b.Allow("p"); !d.OK {
		t.Fatalf("probe after second open window denied: %+v", d)
	}
}

func TestResetForcesClosed(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(Config{FailThreshold: 1, OpenFor: time.Hour})

	b.RecordFailure("p")
	if s := b.Status("p"); s.State != Open {
		t.Fatalf("state = %s, want OPEN", s.State)
	}
	b.Reset("p")
	s := b.Status("p")
	if s.State != Closed || s.ConsecutiveFailures != 0 {
		t.Fatalf("status after reset = %+v, want clean CLOSED", s)
	}
}

func TestProvidersAreIndependent(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(Config{FailThreshold: 1})

	b.RecordFailure("p")
	if d := b.Allow("q"); !d.OK {
		t.Fatalf("q affected by p's trip: %+v", d)
	}
}
