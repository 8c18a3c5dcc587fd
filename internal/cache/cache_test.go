package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(clockid.New(fc), log, opts...), fc
}

// ============================================
// Key derivation
// ============================================

func TestKeyDeterminism(t *testing.T) {
	t.Parallel()
	a := Key("weather", "weatherapi", "london", "metric")
	b := Key("weather", "weatherapi", "london", "metric")
	if a != b {
		t.Fatalf("identical inputs produced %q and %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("key length = %d, want 16", len(a))
	}
}

func TestKeyNamespaceSeparation(t *testing.T) {
	t.Parallel()
	if Key("weather", "x") == Key("currency", "x") {
		t.Fatal("different namespaces produced identical keys")
	}
}

func TestKeyBoundaryUnambiguous(t *testing.T) {
	t.Parallel()
	// Without length prefixing these two would concatenate identically.
	cases := [][2][]string{
		{{"ab", "c"}, {"a", "bc"}},
		{{"a\x1fb"}, {"a", "b"}},
		{{"", "x"}, {"x", ""}},
	}
	for i, c := range cases {
		if Key("ns", c[0]...) == Key("ns", c[1]...) {
			t.Errorf("case %d: parts %q and %q collide", i, c[0], c[1])
		}
	}
}

// ============================================
// TTL and round-trip
// ============================================

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	payload := []byte(`{"temp":11.5}`)
	s.Set("weather", []string{"london"}, payload, time.Hour)

	hit, ok := s.Get("weather", "london")
	if !ok {
		t.Fatal("miss after set")
	}
	if !bytes.Equal(hit.Payload, payload) {
		t.Fatalf("payload = %q, want %q", hit.Payload, payload)
	}
	if hit.Stale {
		t.Error("fresh entry reported stale")
	}
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()
	s, fc := newTestStore(t)
	s.Set("weather", []string{"london"}, []byte("x"), 30*time.Minute)

	fc.Advance(29 * time.Minute)
	if _, ok := s.Get("weather", "london"); !ok {
		t.Fatal("miss within TTL")
	}
	fc.Advance(time.Minute)
	if _, ok := s.Get("weather", "london"); ok {
		t.Fatal("hit strictly after TTL")
	}
}

func TestGetStaleFallback(t *testing.T) {
	t.Parallel()
	s, fc := newTestStore(t)
	s.Set("weather", []string{"london"}, []byte("old"), time.Minute)
	fc.Advance(2 * time.Minute)

	if _, ok := s.Get("weather", "london"); ok {
		t.Fatal("Get returned expired entry")
	}
	hit, ok := s.GetStale("weather", "london")
	if !ok || !hit.Stale {
		t.Fatalf("GetStale = (%+v, %v), want stale hit", hit, ok)
	}
}

func TestPayloadIsolation(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	payload := []byte("abc")
	s.Set("ns", []string{"k"}, payload, time.Hour)
	payload[0] = 'z' // caller mutation must not reach the store

	hit, _ := s.Get("ns", "k")
	if hit.Payload[0] != 'a' {
		t.Fatal("store shares backing array with caller")
	}
	hit.Payload[1] = 'z' // consumer mutation must not reach the store
	hit2, _ := s.Get("ns", "k")
	if hit2.Payload[1] != 'b' {
		t.Fatal("store handed out shared payload slice")
	}
}

// ============================================
// Size cap and eviction
// ============================================

func TestEvictionKeepsTotalUnderCap(t *testing.T) {
	t.Parallel()
	s, fc := newTestStore(t, WithSizeCap(100))

	for i := 0; i < 50; i++ {
		s.Set("ns", []string{fmt.Sprintf("k%d", i)}, make([]byte, 10), time.Hour)
		fc.Advance(time.Millisecond)
		if st := s.Stats(); st.TotalBytes > 100 {
			t.Fatalf("after set %d: total bytes %d exceed cap", i, st.TotalBytes)
		}
	}
}

func TestEvictionIsOldestFirst(t *testing.T) {
	t.Parallel()
	s, fc := newTestStore(t, WithSizeCap(30))

	s.Set("ns", []string{"old"}, make([]byte, 10), time.Hour)
	fc.Advance(time.Second)
	s.Set("ns", []string{"mid"}, make([]byte, 10), time.Hour)
	fc.Advance(time.Second)
	s.Set("ns", []string{"new"}, make([]byte, 10), time.Hour)
	fc.Advance(time.Second)
	s.Set("ns", []string{"newest"}, make([]byte, 10), time.Hour)

	if _, ok := s.Get("ns", "old"); ok {
		t.Error("oldest entry survived eviction")
	}
	for _, k := range []string{"mid", "new", "newest"} {
		if _, ok := s.Get("ns", k); !ok {
			t.Errorf("entry %q evicted out of order", k)
		}
	}
}

func TestOversizePayloadDropped(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t, WithSizeCap(10))
	s.Set("ns", []string{"big"}, make([]byte, 11), time.Hour)
	if _, ok := s.Get("ns", "big"); ok {
		t.Fatal("payload larger than cap was stored")
	}
}

// ============================================
// Namespace operations and stats
// ============================================

func TestClearNamespace(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	s.Set("weather", []string{"a"}, []byte("1"), time.Hour)
	s.Set("currency", []string{"b"}, []byte("2"), time.Hour)

	s.ClearNamespace("weather")
	if _, ok := s.Get("weather", "a"); ok {
		t.Error("weather entry survived ClearNamespace")
	}
	if _, ok := s.Get("currency", "b"); !ok {
		t.Error("currency entry removed by foreign ClearNamespace")
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	s.Set("weather", []string{"a"}, make([]byte, 5), time.Hour)
	s.Set("weather", []string{"b"}, make([]byte, 7), time.Hour)
	s.Set("currency", []string{"c"}, make([]byte, 3), time.Hour)

	want := Stats{
		TotalEntries: 3,
		TotalBytes:   15,
		PerNamespace: map[string]NamespaceStats{
			"weather":  {Entries: 2, Bytes: 12},
			"currency": {Entries: 1, Bytes: 3},
		},
	}
	if diff := cmp.Diff(want, s.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

// ============================================
// Through middleware
// ============================================

func TestThroughFetchesOnceThenCaches(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("fresh"), nil
	}

	r1, err := s.Through("weather", []string{"london"}, time.Hour, fetch)
	if err != nil || r1.FromCache {
		t.Fatalf("first Through = (%+v, %v), want miss-then-fetch", r1, err)
	}
	r2, err := s.Through("weather", []string{"london"}, time.Hour, fetch)
	if err != nil || !r2.FromCache {
		t.Fatalf("second Through = (%+v, %v), want cache hit", r2, err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if !bytes.Equal(r1.Payload, r2.Payload) {
		t.Error("cached payload differs from fetched payload")
	}
}

func TestThroughErrorDoesNotPoison(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	boom := errors.New("upstream down")

	_, err := s.Through("weather", []string{"london"}, time.Hour, func() ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if _, ok := s.Get("weather", "london"); ok {
		t.Fatal("failed fetch left an entry behind")
	}

	// A later successful fetch proceeds normally.
	r, err := s.Through("weather", []string{"london"}, time.Hour, func() ([]byte, error) {
		return []byte("ok"), nil
	})
	if err != nil || r.FromCache {
		t.Fatalf("recovery Through = (%+v, %v)", r, err)
	}
}

// ============================================
// Sweep
// ============================================

func TestSweepRemovesExpired(t *testing.T) {
	t.Parallel()
	s, fc := newTestStore(t)
	s.Set("ns", []string{"short"}, []byte("x"), time.Minute)
	s.Set("ns", []string{"long"}, []byte("y"), time.Hour)

	fc.Advance(2 * time.Minute)
	s.sweepOnce()

	st := s.Stats()
	if st.TotalEntries != 1 {
		t.Fatalf("entries after sweep = %d, want 1", st.TotalEntries)
	}
	if _, ok := s.Get("ns", "long"); !ok {
		t.Error("live entry removed by sweep")
	}
}

// ============================================
// Disk persistence
// ============================================

func TestPersistAndRestore(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(io.Discard)

	s1 := New(clockid.New(clockwork.NewRealClock()), log, WithDir(dir))
	s1.Set("weather", []string{"london"}, []byte(`{"t":1}`), time.Hour)

	s2 := New(clockid.New(clockwork.NewRealClock()), log, WithDir(dir))
	hit, ok := s2.Get("weather", "london")
	if !ok {
		t.Fatal("entry not restored from disk")
	}
	if !bytes.Equal(hit.Payload, []byte(`{"t":1}`)) {
		t.Errorf("restored payload = %q", hit.Payload)
	}
}

func TestRestoreDeletesCorruptFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	nsDir := filepath.Join(dir, "weather")
	if err := os.MkdirAll(nsDir, 0o700); err != nil {
		t.Fatal(err)
	}
	corrupt := filepath.Join(nsDir, "deadbeefdeadbeef.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	_ = New(clockid.New(clockwork.NewRealClock()), log, WithDir(dir))

	if _, err := os.Stat(corrupt); !os.IsNotExist(err) {
		t.Fatal("corrupt cache file not deleted on load")
	}
}
