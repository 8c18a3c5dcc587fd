// cache.go — Namespaced key/value store with TTL, content-addressed keys,
// a total-size cap with oldest-first eviction, and optional disk mirroring.
// Cache failures never surface to callers: a read error degrades to a miss
// and a write error to a silent drop, with an internal log line.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
)

// entry is one stored value. Payloads are immutable after insert; Get hands
// out copies so consumers cannot mutate shared state.
type entry struct {
	namespace string
	keyHash   string
	payload   []byte
	createdAt time.Time
	ttl       time.Duration
}

func (e *entry) size() int64 { return int64(len(e.payload)) }

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) >= e.ttl
}

// Store is the in-memory cache. All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	clock   *clockid.Clock
	log     *logrus.Logger
	entries map[string]*entry // namespace + "/" + keyHash
	total   int64
	cap     int64
	disk    *diskMirror // nil when persistence is off
}

// Option configures a Store.
type Option func(*Store)

// WithSizeCap bounds total payload bytes across all namespaces.
func WithSizeCap(capBytes int64) Option {
	return func(s *Store) { s.cap = capBytes }
}

// WithDir enables disk persistence under dir (one subdirectory per
// namespace, one file per key). Corrupt files are deleted on load.
func WithDir(dir string) Option {
	return func(s *Store) { s.disk = &diskMirror{dir: dir} }
}

// DefaultSizeCap is 50 MiB of payload across all namespaces.
const DefaultSizeCap = 50 << 20

// New creates a Store. When persistence is enabled, surviving entries are
// restored before New returns.
func New(clock *clockid.Clock, log *logrus.Logger, opts ...Option) *Store {
	s := &Store{
		clock:   clock,
		log:     log,
		entries: make(map[string]*entry),
		cap:     DefaultSizeCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.disk != nil {
		s.disk.log = log
		s.restoreFromDisk()
	}
	return s
}

// Key derives the 16-hex-char content address for (namespace, parts...).
// Each component is length-prefixed before joining, so no byte sequence in
// a part can collide with the separator or a neighboring part boundary.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	writePart := func(p string) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
		h.Write([]byte{0x1f})
	}
	writePart(namespace)
	for _, p := range parts {
		writePart(p)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func storeKey(namespace, keyHash string) string { return namespace + "/" + keyHash }

// Hit is a successful cache read.
type Hit struct {
	Payload []byte
	Age     time.Duration
	Stale   bool
}

// Get returns a copy of the live entry for (namespace, parts...), or ok =
// false on miss or TTL expiry. TTL is re-checked here regardless of the
// background sweep.
func (s *Store) Get(namespace string, parts ...string) (Hit, bool) {
	return s.get(namespace, parts, false)
}

// GetStale is Get but will also return an expired entry, marked Stale, for
// callers that explicitly want the stale-fallback behavior.
func (s *Store) GetStale(namespace string, parts ...string) (Hit, bool) {
	return s.get(namespace, parts, true)
}

func (s *Store) get(namespace string, parts []string, allowStale bool) (Hit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[storeKey(namespace, Key(namespace, parts...))]
	if e == nil {
		return Hit{}, false
	}
	now := s.clock.Now()
	stale := e.expired(now)
	if stale && !allowStale {
		return Hit{}, false
	}
	payload := make([]byte, len(e.payload))
	copy(payload, e.payload)
	return Hit{Payload: payload, Age: now.Sub(e.createdAt), Stale: stale}, true
}

// Set stores payload under (namespace, parts...) with the given TTL,
// evicting oldest-created entries first when the projected total would
// exceed the size cap. Writes for the same key are last-writer-wins.
func (s *Store) Set(namespace string, parts []string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keyHash := Key(namespace, parts...)
	sk := storeKey(namespace, keyHash)
	if old := s.entries[sk]; old != nil {
		s.total -= old.size()
		delete(s.entries, sk)
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)
	e := &entry{
		namespace: namespace,
		keyHash:   keyHash,
		payload:   stored,
		createdAt: s.clock.Now(),
		ttl:       ttl,
	}

	if e.size() > s.cap {
		s.log.WithFields(logrus.Fields{"namespace": namespace, "bytes": e.size()}).
			Debug("cache: payload exceeds total cap, dropped")
		return
	}
	s.evictLocked(s.cap - e.size())

	s.entries[sk] = e
	s.total += e.size()

	if s.disk != nil {
		s.disk.write(e, s.clock.WallNow())
	}
}

// evictLocked removes oldest-created entries until total <= budget.
func (s *Store) evictLocked(budget int64) {
	if s.total <= budget {
		return
	}
	ordered := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].createdAt.Before(ordered[j].createdAt)
	})
	for _, e := range ordered {
		if s.total <= budget {
			break
		}
		s.removeLocked(e)
	}
}

func (s *Store) removeLocked(e *entry) {
	sk := storeKey(e.namespace, e.keyHash)
	if s.entries[sk] == e {
		delete(s.entries, sk)
		s.total -= e.size()
		if s.disk != nil {
			s.disk.remove(e.namespace, e.keyHash)
		}
	}
}

// Invalidate removes the entry for (namespace, parts...), if present.
func (s *Store) Invalidate(namespace string, parts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entries[storeKey(namespace, Key(namespace, parts...))]; e != nil {
		s.removeLocked(e)
	}
}

// ClearNamespace removes every entry in one namespace.
func (s *Store) ClearNamespace(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.namespace == namespace {
			s.removeLocked(e)
		}
	}
}

// ClearAll empties the store.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		s.removeLocked(e)
	}
}

// Stats summarizes current occupancy.
type Stats struct {
	TotalEntries int
	TotalBytes   int64
	PerNamespace map[string]NamespaceStats
}

// NamespaceStats is per-namespace occupancy.
type NamespaceStats struct {
	Entries int
	Bytes   int64
}

// Stats reports entry and byte counts, total and per namespace.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{PerNamespace: make(map[string]NamespaceStats)}
	for _, e := range s.entries {
		st.TotalEntries++
		st.TotalBytes += e.size()
		ns := st.PerNamespace[e.namespace]
		ns.Entries++
		ns.Bytes += e.size()
		st.PerNamespace[e.namespace] = ns
	}
	return st
}

// sweepOnce removes TTL-expired entries. The scan holds the lock briefly;
// Get re-checks TTL anyway so the sweep is advisory.
func (s *Store) sweepOnce() {
	s.mu.Lock()
	now := s.clock.Now()
	var dead []*entry
	for _, e := range s.entries {
		if e.expired(now) {
			dead = append(dead, e)
		}
	}
	s.mu.Unlock()

	for _, e := range dead {
		s.mu.Lock()
		s.removeLocked(e)
		s.mu.Unlock()
	}
	if len(dead) > 0 {
		s.log.WithField("removed", len(dead)).Debug("cache sweep")
	}
}
