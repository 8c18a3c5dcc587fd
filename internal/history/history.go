// history.go — Bounded per-session conversation log. Entries are immutable
// records of successful operations, dropped FIFO past the cap. The buffer
// mirrors itself into the cache asynchronously so a later invocation can
// restore it.
package history

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mdsaad31/mdsaad-cli/internal/cache"
	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
	"github.com/mdsaad31/mdsaad-cli/internal/util"
)

// Entry is one successful operation.
type Entry struct {
	Timestamp     time.Time `json:"timestamp"`
	OperationKind string    `json:"operation_kind"` // "chat", "weather", "convert"
	Prompt        string    `json:"prompt"`
	Reply         string    `json:"reply"`
	ProviderID    string    `json:"provider_id"`
	ModelID       string    `json:"model_id"`
	Summary       string    `json:"summary"` // truncated reply for listings
}

// DefaultCap is the number of entries a session keeps.
const DefaultCap = 50

// mirrorTTL is how long the persisted buffer survives between invocations.
const mirrorTTL = 24 * time.Hour

const cacheNamespace = "conversation_history"

// Buffer is the bounded FIFO. Safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	cap     int
	store   *cache.Store // nil disables mirroring
	clock   *clockid.Clock
	log     *logrus.Logger
}

// New creates a buffer, restoring a mirrored session from the cache when
// one is present.
func New(clock *clockid.Clock, log *logrus.Logger, store *cache.Store) *Buffer {
	b := &Buffer{cap: DefaultCap, store: store, clock: clock, log: log}
	if store != nil {
		if hit, ok := store.Get(cacheNamespace, "session"); ok {
			var entries []Entry
			if err := json.Unmarshal(hit.Payload, &entries); err == nil {
				b.entries = entries
			}
		}
	}
	return b
}

// SummaryLimit bounds the truncated reply stored for listings.
const SummaryLimit = 80

// Summarize truncates a reply for display in history listings.
func Summarize(reply string) string {
	runes := []rune(reply)
	if len(runes) <= SummaryLimit {
		return reply
	}
	return string(runes[:SummaryLimit-1]) + "…"
}

// Append records one completed operation, dropping the oldest entry when
// the buffer is full, then mirrors the buffer asynchronously.
func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	if e.Timestamp.IsZero() {
		e.Timestamp = b.clock.WallNow()
	}
	if e.Summary == "" {
		e.Summary = Summarize(e.Reply)
	}
	b.entries = append(b.entries, e)
	if len(b.entries) > b.cap {
		b.entries = b.entries[len(b.entries)-b.cap:]
	}
	snapshot := make([]Entry, len(b.entries))
	copy(snapshot, b.entries)
	b.mu.Unlock()

	if b.store != nil {
		util.SafeGo(b.log, func() {
			payload, err := json.Marshal(snapshot)
			if err != nil {
				return
			}
			b.store.Set(cacheNamespace, []string{"session"}, payload, mirrorTTL)
		})
	}
}

// Recent returns the last k entries, oldest first.
func (b *Buffer) Recent(k int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if k <= 0 || k > len(b.entries) {
		k = len(b.entries)
	}
	out := make([]Entry, k)
	copy(out, b.entries[len(b.entries)-k:])
	return out
}

// All returns the full buffer, oldest first.
func (b *Buffer) All() []Entry {
	return b.Recent(0)
}

// Len reports the current entry count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clear empties the buffer and its cache mirror.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
	if b.store != nil {
		b.store.ClearNamespace(cacheNamespace)
	}
}
