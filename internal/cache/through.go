// through.go — Read-through convenience wrapper and the background sweep.
package cache

import (
	"context"
	"time"

	"github.com/mdsaad31/mdsaad-cli/internal/util"
)

// ThroughResult carries the payload and whether it came from cache.
type ThroughResult struct {
	Payload   []byte
	FromCache bool
	Age       time.Duration
}

// Through implements the read-through idiom: a fresh hit is returned as-is;
// otherwise fetch runs and its result is stored. A fetch error is returned
// to the caller without touching the cache, so failures cannot poison it.
// At-most-one-in-flight per key is deliberately not enforced — operations
// are user-initiated and serialized per session.
func (s *Store) Through(namespace string, parts []string, ttl time.Duration, fetch func() ([]byte, error)) (ThroughResult, error) {
	if hit, ok := s.Get(namespace, parts...); ok {
		return ThroughResult{Payload: hit.Payload, FromCache: true, Age: hit.Age}, nil
	}
	payload, err := fetch()
	if err != nil {
		return ThroughResult{}, err
	}
	s.Set(namespace, parts, payload, ttl)
	return ThroughResult{Payload: payload}, nil
}

// SweepInterval is how often the background sweep scans for expired entries.
const SweepInterval = 5 * time.Minute

// StartSweep launches the background expiry sweep. It stops when ctx is
// cancelled. The sweep must never block user operations; it holds the
// store lock only to scan and in short sections to remove single entries.
func (s *Store) StartSweep(ctx context.Context) {
	util.SafeGo(s.log, func() {
		ticker := s.clock.NewTicker(SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.sweepOnce()
			}
		}
	})
}
