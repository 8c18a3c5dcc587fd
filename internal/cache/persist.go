// persist.go — Optional disk mirror: one directory per namespace, one file
// per key (filename = key hash). Disk errors are logged and swallowed; the
// in-memory store is the source of truth.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// diskEntry is the serialized on-disk form.
type diskEntry struct {
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"` // unix ms, wall clock
	TTLMillis int64           `json:"ttl_ms"`
}

type diskMirror struct {
	dir string
	log *logrus.Logger
}

func (d *diskMirror) path(namespace, keyHash string) string {
	return filepath.Join(d.dir, namespace, keyHash+".json")
}

func (d *diskMirror) write(e *entry, wallNow time.Time) {
	de := diskEntry{
		Payload:   json.RawMessage(e.payload),
		CreatedAt: wallNow.UnixMilli(),
		TTLMillis: e.ttl.Milliseconds(),
	}
	if !json.Valid(e.payload) {
		// Non-JSON payloads are stored as a JSON string.
		quoted, err := json.Marshal(string(e.payload))
		if err != nil {
			return
		}
		de.Payload = quoted
	}
	data, err := json.Marshal(de)
	if err != nil {
		d.log.WithError(err).Debug("cache persist: marshal failed")
		return
	}
	dir := filepath.Join(d.dir, e.namespace)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		d.log.WithError(err).Debug("cache persist: mkdir failed")
		return
	}
	if err := os.WriteFile(d.path(e.namespace, e.keyHash), data, 0o600); err != nil {
		d.log.WithError(err).Debug("cache persist: write failed")
	}
}

func (d *diskMirror) remove(namespace, keyHash string) {
	_ = os.Remove(d.path(namespace, keyHash))
}

// restoreFromDisk loads surviving entries into memory. Files that are
// corrupt, unparseable, or already past their TTL are deleted.
func (s *Store) restoreFromDisk() {
	namespaces, err := os.ReadDir(s.disk.dir)
	if err != nil {
		return
	}
	wallNow := s.clock.WallNow()
	monoNow := s.clock.Now()
	for _, nsDir := range namespaces {
		if !nsDir.IsDir() {
			continue
		}
		namespace := nsDir.Name()
		files, err := os.ReadDir(filepath.Join(s.disk.dir, namespace))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
				continue
			}
			keyHash := f.Name()[:len(f.Name())-len(".json")]
			path := s.disk.path(namespace, keyHash)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var de diskEntry
			if err := json.Unmarshal(data, &de); err != nil || de.TTLMillis <= 0 {
				s.log.WithField("file", path).Debug("cache restore: removing corrupt entry")
				_ = os.Remove(path)
				continue
			}
			age := wallNow.UnixMilli() - de.CreatedAt
			if age < 0 {
				age = 0
			}
			remaining := time.Duration(de.TTLMillis-age) * time.Millisecond
			if remaining <= 0 {
				_ = os.Remove(path)
				continue
			}
			e := &entry{
				namespace: namespace,
				keyHash:   keyHash,
				payload:   []byte(de.Payload),
				// Backdate against the monotonic clock so the remaining
				// TTL carries across processes.
				createdAt: monoNow.Add(remaining - time.Duration(de.TTLMillis)*time.Millisecond),
				ttl:       time.Duration(de.TTLMillis) * time.Millisecond,
			}
			if e.size() > s.cap {
				continue
			}
			s.evictLocked(s.cap - e.size())
			s.entries[storeKey(namespace, keyHash)] = e
			s.total += e.size()
		}
	}
}
