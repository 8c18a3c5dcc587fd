// time.go — Retry-After header parsing.
package util

import (
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter interprets an HTTP Retry-After header value as a duration.
// Accepts delta-seconds ("120") and HTTP-date forms. Returns fallback when
// the header is absent or unparseable.
func ParseRetryAfter(header string, now time.Time, fallback time.Duration) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := time.Parse(time.RFC1123, header); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return fallback
}
