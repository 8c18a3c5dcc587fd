// safego.go — Panic-recovering goroutine launcher.
package util

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// SafeGo launches fn in a goroutine with deferred panic recovery.
// On panic: logs the stack trace through the given logger. Does NOT
// os.Exit — a panic in a background worker (cache sweep, history
// mirroring) must not take down a user's interactive command.
func SafeGo(log *logrus.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Errorf("background goroutine panicked\n%s", debug.Stack())
			}
		}()
		fn()
	}()
}
