// ops.go — Operation layer: thin logic over the proxy layer and the
// dispatcher. Each operation validates input, decides proxy-vs-direct,
// consults the cache, and normalizes the outcome for the CLI.
package ops

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/mdsaad31/mdsaad-cli/internal/cache"
	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
	"github.com/mdsaad31/mdsaad-cli/internal/dispatch"
	"github.com/mdsaad31/mdsaad-cli/internal/history"
	"github.com/mdsaad31/mdsaad-cli/internal/provider"
	"github.com/mdsaad31/mdsaad-cli/internal/proxy"
)

// Via tags where a reply came from.
const (
	ViaProxy  = "proxy"
	ViaDirect = "direct"
	ViaCache  = "cache"
	ViaLocal  = "local"
)

// Ops bundles the collaborators every operation needs.
type Ops struct {
	Registry   *provider.Registry
	Dispatcher *dispatch.Dispatcher
	Proxy      *proxy.Client // nil or disabled when proxy fallback is off
	Cache      *cache.Store
	History    *history.Buffer
	Clock      *clockid.Clock
	Log        *logrus.Logger
}

// proxyFirst runs a capability through the proxy layer, falling through
// to fetch (the direct path) only on proxy exhaustion. A proxy 429 is
// surfaced, never bypassed.
func (o *Ops) proxyFirst(ctx context.Context, cap provider.Capability, payload any,
	direct func() (any, string, error)) (value any, via string, attempts []proxy.Attempt, err error) {

	if o.Proxy != nil && o.Proxy.Enabled() {
		value, attempts, proxyErr := o.Proxy.Do(ctx, cap, payload)
		if proxyErr == nil {
			return value, ViaProxy, attempts, nil
		}
		if !errors.Is(proxyErr, proxy.ErrExhausted) {
			return nil, ViaProxy, attempts, proxyErr
		}
		o.Log.WithField("capability", cap).Debug("proxy exhausted, going direct")
		value2, _, directErr := direct()
		return value2, ViaDirect, attempts, directErr
	}

	value, _, err = direct()
	return value, ViaDirect, nil, err
}

// invalidInput builds the caller-fault error the CLI maps to exit code 2.
func invalidInput(msg string) error {
	return &dispatch.CallError{Kind: dispatch.KindInvalidInput, UpstreamMessage: msg}
}
