// core.go — Dependency-injection root. One Core owns one of everything;
// there are no package-level singletons, and tests construct a fresh Core
// per case.
package core

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/mdsaad31/mdsaad-cli/internal/breaker"
	"github.com/mdsaad31/mdsaad-cli/internal/cache"
	"github.com/mdsaad31/mdsaad-cli/internal/clockid"
	"github.com/mdsaad31/mdsaad-cli/internal/config"
	"github.com/mdsaad31/mdsaad-cli/internal/dispatch"
	"github.com/mdsaad31/mdsaad-cli/internal/history"
	"github.com/mdsaad31/mdsaad-cli/internal/ops"
	"github.com/mdsaad31/mdsaad-cli/internal/provider"
	"github.com/mdsaad31/mdsaad-cli/internal/proxy"
	"github.com/mdsaad31/mdsaad-cli/internal/ratelimit"
	"github.com/mdsaad31/mdsaad-cli/internal/secure"
)

// Core wires the whole fabric for one CLI invocation.
type Core struct {
	Config     config.Config
	Log        *logrus.Logger
	Clock      *clockid.Clock
	Cache      *cache.Store
	Limiter    *ratelimit.Limiter
	Breaker    *breaker.Breaker
	Registry   *provider.Registry
	Dispatcher *dispatch.Dispatcher
	Proxy      *proxy.Client
	History    *history.Buffer
	Ops        *ops.Ops
	SessionID  string
}

// Options tunes Core construction.
type Options struct {
	Version    string
	Persistent bool // mirror cache (and history) to ~/.mdsaad/cache
	HTTPClient *http.Client
}

// New builds a Core from resolved configuration.
func New(cfg config.Config, opts Options) *Core {
	log := newLogger(cfg)
	clock := clockid.New(clockwork.NewRealClock())

	cacheOpts := []cache.Option{}
	if opts.Persistent && cfg.CacheDir != "" {
		cacheOpts = append(cacheOpts, cache.WithDir(cfg.CacheDir))
	}
	store := cache.New(clock, log, cacheOpts...)

	limiter := ratelimit.New(clock, log)
	brk := breaker.New(clock, log, breaker.DefaultConfig())
	registry := provider.NewRegistry(cfg.APIKeys, log)
	registry.AttachCircuits(brk)
	for _, p := range registry.All() {
		limiter.Configure(p.ID, ratelimit.Limits{
			RequestsPerWindow: p.RateLimit.RequestsPerWindow,
			Window:            p.RateLimit.Window,
			BurstPerSecond:    p.RateLimit.BurstPerSecond,
		})
		brk.Configure(p.ID, breaker.Config{
			FailThreshold:  p.Circuit.FailThreshold,
			OpenFor:        p.Circuit.OpenFor,
			HalfOpenProbes: p.Circuit.HalfOpenProbes,
		})
	}

	headers := secure.HeaderPolicy{Version: opts.Version}
	signer := secure.Signer{}
	if cfg.SigningSecret != "" {
		signer.Secret = []byte(cfg.SigningSecret)
	}

	dispatcher := dispatch.New(registry, limiter, brk, clock, log, headers, signer, opts.HTTPClient)

	var px *proxy.Client
	if cfg.UseProxy {
		urls := []string{proxy.DefaultPrimaryURL}
		if cfg.ProxyURL != "" {
			urls = []string{cfg.ProxyURL, proxy.DefaultPrimaryURL}
		}
		px = proxy.New(urls, clock, log, headers, opts.HTTPClient)
	}

	hist := history.New(clock, log, store)

	c := &Core{
		Config:     cfg,
		Log:        log,
		Clock:      clock,
		Cache:      store,
		Limiter:    limiter,
		Breaker:    brk,
		Registry:   registry,
		Dispatcher: dispatcher,
		Proxy:      px,
		History:    hist,
		SessionID:  clock.NewSessionID(),
	}
	c.Ops = &ops.Ops{
		Registry:   registry,
		Dispatcher: dispatcher,
		Proxy:      px,
		Cache:      store,
		History:    hist,
		Clock:      clock,
		Log:        log,
	}
	return c
}

// Start launches background workers (the cache sweep). They stop with ctx.
func (c *Core) Start(ctx context.Context) {
	c.Cache.StartSweep(ctx)
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:   cfg.NoColor,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return log
}
