// registry.go — Typed catalog of upstream providers. The registry owns its
// Provider instances exclusively; readers get copies. Read-mostly: lookups
// take the read lock, enable/disable take the write lock.
package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// CircuitResetter is the slice of the circuit breaker the registry needs
// to serve circuit resets. Implemented by *breaker.Breaker.
type CircuitResetter interface {
	Reset(providerID string)
}

// Registry holds every known provider, keyed by ID.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Provider
	circuits  CircuitResetter
	log       *logrus.Logger
}

// NewRegistry builds the registry from the built-in catalog merged with
// credentials from the configuration cascade (config file overridden by
// environment — the caller resolves that order; the map here is final).
// A keyed provider whose credential is missing or still the YOUR_
// placeholder stays in the registry but reports Configured() == false.
func NewRegistry(credentials map[string]string, log *logrus.Logger) *Registry {
	r := &Registry{providers: make(map[string]*Provider), log: log}
	for _, p := range Catalog() {
		if cred, ok := credentials[p.ID]; ok {
			p.Credential = cred
		}
		if !p.Configured() {
			log.WithField("provider", p.ID).Debug("provider unconfigured, skipped for dispatch")
		}
		r.providers[p.ID] = p
	}
	return r
}

// NewRegistryFrom builds a registry over an explicit provider set. Used by
// tests and by tools that point the fabric at mock upstreams.
func NewRegistryFrom(providers []*Provider, log *logrus.Logger) *Registry {
	r := &Registry{providers: make(map[string]*Provider), log: log}
	for _, p := range providers {
		r.providers[p.ID] = p
	}
	return r
}

// Get returns a copy of one provider.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return Provider{}, false
	}
	return *p, true
}

// All returns copies of every provider, priority then ID order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, *p)
	}
	sortProviders(out)
	return out
}

// ListByCapability returns enabled providers declaring cap, sorted by
// priority ascending with provider ID as the deterministic tie-break.
func (r *Registry) ListByCapability(cap Capability) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Provider
	for _, p := range r.providers {
		if p.Enabled && p.Has(cap) {
			out = append(out, *p)
		}
	}
	sortProviders(out)
	return out
}

func sortProviders(ps []Provider) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Priority != ps[j].Priority {
			return ps[i].Priority < ps[j].Priority
		}
		return ps[i].ID < ps[j].ID
	})
}

// SetEnabled flips one provider's enabled flag.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return fmt.Errorf("unknown provider %q", id)
	}
	p.Enabled = enabled
	return nil
}

// AttachCircuits hands the registry its circuit-reset delegate. Called once
// at wiring time, before any ResetCircuit.
func (r *Registry) AttachCircuits(c CircuitResetter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.circuits = c
}

// ResetCircuit forces a known provider's circuit back to closed.
func (r *Registry) ResetCircuit(id string) error {
	r.mu.RLock()
	_, known := r.providers[id]
	circuits := r.circuits
	r.mu.RUnlock()

	if !known {
		return fmt.Errorf("unknown provider %q", id)
	}
	if circuits == nil {
		return fmt.Errorf("no circuit breaker attached")
	}
	circuits.Reset(id)
	r.log.WithField("provider", id).Info("circuit reset")
	return nil
}

// ResolveModel finds which provider serves a model alias (or wire id) and
// returns the provider ID with the resolved wire model. Providers are
// scanned in priority order so a shared alias lands on the preferred one.
func (r *Registry) ResolveModel(alias string) (providerID, wireModel string, ok bool) {
	if strings.TrimSpace(alias) == "" {
		return "", "", false
	}
	for _, p := range r.All() {
		if !p.Has(CapChat) {
			continue
		}
		if wire, found := p.ModelAliases[alias]; found {
			return p.ID, wire, true
		}
		for _, wire := range p.ModelAliases {
			if wire == alias {
				return p.ID, wire, true
			}
		}
	}
	return "", "", false
}
