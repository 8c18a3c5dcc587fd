package provider

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestConfigured(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		p    Provider
		want bool
	}{
		{"keyed with credential", Provider{Credential: "sk-abc"}, true},
		{"keyed without credential", Provider{}, false},
		{"keyed with placeholder", Provider{Credential: "YOUR_API_KEY_HERE"}, false},
		{"keyless without credential", Provider{Keyless: true}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.Configured(); got != tc.want {
				t.Errorf("Configured() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestListByCapabilityOrdering(t *testing.T) {
	t.Parallel()
	r := NewRegistry(map[string]string{
		"openrouter": "k1", "groq": "k2", "deepseek": "k3", "gemini": "k4",
	}, testLogger())

	chat := r.ListByCapability(CapChat)
	wantOrder := []string{"openrouter", "groq", "deepseek", "gemini"}
	if len(chat) != len(wantOrder) {
		t.Fatalf("got %d chat providers, want %d", len(chat), len(wantOrder))
	}
	for i, id := range wantOrder {
		if chat[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, chat[i].ID, id)
		}
	}

	// Ordering is stable across calls given identical registry state.
	again := r.ListByCapability(CapChat)
	for i := range chat {
		if chat[i].ID != again[i].ID {
			t.Fatalf("ordering unstable at position %d: %s vs %s", i, chat[i].ID, again[i].ID)
		}
	}
}

func TestSetEnabledExcludesFromList(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil, testLogger())
	if err := r.SetEnabled("frankfurter", false); err != nil {
		t.Fatal(err)
	}
	for _, p := range r.ListByCapability(CapExchangeRate) {
		if p.ID == "frankfurter" {
			t.Fatal("disabled provider still listed")
		}
	}
	if err := r.SetEnabled("nope", true); err == nil {
		t.Error("SetEnabled on unknown provider returned nil error")
	}
}

type fakeResetter struct {
	ids []string
}

func (f *fakeResetter) Reset(providerID string) {
	f.ids = append(f.ids, providerID)
}

func TestResetCircuitDelegates(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil, testLogger())
	fr := &fakeResetter{}
	r.AttachCircuits(fr)

	if err := r.ResetCircuit("openrouter"); err != nil {
		t.Fatal(err)
	}
	if len(fr.ids) != 1 || fr.ids[0] != "openrouter" {
		t.Errorf("delegate saw %v, want [openrouter]", fr.ids)
	}

	if err := r.ResetCircuit("nope"); err == nil {
		t.Error("ResetCircuit on unknown provider returned nil error")
	}
	if len(fr.ids) != 1 {
		t.Errorf("unknown provider still reached delegate: %v", fr.ids)
	}
}

func TestResetCircuitWithoutDelegate(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil, testLogger())
	if err := r.ResetCircuit("openrouter"); err == nil {
		t.Error("ResetCircuit with no breaker attached returned nil error")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil, testLogger())
	p, ok := r.Get("openrouter")
	if !ok {
		t.Fatal("openrouter missing from catalog")
	}
	p.Enabled = false
	p2, _ := r.Get("openrouter")
	if !p2.Enabled {
		t.Fatal("mutating a returned provider reached registry state")
	}
}

func TestResolveModel(t *testing.T) {
	t.Parallel()
	r := NewRegistry(map[string]string{"openrouter": "k", "groq": "k"}, testLogger())

	// Alias resolution lands on the highest-priority provider carrying it.
	id, wire, ok := r.ResolveModel("llama-70b")
	if !ok || id != "openrouter" {
		t.Fatalf("ResolveModel(llama-70b) = (%s, %s, %v), want openrouter", id, wire, ok)
	}

	// Wire ids resolve through the reverse index.
	id, wire, ok = r.ResolveModel("llama-3.1-8b-instant")
	if !ok || id != "groq" || wire != "llama-3.1-8b-instant" {
		t.Fatalf("ResolveModel(wire id) = (%s, %s, %v)", id, wire, ok)
	}

	if _, _, ok := r.ResolveModel("no-such-model"); ok {
		t.Error("unknown model resolved")
	}
}

func TestWireModelFallbacks(t *testing.T) {
	t.Parallel()
	p := Provider{
		ModelAliases: map[string]string{"fast": "vendor/fast-1"},
		DefaultModel: "fast",
	}
	if got := p.WireModel(""); got != "vendor/fast-1" {
		t.Errorf("empty alias resolved to %q, want default", got)
	}
	if got := p.WireModel("fast"); got != "vendor/fast-1" {
		t.Errorf("alias resolved to %q", got)
	}
	if got := p.WireModel("vendor/custom"); got != "vendor/custom" {
		t.Errorf("unknown alias rewritten to %q, want pass-through", got)
	}
}
