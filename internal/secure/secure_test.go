package secure

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https allowed", "https://openrouter.ai/api/v1/chat/completions", false},
		{"wss reserved but allowed", "wss://stream.example.com/v1", false},
		{"http rejected", "http://openrouter.ai/api/v1", true},
		{"ftp rejected", "ftp://example.com", true},
		{"no scheme rejected", "openrouter.ai/api", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateURL(tc.url)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateURL(%q) err = %v, wantErr %v", tc.url, err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInsecureURL) {
				t.Errorf("error %v does not wrap ErrInsecureURL", err)
			}
		})
	}
}

func TestHeaderPolicy(t *testing.T) {
	t.Parallel()
	req, _ := http.NewRequest(http.MethodPost, "https://api.example.com/v1", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	req.Header.Set("X-Real-IP", "10.0.0.1")
	req.Header.Set("CF-Connecting-IP", "10.0.0.1")

	HeaderPolicy{Version: "2.0.0"}.Apply(req, "sk-test", false)

	for _, h := range []string{"X-Forwarded-For", "X-Real-IP", "X-Originating-IP", "CF-Connecting-IP"} {
		if req.Header.Get(h) != "" {
			t.Errorf("header %s survived sanitization", h)
		}
	}
	if got := req.Header.Get("User-Agent"); got != "mdsaad-cli/2.0.0" {
		t.Errorf("User-Agent = %q", got)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header.Get("DNT"); got != "1" {
		t.Errorf("DNT = %q", got)
	}
}

func TestHeaderPolicyAPIKeyInURL(t *testing.T) {
	t.Parallel()
	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/v1?key=abc", nil)
	HeaderPolicy{Version: "2.0.0"}.Apply(req, "abc", true)
	if req.Header.Get("Authorization") != "" {
		t.Error("Authorization header injected for api-key-in-URL provider")
	}
}

func TestSanitizeValue(t *testing.T) {
	t.Parallel()
	in := map[string]any{
		"__proto__":   map[string]any{"polluted": true},
		"myPrototype": "x",
		"content":     `hello <script>alert(1)</script> world`,
		"link":        "javascript:alert(1)",
		"html":        `<img src=x onerror=alert(1)>`,
		"nested": map[string]any{
			"__private": 1,
			"ok":        "fine",
		},
		"list":  []any{"a", "javascript:b"},
		"count": float64(3),
	}

	want := map[string]any{
		"content": "hello  world",
		"link":    "alert(1)",
		"html":    `<img src=x alert(1)>`,
		"nested":  map[string]any{"ok": "fine"},
		"list":    []any{"a", "b"},
		"count":   float64(3),
	}
	if diff := cmp.Diff(want, SanitizeValue(in)); diff != "" {
		t.Errorf("sanitize mismatch (-want +got):\n%s", diff)
	}
}

func TestSignerDisabledIsNoop(t *testing.T) {
	t.Parallel()
	req, _ := http.NewRequest(http.MethodPost, "https://api.example.com", nil)
	if err := (Signer{}).Sign(req, []byte(`{"a":1}`), 123); err != nil {
		t.Fatal(err)
	}
	if req.Header.Get("X-Request-Signature") != "" {
		t.Error("signature set with no secret provisioned")
	}
	if !(Signer{}).Verify("anything", []byte("x")) {
		t.Error("verification must pass when signing is disabled")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	s := Signer{Secret: []byte("per-install-secret")}
	req, _ := http.NewRequest(http.MethodPost, "https://api.example.com", nil)
	body := []byte(`{"b":2,"a":1}`)
	if err := s.Sign(req, body, 1700000000000); err != nil {
		t.Fatal(err)
	}
	sig := req.Header.Get("X-Request-Signature")
	if !strings.HasPrefix(sig, "1700000000000.") {
		t.Fatalf("signature %q missing timestamp prefix", sig)
	}
	// Key order must not matter: canonical form signs identically.
	if !s.Verify(sig, []byte(`{"a":1,"b":2}`)) {
		t.Error("reordered-key body failed verification")
	}
	if s.Verify(sig, []byte(`{"a":1,"b":3}`)) {
		t.Error("tampered body passed verification")
	}
}

func TestCanonicalJSON(t *testing.T) {
	t.Parallel()
	a, err := CanonicalJSON([]byte(`{"z":1,"a":{"y":2,"b":[3,{"k":4,"c":5}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	b, err := CanonicalJSON([]byte(`{"a":{"b":[3,{"c":5,"k":4}],"y":2},"z":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("canonical forms differ:\n%s\n%s", a, b)
	}
}
