// secure.go — Outbound request policy: URL scheme validation, header
// hygiene, and optional HMAC request signing.
package secure

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// ErrInsecureURL is returned for any direct-call URL that is not https.
// wss is reserved for streaming WebSocket transports; no current operation
// uses it.
var ErrInsecureURL = errors.New("only https URLs are allowed for provider calls")

// ValidateURL enforces the TLS-only URL policy for direct provider calls.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse provider URL: %w", err)
	}
	switch parsed.Scheme {
	case "https", "wss":
		return nil
	default:
		return fmt.Errorf("%w: got scheme %q", ErrInsecureURL, parsed.Scheme)
	}
}

// forwardedHeaders are caller-supplied headers that must never leak upstream.
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Originating-IP",
	"CF-Connecting-IP",
}

// HeaderPolicy carries the identity injected into every outbound request.
type HeaderPolicy struct {
	Version string
}

// Apply strips spoofable forwarding headers and injects the standard
// client identity. Bearer authorization is added for providers that carry
// a credential unless the provider passes its key in the URL instead.
func (p HeaderPolicy) Apply(req *http.Request, credential string, apiKeyInURL bool) {
	for _, h := range forwardedHeaders {
		req.Header.Del(h)
	}
	req.Header.Set("User-Agent", "mdsaad-cli/"+p.Version)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("DNT", "1")
	if credential != "" && !apiKeyInURL {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
}

// Signer computes the optional X-Request-Signature header. With no secret
// provisioned it is a no-op; the fabric ships no baked-in constant because
// a hard-coded secret provides no integrity guarantee.
type Signer struct {
	Secret []byte
}

// Enabled reports whether a per-install secret has been provisioned.
func (s Signer) Enabled() bool { return len(s.Secret) > 0 }

// Sign computes HMAC-SHA256(secret, canonical_json(body) || "." || ts) and
// sets X-Request-Signature: <ts>.<hex>. Bodies that are not valid JSON are
// signed as-is.
func (s Signer) Sign(req *http.Request, body []byte, timestampMillis int64) error {
	if !s.Enabled() {
		return nil
	}
	canonical, err := CanonicalJSON(body)
	if err != nil {
		canonical = body
	}
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write(canonical)
	fmt.Fprintf(mac, ".%d", timestampMillis)
	req.Header.Set("X-Request-Signature", fmt.Sprintf("%d.%s", timestampMillis, hex.EncodeToString(mac.Sum(nil))))
	return nil
}

// Verify checks a response signature produced symmetrically by Sign.
func (s Signer) Verify(signature string, body []byte) bool {
	if !s.Enabled() {
		return true
	}
	dot := strings.IndexByte(signature, '.')
	if dot <= 0 {
		return false
	}
	ts, hexMac := signature[:dot], signature[dot+1:]
	canonical, err := CanonicalJSON(body)
	if err != nil {
		canonical = body
	}
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write(canonical)
	mac.Write([]byte("." + ts))
	want, err := hex.DecodeString(hexMac)
	if err != nil {
		return false
	}
	return hmac.Equal(want, mac.Sum(nil))
}

// CanonicalJSON re-encodes a JSON document with object keys sorted so that
// semantically identical bodies sign identically.
func CanonicalJSON(body []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	var sb strings.Builder
	if err := writeCanonical(&sb, v); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func writeCanonical(sb *strings.Builder, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			sb.Write(kb)
			sb.WriteByte(':')
			if err := writeCanonical(sb, t[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeCanonical(sb, e); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		sb.Write(b)
	}
	return nil
}
