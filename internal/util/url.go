// url.go — URL helpers shared by the secure layer and the adapters.
package util

import (
	"net/url"
)

// EndpointPath extracts the path portion of a URL for use as a rate-limit
// key component. Query parameters are stripped so credentials passed in
// the URL never enter a rate key. Returns "/" when the URL has no path,
// and the input unchanged when it cannot be parsed.
func EndpointPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}
