// ipapi.go — ipapi.co adapter: IP-based geolocation for the weather
// command's location auto-detect.
package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GeoIPQuery asks for the caller's own location; it carries no fields.
type GeoIPQuery struct{}

func buildIPAPIRequest(p *Provider, _ GeoIPQuery) (*RequestSpec, error) {
	return &RequestSpec{
		Method: "GET",
		URL:    strings.TrimSuffix(p.BaseURL, "/") + "/json/",
	}, nil
}

type ipapiResponse struct {
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

func parseIPAPIResponse(body []byte) (*GeoPlace, error) {
	var resp ipapiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode geolocation response: %w", err)
	}
	if resp.Error {
		return nil, fmt.Errorf("geolocation failed: %s", resp.Reason)
	}
	if resp.City == "" && resp.Latitude == 0 && resp.Longitude == 0 {
		return nil, fmt.Errorf("geolocation response is empty")
	}
	return &GeoPlace{
		Name:    resp.City,
		Region:  resp.Region,
		Country: resp.CountryName,
		Lat:     resp.Latitude,
		Lon:     resp.Longitude,
	}, nil
}
