// weather.go — Weather operation: location resolution, cached proxy-first
// dispatch, and stale-fallback when every upstream is down.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mdsaad31/mdsaad-cli/internal/dispatch"
	"github.com/mdsaad31/mdsaad-cli/internal/provider"
	"github.com/mdsaad31/mdsaad-cli/internal/proxy"
)

const weatherNamespace = "weather"

// Cache lifetimes: current conditions go stale faster than forecasts.
const (
	currentTTL  = 30 * time.Minute
	forecastTTL = 60 * time.Minute
)

// WeatherRequest is one user weather invocation.
type WeatherRequest struct {
	Location string // "lat,lon", city, or "city,region"; empty auto-detects
	Forecast bool
	Days     int
	Units    string // metric (default) | imperial
	Lang     string
	Alerts   bool   // include active weather warnings
	Provider string // preferred provider id
}

// WeatherResult is a completed weather lookup.
type WeatherResult struct {
	Report        provider.WeatherReport
	FromCache     bool
	Stale         bool
	Age           time.Duration
	Via           string
	ProxyAttempts []proxy.Attempt
}

var latLonRe = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)

// normalizeLocation canonicalizes a location for cache keying: lat,lon
// pairs keep their numeric form, names are lowercased with collapsed
// whitespace.
func normalizeLocation(location string) string {
	if m := latLonRe.FindStringSubmatch(location); m != nil {
		return m[1] + "," + m[2]
	}
	return strings.Join(strings.Fields(strings.ToLower(location)), " ")
}

// Weather resolves the location, then serves the report through the cache.
func (o *Ops) Weather(ctx context.Context, req WeatherRequest) (*WeatherResult, error) {
	if req.Units == "" {
		req.Units = "metric"
	}
	if req.Units != "metric" && req.Units != "imperial" {
		return nil, invalidInput(fmt.Sprintf("unknown unit system %q", req.Units))
	}
	if req.Forecast && req.Days <= 0 {
		req.Days = 3
	}

	location := strings.TrimSpace(req.Location)
	if location == "" {
		place, err := o.detectLocation(ctx)
		if err != nil {
			return nil, err
		}
		location = fmt.Sprintf("%g,%g", place.Lat, place.Lon)
		o.Log.WithField("location", place.Name).Debug("weather: location auto-detected")
	}

	capability := provider.CapWeatherCurrent
	ttl := currentTTL
	daysKey := "current"
	if req.Forecast {
		capability = provider.CapWeatherForecast
		ttl = forecastTTL
		daysKey = fmt.Sprintf("%d", req.Days)
	}
	family := req.Provider
	if family == "" {
		family = "auto"
	}
	// Alert-bearing replies get their own cache slot so a plain lookup
	// never serves (or misses) warnings it was not asked for.
	if req.Alerts {
		daysKey += "+alerts"
	}
	keyParts := []string{family, normalizeLocation(location), req.Units, req.Lang, daysKey}

	query := provider.WeatherQuery{
		Location: location,
		Units:    req.Units,
		Lang:     req.Lang,
		Days:     req.Days,
		Forecast: req.Forecast,
		Alerts:   req.Alerts,
	}

	result := &WeatherResult{}
	through, err := o.Cache.Through(weatherNamespace, keyParts, ttl, func() ([]byte, error) {
		value, via, attempts, err := o.proxyFirst(ctx, capability, query, func() (any, string, error) {
			reply, err := o.Dispatcher.Call(ctx, capability, query, dispatch.Options{PreferredProvider: req.Provider})
			if err != nil {
				return nil, "", err
			}
			return reply.Value, reply.ProviderID, nil
		})
		result.Via = via
		result.ProxyAttempts = attempts
		if err != nil {
			return nil, err
		}
		return json.Marshal(value.(*provider.WeatherReport))
	})
	if err != nil {
		// Stale fallback: an expired report beats no report when every
		// upstream is down, but only for upstream-side failures.
		if kind := dispatch.KindOf(err); kind == dispatch.KindUpstreamUnavailable {
			if hit, ok := o.Cache.GetStale(weatherNamespace, keyParts...); ok && hit.Stale {
				var report provider.WeatherReport
				if jsonErr := json.Unmarshal(hit.Payload, &report); jsonErr == nil {
					o.Log.Debug("weather: serving stale cache after upstream failure")
					return &WeatherResult{Report: report, FromCache: true, Stale: true, Age: hit.Age, Via: ViaCache}, nil
				}
			}
		}
		return nil, err
	}

	var report provider.WeatherReport
	if err := json.Unmarshal(through.Payload, &report); err != nil {
		return nil, fmt.Errorf("decode cached weather report: %w", err)
	}
	result.Report = report
	result.FromCache = through.FromCache
	result.Age = through.Age
	if through.FromCache {
		result.Via = ViaCache
	}
	return result, nil
}

// detectLocation finds the user's coordinates via the geolocation
// capability.
func (o *Ops) detectLocation(ctx context.Context) (*provider.GeoPlace, error) {
	reply, err := o.Dispatcher.Call(ctx, provider.CapGeolocation, provider.GeoIPQuery{}, dispatch.Options{})
	if err != nil {
		return nil, err
	}
	return reply.Value.(*provider.GeoPlace), nil
}

// Geocode resolves a free-form place name through the geocoding provider.
func (o *Ops) Geocode(ctx context.Context, query string) ([]provider.GeoPlace, error) {
	if strings.TrimSpace(query) == "" {
		return nil, invalidInput("geocode query is empty")
	}
	reply, err := o.Dispatcher.Call(ctx, provider.CapGeocoding, provider.GeocodeQuery{Query: query}, dispatch.Options{})
	if err != nil {
		return nil, err
	}
	return reply.Value.([]provider.GeoPlace), nil
}
