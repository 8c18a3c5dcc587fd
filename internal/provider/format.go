// format.go — Tagged-variant adapter dispatch. BuildRequest and
// ParseResponse are the only entry points the dispatcher uses; each case
// delegates to the pure functions of one adapter family.
package provider

import (
	"fmt"

	"github.com/mdsaad31/mdsaad-cli/internal/util"
)

// RequestSpec is a fully-formed upstream request, ready for the secure
// layer and the HTTP client.
type RequestSpec struct {
	Method   string
	URL      string
	Body     []byte // nil for GET
	Endpoint string // path used as the rate-limit key component
}

// BuildRequest formats payload for one provider according to its adapter
// tag. payload must match the capability: ChatPayload for chat,
// WeatherQuery for weather_current/weather_forecast, ExchangeQuery for
// exchange_rate, GeocodeQuery for geocoding. The rate-limit endpoint is
// derived from the built URL (query stripped, so credentials never enter
// rate keys); adapters set it explicitly only where the derived path is
// wrong, e.g. the exchange adapters folding historical dates into one
// bucket.
func BuildRequest(p *Provider, cap Capability, payload any) (*RequestSpec, error) {
	spec, err := buildRequest(p, cap, payload)
	if err != nil {
		return nil, err
	}
	if spec.Endpoint == "" {
		spec.Endpoint = util.EndpointPath(spec.URL)
	}
	return spec, nil
}

func buildRequest(p *Provider, cap Capability, payload any) (*RequestSpec, error) {
	switch p.Adapter {
	case AdapterOpenAIChat:
		chat, ok := payload.(ChatPayload)
		if !ok {
			return nil, fmt.Errorf("adapter %s: unexpected payload %T", p.Adapter, payload)
		}
		return buildOpenAIRequest(p, chat)
	case AdapterGeminiChat:
		chat, ok := payload.(ChatPayload)
		if !ok {
			return nil, fmt.Errorf("adapter %s: unexpected payload %T", p.Adapter, payload)
		}
		return buildGeminiRequest(p, chat)
	case AdapterWeatherAPI:
		q, ok := payload.(WeatherQuery)
		if !ok {
			return nil, fmt.Errorf("adapter %s: unexpected payload %T", p.Adapter, payload)
		}
		return buildWeatherAPIRequest(p, q)
	case AdapterOpenWeatherMap:
		q, ok := payload.(WeatherQuery)
		if !ok {
			return nil, fmt.Errorf("adapter %s: unexpected payload %T", p.Adapter, payload)
		}
		return buildOpenWeatherMapRequest(p, q)
	case AdapterFrankfurter:
		q, ok := payload.(ExchangeQuery)
		if !ok {
			return nil, fmt.Errorf("adapter %s: unexpected payload %T", p.Adapter, payload)
		}
		return buildFrankfurterRequest(p, q)
	case AdapterExchangeHost:
		q, ok := payload.(ExchangeQuery)
		if !ok {
			return nil, fmt.Errorf("adapter %s: unexpected payload %T", p.Adapter, payload)
		}
		return buildExchangeHostRequest(p, q)
	case AdapterNominatim:
		q, ok := payload.(GeocodeQuery)
		if !ok {
			return nil, fmt.Errorf("adapter %s: unexpected payload %T", p.Adapter, payload)
		}
		return buildNominatimRequest(p, q)
	case AdapterIPAPI:
		q, ok := payload.(GeoIPQuery)
		if !ok {
			return nil, fmt.Errorf("adapter %s: unexpected payload %T", p.Adapter, payload)
		}
		return buildIPAPIRequest(p, q)
	}
	return nil, fmt.Errorf("unknown adapter %q", p.Adapter)
}

// ParseResponse decodes a successful upstream body into the normalized
// reply type for the capability: *NormalizedReply for chat,
// *WeatherReport for weather, *ExchangeRate for exchange_rate, []GeoPlace
// for geocoding.
func ParseResponse(p *Provider, cap Capability, payload any, body []byte) (any, error) {
	switch p.Adapter {
	case AdapterOpenAIChat:
		return parseOpenAIResponse(body)
	case AdapterGeminiChat:
		return parseGeminiResponse(body)
	case AdapterWeatherAPI:
		q, _ := payload.(WeatherQuery)
		return parseWeatherAPIResponse(body, q)
	case AdapterOpenWeatherMap:
		q, _ := payload.(WeatherQuery)
		return parseOpenWeatherMapResponse(body, q)
	case AdapterFrankfurter:
		q, _ := payload.(ExchangeQuery)
		return parseFrankfurterResponse(body, q)
	case AdapterExchangeHost:
		q, _ := payload.(ExchangeQuery)
		return parseExchangeHostResponse(body, q)
	case AdapterNominatim:
		return parseNominatimResponse(body)
	case AdapterIPAPI:
		return parseIPAPIResponse(body)
	}
	return nil, fmt.Errorf("unknown adapter %q", p.Adapter)
}
