// catalog.go — Built-in provider defaults. Credentials are merged in from
// the configuration cascade at registry construction; nothing here carries
// a real key.
package provider

import "time"

// chatRateLimit is the shared default for chat providers: 100 calls per
// hour with a 3-per-second burst cap.
var chatRateLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Hour, BurstPerSecond: 3}

// defaultCircuit matches the fabric-wide breaker defaults.
var defaultCircuit = CircuitConfig{FailThreshold: 5, OpenFor: 30 * time.Second, HalfOpenProbes: 1}

// Catalog returns the built-in provider set. Each call returns fresh
// copies; the registry owns the instances it hands out.
func Catalog() []*Provider {
	return []*Provider{
		{
			ID:        "openrouter",
			BaseURL:   "https://openrouter.ai/api/v1",
			Priority:  1,
			Enabled:   true,
			RateLimit: chatRateLimit,
			Circuit:   defaultCircuit,
			Supports:  []Capability{CapChat, CapStreaming},
			Adapter:   AdapterOpenAIChat,
			ModelAliases: map[string]string{
				"auto":          "openrouter/auto",
				"gpt-4o-mini":   "openai/gpt-4o-mini",
				"llama-70b":     "meta-llama/llama-3.1-70b-instruct",
				"deepseek-chat": "deepseek/deepseek-chat",
			},
			DefaultModel: "auto",
			Timeout:      60 * time.Second,
		},
		{
			ID:        "groq",
			BaseURL:   "https://api.groq.com/openai/v1",
			Priority:  2,
			Enabled:   true,
			RateLimit: chatRateLimit,
			Circuit:   defaultCircuit,
			Supports:  []Capability{CapChat, CapStreaming},
			Adapter:   AdapterOpenAIChat,
			ModelAliases: map[string]string{
				"llama-8b":  "llama-3.1-8b-instant",
				"llama-70b": "llama-3.3-70b-versatile",
				"mixtral":   "mixtral-8x7b-32768",
			},
			DefaultModel: "llama-8b",
			Timeout:      60 * time.Second,
		},
		{
			ID:        "deepseek",
			BaseURL:   "https://api.deepseek.com/v1",
			Priority:  3,
			Enabled:   true,
			RateLimit: chatRateLimit,
			Circuit:   defaultCircuit,
			Supports:  []Capability{CapChat, CapStreaming},
			Adapter:   AdapterOpenAIChat,
			ModelAliases: map[string]string{
				"deepseek-chat":     "deepseek-chat",
				"deepseek-reasoner": "deepseek-reasoner",
			},
			DefaultModel: "deepseek-chat",
			Timeout:      60 * time.Second,
		},
		{
			ID:          "gemini",
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			Priority:    4,
			Enabled:     true,
			APIKeyInURL: true,
			RateLimit:   chatRateLimit,
			Circuit:     defaultCircuit,
			Supports:    []Capability{CapChat},
			Adapter:     AdapterGeminiChat,
			ModelAliases: map[string]string{
				"gemini-flash": "gemini-1.5-flash",
				"gemini-pro":   "gemini-1.5-pro",
			},
			DefaultModel: "gemini-flash",
			Timeout:      60 * time.Second,
		},
		{
			ID:          "weatherapi",
			BaseURL:     "https://api.weatherapi.com/v1",
			Priority:    1,
			Enabled:     true,
			APIKeyInURL: true,
			RateLimit:   RateLimitConfig{RequestsPerWindow: 300, Window: time.Hour, BurstPerSecond: 5},
			Circuit:     defaultCircuit,
			Supports:    []Capability{CapWeatherCurrent, CapWeatherForecast, CapAirQuality},
			Adapter:     AdapterWeatherAPI,
			Timeout:     30 * time.Second,
		},
		{
			ID:          "openweathermap",
			BaseURL:     "https://api.openweathermap.org/data/2.5",
			Priority:    2,
			Enabled:     true,
			APIKeyInURL: true,
			RateLimit:   RateLimitConfig{RequestsPerWindow: 60, Window: time.Minute, BurstPerSecond: 5},
			Circuit:     defaultCircuit,
			Supports:    []Capability{CapWeatherCurrent, CapWeatherForecast},
			Adapter:     AdapterOpenWeatherMap,
			Timeout:     30 * time.Second,
		},
		{
			ID:        "frankfurter",
			BaseURL:   "https://api.frankfurter.app",
			Priority:  1,
			Enabled:   true,
			Keyless:   true,
			RateLimit: RateLimitConfig{RequestsPerWindow: 120, Window: time.Hour, BurstPerSecond: 5},
			Circuit:   defaultCircuit,
			Supports:  []Capability{CapExchangeRate},
			Adapter:   AdapterFrankfurter,
			Timeout:   30 * time.Second,
		},
		{
			ID:        "exchangerate-host",
			BaseURL:   "https://api.exchangerate.host",
			Priority:  2,
			Enabled:   true,
			Keyless:   true,
			RateLimit: RateLimitConfig{RequestsPerWindow: 120, Window: time.Hour, BurstPerSecond: 5},
			Circuit:   defaultCircuit,
			Supports:  []Capability{CapExchangeRate},
			Adapter:   AdapterExchangeHost,
			Timeout:   30 * time.Second,
		},
		{
			ID:        "ipapi",
			BaseURL:   "https://ipapi.co",
			Priority:  1,
			Enabled:   true,
			Keyless:   true,
			RateLimit: RateLimitConfig{RequestsPerWindow: 30, Window: time.Hour, BurstPerSecond: 1},
			Circuit:   defaultCircuit,
			Supports:  []Capability{CapGeolocation},
			Adapter:   AdapterIPAPI,
			Timeout:   30 * time.Second,
		},
		{
			ID:       "nominatim",
			BaseURL:  "https://nominatim.openstreetmap.org",
			Priority: 1,
			Enabled:  true,
			Keyless:  true,
			// Nominatim's usage policy is one request per second.
			RateLimit: RateLimitConfig{RequestsPerWindow: 60, Window: time.Minute, BurstPerSecond: 1},
			Circuit:   defaultCircuit,
			Supports:  []Capability{CapGeocoding},
			Adapter:   AdapterNominatim,
			Timeout:   30 * time.Second,
		},
	}
}
