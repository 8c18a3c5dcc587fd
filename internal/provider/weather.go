// weather.go — Normalized weather shapes shared by all weather adapters.
// Unit conversion to the user-requested system happens at the adapter
// edge; consumers never convert.
package provider

// Wind is the normalized wind block.
type Wind struct {
	Speed        float64 `json:"speed"`
	DirectionDeg float64 `json:"direction_deg"`
	Gust         float64 `json:"gust"`
}

// AirQuality is the optional pollution block.
type AirQuality struct {
	Index int     `json:"index"` // 1 (good) .. 5 (very poor) scale
	PM25  float64 `json:"pm2_5"`
	PM10  float64 `json:"pm10"`
}

// CurrentConditions is the normalized "now" block. Temperatures are kept
// in the user-requested unit system: Celsius for metric and Fahrenheit for
// imperial.
type CurrentConditions struct {
	Temperature   float64     `json:"temperature"`
	FeelsLike     float64     `json:"feels_like"`
	HumidityPct   int         `json:"humidity_pct"`
	Pressure      float64     `json:"pressure"`
	Wind          Wind        `json:"wind"`
	Condition     string      `json:"condition"`
	ConditionCode int         `json:"condition_code"`
	Icon          string      `json:"icon"`
	VisibilityKm  float64     `json:"visibility_km"`
	UVIndex       float64     `json:"uv_index"`
	CloudsPct     int         `json:"clouds_pct"`
	RainMm        float64     `json:"rain_mm"`
	SnowMm        float64     `json:"snow_mm"`
	AirQuality    *AirQuality `json:"air_quality,omitempty"`
	Sunrise       string      `json:"sunrise"`
	Sunset        string      `json:"sunset"`
}

// TempRange is a forecast day's min/max.
type TempRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ForecastDay is one day of the normalized forecast.
type ForecastDay struct {
	Date          string    `json:"date"`
	Temperature   TempRange `json:"temperature"`
	Condition     string    `json:"condition"`
	ConditionCode int       `json:"condition_code"`
	Icon          string    `json:"icon"`
	PopPct        int       `json:"pop_pct"` // probability of precipitation
	Wind          Wind      `json:"wind"`
}

// Location identifies the resolved place.
type Location struct {
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// WeatherAlert is one active government weather warning.
type WeatherAlert struct {
	Event    string `json:"event"`
	Headline string `json:"headline"`
	Severity string `json:"severity,omitempty"`
	Expires  string `json:"expires,omitempty"`
}

// WeatherReport is the normalized weather reply shape.
type WeatherReport struct {
	Location Location          `json:"location"`
	Current  CurrentConditions `json:"current"`
	Forecast []ForecastDay     `json:"forecast,omitempty"`
	Alerts   []WeatherAlert    `json:"alerts,omitempty"`
	Units    string            `json:"units"`
}
