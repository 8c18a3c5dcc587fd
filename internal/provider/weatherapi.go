// weatherapi.go — weatherapi.com adapter.
package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

func weatherAPIEndpoint(q WeatherQuery) string {
	if q.Forecast {
		return "/forecast.json"
	}
	return "/current.json"
}

func buildWeatherAPIRequest(p *Provider, q WeatherQuery) (*RequestSpec, error) {
	if strings.TrimSpace(q.Location) == "" {
		return nil, fmt.Errorf("weather: location is empty")
	}
	endpoint := weatherAPIEndpoint(q)
	params := url.Values{}
	params.Set("key", p.Credential)
	params.Set("q", q.Location)
	params.Set("aqi", "yes")
	if q.Alerts {
		params.Set("alerts", "yes")
	}
	if q.Lang != "" {
		params.Set("lang", q.Lang)
	}
	if q.Forecast {
		days := q.Days
		if days <= 0 {
			days = 3
		}
		params.Set("days", strconv.Itoa(days))
	}
	return &RequestSpec{
		Method: "GET",
		URL:    strings.TrimSuffix(p.BaseURL, "/") + endpoint + "?" + params.Encode(),
	}, nil
}

type weatherAPIResponse struct {
	Location struct {
		Name    string  `json:"name"`
		Region  string  `json:"region"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	} `json:"location"`
	Current struct {
		TempC      float64 `json:"temp_c"`
		TempF      float64 `json:"temp_f"`
		FeelsLikeC float64 `json:"feelslike_c"`
		FeelsLikeF float64 `json:"feelslike_f"`
		Humidity   int     `json:"humidity"`
		PressureMb float64 `json:"pressure_mb"`
		WindKph    float64 `json:"wind_kph"`
		WindMph    float64 `json:"wind_mph"`
		WindDegree float64 `json:"wind_degree"`
		GustKph    float64 `json:"gust_kph"`
		GustMph    float64 `json:"gust_mph"`
		Condition  struct {
			Text string `json:"text"`
			Code int    `json:"code"`
			Icon string `json:"icon"`
		} `json:"condition"`
		VisKm      float64            `json:"vis_km"`
		UV         float64            `json:"uv"`
		Cloud      int                `json:"cloud"`
		PrecipMm   float64            `json:"precip_mm"`
		AirQuality map[string]float64 `json:"air_quality"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MinTempC  float64 `json:"mintemp_c"`
				MaxTempC  float64 `json:"maxtemp_c"`
				MinTempF  float64 `json:"mintemp_f"`
				MaxTempF  float64 `json:"maxtemp_f"`
				Condition struct {
					Text string `json:"text"`
					Code int    `json:"code"`
					Icon string `json:"icon"`
				} `json:"condition"`
				ChanceOfRain int     `json:"daily_chance_of_rain"`
				MaxWindKph   float64 `json:"maxwind_kph"`
				MaxWindMph   float64 `json:"maxwind_mph"`
			} `json:"day"`
			Astro struct {
				Sunrise string `json:"sunrise"`
				Sunset  string `json:"sunset"`
			} `json:"astro"`
		} `json:"forecastday"`
	} `json:"forecast"`
	Alerts struct {
		Alert []struct {
			Event    string `json:"event"`
			Headline string `json:"headline"`
			Severity string `json:"severity"`
			Expires  string `json:"expires"`
		} `json:"alert"`
	} `json:"alerts"`
}

func parseWeatherAPIResponse(body []byte, q WeatherQuery) (*WeatherReport, error) {
	var resp weatherAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	imperial := q.Units == "imperial"

	report := &WeatherReport{
		Units: unitsOrDefault(q.Units),
		Location: Location{
			Name:    resp.Location.Name,
			Region:  resp.Location.Region,
			Country: resp.Location.Country,
			Lat:     resp.Location.Lat,
			Lon:     resp.Location.Lon,
		},
	}

	cur := resp.Current
	report.Current = CurrentConditions{
		Temperature: pick(imperial, cur.TempF, cur.TempC),
		FeelsLike:   pick(imperial, cur.FeelsLikeF, cur.FeelsLikeC),
		HumidityPct: cur.Humidity,
		Pressure:    cur.PressureMb,
		Wind: Wind{
			Speed:        pick(imperial, cur.WindMph, cur.WindKph),
			DirectionDeg: cur.WindDegree,
			Gust:         pick(imperial, cur.GustMph, cur.GustKph),
		},
		Condition:     cur.Condition.Text,
		ConditionCode: cur.Condition.Code,
		Icon:          cur.Condition.Icon,
		VisibilityKm:  cur.VisKm,
		UVIndex:       cur.UV,
		CloudsPct:     cur.Cloud,
		RainMm:        cur.PrecipMm,
	}
	if len(cur.AirQuality) > 0 {
		report.Current.AirQuality = &AirQuality{
			Index: int(cur.AirQuality["us-epa-index"]),
			PM25:  cur.AirQuality["pm2_5"],
			PM10:  cur.AirQuality["pm10"],
		}
	}

	for i, fd := range resp.Forecast.ForecastDay {
		if i == 0 {
			report.Current.Sunrise = fd.Astro.Sunrise
			report.Current.Sunset = fd.Astro.Sunset
		}
		report.Forecast = append(report.Forecast, ForecastDay{
			Date: fd.Date,
			Temperature: TempRange{
				Min: pick(imperial, fd.Day.MinTempF, fd.Day.MinTempC),
				Max: pick(imperial, fd.Day.MaxTempF, fd.Day.MaxTempC),
			},
			Condition:     fd.Day.Condition.Text,
			ConditionCode: fd.Day.Condition.Code,
			Icon:          fd.Day.Condition.Icon,
			PopPct:        fd.Day.ChanceOfRain,
			Wind:          Wind{Speed: pick(imperial, fd.Day.MaxWindMph, fd.Day.MaxWindKph)},
		})
	}
	if !q.Forecast {
		report.Forecast = nil
	}
	if q.Alerts {
		for _, a := range resp.Alerts.Alert {
			report.Alerts = append(report.Alerts, WeatherAlert{
				Event:    a.Event,
				Headline: a.Headline,
				Severity: a.Severity,
				Expires:  a.Expires,
			})
		}
	}
	return report, nil
}

func unitsOrDefault(units string) string {
	if units == "imperial" {
		return "imperial"
	}
	return "metric"
}

func pick(imperial bool, f, c float64) float64 {
	if imperial {
		return f
	}
	return c
}
