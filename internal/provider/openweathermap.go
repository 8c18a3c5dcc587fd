// openweathermap.go — OpenWeatherMap adapter. Current conditions come from
// /weather; the forecast uses the 3-hourly /forecast list aggregated into
// daily buckets, since the daily endpoint needs a paid plan.
package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

func buildOpenWeatherMapRequest(p *Provider, q WeatherQuery) (*RequestSpec, error) {
	if strings.TrimSpace(q.Location) == "" {
		return nil, fmt.Errorf("weather: location is empty")
	}
	endpoint := "/weather"
	if q.Forecast {
		endpoint = "/forecast"
	}
	params := url.Values{}
	params.Set("q", q.Location)
	params.Set("appid", p.Credential)
	params.Set("units", unitsOrDefault(q.Units))
	if q.Lang != "" {
		params.Set("lang", q.Lang)
	}
	return &RequestSpec{
		Method: "GET",
		URL:    strings.TrimSuffix(p.BaseURL, "/") + endpoint + "?" + params.Encode(),
	}, nil
}

type owmConditions struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmCurrent struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []owmConditions `json:"weather"`
	Main    struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  float64 `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"` // meters
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
		Gust  float64 `json:"gust"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Snow struct {
		OneHour float64 `json:"1h"`
	} `json:"snow"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Name string `json:"name"`
}

func parseOpenWeatherMapResponse(body []byte, q WeatherQuery) (*WeatherReport, error) {
	if q.Forecast {
		return parseOWMForecast(body, q)
	}
	var resp owmCurrent
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	var cond owmConditions
	if len(resp.Weather) > 0 {
		cond = resp.Weather[0]
	}
	return &WeatherReport{
		Units: unitsOrDefault(q.Units),
		Location: Location{
			Name:    resp.Name,
			Country: resp.Sys.Country,
			Lat:     resp.Coord.Lat,
			Lon:     resp.Coord.Lon,
		},
		Current: CurrentConditions{
			Temperature: resp.Main.Temp,
			FeelsLike:   resp.Main.FeelsLike,
			HumidityPct: resp.Main.Humidity,
			Pressure:    resp.Main.Pressure,
			Wind: Wind{
				Speed:        resp.Wind.Speed,
				DirectionDeg: resp.Wind.Deg,
				Gust:         resp.Wind.Gust,
			},
			Condition:     cond.Description,
			ConditionCode: cond.ID,
			Icon:          cond.Icon,
			VisibilityKm:  float64(resp.Visibility) / 1000,
			CloudsPct:     resp.Clouds.All,
			RainMm:        resp.Rain.OneHour,
			SnowMm:        resp.Snow.OneHour,
			Sunrise:       formatUnixClock(resp.Sys.Sunrise),
			Sunset:        formatUnixClock(resp.Sys.Sunset),
		},
	}, nil
}

type owmForecast struct {
	City struct {
		Name  string `json:"name"`
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
		Country string `json:"country"`
	} `json:"city"`
	List []struct {
		DtTxt string `json:"dt_txt"` // "2024-05-01 12:00:00"
		Main  struct {
			TempMin float64 `json:"temp_min"`
			TempMax float64 `json:"temp_max"`
		} `json:"main"`
		Weather []owmConditions `json:"weather"`
		Pop     float64         `json:"pop"` // 0..1
		Wind    struct {
			Speed float64 `json:"speed"`
			Deg   float64 `json:"deg"`
		} `json:"wind"`
	} `json:"list"`
}

func parseOWMForecast(body []byte, q WeatherQuery) (*WeatherReport, error) {
	var resp owmForecast
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}

	type bucket struct {
		day ForecastDay
		set bool
	}
	byDate := make(map[string]*bucket)
	var dates []string
	for _, slot := range resp.List {
		if len(slot.DtTxt) < 10 {
			continue
		}
		date := slot.DtTxt[:10]
		b := byDate[date]
		if b == nil {
			b = &bucket{}
			byDate[date] = b
			dates = append(dates, date)
		}
		var cond owmConditions
		if len(slot.Weather) > 0 {
			cond = slot.Weather[0]
		}
		if !b.set {
			b.day = ForecastDay{
				Date:          date,
				Temperature:   TempRange{Min: slot.Main.TempMin, Max: slot.Main.TempMax},
				Condition:     cond.Description,
				ConditionCode: cond.ID,
				Icon:          cond.Icon,
				PopPct:        int(slot.Pop * 100),
				Wind:          Wind{Speed: slot.Wind.Speed, DirectionDeg: slot.Wind.Deg},
			}
			b.set = true
			continue
		}
		if slot.Main.TempMin < b.day.Temperature.Min {
			b.day.Temperature.Min = slot.Main.TempMin
		}
		if slot.Main.TempMax > b.day.Temperature.Max {
			b.day.Temperature.Max = slot.Main.TempMax
		}
		if pop := int(slot.Pop * 100); pop > b.day.PopPct {
			b.day.PopPct = pop
		}
		if slot.Wind.Speed > b.day.Wind.Speed {
			b.day.Wind = Wind{Speed: slot.Wind.Speed, DirectionDeg: slot.Wind.Deg}
		}
		// Prefer a midday condition over the first slot of the day.
		if strings.Contains(slot.DtTxt, "12:00:00") {
			b.day.Condition = cond.Description
			b.day.ConditionCode = cond.ID
			b.day.Icon = cond.Icon
		}
	}
	sort.Strings(dates)

	days := q.Days
	if days <= 0 {
		days = 3
	}
	report := &WeatherReport{
		Units: unitsOrDefault(q.Units),
		Location: Location{
			Name:    resp.City.Name,
			Country: resp.City.Country,
			Lat:     resp.City.Coord.Lat,
			Lon:     resp.City.Coord.Lon,
		},
	}
	for _, date := range dates {
		if len(report.Forecast) >= days {
			break
		}
		report.Forecast = append(report.Forecast, byDate[date].day)
	}
	return report, nil
}

func formatUnixClock(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format("15:04")
}
