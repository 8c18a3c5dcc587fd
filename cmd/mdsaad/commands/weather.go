// weather.go — The weather command.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/mdsaad31/mdsaad-cli/cmd/mdsaad/output"
	"github.com/mdsaad31/mdsaad-cli/internal/ops"
	"github.com/mdsaad31/mdsaad-cli/internal/provider"
)

// Weather handles: mdsaad weather [location] [--forecast] [--days N]
// [--units metric|imperial] [--alerts] [--lang L]
func Weather(ctx context.Context, e *Env, args []string) int {
	req := ops.WeatherRequest{}

	req.Units, args = parseFlag(args, "--units")
	req.Lang, args = parseFlag(args, "--lang")
	req.Provider, args = parseFlag(args, "--provider")
	req.Forecast, args = parseFlagBool(args, "--forecast")
	if n, ok, rest := parseFlagInt(args, "--days"); ok {
		req.Days, args = n, rest
		req.Forecast = true
	}
	req.Alerts, args = parseFlagBool(args, "--alerts")
	req.Location = strings.Join(args, " ")

	result, err := e.Core.Ops.Weather(ctx, req)
	if err != nil {
		return e.fail("weather", err)
	}

	res := &output.Result{
		Success:     true,
		Command:     "weather",
		TextContent: renderWeather(&result.Report),
		Data: map[string]any{
			"from_cache": result.FromCache,
			"stale":      result.Stale,
			"via":        result.Via,
		},
	}
	if result.Stale {
		res.TextContent += fmt.Sprintf("(cached %s ago; every provider is currently unreachable)\n", result.Age.Round(1e9))
	}
	e.emit(res)
	return ExitOK
}

// renderWeather produces the human text block for a report.
func renderWeather(r *provider.WeatherReport) string {
	var sb strings.Builder

	tempUnit, speedUnit := "°C", "km/h"
	if r.Units == "imperial" {
		tempUnit, speedUnit = "°F", "mph"
	}

	place := r.Location.Name
	if r.Location.Region != "" {
		place += ", " + r.Location.Region
	}
	if r.Location.Country != "" {
		place += ", " + r.Location.Country
	}
	fmt.Fprintf(&sb, "%s (%.2f, %.2f)\n", place, r.Location.Lat, r.Location.Lon)
	fmt.Fprintf(&sb, "%s, %.1f%s (feels like %.1f%s)\n",
		r.Current.Condition, r.Current.Temperature, tempUnit, r.Current.FeelsLike, tempUnit)
	fmt.Fprintf(&sb, "humidity %d%%  wind %.1f %s  pressure %.0f hPa\n",
		r.Current.HumidityPct, r.Current.Wind.Speed, speedUnit, r.Current.Pressure)
	if r.Current.AirQuality != nil {
		fmt.Fprintf(&sb, "air quality index %d (pm2.5 %.1f)\n", r.Current.AirQuality.Index, r.Current.AirQuality.PM25)
	}
	if r.Current.Sunrise != "" {
		fmt.Fprintf(&sb, "sunrise %s  sunset %s\n", r.Current.Sunrise, r.Current.Sunset)
	}

	for _, day := range r.Forecast {
		fmt.Fprintf(&sb, "%s  %5.1f–%.1f%s  %s  rain %d%%\n",
			day.Date, day.Temperature.Min, day.Temperature.Max, tempUnit, day.Condition, day.PopPct)
	}
	for _, alert := range r.Alerts {
		line := alert.Event
		if alert.Headline != "" {
			line += ": " + alert.Headline
		}
		if alert.Expires != "" {
			line += " (until " + alert.Expires + ")"
		}
		fmt.Fprintf(&sb, "ALERT %s\n", line)
	}
	return sb.String()
}
