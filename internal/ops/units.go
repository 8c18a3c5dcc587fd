// units.go — Static unit tables. Non-temperature families convert through
// a canonical base unit; temperature uses closed-form formulas per pair.
package ops

import (
	"fmt"
	"strings"
)

// unitFamily groups convertible units around a canonical base.
type unitFamily struct {
	name    string
	factors map[string]float64 // unit -> base units per 1 unit
}

var unitFamilies = []unitFamily{
	{
		name: "length", // base: meter
		factors: map[string]float64{
			"mm": 0.001, "cm": 0.01, "m": 1, "km": 1000,
			"in": 0.0254, "ft": 0.3048, "yd": 0.9144, "mi": 1609.344, "nmi": 1852,
		},
	},
	{
		name: "mass", // base: kilogram
		factors: map[string]float64{
			"mg": 1e-6, "g": 0.001, "kg": 1, "t": 1000,
			"oz": 0.028349523125, "lb": 0.45359237, "st": 6.35029318,
		},
	},
	{
		name: "volume", // base: liter
		factors: map[string]float64{
			"ml": 0.001, "l": 1, "m3": 1000,
			"floz": 0.0295735295625, "cup": 0.2365882365, "pt": 0.473176473,
			"qt": 0.946352946, "gal": 3.785411784,
		},
	},
	{
		name: "area", // base: square meter
		factors: map[string]float64{
			"cm2": 0.0001, "m2": 1, "km2": 1e6, "ha": 10000,
			"ft2": 0.09290304, "acre": 4046.8564224,
		},
	},
	{
		name: "speed", // base: meters per second
		factors: map[string]float64{
			"mps": 1, "kmh": 1000.0 / 3600.0, "mph": 0.44704, "knot": 1852.0 / 3600.0,
		},
	},
	{
		name: "data", // base: byte, binary prefixes
		factors: map[string]float64{
			"b": 1, "kb": 1 << 10, "mb": 1 << 20, "gb": 1 << 30, "tb": 1 << 40,
		},
	},
	{
		name: "time", // base: second
		factors: map[string]float64{
			"ms": 0.001, "s": 1, "min": 60, "h": 3600, "day": 86400, "week": 604800,
		},
	},
}

// unitAliases fold common spellings onto table keys.
var unitAliases = map[string]string{
	"meter": "m", "meters": "m", "metre": "m", "kilometer": "km", "kilometers": "km",
	"inch": "in", "inches": "in", "feet": "ft", "foot": "ft", "yard": "yd", "yards": "yd",
	"mile": "mi", "miles": "mi",
	"gram": "g", "grams": "g", "kilogram": "kg", "kilograms": "kg", "tonne": "t",
	"ounce": "oz", "ounces": "oz", "pound": "lb", "pounds": "lb", "lbs": "lb", "stone": "st",
	"liter": "l", "liters": "l", "litre": "l", "gallon": "gal", "gallons": "gal",
	"hour": "h", "hours": "h", "minute": "min", "minutes": "min",
	"second": "s", "seconds": "s", "sec": "s",
	"celsius": "c", "fahrenheit": "f", "kelvin": "k", "rankine": "r",
	"byte": "b", "bytes": "b",
}

func canonicalUnit(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	if alias, ok := unitAliases[u]; ok {
		return alias
	}
	return u
}

// temperatureUnits are handled by closed-form pair formulas, not factors.
var temperatureUnits = map[string]bool{"c": true, "f": true, "k": true, "r": true}

// findFamily locates the family holding a unit, or nil.
func findFamily(unit string) *unitFamily {
	for i := range unitFamilies {
		if _, ok := unitFamilies[i].factors[unit]; ok {
			return &unitFamilies[i]
		}
	}
	return nil
}

// IsUnit reports whether the token names a convertible unit.
func IsUnit(token string) bool {
	u := canonicalUnit(token)
	return temperatureUnits[u] || findFamily(u) != nil
}

// ConvertUnit converts amount between two units of the same family.
func ConvertUnit(amount float64, from, to string) (float64, error) {
	f, t := canonicalUnit(from), canonicalUnit(to)

	if temperatureUnits[f] || temperatureUnits[t] {
		if !temperatureUnits[f] || !temperatureUnits[t] {
			return 0, fmt.Errorf("cannot convert %s to %s", from, to)
		}
		return convertTemperature(amount, f, t)
	}

	fam := findFamily(f)
	if fam == nil {
		return 0, fmt.Errorf("unknown unit %q", from)
	}
	if _, ok := fam.factors[t]; !ok {
		return 0, fmt.Errorf("cannot convert %s (%s) to %s", from, fam.name, to)
	}
	return amount * fam.factors[f] / fam.factors[t], nil
}

// convertTemperature applies the closed-form formula for one pair.
func convertTemperature(v float64, from, to string) (float64, error) {
	if from == to {
		return v, nil
	}
	switch from + ">" + to {
	case "c>f":
		return v*9/5 + 32, nil
	case "f>c":
		return (v - 32) * 5 / 9, nil
	case "c>k":
		return v + 273.15, nil
	case "k>c":
		return v - 273.15, nil
	case "c>r":
		return (v + 273.15) * 9 / 5, nil
	case "r>c":
		return v*5/9 - 273.15, nil
	case "f>k":
		return (v-32)*5/9 + 273.15, nil
	case "k>f":
		return (v-273.15)*9/5 + 32, nil
	case "f>r":
		return v + 459.67, nil
	case "r>f":
		return v - 459.67, nil
	case "k>r":
		return v * 9 / 5, nil
	case "r>k":
		return v * 5 / 9, nil
	}
	return 0, fmt.Errorf("unsupported temperature pair %s to %s", from, to)
}

// currencyCodes is the static ISO-4217 set the convert command accepts.
var currencyCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true,
	"CAD": true, "AUD": true, "NZD": true, "CNY": true, "HKD": true,
	"SGD": true, "INR": true, "PKR": true, "BDT": true, "LKR": true,
	"AED": true, "SAR": true, "QAR": true, "KWD": true, "BHD": true,
	"TRY": true, "RUB": true, "UAH": true, "PLN": true, "CZK": true,
	"SEK": true, "NOK": true, "DKK": true, "HUF": true, "RON": true,
	"BRL": true, "MXN": true, "ARS": true, "CLP": true, "COP": true,
	"ZAR": true, "EGP": true, "NGN": true, "KES": true, "MAD": true,
	"THB": true, "MYR": true, "IDR": true, "PHP": true, "VND": true,
	"KRW": true, "TWD": true, "ILS": true,
}

// IsCurrency reports whether the token is a known currency code.
func IsCurrency(token string) bool {
	return currencyCodes[strings.ToUpper(strings.TrimSpace(token))]
}
