// nominatim.go — OpenStreetMap Nominatim geocoding adapter: resolves
// free-form place names for the geocoding capability. Weather location
// auto-detection goes through the ipapi geolocation adapter instead.
package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

func buildNominatimRequest(p *Provider, q GeocodeQuery) (*RequestSpec, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, fmt.Errorf("geocode: query is empty")
	}
	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("format", "json")
	params.Set("limit", "5")
	params.Set("addressdetails", "1")
	return &RequestSpec{
		Method: "GET",
		URL:    strings.TrimSuffix(p.BaseURL, "/") + "/search?" + params.Encode(),
	}, nil
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

func parseNominatimResponse(body []byte) ([]GeoPlace, error) {
	var resp []nominatimPlace
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	places := make([]GeoPlace, 0, len(resp))
	for _, pl := range resp {
		lat, _ := strconv.ParseFloat(pl.Lat, 64)
		lon, _ := strconv.ParseFloat(pl.Lon, 64)
		name := pl.Address.City
		if name == "" {
			name = pl.Address.Town
		}
		if name == "" {
			name = pl.Address.Village
		}
		if name == "" {
			name = pl.DisplayName
		}
		places = append(places, GeoPlace{
			Name:    name,
			Region:  pl.Address.State,
			Country: pl.Address.Country,
			Lat:     lat,
			Lon:     lon,
		})
	}
	return places, nil
}
