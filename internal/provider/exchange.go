// exchange.go — Currency-rate adapters: frankfurter.app and
// exchangerate.host. Both are keyless public APIs with the same
// {rates, date} response family.
package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

func buildFrankfurterRequest(p *Provider, q ExchangeQuery) (*RequestSpec, error) {
	if q.Base == "" || q.Target == "" {
		return nil, fmt.Errorf("exchange: base and target are required")
	}
	endpoint := "/latest"
	if q.Date != "" {
		endpoint = "/" + q.Date
	}
	params := url.Values{}
	params.Set("from", strings.ToUpper(q.Base))
	params.Set("to", strings.ToUpper(q.Target))
	return &RequestSpec{
		Method:   "GET",
		URL:      strings.TrimSuffix(p.BaseURL, "/") + endpoint + "?" + params.Encode(),
		Endpoint: "/latest", // one rate-limit bucket for latest and historical
	}, nil
}

type frankfurterResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

func parseFrankfurterResponse(body []byte, q ExchangeQuery) (*ExchangeRate, error) {
	var resp frankfurterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}
	target := strings.ToUpper(q.Target)
	rate, ok := resp.Rates[target]
	if !ok {
		return nil, fmt.Errorf("rate response missing %s", target)
	}
	return &ExchangeRate{
		Base:   strings.ToUpper(q.Base),
		Target: target,
		Rate:   rate,
		Date:   resp.Date,
	}, nil
}

func buildExchangeHostRequest(p *Provider, q ExchangeQuery) (*RequestSpec, error) {
	if q.Base == "" || q.Target == "" {
		return nil, fmt.Errorf("exchange: base and target are required")
	}
	endpoint := "/latest"
	if q.Date != "" {
		endpoint = "/" + q.Date
	}
	params := url.Values{}
	params.Set("base", strings.ToUpper(q.Base))
	params.Set("symbols", strings.ToUpper(q.Target))
	return &RequestSpec{
		Method:   "GET",
		URL:      strings.TrimSuffix(p.BaseURL, "/") + endpoint + "?" + params.Encode(),
		Endpoint: "/latest",
	}, nil
}

type exchangeHostResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

func parseExchangeHostResponse(body []byte, q ExchangeQuery) (*ExchangeRate, error) {
	var resp exchangeHostResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}
	target := strings.ToUpper(q.Target)
	rate, ok := resp.Rates[target]
	if !ok {
		return nil, fmt.Errorf("rate response missing %s", target)
	}
	return &ExchangeRate{
		Base:   strings.ToUpper(q.Base),
		Target: target,
		Rate:   rate,
		Date:   resp.Date,
	}, nil
}
