// convert.go — Conversion operation. Units resolve in-process from the
// static tables; currency goes through the dispatcher with a 30-minute
// cache per (base, target, date).
package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mdsaad31/mdsaad-cli/internal/dispatch"
	"github.com/mdsaad31/mdsaad-cli/internal/provider"
)

const currencyNamespace = "currency"

const currencyTTL = 30 * time.Minute

// ConvertRequest is one conversion.
type ConvertRequest struct {
	Amount float64
	From   string
	To     string
	Date   string // YYYY-MM-DD for historical currency rates; "" = latest
}

// ConvertResult is the outcome, for units or currency.
type ConvertResult struct {
	Amount    float64 `json:"amount"`
	Result    float64 `json:"result"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Kind      string  `json:"kind"` // "unit" or "currency"
	Rate      float64 `json:"rate,omitempty"`
	Date      string  `json:"date,omitempty"`
	FromCache bool    `json:"from_cache,omitempty"`
	Via       string  `json:"via,omitempty"`
}

// Convert classifies the pair as unit or currency and converts.
func (o *Ops) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	from, to := strings.TrimSpace(req.From), strings.TrimSpace(req.To)
	if from == "" || to == "" {
		return nil, invalidInput("conversion needs a source and target")
	}

	fromCurrency, toCurrency := IsCurrency(from), IsCurrency(to)
	switch {
	case fromCurrency && toCurrency:
		return o.convertCurrency(ctx, req.Amount, from, to, req.Date)
	case IsUnit(from) && IsUnit(to):
		if req.Date != "" {
			return nil, invalidInput("historical dates only apply to currency conversion")
		}
		result, err := ConvertUnit(req.Amount, from, to)
		if err != nil {
			return nil, invalidInput(err.Error())
		}
		return &ConvertResult{
			Amount: req.Amount, Result: result,
			From: canonicalUnit(from), To: canonicalUnit(to),
			Kind: "unit", Via: ViaLocal,
		}, nil
	case fromCurrency != toCurrency:
		return nil, invalidInput(fmt.Sprintf("cannot convert between %q and %q", from, to))
	default:
		return nil, invalidInput(fmt.Sprintf("unknown units %q and %q", from, to))
	}
}

func (o *Ops) convertCurrency(ctx context.Context, amount float64, from, to, date string) (*ConvertResult, error) {
	base, target := strings.ToUpper(from), strings.ToUpper(to)
	dateKey := date
	if dateKey == "" {
		dateKey = "latest"
	}

	if base == target {
		return &ConvertResult{
			Amount: amount, Result: amount, From: base, To: target,
			Kind: "currency", Rate: 1, Date: dateKey, Via: ViaLocal,
		}, nil
	}

	query := provider.ExchangeQuery{Base: base, Target: target, Date: date}
	through, err := o.Cache.Through(currencyNamespace, []string{base, target, dateKey}, currencyTTL, func() ([]byte, error) {
		value, _, _, err := o.proxyFirst(ctx, provider.CapExchangeRate, query, func() (any, string, error) {
			reply, err := o.Dispatcher.Call(ctx, provider.CapExchangeRate, query, dispatch.Options{})
			if err != nil {
				return nil, "", err
			}
			return reply.Value, reply.ProviderID, nil
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(value.(*provider.ExchangeRate))
	})
	if err != nil {
		return nil, err
	}

	var rate provider.ExchangeRate
	if err := json.Unmarshal(through.Payload, &rate); err != nil {
		return nil, fmt.Errorf("decode cached rate: %w", err)
	}
	via := ViaDirect
	if through.FromCache {
		via = ViaCache
	}
	return &ConvertResult{
		Amount: amount, Result: amount * rate.Rate,
		From: base, To: target,
		Kind: "currency", Rate: rate.Rate, Date: rate.Date,
		FromCache: through.FromCache, Via: via,
	}, nil
}

// defaultRateTargets backs the --rates table when the user has no
// favorites configured.
var defaultRateTargets = []string{"EUR", "GBP", "JPY", "INR", "AUD", "CAD", "CHF", "CNY"}

// Rates returns the current rate from base to each target (favorites from
// configuration, or the default set), reusing the conversion cache.
func (o *Ops) Rates(ctx context.Context, base string, targets []string) ([]ConvertResult, error) {
	if !IsCurrency(base) {
		return nil, invalidInput(fmt.Sprintf("unknown currency %q", base))
	}
	if len(targets) == 0 {
		targets = defaultRateTargets
	}
	var out []ConvertResult
	for _, target := range targets {
		if strings.EqualFold(target, base) {
			continue
		}
		r, err := o.convertCurrency(ctx, 1, base, target, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// ConvertBatch processes one "amount from to" triple per line. Blank
// lines and #-comments are skipped; a malformed line fails the batch.
func (o *Ops) ConvertBatch(ctx context.Context, r io.Reader) ([]ConvertResult, error) {
	var out []ConvertResult
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, invalidInput(fmt.Sprintf("line %d: want \"amount from to\", got %q", lineNo, line))
		}
		amount, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, invalidInput(fmt.Sprintf("line %d: bad amount %q", lineNo, fields[0]))
		}
		result, err := o.Convert(ctx, ConvertRequest{Amount: amount, From: fields[1], To: fields[2]})
		if err != nil {
			return nil, err
		}
		out = append(out, *result)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
