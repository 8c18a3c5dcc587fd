// convert.go — The convert command.
package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/mdsaad31/mdsaad-cli/cmd/mdsaad/output"
	"github.com/mdsaad31/mdsaad-cli/internal/ops"
)

// Convert handles: mdsaad convert <amount> <from> <to>
// [--historical YYYY-MM-DD] [--rates] [--batch FILE]
func Convert(ctx context.Context, e *Env, args []string) int {
	date, args := parseFlag(args, "--historical")
	batchFile, args := parseFlag(args, "--batch")
	rates, args := parseFlagBool(args, "--rates")

	switch {
	case batchFile != "":
		return convertBatch(ctx, e, batchFile)
	case rates:
		base := "USD"
		if len(args) > 0 {
			base = args[len(args)-1]
		}
		return convertRates(ctx, e, base)
	}

	if len(args) != 3 {
		return e.usageError("convert", "usage: mdsaad convert <amount> <from> <to>")
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return e.usageError("convert", fmt.Sprintf("bad amount %q", args[0]))
	}

	result, err := e.Core.Ops.Convert(ctx, ops.ConvertRequest{
		Amount: amount, From: args[1], To: args[2], Date: date,
	})
	if err != nil {
		return e.fail("convert", err)
	}

	text := fmt.Sprintf("%g %s = %g %s\n", result.Amount, result.From, result.Result, result.To)
	if result.Kind == "currency" {
		text += fmt.Sprintf("rate %g (%s)\n", result.Rate, result.Date)
	}
	e.emit(&output.Result{
		Success:     true,
		Command:     "convert",
		TextContent: text,
		Data: map[string]any{
			"result": result.Result, "rate": result.Rate, "kind": result.Kind,
			"from_cache": result.FromCache, "via": result.Via,
		},
	})
	return ExitOK
}

func convertRates(ctx context.Context, e *Env, base string) int {
	results, err := e.Core.Ops.Rates(ctx, base, e.Core.Config.ConvertFavorites)
	if err != nil {
		return e.fail("convert", err)
	}
	table := &output.Table{Headers: []string{"PAIR", "RATE", "DATE"}}
	for _, r := range results {
		table.Rows = append(table.Rows, []string{
			r.From + "/" + r.To,
			strconv.FormatFloat(r.Rate, 'g', -1, 64),
			r.Date,
		})
	}
	e.emit(&output.Result{Success: true, Command: "convert", Table: table})
	return ExitOK
}

func convertBatch(ctx context.Context, e *Env, path string) int {
	f, err := os.Open(path)
	if err != nil {
		return e.usageError("convert", fmt.Sprintf("cannot open batch file: %v", err))
	}
	defer f.Close()

	results, err := e.Core.Ops.ConvertBatch(ctx, f)
	if err != nil {
		return e.fail("convert", err)
	}
	table := &output.Table{Headers: []string{"AMOUNT", "FROM", "TO", "RESULT"}}
	for _, r := range results {
		table.Rows = append(table.Rows, []string{
			strconv.FormatFloat(r.Amount, 'g', -1, 64),
			r.From, r.To,
			strconv.FormatFloat(r.Result, 'g', -1, 64),
		})
	}
	e.emit(&output.Result{Success: true, Command: "convert", Table: table})
	return ExitOK
}
