// common.go — Shared utilities for command argument parsing, result
// building, and error-to-exit-code mapping.
package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mdsaad31/mdsaad-cli/cmd/mdsaad/output"
	"github.com/mdsaad31/mdsaad-cli/internal/core"
	"github.com/mdsaad31/mdsaad-cli/internal/dispatch"
)

// Exit codes, matching the CLI contract.
const (
	ExitOK          = 0
	ExitOperation   = 1
	ExitUsage       = 2
	ExitNoProviders = 3
	ExitRateLimited = 4
	ExitCancelled   = 130
)

// Env carries everything a command handler needs.
type Env struct {
	Core      *core.Core
	Formatter output.Formatter
	Out       io.Writer
	Verbose   bool
}

// emit formats one result; formatter failures fall back to stderr-less
// silence (the exit code still carries the outcome).
func (e *Env) emit(result *output.Result) {
	_ = e.Formatter.Format(e.Out, result)
}

// fail renders an error and returns its exit code.
func (e *Env) fail(command string, err error) int {
	result := &output.Result{Success: false, Command: command}
	code := ExitOperation

	ce, ok := dispatch.AsCallError(err)
	if !ok {
		result.Error = err.Error()
		e.emit(result)
		return code
	}

	result.Error = string(ce.Kind)
	switch ce.Kind {
	case dispatch.KindInvalidInput:
		result.Hint = ce.UpstreamMessage
		code = ExitUsage
	case dispatch.KindNoProviders:
		result.Hint = "no provider is configured for this command; set an API key (e.g. OPENROUTER_API_KEY) or edit ~/.mdsaad/config.json"
		code = ExitNoProviders
	case dispatch.KindRateLimited:
		result.Hint = fmt.Sprintf("rate limit exceeded; retry in %s", ce.RetryAfter.Round(1e9))
		code = ExitRateLimited
	case dispatch.KindClient:
		result.Hint = fmt.Sprintf("upstream rejected the request (http %d): %s", ce.Status, ce.UpstreamMessage)
		code = ExitOperation
	case dispatch.KindUpstreamUnavailable:
		result.Hint = "every candidate provider failed; check your network or try again later"
		code = ExitNoProviders
		if e.Verbose && len(ce.Reasons) > 0 {
			table := &output.Table{Headers: []string{"PROVIDER", "REASON"}}
			for _, r := range ce.Reasons {
				table.Rows = append(table.Rows, []string{r.ProviderID, r.Reason})
			}
			result.Table = table
		}
	case dispatch.KindDeadlineExceeded:
		result.Hint = "the operation timed out mid-failover"
		code = ExitOperation
	case dispatch.KindCancelled:
		result.Hint = "cancelled"
		code = ExitCancelled
	}

	e.emit(result)
	return code
}

// parseFlag extracts a flag value from an args slice.
// Returns the value and remaining args (with the flag pair removed).
func parseFlag(args []string, flag string) (string, []string) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			val := args[i+1]
			remaining := make([]string, 0, len(args)-2)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+2:]...)
			return val, remaining
		}
	}
	return "", args
}

// parseFlagInt extracts an integer flag value from an args slice.
func parseFlagInt(args []string, flag string) (int, bool, []string) {
	val, remaining := parseFlag(args, flag)
	if val == "" {
		return 0, false, args
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, args
	}
	return n, true, remaining
}

// parseFlagFloat extracts a float flag value from an args slice.
func parseFlagFloat(args []string, flag string) (float64, bool, []string) {
	val, remaining := parseFlag(args, flag)
	if val == "" {
		return 0, false, args
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, args
	}
	return f, true, remaining
}

// parseFlagBool checks if a boolean flag is present in args.
func parseFlagBool(args []string, flag string) (bool, []string) {
	for i, a := range args {
		if a == flag {
			remaining := make([]string, 0, len(args)-1)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+1:]...)
			return true, remaining
		}
	}
	return false, args
}

// usageError renders an argument problem and returns the usage exit code.
func (e *Env) usageError(command, msg string) int {
	e.emit(&output.Result{Success: false, Command: command, Error: "INVALID_INPUT", Hint: msg})
	return ExitUsage
}
