// main.go — Entry point for the mdsaad CLI binary.
// Dispatches user commands (chat, weather, convert, and the meta commands)
// through the multi-provider request fabric.
//
// Usage: mdsaad <command> [args] [--flags]
//
// Exit codes:
//
//	0   = success
//	1   = operation error
//	2   = invalid arguments
//	3   = no providers configured / all providers failed
//	4   = rate limit exceeded
//	130 = cancelled
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdsaad31/mdsaad-cli/cmd/mdsaad/commands"
	"github.com/mdsaad31/mdsaad-cli/cmd/mdsaad/output"
	"github.com/mdsaad31/mdsaad-cli/internal/config"
	"github.com/mdsaad31/mdsaad-cli/internal/core"
)

// version is set at build time via -ldflags.
var version = "2.0.0"

const usageText = `mdsaad — AI chat, weather, and conversion from the terminal

Usage:
  mdsaad <command> [args] [--flags]

Commands:
  chat <prompt>              Ask an AI model
  weather [location]         Current conditions or forecast
  convert <amount> <a> <b>   Units or currency
  providers [--reset P]      List providers; optionally reset P's circuit
  models                     List chat model aliases
  history                    Show this session's history
  clear                      Clear history and cache
  quota                      Show rate-limit and cache usage

Global Flags:
  --json       Machine-readable output
  --verbose    Include per-provider detail on failures
  --version    Show version
  --help       Show this help

Examples:
  mdsaad chat "explain goroutines" --model llama-70b
  mdsaad weather London --forecast --days 3
  mdsaad convert 100 usd eur
  mdsaad convert 5 km mi
`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the main entry point, separated for testability.
// Returns the exit code.
func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return commands.ExitUsage
	}

	for _, arg := range args {
		if arg == "--version" || arg == "-v" {
			fmt.Printf("mdsaad %s\n", version)
			return commands.ExitOK
		}
		if arg == "--help" || arg == "-h" {
			fmt.Print(usageText)
			return commands.ExitOK
		}
	}

	command := args[0]
	if command == "help" {
		fmt.Print(usageText)
		return commands.ExitOK
	}
	rest := args[1:]

	jsonOut, rest := extractBool(rest, "--json")
	verbose, rest := extractBool(rest, "--verbose")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration: %v\n", err)
		return commands.ExitUsage
	}

	c := core.New(cfg, core.Options{Version: version, Persistent: true})

	// SIGINT aborts the in-flight call; the fabric reports CANCELLED and
	// the process exits 130.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	c.Start(ctx)

	var formatter output.Formatter = &output.HumanFormatter{NoColor: cfg.NoColor}
	if jsonOut {
		formatter = &output.JSONFormatter{}
	}
	env := &commands.Env{Core: c, Formatter: formatter, Out: os.Stdout, Verbose: verbose}

	switch command {
	case "chat":
		return commands.Chat(ctx, env, rest)
	case "weather":
		return commands.Weather(ctx, env, rest)
	case "convert":
		return commands.Convert(ctx, env, rest)
	case "providers":
		return commands.Providers(ctx, env, rest)
	case "models":
		return commands.Models(ctx, env, rest)
	case "history":
		return commands.History(ctx, env, rest)
	case "clear":
		return commands.Clear(ctx, env, rest)
	case "quota":
		return commands.Quota(ctx, env, rest)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		fmt.Fprint(os.Stderr, usageText)
		return commands.ExitUsage
	}
}

// extractBool removes a boolean flag from args, reporting its presence.
func extractBool(args []string, flag string) (bool, []string) {
	for i, a := range args {
		if a == flag {
			out := make([]string, 0, len(args)-1)
			out = append(out, args[:i]...)
			out = append(out, args[i+1:]...)
			return true, out
		}
	}
	return false, args
}
