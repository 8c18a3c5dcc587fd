package main

import (
	"testing"

	"github.com/mdsaad31/mdsaad-cli/cmd/mdsaad/commands"
)

func TestRunNoArgs(t *testing.T) {
	if code := run(nil); code != commands.ExitUsage {
		t.Errorf("exit code = %d, want %d", code, commands.ExitUsage)
	}
}

func TestRunVersion(t *testing.T) {
	if code := run([]string{"--version"}); code != commands.ExitOK {
		t.Errorf("exit code = %d", code)
	}
}

func TestRunHelp(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"help"}} {
		if code := run(args); code != commands.ExitOK {
			t.Errorf("run(%v) = %d, want 0", args, code)
		}
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if code := run([]string{"frobnicate"}); code != commands.ExitUsage {
		t.Errorf("exit code = %d, want %d", code, commands.ExitUsage)
	}
}

func TestExtractBool(t *testing.T) {
	found, rest := extractBool([]string{"a", "--json", "b"}, "--json")
	if !found || len(rest) != 2 {
		t.Errorf("found=%v rest=%v", found, rest)
	}
	found, rest = extractBool([]string{"a"}, "--json")
	if found || len(rest) != 1 {
		t.Errorf("found=%v rest=%v", found, rest)
	}
}
