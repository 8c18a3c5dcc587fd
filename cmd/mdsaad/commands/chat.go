// chat.go — The chat command.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/mdsaad31/mdsaad-cli/cmd/mdsaad/output"
	"github.com/mdsaad31/mdsaad-cli/internal/ops"
)

// Chat handles: mdsaad chat <prompt> [--model M] [--provider P]
// [--temperature T] [--max-tokens N] [--stream] [--system S]
// [--context none|recent|all]
func Chat(ctx context.Context, e *Env, args []string) int {
	req := ops.ChatRequest{}

	req.Model, args = parseFlag(args, "--model")
	req.Provider, args = parseFlag(args, "--provider")
	req.System, args = parseFlag(args, "--system")
	req.ContextMode, args = parseFlag(args, "--context")
	if t, ok, rest := parseFlagFloat(args, "--temperature"); ok {
		req.Temperature, args = t, rest
	}
	if n, ok, rest := parseFlagInt(args, "--max-tokens"); ok {
		req.MaxTokens, args = n, rest
	}
	req.Stream, args = parseFlagBool(args, "--stream")

	if len(args) == 0 {
		return e.usageError("chat", "usage: mdsaad chat <prompt> [--model M] [--provider P]")
	}
	req.Prompt = strings.Join(args, " ")

	switch req.ContextMode {
	case "", ops.ContextNone, ops.ContextRecent, ops.ContextAll:
	default:
		return e.usageError("chat", fmt.Sprintf("unknown context mode %q (want none, recent, or all)", req.ContextMode))
	}

	result, err := e.Core.Ops.Chat(ctx, req)
	if err != nil {
		return e.fail("chat", err)
	}

	if req.Stream {
		// Adapters expose replies as a chunk sequence; render each chunk
		// as it arrives. Non-streaming adapters yield a single chunk.
		for chunk := range result.Reply.Chunks() {
			fmt.Fprint(e.Out, chunk)
		}
		fmt.Fprintln(e.Out)
		return ExitOK
	}

	res := &output.Result{
		Success:     true,
		Command:     "chat",
		TextContent: result.Reply.Content,
		Data: map[string]any{
			"provider":      result.ProviderID,
			"model":         result.Reply.Model,
			"via":           result.Via,
			"attempt":       result.Attempt,
			"total_tokens":  result.Reply.Usage.TotalTokens,
			"finish_reason": result.Reply.FinishReason,
		},
	}
	if e.Verbose && len(result.ProxyAttempts) > 0 {
		table := &output.Table{Headers: []string{"PROXY", "OUTCOME"}}
		for _, a := range result.ProxyAttempts {
			table.Rows = append(table.Rows, []string{a.URL, a.Outcome})
		}
		res.Table = table
	}
	e.emit(res)
	return ExitOK
}
