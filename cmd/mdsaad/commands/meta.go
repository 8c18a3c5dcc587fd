// meta.go — Meta commands: providers, models, history, clear, quota.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/mdsaad31/mdsaad-cli/cmd/mdsaad/output"
	"github.com/mdsaad31/mdsaad-cli/internal/breaker"
	"github.com/mdsaad31/mdsaad-cli/internal/provider"
)

// Providers lists every provider with its readiness state. With --reset P
// it first forces that provider's circuit back to closed.
func Providers(_ context.Context, e *Env, args []string) int {
	if resetID, _ := parseFlag(args, "--reset"); resetID != "" {
		if err := e.Core.Registry.ResetCircuit(resetID); err != nil {
			return e.usageError("providers", err.Error())
		}
	}

	table := &output.Table{Headers: []string{"PROVIDER", "PRIORITY", "CAPABILITIES", "STATE"}}
	for _, p := range e.Core.Registry.All() {
		table.Rows = append(table.Rows, []string{
			p.ID,
			strconv.Itoa(p.Priority),
			capabilityList(p.Supports),
			providerState(e, p),
		})
	}
	e.emit(&output.Result{Success: true, Command: "providers", Table: table})
	return ExitOK
}

func capabilityList(caps []provider.Capability) string {
	out := ""
	for i, c := range caps {
		if i > 0 {
			out += ","
		}
		out += string(c)
	}
	return out
}

func providerState(e *Env, p provider.Provider) string {
	switch {
	case !p.Enabled:
		return "disabled"
	case !p.Configured():
		return "unconfigured"
	}
	if st := e.Core.Breaker.Status(p.ID); st.State != breaker.Closed {
		return "circuit_" + string(st.State)
	}
	return "ready"
}

// Models lists the chat model aliases across providers.
func Models(_ context.Context, e *Env, _ []string) int {
	table := &output.Table{Headers: []string{"ALIAS", "MODEL", "PROVIDER", "DEFAULT"}}
	for _, p := range e.Core.Registry.All() {
		if !p.Has(provider.CapChat) {
			continue
		}
		aliases := make([]string, 0, len(p.ModelAliases))
		for alias := range p.ModelAliases {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)
		for _, alias := range aliases {
			def := ""
			if alias == p.DefaultModel {
				def = "*"
			}
			table.Rows = append(table.Rows, []string{alias, p.ModelAliases[alias], p.ID, def})
		}
	}
	e.emit(&output.Result{Success: true, Command: "models", Table: table})
	return ExitOK
}

// History prints the session history, newest last.
func History(_ context.Context, e *Env, args []string) int {
	limit, _, _ := parseFlagInt(args, "--limit")

	entries := e.Core.History.All()
	if limit > 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}
	table := &output.Table{Headers: []string{"TIME", "KIND", "PROVIDER", "PROMPT", "REPLY"}}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{
			entry.Timestamp.Format("15:04:05"),
			entry.OperationKind,
			entry.ProviderID,
			entry.Prompt,
			entry.Summary,
		})
	}
	e.emit(&output.Result{
		Success: true,
		Command: "history",
		Table:   table,
		Data:    map[string]any{"entries": len(entries)},
	})
	return ExitOK
}

// Clear empties the conversation history and the cache.
func Clear(_ context.Context, e *Env, _ []string) int {
	e.Core.History.Clear()
	e.Core.Cache.ClearAll()
	e.emit(&output.Result{Success: true, Command: "clear", TextContent: "history and cache cleared"})
	return ExitOK
}

// Quota shows rate-window usage, proxy windows, and cache occupancy.
func Quota(_ context.Context, e *Env, _ []string) int {
	table := &output.Table{Headers: []string{"PROVIDER", "ENDPOINT", "WINDOW", "LAST SECOND", "BLOCKED"}}
	usages := e.Core.Limiter.Snapshot()
	sort.Slice(usages, func(i, j int) bool {
		if usages[i].ProviderID != usages[j].ProviderID {
			return usages[i].ProviderID < usages[j].ProviderID
		}
		return usages[i].Endpoint < usages[j].Endpoint
	})
	for _, u := range usages {
		blocked := "-"
		if u.BlockedFor > 0 {
			blocked = u.BlockedFor.Round(1e9).String()
		}
		table.Rows = append(table.Rows, []string{
			u.ProviderID,
			u.Endpoint,
			fmt.Sprintf("%d/%d", u.WindowCount, u.Limits.RequestsPerWindow),
			strconv.Itoa(u.LastSecond),
			blocked,
		})
	}

	data := map[string]any{}
	stats := e.Core.Cache.Stats()
	data["cache_entries"] = stats.TotalEntries
	data["cache_bytes"] = stats.TotalBytes
	if e.Core.Proxy != nil && e.Core.Proxy.Enabled() {
		for _, cap := range []provider.Capability{provider.CapChat, provider.CapWeatherCurrent, provider.CapExchangeRate} {
			remaining, perHour := e.Core.Proxy.Remaining(cap)
			data["proxy_"+string(cap)] = fmt.Sprintf("%d/%d per hour", remaining, perHour)
		}
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	text := ""
	for _, k := range keys {
		text += fmt.Sprintf("%s: %v\n", k, data[k])
	}

	e.emit(&output.Result{Success: true, Command: "quota", TextContent: text, Table: table, Data: data})
	return ExitOK
}
