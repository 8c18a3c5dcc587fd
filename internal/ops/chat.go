// chat.go — Chat operation: context assembly, model routing, proxy-first
// dispatch, and history recording.
package ops

import (
	"context"
	"strings"

	"github.com/mdsaad31/mdsaad-cli/internal/dispatch"
	"github.com/mdsaad31/mdsaad-cli/internal/history"
	"github.com/mdsaad31/mdsaad-cli/internal/provider"
	"github.com/mdsaad31/mdsaad-cli/internal/proxy"
)

// Context modes for the chat history window.
const (
	ContextNone   = "none"
	ContextRecent = "recent"
	ContextAll    = "all"
)

// recentContextPairs is how many history entries feed the prompt in
// "recent" mode.
const recentContextPairs = 5

// ChatRequest is one user chat invocation.
type ChatRequest struct {
	Prompt      string
	Model       string // short alias or wire id; empty uses provider default
	Provider    string // preferred provider id
	Temperature float64
	MaxTokens   int
	Stream      bool
	System      string
	ContextMode string // none | recent | all (default recent)
}

// ChatResult is a completed chat turn.
type ChatResult struct {
	Reply         provider.NormalizedReply
	ProviderID    string
	Attempt       int
	Via           string
	ProxyAttempts []proxy.Attempt
}

// Chat validates the prompt, assembles messages from the session history,
// and dispatches proxy-first. Successful turns are appended to history.
func (o *Ops) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, invalidInput("prompt is empty")
	}

	preferred := req.Provider
	if preferred == "" && req.Model != "" {
		// A bare model name routes to whichever provider serves it.
		if providerID, _, ok := o.Registry.ResolveModel(req.Model); ok {
			preferred = providerID
		}
	}

	payload := provider.ChatPayload{
		Model:       req.Model,
		Messages:    o.buildMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        0,
		Stream:      req.Stream,
	}

	result := &ChatResult{}
	value, via, attempts, err := o.proxyFirst(ctx, provider.CapChat, payload, func() (any, string, error) {
		reply, err := o.Dispatcher.Call(ctx, provider.CapChat, payload, dispatch.Options{PreferredProvider: preferred})
		if err != nil {
			return nil, "", err
		}
		result.ProviderID = reply.ProviderID
		result.Attempt = reply.Attempt
		return reply.Value, reply.ProviderID, nil
	})
	result.ProxyAttempts = attempts
	if err != nil {
		return nil, err
	}
	result.Via = via
	if via == ViaProxy {
		result.ProviderID = "proxy"
		result.Attempt = len(attempts)
	}

	norm := value.(*provider.NormalizedReply)
	result.Reply = *norm

	o.History.Append(history.Entry{
		Timestamp:     o.Clock.WallNow(),
		OperationKind: "chat",
		Prompt:        req.Prompt,
		Reply:         norm.Content,
		ProviderID:    result.ProviderID,
		ModelID:       norm.Model,
	})
	return result, nil
}

// buildMessages assembles system prompt + history context + the prompt.
func (o *Ops) buildMessages(req ChatRequest) []provider.Message {
	var messages []provider.Message
	if req.System != "" {
		messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: req.System})
	}

	mode := req.ContextMode
	if mode == "" {
		mode = ContextRecent
	}
	var past []history.Entry
	switch mode {
	case ContextRecent:
		past = o.History.Recent(recentContextPairs)
	case ContextAll:
		past = o.History.All()
	}
	for _, e := range past {
		if e.OperationKind != "chat" {
			continue
		}
		messages = append(messages,
			provider.Message{Role: provider.RoleUser, Content: e.Prompt},
			provider.Message{Role: provider.RoleAssistant, Content: e.Reply},
		)
	}

	return append(messages, provider.Message{Role: provider.RoleUser, Content: req.Prompt})
}
