// Package routing implements the starter's example agent: it routes an
// incoming support request to billing, tech, or sales, with a keyword policy
// fallback when no language model is available or the model answers outside
// the allowed set.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent/llm"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/guardrail"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/observability"
)

// Valid routes.
const (
	RouteBilling = "billing"
	RouteTech    = "tech"
	RouteSales   = "sales"
)

//nolint:gochecknoglobals // Static route allowlist.
var allowedRoutes = map[string]bool{
	RouteBilling: true,
	RouteTech:    true,
	RouteSales:   true,
}

// Decision is the routing outcome returned to callers.
type Decision struct {
	Route       string `json:"route"`
	Explanation string `json:"explanation"`
}

// Agent routes requests. A nil client is valid and routes purely by policy.
type Agent struct {
	observability.BaseAgent
	client      llm.Client
	temperature float32
	maxTokens   int
}

// ObservationName is the trace name used for routing decisions.
const ObservationName = "routing-agent"

const systemPrompt = `You are a support request router. Classify the user's request
into exactly one route: billing, tech, or sales.
Respond with a JSON object only, no prose and no code fences:
{"route": "<billing|tech|sales>", "explanation": "<very short reasoning>"}`

// New creates a routing agent. client may be nil, in which case every request
// is routed by NeutralPolicy.
func New(client llm.Client, provider *observability.Provider, temperature float32, maxTokens int) *Agent {
	return &Agent{
		BaseAgent:   observability.NewBaseAgent(provider),
		client:      client,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Route decides where a request should go. The policy fallback guarantees a
// valid Decision even when the LLM fails or misbehaves; the error return is
// reserved for context cancellation.
func (a *Agent) Route(ctx context.Context, request string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, fmt.Errorf("routing cancelled: %w", err)
	}

	if a.client == nil {
		decision := Decision{
			Route:       NeutralPolicy(request),
			Explanation: "Policy fallback used because no LM is configured.",
		}
		a.logDecision(ctx, request, decision, "no_lm", "", 0)
		return decision, nil
	}

	start := time.Now()
	resp, err := a.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(systemPrompt),
			llm.NewUserMessage(request),
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	latency := time.Since(start)

	if err != nil {
		a.Logger().Warn("LM routing failed, applying neutral policy: %v", err)
		decision := Decision{
			Route:       NeutralPolicy(request),
			Explanation: "Policy fallback applied because the LM call failed.",
		}
		a.logDecision(ctx, request, decision, "lm_error", a.client.Model(), latency)
		return decision, nil
	}

	decision, ok := parseDecision(resp.Content)
	fallbackReason := ""
	if !ok || !allowedRoutes[decision.Route] {
		a.Logger().Warn("invalid route %q returned by LM; applying neutral policy", decision.Route)
		decision = Decision{
			Route:       NeutralPolicy(request),
			Explanation: "Policy fallback applied because LM returned an unsupported route.",
		}
		fallbackReason = "invalid_route"
	}

	gen := observability.Generation{
		Model:            a.client.Model(),
		Input:            request,
		Output:           map[string]any{"route": decision.Route, "explanation": decision.Explanation},
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Latency:          latency,
	}
	if fallbackReason != "" {
		gen.Metadata = map[string]any{"fallback_reason": fallbackReason}
	}
	a.LogGeneration(ctx, gen)

	return decision, nil
}

func (a *Agent) logDecision(ctx context.Context, request string, decision Decision, fallbackReason, model string, latency time.Duration) {
	a.LogGeneration(ctx, observability.Generation{
		Model:    model,
		Input:    request,
		Output:   map[string]any{"route": decision.Route, "explanation": decision.Explanation},
		Metadata: map[string]any{"fallback_reason": fallbackReason},
		Latency:  latency,
	})
}

// parseDecision extracts a Decision from model output. Accepts a JSON object,
// optionally fenced, or a bare route word.
func parseDecision(content string) (Decision, bool) {
	cleaned := strings.TrimSpace(guardrail.StripFences(strings.TrimSpace(content)))

	var decision Decision
	if err := json.Unmarshal([]byte(cleaned), &decision); err == nil && decision.Route != "" {
		decision.Route = strings.ToLower(strings.TrimSpace(decision.Route))
		return decision, true
	}

	word := strings.ToLower(strings.Trim(cleaned, " .\"'"))
	if allowedRoutes[word] {
		return Decision{Route: word}, true
	}
	return Decision{Route: cleaned}, false
}
