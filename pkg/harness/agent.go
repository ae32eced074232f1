// Package harness runs the coding-agent example end to end: snapshot the
// target repository, ask the model for a new file, validate it through the
// guardrail pipeline, write it, and run quality gates.
package harness

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

// ObservationName is the trace name for code generation calls.
const ObservationName = "code-agent-generate"

// FileProposal is the structured output requested from the model.
type FileProposal struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	Explanation string `json:"explanation"`
	RiskLevel   string `json:"risk_level"`
}

// CodeAgent generates new files for engineering tasks.
type CodeAgent struct {
	observability.BaseAgent
	client      llm.Client
	temperature float32
	maxTokens   int
}

const codeSystemPrompt = `You are an autonomous coding agent. Given an engineering task and the
current repository state, produce exactly one new file.

Respond with a JSON object only, no prose and no code fences:
{
  "filename": "relative path from repository root, e.g. 'utils.py' or 'src/helpers.py'",
  "content": "complete raw file contents with all imports and docstrings; no markdown, no code fences",
  "explanation": "what the file does and why it is needed",
  "risk_level": "low, medium, or high"
}

The filename must match one of the allowed glob patterns you are given.`

// NewCodeAgent creates a coding agent. client must not be nil; unlike
// routing, file generation has no policy fallback.
func NewCodeAgent(client llm.Client, provider *observability.Provider, temperature float32, maxTokens int) *CodeAgent {
	return &CodeAgent{
		BaseAgent:   observability.NewBaseAgent(provider),
		client:      client,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Generate asks the model for a file proposal. It validates only that the
// response parses and names a file; the guardrail pipeline owns the
// substantive checks.
func (a *CodeAgent) Generate(ctx context.Context, task, repoState string, allowedPatterns []string) (FileProposal, error) {
	userPrompt := fmt.Sprintf(`Task: %s

Allowed file patterns:
%s

Repository state:
%s`, task, strings.Join(allowedPatterns, "\n"), repoState)

	start := time.Now()
	resp, err := a.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(codeSystemPrompt),
			llm.NewUserMessage(userPrompt),
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	latency := time.Since(start)

	if err != nil {
		a.LogGeneration(ctx, observability.Generation{
			Model:   a.client.Model(),
			Input:   task,
			Output:  map[string]any{},
			Latency: latency,
			Err:     err,
		})
		return FileProposal{}, fmt.Errorf("agent failed to generate file: %w", err)
	}

	proposal, err := parseProposal(resp.Content)
	if err != nil {
		a.LogGeneration(ctx, observability.Generation{
			Model:   a.client.Model(),
			Input:   task,
			Output:  map[string]any{"raw": resp.Content},
			Latency: latency,
			Err:     err,
		})
		return FileProposal{}, err
	}

	a.LogGeneration(ctx, observability.Generation{
		Model: a.client.Model(),
		Input: task,
		Output: map[string]any{
			"filename":       proposal.Filename,
			"content_length": len(proposal.Content),
			"explanation":    proposal.Explanation,
			"risk_level":     proposal.RiskLevel,
		},
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Latency:          latency,
	})

	return proposal, nil
}

// parseProposal decodes the model's JSON output, tolerating a fenced wrapper.
func parseProposal(content string) (FileProposal, error) {
	cleaned := strings.TrimSpace(guardrail.StripFences(strings.TrimSpace(content)))

	var proposal FileProposal
	if err := json.Unmarshal([]byte(cleaned), &proposal); err != nil {
		return FileProposal{}, fmt.Errorf("model output is not a valid file proposal: %w", err)
	}
	if strings.TrimSpace(proposal.Filename) == "" {
		return FileProposal{}, fmt.Errorf("model output has no filename")
	}
	proposal.Filename = strings.TrimSpace(proposal.Filename)
	return proposal, nil
}
