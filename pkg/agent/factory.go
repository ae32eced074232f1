// Package agent constructs LLM clients from configuration and provides a mock
// client for tests.
package agent

import (
	"fmt"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent/llm"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent/llmimpl/anthropic"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent/llmimpl/google"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent/llmimpl/ollama"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent/llmimpl/openai"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/config"
)

// ErrNoCredentials is returned when the resolved provider has no usable
// credential. Callers treat this as "run without an LLM" and fall back to
// local policy rather than aborting.
type ErrNoCredentials struct {
	Provider string
	EnvVar   string
}

func (e *ErrNoCredentials) Error() string {
	return fmt.Sprintf("no credentials for provider %s (set %s)", e.Provider, e.EnvVar)
}

func credentialEnvVar(provider string) string {
	switch provider {
	case config.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case config.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case config.ProviderGoogle:
		return "GEMINI_API_KEY"
	case config.ProviderOllama:
		return "OLLAMA_HOST"
	default:
		return ""
	}
}

// NewClient builds an llm.Client for cfg.Model, inferring the provider from
// the model name. Ollama needs no API key; every other provider returns
// ErrNoCredentials when its key is missing.
func NewClient(cfg config.Config) (llm.Client, error) {
	provider := config.InferProvider(cfg.Model)
	key := cfg.APIKeyFor(provider)

	if key == "" && provider != config.ProviderOllama {
		return nil, &ErrNoCredentials{Provider: provider, EnvVar: credentialEnvVar(provider)}
	}

	switch provider {
	case config.ProviderAnthropic:
		return anthropic.New(key, cfg.Model), nil
	case config.ProviderOpenAI:
		return openai.New(key, cfg.Model), nil
	case config.ProviderGoogle:
		return google.New(key, cfg.Model), nil
	case config.ProviderOllama:
		return ollama.New(cfg.OllamaHost, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q for model %q", provider, cfg.Model)
	}
}
