package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAgentEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AGENT_MODEL", "AGENT_TEMPERATURE", "AGENT_MAX_TOKENS",
		"TRACE_DB", "DASHBOARD_ADDR",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OLLAMA_HOST",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearAgentEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.Model)
	assert.InDelta(t, 0.7, cfg.Temperature, 0.001)
	assert.Equal(t, 4096, cfg.MaxTokens)
	assert.Equal(t, "traces.db", cfg.TraceDB)
	assert.Equal(t, ":8000", cfg.DashboardAddr)
	assert.False(t, cfg.HasCredentials())
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	clearAgentEnv(t)
	dir := t.TempDir()

	yamlContent := "model: claude-sonnet-4-5\nmax_tokens: 2048\ndashboard_addr: \":9000\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yamlContent), 0o644))

	t.Setenv("AGENT_MODEL", "gpt-4o")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Model, "env beats yaml")
	assert.Equal(t, 2048, cfg.MaxTokens, "yaml beats default")
	assert.Equal(t, ":9000", cfg.DashboardAddr)
	assert.True(t, cfg.HasCredentials())
	assert.Equal(t, "sk-test", cfg.APIKeyFor(ProviderOpenAI))
}

func TestLoadInvalidNumericEnvIgnored(t *testing.T) {
	clearAgentEnv(t)
	t.Setenv("AGENT_TEMPERATURE", "hot")
	t.Setenv("AGENT_MAX_TOKENS", "-5")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.InDelta(t, 0.7, cfg.Temperature, 0.001)
	assert.Equal(t, 4096, cfg.MaxTokens)
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	clearAgentEnv(t)
	dir := t.TempDir()

	env := "OPENAI_API_KEY=from-dotenv\n# comment\nAGENT_MODEL=\"gpt-4o\"\nNOT_A_PAIR\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))

	t.Setenv("OPENAI_API_KEY", "from-env")

	LoadDotEnv(dir)

	assert.Equal(t, "from-env", os.Getenv("OPENAI_API_KEY"))
	assert.Equal(t, "gpt-4o", os.Getenv("AGENT_MODEL"))
}

func TestLoadDotEnvSearchesParents(t *testing.T) {
	clearAgentEnv(t)
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("GEMINI_API_KEY=parent-key\n"), 0o644))

	LoadDotEnv(nested)

	assert.Equal(t, "parent-key", os.Getenv("GEMINI_API_KEY"))
}

func TestInferProvider(t *testing.T) {
	tests := []struct {
		model    string
		expected string
	}{
		{ModelClaudeSonnet, ProviderAnthropic},
		{"claude-99-experimental", ProviderAnthropic},
		{ModelGPT4oMini, ProviderOpenAI},
		{"o3-mini", ProviderOpenAI},
		{"gemini-2.5-pro", ProviderGoogle},
		{"llama3:8b", ProviderOllama},
		{"mistral-nemo:latest", ProviderOllama},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferProvider(tt.model))
		})
	}
}

func TestEstimateCost(t *testing.T) {
	// gpt-4o-mini: $0.15/M input, $0.60/M output.
	cost := EstimateCost(ModelGPT4oMini, 1_000_000, 1_000_000)
	assert.InDelta(t, 0.75, cost, 0.0001)

	assert.Zero(t, EstimateCost("unknown-model", 1000, 1000))
	assert.Zero(t, EstimateCost(ModelOllamaLocal, 1000, 1000), "local models are free")
}
