// Package config provides environment-first configuration for the agent starter.
//
// Precedence, highest first:
//  1. Process environment variables
//  2. .env file entries (loaded into the environment, never overriding it)
//  3. agent.yaml in the working directory
//  4. Built-in defaults
//
// Configuration is read once into a Config value and passed to components
// explicitly; nothing here holds process-wide mutable state beyond the
// environment itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/logx"
)

// Config holds runtime settings for agents, tracing, and the dashboard.
type Config struct {
	Model         string  `yaml:"model"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	TraceDB       string  `yaml:"trace_db"`
	DashboardAddr string  `yaml:"dashboard_addr"`

	// API credentials, env-only (never read from agent.yaml).
	AnthropicAPIKey string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	GeminiAPIKey    string `yaml:"-"`
	OllamaHost      string `yaml:"-"`
}

// ConfigFileName is the optional YAML settings file searched for in the
// working directory.
const ConfigFileName = "agent.yaml"

const (
	defaultTemperature   = 0.7
	defaultMaxTokens     = 4096
	defaultTraceDB       = "traces.db"
	defaultDashboardAddr = ":8000"
)

// Load builds a Config from the environment, an optional .env file, and an
// optional agent.yaml in dir. Missing files are not errors.
func Load(dir string) (Config, error) {
	LoadDotEnv(dir)

	cfg := Config{
		Model:         DefaultModel,
		Temperature:   defaultTemperature,
		MaxTokens:     defaultMaxTokens,
		TraceDB:       defaultTraceDB,
		DashboardAddr: defaultDashboardAddr,
	}

	if err := mergeYAML(filepath.Join(dir, ConfigFileName), &cfg); err != nil {
		return Config{}, err
	}
	mergeEnv(&cfg)

	return cfg, nil
}

// mergeYAML overlays settings from a YAML file onto cfg. A missing file is fine.
func mergeYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// mergeEnv overlays environment variables onto cfg. Env always wins over YAML.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("AGENT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("AGENT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.Temperature = float32(f)
		} else {
			logx.Warnf("invalid AGENT_TEMPERATURE value %q; ignoring", v)
		}
	}
	if v := os.Getenv("AGENT_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		} else {
			logx.Warnf("invalid AGENT_MAX_TOKENS value %q; ignoring", v)
		}
	}
	if v := os.Getenv("TRACE_DB"); v != "" {
		cfg.TraceDB = v
	}
	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		cfg.DashboardAddr = v
	}

	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OllamaHost = os.Getenv("OLLAMA_HOST")
}

// APIKeyFor returns the credential for the given provider, empty if unset.
// Ollama needs no key; its "credential" is the host URL.
func (c Config) APIKeyFor(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGoogle:
		return c.GeminiAPIKey
	case ProviderOllama:
		return c.OllamaHost
	default:
		return ""
	}
}

// HasCredentials reports whether any LLM provider is usable with the current
// settings. Agents fall back to local policy when this is false.
func (c Config) HasCredentials() bool {
	return c.AnthropicAPIKey != "" || c.OpenAIAPIKey != "" || c.GeminiAPIKey != "" || c.OllamaHost != ""
}

// LoadDotEnv is a best-effort .env loader: it looks for a .env file in dir and
// up to three parent directories, parses simple KEY=VALUE lines, and sets each
// into the environment unless the variable is already set. Parse problems are
// logged and skipped, never fatal.
func LoadDotEnv(dir string) {
	candidate := dir
	for i := 0; i < 4; i++ {
		path := filepath.Join(candidate, ".env")
		if _, err := os.Stat(path); err == nil {
			applyDotEnv(path)
			return
		}
		parent := filepath.Dir(candidate)
		if parent == candidate {
			return
		}
		candidate = parent
	}
}

func applyDotEnv(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logx.Debugf("could not read %s: %v", path, err)
		return
	}

	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logx.Debugf("could not set %s from %s: %v", key, path, err)
		}
	}
}
