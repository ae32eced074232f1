package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent/llm"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/config"
)

func TestNewClientResolvesProviders(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.Config
		model string
	}{
		{"anthropic", config.Config{Model: "claude-sonnet-4-5", AnthropicAPIKey: "k"}, "claude-sonnet-4-5"},
		{"openai", config.Config{Model: "gpt-4o-mini", OpenAIAPIKey: "k"}, "gpt-4o-mini"},
		{"google", config.Config{Model: "gemini-2.0-flash", GeminiAPIKey: "k"}, "gemini-2.0-flash"},
		{"ollama", config.Config{Model: "llama3:8b"}, "llama3:8b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.model, client.Model())
		})
	}
}

func TestNewClientMissingCredentials(t *testing.T) {
	_, err := NewClient(config.Config{Model: "claude-sonnet-4-5"})
	require.Error(t, err)

	var noCreds *ErrNoCredentials
	require.ErrorAs(t, err, &noCreds)
	assert.Equal(t, config.ProviderAnthropic, noCreds.Provider)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestMockClientSequence(t *testing.T) {
	mock := NewMockClient(
		[]llm.CompletionResponse{{Content: "first"}, {Content: "second"}},
		[]error{errors.New("boom")},
	)

	_, err := mock.Complete(context.Background(), llm.NewCompletionRequest(nil))
	require.Error(t, err)

	resp, err := mock.Complete(context.Background(), llm.NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	resp, err = mock.Complete(context.Background(), llm.NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	_, err = mock.Complete(context.Background(), llm.NewCompletionRequest(nil))
	assert.Error(t, err, "responses exhausted")

	assert.Len(t, mock.Requests(), 4)
}

func TestMockClientRecordsRequests(t *testing.T) {
	mock := NewMockClientWithContent("ok")

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage("be terse"),
		llm.NewUserMessage("hello"),
	})
	_, err := mock.Complete(context.Background(), req)
	require.NoError(t, err)

	recorded := mock.Requests()
	require.Len(t, recorded, 1)
	require.Len(t, recorded[0].Messages, 2)
	assert.Equal(t, llm.RoleSystem, recorded[0].Messages[0].Role)
	assert.Equal(t, "hello", recorded[0].Messages[1].Content)
}
