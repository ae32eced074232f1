package routing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/agent"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/observability"
)

func newTestProvider(t *testing.T) (*observability.Provider, *observability.Store) {
	t.Helper()
	store, err := observability.OpenStore(filepath.Join(t.TempDir(), "traces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return observability.NewProvider(ObservationName, observability.WithStore(store)), store
}

func TestRouteWithLM(t *testing.T) {
	provider, store := newTestProvider(t)
	mock := agent.NewMockClientWithContent(`{"route": "billing", "explanation": "mentions an invoice"}`)

	routingAgent := New(mock, provider, 0.7, 256)
	decision, err := routingAgent.Route(context.Background(), "The invoice shows an extra fee")

	require.NoError(t, err)
	assert.Equal(t, RouteBilling, decision.Route)
	assert.Equal(t, "mentions an invoice", decision.Explanation)

	records, err := store.RecentGenerations(ObservationName, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "billing", records[0].Output["route"])
	assert.Nil(t, records[0].Metadata, "no fallback metadata on a clean decision")
}

func TestRouteWithoutLMUsesPolicy(t *testing.T) {
	provider, store := newTestProvider(t)

	routingAgent := New(nil, provider, 0.7, 256)
	decision, err := routingAgent.Route(context.Background(), "The app crashes constantly")

	require.NoError(t, err)
	assert.Equal(t, RouteTech, decision.Route)
	assert.Contains(t, decision.Explanation, "no LM is configured")

	records, err := store.RecentGenerations(ObservationName, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "no_lm", records[0].Metadata["fallback_reason"])
}

func TestRouteInvalidLMRouteFallsBack(t *testing.T) {
	provider, store := newTestProvider(t)
	mock := agent.NewMockClientWithContent(`{"route": "legal", "explanation": "sounds legal"}`)

	routingAgent := New(mock, provider, 0.7, 256)
	decision, err := routingAgent.Route(context.Background(), "I want a refund")

	require.NoError(t, err)
	assert.Equal(t, RouteBilling, decision.Route, "neutral policy decides")
	assert.Contains(t, decision.Explanation, "unsupported route")

	records, err := store.RecentGenerations(ObservationName, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "invalid_route", records[0].Metadata["fallback_reason"])
}

func TestRouteLMErrorFallsBack(t *testing.T) {
	provider, _ := newTestProvider(t)
	mock := agent.NewMockClient(nil, []error{errors.New("rate limited")})

	routingAgent := New(mock, provider, 0.7, 256)
	decision, err := routingAgent.Route(context.Background(), "pricing for 50 seats?")

	require.NoError(t, err, "LM failure is not a routing failure")
	assert.Equal(t, RouteSales, decision.Route)
}

func TestRouteCancelledContext(t *testing.T) {
	provider, _ := newTestProvider(t)
	routingAgent := New(nil, provider, 0.7, 256)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := routingAgent.Route(ctx, "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name    string
		content string
		route   string
		ok      bool
	}{
		{"plain json", `{"route": "tech", "explanation": "bug report"}`, "tech", true},
		{"fenced json", "```json\n{\"route\": \"sales\"}\n```", "sales", true},
		{"mixed case route", `{"route": "Billing"}`, "billing", true},
		{"bare word", "billing", "billing", true},
		{"quoted word", `"tech"`, "tech", true},
		{"garbage", "I think maybe billing?", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, ok := parseDecision(tt.content)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.route, decision.Route)
			}
		})
	}
}
