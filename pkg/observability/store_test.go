package observability

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "traces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreInsertAndQuery(t *testing.T) {
	store := openTestStore(t)

	rec := GenerationRecord{
		ID:               uuid.NewString(),
		Name:             "routing-agent",
		Model:            "gpt-4o-mini",
		Input:            "my invoice is wrong",
		Output:           map[string]any{"route": "billing"},
		Metadata:         map[string]any{"fallback_reason": "invalid_route"},
		PromptTokens:     12,
		CompletionTokens: 3,
		CostUSD:          0.00001,
		LatencyMS:        250,
		CreatedAt:        time.Now(),
	}
	require.NoError(t, store.InsertGeneration(&rec))

	records, err := store.RecentGenerations("", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "routing-agent", got.Name)
	assert.Equal(t, "billing", got.Output["route"])
	assert.Equal(t, "invalid_route", got.Metadata["fallback_reason"])
	assert.Equal(t, 12, got.PromptTokens)
	assert.Equal(t, int64(250), got.LatencyMS)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)
}

func TestStoreFiltersByName(t *testing.T) {
	store := openTestStore(t)

	for _, name := range []string{"routing-agent", "code-agent", "routing-agent"} {
		require.NoError(t, store.InsertGeneration(&GenerationRecord{
			ID:        uuid.NewString(),
			Name:      name,
			Output:    map[string]any{},
			CreatedAt: time.Now(),
		}))
	}

	records, err := store.RecentGenerations("routing-agent", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "routing-agent", rec.Name)
	}
}

func TestStoreNewestFirstWithLimit(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.InsertGeneration(&GenerationRecord{
			ID:        uuid.NewString(),
			Name:      "agent",
			Output:    map[string]any{"seq": i},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.RecentGenerations("", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.EqualValues(t, 4, records[0].Output["seq"])
	assert.EqualValues(t, 3, records[1].Output["seq"])
}

func TestStoreNilMetadata(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.InsertGeneration(&GenerationRecord{
		ID:        uuid.NewString(),
		Name:      "agent",
		Output:    map[string]any{},
		CreatedAt: time.Now(),
	}))

	records, err := store.RecentGenerations("", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Metadata)
}

func TestOpenStoreIdempotentSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.db")

	store, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, store.InsertGeneration(&GenerationRecord{
		ID: uuid.NewString(), Name: "agent", Output: map[string]any{}, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.Close())

	// Reopen against existing schema; prior data survives.
	store, err = OpenStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	records, err := store.RecentGenerations("", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
