package suggest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/tabgruppen/internal/storage"
	"github.com/lotas/tabgruppen/internal/types"
)

func tabs(urls ...string) []*types.Tab {
	out := make([]*types.Tab, len(urls))
	for i, u := range urls {
		out[i] = &types.Tab{ID: i + 1, URL: u, GroupID: types.NoGroup}
	}
	return out
}

func TestDomains(t *testing.T) {
	got := Domains(tabs(
		"https://www.github.com/a",
		"https://docs.go.dev/",
		"https://github.com/b",
		"chrome://extensions",
		"",
		"::bad",
	))
	assert.Equal(t, []string{"github.com", "go.dev"}, got)
}

func TestRecordPatternSkipsEmptySets(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	e := New(store)

	require.NoError(t, e.RecordPattern(ctx, tabs("chrome://newtab/", "about:blank")))
	all, _ := store.All(ctx)
	assert.Empty(t, all)

	require.NoError(t, e.RecordPattern(ctx, tabs("https://b.com", "https://a.com", "https://a.com/x")))
	require.NoError(t, e.RecordPattern(ctx, tabs("https://a.com", "https://b.com")))
	all, _ = store.All(ctx)
	assert.Equal(t, map[string]int{"a.com,b.com": 2}, all)
}

func TestSuggestRanking(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	for i := 0; i < 3; i++ {
		store.Increment(ctx, "a.com,b.com,c.com,d.com")
	}
	store.Increment(ctx, "a.com,b.com")
	store.Increment(ctx, "a.com,x.com") // overlap 1, never suggested

	got, err := New(store).Suggest(ctx, tabs("https://a.com", "https://b.com", "https://z.com"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// 2/4*3 = 1.5 beats 2/2*1 = 1.
	assert.Equal(t, []string{"a.com", "b.com", "c.com", "d.com"}, got[0].Domains)
	assert.InDelta(t, 1.5, got[0].Confidence, 1e-9)
	assert.Equal(t, 3, got[0].Occurrences)
	assert.Equal(t, []string{"a.com", "b.com"}, got[1].Domains)
	assert.InDelta(t, 1.0, got[1].Confidence, 1e-9)
}

func TestSuggestTiesBreakByKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	store.Increment(ctx, "b.com,c.com")
	store.Increment(ctx, "a.com,b.com")

	got, err := New(store).Suggest(ctx, tabs("https://a.com", "https://b.com", "https://c.com"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a.com", "b.com"}, got[0].Domains)
	assert.Equal(t, []string{"b.com", "c.com"}, got[1].Domains)
}

func TestEngineWithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	e := New(storage.NewPatternStore(db))
	current := tabs("https://a.com", "https://b.com")
	require.NoError(t, e.RecordPattern(ctx, current))
	require.NoError(t, e.RecordPattern(ctx, current))

	got, err := e.Suggest(ctx, current)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Occurrences)
	assert.InDelta(t, 2.0, got[0].Confidence, 1e-9)
}
