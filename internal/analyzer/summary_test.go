package analyzer

import (
	"testing"
	"time"

	"github.com/lotas/tabgruppen/internal/types"
)

func TestComputeStats(t *testing.T) {
	now := time.Now()
	tabs := []*types.Tab{
		{ID: 1, URL: "https://a.com/x", GroupID: 1, LastAccessed: now.Add(-48 * time.Hour)},
		{ID: 2, URL: "https://a.com/x#top", GroupID: 1, LastAccessed: now.Add(-48 * time.Hour)},
		{ID: 3, URL: "https://b.com", GroupID: 2, LastAccessed: now},
		{ID: 4, URL: "https://c.com", GroupID: types.NoGroup, Pinned: true},
		{ID: 5, URL: "https://d.com", GroupID: types.NoGroup},
	}
	groups := []*types.TabGroup{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}

	stats := ComputeStats(tabs, groups, 24*time.Hour, now)
	want := types.Stats{
		TotalTabs:      5,
		GroupCount:     2,
		UngroupedTabs:  2,
		PinnedTabs:     1,
		DuplicateTabs:  1,
		InactiveGroups: 1,
	}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}
