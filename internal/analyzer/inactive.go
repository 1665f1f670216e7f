package analyzer

import (
	"sort"
	"time"

	"github.com/lotas/tabgruppen/internal/types"
)

// LastAccess returns the most recent access time among tabs of each group.
// Tabs without an access time are ignored.
func LastAccess(tabs []*types.Tab) map[int]time.Time {
	last := make(map[int]time.Time)
	for _, tab := range tabs {
		if !tab.Grouped() || tab.LastAccessed.IsZero() {
			continue
		}
		if tab.LastAccessed.After(last[tab.GroupID]) {
			last[tab.GroupID] = tab.LastAccessed
		}
	}
	return last
}

// InactiveGroups returns, in ascending order, the ids of groups whose most
// recently accessed tab is older than threshold at now.
func InactiveGroups(tabs []*types.Tab, threshold time.Duration, now time.Time) []int {
	var ids []int
	for id, at := range LastAccess(tabs) {
		if now.Sub(at) > threshold {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}
