package analyzer

import (
	"time"

	"github.com/lotas/tabgruppen/internal/types"
)

// ComputeStats summarizes a window. Groups idle longer than inactiveAfter
// count as inactive.
func ComputeStats(tabs []*types.Tab, groups []*types.TabGroup, inactiveAfter time.Duration, now time.Time) types.Stats {
	stats := types.Stats{
		TotalTabs:      len(tabs),
		GroupCount:     len(groups),
		DuplicateTabs:  CountDuplicates(tabs),
		InactiveGroups: len(InactiveGroups(tabs, inactiveAfter, now)),
	}
	for _, tab := range tabs {
		if !tab.Grouped() {
			stats.UngroupedTabs++
		}
		if tab.Pinned {
			stats.PinnedTabs++
		}
	}
	return stats
}
