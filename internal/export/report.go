// Package export renders a dry-run organize pass: the groups that would be
// created, the tabs left alone, window statistics and suggestions.
package export

import (
	"fmt"
	"time"

	"github.com/lotas/tabgruppen/internal/types"
)

// Report is one previewed organize pass.
type Report struct {
	Source      string
	Tabs        []*types.Tab
	Plans       []types.GroupPlan
	Stats       types.Stats
	Suggestions []types.Suggestion
	Generated   time.Time
}

// planned returns the tabs of each plan in plan order, and the tabs that no
// plan claims.
func (r Report) planned() (groups [][]*types.Tab, rest []*types.Tab) {
	byID := make(map[int]*types.Tab, len(r.Tabs))
	for _, t := range r.Tabs {
		byID[t.ID] = t
	}
	claimed := make(map[int]bool)
	for _, p := range r.Plans {
		var tabs []*types.Tab
		for _, id := range p.MemberIDs {
			if t, ok := byID[id]; ok {
				tabs = append(tabs, t)
				claimed[id] = true
			}
		}
		groups = append(groups, tabs)
	}
	for _, t := range r.Tabs {
		if !claimed[t.ID] {
			rest = append(rest, t)
		}
	}
	return groups, rest
}

func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
