package export

import (
	"fmt"
	"strings"

	"github.com/lotas/tabgruppen/internal/types"
)

// Markdown formats r as a markdown document.
func Markdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tab plan: %s\n", r.Source)
	fmt.Fprintf(&b, "> Generated %s\n", r.Generated.Format("2006-01-02 15:04"))

	groups, rest := r.planned()
	for i, p := range r.Plans {
		fmt.Fprintf(&b, "\n## %s (%s, %s)\n\n", p.Title, count(len(groups[i])), p.Color)
		writeTabs(&b, groups[i], r)
	}
	if len(rest) > 0 {
		fmt.Fprintf(&b, "\n## Left alone (%s)\n\n", count(len(rest)))
		writeTabs(&b, rest, r)
	}

	s := r.Stats
	b.WriteString("\n## Statistics\n\n")
	fmt.Fprintf(&b, "- Tabs: %d (%d pinned, %d ungrouped)\n", s.TotalTabs, s.PinnedTabs, s.UngroupedTabs)
	fmt.Fprintf(&b, "- Groups: %d (%d inactive)\n", s.GroupCount, s.InactiveGroups)
	fmt.Fprintf(&b, "- Duplicates: %d\n", s.DuplicateTabs)

	if len(r.Suggestions) > 0 {
		b.WriteString("\n## Suggestions\n\n")
		for _, sg := range r.Suggestions {
			fmt.Fprintf(&b, "- %s (confidence %.2f, seen %dx)\n", strings.Join(sg.Domains, ", "), sg.Confidence, sg.Occurrences)
		}
	}
	return b.String()
}

func writeTabs(b *strings.Builder, tabs []*types.Tab, r Report) {
	for _, tab := range tabs {
		title := tab.Title
		if title == "" {
			title = tab.URL
		}
		fmt.Fprintf(b, "- [%s](%s) (%s)\n", title, tab.URL, relativeTime(tab.LastAccessed, r.Generated))
	}
}

func count(n int) string {
	if n == 1 {
		return "1 tab"
	}
	return fmt.Sprintf("%d tabs", n)
}
