package export

import (
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/lotas/tabgruppen/internal/types"
)

type jsonExport struct {
	Source      string             `json:"source"`
	GeneratedAt time.Time          `json:"generated_at"`
	Groups      []jsonGroup        `json:"groups"`
	LeftAlone   []jsonTab          `json:"left_alone"`
	Stats       types.Stats        `json:"stats"`
	Suggestions []types.Suggestion `json:"suggestions"`
}

type jsonGroup struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	Color      string    `json:"color"`
	SplitIndex *int      `json:"split_index,omitempty"`
	Tabs       []jsonTab `json:"tabs"`
}

type jsonTab struct {
	ID                 int        `json:"id"`
	Title              string     `json:"title"`
	URL                string     `json:"url"`
	Domain             string     `json:"domain"`
	Pinned             bool       `json:"pinned,omitempty"`
	LastAccessed       *time.Time `json:"last_accessed,omitempty"`
	LastAccessedPretty string     `json:"last_accessed_pretty"`
}

// JSON formats r as an indented JSON document.
func JSON(r Report) (string, error) {
	groups, rest := r.planned()
	out := jsonExport{
		Source:      r.Source,
		GeneratedAt: r.Generated,
		Groups:      make([]jsonGroup, 0, len(r.Plans)),
		LeftAlone:   toJSONTabs(rest, r.Generated),
		Stats:       r.Stats,
		Suggestions: r.Suggestions,
	}
	if out.Suggestions == nil {
		out.Suggestions = []types.Suggestion{}
	}
	for i, p := range r.Plans {
		out.Groups = append(out.Groups, jsonGroup{
			Key:        p.Key,
			Title:      p.Title,
			Color:      string(p.Color),
			SplitIndex: p.SplitIndex,
			Tabs:       toJSONTabs(groups[i], r.Generated),
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func toJSONTabs(tabs []*types.Tab, now time.Time) []jsonTab {
	out := make([]jsonTab, 0, len(tabs))
	for _, tab := range tabs {
		jt := jsonTab{
			ID:                 tab.ID,
			Title:              tab.Title,
			URL:                tab.URL,
			Domain:             extractDomain(tab.URL),
			Pinned:             tab.Pinned,
			LastAccessedPretty: relativeTime(tab.LastAccessed, now),
		}
		if !tab.LastAccessed.IsZero() {
			at := tab.LastAccessed
			jt.LastAccessed = &at
		}
		out = append(out, jt)
	}
	return out
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}
