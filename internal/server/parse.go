package server

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/lotas/tabgruppen/internal/types"
)

type wireTab struct {
	ID           int     `json:"id"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	LastAccessed float64 `json:"lastAccessed"`
	GroupID      *int    `json:"groupId"`
	WindowID     int     `json:"windowId"`
	Index        int     `json:"index"`
	Pinned       bool    `json:"pinned"`
}

type wireGroup struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
	WindowID  int    `json:"windowId"`
}

func (wt wireTab) tab() *types.Tab {
	t := &types.Tab{
		ID:       wt.ID,
		URL:      wt.URL,
		Title:    wt.Title,
		GroupID:  types.NoGroup,
		WindowID: wt.WindowID,
		Index:    wt.Index,
		Pinned:   wt.Pinned,
	}
	if wt.LastAccessed > 0 {
		t.LastAccessed = time.UnixMilli(int64(wt.LastAccessed))
	}
	if wt.GroupID != nil && *wt.GroupID >= 0 {
		t.GroupID = *wt.GroupID
	}
	return t
}

// ParseTabs converts a raw JSON tab list as reported by the extension.
// A missing or negative groupId means the tab is ungrouped.
func ParseTabs(raw json.RawMessage) ([]*types.Tab, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wire []wireTab
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse tabs: %w", err)
	}
	tabs := make([]*types.Tab, len(wire))
	for i, wt := range wire {
		tabs[i] = wt.tab()
	}
	return tabs, nil
}

// ParseTab converts a raw JSON tab into a Tab.
func ParseTab(raw json.RawMessage) (*types.Tab, error) {
	var wt wireTab
	if err := json.Unmarshal(raw, &wt); err != nil {
		return nil, fmt.Errorf("parse tab: %w", err)
	}
	return wt.tab(), nil
}

// ParseGroups converts a raw JSON tab group list.
func ParseGroups(raw json.RawMessage) ([]*types.TabGroup, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wire []wireGroup
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse groups: %w", err)
	}
	groups := make([]*types.TabGroup, len(wire))
	for i, g := range wire {
		groups[i] = &types.TabGroup{
			ID:        g.ID,
			Title:     g.Title,
			Color:     types.Color(g.Color),
			Collapsed: g.Collapsed,
			WindowID:  g.WindowID,
		}
	}
	return groups, nil
}
