package host

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/lotas/tabgruppen/internal/types"
)

// Notification is a notification recorded by Memory.
type Notification struct {
	Title, Message string
}

// Bookmark is a bookmark recorded by Memory.
type Bookmark struct {
	Folder, Title, URL string
}

// Memory is an in-memory browser. It keeps tabs and groups consistent the
// way the browser does (grouping moves tabs, empty groups disappear) and
// records notifications, badges, bookmarks and discards.
type Memory struct {
	mu        sync.Mutex
	current   int
	tabs      []*types.Tab
	groups    map[int]*types.TabGroup
	nextGroup int

	notes     []Notification
	badge     [2]string
	bookmarks []Bookmark
	discarded []int
	calls     map[string]int

	// Fail, when set, is consulted before every operation; a non-nil
	// result is returned as the operation's failure.
	Fail func(action string) error
}

// NewMemory returns a browser holding tabs, with window 1 current.
func NewMemory(tabs ...*types.Tab) *Memory {
	m := &Memory{
		current:   1,
		groups:    make(map[int]*types.TabGroup),
		nextGroup: 100,
		calls:     make(map[string]int),
	}
	for _, t := range tabs {
		c := *t
		if c.WindowID == 0 {
			c.WindowID = m.current
		}
		if c.GroupID == 0 {
			c.GroupID = types.NoGroup
		}
		m.tabs = append(m.tabs, &c)
		if c.Grouped() {
			if _, ok := m.groups[c.GroupID]; !ok {
				m.groups[c.GroupID] = &types.TabGroup{ID: c.GroupID, WindowID: c.WindowID, Color: types.ColorGrey}
			}
		}
	}
	return m
}

// AddGroup registers an existing group, for seeding.
func (m *Memory) AddGroup(g types.TabGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := g
	if c.WindowID == 0 {
		c.WindowID = m.current
	}
	m.groups[c.ID] = &c
}

func (m *Memory) enter(action string) error {
	m.calls[action]++
	if m.Fail != nil {
		if err := m.Fail(action); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrHostOperation, action, err)
		}
	}
	return nil
}

func (m *Memory) window(windowID int) int {
	if windowID == CurrentWindow {
		return m.current
	}
	return windowID
}

func (m *Memory) QueryTabs(ctx context.Context, windowID int) ([]*types.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("queryTabs"); err != nil {
		return nil, err
	}
	w := m.window(windowID)
	var out []*types.Tab
	for _, t := range m.tabs {
		if w == AllWindows || t.WindowID == w {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *Memory) QueryGroups(ctx context.Context, windowID int) ([]*types.TabGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("queryGroups"); err != nil {
		return nil, err
	}
	w := m.window(windowID)
	var out []*types.TabGroup
	for _, g := range m.groups {
		if w == AllWindows || g.WindowID == w {
			c := *g
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *types.TabGroup) int { return a.ID - b.ID })
	return out, nil
}

func (m *Memory) Group(ctx context.Context, tabIDs []int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("group"); err != nil {
		return 0, err
	}
	if len(tabIDs) == 0 {
		return 0, fmt.Errorf("%w: group: no tabs", ErrHostOperation)
	}
	first := m.tab(tabIDs[0])
	if first == nil {
		return 0, fmt.Errorf("%w: group: no tab %d", ErrHostOperation, tabIDs[0])
	}
	id := m.nextGroup
	m.nextGroup++
	m.groups[id] = &types.TabGroup{ID: id, WindowID: first.WindowID, Color: types.ColorGrey}
	for _, tid := range tabIDs {
		if t := m.tab(tid); t != nil {
			t.GroupID = id
		}
	}
	m.prune()
	return id, nil
}

func (m *Memory) UpdateGroup(ctx context.Context, groupID int, title string, color types.Color, collapsed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("updateGroup"); err != nil {
		return err
	}
	g, ok := m.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: updateGroup: no group %d", ErrHostOperation, groupID)
	}
	g.Title, g.Color, g.Collapsed = title, color, collapsed
	return nil
}

func (m *Memory) SetPinned(ctx context.Context, tabID int, pinned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("setPinned"); err != nil {
		return err
	}
	t := m.tab(tabID)
	if t == nil {
		return fmt.Errorf("%w: setPinned: no tab %d", ErrHostOperation, tabID)
	}
	t.Pinned = pinned
	return nil
}

func (m *Memory) Ungroup(ctx context.Context, tabIDs []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ungroup"); err != nil {
		return err
	}
	for _, id := range tabIDs {
		if t := m.tab(id); t != nil {
			t.GroupID = types.NoGroup
		}
	}
	m.prune()
	return nil
}

func (m *Memory) Discard(ctx context.Context, tabID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("discard"); err != nil {
		return err
	}
	m.discarded = append(m.discarded, tabID)
	return nil
}

func (m *Memory) CreateBookmark(ctx context.Context, folder, title, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("createBookmark"); err != nil {
		return err
	}
	m.bookmarks = append(m.bookmarks, Bookmark{Folder: folder, Title: title, URL: url})
	return nil
}

func (m *Memory) Notify(ctx context.Context, title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("notify"); err != nil {
		return err
	}
	m.notes = append(m.notes, Notification{Title: title, Message: message})
	return nil
}

func (m *Memory) SetBadge(ctx context.Context, text, color string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("setBadge"); err != nil {
		return err
	}
	m.badge = [2]string{text, color}
	return nil
}

// Groups returns a snapshot of every group.
func (m *Memory) Groups() []types.TabGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.TabGroup
	for _, g := range m.groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b types.TabGroup) int { return a.ID - b.ID })
	return out
}

// Members returns the ids of the tabs in group id, in tab order.
func (m *Memory) Members(id int) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for _, t := range m.tabs {
		if t.GroupID == id {
			out = append(out, t.ID)
		}
	}
	return out
}

// Tab returns a copy of the tab with id.
func (m *Memory) Tab(id int) (types.Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tab(id)
	if t == nil {
		return types.Tab{}, false
	}
	return *t, true
}

// Notifications returns the recorded notifications.
func (m *Memory) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.notes)
}

// Badge returns the last badge text and color.
func (m *Memory) Badge() (text, color string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.badge[0], m.badge[1]
}

// Bookmarks returns the recorded bookmarks.
func (m *Memory) Bookmarks() []Bookmark {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.bookmarks)
}

// Discarded returns the ids of discarded tabs.
func (m *Memory) Discarded() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.discarded)
}

// Calls returns how many times action was invoked.
func (m *Memory) Calls(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[action]
}

func (m *Memory) tab(id int) *types.Tab {
	for _, t := range m.tabs {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// prune drops groups with no member tabs.
func (m *Memory) prune() {
	used := make(map[int]bool)
	for _, t := range m.tabs {
		if t.Grouped() {
			used[t.GroupID] = true
		}
	}
	for id := range m.groups {
		if !used[id] {
			delete(m.groups, id)
		}
	}
}
