// Package organizer executes group plans, ungroup/undo, suspension and
// archiving against the browser. A failed browser call is logged and
// skipped; it never aborts the rest of a pass.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lotas/tabgruppen/internal/analyzer"
	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/history"
	"github.com/lotas/tabgruppen/internal/host"
	"github.com/lotas/tabgruppen/internal/planner"
	"github.com/lotas/tabgruppen/internal/settings"
	"github.com/lotas/tabgruppen/internal/suggest"
	"github.com/lotas/tabgruppen/internal/types"
)

var (
	ErrTabNotFound   = errors.New("tab not found")
	ErrGroupNotFound = errors.New("group not found")
)

// Too-many-tabs notification text.
const (
	TooManyTabsTitle   = "Too Many Tabs"
	TooManyTabsMessage = "You have a lot of tabs open. Would you like to organize them?"
)

// Result summarizes one organize pass.
type Result struct {
	Planned  int   `json:"planned"`
	Created  int   `json:"created"`
	Failed   int   `json:"failed"`
	GroupIDs []int `json:"groupIds"`
	Shared   bool  `json:"shared,omitempty"`
}

// Organizer ties the planner, suggestion engine and history to a Host.
type Organizer struct {
	host     host.Host
	store    settings.Store
	planner  *planner.Planner
	suggest  *suggest.Engine
	history  *history.Buffer
	inFlight singleflight.Group
	now      func() time.Time
}

// New returns an Organizer.
func New(h host.Host, store settings.Store, p *planner.Planner, s *suggest.Engine, hist *history.Buffer) *Organizer {
	return &Organizer{
		host:    h,
		store:   store,
		planner: p,
		suggest: s,
		history: hist,
		now:     time.Now,
	}
}

// Organize groups the tabs of windowID. Concurrent calls for the same window
// share a single pass and its result.
func (o *Organizer) Organize(ctx context.Context, windowID int) (Result, error) {
	v, err, shared := o.inFlight.Do("organize:"+strconv.Itoa(windowID), func() (any, error) {
		return o.organize(ctx, windowID)
	})
	if err != nil {
		return Result{}, err
	}
	res := v.(Result)
	res.Shared = shared
	return res, nil
}

func (o *Organizer) organize(ctx context.Context, windowID int) (Result, error) {
	s, err := o.store.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load settings: %w", err)
	}
	tabs, err := o.host.QueryTabs(ctx, windowID)
	if err != nil {
		return Result{}, fmt.Errorf("query tabs: %w", err)
	}

	plans := o.planner.Plan(tabs, s, o.now())
	if err := o.suggest.RecordPattern(ctx, tabs); err != nil {
		applog.Error("organize.pattern", err)
	}

	res := Result{Planned: len(plans)}
	for _, plan := range plans {
		gid, err := o.apply(ctx, plan, s.AutoCollapse, s.PinGroups)
		if err != nil {
			applog.Error("organize.group", err, "key", plan.Key, "title", plan.Title)
			res.Failed++
			continue
		}
		res.Created++
		res.GroupIDs = append(res.GroupIDs, gid)
	}
	applog.Info("organize.done", "window", windowID, "tabs", len(tabs), "planned", res.Planned, "created", res.Created, "failed", res.Failed)
	return res, nil
}

// apply creates one group from plan. Pinning failures are logged per tab.
func (o *Organizer) apply(ctx context.Context, plan types.GroupPlan, collapsed, pin bool) (int, error) {
	gid, err := o.host.Group(ctx, plan.MemberIDs)
	if err != nil {
		return 0, err
	}
	if err := o.host.UpdateGroup(ctx, gid, plan.Title, plan.Color, collapsed); err != nil {
		return gid, err
	}
	applog.Info("organize.group", "key", plan.Key, "title", plan.Title, "color", string(plan.Color), "tabs", len(plan.MemberIDs), "group", gid)
	if pin {
		for _, id := range plan.MemberIDs {
			if err := o.host.SetPinned(ctx, id, true); err != nil {
				applog.Error("organize.pin", err, "tab", id)
			}
		}
	}
	return gid, nil
}

// OrganizeSimilar groups every tab of windowID sharing tabID's domain into
// one collapsed group.
func (o *Organizer) OrganizeSimilar(ctx context.Context, windowID, tabID int) (Result, error) {
	s, err := o.store.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load settings: %w", err)
	}
	tabs, err := o.host.QueryTabs(ctx, windowID)
	if err != nil {
		return Result{}, fmt.Errorf("query tabs: %w", err)
	}
	var anchor *types.Tab
	for _, t := range tabs {
		if t.ID == tabID {
			anchor = t
			break
		}
	}
	if anchor == nil {
		return Result{}, fmt.Errorf("organize similar: %w: %d", ErrTabNotFound, tabID)
	}

	plan, ok := o.planner.PlanSimilar(tabs, anchor, s)
	if !ok {
		return Result{}, nil
	}
	gid, err := o.apply(ctx, plan, true, false)
	if err != nil {
		applog.Error("organize.similar", err, "domain", plan.Key)
		return Result{Planned: 1, Failed: 1}, nil
	}
	return Result{Planned: 1, Created: 1, GroupIDs: []int{gid}}, nil
}

// UngroupAll dissolves every group of windowID and records each in the
// history so it can be restored. Nothing is recorded when the browser
// refuses. It returns the number of groups.
func (o *Organizer) UngroupAll(ctx context.Context, windowID int) (int, error) {
	groups, err := o.host.QueryGroups(ctx, windowID)
	if err != nil {
		return 0, fmt.Errorf("query groups: %w", err)
	}
	tabs, err := o.host.QueryTabs(ctx, windowID)
	if err != nil {
		return 0, fmt.Errorf("query tabs: %w", err)
	}

	members := make(map[int][]int)
	var grouped []int
	for _, t := range tabs {
		if t.Grouped() {
			members[t.GroupID] = append(members[t.GroupID], t.ID)
			grouped = append(grouped, t.ID)
		}
	}
	if len(grouped) == 0 {
		return 0, nil
	}
	var entries []types.HistoryEntry
	for _, g := range groups {
		if len(members[g.ID]) == 0 {
			continue
		}
		entries = append(entries, types.HistoryEntry{
			GroupID:   g.ID,
			Title:     g.Title,
			Color:     g.Color,
			MemberIDs: members[g.ID],
			WindowID:  g.WindowID,
		})
	}

	if err := o.host.Ungroup(ctx, grouped); err != nil {
		return 0, fmt.Errorf("ungroup: %w", err)
	}
	for _, e := range entries {
		o.history.Record(e)
	}
	applog.Info("ungroup.all", "window", windowID, "groups", len(entries), "tabs", len(grouped))
	return len(entries), nil
}

// UngroupTab removes one tab from its group.
func (o *Organizer) UngroupTab(ctx context.Context, tabID int) error {
	if err := o.host.Ungroup(ctx, []int{tabID}); err != nil {
		return fmt.Errorf("ungroup tab: %w", err)
	}
	return nil
}

// Undo restores a group dissolved by UngroupAll. groupID 0 restores the most
// recent one. Tabs closed since are skipped. The history entry is consumed
// on success and kept when the browser refuses.
func (o *Organizer) Undo(ctx context.Context, groupID int) (int, error) {
	var (
		entry types.HistoryEntry
		ok    bool
	)
	if groupID == 0 {
		entry, ok = o.history.TakeLatest()
	} else {
		entry, ok = o.history.Take(groupID)
	}
	if !ok {
		return 0, fmt.Errorf("undo %d: %w", groupID, history.ErrNotFound)
	}

	tabs, err := o.host.QueryTabs(ctx, host.AllWindows)
	if err != nil {
		o.history.Record(entry)
		return 0, fmt.Errorf("query tabs: %w", err)
	}
	open := make(map[int]bool, len(tabs))
	for _, t := range tabs {
		open[t.ID] = true
	}
	var members []int
	for _, id := range entry.MemberIDs {
		if open[id] {
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return 0, fmt.Errorf("undo %q: %w: no member tab is still open", entry.Title, ErrTabNotFound)
	}

	plan := types.GroupPlan{Key: entry.Title, MemberIDs: members, Color: entry.Color, Title: entry.Title}
	gid, err := o.apply(ctx, plan, false, false)
	if err != nil {
		o.history.Record(entry)
		return 0, fmt.Errorf("restore %q: %w", entry.Title, err)
	}
	applog.Info("ungroup.undo", "title", entry.Title, "old_group", entry.GroupID, "group", gid, "tabs", len(members))
	return gid, nil
}

// SuspendInactive discards every tab of groups whose most recent access is
// older than the configured threshold. It returns the number of discarded tabs.
func (o *Organizer) SuspendInactive(ctx context.Context, now time.Time) (int, error) {
	s, err := o.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load settings: %w", err)
	}
	tabs, err := o.host.QueryTabs(ctx, host.AllWindows)
	if err != nil {
		return 0, fmt.Errorf("query tabs: %w", err)
	}
	threshold := time.Duration(s.SuspendAfterHours) * time.Hour
	inactive := make(map[int]bool)
	for _, id := range analyzer.InactiveGroups(tabs, threshold, now) {
		inactive[id] = true
	}

	discarded := 0
	for _, t := range tabs {
		if !inactive[t.GroupID] {
			continue
		}
		if err := o.host.Discard(ctx, t.ID); err != nil {
			applog.Error("suspend.discard", err, "tab", t.ID)
			continue
		}
		discarded++
	}
	if len(inactive) > 0 {
		applog.Info("suspend.done", "groups", len(inactive), "tabs", discarded)
	}
	return discarded, nil
}

// ArchiveGroup bookmarks every tab of groupID into a folder named after the
// group, then ungroups them. It returns the number of bookmarks created.
func (o *Organizer) ArchiveGroup(ctx context.Context, groupID int) (int, error) {
	groups, err := o.host.QueryGroups(ctx, host.AllWindows)
	if err != nil {
		return 0, fmt.Errorf("query groups: %w", err)
	}
	var group *types.TabGroup
	for _, g := range groups {
		if g.ID == groupID {
			group = g
			break
		}
	}
	if group == nil {
		return 0, fmt.Errorf("archive %d: %w", groupID, ErrGroupNotFound)
	}
	tabs, err := o.host.QueryTabs(ctx, host.AllWindows)
	if err != nil {
		return 0, fmt.Errorf("query tabs: %w", err)
	}

	folder := group.Title
	if folder == "" {
		folder = "Archived group " + strconv.Itoa(group.ID)
	}
	var members []int
	saved := 0
	for _, t := range tabs {
		if t.GroupID != groupID {
			continue
		}
		members = append(members, t.ID)
		if err := o.host.CreateBookmark(ctx, folder, t.Title, t.URL); err != nil {
			applog.Error("archive.bookmark", err, "tab", t.ID)
			continue
		}
		saved++
	}
	if len(members) > 0 {
		if err := o.host.Ungroup(ctx, members); err != nil {
			return saved, fmt.Errorf("ungroup archived group: %w", err)
		}
	}
	applog.Info("archive.done", "folder", folder, "bookmarks", saved)
	return saved, nil
}

// CheckTabCount notifies the user when windowID holds more tabs than the
// configured threshold and reports whether it did.
func (o *Organizer) CheckTabCount(ctx context.Context, windowID int) (bool, error) {
	s, err := o.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load settings: %w", err)
	}
	tabs, err := o.host.QueryTabs(ctx, windowID)
	if err != nil {
		return false, fmt.Errorf("query tabs: %w", err)
	}
	if len(tabs) <= s.TooManyTabsThreshold {
		return false, nil
	}
	if err := o.host.Notify(ctx, TooManyTabsTitle, TooManyTabsMessage); err != nil {
		applog.Error("tabs.too_many", err)
	}
	return true, nil
}

// Statistics summarizes windowID.
func (o *Organizer) Statistics(ctx context.Context, windowID int) (types.Stats, error) {
	s, err := o.store.Load(ctx)
	if err != nil {
		return types.Stats{}, fmt.Errorf("load settings: %w", err)
	}
	tabs, err := o.host.QueryTabs(ctx, windowID)
	if err != nil {
		return types.Stats{}, fmt.Errorf("query tabs: %w", err)
	}
	groups, err := o.host.QueryGroups(ctx, windowID)
	if err != nil {
		return types.Stats{}, fmt.Errorf("query groups: %w", err)
	}
	threshold := time.Duration(s.SuspendAfterHours) * time.Hour
	return analyzer.ComputeStats(tabs, groups, threshold, o.now()), nil
}

// Suggestions ranks recorded patterns against the tabs of windowID.
func (o *Organizer) Suggestions(ctx context.Context, windowID int) ([]types.Suggestion, error) {
	tabs, err := o.host.QueryTabs(ctx, windowID)
	if err != nil {
		return nil, fmt.Errorf("query tabs: %w", err)
	}
	return o.suggest.Suggest(ctx, tabs)
}
