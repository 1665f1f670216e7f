package planner

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/lotas/tabgruppen/internal/classify"
	"github.com/lotas/tabgruppen/internal/colors"
	"github.com/lotas/tabgruppen/internal/rules"
	"github.com/lotas/tabgruppen/internal/settings"
	"github.com/lotas/tabgruppen/internal/types"
)

// monday10 falls inside the default workHours rule.
var monday10 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.Local)

func newPlanner() *Planner {
	return New(colors.New(), classify.DefaultSmartGroups, nil)
}

func tab(id int, url, title string) *types.Tab {
	return &types.Tab{ID: id, URL: url, Title: title, GroupID: types.NoGroup}
}

func TestPlanDropsSingleTabBuckets(t *testing.T) {
	tabs := []*types.Tab{
		tab(1, "https://a.com/1", "a1"),
		tab(2, "https://a.com/2", "a2"),
		tab(3, "https://b.com/1", "b1"),
	}
	plans := newPlanner().Plan(tabs, settings.Defaults(), monday10)
	if len(plans) != 1 {
		t.Fatalf("got %d plans, want 1: %+v", len(plans), plans)
	}
	p := plans[0]
	if p.Key != "a.com" || p.Title != "a.com" {
		t.Errorf("plan = %+v, want a.com", p)
	}
	if !slices.Equal(p.MemberIDs, []int{1, 2}) {
		t.Errorf("members = %v, want [1 2]", p.MemberIDs)
	}
	if p.SplitIndex != nil {
		t.Errorf("single segment should have no split index, got %d", *p.SplitIndex)
	}
	if !p.Color.Valid() {
		t.Errorf("invalid color %q", p.Color)
	}
}

func TestPlanGroupSingleTabs(t *testing.T) {
	s := settings.Defaults()
	s.GroupSingleTabs = true
	tabs := []*types.Tab{tab(1, "https://a.com/1", "a"), tab(2, "https://b.com/1", "b")}
	plans := newPlanner().Plan(tabs, s, monday10)
	if len(plans) != 2 {
		t.Fatalf("got %d plans, want 2", len(plans))
	}
	if plans[0].Key != "a.com" || plans[1].Key != "b.com" {
		t.Errorf("bucket order = %s, %s", plans[0].Key, plans[1].Key)
	}
}

func TestPlanSkipsExcludedInternalAndEmpty(t *testing.T) {
	s := settings.Defaults()
	s.ExcludeDomains = []string{"", "secret.org"}
	s.GroupSingleTabs = true
	s.SortTabs = false
	tabs := []*types.Tab{
		tab(1, "https://secret.org/x", "excluded"),
		tab(2, "chrome://settings", "internal"),
		tab(3, "chrome://newtab/", "new tab"),
		tab(4, "", "blank"),
		tab(5, "not a url %%", "broken"),
		tab(6, "https://kept.com/", "kept"),
	}
	plans := newPlanner().Plan(tabs, s, monday10)
	if len(plans) != 1 || plans[0].Key != "kept.com" {
		t.Fatalf("plans = %+v, want only kept.com", plans)
	}

	s.GroupEmptyTabs = true
	plans = newPlanner().Plan(tabs, s, monday10)
	var empty *types.GroupPlan
	for i := range plans {
		if plans[i].Key == EmptyTabsKey {
			empty = &plans[i]
		}
	}
	if empty == nil {
		t.Fatalf("no %q plan in %+v", EmptyTabsKey, plans)
	}
	if !slices.Equal(empty.MemberIDs, []int{3, 4}) {
		t.Errorf("empty tab members = %v, want [3 4]", empty.MemberIDs)
	}
}

func TestPlanSmartGroups(t *testing.T) {
	tabs := []*types.Tab{
		tab(1, "https://mail.google.com/", "Mail"),
		tab(2, "https://www.gmail.com/", "Inbox"),
		tab(3, "https://docs.google.com/", "Docs"),
	}
	s := settings.Defaults()
	s.SortTabs = false

	plans := newPlanner().Plan(tabs, s, monday10)
	if len(plans) != 1 || plans[0].Key != "Google Services" {
		t.Fatalf("plans = %+v, want Google Services", plans)
	}
	if !slices.Equal(plans[0].MemberIDs, []int{1, 2, 3}) {
		t.Errorf("members = %v", plans[0].MemberIDs)
	}

	s.SmartGroups = false
	plans = newPlanner().Plan(tabs, s, monday10)
	if len(plans) != 1 || plans[0].Key != "google.com" {
		t.Errorf("without smart groups plans = %+v, want google.com only", plans)
	}
}

func TestPlanTemplatesTakePrecedence(t *testing.T) {
	set, err := rules.Compile(
		[]rules.Template{{Name: "Work", Domains: []string{"google.com", "github.com"}, Color: types.ColorBlue}},
		[]rules.Rule{{Name: "always", Active: true, Start: "00:00", End: "00:00", Templates: []string{"Work"}}},
	)
	if err != nil {
		t.Fatal(err)
	}
	p := New(colors.New(), classify.DefaultSmartGroups, set)
	tabs := []*types.Tab{
		tab(1, "https://mail.google.com/", "Mail"),
		tab(2, "https://github.com/x", "Repo"),
	}

	s := settings.Defaults()
	plans := p.Plan(tabs, s, monday10)
	if len(plans) != 0 {
		t.Fatalf("templates off: got %+v, want no plans", plans)
	}

	s.UseTemplates = true
	plans = p.Plan(tabs, s, monday10)
	if len(plans) != 1 || plans[0].Key != "Work" || plans[0].Color != types.ColorBlue {
		t.Fatalf("plans = %+v, want Work/blue", plans)
	}

	s.CustomColors = map[string]types.Color{"Work": types.ColorRed}
	plans = p.Plan(tabs, s, monday10)
	if plans[0].Color != types.ColorRed {
		t.Errorf("custom color should override template color, got %q", plans[0].Color)
	}
}

func TestPlanTemplateGlobMatchesHostname(t *testing.T) {
	set, err := rules.Compile(
		[]rules.Template{{Name: "Jira", Domains: []string{"*.atlassian.net"}, Color: types.ColorGreen}},
		[]rules.Rule{{Name: "always", Active: true, Start: "00:00", End: "00:00", Templates: []string{"Jira"}}},
	)
	if err != nil {
		t.Fatal(err)
	}
	p := New(colors.New(), classify.DefaultSmartGroups, set)
	tabs := []*types.Tab{
		tab(1, "https://foo.atlassian.net/browse/A-1", "A-1"),
		tab(2, "https://bar.atlassian.net/browse/B-2", "B-2"),
		tab(3, "https://example.com/a", "Ex A"),
		tab(4, "https://example.com/b", "Ex B"),
	}

	s := settings.Defaults()
	s.UseTemplates = true
	plans := p.Plan(tabs, s, monday10)

	byKey := make(map[string]types.GroupPlan)
	for _, pl := range plans {
		byKey[pl.Key] = pl
	}
	jira, ok := byKey["Jira"]
	if !ok {
		t.Fatalf("plans = %+v, want a Jira plan", plans)
	}
	if jira.Color != types.ColorGreen || !slices.Equal(jira.MemberIDs, []int{1, 2}) {
		t.Errorf("Jira plan = %+v, want green with tabs 1, 2", jira)
	}
	if _, ok := byKey["example.com"]; !ok {
		t.Errorf("unmatched tabs keep their domain key, plans = %+v", plans)
	}
}

func TestPlanSplitsLargeBuckets(t *testing.T) {
	var tabs []*types.Tab
	for i := 1; i <= 7; i++ {
		tabs = append(tabs, tab(i, fmt.Sprintf("https://big.com/%d", i), fmt.Sprintf("page %d", i)))
	}
	s := settings.Defaults()
	s.MaxGroupSize = 3

	plans := newPlanner().Plan(tabs, s, monday10)
	if len(plans) != 3 {
		t.Fatalf("got %d segments, want 3", len(plans))
	}
	wantTitles := []string{"big.com (1)", "big.com (2)", "big.com (3)"}
	wantSizes := []int{3, 3, 1}
	for i, p := range plans {
		if p.Title != wantTitles[i] {
			t.Errorf("segment %d title = %q, want %q", i, p.Title, wantTitles[i])
		}
		if len(p.MemberIDs) != wantSizes[i] {
			t.Errorf("segment %d size = %d, want %d", i, len(p.MemberIDs), wantSizes[i])
		}
		if p.SplitIndex == nil || *p.SplitIndex != i {
			t.Errorf("segment %d split index = %v", i, p.SplitIndex)
		}
		if p.Color != plans[0].Color {
			t.Errorf("segment %d color %q differs from first segment %q", i, p.Color, plans[0].Color)
		}
	}
}

func TestPlanSortsByTitle(t *testing.T) {
	tabs := []*types.Tab{
		tab(1, "https://a.com/1", "zebra"),
		tab(2, "https://a.com/2", "Äpfel"),
		tab(3, "https://a.com/3", "banana"),
	}
	s := settings.Defaults()
	plans := newPlanner().Plan(tabs, s, monday10)
	if !slices.Equal(plans[0].MemberIDs, []int{2, 3, 1}) {
		t.Errorf("sorted members = %v, want [2 3 1]", plans[0].MemberIDs)
	}

	s.SortTabs = false
	plans = newPlanner().Plan(tabs, s, monday10)
	if !slices.Equal(plans[0].MemberIDs, []int{1, 2, 3}) {
		t.Errorf("unsorted members = %v, want [1 2 3]", plans[0].MemberIDs)
	}
}

func TestPlanPublicSuffixAware(t *testing.T) {
	tabs := []*types.Tab{
		tab(1, "https://www.bbc.co.uk/news", "news"),
		tab(2, "https://www.itv.co.uk/", "itv"),
	}
	s := settings.Defaults()
	s.SortTabs = false

	plans := newPlanner().Plan(tabs, s, monday10)
	if len(plans) != 1 || plans[0].Key != "co.uk" {
		t.Errorf("default keys should lump co.uk, got %+v", plans)
	}

	s.PublicSuffixAware = true
	s.GroupSingleTabs = true
	plans = newPlanner().Plan(tabs, s, monday10)
	if len(plans) != 2 || plans[0].Key != "bbc.co.uk" || plans[1].Key != "itv.co.uk" {
		t.Errorf("public suffix aware plans = %+v", plans)
	}
}

func TestPlanSimilar(t *testing.T) {
	tabs := []*types.Tab{
		tab(1, "https://docs.github.com/", "docs"),
		tab(2, "https://example.com/", "other"),
		tab(3, "https://github.com/x", "repo"),
		tab(4, "chrome://newtab/", "new"),
	}
	p, ok := newPlanner().PlanSimilar(tabs, tabs[2], settings.Defaults())
	if !ok {
		t.Fatal("expected a plan")
	}
	if p.Title != "github.com" || !slices.Equal(p.MemberIDs, []int{1, 3}) {
		t.Errorf("plan = %+v", p)
	}

	if _, ok := newPlanner().PlanSimilar(tabs, tab(9, "", ""), settings.Defaults()); ok {
		t.Error("blank anchor should yield no plan")
	}
}

var hosts = []string{"a.com", "www.a.com", "b.org", "mail.google.com", "x.y.z.net", "c.io"}

func genTabs(t *rapid.T) []*types.Tab {
	n := rapid.IntRange(0, 40).Draw(t, "n")
	tabs := make([]*types.Tab, n)
	for i := range tabs {
		h := rapid.SampledFrom(hosts).Draw(t, "host")
		title := rapid.StringMatching(`[a-zA-Z]{0,6}`).Draw(t, "title")
		tabs[i] = tab(i+1, "https://"+h+"/"+title, title)
	}
	return tabs
}

// Every groupable tab lands in exactly one segment, no segment exceeds the
// size bound, and each bucket's segments concatenate in index order.
func TestPlanIsPartition(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tabs := genTabs(t)
		s := settings.Defaults()
		s.GroupSingleTabs = true
		s.SortTabs = rapid.Bool().Draw(t, "sort")
		s.SmartGroups = rapid.Bool().Draw(t, "smart")
		s.MaxGroupSize = rapid.IntRange(1, 5).Draw(t, "max")

		plans := newPlanner().Plan(tabs, s, monday10)

		seen := make(map[int]int)
		byKey := make(map[string][]int)
		for _, p := range plans {
			if len(p.MemberIDs) == 0 || len(p.MemberIDs) > s.MaxGroupSize {
				t.Fatalf("segment %q has %d members, bound %d", p.Title, len(p.MemberIDs), s.MaxGroupSize)
			}
			for _, id := range p.MemberIDs {
				seen[id]++
			}
			byKey[p.Key] = append(byKey[p.Key], p.MemberIDs...)
		}
		for _, tb := range tabs {
			if seen[tb.ID] != 1 {
				t.Fatalf("tab %d appears %d times", tb.ID, seen[tb.ID])
			}
		}

		if s.SortTabs {
			return
		}
		// Unsorted buckets keep the original relative order.
		for key, members := range byKey {
			if !slices.IsSorted(members) {
				t.Fatalf("bucket %q out of order: %v", key, members)
			}
		}
	})
}

func TestSplitConcatenates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOf(rapid.Int()).Draw(t, "ids")
		size := rapid.IntRange(1, 10).Draw(t, "size")
		var joined []int
		for _, seg := range split(ids, size) {
			if len(seg) > size || len(seg) == 0 {
				t.Fatalf("segment of %d with bound %d", len(seg), size)
			}
			joined = append(joined, seg...)
		}
		if !slices.Equal(joined, ids) {
			t.Fatalf("joined %v != %v", joined, ids)
		}
	})
}
