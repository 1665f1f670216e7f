// Package planner partitions a window's tabs into ordered group plans.
package planner

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lotas/tabgruppen/internal/classify"
	"github.com/lotas/tabgruppen/internal/colors"
	"github.com/lotas/tabgruppen/internal/rules"
	"github.com/lotas/tabgruppen/internal/settings"
	"github.com/lotas/tabgruppen/internal/types"
)

// EmptyTabsKey is the bucket that collects new-tab pages when
// GroupEmptyTabs is set.
const EmptyTabsKey = "Empty Tabs"

// Planner turns tabs and settings into group plans. It holds no per-pass
// state; the template set can be swapped while plans are being computed.
type Planner struct {
	colors *colors.Assigner
	smart  classify.Table
	rules  atomic.Pointer[rules.Set]
	lang   language.Tag
}

// New returns a Planner. A nil rule set means the built-in defaults.
func New(c *colors.Assigner, smart classify.Table, set *rules.Set) *Planner {
	return NewWithLanguage(c, smart, set, language.Und)
}

// NewWithLanguage is New with an explicit collation language for title sorting.
func NewWithLanguage(c *colors.Assigner, smart classify.Table, set *rules.Set, lang language.Tag) *Planner {
	if set == nil {
		set = rules.Default()
	}
	p := &Planner{colors: c, smart: smart, lang: lang}
	p.rules.Store(set)
	return p
}

// SetRules replaces the template set used by later passes.
func (p *Planner) SetRules(set *rules.Set) {
	if set != nil {
		p.rules.Store(set)
	}
}

// Rules returns the current template set.
func (p *Planner) Rules() *rules.Set {
	return p.rules.Load()
}

type bucket struct {
	key   string
	tabs  []*types.Tab
	color types.Color // fixed color from a template, empty otherwise
}

// Plan computes the group plans for tabs. Buckets appear in the order their
// first tab was seen; within a bucket tabs keep their relative order unless
// SortTabs is set.
func (p *Planner) Plan(tabs []*types.Tab, s settings.Settings, now time.Time) []types.GroupPlan {
	buckets := p.bucketize(tabs, s, now)

	if s.SortTabs {
		col := collate.New(p.lang)
		for _, b := range buckets {
			sort.SliceStable(b.tabs, func(i, j int) bool {
				return col.CompareString(b.tabs[i].Title, b.tabs[j].Title) < 0
			})
		}
	}

	size := max(s.MaxGroupSize, 1)
	var plans []types.GroupPlan
	for _, b := range buckets {
		if len(b.tabs) < 2 && !s.GroupSingleTabs {
			continue
		}

		color := b.color
		if custom, ok := s.CustomColors[b.key]; ok && custom.Valid() {
			color = custom
		}
		if color == "" {
			color = p.colors.ColorFor(b.key, s)
		}

		segments := split(ids(b.tabs), size)
		for i, seg := range segments {
			plan := types.GroupPlan{
				Key:       b.key,
				MemberIDs: seg,
				Color:     color,
				Title:     b.key,
			}
			if len(segments) > 1 {
				idx := i
				plan.SplitIndex = &idx
				plan.Title = fmt.Sprintf("%s (%d)", b.key, i+1)
			}
			plans = append(plans, plan)
		}
	}
	return plans
}

func (p *Planner) bucketize(tabs []*types.Tab, s settings.Settings, now time.Time) []*bucket {
	var order []*bucket
	byKey := make(map[string]*bucket)
	add := func(key string, t *types.Tab, color types.Color) {
		b, ok := byKey[key]
		if !ok {
			b = &bucket{key: key, color: color}
			byKey[key] = b
			order = append(order, b)
		}
		b.tabs = append(b.tabs, t)
	}

	var set *rules.Set
	if s.UseTemplates {
		set = p.rules.Load()
	}

	for _, t := range tabs {
		if excluded(t.URL, s.ExcludeDomains) {
			continue
		}
		if classify.IsEmptyTab(t.URL) {
			if s.GroupEmptyTabs {
				add(EmptyTabsKey, t, "")
			}
			continue
		}
		if classify.IsInternal(t.URL) {
			continue
		}

		domain, err := p.domain(t.URL, s)
		if err != nil {
			continue
		}

		if set != nil {
			host, err := classify.DomainKey(t.URL, true)
			if err != nil {
				host = domain
			}
			if tpl, ok := set.Match(host, now); ok {
				add(tpl.Name, t, tpl.Color)
				continue
			}
		}
		if s.SmartGroups {
			if name, ok := p.smart.Match(domain); ok {
				add(name, t, "")
				continue
			}
		}
		add(domain, t, "")
	}
	return order
}

func (p *Planner) domain(rawURL string, s settings.Settings) (string, error) {
	if s.PublicSuffixAware && !s.GroupBySubdomain {
		return classify.RegistrableDomain(rawURL)
	}
	return classify.DomainKey(rawURL, s.GroupBySubdomain)
}

// PlanSimilar returns the single plan that groups every tab sharing the
// anchor's bare domain. It returns false when the anchor has no domain.
// The plan is collapsed by the caller regardless of AutoCollapse.
func (p *Planner) PlanSimilar(tabs []*types.Tab, anchor *types.Tab, s settings.Settings) (types.GroupPlan, bool) {
	domain, err := classify.DomainKey(anchor.URL, false)
	if err != nil {
		return types.GroupPlan{}, false
	}
	var members []int
	for _, t := range tabs {
		d, err := classify.DomainKey(t.URL, false)
		if err != nil || d != domain {
			continue
		}
		members = append(members, t.ID)
	}
	if len(members) == 0 {
		return types.GroupPlan{}, false
	}
	return types.GroupPlan{
		Key:       domain,
		MemberIDs: members,
		Color:     p.colors.ColorFor(domain, s),
		Title:     domain,
	}, true
}

func excluded(rawURL string, patterns []string) bool {
	for _, d := range patterns {
		if d != "" && strings.Contains(rawURL, d) {
			return true
		}
	}
	return false
}

func ids(tabs []*types.Tab) []int {
	out := make([]int, len(tabs))
	for i, t := range tabs {
		out[i] = t.ID
	}
	return out
}

// split cuts ids into contiguous segments of at most size elements.
func split(ids []int, size int) [][]int {
	var out [][]int
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end:end])
	}
	return out
}
