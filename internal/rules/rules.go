// Package rules holds group templates (named domain lists with a fixed
// color) and the time-of-day rules that decide which templates apply.
package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/lotas/tabgruppen/internal/types"
)

// Template is a named group of domain patterns with a fixed color.
// Patterns are matched against the tab's full hostname. A pattern containing
// glob metacharacters ("*.atlassian.net") is matched as a glob over
// dot-separated labels; any other pattern matches by substring, like smart
// groups do.
type Template struct {
	Name    string      `yaml:"name"`
	Domains []string    `yaml:"domains"`
	Color   types.Color `yaml:"color"`
}

// Rule activates templates during a daily time window on the given weekdays.
// Start after End means the window wraps past midnight; Days refers to the
// day the window opened. Empty Days means every day.
type Rule struct {
	Name      string         `yaml:"name"`
	Active    bool           `yaml:"active"`
	Start     string         `yaml:"start"`
	End       string         `yaml:"end"`
	Days      []time.Weekday `yaml:"days"`
	Templates []string       `yaml:"templates"`
}

// DefaultTemplates mirrors the templates shipped with the extension.
var DefaultTemplates = []Template{
	{Name: "Work", Domains: []string{"slack.com", "github.com", "gitlab.com", "jira.com"}, Color: types.ColorBlue},
	{Name: "Social", Domains: []string{"facebook.com", "twitter.com", "instagram.com"}, Color: types.ColorPink},
	{Name: "Email", Domains: []string{"gmail.com", "outlook.com", "yahoo.com"}, Color: types.ColorPurple},
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// DefaultRules mirrors the rules shipped with the extension.
var DefaultRules = []Rule{
	{Name: "workHours", Active: true, Start: "09:00", End: "17:00", Days: weekdays, Templates: []string{"Work"}},
	{Name: "afterHours", Active: true, Start: "17:00", End: "09:00", Days: weekdays, Templates: []string{"Social", "Entertainment"}},
}

type compiledTemplate struct {
	Template
	globs      []glob.Glob
	substrings []string
}

type compiledRule struct {
	Rule
	start, end int // minutes since midnight
}

// Set is a compiled, read-only collection of templates and rules.
type Set struct {
	templates []compiledTemplate
	byName    map[string]int
	rules     []compiledRule
}

// Default returns the built-in templates and rules.
func Default() *Set {
	s, err := Compile(DefaultTemplates, DefaultRules)
	if err != nil {
		panic(err)
	}
	return s
}

// Compile validates and compiles templates and rules.
func Compile(templates []Template, rules []Rule) (*Set, error) {
	s := &Set{byName: make(map[string]int)}
	for _, t := range templates {
		if t.Name == "" {
			return nil, fmt.Errorf("template without name")
		}
		if !t.Color.Valid() {
			return nil, fmt.Errorf("template %q: invalid color %q", t.Name, t.Color)
		}
		ct := compiledTemplate{Template: t}
		for _, d := range t.Domains {
			d = strings.ToLower(strings.TrimSpace(d))
			if d == "" {
				continue
			}
			if strings.ContainsAny(d, "*?[{") {
				g, err := glob.Compile(d, '.')
				if err != nil {
					return nil, fmt.Errorf("template %q: pattern %q: %w", t.Name, d, err)
				}
				ct.globs = append(ct.globs, g)
				continue
			}
			ct.substrings = append(ct.substrings, d)
		}
		s.byName[t.Name] = len(s.templates)
		s.templates = append(s.templates, ct)
	}
	for _, r := range rules {
		start, err := parseClock(r.Start)
		if err != nil {
			return nil, fmt.Errorf("rule %q: start: %w", r.Name, err)
		}
		end, err := parseClock(r.End)
		if err != nil {
			return nil, fmt.Errorf("rule %q: end: %w", r.Name, err)
		}
		s.rules = append(s.rules, compiledRule{Rule: r, start: start, end: end})
	}
	return s, nil
}

// Templates returns the templates in declaration order.
func (s *Set) Templates() []Template {
	out := make([]Template, len(s.templates))
	for i, t := range s.templates {
		out[i] = t.Template
	}
	return out
}

// Active returns the templates named by rules active at now, in rule order
// then template-list order, without duplicates. Unknown names are skipped.
func (s *Set) Active(now time.Time) []Template {
	var out []Template
	seen := make(map[int]bool)
	for _, r := range s.rules {
		if !r.activeAt(now) {
			continue
		}
		for _, name := range r.Templates {
			idx, ok := s.byName[name]
			if !ok || seen[idx] {
				continue
			}
			seen[idx] = true
			out = append(out, s.templates[idx].Template)
		}
	}
	return out
}

// Match returns the first active template with a pattern matching host, the
// tab's full hostname.
func (s *Set) Match(domain string, now time.Time) (Template, bool) {
	domain = strings.ToLower(domain)
	if domain == "" {
		return Template{}, false
	}
	for _, t := range s.Active(now) {
		if s.templates[s.byName[t.Name]].matches(domain) {
			return t, true
		}
	}
	return Template{}, false
}

func (t compiledTemplate) matches(domain string) bool {
	for _, sub := range t.substrings {
		if strings.Contains(domain, sub) {
			return true
		}
	}
	for _, g := range t.globs {
		if g.Match(domain) {
			return true
		}
	}
	return false
}

func (r compiledRule) activeAt(now time.Time) bool {
	if !r.Active {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	today := now.Weekday()
	yesterday := (today + 6) % 7

	switch {
	case r.start == r.end:
		return r.onDay(today)
	case r.start < r.end:
		return minute >= r.start && minute < r.end && r.onDay(today)
	default:
		if minute >= r.start {
			return r.onDay(today)
		}
		return minute < r.end && r.onDay(yesterday)
	}
}

func (r compiledRule) onDay(d time.Weekday) bool {
	if len(r.Days) == 0 {
		return true
	}
	for _, day := range r.Days {
		if day == d {
			return true
		}
	}
	return false
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
