// Package settings defines the typed settings record shared by the tab
// grouping engine and the timer, and the single entry point that validates
// updates to it.
package settings

import (
	"github.com/lotas/tabgruppen/internal/types"
)

// Settings is the full options record. JSON keys match the keys the
// extension stores, so a stored value written by either side round-trips.
type Settings struct {
	AutoGroup            bool                   `json:"autoGroup"`
	GroupSingleTabs      bool                   `json:"groupSingleTabs"`
	ColorByDomain        bool                   `json:"colorByDomain"`
	MaxGroupSize         int                    `json:"maxGroupSize"`
	SortTabs             bool                   `json:"sortTabs"`
	AutoCollapse         bool                   `json:"autoCollapse"`
	PinGroups            bool                   `json:"pinGroups"`
	GroupBySubdomain     bool                   `json:"groupBySubdomain"`
	ExcludeDomains       []string               `json:"excludeDomains"`
	CustomColors         map[string]types.Color `json:"customColors"`
	GroupEmptyTabs       bool                   `json:"groupEmptyTabs"`
	SmartGroups          bool                   `json:"smartGroups"`
	DarkMode             bool                   `json:"darkMode"`
	UseTemplates         bool                   `json:"useTemplates"`
	PublicSuffixAware    bool                   `json:"publicSuffixAware"`
	SuspendAfterHours    int                    `json:"suspendAfterHours"`
	TooManyTabsThreshold int                    `json:"tooManyTabsThreshold"`

	PomodoroEnabled           bool `json:"pomodoroEnabled"`
	PomodoroWorkDuration      int  `json:"pomodoroWorkDuration"`
	PomodoroBreakDuration     int  `json:"pomodoroBreakDuration"`
	PomodoroLongBreakDuration int  `json:"pomodoroLongBreakDuration"`
	PomodoroNotifications     bool `json:"pomodoroNotifications"`
}

// Defaults returns a fresh Settings with the built-in default values.
func Defaults() Settings {
	return Settings{
		ColorByDomain:        true,
		MaxGroupSize:         10,
		SortTabs:             true,
		AutoCollapse:         true,
		ExcludeDomains:       []string{},
		CustomColors:         map[string]types.Color{},
		SmartGroups:          true,
		SuspendAfterHours:    24,
		TooManyTabsThreshold: 20,

		PomodoroWorkDuration:      25,
		PomodoroBreakDuration:     5,
		PomodoroLongBreakDuration: 15,
		PomodoroNotifications:     true,
	}
}

// Timer returns the timer-related subset of s.
func (s Settings) Timer() types.TimerSettings {
	return types.TimerSettings{
		Enabled:          s.PomodoroEnabled,
		WorkMinutes:      s.PomodoroWorkDuration,
		BreakMinutes:     s.PomodoroBreakDuration,
		LongBreakMinutes: s.PomodoroLongBreakDuration,
		Notifications:    s.PomodoroNotifications,
	}
}

// Patch is a partial update. Nil fields are left untouched; an empty,
// non-nil ExcludeDomains or CustomColors clears the stored value.
type Patch struct {
	AutoGroup            *bool                  `json:"autoGroup,omitempty"`
	GroupSingleTabs      *bool                  `json:"groupSingleTabs,omitempty"`
	ColorByDomain        *bool                  `json:"colorByDomain,omitempty"`
	MaxGroupSize         *int                   `json:"maxGroupSize,omitempty"`
	SortTabs             *bool                  `json:"sortTabs,omitempty"`
	AutoCollapse         *bool                  `json:"autoCollapse,omitempty"`
	PinGroups            *bool                  `json:"pinGroups,omitempty"`
	GroupBySubdomain     *bool                  `json:"groupBySubdomain,omitempty"`
	ExcludeDomains       []string               `json:"excludeDomains"`
	CustomColors         map[string]types.Color `json:"customColors"`
	GroupEmptyTabs       *bool                  `json:"groupEmptyTabs,omitempty"`
	SmartGroups          *bool                  `json:"smartGroups,omitempty"`
	DarkMode             *bool                  `json:"darkMode,omitempty"`
	UseTemplates         *bool                  `json:"useTemplates,omitempty"`
	PublicSuffixAware    *bool                  `json:"publicSuffixAware,omitempty"`
	SuspendAfterHours    *int                   `json:"suspendAfterHours,omitempty"`
	TooManyTabsThreshold *int                   `json:"tooManyTabsThreshold,omitempty"`

	PomodoroEnabled           *bool `json:"pomodoroEnabled,omitempty"`
	PomodoroWorkDuration      *int  `json:"pomodoroWorkDuration,omitempty"`
	PomodoroBreakDuration     *int  `json:"pomodoroBreakDuration,omitempty"`
	PomodoroLongBreakDuration *int  `json:"pomodoroLongBreakDuration,omitempty"`
	PomodoroNotifications     *bool `json:"pomodoroNotifications,omitempty"`
}

// Clamping bounds applied by Normalize.
const (
	MinWorkMinutes      = 1
	MaxWorkMinutes      = 60
	MinBreakMinutes     = 1
	MaxBreakMinutes     = 30
	MinLongBreakMinutes = 1
	MaxLongBreakMinutes = 60
	MinGroupTabs        = 1
	MaxGroupTabs        = 100
)

// Normalize clamps every numeric field of p into range and drops custom
// colors that are not palette colors. Out-of-range values are never rejected.
func (p Patch) Normalize() Patch {
	p.PomodoroWorkDuration = clampPtr(p.PomodoroWorkDuration, MinWorkMinutes, MaxWorkMinutes)
	p.PomodoroBreakDuration = clampPtr(p.PomodoroBreakDuration, MinBreakMinutes, MaxBreakMinutes)
	p.PomodoroLongBreakDuration = clampPtr(p.PomodoroLongBreakDuration, MinLongBreakMinutes, MaxLongBreakMinutes)
	p.MaxGroupSize = clampPtr(p.MaxGroupSize, MinGroupTabs, MaxGroupTabs)
	p.SuspendAfterHours = clampPtr(p.SuspendAfterHours, 1, 720)
	p.TooManyTabsThreshold = clampPtr(p.TooManyTabsThreshold, 1, 1000)

	if p.CustomColors != nil {
		colors := make(map[string]types.Color, len(p.CustomColors))
		for k, c := range p.CustomColors {
			if c.Valid() {
				colors[k] = c
			}
		}
		p.CustomColors = colors
	}
	return p
}

// Apply merges the normalized patch into s and returns the result.
func Apply(s Settings, p Patch) Settings {
	p = p.Normalize()
	setBool(&s.AutoGroup, p.AutoGroup)
	setBool(&s.GroupSingleTabs, p.GroupSingleTabs)
	setBool(&s.ColorByDomain, p.ColorByDomain)
	setInt(&s.MaxGroupSize, p.MaxGroupSize)
	setBool(&s.SortTabs, p.SortTabs)
	setBool(&s.AutoCollapse, p.AutoCollapse)
	setBool(&s.PinGroups, p.PinGroups)
	setBool(&s.GroupBySubdomain, p.GroupBySubdomain)
	if p.ExcludeDomains != nil {
		s.ExcludeDomains = append([]string(nil), p.ExcludeDomains...)
	}
	if p.CustomColors != nil {
		s.CustomColors = p.CustomColors
	}
	setBool(&s.GroupEmptyTabs, p.GroupEmptyTabs)
	setBool(&s.SmartGroups, p.SmartGroups)
	setBool(&s.DarkMode, p.DarkMode)
	setBool(&s.UseTemplates, p.UseTemplates)
	setBool(&s.PublicSuffixAware, p.PublicSuffixAware)
	setInt(&s.SuspendAfterHours, p.SuspendAfterHours)
	setInt(&s.TooManyTabsThreshold, p.TooManyTabsThreshold)

	setBool(&s.PomodoroEnabled, p.PomodoroEnabled)
	setInt(&s.PomodoroWorkDuration, p.PomodoroWorkDuration)
	setInt(&s.PomodoroBreakDuration, p.PomodoroBreakDuration)
	setInt(&s.PomodoroLongBreakDuration, p.PomodoroLongBreakDuration)
	setBool(&s.PomodoroNotifications, p.PomodoroNotifications)
	return s
}

// Bool and Int return pointers for building patches.
func Bool(v bool) *bool { return &v }
func Int(v int) *int { return &v }

func clampPtr(v *int, lo, hi int) *int {
	if v == nil {
		return nil
	}
	n := min(max(*v, lo), hi)
	return &n
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
