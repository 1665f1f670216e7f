package types

import "time"

// NoGroup is the GroupID of a tab that belongs to no tab group.
const NoGroup = -1

// Tab represents a single browser tab as reported by the host.
// The core never mutates a Tab; it only proposes operations on it.
type Tab struct {
	ID           int
	URL          string
	Title        string
	LastAccessed time.Time
	GroupID      int // NoGroup if ungrouped
	WindowID     int
	Index        int
	Pinned       bool
}

// Grouped reports whether the tab is a member of a tab group.
func (t *Tab) Grouped() bool {
	return t.GroupID != NoGroup
}

// TabGroup represents a browser tab group.
type TabGroup struct {
	ID        int
	Title     string
	Color     Color
	Collapsed bool
	WindowID  int
}

// Color is a tab group color understood by the browser.
type Color string

const (
	ColorGrey   Color = "grey"
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorPink   Color = "pink"
	ColorPurple Color = "purple"
	ColorCyan   Color = "cyan"
)

// Palette is the fixed set of group colors, in browser order.
var Palette = []Color{ColorGrey, ColorBlue, ColorRed, ColorYellow, ColorGreen, ColorPink, ColorPurple, ColorCyan}

// Valid reports whether c is one of the palette colors.
func (c Color) Valid() bool {
	for _, p := range Palette {
		if c == p {
			return true
		}
	}
	return false
}

// GroupPlan is one tab group the planner proposes to create.
type GroupPlan struct {
	Key        string // bucket key: domain, smart group, or template name
	MemberIDs  []int
	Color      Color
	Title      string
	SplitIndex *int // segment index when the bucket was split, nil otherwise
}

// Suggestion is a recorded tab pattern that overlaps the current tabs.
type Suggestion struct {
	Domains     []string `json:"domains"`
	Confidence  float64  `json:"confidence"`
	Occurrences int      `json:"occurrences"`
}

// HistoryEntry captures a group just before it was ungrouped.
type HistoryEntry struct {
	GroupID   int    `json:"groupId"`
	Title     string `json:"title"`
	Color     Color  `json:"color"`
	MemberIDs []int  `json:"memberIds"`
	WindowID  int    `json:"windowId"`
}

// Phase is a state of the pomodoro timer.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseWork      Phase = "WORK"
	PhaseBreak     Phase = "BREAK"
	PhaseLongBreak Phase = "LONG_BREAK"
)

// Valid reports whether p is one of the four timer phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseWork, PhaseBreak, PhaseLongBreak:
		return true
	}
	return false
}

// TimerSettings is the timer's view of the settings record.
type TimerSettings struct {
	Enabled          bool `json:"pomodoroEnabled"`
	WorkMinutes      int  `json:"pomodoroWorkDuration"`
	BreakMinutes     int  `json:"pomodoroBreakDuration"`
	LongBreakMinutes int  `json:"pomodoroLongBreakDuration"`
	Notifications    bool `json:"pomodoroNotifications"`
}

// TimerState is the snapshot pushed to timer observers.
type TimerState struct {
	Phase                 Phase         `json:"state"`
	RemainingSeconds      int           `json:"timeRemaining"`
	IsPaused              bool          `json:"isPaused"`
	CompletedWorkSessions int           `json:"completedPomodoros"`
	Settings              TimerSettings `json:"settings"`
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}

// SessionData holds the tabs and groups read from a browser session.
type SessionData struct {
	Groups   []*TabGroup
	Tabs     []*Tab
	Profile  Profile
	ParsedAt time.Time
}

// TabsInWindow returns the tabs of one window, in tab order.
func (s *SessionData) TabsInWindow(windowID int) []*Tab {
	var out []*Tab
	for _, t := range s.Tabs {
		if t.WindowID == windowID {
			out = append(out, t)
		}
	}
	return out
}

// Stats holds aggregate statistics for a window.
type Stats struct {
	TotalTabs      int `json:"totalTabs"`
	GroupCount     int `json:"groupCount"`
	UngroupedTabs  int `json:"ungroupedTabs"`
	PinnedTabs     int `json:"pinnedTabs"`
	DuplicateTabs  int `json:"duplicateTabs"`
	InactiveGroups int `json:"inactiveGroups"`
}
