// Package timer implements the pomodoro state machine. An Engine owns the
// single timer state of the process. It does no locking: every method must
// be called from the one goroutine that owns the engine, which is how the
// daemon's event loop uses it.
package timer

import (
	"context"
	"errors"
	"fmt"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/settings"
	"github.com/lotas/tabgruppen/internal/types"
)

// ErrFeatureDisabled is returned by Start when the timer is switched off.
var ErrFeatureDisabled = errors.New("pomodoro timer is disabled")

// ErrUnknownPhase is returned by Start for a phase outside the timer's states.
var ErrUnknownPhase = errors.New("unknown timer phase")

// Sessions per cycle: every LongBreakEvery-th completed work session is
// followed by a long break.
const LongBreakEvery = 4

// Badge colors.
const (
	WorkColor  = "#EF4444"
	BreakColor = "#10B981"
)

// Driver delivers one Tick per interval between Start and Stop.
// Start on a running driver restarts it.
type Driver interface {
	Start()
	Stop()
}

// Notifier shows a transient user notification.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Badge sets the text and background color of the extension icon badge.
type Badge interface {
	SetBadge(ctx context.Context, text, color string) error
}

// Observer receives every state snapshot.
type Observer func(types.TimerState)

// Engine is the timer state machine.
type Engine struct {
	store    settings.Store
	driver   Driver
	notifier Notifier
	badge    Badge

	settings  types.TimerSettings
	phase     types.Phase
	remaining int
	paused    bool
	completed int

	observer   Observer
	observerID uint64
}

// New returns an IDLE engine. notifier and badge may be nil.
func New(store settings.Store, driver Driver, notifier Notifier, badge Badge) *Engine {
	s := settings.Defaults().Timer()
	return &Engine{
		store:     store,
		driver:    driver,
		notifier:  notifier,
		badge:     badge,
		settings:  s,
		phase:     types.PhaseIdle,
		remaining: s.WorkMinutes * 60,
	}
}

// Init loads the timer settings and publishes the initial state.
func (e *Engine) Init(ctx context.Context) error {
	s, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load timer settings: %w", err)
	}
	e.settings = s.Timer()
	e.remaining = e.duration(types.PhaseWork) * 60
	applog.Info("timer.init", "enabled", e.settings.Enabled, "work", e.settings.WorkMinutes)
	e.publish()
	return nil
}

// Refresh reloads settings changed elsewhere.
func (e *Engine) Refresh(ctx context.Context) error {
	s, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load timer settings: %w", err)
	}
	e.settings = s.Timer()
	e.fitRemaining()
	e.publish()
	return nil
}

// State returns the current snapshot.
func (e *Engine) State() types.TimerState {
	return types.TimerState{
		Phase:                 e.phase,
		RemainingSeconds:      e.remaining,
		IsPaused:              e.paused,
		CompletedWorkSessions: e.completed,
		Settings:              e.settings,
	}
}

// Attach makes o the single observer, replacing any previous one, and
// pushes the current state to it. The returned func detaches o; it does
// nothing if o has since been replaced.
func (e *Engine) Attach(o Observer) (detach func()) {
	e.observerID++
	id := e.observerID
	e.observer = o
	o(e.State())
	return func() {
		if e.observerID == id {
			e.observer = nil
		}
	}
}

// Start begins phase, or resumes the paused phase without resetting it.
func (e *Engine) Start(phase types.Phase) error {
	if !e.settings.Enabled {
		return ErrFeatureDisabled
	}
	if phase == "" || phase == types.PhaseIdle {
		phase = types.PhaseWork
	}
	if !phase.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownPhase, phase)
	}
	if !e.paused {
		e.phase = phase
		e.remaining = e.duration(phase) * 60
	}
	e.paused = false
	e.driver.Stop()
	e.driver.Start()
	applog.Info("timer.start", "phase", string(e.phase), "remaining", e.remaining)
	e.publish()
	return nil
}

// Pause stops the countdown. Pausing an IDLE timer does nothing.
func (e *Engine) Pause() {
	if e.phase == types.PhaseIdle {
		return
	}
	e.driver.Stop()
	e.paused = true
	applog.Info("timer.pause", "phase", string(e.phase), "remaining", e.remaining)
	e.publish()
}

// Reset returns to IDLE and clears the session count.
func (e *Engine) Reset() {
	e.driver.Stop()
	e.phase = types.PhaseIdle
	e.remaining = e.duration(types.PhaseWork) * 60
	e.completed = 0
	e.paused = false
	applog.Info("timer.reset")
	e.publish()
}

// Tick advances the countdown by one second and completes the phase when it
// reaches zero. It does nothing while IDLE, paused or disabled.
func (e *Engine) Tick() {
	if !e.settings.Enabled || e.paused || e.phase == types.PhaseIdle {
		return
	}
	if e.remaining <= 0 {
		return
	}
	e.remaining--
	e.publish()
	if e.remaining == 0 {
		e.Complete()
	}
}

// Complete ends the current phase and starts the next one.
func (e *Engine) Complete() {
	e.driver.Stop()

	finished := e.phase
	var next types.Phase
	if finished == types.PhaseWork {
		e.completed++
		e.notify("Work session complete!", "Time for a break.")
		next = types.PhaseBreak
		if e.completed%LongBreakEvery == 0 {
			next = types.PhaseLongBreak
		}
	} else {
		e.notify("Break complete!", "Ready to work?")
		next = types.PhaseWork
	}
	applog.Info("timer.complete", "finished", string(finished), "next", string(next), "completed", e.completed)

	if err := e.Start(next); err != nil {
		applog.Error("timer.complete", err)
	}
}

// UpdateSettings clamps, persists and applies the timer fields of p.
// Fields of p that do not belong to the timer are ignored. Nothing changes
// when persisting fails.
func (e *Engine) UpdateSettings(ctx context.Context, p settings.Patch) error {
	p = timerOnly(p).Normalize()
	if err := e.store.Save(ctx, p); err != nil {
		return fmt.Errorf("save timer settings: %w", err)
	}

	if p.PomodoroEnabled != nil {
		e.settings.Enabled = *p.PomodoroEnabled
	}
	if p.PomodoroWorkDuration != nil {
		e.settings.WorkMinutes = *p.PomodoroWorkDuration
	}
	if p.PomodoroBreakDuration != nil {
		e.settings.BreakMinutes = *p.PomodoroBreakDuration
	}
	if p.PomodoroLongBreakDuration != nil {
		e.settings.LongBreakMinutes = *p.PomodoroLongBreakDuration
	}
	if p.PomodoroNotifications != nil {
		e.settings.Notifications = *p.PomodoroNotifications
	}

	e.fitRemaining()
	applog.Info("timer.settings",
		"enabled", e.settings.Enabled,
		"work", e.settings.WorkMinutes,
		"break", e.settings.BreakMinutes,
		"long_break", e.settings.LongBreakMinutes,
	)
	e.publish()
	return nil
}

// Close stops the driver and drops the observer.
func (e *Engine) Close() {
	e.driver.Stop()
	e.observer = nil
	e.observerID++
}

// fitRemaining resets an IDLE countdown to the work duration and caps a
// running one at its phase's (possibly shortened) duration.
func (e *Engine) fitRemaining() {
	limit := e.duration(e.phase) * 60
	if e.phase == types.PhaseIdle {
		e.remaining = limit
		return
	}
	e.remaining = min(e.remaining, limit)
}

func (e *Engine) duration(phase types.Phase) int {
	switch phase {
	case types.PhaseBreak:
		return e.settings.BreakMinutes
	case types.PhaseLongBreak:
		return e.settings.LongBreakMinutes
	default:
		return e.settings.WorkMinutes
	}
}

func (e *Engine) publish() {
	if e.badge != nil {
		text, color := BadgeFor(e.phase, e.remaining)
		if err := e.badge.SetBadge(context.Background(), text, color); err != nil {
			applog.Error("timer.badge", err)
		}
	}
	if e.observer != nil {
		e.observer(e.State())
	}
}

func (e *Engine) notify(title, message string) {
	if !e.settings.Notifications || e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(context.Background(), title, message); err != nil {
		applog.Error("timer.notify", err, "title", title)
	}
}

// BadgeFor returns the badge text and color for a phase. The text is empty
// while IDLE and M:SS otherwise.
func BadgeFor(phase types.Phase, remaining int) (text, color string) {
	color = BreakColor
	if phase == types.PhaseWork {
		color = WorkColor
	}
	if phase == types.PhaseIdle {
		return "", color
	}
	return fmt.Sprintf("%d:%02d", remaining/60, remaining%60), color
}

func timerOnly(p settings.Patch) settings.Patch {
	return settings.Patch{
		PomodoroEnabled:           p.PomodoroEnabled,
		PomodoroWorkDuration:      p.PomodoroWorkDuration,
		PomodoroBreakDuration:     p.PomodoroBreakDuration,
		PomodoroLongBreakDuration: p.PomodoroLongBreakDuration,
		PomodoroNotifications:     p.PomodoroNotifications,
	}
}
