// Package daemon is the long-lived owner of the timer and the entry point
// for every browser event and user request. One goroutine, the event loop,
// executes all timer operations, ticks, observer attach/detach and request
// dispatch serially. Organizer work awaits browser replies, so it runs on
// its own goroutine and posts its response back to the loop.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/colors"
	"github.com/lotas/tabgruppen/internal/host"
	"github.com/lotas/tabgruppen/internal/organizer"
	"github.com/lotas/tabgruppen/internal/planner"
	"github.com/lotas/tabgruppen/internal/rules"
	"github.com/lotas/tabgruppen/internal/server"
	"github.com/lotas/tabgruppen/internal/settings"
	"github.com/lotas/tabgruppen/internal/timer"
	"github.com/lotas/tabgruppen/internal/types"
)

// Options tunes the daemon's schedules.
type Options struct {
	TickInterval  time.Duration
	SweepInterval time.Duration
	// RulesFile, when set, is watched and reloaded into the planner.
	RulesFile string
}

// Deps are the collaborators the daemon drives.
type Deps struct {
	Server    *server.Server
	Host      host.Host
	Store     settings.Store
	Organizer *organizer.Organizer
	Planner   *planner.Planner
	Colors    *colors.Assigner
	Presets   settings.Presets
}

// Daemon routes server messages to the timer and the organizer.
type Daemon struct {
	deps  Deps
	opts  Options
	timer *timer.Engine
	alarm *timer.Alarm

	ticks  chan struct{}
	posted chan func()
	done   chan struct{}

	// Loop-owned state.
	pending map[int]bool // tabs created while autoGroup was on, awaiting load
	detach  func()

	work sync.WaitGroup
}

// New wires a Daemon. Run starts it.
func New(deps Deps, opts Options) *Daemon {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Hour
	}
	if deps.Presets == nil {
		deps.Presets = settings.BuiltinPresets()
	}
	d := &Daemon{
		deps:    deps,
		opts:    opts,
		ticks:   make(chan struct{}, 1),
		posted:  make(chan func(), 16),
		done:    make(chan struct{}),
		pending: make(map[int]bool),
	}
	d.alarm = timer.NewAlarm(opts.TickInterval, d.fireTick)
	sink := &connectedHost{Host: deps.Host, up: deps.Server.Connected}
	d.timer = timer.New(deps.Store, d.alarm, sink, sink)
	return d
}

// Serve listens on the server's port and runs the event loop until ctx is
// done.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- d.deps.Server.ListenAndServe(ctx)
		cancel()
	}()
	runErr := d.Run(ctx)
	if err := <-errc; err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return runErr
}

// Run is the event loop. It returns when ctx is done, after in-flight
// organizer work has finished.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.timer.Init(ctx); err != nil {
		return err
	}
	defer func() {
		close(d.done)
		d.timer.Close()
		d.work.Wait()
		applog.Info("daemon.stop")
	}()

	if d.opts.RulesFile != "" {
		d.work.Add(1)
		go func() {
			defer d.work.Done()
			if err := rules.Watch(ctx, d.opts.RulesFile, d.reloadRules); err != nil && !errors.Is(err, context.Canceled) {
				applog.Error("rules.watch", err, "path", d.opts.RulesFile)
			}
		}()
	}

	sweep := time.NewTicker(d.opts.SweepInterval)
	defer sweep.Stop()

	applog.Info("daemon.start", "tick", d.opts.TickInterval.String(), "sweep", d.opts.SweepInterval.String())
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-d.deps.Server.Messages():
			d.handle(ctx, msg)
		case <-d.ticks:
			d.timer.Tick()
		case fn := <-d.posted:
			fn()
		case now := <-sweep.C:
			d.goWork(ctx, func(ctx context.Context) {
				if _, err := d.deps.Organizer.SuspendInactive(ctx, now); err != nil {
					applog.Error("suspend.sweep", err)
				}
			})
		}
	}
}

// fireTick runs on the alarm goroutine. Ticks coalesce while the loop is busy.
func (d *Daemon) fireTick() {
	select {
	case d.ticks <- struct{}{}:
	default:
	}
}

// dropTick discards a tick queued by the previous alarm stream, so a
// restarted countdown does not lose a second to it.
func (d *Daemon) dropTick() {
	select {
	case <-d.ticks:
	default:
	}
}

// post queues fn for the event loop. It is dropped once the loop has stopped.
func (d *Daemon) post(fn func()) {
	select {
	case d.posted <- fn:
	case <-d.done:
	}
}

// goWork runs fn off the loop.
func (d *Daemon) goWork(ctx context.Context, fn func(ctx context.Context)) {
	d.work.Add(1)
	go func() {
		defer d.work.Done()
		fn(ctx)
	}()
}

func (d *Daemon) reloadRules(set *rules.Set, err error) {
	if err != nil {
		applog.Error("rules.reload", err, "path", d.opts.RulesFile)
		return
	}
	d.deps.Planner.SetRules(set)
}

func (d *Daemon) handle(ctx context.Context, msg server.IncomingMsg) {
	switch msg.Type {
	case server.TypeConnected:
		d.connected(ctx, msg.Channel)
	case server.TypeDisconnected:
		d.disconnected(msg.Channel)
	case "request":
		d.request(ctx, msg)
	case "tabCreated":
		d.tabCreated(ctx, msg)
	case "tabUpdated":
		d.tabUpdated(ctx, msg)
	case "tabRemoved":
		delete(d.pending, msg.TabID)
	default:
		applog.Warn("daemon.unknown", "channel", msg.Channel, "type", msg.Type)
	}
}

func (d *Daemon) connected(ctx context.Context, channel string) {
	switch channel {
	case server.ChannelPopup:
		if d.detach != nil {
			d.detach()
		}
		d.detach = d.timer.Attach(d.pushState)
	case server.ChannelHost:
		// Repaint the badge for the new extension instance.
		if err := d.timer.Refresh(ctx); err != nil {
			applog.Error("timer.refresh", err)
		}
	}
}

func (d *Daemon) disconnected(channel string) {
	switch channel {
	case server.ChannelPopup:
		if d.detach != nil {
			d.detach()
			d.detach = nil
		}
	case server.ChannelHost:
		clear(d.pending)
	}
}

func (d *Daemon) pushState(st types.TimerState) {
	err := d.deps.Server.SendTo(server.ChannelPopup, server.OutgoingMsg{Action: "timerState", State: &st})
	if err != nil && !errors.Is(err, server.ErrNotConnected) {
		applog.Error("timer.push", err)
	}
}

func (d *Daemon) tabCreated(ctx context.Context, msg server.IncomingMsg) {
	tab, err := server.ParseTab(msg.Tab)
	if err != nil {
		applog.Error("daemon.tab_created", err)
		return
	}
	s, err := d.deps.Store.Load(ctx)
	if err != nil {
		applog.Error("daemon.tab_created", err)
		return
	}
	if s.AutoGroup {
		d.pending[tab.ID] = true
	}
	window := tab.WindowID
	d.goWork(ctx, func(ctx context.Context) {
		if _, err := d.deps.Organizer.CheckTabCount(ctx, window); err != nil {
			applog.Error("tabs.count", err)
		}
	})
}

func (d *Daemon) tabUpdated(ctx context.Context, msg server.IncomingMsg) {
	if msg.Status != "complete" || !d.pending[msg.TabID] {
		return
	}
	delete(d.pending, msg.TabID)
	window := msg.WindowID
	d.goWork(ctx, func(ctx context.Context) {
		if _, err := d.deps.Organizer.Organize(ctx, window); err != nil {
			applog.Error("organize.auto", err, "tab", msg.TabID)
		}
	})
}

// connectedHost drops notifications and badge updates while no extension
// is connected to receive them.
type connectedHost struct {
	host.Host
	up func() bool
}

func (c *connectedHost) Notify(ctx context.Context, title, message string) error {
	if !c.up() {
		return nil
	}
	return c.Host.Notify(ctx, title, message)
}

func (c *connectedHost) SetBadge(ctx context.Context, text, color string) error {
	if !c.up() {
		return nil
	}
	return c.Host.SetBadge(ctx, text, color)
}
