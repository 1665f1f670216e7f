package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/server"
	"github.com/lotas/tabgruppen/internal/settings"
	"github.com/lotas/tabgruppen/internal/types"
)

// ErrUnknownAction is reported for requests naming no known action.
var ErrUnknownAction = errors.New("unknown action")

// ErrUnknownPreset is reported by applyPreset for an unknown name.
var ErrUnknownPreset = errors.New("unknown preset")

// payload is the union of request payload fields. Settings patches are
// decoded separately.
type payload struct {
	WindowID int         `json:"windowId"`
	TabID    int         `json:"tabId"`
	GroupID  int         `json:"groupId"`
	Phase    types.Phase `json:"phase"`
	Name     string      `json:"name"`
}

// offLoop are the actions that talk to the browser and so run off the loop.
var offLoop = map[string]func(d *Daemon, ctx context.Context, p payload) (any, error){
	"organize": func(d *Daemon, ctx context.Context, p payload) (any, error) {
		return d.deps.Organizer.Organize(ctx, p.WindowID)
	},
	"organizeSimilar": func(d *Daemon, ctx context.Context, p payload) (any, error) {
		return d.deps.Organizer.OrganizeSimilar(ctx, p.WindowID, p.TabID)
	},
	"ungroup": func(d *Daemon, ctx context.Context, p payload) (any, error) {
		n, err := d.deps.Organizer.UngroupAll(ctx, p.WindowID)
		return map[string]int{"groups": n}, err
	},
	"ungroupTab": func(d *Daemon, ctx context.Context, p payload) (any, error) {
		return nil, d.deps.Organizer.UngroupTab(ctx, p.TabID)
	},
	"undoUngroup": func(d *Daemon, ctx context.Context, p payload) (any, error) {
		gid, err := d.deps.Organizer.Undo(ctx, p.GroupID)
		return map[string]int{"groupId": gid}, err
	},
	"archiveGroup": func(d *Daemon, ctx context.Context, p payload) (any, error) {
		n, err := d.deps.Organizer.ArchiveGroup(ctx, p.GroupID)
		return map[string]int{"bookmarks": n}, err
	},
	"suspendInactive": func(d *Daemon, ctx context.Context, p payload) (any, error) {
		n, err := d.deps.Organizer.SuspendInactive(ctx, time.Now())
		return map[string]int{"discarded": n}, err
	},
	"getStatistics": func(d *Daemon, ctx context.Context, p payload) (any, error) {
		return d.deps.Organizer.Statistics(ctx, p.WindowID)
	},
	"getSuggestions": func(d *Daemon, ctx context.Context, p payload) (any, error) {
		return d.deps.Organizer.Suggestions(ctx, p.WindowID)
	},
}

func (d *Daemon) request(ctx context.Context, msg server.IncomingMsg) {
	var p payload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			d.respond(msg, nil, fmt.Errorf("decode payload: %w", err))
			return
		}
	}

	if fn, ok := offLoop[msg.Action]; ok {
		d.goWork(ctx, func(ctx context.Context) {
			data, err := fn(d, ctx, p)
			d.post(func() { d.respond(msg, data, err) })
		})
		return
	}

	data, err := d.onLoop(ctx, msg, p)
	d.respond(msg, data, err)
}

// onLoop executes the timer and settings actions.
func (d *Daemon) onLoop(ctx context.Context, msg server.IncomingMsg, p payload) (any, error) {
	switch msg.Action {
	case "pomodoroState":
		return d.timer.State(), nil
	case "pomodoroStart":
		if err := d.timer.Start(p.Phase); err != nil {
			return d.timer.State(), err
		}
		d.dropTick()
		return d.timer.State(), nil
	case "pomodoroPause":
		d.timer.Pause()
		d.dropTick()
		return d.timer.State(), nil
	case "pomodoroReset":
		d.timer.Reset()
		d.dropTick()
		return d.timer.State(), nil
	case "pomodoroUpdateSettings":
		patch, err := decodePatch(msg.Payload)
		if err != nil {
			return nil, err
		}
		if err := d.timer.UpdateSettings(ctx, patch); err != nil {
			return nil, err
		}
		return d.timer.State(), nil
	case "getSettings":
		return d.deps.Store.Load(ctx)
	case "updateSettings":
		patch, err := decodePatch(msg.Payload)
		if err != nil {
			return nil, err
		}
		return d.saveSettings(ctx, patch)
	case "applyPreset":
		patch, ok := d.deps.Presets[p.Name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownPreset, p.Name)
		}
		applog.Info("settings.preset", "name", p.Name)
		return d.saveSettings(ctx, patch)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, msg.Action)
	}
}

// saveSettings persists patch, then lets the timer and color assigner pick
// up the change.
func (d *Daemon) saveSettings(ctx context.Context, patch settings.Patch) (settings.Settings, error) {
	if err := d.deps.Store.Save(ctx, patch); err != nil {
		return settings.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	if d.deps.Colors != nil {
		d.deps.Colors.Forget()
	}
	if err := d.timer.Refresh(ctx); err != nil {
		applog.Error("timer.refresh", err)
	}
	return d.deps.Store.Load(ctx)
}

func (d *Daemon) respond(msg server.IncomingMsg, data any, err error) {
	if msg.ID == "" {
		return
	}
	success := err == nil
	out := server.OutgoingMsg{ID: msg.ID, Action: "response", Success: &success, Data: data}
	if err != nil {
		out.Error = err.Error()
		applog.Error("request."+msg.Action, err, "channel", msg.Channel)
	}
	if serr := d.deps.Server.SendTo(msg.Channel, out); serr != nil {
		applog.Error("request.respond", serr, "action", msg.Action)
	}
}

func decodePatch(raw json.RawMessage) (settings.Patch, error) {
	var p settings.Patch
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode settings: %w", err)
	}
	return p, nil
}
