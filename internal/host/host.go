// Package host describes the browser operations the daemon can ask the
// extension to perform, and implements them over the WebSocket server.
package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lotas/tabgruppen/internal/server"
	"github.com/lotas/tabgruppen/internal/types"
)

// Window selectors for QueryTabs and QueryGroups.
const (
	CurrentWindow = 0
	AllWindows    = -1
)

// ErrHostOperation wraps every failure reported by, or while reaching, the
// browser.
var ErrHostOperation = errors.New("host operation failed")

// Host is the tab, group, bookmark, notification and badge API of the browser.
type Host interface {
	QueryTabs(ctx context.Context, windowID int) ([]*types.Tab, error)
	QueryGroups(ctx context.Context, windowID int) ([]*types.TabGroup, error)
	Group(ctx context.Context, tabIDs []int) (groupID int, err error)
	UpdateGroup(ctx context.Context, groupID int, title string, color types.Color, collapsed bool) error
	SetPinned(ctx context.Context, tabID int, pinned bool) error
	Ungroup(ctx context.Context, tabIDs []int) error
	Discard(ctx context.Context, tabID int) error
	CreateBookmark(ctx context.Context, folder, title, url string) error
	Notify(ctx context.Context, title, message string) error
	SetBadge(ctx context.Context, text, color string) error
}

// Transport is the part of server.Server that Remote needs.
type Transport interface {
	Call(ctx context.Context, msg server.OutgoingMsg) (server.IncomingMsg, error)
	Send(msg server.OutgoingMsg) error
}

// Remote implements Host by sending intents to the connected extension.
// Request/response intents wait at most timeout for the reply; notify and
// badge intents are fire-and-forget.
type Remote struct {
	t       Transport
	timeout time.Duration
}

// NewRemote returns a Remote over t.
func NewRemote(t Transport, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Remote{t: t, timeout: timeout}
}

func (r *Remote) call(ctx context.Context, msg server.OutgoingMsg) (server.IncomingMsg, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msg.ID = uuid.NewString()
	reply, err := r.t.Call(ctx, msg)
	if err != nil {
		return reply, fmt.Errorf("%w: %s: %w", ErrHostOperation, msg.Action, err)
	}
	if reply.OK == nil || !*reply.OK {
		reason := reply.Error
		if reason == "" {
			reason = "no ok in reply"
		}
		return reply, fmt.Errorf("%w: %s: %s", ErrHostOperation, msg.Action, reason)
	}
	return reply, nil
}

func (r *Remote) send(msg server.OutgoingMsg) error {
	if err := r.t.Send(msg); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrHostOperation, msg.Action, err)
	}
	return nil
}

func (r *Remote) QueryTabs(ctx context.Context, windowID int) ([]*types.Tab, error) {
	reply, err := r.call(ctx, server.OutgoingMsg{Action: "queryTabs", WindowID: windowID})
	if err != nil {
		return nil, err
	}
	tabs, err := server.ParseTabs(reply.Tabs)
	if err != nil {
		return nil, fmt.Errorf("%w: queryTabs: %w", ErrHostOperation, err)
	}
	return tabs, nil
}

func (r *Remote) QueryGroups(ctx context.Context, windowID int) ([]*types.TabGroup, error) {
	reply, err := r.call(ctx, server.OutgoingMsg{Action: "queryGroups", WindowID: windowID})
	if err != nil {
		return nil, err
	}
	groups, err := server.ParseGroups(reply.Groups)
	if err != nil {
		return nil, fmt.Errorf("%w: queryGroups: %w", ErrHostOperation, err)
	}
	return groups, nil
}

func (r *Remote) Group(ctx context.Context, tabIDs []int) (int, error) {
	reply, err := r.call(ctx, server.OutgoingMsg{Action: "group", TabIDs: tabIDs})
	if err != nil {
		return 0, err
	}
	return reply.GroupID, nil
}

func (r *Remote) UpdateGroup(ctx context.Context, groupID int, title string, color types.Color, collapsed bool) error {
	_, err := r.call(ctx, server.OutgoingMsg{
		Action:    "updateGroup",
		GroupID:   groupID,
		Title:     title,
		Color:     string(color),
		Collapsed: &collapsed,
	})
	return err
}

func (r *Remote) SetPinned(ctx context.Context, tabID int, pinned bool) error {
	_, err := r.call(ctx, server.OutgoingMsg{Action: "setPinned", TabID: tabID, Pinned: &pinned})
	return err
}

func (r *Remote) Ungroup(ctx context.Context, tabIDs []int) error {
	_, err := r.call(ctx, server.OutgoingMsg{Action: "ungroup", TabIDs: tabIDs})
	return err
}

func (r *Remote) Discard(ctx context.Context, tabID int) error {
	_, err := r.call(ctx, server.OutgoingMsg{Action: "discard", TabID: tabID})
	return err
}

func (r *Remote) CreateBookmark(ctx context.Context, folder, title, url string) error {
	_, err := r.call(ctx, server.OutgoingMsg{Action: "createBookmark", Folder: folder, Title: title, URL: url})
	return err
}

func (r *Remote) Notify(ctx context.Context, title, message string) error {
	return r.send(server.OutgoingMsg{ID: uuid.NewString(), Action: "notify", Title: title, Message: message})
}

func (r *Remote) SetBadge(ctx context.Context, text, color string) error {
	return r.send(server.OutgoingMsg{Action: "setBadge", Text: text, Color: color})
}
