// Package tui is a terminal popup for the daemon: it observes the pomodoro
// timer and triggers organize actions, like the extension's popup does.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"

	"github.com/lotas/tabgruppen/internal/types"
)

const requestTimeout = 10 * time.Second

// --- Messages ---

type stateMsg struct{ state types.TimerState }
type disconnectedMsg struct{ err error }
type responseMsg struct {
	action string
	reply  Reply
	err    error
}

// Requester sends popup requests to the daemon.
type Requester interface {
	Request(ctx context.Context, action string, payload any) (Reply, error)
}

// --- Command helpers ---

func waitForState(c *Client) tea.Cmd {
	return func() tea.Msg {
		select {
		case st := <-c.States():
			return stateMsg{state: st}
		case <-c.Done():
			return disconnectedMsg{err: c.Err()}
		}
	}
}

func request(r Requester, action string, payload any) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		reply, err := r.Request(ctx, action, payload)
		return responseMsg{action: action, reply: reply, err: err}
	}
}

// --- Model ---

type Model struct {
	client *Client
	req    Requester

	view      ViewType
	state     types.TimerState
	hasState  bool
	connected bool
	stats     *types.Stats
	suggest   []types.Suggestion
	status    string
	statusErr bool

	width  int
	height int
}

// NewModel returns a Model observing c.
func NewModel(c *Client) Model {
	return Model{client: c, req: c, connected: true}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.client),
		request(m.req, "getStatistics", nil),
		request(m.req, "getSuggestions", nil),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateMsg:
		m.state = msg.state
		m.hasState = true
		return m, waitForState(m.client)

	case disconnectedMsg:
		m.connected = false
		m.setStatus("Disconnected from daemon", true)
		return m, nil

	case responseMsg:
		return m.handleResponse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.view = (m.view + 1) % ViewType(len(viewNames))
		return m, nil
	}
	if !m.connected {
		return m, nil
	}

	switch msg.String() {
	case "s", " ":
		if m.state.Phase != types.PhaseIdle && !m.state.IsPaused {
			return m, request(m.req, "pomodoroPause", nil)
		}
		if !m.state.Settings.Enabled {
			m.setStatus("Please enable Pomodoro timer first", true)
			return m, nil
		}
		return m, request(m.req, "pomodoroStart", map[string]any{"phase": types.PhaseWork})
	case "r":
		return m, request(m.req, "pomodoroReset", nil)
	case "e":
		return m, request(m.req, "pomodoroUpdateSettings", map[string]any{"pomodoroEnabled": !m.state.Settings.Enabled})
	case "+", "-":
		work := m.state.Settings.WorkMinutes + 5
		if msg.String() == "-" {
			work = m.state.Settings.WorkMinutes - 5
		}
		return m, request(m.req, "pomodoroUpdateSettings", map[string]any{"pomodoroWorkDuration": work})
	case "o":
		return m, request(m.req, "organize", nil)
	case "u":
		return m, request(m.req, "ungroup", nil)
	case "z":
		return m, request(m.req, "undoUngroup", nil)
	case "x":
		return m, request(m.req, "suspendInactive", nil)
	case "i":
		return m, tea.Batch(request(m.req, "getStatistics", nil), request(m.req, "getSuggestions", nil))
	}
	return m, nil
}

func (m Model) handleResponse(msg responseMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus(msg.err.Error(), true)
		return m, nil
	}

	switch msg.action {
	case "getStatistics":
		var s types.Stats
		if err := json.Unmarshal(msg.reply.Data, &s); err == nil {
			m.stats = &s
		}
		return m, nil
	case "getSuggestions":
		var s []types.Suggestion
		if err := json.Unmarshal(msg.reply.Data, &s); err == nil {
			m.suggest = s
		}
		return m, nil
	case "organize":
		var res struct {
			Created int `json:"created"`
			Failed  int `json:"failed"`
		}
		json.Unmarshal(msg.reply.Data, &res)
		text := fmt.Sprintf("Created %d groups", res.Created)
		if res.Failed > 0 {
			text += fmt.Sprintf(", %d failed", res.Failed)
		}
		m.setStatus(text, false)
	case "ungroup":
		m.setStatus("Ungrouped all tabs", false)
	case "undoUngroup":
		m.setStatus("Restored group", false)
	case "suspendInactive":
		var res struct {
			Discarded int `json:"discarded"`
		}
		json.Unmarshal(msg.reply.Data, &res)
		m.setStatus(fmt.Sprintf("Suspended %d tabs", res.Discarded), false)
	default:
		return m, nil
	}
	// Tab layout changed: refresh the numbers.
	return m, request(m.req, "getStatistics", nil)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// Run connects to the daemon's popup channel at url and runs the popup
// until the user quits.
func Run(ctx context.Context, url string) error {
	c, err := Dial(ctx, url)
	if err != nil {
		return err
	}
	defer c.Close()
	_, err = tea.NewProgram(NewModel(c), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
