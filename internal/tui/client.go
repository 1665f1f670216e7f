package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/lotas/tabgruppen/internal/types"
)

// ErrClosed is returned for requests on a closed client.
var ErrClosed = errors.New("popup connection closed")

// Reply is the daemon's answer to a request.
type Reply struct {
	ID      string          `json:"id"`
	Action  string          `json:"action"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`

	State *types.TimerState `json:"state"`
}

// Client is a popup connection to the daemon. It receives timer state
// pushes and sends requests.
type Client struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[string]chan Reply
	err     error

	states chan types.TimerState
	done   chan struct{}
}

// Dial connects to the popup channel at url, e.g. ws://127.0.0.1:19192/popup.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(1 << 20)
	c := &Client{
		conn:    conn,
		pending: make(map[string]chan Reply),
		states:  make(chan types.TimerState, 1),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// States delivers timer snapshots. Only the latest unread snapshot is kept.
func (c *Client) States() <-chan types.TimerState { return c.states }

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close ends the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// Request sends action with payload and waits for the response.
func (c *Client) Request(ctx context.Context, action string, payload any) (Reply, error) {
	id := uuid.NewString()
	wait := make(chan Reply, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return Reply{}, ErrClosed
	}
	c.pending[id] = wait
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	msg := map[string]any{"type": "request", "id": id, "action": action}
	if payload != nil {
		msg["payload"] = payload
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return Reply{}, fmt.Errorf("encode %s: %w", action, err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return Reply{}, fmt.Errorf("send %s: %w", action, err)
	}

	select {
	case r := <-wait:
		if !r.Success {
			if r.Error == "" {
				r.Error = "request failed"
			}
			return r, fmt.Errorf("%s: %s", action, r.Error)
		}
		return r, nil
	case <-c.done:
		return Reply{}, ErrClosed
	case <-ctx.Done():
		return Reply{}, fmt.Errorf("%s: %w", action, ctx.Err())
	}
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		var r Reply
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		switch r.Action {
		case "timerState":
			if r.State != nil {
				c.pushState(*r.State)
			}
		case "response":
			c.mu.Lock()
			wait, ok := c.pending[r.ID]
			c.mu.Unlock()
			if ok {
				select {
				case wait <- r:
				default:
				}
			}
		}
	}
}

// pushState replaces any unread snapshot with st.
func (c *Client) pushState(st types.TimerState) {
	for {
		select {
		case c.states <- st:
			return
		default:
		}
		select {
		case <-c.states:
		default:
		}
	}
}
