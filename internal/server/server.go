package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"nhooyr.io/websocket"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/types"
)

// Channel names. The host channel carries the extension background page,
// the popup channel carries transient timer observers.
const (
	ChannelHost  = "host"
	ChannelPopup = "popup"
)

// Synthetic message types produced by the server itself.
const (
	TypeConnected    = "connected"
	TypeDisconnected = "disconnected"
)

// ErrNotConnected is returned when a channel has no connection.
var ErrNotConnected = errors.New("channel not connected")

// IncomingMsg is a message from a connected peer. Channel is filled in by
// the server and never read from the wire.
type IncomingMsg struct {
	Channel string `json:"-"`
	Type    string `json:"type"`

	// Requests: {type:"request", id, action, payload}.
	ID      string          `json:"id,omitempty"`
	Action  string          `json:"action,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Host events and query results.
	Tab      json.RawMessage `json:"tab,omitempty"`
	Tabs     json.RawMessage `json:"tabs,omitempty"`
	Groups   json.RawMessage `json:"groups,omitempty"`
	TabID    int             `json:"tabId,omitempty"`
	WindowID int             `json:"windowId,omitempty"`
	Status   string          `json:"status,omitempty"`

	// Command replies: {id, ok, error, groupId}.
	OK      *bool  `json:"ok,omitempty"`
	Error   string `json:"error,omitempty"`
	GroupID int    `json:"groupId,omitempty"`
}

// OutgoingMsg is a host intent, a request response, or a pushed state.
type OutgoingMsg struct {
	ID       string `json:"id,omitempty"`
	Action   string `json:"action"`
	TabID    int    `json:"tabId,omitempty"`
	TabIDs   []int  `json:"tabIds,omitempty"`
	GroupID  int    `json:"groupId,omitempty"`
	WindowID int    `json:"windowId,omitempty"`

	Title     string `json:"title,omitempty"`
	Color     string `json:"color,omitempty"`
	Collapsed *bool  `json:"collapsed,omitempty"`
	Pinned    *bool  `json:"pinned,omitempty"`
	Message   string `json:"message,omitempty"`
	Text      string `json:"text,omitempty"`
	Folder    string `json:"folder,omitempty"`
	URL       string `json:"url,omitempty"`

	// Request responses: {id, action:"response", success, data?, error?}.
	Success *bool  `json:"success,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	State *types.TimerState `json:"state,omitempty"`
}

// disconnectDeliveryTimeout bounds how long a closing handler waits for the
// consumer to take its disconnected message.
const disconnectDeliveryTimeout = 2 * time.Second

type peer struct {
	conn *websocket.Conn
	ctx  context.Context
}

// Server manages one WebSocket connection per channel. A new connection on
// a channel replaces the previous one.
type Server struct {
	port    int
	msgs    chan IncomingMsg
	mu      sync.Mutex
	peers   map[string]*peer
	pending map[string]chan IncomingMsg
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int) *Server {
	return &Server{
		port:    port,
		msgs:    make(chan IncomingMsg, 64),
		peers:   make(map[string]*peer),
		pending: make(map[string]chan IncomingMsg),
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Messages returns the channel of incoming messages. Replies to pending
// calls are not delivered here.
func (s *Server) Messages() <-chan IncomingMsg {
	return s.msgs
}

// Connected reports whether the host channel has a connection.
func (s *Server) Connected() bool {
	return s.ConnectedTo(ChannelHost)
}

// ConnectedTo reports whether channel has a connection.
func (s *Server) ConnectedTo(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peers[channel] != nil
}

// Send sends msg on the host channel.
func (s *Server) Send(msg OutgoingMsg) error {
	return s.SendTo(ChannelHost, msg)
}

// SendTo sends msg on channel.
func (s *Server) SendTo(channel string, msg OutgoingMsg) error {
	s.mu.Lock()
	p := s.peers[channel]
	s.mu.Unlock()

	if p == nil {
		return fmt.Errorf("send %s to %s: %w", msg.Action, channel, ErrNotConnected)
	}

	if msg.ID != "" {
		applog.Info("ws.send", "channel", channel, "action", msg.Action, "id", msg.ID)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Action, err)
	}
	return p.conn.Write(p.ctx, websocket.MessageText, data)
}

// Call sends msg on the host channel and waits for the reply carrying the
// same id. msg.ID must be set and unique.
func (s *Server) Call(ctx context.Context, msg OutgoingMsg) (IncomingMsg, error) {
	if msg.ID == "" {
		return IncomingMsg{}, fmt.Errorf("call %s: empty id", msg.Action)
	}
	reply := make(chan IncomingMsg, 1)
	s.mu.Lock()
	s.pending[msg.ID] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	if err := s.Send(msg); err != nil {
		return IncomingMsg{}, err
	}
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return IncomingMsg{}, fmt.Errorf("call %s: %w", msg.Action, ctx.Err())
	}
}

// Handler returns the http.Handler for the host channel.
func (s *Server) Handler() http.Handler {
	return s.ChannelHandler(ChannelHost)
}

// ChannelHandler returns an http.Handler that accepts WebSocket upgrades
// for channel.
func (s *Server) ChannelHandler(channel string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err, "channel", channel)
			return
		}

		conn.SetReadLimit(16 << 20) // tab lists of large windows

		ctx := r.Context()
		p := &peer{conn: conn, ctx: ctx}
		s.mu.Lock()
		if old := s.peers[channel]; old != nil {
			applog.Info("ws.replaced", "channel", channel)
			old.conn.CloseNow()
		}
		s.peers[channel] = p
		s.mu.Unlock()

		applog.Info("ws.connected", "channel", channel, "remote", r.RemoteAddr)
		s.deliver(ctx, IncomingMsg{Channel: channel, Type: TypeConnected})

		defer func() {
			s.mu.Lock()
			current := s.peers[channel] == p
			if current {
				delete(s.peers, channel)
			}
			s.mu.Unlock()
			conn.CloseNow()
			if current {
				if channel == ChannelHost {
					s.failPending()
				}
				applog.Info("ws.disconnected", "channel", channel)
				dctx, cancel := context.WithTimeout(context.Background(), disconnectDeliveryTimeout)
				s.deliver(dctx, IncomingMsg{Channel: channel, Type: TypeDisconnected})
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err, "channel", channel)
				continue
			}
			msg.Channel = channel
			if s.resolve(msg) {
				continue
			}
			applog.Info("ws.recv", "channel", channel, "type", msg.Type, "action", msg.Action)
			if !s.deliver(ctx, msg) {
				return
			}
		}
	})
}

// resolve hands msg to the Call waiting for its id.
func (s *Server) resolve(msg IncomingMsg) bool {
	if msg.ID == "" || msg.Channel != ChannelHost {
		return false
	}
	s.mu.Lock()
	reply, ok := s.pending[msg.ID]
	if ok {
		delete(s.pending, msg.ID)
	}
	s.mu.Unlock()
	if ok {
		reply <- msg
	}
	return ok
}

// failPending answers every outstanding call with a failure reply.
func (s *Server) failPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := false
	for id, reply := range s.pending {
		reply <- IncomingMsg{Channel: ChannelHost, ID: id, OK: &f, Error: "host disconnected"}
		delete(s.pending, id)
	}
}

func (s *Server) deliver(ctx context.Context, msg IncomingMsg) bool {
	select {
	case s.msgs <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// ListenAndServe serves the host channel on / and the popup channel on
// /popup until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.ChannelHandler(ChannelHost))
	mux.Handle("/popup", s.ChannelHandler(ChannelPopup))

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
