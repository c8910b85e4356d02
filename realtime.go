package zenwhisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// ErrNotConnected is returned when a command is issued without an
// established connection.
var ErrNotConnected = errors.New("realtime: not connected")

// ============================================================================
// Event Payload Types
// ============================================================================

// TypingEvent is sent when a counterpart starts or stops typing.
type TypingEvent struct {
	ConversationID string `json:"conversationId,omitempty"`
	Identity       string `json:"identity"`
	DisplayName    string `json:"displayName"`
	IsTyping       bool   `json:"isTyping"`
}

// StatusChangeEvent is sent when a user's online status changes.
type StatusChangeEvent struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName,omitempty"`
	Status      string `json:"status"`
}

// RoomNoticeEvent is sent when a user joins or leaves a room.
type RoomNoticeEvent struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

// RealtimeEnvelope is the wire format for all realtime events.
type RealtimeEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RealtimeCommand is a client-to-server command.
type RealtimeCommand struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ============================================================================
// Configuration
// ============================================================================

// RealtimeConfig configures the realtime client.
type RealtimeConfig struct {
	// Identity is announced to the server right after the socket opens.
	Identity    Identity
	DialTimeout time.Duration
	HTTPClient  *http.Client
}

func (c *RealtimeConfig) defaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// RealtimeState represents the connection state.
type RealtimeState string

const (
	StateDisconnected RealtimeState = "disconnected"
	StateConnecting   RealtimeState = "connecting"
	StateConnected    RealtimeState = "connected"
)

// ============================================================================
// Event Dispatcher
// ============================================================================

// RealtimeEventHandler is the generic event callback type.
type RealtimeEventHandler func(eventType string, payload json.RawMessage)

// UnsubscribeFunc removes a previously registered handler. Safe to call
// more than once.
type UnsubscribeFunc func()

type eventDispatcher struct {
	mu             sync.RWMutex
	nextID         int
	generic        map[string]map[int]RealtimeEventHandler
	onPrivateMsg   map[int]func(WireMessage)
	onRoomMsg      map[int]func(WireMessage)
	onTyping       map[int]func(TypingEvent)
	onStatus       map[int]func(StatusChangeEvent)
	onJoinNotice   map[int]func(RoomNoticeEvent)
	onLeaveNotice  map[int]func(RoomNoticeEvent)
	onDisconnected map[int]func(error)
}

func newEventDispatcher() *eventDispatcher {
	return &eventDispatcher{
		generic:        make(map[string]map[int]RealtimeEventHandler),
		onPrivateMsg:   make(map[int]func(WireMessage)),
		onRoomMsg:      make(map[int]func(WireMessage)),
		onTyping:       make(map[int]func(TypingEvent)),
		onStatus:       make(map[int]func(StatusChangeEvent)),
		onJoinNotice:   make(map[int]func(RoomNoticeEvent)),
		onLeaveNotice:  make(map[int]func(RoomNoticeEvent)),
		onDisconnected: make(map[int]func(error)),
	}
}

func (d *eventDispatcher) id() int {
	d.nextID++
	return d.nextID
}

// dispatch runs handlers synchronously on the caller's goroutine so that
// events reach subscribers in socket arrival order. Handler sets are
// snapshotted before invocation so a handler may unsubscribe itself.
func (d *eventDispatcher) dispatch(env RealtimeEnvelope) {
	// Typed handlers
	switch env.Type {
	case "receive_private_message":
		var w WireMessage
		if json.Unmarshal(env.Payload, &w) == nil {
			for _, h := range snapshot(d, d.onPrivateMsg) {
				h(w)
			}
		}
	case "receive_room_message":
		var w WireMessage
		if json.Unmarshal(env.Payload, &w) == nil {
			for _, h := range snapshot(d, d.onRoomMsg) {
				h(w)
			}
		}
	case "user_typing":
		var ev TypingEvent
		if json.Unmarshal(env.Payload, &ev) == nil {
			for _, h := range snapshot(d, d.onTyping) {
				h(ev)
			}
		}
	case "user_status_change":
		var ev StatusChangeEvent
		if json.Unmarshal(env.Payload, &ev) == nil {
			for _, h := range snapshot(d, d.onStatus) {
				h(ev)
			}
		}
	case "joining_message":
		var ev RoomNoticeEvent
		if json.Unmarshal(env.Payload, &ev) == nil {
			for _, h := range snapshot(d, d.onJoinNotice) {
				h(ev)
			}
		}
	case "leave_message":
		var ev RoomNoticeEvent
		if json.Unmarshal(env.Payload, &ev) == nil {
			for _, h := range snapshot(d, d.onLeaveNotice) {
				h(ev)
			}
		}
	}

	// Generic handlers
	d.mu.RLock()
	generic := make([]RealtimeEventHandler, 0, len(d.generic[env.Type]))
	for _, h := range d.generic[env.Type] {
		generic = append(generic, h)
	}
	d.mu.RUnlock()
	for _, h := range generic {
		h(env.Type, env.Payload)
	}
}

func snapshot[H any](d *eventDispatcher, m map[int]H) []H {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]H, 0, len(m))
	for _, h := range m {
		out = append(out, h)
	}
	return out
}

func (d *eventDispatcher) emitDisconnected(err error) {
	d.mu.RLock()
	handlers := make([]func(error), 0, len(d.onDisconnected))
	for _, h := range d.onDisconnected {
		handlers = append(handlers, h)
	}
	d.mu.RUnlock()
	for _, h := range handlers {
		h(err)
	}
}

// ============================================================================
// RealtimeClient
// ============================================================================

// RealtimeClient is the WebSocket connection manager. Its lifecycle is an
// explicit state machine: Disconnected, Connecting, Connected. There is no
// automatic reconnect; when the socket drops, the client lands back in
// Disconnected and the caller decides whether to dial again.
type RealtimeClient struct {
	baseURL    string
	token      string
	config     *RealtimeConfig
	mu         sync.Mutex
	state      RealtimeState
	conn       *websocket.Conn
	cancelFn   context.CancelFunc
	closedByUs bool
	dispatcher *eventDispatcher
}

// Realtime creates a realtime client bound to this REST client's base URL
// and token. Call Connect on the result to open the socket.
func (c *Client) Realtime(config *RealtimeConfig) *RealtimeClient {
	if config == nil {
		config = &RealtimeConfig{}
	}
	config.defaults()
	return &RealtimeClient{
		baseURL:    c.baseURL,
		token:      c.token,
		config:     config,
		state:      StateDisconnected,
		dispatcher: newEventDispatcher(),
	}
}

// State returns the current connection state.
func (rt *RealtimeClient) State() RealtimeState {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state
}

// Connect dials the realtime endpoint and announces the session identity.
// A failed dial leaves the client in Disconnected and surfaces the error;
// it never schedules a retry. Calling Connect while Connecting or Connected
// is a no-op.
func (rt *RealtimeClient) Connect(ctx context.Context) error {
	rt.mu.Lock()
	if rt.state == StateConnected || rt.state == StateConnecting {
		rt.mu.Unlock()
		return nil
	}
	rt.state = StateConnecting
	rt.closedByUs = false
	rt.mu.Unlock()

	wsURL := strings.Replace(rt.baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/ws?token=" + rt.token

	dialCtx, cancelDial := context.WithTimeout(ctx, rt.config.DialTimeout)
	defer cancelDial()

	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		HTTPClient: rt.config.HTTPClient,
	})
	if err != nil {
		rt.mu.Lock()
		rt.state = StateDisconnected
		rt.mu.Unlock()
		return fmt.Errorf("websocket dial: %w", err)
	}

	// Announce the identity before anything else; the server will not route
	// events to an anonymous socket.
	announce := &RealtimeCommand{Type: "user_online", Payload: rt.config.Identity}
	data, err := json.Marshal(announce)
	if err == nil {
		err = conn.Write(ctx, websocket.MessageText, data)
	}
	if err != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		rt.mu.Lock()
		rt.state = StateDisconnected
		rt.mu.Unlock()
		return fmt.Errorf("announce identity: %w", err)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	rt.mu.Lock()
	rt.conn = conn
	rt.state = StateConnected
	rt.cancelFn = cancel
	rt.mu.Unlock()

	go rt.readLoop(connCtx, conn)

	return nil
}

// Disconnect gracefully closes the connection. Idempotent: disconnecting a
// client that is already Disconnected is a no-op.
func (rt *RealtimeClient) Disconnect() error {
	rt.mu.Lock()
	if rt.state == StateDisconnected {
		rt.mu.Unlock()
		return nil
	}
	rt.closedByUs = true
	if rt.cancelFn != nil {
		rt.cancelFn()
		rt.cancelFn = nil
	}
	conn := rt.conn
	rt.conn = nil
	rt.state = StateDisconnected
	rt.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	rt.dispatcher.emitDisconnected(nil)
	return nil
}

func (rt *RealtimeClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			rt.mu.Lock()
			closedByUs := rt.closedByUs
			rt.mu.Unlock()
			if closedByUs {
				return
			}

			rt.mu.Lock()
			rt.state = StateDisconnected
			rt.conn = nil
			rt.mu.Unlock()

			rt.dispatcher.emitDisconnected(err)
			return
		}

		var env RealtimeEnvelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		rt.dispatcher.dispatch(env)
	}
}

// ============================================================================
// Commands
// ============================================================================

// Send sends a raw command over the socket.
func (rt *RealtimeClient) Send(ctx context.Context, cmd *RealtimeCommand) error {
	rt.mu.Lock()
	conn := rt.conn
	rt.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// membership is the join/leave payload: the conversation plus who is
// joining, so the server can announce it to the others.
type membership struct {
	ConversationID string `json:"conversationId"`
	Identity       string `json:"identity"`
	DisplayName    string `json:"displayName"`
}

func (rt *RealtimeClient) membership(conversationID string) membership {
	return membership{
		ConversationID: conversationID,
		Identity:       rt.config.Identity.Email,
		DisplayName:    rt.config.Identity.DisplayName,
	}
}

// JoinPrivateChat subscribes this connection to a direct chat's events.
func (rt *RealtimeClient) JoinPrivateChat(ctx context.Context, chatID string) error {
	return rt.Send(ctx, &RealtimeCommand{
		Type:    "join_private_chat",
		Payload: rt.membership(chatID),
	})
}

// LeavePrivateChat unsubscribes this connection from a direct chat.
func (rt *RealtimeClient) LeavePrivateChat(ctx context.Context, chatID string) error {
	return rt.Send(ctx, &RealtimeCommand{
		Type:    "leave_private_chat",
		Payload: rt.membership(chatID),
	})
}

// JoinRoom subscribes this connection to a room's events. Leaving a room
// also stops the server from routing that room's presence updates here.
func (rt *RealtimeClient) JoinRoom(ctx context.Context, roomID string) error {
	return rt.Send(ctx, &RealtimeCommand{
		Type:    "join_room",
		Payload: rt.membership(roomID),
	})
}

// LeaveRoom unsubscribes this connection from a room.
func (rt *RealtimeClient) LeaveRoom(ctx context.Context, roomID string) error {
	return rt.Send(ctx, &RealtimeCommand{
		Type:    "leave_room",
		Payload: rt.membership(roomID),
	})
}

// SendPrivateMessage sends a direct-chat message. Fire and forget: the
// confirmation is the socket echo, not a reply.
func (rt *RealtimeClient) SendPrivateMessage(ctx context.Context, w WireMessage) error {
	return rt.Send(ctx, &RealtimeCommand{Type: "send_private_message", Payload: w})
}

// SendRoomMessage sends a room message. Fire and forget.
func (rt *RealtimeClient) SendRoomMessage(ctx context.Context, w WireMessage) error {
	return rt.Send(ctx, &RealtimeCommand{Type: "send_room_message", Payload: w})
}

// StartTyping signals that the session user started typing in a conversation.
func (rt *RealtimeClient) StartTyping(ctx context.Context, conversationID string) error {
	return rt.Send(ctx, &RealtimeCommand{
		Type: "typing_start",
		Payload: map[string]string{
			"conversationId": conversationID,
			"identity":       rt.config.Identity.Email,
			"displayName":    rt.config.Identity.DisplayName,
		},
	})
}

// StopTyping signals that the session user stopped typing in a conversation.
func (rt *RealtimeClient) StopTyping(ctx context.Context, conversationID string) error {
	return rt.Send(ctx, &RealtimeCommand{
		Type: "typing_stop",
		Payload: map[string]string{
			"conversationId": conversationID,
			"identity":       rt.config.Identity.Email,
			"displayName":    rt.config.Identity.DisplayName,
		},
	})
}

// ============================================================================
// Handler Registration
// ============================================================================

// Handlers are scoped subscriptions: every registration returns an
// UnsubscribeFunc, and a conversation view that goes away must call it so a
// stale handler never receives another event.

// OnPrivateMessage registers a handler for incoming direct-chat messages.
func (rt *RealtimeClient) OnPrivateMessage(h func(WireMessage)) UnsubscribeFunc {
	d := rt.dispatcher
	d.mu.Lock()
	id := d.id()
	d.onPrivateMsg[id] = h
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.onPrivateMsg, id)
		d.mu.Unlock()
	}
}

// OnRoomMessage registers a handler for incoming room messages.
func (rt *RealtimeClient) OnRoomMessage(h func(WireMessage)) UnsubscribeFunc {
	d := rt.dispatcher
	d.mu.Lock()
	id := d.id()
	d.onRoomMsg[id] = h
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.onRoomMsg, id)
		d.mu.Unlock()
	}
}

// OnTyping registers a handler for typing indicator events.
func (rt *RealtimeClient) OnTyping(h func(TypingEvent)) UnsubscribeFunc {
	d := rt.dispatcher
	d.mu.Lock()
	id := d.id()
	d.onTyping[id] = h
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.onTyping, id)
		d.mu.Unlock()
	}
}

// OnStatusChange registers a handler for presence changes.
func (rt *RealtimeClient) OnStatusChange(h func(StatusChangeEvent)) UnsubscribeFunc {
	d := rt.dispatcher
	d.mu.Lock()
	id := d.id()
	d.onStatus[id] = h
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.onStatus, id)
		d.mu.Unlock()
	}
}

// OnJoinNotice registers a handler for room join announcements.
func (rt *RealtimeClient) OnJoinNotice(h func(RoomNoticeEvent)) UnsubscribeFunc {
	d := rt.dispatcher
	d.mu.Lock()
	id := d.id()
	d.onJoinNotice[id] = h
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.onJoinNotice, id)
		d.mu.Unlock()
	}
}

// OnLeaveNotice registers a handler for room leave announcements.
func (rt *RealtimeClient) OnLeaveNotice(h func(RoomNoticeEvent)) UnsubscribeFunc {
	d := rt.dispatcher
	d.mu.Lock()
	id := d.id()
	d.onLeaveNotice[id] = h
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.onLeaveNotice, id)
		d.mu.Unlock()
	}
}

// OnDisconnected registers a handler for the disconnected meta-event.
// err is nil when the client disconnected deliberately.
func (rt *RealtimeClient) OnDisconnected(h func(err error)) UnsubscribeFunc {
	d := rt.dispatcher
	d.mu.Lock()
	id := d.id()
	d.onDisconnected[id] = h
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.onDisconnected, id)
		d.mu.Unlock()
	}
}

// On registers a generic event handler for an arbitrary event type.
func (rt *RealtimeClient) On(eventType string, h RealtimeEventHandler) UnsubscribeFunc {
	d := rt.dispatcher
	d.mu.Lock()
	id := d.id()
	if d.generic[eventType] == nil {
		d.generic[eventType] = make(map[int]RealtimeEventHandler)
	}
	d.generic[eventType][id] = h
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.generic[eventType], id)
		d.mu.Unlock()
	}
}
