package zenwhisper

import (
	"context"
	"sync"
	"time"
)

// ChatSession binds one open conversation view to the realtime connection
// and the history endpoint: it joins the conversation, subscribes scoped
// handlers, seeds the buffer from history, and reconciles live events on
// top. Closing the session leaves the conversation and unregisters every
// handler, so a navigated-away view never receives another event.
type ChatSession struct {
	client *Client
	rt     *RealtimeClient
	conv   *Conversation
	typing *TypingNotifier
	peers  *TypingState
	pres   *PresenceSet

	mu         sync.Mutex
	closed     bool
	historyErr error
	unsubs     []UnsubscribeFunc
	onMessage  func(Message)
}

// OpenDirectChat opens a session for the direct chat between the realtime
// client's identity and peer. The join and subscriptions are established
// first, then history is fetched once; a failed fetch is recorded and the
// session stays usable on live traffic alone.
func OpenDirectChat(ctx context.Context, client *Client, rt *RealtimeClient, peer string) (*ChatSession, error) {
	if peer == "" {
		return nil, ErrEmptyConversationID
	}
	self := rt.config.Identity
	chatID := DirectChatID(self.Email, peer)

	s := newSession(client, rt, NewConversation(DirectConversation, chatID, self), DirectTypingWindow)

	if err := rt.JoinPrivateChat(ctx, chatID); err != nil {
		return nil, err
	}
	s.subscribe(rt.OnPrivateMessage(s.handleLive))
	s.subscribeShared()

	s.loadHistory(ctx)
	return s, nil
}

// OpenRoom opens a session for a group room.
func OpenRoom(ctx context.Context, client *Client, rt *RealtimeClient, roomID string) (*ChatSession, error) {
	if roomID == "" {
		return nil, ErrEmptyConversationID
	}
	self := rt.config.Identity

	s := newSession(client, rt, NewConversation(RoomConversation, roomID, self), RoomTypingWindow)

	if err := rt.JoinRoom(ctx, roomID); err != nil {
		return nil, err
	}
	s.subscribe(rt.OnRoomMessage(s.handleLive))
	s.subscribe(rt.OnJoinNotice(func(ev RoomNoticeEvent) {
		if ev.RoomID != roomID || ev.DisplayName == self.DisplayName {
			return
		}
		s.publish(s.conv.AppendNotice(ev.DisplayName + " joined the room"))
	}))
	s.subscribe(rt.OnLeaveNotice(func(ev RoomNoticeEvent) {
		if ev.RoomID != roomID {
			return
		}
		s.publish(s.conv.AppendNotice(ev.DisplayName + " left the room"))
	}))
	s.subscribeShared()

	s.loadHistory(ctx)
	return s, nil
}

func newSession(client *Client, rt *RealtimeClient, conv *Conversation, window time.Duration) *ChatSession {
	s := &ChatSession{
		client: client,
		rt:     rt,
		conv:   conv,
		peers:  NewTypingState(),
		pres:   NewPresenceSet(0),
	}
	s.typing = NewTypingNotifier(window,
		func() { _ = rt.StartTyping(context.Background(), conv.ID()) },
		func() { _ = rt.StopTyping(context.Background(), conv.ID()) },
	)
	return s
}

// subscribeShared registers the handlers every conversation kind needs:
// typing indicators, presence, and the disconnect reset.
func (s *ChatSession) subscribeShared() {
	convID := s.conv.ID()
	selfKey := s.rt.config.Identity.Email

	s.subscribe(s.rt.OnTyping(func(ev TypingEvent) {
		if ev.ConversationID != "" && ev.ConversationID != convID {
			return
		}
		if ev.Identity == selfKey {
			return
		}
		s.peers.Apply(ev)
	}))
	s.subscribe(s.rt.OnStatusChange(func(ev StatusChangeEvent) {
		s.pres.Apply(ev)
	}))
	s.subscribe(s.rt.OnDisconnected(func(error) {
		// Presence and typing are live-only state; they do not survive
		// the connection that produced them.
		s.pres.Reset()
		s.peers.Clear()
	}))
}

func (s *ChatSession) subscribe(u UnsubscribeFunc) {
	s.mu.Lock()
	s.unsubs = append(s.unsubs, u)
	s.mu.Unlock()
}

func (s *ChatSession) loadHistory(ctx context.Context) {
	var (
		history []WireMessage
		err     error
	)
	if s.conv.Kind() == RoomConversation {
		history, err = s.client.Messages().RoomHistory(ctx, s.conv.ID())
	} else {
		history, err = s.client.Messages().PrivateHistory(ctx, s.conv.ID())
	}

	s.mu.Lock()
	closed := s.closed
	s.historyErr = err
	s.mu.Unlock()

	if err != nil || closed {
		return
	}
	s.conv.SeedHistory(s.conv.ID(), history)
}

// LoadHistory re-runs the one-shot history fetch. The seed is only applied
// when the session is still open; it is the caller's retry affordance after
// a failed initial fetch.
func (s *ChatSession) LoadHistory(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.loadHistory(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyErr
}

func (s *ChatSession) handleLive(w WireMessage) {
	if w.ConversationID != "" && w.ConversationID != s.conv.ID() {
		return
	}
	m, ok := s.conv.ApplyLive(w)
	if !ok {
		return
	}
	s.publish(m)
}

func (s *ChatSession) publish(m Message) {
	s.mu.Lock()
	cb := s.onMessage
	s.mu.Unlock()
	if cb != nil {
		cb(m)
	}
}

// SetOnMessage registers a callback invoked for each message appended to the
// buffer after registration (live events, notices). Pass nil to remove it.
func (s *ChatSession) SetOnMessage(cb func(Message)) {
	s.mu.Lock()
	s.onMessage = cb
	s.mu.Unlock()
}

// Send appends the message optimistically and fires it over the socket.
// The append happens before the network write, so the sender's view updates
// synchronously; the server echo is absorbed by the dedup rule. There is no
// delivery confirmation and no retry.
func (s *ChatSession) Send(ctx context.Context, body string) (Message, error) {
	if body == "" {
		return Message{}, ErrEmptyBody
	}

	m := s.conv.AppendLocal(body)
	s.typing.Flush()

	w := WireMessage{
		ID:             m.ID,
		ConversationID: s.conv.ID(),
		Author:         m.Author,
		Body:           m.Body,
		SentAt:         m.SentAt,
		CreatedAt:      m.CreatedAt,
	}

	var err error
	if s.conv.Kind() == RoomConversation {
		err = s.rt.SendRoomMessage(ctx, w)
	} else {
		err = s.rt.SendPrivateMessage(ctx, w)
	}
	return m, err
}

// Typing records a local keystroke for the typing indicator.
func (s *ChatSession) Typing() {
	s.typing.Keystroke()
}

// Close leaves the conversation and unregisters every handler. Idempotent.
func (s *ChatSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	s.typing.Flush()
	for _, u := range unsubs {
		u()
	}

	if s.conv.Kind() == RoomConversation {
		return s.rt.LeaveRoom(ctx, s.conv.ID())
	}
	return s.rt.LeavePrivateChat(ctx, s.conv.ID())
}

// Messages returns a snapshot of the merged conversation buffer.
func (s *ChatSession) Messages() []Message { return s.conv.Messages() }

// Conversation returns the underlying merge buffer.
func (s *ChatSession) Conversation() *Conversation { return s.conv }

// State returns the underlying connection's state.
func (s *ChatSession) State() RealtimeState { return s.rt.State() }

// HistoryErr returns the error of the most recent history fetch, nil when it
// succeeded.
func (s *ChatSession) HistoryErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyErr
}

// TypingPeers returns the display names of counterparts currently typing.
func (s *ChatSession) TypingPeers() []string { return s.peers.Typists() }

// Presence returns the session's presence tracker.
func (s *ChatSession) Presence() *PresenceSet { return s.pres }
