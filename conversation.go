package zenwhisper

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for the conversation layer.
var (
	ErrEmptyConversationID = errors.New("conversation id must not be empty")
	ErrEmptyBody           = errors.New("message body must not be empty")
)

// ConversationKind distinguishes a direct (1:1) chat from a group room.
type ConversationKind string

const (
	DirectConversation ConversationKind = "direct"
	RoomConversation   ConversationKind = "room"
)

// DirectChatID computes the deterministic identifier of a direct chat: the
// two participant identifiers sorted and concatenated, so both sides derive
// the same id regardless of who opens the chat.
func DirectChatID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// displayClock renders the display-formatted time for a message. Room chat
// shows minute resolution; direct chat includes seconds.
func displayClock(t time.Time, kind ConversationKind) string {
	if kind == RoomConversation {
		return t.Format("3:04 PM")
	}
	return t.Format("3:04:05 PM")
}

// ============================================================================
// Merge Engine
// ============================================================================

// Conversation maintains a single ordered, duplicate-free message buffer for
// one open conversation: seeded once from history, then extended by live
// events and optimistic local sends.
//
// The dedup key is (author identity, body, displayed time). A live event
// matching a message already in the buffer is discarded: it is the socket
// echo of a message the sender already sees optimistically. Two coincidental
// messages with an identical key collapse into one; that precision tradeoff
// is accepted rather than silently worked around.
//
// System notices (welcome banner, join/leave announcements) render in the
// buffer but never participate in the dedup key space.
type Conversation struct {
	mu     sync.Mutex
	id     string
	kind   ConversationKind
	self   Identity
	seeded bool
	msgs   []Message
	keys   map[string]struct{}
}

// NewConversation creates an empty buffer for the given conversation.
// self is the current session's identity, used to compute IsOwn.
func NewConversation(kind ConversationKind, id string, self Identity) *Conversation {
	return &Conversation{
		id:   id,
		kind: kind,
		self: self,
		keys: make(map[string]struct{}),
	}
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string { return c.id }

// Kind returns whether this is a direct chat or a room.
func (c *Conversation) Kind() ConversationKind { return c.kind }

// Seeded reports whether history has been applied.
func (c *Conversation) Seeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seeded
}

func dedupKey(author Author, body, sentAt string) string {
	return author.Key() + "\x00" + body + "\x00" + sentAt
}

func (c *Conversation) isOwn(a Author) bool {
	self := Author{Email: c.self.Email, DisplayName: c.self.DisplayName}
	return a.Key() == self.Key()
}

// sentAtOf returns the wire message's displayed time, deriving it from
// CreatedAt when the server omitted it.
func (c *Conversation) sentAtOf(w WireMessage, fallback time.Time) string {
	if w.SentAt != "" {
		return w.SentAt
	}
	at := w.CreatedAt
	if at.IsZero() {
		at = fallback
	}
	return displayClock(at, c.kind)
}

// SeedHistory replaces the buffer wholesale with the fetched history,
// preserving server-provided order. The fetch result is applied only when
// its conversation id matches this buffer's id; a late fetch for a
// conversation the user has navigated away from is dropped. Returns whether
// the seed was applied.
//
// Room conversations with empty history synthesize a single welcome notice;
// the caller must only seed on a successful fetch.
func (c *Conversation) SeedHistory(conversationID string, history []WireMessage) bool {
	if conversationID != c.id {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]Message, 0, len(history))
	keys := make(map[string]struct{}, len(history))
	for _, w := range history {
		sentAt := c.sentAtOf(w, time.Now())
		msgs = append(msgs, Message{
			ID:             w.ID,
			ConversationID: c.id,
			Author:         w.Author,
			Body:           w.Body,
			SentAt:         sentAt,
			CreatedAt:      w.CreatedAt,
			IsOwn:          c.isOwn(w.Author),
		})
		keys[dedupKey(w.Author, w.Body, sentAt)] = struct{}{}
	}

	if c.kind == RoomConversation && len(msgs) == 0 {
		msgs = append(msgs, c.notice("Welcome to the room! You are the first one here. Say hello."))
	}

	c.msgs = msgs
	c.keys = keys
	c.seeded = true
	return true
}

// ApplyLive appends a live event to the buffer unless its dedup key is
// already present. CreatedAt is set to receipt time when the wire carries
// none. Returns the appended message and whether the event produced one.
func (c *Conversation) ApplyLive(w WireMessage) (Message, bool) {
	now := time.Now()
	sentAt := c.sentAtOf(w, now)
	key := dedupKey(w.Author, w.Body, sentAt)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.keys[key]; dup {
		return Message{}, false
	}

	createdAt := w.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	id := w.ID
	if id == "" {
		id = uuid.NewString()
	}
	m := Message{
		ID:             id,
		ConversationID: c.id,
		Author:         w.Author,
		Body:           w.Body,
		SentAt:         sentAt,
		CreatedAt:      createdAt,
		IsOwn:          c.isOwn(w.Author),
	}
	c.msgs = append(c.msgs, m)
	c.keys[key] = struct{}{}
	return m, true
}

// AppendLocal appends an optimistic own message synchronously, before any
// network round-trip. The later socket echo is absorbed by the dedup rule.
func (c *Conversation) AppendLocal(body string) Message {
	now := time.Now()
	author := Author{Email: c.self.Email, DisplayName: c.self.DisplayName}
	m := Message{
		ID:             uuid.NewString(),
		ConversationID: c.id,
		Author:         author,
		Body:           body,
		SentAt:         displayClock(now, c.kind),
		CreatedAt:      now,
		IsOwn:          true,
	}

	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.keys[dedupKey(author, body, m.SentAt)] = struct{}{}
	c.mu.Unlock()
	return m
}

// AppendNotice appends a system notice (join/leave announcements and the
// like). Notices are excluded from the dedup key space.
func (c *Conversation) AppendNotice(body string) Message {
	m := c.notice(body)
	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()
	return m
}

func (c *Conversation) notice(body string) Message {
	now := time.Now()
	return Message{
		ID:             uuid.NewString(),
		ConversationID: c.id,
		Author:         Author{DisplayName: "zenWhisper"},
		Body:           body,
		SentAt:         displayClock(now, c.kind),
		CreatedAt:      now,
		IsSystemNotice: true,
	}
}

// Messages returns a snapshot of the merged, ordered buffer.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len returns the current buffer length.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}
