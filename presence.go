package zenwhisper

import (
	"sync"
	"time"
)

// Typing debounce windows per conversation type. Callers must pick one
// consistent window per conversation; these are the defaults the session
// layer uses.
const (
	DirectTypingWindow = 3 * time.Second
	RoomTypingWindow   = 1 * time.Second
)

// ============================================================================
// TypingNotifier (outbound)
// ============================================================================

// TypingNotifier debounces the local user's keystrokes into typing_start /
// typing_stop signals. The first keystroke of a burst emits start and arms a
// timer; further keystrokes reset it. When the timer expires with no new
// keystroke, exactly one stop is synthesized so the counterpart never sees
// a stuck typing indicator.
type TypingNotifier struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	active bool
	start  func()
	stop   func()
}

// NewTypingNotifier creates a notifier with the given debounce window
// (DirectTypingWindow when zero) and start/stop emit callbacks. Callbacks
// run without the notifier's lock held; either may be nil.
func NewTypingNotifier(window time.Duration, start, stop func()) *TypingNotifier {
	if window <= 0 {
		window = DirectTypingWindow
	}
	return &TypingNotifier{window: window, start: start, stop: stop}
}

// Keystroke records local typing activity: emits start on the idle→typing
// transition and resets the auto-stop timer.
func (n *TypingNotifier) Keystroke() {
	n.mu.Lock()
	wasIdle := !n.active
	n.active = true
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.window, n.expire)
	n.mu.Unlock()

	if wasIdle && n.start != nil {
		n.start()
	}
}

// Flush stops typing immediately (e.g. the message was just sent): cancels
// the timer and emits stop if a burst was active.
func (n *TypingNotifier) Flush() {
	n.mu.Lock()
	wasActive := n.active
	n.active = false
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.mu.Unlock()

	if wasActive && n.stop != nil {
		n.stop()
	}
}

func (n *TypingNotifier) expire() {
	n.mu.Lock()
	if !n.active {
		n.mu.Unlock()
		return
	}
	n.active = false
	n.timer = nil
	n.mu.Unlock()

	if n.stop != nil {
		n.stop()
	}
}

// ============================================================================
// TypingState (inbound)
// ============================================================================

// TypingStatus is the ephemeral typing flag of one counterpart.
type TypingStatus struct {
	DisplayName string
	IsTyping    bool
}

// TypingState tracks which counterparts are currently typing, driven by
// user_typing events. Never persisted; presentation signal only.
type TypingState struct {
	mu     sync.RWMutex
	byUser map[string]TypingStatus
}

func NewTypingState() *TypingState {
	return &TypingState{byUser: make(map[string]TypingStatus)}
}

// Apply records a user_typing event.
func (s *TypingState) Apply(ev TypingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[ev.Identity] = TypingStatus{DisplayName: ev.DisplayName, IsTyping: ev.IsTyping}
}

// IsTyping reports whether the given identity is currently typing.
func (s *TypingState) IsTyping(identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byUser[identity].IsTyping
}

// Typists returns the display names of everyone currently typing.
func (s *TypingState) Typists() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for _, st := range s.byUser {
		if st.IsTyping {
			names = append(names, st.DisplayName)
		}
	}
	return names
}

// Clear drops all typing state (used on disconnect).
func (s *TypingState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser = make(map[string]TypingStatus)
}

// ============================================================================
// PresenceSet
// ============================================================================

// PresenceSet tracks which identities are online, driven by
// user_status_change events. State is reset on reconnect and never
// persisted.
//
// An optional staleness TTL guards against the server failing to push an
// offline event on an ungraceful disconnect: entries older than the TTL no
// longer count as online. A zero TTL trusts the server entirely.
type PresenceSet struct {
	mu     sync.RWMutex
	ttl    time.Duration
	online map[string]time.Time
	now    func() time.Time
}

// NewPresenceSet creates a presence tracker. ttl of zero disables client-side
// staleness expiry.
func NewPresenceSet(ttl time.Duration) *PresenceSet {
	return &PresenceSet{
		ttl:    ttl,
		online: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Apply records a user_status_change event.
func (p *PresenceSet) Apply(ev StatusChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev.Status == "online" {
		p.online[ev.Identity] = p.now()
	} else {
		delete(p.online, ev.Identity)
	}
}

// Touch refreshes the staleness clock for an identity known to be active
// (e.g. it just sent a message).
func (p *PresenceSet) Touch(identity string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.online[identity]; ok {
		p.online[identity] = p.now()
	}
}

// Online reports whether the identity is currently considered online.
func (p *PresenceSet) Online(identity string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	at, ok := p.online[identity]
	if !ok {
		return false
	}
	if p.ttl > 0 && p.now().Sub(at) > p.ttl {
		return false
	}
	return true
}

// OnlineUsers returns the identities currently considered online.
func (p *PresenceSet) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var users []string
	for id, at := range p.online {
		if p.ttl > 0 && p.now().Sub(at) > p.ttl {
			continue
		}
		users = append(users, id)
	}
	return users
}

// Reset drops all presence state (used on reconnect).
func (p *PresenceSet) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = make(map[string]time.Time)
}
