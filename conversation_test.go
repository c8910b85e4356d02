package zenwhisper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSelf = Identity{Email: "mira@example.com", DisplayName: "Mira"}

func TestDirectChatID(t *testing.T) {
	t.Run("order independent", func(t *testing.T) {
		a := DirectChatID("alice@example.com", "bob@example.com")
		b := DirectChatID("bob@example.com", "alice@example.com")
		assert.Equal(t, a, b)
		assert.Equal(t, "alice@example.com_bob@example.com", a)
	})
}

func TestDisplayClock(t *testing.T) {
	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	t.Run("room shows minutes", func(t *testing.T) {
		assert.Equal(t, "3:09 PM", displayClock(at, RoomConversation))
	})

	t.Run("direct shows seconds", func(t *testing.T) {
		assert.Equal(t, "3:09:26 PM", displayClock(at, DirectConversation))
	})
}

func TestSeedHistory(t *testing.T) {
	t.Run("preserves server order", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		history := []WireMessage{
			{ID: "m1", Author: Author{Email: "bob@example.com", DisplayName: "Bob"}, Body: "first", SentAt: "3:01:00 PM"},
			{ID: "m2", Author: Author{Email: "mira@example.com", DisplayName: "Mira"}, Body: "second", SentAt: "3:01:05 PM"},
			{ID: "m3", Author: Author{Email: "bob@example.com", DisplayName: "Bob"}, Body: "third", SentAt: "3:01:09 PM"},
		}

		require.True(t, c.SeedHistory("chat-1", history))
		require.True(t, c.Seeded())

		msgs := c.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, "first", msgs[0].Body)
		assert.Equal(t, "second", msgs[1].Body)
		assert.Equal(t, "third", msgs[2].Body)
		assert.False(t, msgs[0].IsOwn)
		assert.True(t, msgs[1].IsOwn)
	})

	t.Run("stale fetch for another conversation is dropped", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-current", testSelf)
		applied := c.SeedHistory("chat-previous", []WireMessage{
			{ID: "m1", Author: Author{DisplayName: "Bob"}, Body: "old chat", SentAt: "2:00:00 PM"},
		})

		assert.False(t, applied)
		assert.False(t, c.Seeded())
		assert.Equal(t, 0, c.Len())
	})

	t.Run("reseed replaces wholesale", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		c.SeedHistory("chat-1", []WireMessage{
			{ID: "m1", Author: Author{DisplayName: "Bob"}, Body: "one", SentAt: "3:00:00 PM"},
		})
		c.SeedHistory("chat-1", []WireMessage{
			{ID: "m2", Author: Author{DisplayName: "Bob"}, Body: "two", SentAt: "3:00:01 PM"},
			{ID: "m3", Author: Author{DisplayName: "Bob"}, Body: "three", SentAt: "3:00:02 PM"},
		})

		msgs := c.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "two", msgs[0].Body)
	})

	t.Run("empty room history yields welcome notice", func(t *testing.T) {
		c := NewConversation(RoomConversation, "room-1", testSelf)
		require.True(t, c.SeedHistory("room-1", nil))

		msgs := c.Messages()
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].IsSystemNotice)
		assert.Contains(t, msgs[0].Body, "first one here")
	})

	t.Run("empty direct history stays empty", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		require.True(t, c.SeedHistory("chat-1", nil))
		assert.Equal(t, 0, c.Len())
	})
}

func TestApplyLive(t *testing.T) {
	bob := Author{Email: "bob@example.com", DisplayName: "Bob"}

	t.Run("appends new message", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		c.SeedHistory("chat-1", nil)

		m, ok := c.ApplyLive(WireMessage{ID: "m1", Author: bob, Body: "hello", SentAt: "3:00:00 PM"})
		require.True(t, ok)
		assert.Equal(t, "hello", m.Body)
		assert.False(t, m.IsOwn)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("exact duplicate is discarded", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		c.SeedHistory("chat-1", nil)

		w := WireMessage{ID: "m1", Author: bob, Body: "hello", SentAt: "3:00:00 PM"}
		_, ok := c.ApplyLive(w)
		require.True(t, ok)
		_, ok = c.ApplyLive(w)
		assert.False(t, ok)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("same body at different displayed time is kept", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		c.SeedHistory("chat-1", nil)

		_, ok := c.ApplyLive(WireMessage{Author: bob, Body: "hello", SentAt: "3:00:00 PM"})
		require.True(t, ok)
		_, ok = c.ApplyLive(WireMessage{Author: bob, Body: "hello", SentAt: "3:00:01 PM"})
		assert.True(t, ok)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("same key from different author is kept", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		c.SeedHistory("chat-1", nil)

		_, ok := c.ApplyLive(WireMessage{Author: bob, Body: "hello", SentAt: "3:00:00 PM"})
		require.True(t, ok)
		_, ok = c.ApplyLive(WireMessage{Author: Author{Email: "eve@example.com", DisplayName: "Eve"}, Body: "hello", SentAt: "3:00:00 PM"})
		assert.True(t, ok)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("duplicate of seeded history is discarded", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		c.SeedHistory("chat-1", []WireMessage{
			{ID: "m1", Author: bob, Body: "hello", SentAt: "3:00:00 PM"},
		})

		_, ok := c.ApplyLive(WireMessage{ID: "m1", Author: bob, Body: "hello", SentAt: "3:00:00 PM"})
		assert.False(t, ok)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("wire without id gets one assigned", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		m, ok := c.ApplyLive(WireMessage{Author: bob, Body: "hello", SentAt: "3:00:00 PM"})
		require.True(t, ok)
		assert.NotEmpty(t, m.ID)
	})
}

func TestOptimisticEcho(t *testing.T) {
	t.Run("socket echo of own send is absorbed", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		c.SeedHistory("chat-1", nil)

		local := c.AppendLocal("on my way")
		require.True(t, local.IsOwn)
		require.Equal(t, 1, c.Len())

		// The server echo carries the same author, body, and displayed time.
		echo := WireMessage{
			ID:     "server-id",
			Author: Author{Email: testSelf.Email, DisplayName: testSelf.DisplayName},
			Body:   "on my way",
			SentAt: local.SentAt,
		}
		_, ok := c.ApplyLive(echo)
		assert.False(t, ok, "echo must not duplicate the optimistic message")
		assert.Equal(t, 1, c.Len())
	})

	t.Run("peer message after own send is kept", func(t *testing.T) {
		c := NewConversation(DirectConversation, "chat-1", testSelf)
		c.SeedHistory("chat-1", nil)
		local := c.AppendLocal("on my way")

		_, ok := c.ApplyLive(WireMessage{
			Author: Author{Email: "bob@example.com", DisplayName: "Bob"},
			Body:   "see you soon",
			SentAt: local.SentAt,
		})
		assert.True(t, ok)
		assert.Equal(t, 2, c.Len())
	})
}

func TestAppendNotice(t *testing.T) {
	t.Run("notices bypass the dedup key space", func(t *testing.T) {
		c := NewConversation(RoomConversation, "room-1", testSelf)
		c.SeedHistory("room-1", []WireMessage{
			{ID: "m1", Author: Author{DisplayName: "Bob"}, Body: "hi", SentAt: "3:00 PM"},
		})

		n1 := c.AppendNotice("Bob joined the room")
		n2 := c.AppendNotice("Bob joined the room")
		assert.True(t, n1.IsSystemNotice)
		assert.NotEqual(t, n1.ID, n2.ID)
		assert.Equal(t, 3, c.Len())
	})
}
