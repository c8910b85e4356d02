package zenwhisper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

// rtTestServer is a scripted websocket endpoint: it records every command
// the client sends and pushes whatever envelopes the test hands it.
type rtTestServer struct {
	*httptest.Server

	mu       sync.Mutex
	conn     *websocket.Conn
	commands []RealtimeCommand
}

func newRTTestServer(t *testing.T) *rtTestServer {
	t.Helper()
	s := &rtTestServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			var cmd RealtimeCommand
			if json.Unmarshal(data, &cmd) != nil {
				continue
			}
			s.mu.Lock()
			s.commands = append(s.commands, cmd)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.Close)
	return s
}

// waitConn blocks until the handler goroutine has stored the accepted
// connection.
func (s *rtTestServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			return conn
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("client never connected")
	return nil
}

func (s *rtTestServer) push(t *testing.T, eventType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(RealtimeEnvelope{Type: eventType, Payload: raw})
	require.NoError(t, err)

	conn := s.waitConn(t)
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, data))
}

func (s *rtTestServer) received() []RealtimeCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RealtimeCommand, len(s.commands))
	copy(out, s.commands)
	return out
}

func (s *rtTestServer) commandTypes() []string {
	var types []string
	for _, c := range s.received() {
		types = append(types, c.Type)
	}
	return types
}

func newTestRealtime(t *testing.T, srv *rtTestServer) *RealtimeClient {
	t.Helper()
	client := NewClient("test-token", WithBaseURL(srv.URL))
	rt := client.Realtime(&RealtimeConfig{Identity: testSelf})
	t.Cleanup(func() { rt.Disconnect() })
	return rt
}

func TestRealtimeConnect(t *testing.T) {
	t.Run("reaches connected and announces identity first", func(t *testing.T) {
		srv := newRTTestServer(t)
		rt := newTestRealtime(t, srv)

		assert.Equal(t, StateDisconnected, rt.State())
		require.NoError(t, rt.Connect(context.Background()))
		assert.Equal(t, StateConnected, rt.State())

		require.Eventually(t, func() bool { return len(srv.received()) >= 1 },
			time.Second, 5*time.Millisecond)
		first := srv.received()[0]
		assert.Equal(t, "user_online", first.Type)

		raw, _ := json.Marshal(first.Payload)
		var id Identity
		require.NoError(t, json.Unmarshal(raw, &id))
		assert.Equal(t, testSelf, id)
	})

	t.Run("connect while connected is a no-op", func(t *testing.T) {
		srv := newRTTestServer(t)
		rt := newTestRealtime(t, srv)

		require.NoError(t, rt.Connect(context.Background()))
		require.NoError(t, rt.Connect(context.Background()))

		require.Eventually(t, func() bool { return len(srv.received()) >= 1 },
			time.Second, 5*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, []string{"user_online"}, srv.commandTypes())
	})

	t.Run("failed dial lands in disconnected without retry", func(t *testing.T) {
		srv := newRTTestServer(t)
		srv.Close()
		client := NewClient("test-token", WithBaseURL(srv.URL))
		rt := client.Realtime(&RealtimeConfig{Identity: testSelf, DialTimeout: 200 * time.Millisecond})

		err := rt.Connect(context.Background())
		require.Error(t, err)
		assert.Equal(t, StateDisconnected, rt.State())

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, StateDisconnected, rt.State(), "no background reconnect")
	})
}

func TestRealtimeDisconnect(t *testing.T) {
	t.Run("deliberate disconnect is clean and idempotent", func(t *testing.T) {
		srv := newRTTestServer(t)
		rt := newTestRealtime(t, srv)
		require.NoError(t, rt.Connect(context.Background()))

		var gotErr error
		var calls int
		var mu sync.Mutex
		rt.OnDisconnected(func(err error) {
			mu.Lock()
			calls++
			gotErr = err
			mu.Unlock()
		})

		require.NoError(t, rt.Disconnect())
		assert.Equal(t, StateDisconnected, rt.State())
		require.NoError(t, rt.Disconnect())

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, calls)
		assert.NoError(t, gotErr)
	})

	t.Run("server drop surfaces the error and stays down", func(t *testing.T) {
		srv := newRTTestServer(t)
		rt := newTestRealtime(t, srv)
		require.NoError(t, rt.Connect(context.Background()))

		errCh := make(chan error, 1)
		rt.OnDisconnected(func(err error) { errCh <- err })

		srv.waitConn(t).Close(websocket.StatusGoingAway, "server shutdown")

		select {
		case err := <-errCh:
			assert.Error(t, err)
		case <-time.After(time.Second):
			t.Fatal("disconnect event not delivered")
		}
		assert.Equal(t, StateDisconnected, rt.State())
	})
}

func TestRealtimeCommands(t *testing.T) {
	t.Run("send without connection", func(t *testing.T) {
		srv := newRTTestServer(t)
		rt := newTestRealtime(t, srv)

		err := rt.JoinRoom(context.Background(), "room-1")
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("join and typing commands hit the wire", func(t *testing.T) {
		srv := newRTTestServer(t)
		rt := newTestRealtime(t, srv)
		require.NoError(t, rt.Connect(context.Background()))

		ctx := context.Background()
		require.NoError(t, rt.JoinPrivateChat(ctx, "chat-1"))
		require.NoError(t, rt.StartTyping(ctx, "chat-1"))
		require.NoError(t, rt.StopTyping(ctx, "chat-1"))
		require.NoError(t, rt.LeavePrivateChat(ctx, "chat-1"))

		require.Eventually(t, func() bool { return len(srv.received()) == 5 },
			time.Second, 5*time.Millisecond)
		assert.Equal(t,
			[]string{"user_online", "join_private_chat", "typing_start", "typing_stop", "leave_private_chat"},
			srv.commandTypes())
	})
}

func TestRealtimeDispatch(t *testing.T) {
	t.Run("events reach handlers in arrival order", func(t *testing.T) {
		srv := newRTTestServer(t)
		rt := newTestRealtime(t, srv)
		require.NoError(t, rt.Connect(context.Background()))

		var mu sync.Mutex
		var bodies []string
		rt.OnPrivateMessage(func(w WireMessage) {
			mu.Lock()
			bodies = append(bodies, w.Body)
			mu.Unlock()
		})

		for _, body := range []string{"one", "two", "three", "four"} {
			srv.push(t, "receive_private_message", WireMessage{
				Author: Author{DisplayName: "Bob"}, Body: body, SentAt: "3:00:00 PM",
			})
		}

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(bodies) == 4
		}, time.Second, 5*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"one", "two", "three", "four"}, bodies)
	})

	t.Run("typed handlers decode their payloads", func(t *testing.T) {
		srv := newRTTestServer(t)
		rt := newTestRealtime(t, srv)
		require.NoError(t, rt.Connect(context.Background()))

		typingCh := make(chan TypingEvent, 1)
		statusCh := make(chan StatusChangeEvent, 1)
		joinCh := make(chan RoomNoticeEvent, 1)
		rt.OnTyping(func(ev TypingEvent) { typingCh <- ev })
		rt.OnStatusChange(func(ev StatusChangeEvent) { statusCh <- ev })
		rt.OnJoinNotice(func(ev RoomNoticeEvent) { joinCh <- ev })

		srv.push(t, "user_typing", TypingEvent{Identity: "bob@example.com", DisplayName: "Bob", IsTyping: true})
		srv.push(t, "user_status_change", StatusChangeEvent{Identity: "bob@example.com", Status: "online"})
		srv.push(t, "joining_message", RoomNoticeEvent{RoomID: "room-1", DisplayName: "Bob"})

		select {
		case ev := <-typingCh:
			assert.True(t, ev.IsTyping)
			assert.Equal(t, "Bob", ev.DisplayName)
		case <-time.After(time.Second):
			t.Fatal("typing event not delivered")
		}
		select {
		case ev := <-statusCh:
			assert.Equal(t, "online", ev.Status)
		case <-time.After(time.Second):
			t.Fatal("status event not delivered")
		}
		select {
		case ev := <-joinCh:
			assert.Equal(t, "room-1", ev.RoomID)
		case <-time.After(time.Second):
			t.Fatal("join notice not delivered")
		}
	})

	t.Run("unsubscribed handler receives nothing further", func(t *testing.T) {
		srv := newRTTestServer(t)
		rt := newTestRealtime(t, srv)
		require.NoError(t, rt.Connect(context.Background()))

		var mu sync.Mutex
		var count int
		kept := make(chan struct{}, 4)
		unsub := rt.OnRoomMessage(func(WireMessage) {
			mu.Lock()
			count++
			mu.Unlock()
		})
		rt.OnRoomMessage(func(WireMessage) { kept <- struct{}{} })

		srv.push(t, "receive_room_message", WireMessage{Author: Author{DisplayName: "Bob"}, Body: "before", SentAt: "3:00 PM"})
		<-kept

		unsub()
		unsub() // safe to call twice

		srv.push(t, "receive_room_message", WireMessage{Author: Author{DisplayName: "Bob"}, Body: "after", SentAt: "3:01 PM"})
		<-kept

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, count, "handler must not fire after unsubscribe")
	})

	t.Run("generic handler sees raw payload", func(t *testing.T) {
		srv := newRTTestServer(t)
		rt := newTestRealtime(t, srv)
		require.NoError(t, rt.Connect(context.Background()))

		ch := make(chan json.RawMessage, 1)
		rt.On("server_announcement", func(eventType string, payload json.RawMessage) {
			ch <- payload
		})

		srv.push(t, "server_announcement", map[string]string{"text": "maintenance at noon"})

		select {
		case payload := <-ch:
			var body map[string]string
			require.NoError(t, json.Unmarshal(payload, &body))
			assert.Equal(t, "maintenance at noon", body["text"])
		case <-time.After(time.Second):
			t.Fatal("generic event not delivered")
		}
	})
}
