//go:build integration

package zenwhisper_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	zenwhisper "github.com/zenwhisper/zenwhisper-go"
)

// helpers ---------------------------------------------------------------

func testBaseURL(t *testing.T) string {
	t.Helper()
	base := os.Getenv("ZENWHISPER_BASE_URL_TEST")
	if base == "" {
		t.Fatal("ZENWHISPER_BASE_URL_TEST environment variable is required")
	}
	return base
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@integration.test", prefix, time.Now().UnixNano())
}

// signupClient creates a fresh throwaway account and returns an authed
// client plus its identity.
func signupClient(t *testing.T, name string) (*zenwhisper.Client, zenwhisper.Identity) {
	t.Helper()
	client := zenwhisper.NewClient("", zenwhisper.WithBaseURL(testBaseURL(t)))

	email := uniqueEmail(name)
	result, err := client.Auth().Signup(context.Background(), &zenwhisper.SignupOptions{
		Email:       email,
		DisplayName: name,
		Password:    "integration-pass-1",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if !result.OK {
		t.Fatalf("signup rejected: %v", result.Error)
	}

	var session zenwhisper.SessionData
	if err := result.Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	client.SetToken(session.Token)

	t.Cleanup(func() {
		client.Auth().DeleteAccount(context.Background())
	})
	return client, zenwhisper.Identity{Email: email, DisplayName: name}
}

// =======================================================================
// Group 1: Auth and directory
// =======================================================================

func TestIntegrationAuth(t *testing.T) {
	client, id := signupClient(t, "IntAuth")

	result, err := client.Auth().Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if !result.OK {
		t.Fatalf("me rejected: %v", result.Error)
	}

	var profile zenwhisper.UserProfile
	if err := result.Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Email != id.Email {
		t.Errorf("profile email = %q, want %q", profile.Email, id.Email)
	}
}

// =======================================================================
// Group 2: Realtime direct chat end to end
// =======================================================================

func TestIntegrationDirectChat(t *testing.T) {
	clientA, idA := signupClient(t, "IntAlice")
	clientB, idB := signupClient(t, "IntBob")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rtA := clientA.Realtime(&zenwhisper.RealtimeConfig{Identity: idA})
	rtB := clientB.Realtime(&zenwhisper.RealtimeConfig{Identity: idB})
	if err := rtA.Connect(ctx); err != nil {
		t.Fatalf("connect A: %v", err)
	}
	defer rtA.Disconnect()
	if err := rtB.Connect(ctx); err != nil {
		t.Fatalf("connect B: %v", err)
	}
	defer rtB.Disconnect()

	sessA, err := zenwhisper.OpenDirectChat(ctx, clientA, rtA, idB.Email)
	if err != nil {
		t.Fatalf("open chat A: %v", err)
	}
	defer sessA.Close(ctx)
	sessB, err := zenwhisper.OpenDirectChat(ctx, clientB, rtB, idA.Email)
	if err != nil {
		t.Fatalf("open chat B: %v", err)
	}
	defer sessB.Close(ctx)

	got := make(chan zenwhisper.Message, 1)
	sessB.SetOnMessage(func(m zenwhisper.Message) { got <- m })

	body := fmt.Sprintf("integration ping %d", time.Now().UnixNano())
	if _, err := sessA.Send(ctx, body); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case m := <-got:
		if m.Body != body {
			t.Errorf("received body = %q, want %q", m.Body, body)
		}
		if m.IsOwn {
			t.Error("peer message marked as own")
		}
	case <-time.After(15 * time.Second):
		t.Fatal("message not delivered to peer")
	}

	// The sender's buffer must hold exactly one copy despite the echo.
	time.Sleep(2 * time.Second)
	count := 0
	for _, m := range sessA.Messages() {
		if m.Body == body {
			count++
		}
	}
	if count != 1 {
		t.Errorf("sender sees %d copies of its message, want 1", count)
	}
}
