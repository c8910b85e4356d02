package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	zenwhisper "github.com/zenwhisper/zenwhisper-go"
)

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(roomCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat <peer-email>",
	Short: "Open an interactive direct chat",
	Long:  "Open a live direct chat with another user.\nType messages and press enter to send; /quit leaves the chat.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg := getAuthedClient()
		return runInteractive(client, cfg, func(ctx context.Context, rt *zenwhisper.RealtimeClient) (*zenwhisper.ChatSession, error) {
			return zenwhisper.OpenDirectChat(ctx, client, rt, args[0])
		})
	},
}

var roomCmd = &cobra.Command{
	Use:   "room <room-id>",
	Short: "Join an interactive room chat",
	Long:  "Join a live group room.\nType messages and press enter to send; /quit leaves the room.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg := getAuthedClient()
		return runInteractive(client, cfg, func(ctx context.Context, rt *zenwhisper.RealtimeClient) (*zenwhisper.ChatSession, error) {
			return zenwhisper.OpenRoom(ctx, client, rt, args[0])
		})
	},
}

// runInteractive drives one live conversation over stdin/stdout.
func runInteractive(client *zenwhisper.Client, cfg *Config,
	open func(context.Context, *zenwhisper.RealtimeClient) (*zenwhisper.ChatSession, error)) error {

	ctx := context.Background()
	rt := client.Realtime(&zenwhisper.RealtimeConfig{Identity: identityFromConfig(cfg)})

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := rt.Connect(connectCtx); err != nil {
		return fmt.Errorf("cannot connect: %w", err)
	}
	defer rt.Disconnect()

	disconnected := make(chan struct{})
	rt.OnDisconnected(func(err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nConnection lost: %v\n", err)
			close(disconnected)
		}
	})

	session, err := open(ctx, rt)
	if err != nil {
		return fmt.Errorf("cannot open conversation: %w", err)
	}
	defer session.Close(ctx)

	if err := session.HistoryErr(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load history (%v). Live messages only.\n", err)
	}
	for _, m := range session.Messages() {
		printMessage(m)
	}

	session.SetOnMessage(func(m zenwhisper.Message) {
		printMessage(m)
	})

	fmt.Println("--- connected, type a message (/quit to leave) ---")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-disconnected:
			// No automatic reconnect; rerun the command to rejoin.
			return fmt.Errorf("disconnected")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				continue
			case line == "/quit":
				return nil
			case line == "/who":
				typing := session.TypingPeers()
				if len(typing) == 0 {
					fmt.Println("(nobody is typing)")
				} else {
					fmt.Printf("typing: %s\n", strings.Join(typing, ", "))
				}
			default:
				m, err := session.Send(ctx, line)
				if err != nil {
					fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
					continue
				}
				// The optimistic append renders immediately; the socket
				// echo is deduplicated and never reprinted.
				printMessage(m)
			}
		}
	}
}

func printMessage(m zenwhisper.Message) {
	switch {
	case m.IsSystemNotice:
		fmt.Printf("  -- %s --\n", m.Body)
	case m.IsOwn:
		fmt.Printf("[%s] you: %s\n", m.SentAt, m.Body)
	default:
		fmt.Printf("[%s] %s: %s\n", m.SentAt, m.Author.DisplayName, m.Body)
	}
}
