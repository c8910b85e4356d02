package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	zenwhisper "github.com/zenwhisper/zenwhisper-go"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyChatCmd)
	historyCmd.AddCommand(historyRoomCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored message history",
}

var historyChatCmd = &cobra.Command{
	Use:   "chat <peer-email>",
	Short: "Show the history of a direct chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg := getAuthedClient()
		chatID := zenwhisper.DirectChatID(cfg.Auth.Email, args[0])

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		msgs, err := client.Messages().PrivateHistory(ctx, chatID)
		if err != nil {
			return fmt.Errorf("history fetch failed: %w", err)
		}
		printHistory(msgs)
		return nil
	},
}

var historyRoomCmd = &cobra.Command{
	Use:   "room <room-id>",
	Short: "Show the history of a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getAuthedClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		msgs, err := client.Messages().RoomHistory(ctx, args[0])
		if err != nil {
			return fmt.Errorf("history fetch failed: %w", err)
		}
		printHistory(msgs)
		return nil
	},
}

func printHistory(msgs []zenwhisper.WireMessage) {
	if len(msgs) == 0 {
		fmt.Println("No messages yet.")
		return
	}
	for _, m := range msgs {
		fmt.Printf("[%s] %s: %s\n", m.SentAt, m.Author.DisplayName, m.Body)
	}
}
