package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	zenwhisper "github.com/zenwhisper/zenwhisper-go"
)

var (
	roomsJSONOutput        bool
	roomsCreateDescription string
)

func init() {
	rootCmd.AddCommand(roomsCmd)
	roomsCmd.AddCommand(roomsListCmd)
	roomsCmd.AddCommand(roomsCreateCmd)

	roomsListCmd.Flags().BoolVar(&roomsJSONOutput, "json", false, "Output raw JSON")
	roomsCreateCmd.Flags().StringVar(&roomsCreateDescription, "description", "", "Room description")
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Browse and create group rooms",
}

var roomsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available rooms",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getAuthedClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Rooms().List(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		if roomsJSONOutput {
			fmt.Println(string(result.Data))
			return nil
		}

		var rooms []zenwhisper.Room
		if err := result.Decode(&rooms); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		if len(rooms) == 0 {
			fmt.Println("No rooms yet. Create one with 'zenwhisper rooms create <name>'.")
			return nil
		}

		for _, r := range rooms {
			fmt.Printf("  %-16s %-24s %s\n", r.ID, r.Name, r.Description)
		}
		return nil
	},
}

var roomsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getAuthedClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Rooms().Create(ctx, &zenwhisper.CreateRoomOptions{
			Name:        args[0],
			Description: roomsCreateDescription,
		})
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		var room zenwhisper.Room
		if err := result.Decode(&room); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		fmt.Printf("Created room %q (id: %s).\n", room.Name, room.ID)
		return nil
	},
}
