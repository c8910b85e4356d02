package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	zenwhisper "github.com/zenwhisper/zenwhisper-go"
)

var usersJSONOutput bool

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.Flags().BoolVar(&usersJSONOutput, "json", false, "Output raw JSON")
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List registered users",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getAuthedClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Users().List(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		if usersJSONOutput {
			fmt.Println(string(result.Data))
			return nil
		}

		var users []zenwhisper.UserProfile
		if err := result.Decode(&users); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		if len(users) == 0 {
			fmt.Println("No other users yet.")
			return nil
		}

		for _, u := range users {
			marker := " "
			if u.IsOnline {
				marker = "*"
			}
			fmt.Printf("%s %-24s %s\n", marker, u.DisplayName, u.Email)
		}
		fmt.Println("\n(* = online)")
		return nil
	},
}
