package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	zenwhisper "github.com/zenwhisper/zenwhisper-go"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current configuration and account status",
	Long:  "Display the stored configuration, check whether the session token is expired, and fetch the live profile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Print config summary.
		fmt.Println("Configuration:")
		fmt.Printf("  Base URL:  %s\n", valueOrDefault(cfg.Default.BaseURL, zenwhisper.DefaultBaseURL))

		fmt.Println()
		fmt.Println("Auth:")
		if cfg.Auth.Email != "" {
			fmt.Printf("  Email:     %s\n", cfg.Auth.Email)
			fmt.Printf("  Name:      %s\n", cfg.Auth.DisplayName)
		} else {
			fmt.Println("  Email:     (not logged in)")
		}

		// Check token expiry.
		tokenStatus := "none"
		if cfg.Auth.Token != "" {
			if cfg.Auth.TokenExpires != "" {
				expires, err := time.Parse(time.RFC3339, cfg.Auth.TokenExpires)
				if err == nil {
					if time.Now().Before(expires) {
						tokenStatus = fmt.Sprintf("valid (expires %s)", expires.Format(time.RFC3339))
					} else {
						tokenStatus = fmt.Sprintf("EXPIRED (expired %s)", expires.Format(time.RFC3339))
					}
				} else {
					tokenStatus = fmt.Sprintf("present (unparseable expiry: %s)", cfg.Auth.TokenExpires)
				}
			} else {
				tokenStatus = maskToken(cfg.Auth.Token) + " (no expiry set)"
			}
		}
		fmt.Printf("  Token:     %s\n", tokenStatus)

		// If logged in, fetch the live profile.
		if cfg.Auth.Token != "" {
			fmt.Println()
			fmt.Println("Live status:")

			client := zenwhisper.NewClient(cfg.Auth.Token, clientOptions(cfg)...)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			result, err := client.Auth().Me(ctx)
			if err != nil {
				fmt.Printf("  Error fetching profile: %v\n", err)
				return nil
			}
			if !result.OK {
				if result.Error != nil {
					fmt.Printf("  API error: %s: %s\n", result.Error.Code, result.Error.Message)
				} else {
					fmt.Println("  API returned an error (no details)")
				}
				return nil
			}

			var profile zenwhisper.UserProfile
			if err := result.Decode(&profile); err != nil {
				fmt.Printf("  Error decoding response: %v\n", err)
				return nil
			}

			fmt.Printf("  Email:        %s\n", profile.Email)
			fmt.Printf("  Display Name: %s\n", profile.DisplayName)
			fmt.Printf("  Member Since: %s\n", valueOrDefault(profile.CreatedAt, "(unknown)"))
		}

		return nil
	},
}

// maskToken shows the first 8 and last 4 characters of a token.
func maskToken(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:8] + "..." + token[len(token)-4:]
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
