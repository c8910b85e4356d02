package main

import (
	"fmt"
	"os"

	zenwhisper "github.com/zenwhisper/zenwhisper-go"
)

// clientOptions builds the shared options from config.
func clientOptions(cfg *Config) []zenwhisper.ClientOption {
	var opts []zenwhisper.ClientOption
	if cfg.Default.BaseURL != "" {
		opts = append(opts, zenwhisper.WithBaseURL(cfg.Default.BaseURL))
	}
	return opts
}

// getAnonClient creates a client without a session token (signup, login).
func getAnonClient() *zenwhisper.Client {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return zenwhisper.NewClient("", clientOptions(cfg)...)
}

// getAuthedClient creates a client with the stored session token.
func getAuthedClient() (*zenwhisper.Client, *Config) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.Token == "" {
		fmt.Fprintln(os.Stderr, "Not logged in. Run 'zenwhisper login' first.")
		os.Exit(1)
	}
	return zenwhisper.NewClient(cfg.Auth.Token, clientOptions(cfg)...), cfg
}

// identityFromConfig returns the stored session identity.
func identityFromConfig(cfg *Config) zenwhisper.Identity {
	return zenwhisper.Identity{Email: cfg.Auth.Email, DisplayName: cfg.Auth.DisplayName}
}

// apiError turns a failed Result into a readable error.
func apiError(result *zenwhisper.Result) error {
	if result.Error != nil {
		return fmt.Errorf("%s: %s", result.Error.Code, result.Error.Message)
	}
	return fmt.Errorf("request rejected by server")
}
