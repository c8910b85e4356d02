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

var (
	signupDisplayName string
	loginPassword     string
)

func init() {
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	signupCmd.Flags().StringVar(&signupDisplayName, "name", "", "Display name shown to other users")
	signupCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted when omitted)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted when omitted)")
}

// promptPassword reads a password from stdin when not supplied by flag.
func promptPassword() (string, error) {
	if loginPassword != "" {
		return loginPassword, nil
	}
	fmt.Print("Password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("cannot read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// storeSession persists the returned session in the config file.
func storeSession(session *zenwhisper.SessionData) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Auth.Token = session.Token
	cfg.Auth.Email = session.User.Email
	cfg.Auth.DisplayName = session.User.DisplayName
	cfg.Auth.TokenExpires = session.ExpiresAt
	return saveConfig(cfg)
}

var signupCmd = &cobra.Command{
	Use:   "signup <email>",
	Short: "Create a zenWhisper account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		if signupDisplayName == "" {
			return fmt.Errorf("--name is required")
		}
		password, err := promptPassword()
		if err != nil {
			return err
		}

		client := getAnonClient()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		result, err := client.Auth().Signup(ctx, &zenwhisper.SignupOptions{
			Email:       email,
			DisplayName: signupDisplayName,
			Password:    password,
		})
		if err != nil {
			return fmt.Errorf("signup failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		var session zenwhisper.SessionData
		if err := result.Decode(&session); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if err := storeSession(&session); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}

		fmt.Printf("Account created. Signed in as %s <%s>.\n", session.User.DisplayName, session.User.Email)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in to zenWhisper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		password, err := promptPassword()
		if err != nil {
			return err
		}

		client := getAnonClient()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		result, err := client.Auth().Login(ctx, &zenwhisper.LoginOptions{
			Email:    email,
			Password: password,
		})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		var session zenwhisper.SessionData
		if err := result.Decode(&session); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if err := storeSession(&session); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}

		fmt.Printf("Signed in as %s <%s>.\n", session.User.DisplayName, session.User.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Auth = ConfigAuth{}
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}
