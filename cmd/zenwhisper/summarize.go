package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	zenwhisper "github.com/zenwhisper/zenwhisper-go"
)

var summarizeMaxSentences int

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().IntVar(&summarizeMaxSentences, "max-sentences", 0, "Cap the summary length")
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize text with the AI tool",
	Long:  "Summarize a file's contents, or stdin when no file is given.\nExample: zenwhisper summarize meeting-notes.txt",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		if len(args) == 1 {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("cannot read file: %w", err)
			}
			text = string(data)
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("cannot read stdin: %w", err)
			}
			text = string(data)
		}

		client, _ := getAuthedClient()
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		result, err := client.Summarize().Summarize(ctx, &zenwhisper.SummarizeOptions{
			Text:         text,
			MaxSentences: summarizeMaxSentences,
		})
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		var data zenwhisper.SummarizeData
		if err := result.Decode(&data); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		fmt.Println(data.Summary)
		return nil
	},
}
