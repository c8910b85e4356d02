package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	zenwhisper "github.com/zenwhisper/zenwhisper-go"
)

var (
	notesListFolder   string
	notesListJSON     bool
	notesCreateBody   string
	notesCreateFile   string
	notesCreateFolder string
	notesShowHTML     bool
)

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesCreateCmd)
	notesCmd.AddCommand(notesShowCmd)
	notesCmd.AddCommand(notesDeleteCmd)
	notesCmd.AddCommand(notesMoveCmd)
	notesCmd.AddCommand(notesFoldersCmd)

	notesListCmd.Flags().StringVar(&notesListFolder, "folder", "", "Restrict to one folder id")
	notesListCmd.Flags().BoolVar(&notesListJSON, "json", false, "Output raw JSON")
	notesCreateCmd.Flags().StringVar(&notesCreateBody, "body", "", "Note body (markdown)")
	notesCreateCmd.Flags().StringVar(&notesCreateFile, "file", "", "Read the note body from a file")
	notesCreateCmd.Flags().StringVar(&notesCreateFolder, "folder", "", "Folder id to file the note under")
	notesShowCmd.Flags().BoolVar(&notesShowHTML, "html", false, "Render the markdown body as HTML")
}

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage notes",
	Long:  "Create, list, and organize markdown notes with folders.",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getAuthedClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Notes().List(ctx, notesListFolder)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		if notesListJSON {
			fmt.Println(string(result.Data))
			return nil
		}

		var notes []zenwhisper.Note
		if err := result.Decode(&notes); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		if len(notes) == 0 {
			fmt.Println("No notes yet.")
			return nil
		}
		for _, n := range notes {
			folder := n.FolderID
			if folder == "" {
				folder = "-"
			}
			fmt.Printf("  %-16s %-12s %s\n", n.ID, folder, n.Title)
		}
		return nil
	},
}

var notesCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := notesCreateBody
		if notesCreateFile != "" {
			data, err := os.ReadFile(notesCreateFile)
			if err != nil {
				return fmt.Errorf("cannot read body file: %w", err)
			}
			body = string(data)
		}

		client, _ := getAuthedClient()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Notes().Create(ctx, &zenwhisper.NoteOptions{
			Title:    args[0],
			Body:     body,
			FolderID: notesCreateFolder,
		})
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		var note zenwhisper.Note
		if err := result.Decode(&note); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		fmt.Printf("Created note %q (id: %s).\n", note.Title, note.ID)
		return nil
	},
}

var notesShowCmd = &cobra.Command{
	Use:   "show <note-id>",
	Short: "Show a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getAuthedClient()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Notes().Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		var note zenwhisper.Note
		if err := result.Decode(&note); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		fmt.Printf("# %s\n\n", note.Title)
		if notesShowHTML {
			fmt.Print(zenwhisper.RenderMarkdown(note.Body))
		} else {
			fmt.Println(note.Body)
		}
		return nil
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <note-id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getAuthedClient()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Notes().Delete(ctx, args[0])
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}
		fmt.Println("Deleted.")
		return nil
	},
}

var notesMoveCmd = &cobra.Command{
	Use:   "move <note-id> <folder-id>",
	Short: "Move a note into a folder (use '-' to clear)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		noteID, folderID := args[0], args[1]
		if folderID == "-" {
			folderID = ""
		}

		client, _ := getAuthedClient()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Notes().MoveToFolder(ctx, noteID, folderID)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}
		fmt.Println("Moved.")
		return nil
	},
}

var notesFoldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List note folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getAuthedClient()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Notes().ListFolders(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		var folders []zenwhisper.NoteFolder
		if err := result.Decode(&folders); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if len(folders) == 0 {
			fmt.Println("No folders yet.")
			return nil
		}
		for _, f := range folders {
			fmt.Printf("  %-16s %s\n", f.ID, f.Name)
		}
		return nil
	},
}
