package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/satchel-app/satchel/internal/envelope"
	"github.com/satchel-app/satchel/internal/ui"
)

var noteCmd = &cobra.Command{
	Use:     "note",
	GroupID: "data",
	Short:   "Manage notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		body, _ := cmd.Flags().GetString("body")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		var note envelope.Note
		err := updateRecord(func(p *envelope.Payload) error {
			now := time.Now().UTC()
			note = envelope.Note{
				ID:        envelope.NewNoteID(),
				Title:     title,
				Body:      body,
				Tags:      tags,
				CreatedAt: now,
				UpdatedAt: now,
			}
			p.Notes = append(p.Notes, note)
			return nil
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s Added %s: %s\n", ui.RenderPass("✓"), note.ID, note.Title)
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, _ := cmd.Flags().GetString("tag")

		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		payload, err := a.loadPayload(context.Background())
		if err != nil {
			return err
		}

		var shown int
		for _, note := range payload.Notes {
			if tag != "" && !hasTag(note.Tags, tag) {
				continue
			}
			shown++

			line := fmt.Sprintf("%s  %s", note.Title, ui.RenderFaint(note.ID))
			if len(note.Tags) > 0 {
				line += "  " + ui.RenderAccent("#"+strings.Join(note.Tags, " #"))
			}
			fmt.Println(line)
		}

		if shown == 0 {
			fmt.Println("No notes. Add one with: satchel note add <title>")
		}
		return nil
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a note's body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		payload, err := a.loadPayload(context.Background())
		if err != nil {
			return err
		}

		for _, note := range payload.Notes {
			if note.ID == args[0] || strings.HasPrefix(note.ID, args[0]) {
				fmt.Println(ui.RenderAccent(note.Title))
				if len(note.Tags) > 0 {
					fmt.Println(ui.RenderFaint("#" + strings.Join(note.Tags, " #")))
				}
				if note.Body != "" {
					fmt.Println()
					fmt.Println(note.Body)
				}
				return nil
			}
		}
		return fmt.Errorf("no note with ID %q", args[0])
	},
}

var noteRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var title string
		err := updateRecord(func(p *envelope.Payload) error {
			for i := range p.Notes {
				if p.Notes[i].ID == args[0] || strings.HasPrefix(p.Notes[i].ID, args[0]) {
					title = p.Notes[i].Title
					p.Notes = append(p.Notes[:i], p.Notes[i+1:]...)
					return nil
				}
			}
			return fmt.Errorf("no note with ID %q", args[0])
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s Removed: %s\n", ui.RenderPass("✓"), title)
		return nil
	},
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func init() {
	noteAddCmd.Flags().StringP("body", "b", "", "note body")
	noteAddCmd.Flags().StringSliceP("tag", "t", nil, "tag (repeatable)")

	noteListCmd.Flags().String("tag", "", "only notes with this tag")

	noteCmd.AddCommand(noteAddCmd, noteListCmd, noteShowCmd, noteRemoveCmd)
	rootCmd.AddCommand(noteCmd)
}
