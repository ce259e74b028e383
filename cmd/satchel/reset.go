package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/satchel-app/satchel/internal/engine"
	"github.com/satchel-app/satchel/internal/ui"
)

var resetCmd = &cobra.Command{
	Use:     "reset",
	GroupID: "advanced",
	Short:   "Delete the record everywhere",
	Long: `Delete the record from the local store and, when cloud mirroring is
active, from cloud storage too. Backups are kept.

This cannot be undone except by restoring a backup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			if !ui.IsInteractive() {
				return fmt.Errorf("refusing to reset without --force in a non-interactive session")
			}
			var confirmed bool
			prompt := huh.NewConfirm().
				Title("Delete all satchel data?").
				Description("Tasks, notes, and ledger entries will be removed everywhere.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(&confirmed)
			if err := prompt.Run(); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Cancelled")
				return nil
			}
		}

		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		cloud := a.eng.Mode() == engine.ModeCloud
		if err := a.eng.Reset(context.Background()); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}

		if cloud {
			fmt.Printf("%s Record deleted locally and in the cloud\n", ui.RenderPass("✓"))
		} else {
			fmt.Printf("%s Record deleted locally\n", ui.RenderPass("✓"))
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("force", false, "skip confirmation")

	rootCmd.AddCommand(resetCmd)
}
