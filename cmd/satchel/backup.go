package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/satchel-app/satchel/internal/engine"
	"github.com/satchel-app/satchel/internal/ui"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	GroupID: "sync",
	Short:   "Archive the current record to the cloud",
	Long: `Write a timestamped copy of the current record to the Backups folder
in cloud storage. Backups are never touched by sync; they exist so a bad
merge or accidental reset can be recovered by hand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.eng.Backup(context.Background())
		if err != nil {
			if errors.Is(err, engine.ErrCloudDisabled) {
				return fmt.Errorf("cloud sync is not enabled; run 'satchel cloud enable' first")
			}
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("%s Backed up to %s\n", ui.RenderPass("✓"), name)
		return nil
	},
}

var backupsCmd = &cobra.Command{
	Use:     "backups",
	GroupID: "sync",
	Short:   "List cloud backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.eng.ListBackups(context.Background())
		if err != nil {
			if errors.Is(err, engine.ErrCloudDisabled) {
				return fmt.Errorf("cloud sync is not enabled; run 'satchel cloud enable' first")
			}
			return err
		}

		if len(files) == 0 {
			fmt.Println("No backups yet. Create one with: satchel backup")
			return nil
		}

		sort.Slice(files, func(i, j int) bool {
			return files[i].Name > files[j].Name
		})
		for _, file := range files {
			fmt.Printf("%s  %s\n", file.Name, ui.RenderFaint(fmt.Sprintf("%d bytes", file.Size)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd, backupsCmd)
}
