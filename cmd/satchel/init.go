package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/satchel-app/satchel/internal/config"
	"github.com/satchel-app/satchel/internal/ui"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "advanced",
	Short:   "Create the satchel directory and a config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := satchelDir
		if dir == "" {
			dir = config.DefaultDir()
		}

		path, err := config.WriteTemplate(dir)
		if err != nil {
			return err
		}

		cfg := config.Default(dir)
		if err := os.MkdirAll(cfg.InboxDir, 0o755); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return err
		}

		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		fmt.Println("\nNext steps:")
		fmt.Println("  satchel task add \"my first task\"")
		fmt.Println("  satchel cloud enable      # optional cloud mirroring")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
