package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	satchelDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "satchel",
	Short: "Personal data keeper with cloud mirroring",
	Long: `Satchel keeps your tasks, notes, and spending ledger in a single
local record, and optionally mirrors it to cloud storage.

Everything works offline. When cloud sync is enabled, every save lands
locally first and is pushed to the cloud shortly after; if the cloud is
unreachable your data is still safe on disk.

Start with:
  satchel init                  # create ~/.satchel and a config file
  satchel task add "buy milk"   # add your first task
  satchel cloud enable          # turn on cloud mirroring`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&satchelDir, "dir", "", "satchel home directory (default ~/.satchel)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine activity to stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data commands:"},
		&cobra.Group{ID: "sync", Title: "Sync commands:"},
		&cobra.Group{ID: "advanced", Title: "Advanced commands:"},
	)
}
