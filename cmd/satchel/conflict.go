package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/satchel-app/satchel/internal/engine"
	"github.com/satchel-app/satchel/internal/ui"
)

var conflictCmd = &cobra.Command{
	Use:     "conflict",
	GroupID: "sync",
	Short:   "Detect and resolve a sync conflict",
	Long: `Check whether this device and the cloud have diverged, and resolve
the divergence if so.

A conflict exists only when this device's record is newer than the cloud
copy AND the contents differ. Resolution strategies:

  merge          combine both sides; where an entry exists on both,
                 this device's version wins (default)
  adopt-local    overwrite the cloud copy with this device's record
  adopt-remote   overwrite this device's record with the cloud copy

Run without --strategy in a terminal to pick interactively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategyFlag, _ := cmd.Flags().GetString("strategy")
		checkOnly, _ := cmd.Flags().GetBool("check")

		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		report, err := a.eng.DetectConflict(ctx)
		if err != nil {
			if errors.Is(err, engine.ErrCloudDisabled) {
				return fmt.Errorf("cloud sync is not enabled; run 'satchel cloud enable' first")
			}
			return err
		}

		if !report.HasConflict {
			fmt.Printf("%s No conflict; this device and the cloud agree\n", ui.RenderPass("✓"))
			return nil
		}

		fmt.Printf("%s Conflict detected\n", ui.RenderWarn("⚠"))
		if report.Local != nil {
			fmt.Printf("  this device: modified %s (%d bytes)\n",
				report.Local.LastModified.Local().Format(time.RFC1123), report.Local.Size)
		}
		if report.Remote != nil {
			fmt.Printf("  cloud copy:  modified %s (%d bytes)\n",
				report.Remote.LastModified.Local().Format(time.RFC1123), report.Remote.Size)
		}

		if checkOnly {
			return nil
		}

		strategy, err := pickStrategy(strategyFlag)
		if err != nil {
			return err
		}

		if err := a.eng.Resolve(ctx, strategy); err != nil {
			return fmt.Errorf("resolution failed: %w", err)
		}

		fmt.Printf("%s Conflict resolved (%s)\n", ui.RenderPass("✓"), strategy)
		return nil
	},
}

// pickStrategy validates the --strategy flag, prompting when it is empty
// and a terminal is attached.
func pickStrategy(flag string) (engine.Strategy, error) {
	switch engine.Strategy(flag) {
	case engine.StrategyMerge, engine.StrategyAdoptLocal, engine.StrategyAdoptRemote:
		return engine.Strategy(flag), nil
	}
	if flag != "" {
		return "", fmt.Errorf("unknown strategy %q (merge, adopt-local, adopt-remote)", flag)
	}

	if !ui.IsInteractive() {
		return "", fmt.Errorf("pass --strategy merge|adopt-local|adopt-remote to resolve")
	}

	var choice string
	prompt := huh.NewSelect[string]().
		Title("How should the conflict be resolved?").
		Options(
			huh.NewOption("Merge both sides (this device wins overlaps)", string(engine.StrategyMerge)),
			huh.NewOption("Keep this device's record", string(engine.StrategyAdoptLocal)),
			huh.NewOption("Keep the cloud copy", string(engine.StrategyAdoptRemote)),
		).
		Value(&choice)
	if err := prompt.Run(); err != nil {
		return "", err
	}
	return engine.Strategy(choice), nil
}

func init() {
	conflictCmd.Flags().String("strategy", "", "resolution strategy: merge, adopt-local, adopt-remote")
	conflictCmd.Flags().Bool("check", false, "only report, do not resolve")

	rootCmd.AddCommand(conflictCmd)
}
