package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/satchel-app/satchel/internal/engine"
	"github.com/satchel-app/satchel/internal/remote"
	"github.com/satchel-app/satchel/internal/ui"
)

var cloudCmd = &cobra.Command{
	Use:     "cloud",
	GroupID: "sync",
	Short:   "Manage cloud mirroring",
}

var cloudEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn on cloud mirroring",
	Long: `Enable cloud mirroring for this device.

On first enable the two sides reconcile: if only one side has data, the
other adopts it. If both sides have diverged, run 'satchel conflict' to
resolve.

A session token is required. Pass it with --token, or run interactively
to be prompted; it is stored in the token file from the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")

		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if token != "" {
			if err := writeToken(a.cfg.TokenFile, token); err != nil {
				return err
			}
		} else if !hasToken(a.cfg.TokenFile) {
			if !ui.IsInteractive() {
				return fmt.Errorf("no session token; pass one with --token")
			}
			prompt := huh.NewInput().
				Title("Session token").
				Description("Paste the token from your satchel account page.").
				EchoMode(huh.EchoModePassword).
				Value(&token)
			if err := prompt.Run(); err != nil {
				return err
			}
			if strings.TrimSpace(token) == "" {
				return fmt.Errorf("no token entered")
			}
			if err := writeToken(a.cfg.TokenFile, token); err != nil {
				return err
			}
		}

		if a.eng.Mode() != engine.ModeCloud {
			if err := a.eng.EnableCloud(context.Background()); err != nil {
				switch {
				case errors.Is(err, engine.ErrNoCredentials), errors.Is(err, remote.ErrUnauthorized):
					return fmt.Errorf("cloud sign-in failed; check your token")
				default:
					return fmt.Errorf("failed to enable cloud mode: %w", err)
				}
			}
		}

		if err := a.setCloudConfigured(true); err != nil {
			return err
		}

		fmt.Printf("%s Cloud mirroring enabled\n", ui.RenderPass("✓"))
		return nil
	},
}

var cloudDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn off cloud mirroring",
	Long: `Disable cloud mirroring. The local record is untouched and keeps
working; the cloud copy stays as it was and is reconciled on the next
enable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		a.eng.DisableCloud()
		if err := a.setCloudConfigured(false); err != nil {
			return err
		}

		fmt.Printf("%s Cloud mirroring disabled; working locally\n", ui.RenderPass("✓"))
		return nil
	},
}

func hasToken(path string) bool {
	data, err := os.ReadFile(path)
	return err == nil && strings.TrimSpace(string(data)) != ""
}

func writeToken(path, token string) error {
	if err := os.WriteFile(path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func init() {
	cloudEnableCmd.Flags().String("token", "", "cloud session token")

	cloudCmd.AddCommand(cloudEnableCmd, cloudDisableCmd)
	rootCmd.AddCommand(cloudCmd)
}
