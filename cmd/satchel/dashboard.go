package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satchel-app/satchel/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Start the real-time WebSocket dashboard",
	Long: `Start a WebSocket server that broadcasts sync activity in real time.

Messages include:
- sync_event: a save landed, a conflict was detected, the mode changed
- stats: current record statistics (tasks, notes, ledger entries)

Example usage:
  satchel dashboard               # default port from config (8440)
  satchel dashboard --port 9000

Connect with a WebSocket client:
  ws://localhost:8440/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Dashboard.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
		})
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}

		handler := dashboard.NewHandler(server, a.eng, log.New(os.Stderr, "[dashboard] ", log.LstdFlags))
		handler.Attach(context.Background())
		defer handler.Detach()

		fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		return server.Stop()
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8440, "Port to listen on")

	rootCmd.AddCommand(dashboardCmd)
}
