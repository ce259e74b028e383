package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/satchel-app/satchel/internal/daemon"
	"github.com/satchel-app/satchel/internal/dashboard"
	"github.com/satchel-app/satchel/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "advanced",
	Short:   "Run the background importer",
	Long: `Run the satchel daemon in the foreground.

The daemon watches the inbox directory for dropped item files and folds
them into the record. Any program can integrate with satchel by writing
a small JSON file into the inbox:

  echo '{"kind":"task","task":{"title":"from a script"}}' \
    > ~/.satchel/inbox/drop-$$.json

While cloud mirroring is active the daemon also syncs periodically.
Logs rotate in the configured log file. Stop with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")

		// Daemon output goes to stderr and a rotated log file.
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		logOutput := io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   a.cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})

		d, err := daemon.NewWithConfig(a.eng, a.cfg.InboxDir, &daemon.Config{
			DebounceInterval: daemon.DefaultConfig().DebounceInterval,
			SyncInterval:     a.cfg.Sync.Interval,
			Logger:           log.New(logOutput, "[daemon] ", log.LstdFlags),
		})
		if err != nil {
			return err
		}

		if withDashboard {
			server := dashboard.NewServer(&dashboard.Config{
				Port:   a.cfg.Dashboard.Port,
				Logger: log.New(logOutput, "[dashboard] ", log.LstdFlags),
			})
			if err := server.Start(); err != nil {
				return err
			}
			defer server.Stop()

			handler := dashboard.NewHandler(server, a.eng, log.New(logOutput, "[dashboard] ", log.LstdFlags))
			handler.Attach(context.Background())
			defer handler.Detach()

			fmt.Printf("%s Dashboard on ws://localhost:%d/ws\n", ui.RenderAccent("●"), a.cfg.Dashboard.Port)
		}

		fmt.Printf("%s Watching %s\n", ui.RenderAccent("●"), a.cfg.InboxDir)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return d.Start(ctx)
	},
}

func init() {
	daemonCmd.Flags().Bool("dashboard", false, "also serve the WebSocket dashboard")

	rootCmd.AddCommand(daemonCmd)
}
