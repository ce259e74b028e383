package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/satchel-app/satchel/internal/config"
	"github.com/satchel-app/satchel/internal/engine"
	"github.com/satchel-app/satchel/internal/envelope"
	"github.com/satchel-app/satchel/internal/remote"
	"github.com/satchel-app/satchel/internal/session"
	"github.com/satchel-app/satchel/internal/store"
	"github.com/satchel-app/satchel/internal/ui"
)

// cloudMarkerFile marks that the user enabled cloud mode; its presence
// makes every command attempt to re-enter cloud mode on startup.
const cloudMarkerFile = "cloud_enabled"

// app bundles the wired-up components a command needs.
type app struct {
	cfg *config.Config
	st  *store.Store
	eng *engine.Engine
	dir string
}

// newApp loads configuration and constructs the engine. If the cloud
// marker is present, cloud mode is re-enabled; an auth failure degrades
// to local mode with a warning instead of failing the command.
func newApp(logger *log.Logger) (*app, error) {
	dir := satchelDir
	if dir == "" {
		dir = config.DefaultDir()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	sess := session.NewFile(cfg.TokenFile)
	rc := remote.NewHTTPClient(remote.Config{
		BaseURL:       cfg.Remote.BaseURL,
		AppFolderName: cfg.Remote.AppFolder,
	}, sess)

	if logger == nil {
		out := io.Discard
		if verbose {
			out = os.Stderr
		}
		logger = log.New(out, "[engine] ", log.LstdFlags)
	}

	eng, err := engine.New(st, rc, sess, &engine.Config{
		DebounceInterval: cfg.Sync.DebounceInterval,
		Logger:           logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &app{cfg: cfg, st: st, eng: eng, dir: dir}

	if a.cloudConfigured() {
		if err := eng.EnableCloud(context.Background()); err != nil {
			switch {
			case errors.Is(err, engine.ErrNoCredentials), errors.Is(err, remote.ErrUnauthorized):
				fmt.Fprintf(os.Stderr, "%s Cloud session expired; working locally. Run 'satchel cloud enable' to sign back in.\n",
					ui.RenderWarn("⚠"))
			default:
				fmt.Fprintf(os.Stderr, "%s Cloud unreachable (%v); working locally.\n", ui.RenderWarn("⚠"), err)
			}
		}
	}

	return a, nil
}

// Close flushes pending writes and releases resources.
func (a *app) Close() {
	if err := a.eng.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderWarn("⚠"), err)
	}
	a.st.Close()
}

func (a *app) cloudMarkerPath() string {
	return filepath.Join(a.dir, cloudMarkerFile)
}

func (a *app) cloudConfigured() bool {
	_, err := os.Stat(a.cloudMarkerPath())
	return err == nil
}

func (a *app) setCloudConfigured(on bool) error {
	if on {
		if err := os.MkdirAll(a.dir, 0o755); err != nil {
			return err
		}
		return os.WriteFile(a.cloudMarkerPath(), []byte("1\n"), 0o600)
	}
	err := os.Remove(a.cloudMarkerPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// loadPayload returns the current payload, empty if no record exists.
func (a *app) loadPayload(ctx context.Context) (envelope.Payload, error) {
	env, err := a.eng.Load(ctx)
	if err != nil {
		return envelope.Payload{}, err
	}
	if env == nil {
		return envelope.Payload{}, nil
	}
	return env.Payload, nil
}

// updateRecord loads the payload, applies fn, and saves immediately.
func updateRecord(fn func(p *envelope.Payload) error) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	payload, err := a.loadPayload(ctx)
	if err != nil {
		return err
	}
	if err := fn(&payload); err != nil {
		return err
	}
	_, err = a.eng.Save(ctx, payload, engine.SaveOptions{Immediate: true})
	return err
}
