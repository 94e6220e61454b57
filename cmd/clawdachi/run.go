package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashureev/clawdachi/internal/actor"
	"github.com/ashureev/clawdachi/internal/api"
	"github.com/ashureev/clawdachi/internal/config"
	"github.com/ashureev/clawdachi/internal/monitor"
	"github.com/ashureev/clawdachi/internal/pet"
	"github.com/ashureev/clawdachi/internal/session"
	"github.com/ashureev/clawdachi/internal/store"
	"github.com/ashureev/clawdachi/internal/tui"
)

type runOptions struct {
	tui      bool
	port     int
	noRemote bool
	noHooks  bool
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the companion",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Settings.RemotePort = opts.port
			}
			if opts.noRemote {
				cfg.Settings.RemoteEnabled = false
			}
			if opts.noHooks {
				cfg.Settings.HooksEnabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runCompanion(cmd.Context(), cfg, opts.tui)
		},
	}
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "draw the companion in the terminal")
	cmd.Flags().IntVar(&opts.port, "port", api.DefaultPort, "remote listener port")
	cmd.Flags().BoolVar(&opts.noRemote, "no-remote", false, "disable the remote listener")
	cmd.Flags().BoolVar(&opts.noHooks, "no-hooks", false, "disable both status file and remote ingestion")
	return cmd
}

func runCompanion(parent context.Context, cfg *config.Config, withTUI bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	if withTUI {
		f, err := openLogFile(cfg)
		if err != nil {
			return err
		}
		defer f.Close()
		logger = setupLogger(f, cfg.SlogLevel())
	}

	runID := uuid.NewString()
	logger.Info("Starting companion",
		"run_id", runID,
		"home", cfg.Home,
		"hooks_enabled", cfg.Settings.HooksEnabled,
		"remote_enabled", cfg.Settings.RemoteEnabled,
		"tui", withTUI)

	emitter := session.NewEmitter(session.DefaultQueueSize, logger)

	// History is diagnostic; a broken database must not keep the pet down.
	var history pet.HistoryRecorder
	if cfg.History.Enabled {
		repo, err := store.NewSQLite(cfg.History.DBPath)
		if err != nil {
			logger.Warn("[HISTORY] Failed to open database, history disabled", "path", cfg.History.DBPath, "error", err)
		} else {
			defer func() {
				if closeErr := repo.Close(); closeErr != nil {
					logger.Error("[HISTORY] Failed to close database", "error", closeErr)
				}
			}()
			recorder := store.NewRecorder(repo, cfg.History.QueueSize, logger)
			defer func() { _ = recorder.Close() }()
			store.StartRetentionWorker(ctx, repo, cfg.History.Retention, 0, logger)
			history = recorder
		}
	}

	actors := actor.Multi{actor.NewLog(logger)}
	var screen *tui.Actor
	if withTUI {
		screen = tui.NewActor()
		actors = append(actors, screen)
	}

	var wg sync.WaitGroup
	if cfg.FeedURL != "" {
		feed := actor.NewFeed(cfg.FeedURL, 0, logger)
		actors = append(actors, feed)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feed.Run(ctx); err != nil {
				logger.Error("[FEED] Stopped", "error", err)
			}
		}()
	}

	p := pet.New(pet.Config{
		FrameInterval: cfg.FrameInterval,
		RunID:         runID,
		History:       history,
		Logger:        logger,
	}, actors, emitter.C())

	if cfg.Settings.HooksEnabled {
		mon := monitor.New(monitor.Config{
			Path:           cfg.StatusFile,
			SettleWindow:   cfg.SettleWindow,
			DebounceWindow: cfg.DebounceWindow,
			Logger:         logger,
		}, emitter)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mon.Run(ctx); err != nil {
				logger.Error("[MONITOR] Watcher stopped", "path", mon.Path(), "error", err)
			}
		}()
	}

	var listener *api.Listener
	if cfg.Settings.HooksEnabled && cfg.Settings.RemoteEnabled {
		handler := api.NewStateHandler(emitter, time.Now, logger)
		listener = api.NewListener(cfg.Settings.RemoteHost, cfg.Settings.RemotePort, api.NewRouter(handler, logger), logger)
		if err := listener.Start(); err != nil {
			var inUse *api.PortInUseError
			if errors.As(err, &inUse) {
				logger.Warn("[REMOTE] Port already in use, remote updates disabled", "addr", inUse.Addr)
			} else {
				logger.Error("[REMOTE] Failed to start listener", "error", err)
			}
			listener = nil
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil {
			logger.Error("[PET] Frame loop failed", "error", err)
		}
	}()

	var runErr error
	if withTUI {
		runErr = tui.Run(ctx, screen, p.Poke, "clawdachi")
	} else {
		<-ctx.Done()
	}
	stop()

	logger.Info("Shutting down gracefully...")

	if listener != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := listener.Shutdown(shutdownCtx); err != nil {
			logger.Error("[REMOTE] Listener forced to shutdown", "error", err)
		}
		cancel()
	}
	wg.Wait()

	logger.Info("Companion stopped", "run_id", runID)
	return runErr
}
