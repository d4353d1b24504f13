package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	v1 "github.com/vmunix/prunarr/internal/api/v1"
	"github.com/vmunix/prunarr/internal/config"
	"github.com/vmunix/prunarr/internal/engine"
	"github.com/vmunix/prunarr/internal/events"
	"github.com/vmunix/prunarr/internal/integration"
	"github.com/vmunix/prunarr/internal/migrations"
	"github.com/vmunix/prunarr/internal/protection"
	"github.com/vmunix/prunarr/internal/queue"
	"github.com/vmunix/prunarr/internal/rules"
	"github.com/vmunix/prunarr/internal/scheduler"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func runServer(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return &config.ConfigError{Path: configPath, Errors: errs}
	}

	// Create logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Run migrations
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// === Stores ===
	ruleStore := rules.NewStore(db)
	queueStore := queue.NewStore(db)
	protStore := protection.NewStore(db)
	eventLog := events.NewEventLog(db)
	bus := events.NewBus(eventLog, logger)
	defer func() { _ = bus.Close() }()

	// === Clients (optional - nil if not configured) ===
	var plex *integration.PlexClient
	if cfg.Plex != nil {
		plex = integration.NewPlexClient(cfg.Plex.URL, cfg.Plex.Token, logger)
	}
	var sonarr *integration.SonarrClient
	if cfg.Sonarr != nil {
		sonarr = integration.NewSonarrClient(cfg.Sonarr.URL, cfg.Sonarr.APIKey, logger)
	}
	var radarr *integration.RadarrClient
	if cfg.Radarr != nil {
		radarr = integration.NewRadarrClient(cfg.Radarr.URL, cfg.Radarr.APIKey, logger)
	}
	var overseerr *integration.OverseerrClient
	if cfg.Overseerr != nil {
		overseerr = integration.NewOverseerrClient(cfg.Overseerr.URL, cfg.Overseerr.APIKey, logger)
	}

	// Interface views keep typed-nil pointers out of the wiring.
	var server integration.MediaServer
	if plex != nil {
		server = plex
	}
	var tv, movie integration.Manager
	if sonarr != nil {
		tv = sonarr
	}
	if radarr != nil {
		movie = radarr
	}
	var requests integration.Requests
	if overseerr != nil {
		requests = overseerr
	}

	// === Protection ===
	var guard *protection.Calculator
	var historySync *protection.HistorySync
	var redownload *protection.RedownloadScheduler
	if cfg.Protection.Enabled {
		protCfg := cfg.ProtectionRuntime()
		tracker := protection.NewTracker(protStore, protCfg)
		guard = protection.NewCalculator(protStore, tracker, requests, protCfg, logger)
		lookback := time.Duration(protCfg.ActiveViewerDays) * 24 * time.Hour
		historySync = protection.NewHistorySync(server, protStore, lookback, logger)
		if cfg.Redownload.Enabled && tv != nil {
			redownload = protection.NewRedownloadScheduler(
				protStore, tracker, server, tv, bus, cfg.RedownloadRuntime(), logger)
		}
	}

	// === Engine ===
	pipeline := engine.NewPipeline(queueStore, server, tv, movie, requests, bus,
		cfg.Queue.DefaultBufferDays, logger)
	statusStore := engine.NewStatusStore(time.Hour)
	ruleEngine := engine.New(ruleStore, pipeline, server, statusStore, bus, logger)
	sweeper := engine.NewSweeper(queueStore, ruleStore, pipeline, guard, bus,
		cfg.Queue.RetentionDays, logger)

	// === Scheduler ===
	rulesSched, sweepSched, protSched, redlSched := cfg.Schedules()
	sched := scheduler.New(logger)

	if err := sched.Add(scheduler.Job{
		Name:     "rules",
		Schedule: rulesSched,
		Run: func(ctx context.Context) error {
			_, err := ruleEngine.RunAll(ctx, cfg.Queue.DryRun)
			if err == engine.ErrNoActiveRules {
				return nil
			}
			return err
		},
	}); err != nil {
		return fmt.Errorf("schedule rules: %w", err)
	}

	if err := sched.Add(scheduler.Job{
		Name:     "sweep",
		Schedule: sweepSched,
		Run: func(ctx context.Context) error {
			if _, err := sweeper.Sweep(ctx); err != nil {
				return err
			}
			if _, err := sweeper.Prune(ctx); err != nil {
				return err
			}
			_, err := eventLog.Prune(time.Duration(cfg.Queue.RetentionDays) * 24 * time.Hour)
			return err
		},
	}); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	if guard != nil {
		if err := sched.Add(scheduler.Job{
			Name:     "protection",
			Schedule: protSched,
			Run: func(ctx context.Context) error {
				if _, err := historySync.Sync(ctx); err != nil {
					logger.Error("history sync failed", "error", err)
				}
				if _, err := guard.Run(ctx, false); err != nil {
					return err
				}
				// A velocity jump advances due dates; check redownloads early
				// instead of waiting for the next cycle.
				if redownload != nil {
					changed, err := redownload.CheckVelocityChanges(ctx)
					if err != nil {
						return err
					}
					if changed {
						return redownload.Run(ctx)
					}
				}
				return nil
			},
		}); err != nil {
			return fmt.Errorf("schedule protection: %w", err)
		}
	}

	if redownload != nil {
		if err := sched.Add(scheduler.Job{
			Name:     "redownload",
			Schedule: redlSched,
			Run:      redownload.Run,
		}); err != nil {
			return fmt.Errorf("schedule redownload: %w", err)
		}
	}

	// === HTTP Setup ===
	mux := http.NewServeMux()
	api := v1.New(v1.Deps{
		Rules:      ruleStore,
		Queue:      queueStore,
		Engine:     ruleEngine,
		Sweeper:    sweeper,
		Guard:      guard,
		ProtStore:  protStore,
		Redownload: redownload,
		EventLog:   eventLog,
		Version:    version,
	})
	api.RegisterRoutes(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting",
		"addr", addr,
		"database", cfg.Database.Path,
		"plex", plex != nil,
		"sonarr", sonarr != nil,
		"radarr", radarr != nil,
		"overseerr", overseerr != nil,
		"protection", guard != nil,
		"redownload", redownload != nil,
		"log_level", cfg.Server.LogLevel,
	)

	srv := &http.Server{Addr: addr, Handler: logRequests(mux, logger)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
