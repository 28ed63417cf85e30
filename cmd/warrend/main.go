package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v2"

	"github.com/warren-social/warren/automation"
	"github.com/warren-social/warren/automation/windowstore"
	"github.com/warren-social/warren/models"
	"github.com/warren-social/warren/platform"
	"github.com/warren-social/warren/server"
	"github.com/warren-social/warren/util/cliutil"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "warrend",
		Usage:   "warren platform daemon (API + engagement automation)",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/warren/warren.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "optional redis backend for rate-limit windows (redis://...)",
			EnvVars: []string{"REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the HTTP API",
			Value:   ":4100",
			EnvVars: []string{"WARREN_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics",
			Value:   ":4101",
			EnvVars: []string{"WARREN_METRICS_LISTEN"},
		},
		&cli.DurationFlag{
			Name:    "scheduler-interval",
			Value:   automation.DefaultTickInterval,
			EnvVars: []string{"WARREN_SCHEDULER_INTERVAL"},
		},
		&cli.BoolFlag{
			Name:    "disable-scheduler",
			Usage:   "serve the API without running engagement automation",
			EnvVars: []string{"WARREN_DISABLE_SCHEDULER"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			Value:   40,
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}
		if err := models.AutoMigrateAll(db); err != nil {
			return fmt.Errorf("migrating platform tables: %w", err)
		}

		store := platform.NewStore(db)
		rules := automation.NewRuleStore(db)
		actions := automation.NewActionLog(db)

		var windows windowstore.WindowStore
		if redisURL := cctx.String("redis-url"); redisURL != "" {
			rws, err := windowstore.NewRedisWindowStore(redisURL)
			if err != nil {
				return fmt.Errorf("initializing redis window store: %w", err)
			}
			logger.Info("rate-limit windows backed by redis")
			windows = rws
		} else {
			windows = windowstore.NewMemWindowStore()
		}

		engine, err := automation.NewEngine(logger, store, rules, actions, windows)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cctx.String("metrics-listen"), nil); err != nil {
				logger.Error("failed to start metrics endpoint", "err", err)
			}
		}()

		if cctx.Bool("disable-scheduler") {
			logger.Info("engagement scheduler disabled")
		} else {
			sched := automation.NewScheduler(engine, cctx.Duration("scheduler-interval"))
			go func() {
				if err := sched.Run(ctx); err != nil {
					logger.Error("scheduler exited", "err", err)
				}
			}()
		}

		srv := server.NewServer(db, store, rules, actions)
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("API shutdown failed", "err", err)
			}
		}()

		logger.Info("starting warren API", "bind", cctx.String("bind"))
		if err := srv.RunAPI(cctx.String("bind")); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}
