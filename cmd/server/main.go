package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loglens/loglens/internal/alerts"
	"github.com/loglens/loglens/internal/api"
	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/scoring"
	"github.com/loglens/loglens/internal/source"
	"github.com/loglens/loglens/internal/store"
	"github.com/loglens/loglens/internal/watcher"
	"github.com/loglens/loglens/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("loglens starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"storage_path", cfg.Storage.Path,
		"redis_addr", cfg.Redis.Addr,
		"redis_channel", cfg.Redis.Channel,
		"scoring_url", cfg.Scoring.URL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// SQLite store holding raw logs, derived records, and thresholds.
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		slog.Error("failed to open store", "path", cfg.Storage.Path, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	redisOpts := source.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password(),
		DB:       cfg.Redis.DB,
		Channel:  cfg.Redis.Channel,
	}

	// Insert events go out on Redis pub/sub. Ingest still works without it;
	// records just will not reach the derived pipeline until Redis is back.
	var pub source.Publisher
	if rp, err := source.NewRedisPublisher(redisOpts); err != nil {
		slog.Warn("redis publisher unavailable — ingest continues without change events",
			"addr", cfg.Redis.Addr, "err", err)
	} else {
		pub = rp
		defer rp.Close()
	}

	recorder := ingest.New(st, pub)

	// Anomaly scoring is optional; an empty URL disables the forward.
	var scorer watcher.Scorer
	if cfg.Scoring.URL != "" {
		scorer = scoring.New(cfg.Scoring.URL, cfg.Scoring.Timeout)
	}

	// Change watcher: insert events -> feature encode -> derived store ->
	// best-effort scoring. It keeps retrying on its own backoff, so a failed
	// first connect is not fatal.
	w := watcher.New(source.NewRedis(redisOpts), st, scorer, cfg.Watcher.Backoff)
	if err := w.Start(ctx); err != nil {
		slog.Warn("watcher connect failed — will keep retrying",
			"backoff", cfg.Watcher.Backoff, "err", err)
	}
	defer w.Close()

	// Error-threshold alerting with webhook delivery.
	notifier := alerts.NewNotifier(cfg.Alerts.Webhooks, cfg.Alerts.Cooldown)
	evaluator := alerts.NewEvaluator(st, st, cfg.Alerts.ThresholdName, notifier)

	// Hot reload: webhook targets follow the config file without a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			notifier.UpdateWebhooks(next.Alerts.Webhooks)
		})
		if err != nil {
			slog.Error("config watch stopped", "err", err)
		}
	}()

	// WebSocket hub — streams recent derived records to dashboard clients.
	hub := ws.New(st, cfg.Stream.Interval)
	go hub.Run(ctx)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(st, recorder, evaluator, w))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("loglens shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
