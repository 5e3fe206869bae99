package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/elsakane2015/classtrack/internal/config"
	"github.com/elsakane2015/classtrack/internal/db"
	"github.com/elsakane2015/classtrack/internal/jobs"
	"github.com/elsakane2015/classtrack/internal/logging"
	"github.com/elsakane2015/classtrack/internal/notify"
	"github.com/elsakane2015/classtrack/internal/observability"
	"github.com/elsakane2015/classtrack/internal/server"
)

const release = "classtrack@1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, release)
	if err != nil {
		lg.Base.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Base.Fatal("db connect failed", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		lg.Base.Fatal("migrations failed", zap.Error(err))
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.BotToken != "" && cfg.NotifyChatID != 0 {
		tg, err := notify.NewTelegram(cfg.BotToken, cfg.NotifyChatID)
		if err != nil {
			lg.Base.Warn("telegram notifier disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	runner := jobs.New(ctx)
	at, _ := config.ParseClock(cfg.AutoMarkAt)
	runner.Daily(at, cfg.Location, "auto_mark", jobs.AutoMark(database, cfg.Location, lg.Base))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(database, lg.Base, cfg.Location, notifier).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lg.Base.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Base.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Base.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Base.Error("shutdown failed", zap.Error(err))
	}
}
