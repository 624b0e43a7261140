package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/shriniketh555/medcare/internal/api"
	"github.com/shriniketh555/medcare/internal/config"
	"github.com/shriniketh555/medcare/internal/notify"
	"github.com/shriniketh555/medcare/internal/scheduler"
	"github.com/shriniketh555/medcare/internal/store"
	"github.com/shriniketh555/medcare/internal/tracker"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("medcare version %s\n", version)
			return
		}
	}

	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := config.LoadEnvFiles(); err != nil {
		logger.Warn("Failed to load .env files", zap.Error(err))
	}

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	st, err := store.New(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trk := tracker.New(st, logger)
	if err := trk.Hydrate(ctx); err != nil {
		logger.Warn("Hydration incomplete, starting with in-memory state", zap.Error(err))
	}

	server := api.New(cfg, trk, logger)

	notifier := buildNotifier(cfg, server.Hub(), logger)

	sched := scheduler.New(trk, notifier, st, logger).
		WithInterval(cfg.Reminders.TickInterval()).
		WithGrace(cfg.Reminders.GracePeriod())

	if cfg.Reminders.Enabled {
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	if cfg.Reminders.DailySummary {
		summary, err := scheduler.NewDailySummary(trk, notifier, cfg.Reminders.DailySummaryTime, logger)
		if err != nil {
			logger.Fatal("Failed to schedule daily summary", zap.Error(err))
		}
		summary.Start()
		defer summary.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}

	cancel()
	if err := server.Shutdown(); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}

// buildNotifier assembles the notification fan-out: the structured log and
// the WebSocket hub always, plus whichever caregiver channels are configured.
// External channels sit behind a circuit breaker and a shared rate limit.
func buildNotifier(cfg *config.Config, hub *api.Hub, logger *zap.Logger) notify.Notifier {
	multi := notify.NewMulti(logger).
		Add("log", notify.NewLogSink(logger)).
		Add("websocket", hub)

	if cfg.Channels.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Channels.Telegram.BotToken, cfg.Channels.Telegram.ChatID, logger)
		if err != nil {
			logger.Error("Telegram sink unavailable", zap.Error(err))
		} else {
			multi.Add("telegram", notify.NewRateLimited(
				notify.NewBreaker("telegram", tg, logger),
				cfg.Notify.RatePerMinute, cfg.Notify.Burst, logger))
		}
	}

	if cfg.Channels.Discord.Enabled {
		dc, err := notify.NewDiscord(cfg.Channels.Discord.Token, cfg.Channels.Discord.ChannelID, logger)
		if err != nil {
			logger.Error("Discord sink unavailable", zap.Error(err))
		} else {
			multi.Add("discord", notify.NewRateLimited(
				notify.NewBreaker("discord", dc, logger),
				cfg.Notify.RatePerMinute, cfg.Notify.Burst, logger))
		}
	}

	return multi
}
