package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bsfilter-bot/internal/bot"
	"bsfilter-bot/internal/cache"
	"bsfilter-bot/internal/config"
	"bsfilter-bot/internal/deletequeue"
	"bsfilter-bot/internal/search"
	"bsfilter-bot/internal/session"
	"bsfilter-bot/internal/store"
	"bsfilter-bot/internal/tg"
	"bsfilter-bot/internal/tmdb"
	"bsfilter-bot/internal/web"
)

func main() {
	_ = config.LoadDotEnv(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)
	logger.Info("starting", slog.String("version", config.Version), slog.String("store", cfg.StoreBackend))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("store close failed", slog.Any("error", err))
		}
	}()

	fc := cache.New(st, logger)
	if err := fc.Refresh(ctx); err != nil {
		logger.Error("initial cache load failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("file cache loaded", slog.Int("files", fc.Len()))

	client := tg.NewClient(cfg.BotToken)

	var meta bot.MetaProvider
	var suggester search.Suggester
	if cfg.TMDBAPIKey != "" {
		t := tmdb.NewClient(cfg.TMDBAPIKey)
		meta = t
		suggester = t
	}

	matcher := search.NewMatcher(search.NewNormalizer(nil), suggester, logger)
	sessions := session.NewStore(cfg.SessionMax, cfg.SessionTTL)
	queue := deletequeue.New(st, client.DeleteMessage, logger)
	b := bot.New(*cfg, client, st, fc, matcher, sessions, queue, meta, logger)

	if me, err := client.GetMe(ctx); err != nil {
		logger.Warn("getMe failed, group deep links disabled", slog.Any("error", err))
	} else {
		b.SetUsername(me.Username)
		logger.Info("bot authorized", slog.String("username", me.Username))
	}

	go queue.Run(ctx, cfg.SweepInterval)
	go bot.NewPoller(client, b, logger).Run(ctx)

	srv := web.New(cfg, fc, matcher, b, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("http server failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case "mongo":
		return store.NewMongo(ctx, cfg.MongoURI, logger)
	default:
		return store.NewFirebase(cfg.FirebaseDBURL, cfg.FirebaseAuth, logger), nil
	}
}
