package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"coinwatch/config"
	"coinwatch/logger"
	"coinwatch/pkg/feed"

	"go.uber.org/zap"
)

// number of market rows logged per update
const topCoins = 10

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := feed.NewWSClient(cfg.Tail.URL, log)
	client.SetMessageHandler(feed.MakeMessageHandler(log, feed.LogState(log, topCoins)))

	if err := client.Connect(ctx); err != nil {
		log.Fatal("failed to connect", zap.String("url", cfg.Tail.URL), zap.Error(err))
	}

	if err := client.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("listener stopped", zap.Error(err))
	}
}
