package main

import (
	"bfxfeed/config"
	"bfxfeed/internal/bitfinex/service"
	"bfxfeed/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	// run feed
	if err := service.StartFeed(cfg, log); err != nil {
		log.Fatal("feed failed", zap.Error(err))
	}

	select {}
}
