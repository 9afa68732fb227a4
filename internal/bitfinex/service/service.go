package service

import (
	"context"
	"fmt"
	"time"

	"bfxfeed/config"
	"bfxfeed/internal/bitfinex/channels"
	"bfxfeed/internal/bitfinex/dispatch"
	"bfxfeed/internal/bitfinex/quote"
	"bfxfeed/internal/bitfinex/stream"
	"bfxfeed/internal/bitfinex/wallet"
	"bfxfeed/pkg/bitfinex"
	"bfxfeed/pkg/storage/postgres"

	"go.uber.org/zap"
)

// StartFeed wires the subscription core to the transport and storage and
// subscribes the configured pairs. Inbound events flow from the WebSocket
// read loop through the stream router into the managers; confirmed candles
// and wallet snapshots are persisted through registered callbacks.
func StartFeed(cfg *config.Config, logger *zap.Logger) error {
	timeframe, err := bitfinex.ParseTimeframe(cfg.Bitfinex.CandleTimeframe)
	if err != nil {
		return fmt.Errorf("invalid candle timeframe: %w", err)
	}

	// Initialize PostgreSQL client
	postgresClient, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Bitfinex.Environment, true)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}

	// Shared channel directory: mutated by both the subscribe path (quote
	// manager) and the ack path (stream router).
	directory := channels.NewDirectory()
	guard := channels.NewGuard(directory, cfg.Bitfinex.Quota)
	pool := dispatch.NewPool(cfg.Bitfinex.Dispatch.Workers, cfg.Bitfinex.Dispatch.QueueSize, logger)

	wsClient := bitfinex.NewWSClient(cfg.Bitfinex.WS.URL, logger)
	quotes := quote.NewManager(wsClient, directory, guard, pool, logger)
	wallets := wallet.NewManager(wsClient, logger)

	// Persist every wallet snapshot that flows through the balance table.
	wallets.SetUpdateHook(func(records []bitfinex.Wallet) {
		for _, record := range records {
			dbCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := postgresClient.UpsertWallet(dbCtx, record)
			cancel()
			if err != nil {
				logger.Warn("failed to persist wallet record",
					zap.String("currency", record.Currency), zap.Error(err))
			}
		}
	})

	wsClient.SetMessageHandler(stream.MakeMessageHandler(logger, directory, quotes, wallets, wsClient))
	wsClient.SetReconnectHook(func() {
		// Channel ids died with the old connection.
		quotes.Reset()
		subscribePairs(cfg, quotes, timeframe, logger)
	})

	if err := wsClient.Connect(); err != nil {
		return err
	}
	go wsClient.Listen() // explicitly start listener

	registerPersistence(cfg, quotes, timeframe, postgresClient, logger)
	subscribePairs(cfg, quotes, timeframe, logger)

	// Periodically report stream liveness for visibility
	go func() {
		for {
			ages := quotes.HeartbeatSnapshot()
			logger.Info("active streams", zap.Int("count", len(ages)))

			time.Sleep(30 * time.Second)
		}
	}()

	return nil
}

// registerPersistence attaches a candle callback per configured pair that
// writes updates into Postgres.
func registerPersistence(cfg *config.Config, quotes *quote.Manager,
	timeframe bitfinex.Timeframe, postgresClient *postgres.PostgresClient, logger *zap.Logger) {
	for _, pair := range cfg.Bitfinex.Pairs {
		symbol := bitfinex.CandlestickSymbol{Pair: pair, Timeframe: timeframe}

		quotes.RegisterCandlestickCallback(symbol,
			func(sym bitfinex.CandlestickSymbol, candle bitfinex.Candle) {
				record, err := postgres.ToCandleRecord(sym, candle)
				if err != nil {
					logger.Warn("failed to convert candle to record",
						zap.String("pair", sym.Pair), zap.Error(err))
					return
				}

				// context for DB insert (short timeout)
				dbCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				err = postgresClient.UpsertCandle(dbCtx, record)
				cancel()
				if err != nil {
					logger.Warn("failed to persist candle",
						zap.String("pair", sym.Pair), zap.Error(err))
				}
			})
	}
}

// subscribePairs issues ticker, candle and trade subscriptions for every
// configured pair. Quota rejections are logged and skipped; the remaining
// pairs still subscribe.
func subscribePairs(cfg *config.Config, quotes *quote.Manager,
	timeframe bitfinex.Timeframe, logger *zap.Logger) {
	for _, pair := range cfg.Bitfinex.Pairs {
		if err := quotes.SubscribeTicker(bitfinex.TickerSymbol{Pair: pair}); err != nil {
			logger.Warn("ticker subscribe failed", zap.String("pair", pair), zap.Error(err))
		}
		if err := quotes.SubscribeCandles(bitfinex.CandlestickSymbol{Pair: pair, Timeframe: timeframe}); err != nil {
			logger.Warn("candles subscribe failed", zap.String("pair", pair), zap.Error(err))
		}
		if err := quotes.SubscribeExecutedTrades(bitfinex.ExecutedTradeSymbol{Pair: pair}); err != nil {
			logger.Warn("trades subscribe failed", zap.String("pair", pair), zap.Error(err))
		}
	}
}
