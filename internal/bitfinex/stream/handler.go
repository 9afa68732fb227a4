package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"bfxfeed/internal/bitfinex/channels"
	"bfxfeed/internal/bitfinex/quote"
	"bfxfeed/internal/bitfinex/wallet"
	"bfxfeed/pkg/bitfinex"

	"go.uber.org/zap"
)

const accountChannelID = 0

// MakeMessageHandler returns the function that routes raw WebSocket frames.
// JSON objects are protocol events (subscription acks, auth, errors); JSON
// arrays are channel data, looked up by channel id in the shared directory
// and handed to the quote or wallet manager.
func MakeMessageHandler(logger *zap.Logger, directory *channels.Directory,
	quotes *quote.Manager, wallets *wallet.Manager, conn *bitfinex.WSClient) func(msg []byte) {
	return func(msg []byte) {
		trimmed := bytes.TrimSpace(msg)
		if len(trimmed) == 0 {
			return
		}

		switch trimmed[0] {
		case '{':
			handleEvent(logger, quotes, conn, trimmed)
		case '[':
			handleChannelData(logger, directory, quotes, wallets, trimmed)
		default:
			logger.Warn("unrecognized frame", zap.ByteString("frame", trimmed))
		}
	}
}

func handleEvent(logger *zap.Logger, quotes *quote.Manager, conn *bitfinex.WSClient, msg []byte) {
	var event EventMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		logger.Warn("failed to parse event frame", zap.Error(err))
		return
	}

	switch event.Event {
	case "subscribed":
		symbol, err := symbolFromEvent(event)
		if err != nil {
			logger.Warn("unroutable subscribed event", zap.Error(err))
			return
		}
		quotes.OnSubscribeAck(symbol, event.ChannelID)

	case "unsubscribed":
		quotes.OnUnsubscribeAck(event.ChannelID)

	case "auth":
		ok := event.Status == "OK"
		conn.MarkAuthenticated(ok)
		if ok {
			logger.Info("authentication succeeded")
		} else {
			logger.Warn("authentication failed", zap.String("status", event.Status))
		}

	case "info":
		logger.Info("server info", zap.Int("version", event.Version))

	case "pong":
		logger.Debug("pong received")

	case "error":
		logger.Warn("server error",
			zap.Int("code", event.Code),
			zap.String("msg", event.Msg))

	default:
		logger.Debug("unhandled event", zap.String("event", event.Event))
	}
}

// symbolFromEvent rebuilds the stream symbol a subscription ack refers to.
func symbolFromEvent(event EventMessage) (bitfinex.StreamSymbol, error) {
	switch event.Channel {
	case "ticker":
		return bitfinex.TickerSymbol{Pair: bitfinex.ParsePair(event.Symbol)}, nil
	case "trades":
		return bitfinex.ExecutedTradeSymbol{Pair: bitfinex.ParsePair(event.Symbol)}, nil
	case "candles":
		return bitfinex.ParseCandlestickKey(event.Key)
	default:
		return nil, fmt.Errorf("unknown channel type: %q", event.Channel)
	}
}

func handleChannelData(logger *zap.Logger, directory *channels.Directory,
	quotes *quote.Manager, wallets *wallet.Manager, msg []byte) {
	var elements []json.RawMessage
	if err := json.Unmarshal(msg, &elements); err != nil {
		logger.Warn("failed to parse channel frame", zap.Error(err))
		return
	}
	if len(elements) < 2 {
		return
	}

	var channelID int
	if err := json.Unmarshal(elements[0], &channelID); err != nil {
		logger.Warn("channel frame without channel id", zap.Error(err))
		return
	}

	if channelID == accountChannelID {
		handleAccountData(logger, wallets, elements)
		return
	}

	symbol, ok := directory.SymbolFor(channelID)
	if !ok {
		logger.Warn("data for unassigned channel", zap.Int("channel", channelID))
		return
	}

	// [chanId, "hb"] is a liveness probe for an otherwise quiet channel.
	var label string
	if json.Unmarshal(elements[1], &label) == nil && label == "hb" {
		quotes.HandleChannelHeartbeat(symbol)
		return
	}

	switch sym := symbol.(type) {
	case bitfinex.TickerSymbol:
		handleTickData(logger, quotes, sym, elements[1])
	case bitfinex.CandlestickSymbol:
		handleCandleData(logger, quotes, sym, elements[1])
	case bitfinex.ExecutedTradeSymbol:
		handleTradeData(logger, quotes, sym, elements, label)
	default:
		logger.Warn("channel assigned to unroutable symbol kind",
			zap.String("symbol", symbol.SubscriptionKey()))
	}
}

func handleTickData(logger *zap.Logger, quotes *quote.Manager,
	symbol bitfinex.TickerSymbol, payload json.RawMessage) {
	var fields []float64
	if err := json.Unmarshal(payload, &fields); err != nil {
		logger.Warn("failed to parse tick payload", zap.Error(err))
		return
	}
	if len(fields) < 10 {
		logger.Warn("short tick payload", zap.Int("fields", len(fields)))
		return
	}

	quotes.HandleTick(symbol, bitfinex.Tick{
		Bid:            fields[0],
		BidSize:        fields[1],
		Ask:            fields[2],
		AskSize:        fields[3],
		DailyChange:    fields[4],
		DailyChangeRel: fields[5],
		LastPrice:      fields[6],
		Volume:         fields[7],
		High:           fields[8],
		Low:            fields[9],
		Timestamp:      time.Now().UnixMilli(),
	})
}

func handleCandleData(logger *zap.Logger, quotes *quote.Manager,
	symbol bitfinex.CandlestickSymbol, payload json.RawMessage) {
	var rows []json.RawMessage
	if err := json.Unmarshal(payload, &rows); err != nil {
		logger.Warn("failed to parse candle payload", zap.Error(err))
		return
	}
	if len(rows) == 0 {
		return
	}

	// Snapshots nest rows ([[...],[...]]); updates are one flat row.
	if bytes.HasPrefix(bytes.TrimSpace(rows[0]), []byte("[")) {
		candles := make([]bitfinex.Candle, 0, len(rows))
		for _, row := range rows {
			candle, err := parseCandle(row)
			if err != nil {
				logger.Warn("skipping invalid candle row", zap.Error(err))
				continue
			}
			candles = append(candles, candle)
		}
		quotes.HandleCandlestickCollection(symbol, candles)
		return
	}

	candle, err := parseCandle(payload)
	if err != nil {
		logger.Warn("failed to parse candle update", zap.Error(err))
		return
	}
	quotes.HandleCandlestick(symbol, candle)
}

func parseCandle(row json.RawMessage) (bitfinex.Candle, error) {
	var fields []float64
	if err := json.Unmarshal(row, &fields); err != nil {
		return bitfinex.Candle{}, err
	}
	if len(fields) < 6 {
		return bitfinex.Candle{}, fmt.Errorf("candle row has %d fields, want 6", len(fields))
	}

	return bitfinex.Candle{
		Timestamp: int64(fields[0]),
		Open:      fields[1],
		Close:     fields[2],
		High:      fields[3],
		Low:       fields[4],
		Volume:    fields[5],
	}, nil
}

// handleTradeData covers both forms of the trades channel: the snapshot
// [chanId, [[trade],...]] and the tagged updates [chanId, "te"|"tu", [trade]].
func handleTradeData(logger *zap.Logger, quotes *quote.Manager,
	symbol bitfinex.ExecutedTradeSymbol, elements []json.RawMessage, label string) {
	if label == "te" || label == "tu" {
		if len(elements) < 3 {
			return
		}
		// "tu" repeats the trade with its final id; only "te" is routed to
		// avoid double delivery of the same execution.
		if label == "tu" {
			return
		}
		trade, err := parseTrade(elements[2])
		if err != nil {
			logger.Warn("failed to parse trade update", zap.Error(err))
			return
		}
		quotes.HandleExecutedTrade(symbol, trade)
		return
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(elements[1], &rows); err != nil {
		logger.Warn("failed to parse trade snapshot", zap.Error(err))
		return
	}
	trades := make([]bitfinex.ExecutedTrade, 0, len(rows))
	for _, row := range rows {
		trade, err := parseTrade(row)
		if err != nil {
			logger.Warn("skipping invalid trade row", zap.Error(err))
			continue
		}
		trades = append(trades, trade)
	}
	quotes.HandleExecutedTradeCollection(symbol, trades)
}

func parseTrade(row json.RawMessage) (bitfinex.ExecutedTrade, error) {
	var fields []float64
	if err := json.Unmarshal(row, &fields); err != nil {
		return bitfinex.ExecutedTrade{}, err
	}
	if len(fields) < 4 {
		return bitfinex.ExecutedTrade{}, fmt.Errorf("trade row has %d fields, want 4", len(fields))
	}

	return bitfinex.ExecutedTrade{
		ID:        int64(fields[0]),
		Timestamp: int64(fields[1]),
		Amount:    fields[2],
		Price:     fields[3],
	}, nil
}

// handleAccountData routes channel-0 frames: wallet snapshots ("ws"),
// single wallet updates ("wu") and account heartbeats.
func handleAccountData(logger *zap.Logger, wallets *wallet.Manager, elements []json.RawMessage) {
	var label string
	if err := json.Unmarshal(elements[1], &label); err != nil {
		logger.Warn("account frame without type label", zap.Error(err))
		return
	}

	switch label {
	case "ws":
		if len(elements) < 3 {
			return
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(elements[2], &rows); err != nil {
			logger.Warn("failed to parse wallet snapshot", zap.Error(err))
			return
		}
		records := make([]bitfinex.Wallet, 0, len(rows))
		for _, row := range rows {
			w, err := parseWallet(row)
			if err != nil {
				logger.Warn("skipping invalid wallet row", zap.Error(err))
				continue
			}
			records = append(records, w)
		}
		wallets.OnWalletUpdates(records)

	case "wu":
		if len(elements) < 3 {
			return
		}
		w, err := parseWallet(elements[2])
		if err != nil {
			logger.Warn("failed to parse wallet update", zap.Error(err))
			return
		}
		wallets.OnWalletUpdates([]bitfinex.Wallet{w})

	case "hb":
		// Account channel liveness only, no payload.

	default:
		logger.Debug("unhandled account frame", zap.String("type", label))
	}
}

func parseWallet(row json.RawMessage) (bitfinex.Wallet, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(row, &fields); err != nil {
		return bitfinex.Wallet{}, err
	}
	if len(fields) < 5 {
		return bitfinex.Wallet{}, fmt.Errorf("wallet row has %d fields, want 5", len(fields))
	}

	var w bitfinex.Wallet
	if err := json.Unmarshal(fields[0], &w.Type); err != nil {
		return bitfinex.Wallet{}, err
	}
	if err := json.Unmarshal(fields[1], &w.Currency); err != nil {
		return bitfinex.Wallet{}, err
	}
	if err := json.Unmarshal(fields[2], &w.Balance); err != nil {
		return bitfinex.Wallet{}, err
	}
	// Interest and available balance arrive as null until calculated.
	if !bytes.Equal(fields[3], []byte("null")) {
		if err := json.Unmarshal(fields[3], &w.UnsettledInterest); err != nil {
			return bitfinex.Wallet{}, err
		}
	}
	if !bytes.Equal(fields[4], []byte("null")) {
		if err := json.Unmarshal(fields[4], &w.BalanceAvailable); err != nil {
			return bitfinex.Wallet{}, err
		}
	}
	return w, nil
}
