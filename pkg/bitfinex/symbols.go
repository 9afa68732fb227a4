package bitfinex

import (
	"fmt"
	"strings"
)

// StreamSymbol identifies one logical data stream within a connection.
// Implementations are small comparable value types, so a StreamSymbol can be
// used directly as a map key. Symbols of different kinds never compare equal
// even for the same currency pair.
type StreamSymbol interface {
	// SubscriptionKey returns the wire-level identifier used when
	// subscribing the stream ("tBTCUSD" or "trade:1m:tBTCUSD").
	SubscriptionKey() string
}

// TickerSymbol identifies the ticker stream of one currency pair.
type TickerSymbol struct {
	Pair string // e.g. "BTCUSD"
}

func (s TickerSymbol) SubscriptionKey() string {
	return "t" + s.Pair
}

// CandlestickSymbol identifies the candle stream of one pair and timeframe.
type CandlestickSymbol struct {
	Pair      string
	Timeframe Timeframe
}

func (s CandlestickSymbol) SubscriptionKey() string {
	return "trade:" + string(s.Timeframe) + ":t" + s.Pair
}

// ExecutedTradeSymbol identifies the executed-trades stream of one pair.
type ExecutedTradeSymbol struct {
	Pair string
}

func (s ExecutedTradeSymbol) SubscriptionKey() string {
	return "t" + s.Pair
}

// ParsePair strips the trading-pair prefix from a wire symbol ("tBTCUSD" → "BTCUSD").
func ParsePair(wireSymbol string) string {
	return strings.TrimPrefix(wireSymbol, "t")
}

// ParseCandlestickKey rebuilds a CandlestickSymbol from a subscription key
// like "trade:1m:tBTCUSD". Used when routing "subscribed" acknowledgements
// back to the symbol they were issued for.
func ParseCandlestickKey(key string) (CandlestickSymbol, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "trade" {
		return CandlestickSymbol{}, fmt.Errorf("invalid candles key: %q", key)
	}

	tf := Timeframe(parts[1])
	if !tf.IsValid() {
		return CandlestickSymbol{}, fmt.Errorf("invalid timeframe in candles key: %q", key)
	}

	return CandlestickSymbol{
		Pair:      ParsePair(parts[2]),
		Timeframe: tf,
	}, nil
}
