package bitfinex

import "encoding/json"

// Command is an outbound protocol message. Commands are encoded lazily so
// the transport can hand raw bytes to the socket without knowing shapes.
type Command interface {
	Encode() ([]byte, error)
}

// SubscribeTickerCommand subscribes the ticker channel of one pair.
type SubscribeTickerCommand struct {
	Symbol TickerSymbol
}

func (c SubscribeTickerCommand) Encode() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event":   "subscribe",
		"channel": "ticker",
		"symbol":  c.Symbol.SubscriptionKey(),
	})
}

// SubscribeCandlesCommand subscribes a candles channel. The timeframe is
// carried inside the subscription key ("trade:1m:tBTCUSD").
type SubscribeCandlesCommand struct {
	Symbol CandlestickSymbol
}

func (c SubscribeCandlesCommand) Encode() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event":   "subscribe",
		"channel": "candles",
		"key":     c.Symbol.SubscriptionKey(),
	})
}

// SubscribeTradesCommand subscribes the executed-trades channel of one pair.
type SubscribeTradesCommand struct {
	Symbol ExecutedTradeSymbol
}

func (c SubscribeTradesCommand) Encode() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event":   "subscribe",
		"channel": "trades",
		"symbol":  c.Symbol.SubscriptionKey(),
	})
}

// UnsubscribeChannelCommand drops a subscription by its channel id. The
// remote side keys unsubscription on the channel id, not the symbol.
type UnsubscribeChannelCommand struct {
	ChannelID int
}

func (c UnsubscribeChannelCommand) Encode() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event":  "unsubscribe",
		"chanId": c.ChannelID,
	})
}

// CalculateCommand asks the server to recalculate a balance metric, e.g.
// "wallet_margin_BTC". Sent on the authenticated account channel (0).
type CalculateCommand struct {
	Target string
}

func (c CalculateCommand) Encode() ([]byte, error) {
	return json.Marshal([]interface{}{0, "calc", nil, [][]string{{c.Target}}})
}

// PingCommand probes connection liveness; the server answers with a pong
// event carrying the same cid.
type PingCommand struct {
	CID int
}

func (c PingCommand) Encode() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event": "ping",
		"cid":   c.CID,
	})
}
