package stream

// EventMessage is the envelope of JSON-object frames: protocol events such
// as "subscribed", "unsubscribed", "auth", "info" and "error".
type EventMessage struct {
	Event     string `json:"event"`
	Channel   string `json:"channel"` // "ticker", "candles" or "trades"
	ChannelID int    `json:"chanId"`
	Symbol    string `json:"symbol"` // ticker/trades: "tBTCUSD"
	Key       string `json:"key"`    // candles: "trade:1m:tBTCUSD"
	Status    string `json:"status"` // auth/unsubscribed: "OK" or "FAILED"
	Code      int    `json:"code"`   // error events
	Msg       string `json:"msg"`
	Version   int    `json:"version"` // info events
}
