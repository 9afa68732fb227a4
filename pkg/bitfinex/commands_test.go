package bitfinex

import (
	"encoding/json"
	"testing"
)

func decodeObject(t *testing.T, cmd Command) map[string]interface{} {
	t.Helper()
	payload, err := cmd.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("encoded command is not a JSON object: %v", err)
	}
	return out
}

// go test -v --run TestSubscribeCommandShapes
func TestSubscribeCommandShapes(t *testing.T) {
	ticker := decodeObject(t, SubscribeTickerCommand{Symbol: TickerSymbol{Pair: "BTCUSD"}})
	if ticker["event"] != "subscribe" || ticker["channel"] != "ticker" || ticker["symbol"] != "tBTCUSD" {
		t.Errorf("unexpected ticker command: %v", ticker)
	}

	candles := decodeObject(t, SubscribeCandlesCommand{
		Symbol: CandlestickSymbol{Pair: "BTCUSD", Timeframe: Timeframe1Min},
	})
	if candles["event"] != "subscribe" || candles["channel"] != "candles" || candles["key"] != "trade:1m:tBTCUSD" {
		t.Errorf("unexpected candles command: %v", candles)
	}

	trades := decodeObject(t, SubscribeTradesCommand{Symbol: ExecutedTradeSymbol{Pair: "ETHUSD"}})
	if trades["event"] != "subscribe" || trades["channel"] != "trades" || trades["symbol"] != "tETHUSD" {
		t.Errorf("unexpected trades command: %v", trades)
	}
}

// go test -v --run TestUnsubscribeCommandShape
func TestUnsubscribeCommandShape(t *testing.T) {
	cmd := decodeObject(t, UnsubscribeChannelCommand{ChannelID: 30})
	if cmd["event"] != "unsubscribe" {
		t.Errorf("unexpected event: %v", cmd["event"])
	}
	if id, ok := cmd["chanId"].(float64); !ok || id != 30 {
		t.Errorf("unexpected chanId: %v", cmd["chanId"])
	}
}

// go test -v --run TestCalculateCommandShape
func TestCalculateCommandShape(t *testing.T) {
	payload, err := CalculateCommand{Target: "wallet_margin_BTC"}.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	want := `[0,"calc",null,[["wallet_margin_BTC"]]]`
	if string(payload) != want {
		t.Errorf("encoded calc command %s, want %s", payload, want)
	}
}

// go test -v --run TestPingCommandShape
func TestPingCommandShape(t *testing.T) {
	cmd := decodeObject(t, PingCommand{CID: 1234})
	if cmd["event"] != "ping" {
		t.Errorf("unexpected event: %v", cmd["event"])
	}
	if cid, ok := cmd["cid"].(float64); !ok || cid != 1234 {
		t.Errorf("unexpected cid: %v", cmd["cid"])
	}
}
