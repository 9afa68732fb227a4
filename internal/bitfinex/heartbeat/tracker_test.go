package heartbeat

import (
	"testing"

	"bfxfeed/pkg/bitfinex"
)

// go test -v --run TestNeverSeenSentinel
func TestNeverSeenSentinel(t *testing.T) {
	tracker := NewTracker()
	symbol := bitfinex.TickerSymbol{Pair: "BTCUSD"}

	if got := tracker.LastActivity(symbol); got != NeverSeen {
		t.Fatalf("expected sentinel %d for untouched symbol, got %d", NeverSeen, got)
	}
}

// go test -v --run TestTouchIsMonotonic
func TestTouchIsMonotonic(t *testing.T) {
	tracker := NewTracker()
	symbol := bitfinex.TickerSymbol{Pair: "BTCUSD"}

	tracker.Touch(symbol)
	first := tracker.LastActivity(symbol)
	if first < 0 {
		t.Fatalf("expected real timestamp after touch, got %d", first)
	}

	tracker.Touch(symbol)
	second := tracker.LastActivity(symbol)
	if second < first {
		t.Errorf("timestamp moved backwards: %d then %d", first, second)
	}
}

// go test -v --run TestRemoveAndClear
func TestRemoveAndClear(t *testing.T) {
	tracker := NewTracker()
	btc := bitfinex.TickerSymbol{Pair: "BTCUSD"}
	eth := bitfinex.ExecutedTradeSymbol{Pair: "ETHUSD"}

	tracker.Touch(btc)
	tracker.Touch(eth)

	tracker.Remove(btc)
	if got := tracker.LastActivity(btc); got != NeverSeen {
		t.Errorf("expected sentinel after remove, got %d", got)
	}
	if got := tracker.LastActivity(eth); got == NeverSeen {
		t.Error("remove dropped an unrelated symbol")
	}

	tracker.ClearAll()
	if got := tracker.LastActivity(eth); got != NeverSeen {
		t.Errorf("expected sentinel after clear, got %d", got)
	}
	if got := len(tracker.Snapshot()); got != 0 {
		t.Errorf("expected empty snapshot after clear, got %d entries", got)
	}
}

// go test -v --run TestSymbolKindsTrackedSeparately
func TestSymbolKindsTrackedSeparately(t *testing.T) {
	tracker := NewTracker()

	// Same pair, different stream kinds: distinct ledger entries
	tracker.Touch(bitfinex.TickerSymbol{Pair: "BTCUSD"})

	if got := tracker.LastActivity(bitfinex.ExecutedTradeSymbol{Pair: "BTCUSD"}); got != NeverSeen {
		t.Errorf("trade symbol inherited ticker activity: %d", got)
	}
}
