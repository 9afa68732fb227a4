package heartbeat

import (
	"sync"
	"time"

	"bfxfeed/pkg/bitfinex"
)

// NeverSeen is returned for symbols without any recorded activity. It is
// distinct from any real timestamp, including zero.
const NeverSeen = int64(-1)

// Tracker is a passive per-symbol last-activity ledger. Ingestion touches
// it on every inbound event; staleness policy is the consumer's business.
type Tracker struct {
	mu           sync.RWMutex
	lastActivity map[bitfinex.StreamSymbol]int64
}

func NewTracker() *Tracker {
	return &Tracker{
		lastActivity: make(map[bitfinex.StreamSymbol]int64),
	}
}

// Touch records the current time for the symbol. Timestamps never move
// backwards for a symbol.
func (t *Tracker) Touch(symbol bitfinex.StreamSymbol) {
	now := time.Now().UnixMilli()

	t.mu.Lock()
	defer t.mu.Unlock()

	if now >= t.lastActivity[symbol] {
		t.lastActivity[symbol] = now
	}
}

// LastActivity returns the last recorded timestamp for the symbol, or
// NeverSeen if the symbol was never touched.
func (t *Tracker) LastActivity(symbol bitfinex.StreamSymbol) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ts, ok := t.lastActivity[symbol]
	if !ok {
		return NeverSeen
	}
	return ts
}

// Remove drops the symbol's record, used on unsubscribe.
func (t *Tracker) Remove(symbol bitfinex.StreamSymbol) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastActivity, symbol)
}

// ClearAll drops every record, used on reconnect.
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastActivity = make(map[bitfinex.StreamSymbol]int64)
}

// Snapshot returns a copy of all records.
func (t *Tracker) Snapshot() map[bitfinex.StreamSymbol]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[bitfinex.StreamSymbol]int64, len(t.lastActivity))
	for sym, ts := range t.lastActivity {
		out[sym] = ts
	}
	return out
}
