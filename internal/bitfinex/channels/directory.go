package channels

import (
	"sync"

	"bfxfeed/pkg/bitfinex"
)

// NoChannel is the channel id reported for symbols without an assignment.
const NoChannel = -1

// Directory is the symbol ↔ channel-id bijection of one connection. Channel
// ids are assigned by the remote side on subscription and may be reused
// after release, so the mapping only holds while a subscription is live.
//
// The directory is shared between the subscribe/unsubscribe path and the
// acknowledgement-routing path; both mutate it through the same instance
// and serialize on its lock.
type Directory struct {
	mu        sync.RWMutex
	bySymbol  map[bitfinex.StreamSymbol]int
	byChannel map[int]bitfinex.StreamSymbol
}

func NewDirectory() *Directory {
	return &Directory{
		bySymbol:  make(map[bitfinex.StreamSymbol]int),
		byChannel: make(map[int]bitfinex.StreamSymbol),
	}
}

// Assign binds a symbol to a channel id, replacing any previous binding of
// either side so the bijection invariant holds.
func (d *Directory) Assign(symbol bitfinex.StreamSymbol, channelID int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.bySymbol[symbol]; ok {
		delete(d.byChannel, old)
	}
	if old, ok := d.byChannel[channelID]; ok {
		delete(d.bySymbol, old)
	}
	d.bySymbol[symbol] = channelID
	d.byChannel[channelID] = symbol
}

// ChannelFor returns the channel id assigned to the symbol, or NoChannel.
func (d *Directory) ChannelFor(symbol bitfinex.StreamSymbol) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.bySymbol[symbol]
	if !ok {
		return NoChannel
	}
	return id
}

// SymbolFor returns the symbol assigned to the channel id.
func (d *Directory) SymbolFor(channelID int) (bitfinex.StreamSymbol, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sym, ok := d.byChannel[channelID]
	return sym, ok
}

// Release drops the symbol's binding and reports whether one existed.
func (d *Directory) Release(symbol bitfinex.StreamSymbol) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.bySymbol[symbol]
	if !ok {
		return false
	}
	delete(d.bySymbol, symbol)
	delete(d.byChannel, id)
	return true
}

// Clear drops every binding, used on reconnect.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bySymbol = make(map[bitfinex.StreamSymbol]int)
	d.byChannel = make(map[int]bitfinex.StreamSymbol)
}

// Size returns the number of live assignments.
func (d *Directory) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.bySymbol)
}
