package quote

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bfxfeed/internal/bitfinex/channels"
	"bfxfeed/internal/bitfinex/dispatch"
	"bfxfeed/internal/bitfinex/heartbeat"
	"bfxfeed/pkg/bitfinex"

	"go.uber.org/zap"
)

type fakeBroker struct {
	mu       sync.Mutex
	commands []bitfinex.Command
}

func (b *fakeBroker) SendCommand(cmd bitfinex.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = append(b.commands, cmd)
	return nil
}

func (b *fakeBroker) sent() []bitfinex.Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]bitfinex.Command, len(b.commands))
	copy(out, b.commands)
	return out
}

func newTestManager(quota int) (*Manager, *fakeBroker, *channels.Directory) {
	broker := &fakeBroker{}
	directory := channels.NewDirectory()
	guard := channels.NewGuard(directory, quota)
	pool := dispatch.NewPool(1, 16, zap.NewNop())
	manager := NewManager(broker, directory, guard, pool, zap.NewNop())
	return manager, broker, directory
}

func recvTick(t *testing.T, ch <-chan bitfinex.Tick) bitfinex.Tick {
	t.Helper()
	select {
	case tick := <-ch:
		return tick
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick callback")
		return bitfinex.Tick{}
	}
}

// go test -v --run TestSubscribeTicker
func TestSubscribeTicker(t *testing.T) {
	manager, broker, directory := newTestManager(50)
	symbol := bitfinex.TickerSymbol{Pair: "BTCUSD"}

	if err := manager.SubscribeTicker(symbol); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	commands := broker.sent()
	if len(commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(commands))
	}
	if _, ok := commands[0].(bitfinex.SubscribeTickerCommand); !ok {
		t.Fatalf("unexpected command type: %T", commands[0])
	}
	if got := manager.State(symbol); got != StatePending {
		t.Errorf("expected pending state after subscribe, got %v", got)
	}

	// Channel assignment happens via the ack path, not subscribe itself
	if got := directory.ChannelFor(symbol); got != channels.NoChannel {
		t.Errorf("channel assigned before ack: %d", got)
	}

	manager.OnSubscribeAck(symbol, 30)
	if got := directory.ChannelFor(symbol); got != 30 {
		t.Errorf("expected channel 30 after ack, got %d", got)
	}
	if got := manager.State(symbol); got != StateActive {
		t.Errorf("expected active state after ack, got %v", got)
	}
}

// go test -v --run TestSubscribeQuotaExceeded
func TestSubscribeQuotaExceeded(t *testing.T) {
	manager, broker, directory := newTestManager(50)

	for i := 0; i < 50; i++ {
		directory.Assign(bitfinex.TickerSymbol{Pair: fmt.Sprintf("SYM%dUSD", i)}, i+100)
	}

	err := manager.SubscribeTicker(bitfinex.TickerSymbol{Pair: "BTCUSD"})
	if !errors.Is(err, channels.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if got := len(broker.sent()); got != 0 {
		t.Errorf("rejected subscribe still sent %d commands", got)
	}
}

// go test -v --run TestSubscribeAtQuotaBoundary
func TestSubscribeAtQuotaBoundary(t *testing.T) {
	manager, broker, directory := newTestManager(50)

	for i := 0; i < 49; i++ {
		directory.Assign(bitfinex.TickerSymbol{Pair: fmt.Sprintf("SYM%dUSD", i)}, i+100)
	}

	// 49 of 50 in use: one more subscription fits
	last := bitfinex.TickerSymbol{Pair: "BTCUSD"}
	if err := manager.SubscribeTicker(last); err != nil {
		t.Fatalf("subscribe below the ceiling failed: %v", err)
	}
	manager.OnSubscribeAck(last, 500)
	if got := directory.Size(); got != 50 {
		t.Fatalf("expected directory size 50, got %d", got)
	}

	sentBefore := len(broker.sent())
	err := manager.SubscribeTicker(bitfinex.TickerSymbol{Pair: "ETHUSD"})
	if !errors.Is(err, channels.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded at the ceiling, got %v", err)
	}
	if got := len(broker.sent()); got != sentBefore {
		t.Errorf("rejected subscribe sent a command")
	}
}

// go test -v --run TestUnsubscribeUnknownSymbol
func TestUnsubscribeUnknownSymbol(t *testing.T) {
	manager, broker, _ := newTestManager(50)

	err := manager.UnsubscribeTicker(bitfinex.TickerSymbol{Pair: "BTCUSD"})
	if !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
	if got := len(broker.sent()); got != 0 {
		t.Errorf("failed unsubscribe still sent %d commands", got)
	}
}

// go test -v --run TestUnsubscribeReleasesState
func TestUnsubscribeReleasesState(t *testing.T) {
	manager, broker, directory := newTestManager(50)
	symbol := bitfinex.TickerSymbol{Pair: "BTCUSD"}

	if err := manager.SubscribeTicker(symbol); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	manager.OnSubscribeAck(symbol, 30)
	manager.HandleTick(symbol, bitfinex.Tick{LastPrice: 7500})

	if err := manager.UnsubscribeTicker(symbol); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}

	commands := broker.sent()
	unsub, ok := commands[len(commands)-1].(bitfinex.UnsubscribeChannelCommand)
	if !ok {
		t.Fatalf("expected unsubscribe command, got %T", commands[len(commands)-1])
	}
	if unsub.ChannelID != 30 {
		t.Errorf("unsubscribe keyed on channel %d, want 30", unsub.ChannelID)
	}

	if got := directory.ChannelFor(symbol); got != channels.NoChannel {
		t.Errorf("directory entry survived unsubscribe: %d", got)
	}
	if got := manager.LastActivity(symbol); got != heartbeat.NeverSeen {
		t.Errorf("heartbeat record survived unsubscribe: %d", got)
	}
	if got := manager.State(symbol); got != StateUnsubscribed {
		t.Errorf("expected unsubscribed state, got %v", got)
	}

	// A second unsubscribe finds no channel and sends nothing
	sentBefore := len(broker.sent())
	if err := manager.UnsubscribeTicker(symbol); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol on repeat unsubscribe, got %v", err)
	}
	if got := len(broker.sent()); got != sentBefore {
		t.Error("repeat unsubscribe sent a command")
	}
}

// The directory entry is freed before the remote side confirms the
// unsubscribe, so a resubscribe can race the pending confirmation. The
// local core accepts it; the remote side arbitrates.
// go test -v --run TestResubscribeBeforeUnsubscribeAck
func TestResubscribeBeforeUnsubscribeAck(t *testing.T) {
	manager, _, directory := newTestManager(50)
	symbol := bitfinex.TickerSymbol{Pair: "BTCUSD"}

	if err := manager.SubscribeTicker(symbol); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	manager.OnSubscribeAck(symbol, 30)
	if err := manager.UnsubscribeTicker(symbol); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}

	// No unsubscribed ack yet; the freed symbol can subscribe again
	if err := manager.SubscribeTicker(symbol); err != nil {
		t.Fatalf("resubscribe before ack failed: %v", err)
	}
	if got := manager.State(symbol); got != StatePending {
		t.Errorf("expected pending state after resubscribe, got %v", got)
	}

	// The late ack for the old channel must not disturb the new pending
	// subscription: channel 30 is no longer bound to any symbol.
	manager.OnUnsubscribeAck(30)
	if got := manager.State(symbol); got != StatePending {
		t.Errorf("late unsubscribe ack clobbered pending state: %v", got)
	}
	if got := directory.ChannelFor(symbol); got != channels.NoChannel {
		t.Errorf("unexpected channel binding: %d", got)
	}
}

// go test -v --run TestHandleTickDispatchesAndTouchesHeartbeat
func TestHandleTickDispatchesAndTouchesHeartbeat(t *testing.T) {
	manager, _, _ := newTestManager(50)
	symbol := bitfinex.TickerSymbol{Pair: "ETHUSD"}

	if got := manager.LastActivity(symbol); got != heartbeat.NeverSeen {
		t.Fatalf("expected sentinel before any event, got %d", got)
	}

	ticks := make(chan bitfinex.Tick, 3)
	manager.RegisterTickCallback(symbol, func(sym bitfinex.TickerSymbol, tick bitfinex.Tick) {
		if sym != symbol {
			t.Errorf("callback received wrong symbol: %v", sym)
		}
		ticks <- tick
	})

	manager.HandleTick(symbol, bitfinex.Tick{LastPrice: 1})
	first := manager.LastActivity(symbol)

	manager.HandleTick(symbol, bitfinex.Tick{LastPrice: 2})
	manager.HandleTick(symbol, bitfinex.Tick{LastPrice: 3})

	seen := map[float64]bool{}
	for i := 0; i < 3; i++ {
		seen[recvTick(t, ticks).LastPrice] = true
	}
	for _, price := range []float64{1, 2, 3} {
		if !seen[price] {
			t.Errorf("missing tick with price %v", price)
		}
	}

	if third := manager.LastActivity(symbol); third < first {
		t.Errorf("heartbeat moved backwards: %d then %d", first, third)
	}
	if first < 0 {
		t.Errorf("expected real heartbeat after first event, got %d", first)
	}
}

// go test -v --run TestCandleCollectionDispatch
func TestCandleCollectionDispatch(t *testing.T) {
	manager, _, _ := newTestManager(50)
	symbol := bitfinex.CandlestickSymbol{Pair: "BTCUSD", Timeframe: bitfinex.Timeframe1Min}

	candles := make(chan bitfinex.Candle, 2)
	manager.RegisterCandlestickCallback(symbol, func(_ bitfinex.CandlestickSymbol, c bitfinex.Candle) {
		candles <- c
	})

	manager.HandleCandlestickCollection(symbol, []bitfinex.Candle{
		{Timestamp: 1000, Close: 7500},
		{Timestamp: 2000, Close: 7510},
	})

	for i := 0; i < 2; i++ {
		select {
		case <-candles:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for candle callback")
		}
	}
	if got := manager.LastActivity(symbol); got == heartbeat.NeverSeen {
		t.Error("collection ingestion did not touch the heartbeat")
	}
}

// go test -v --run TestResetClearsEverything
func TestResetClearsEverything(t *testing.T) {
	manager, _, directory := newTestManager(50)
	symbol := bitfinex.TickerSymbol{Pair: "BTCUSD"}

	if err := manager.SubscribeTicker(symbol); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	manager.OnSubscribeAck(symbol, 30)
	manager.HandleTick(symbol, bitfinex.Tick{LastPrice: 7500})

	manager.Reset()

	if got := directory.Size(); got != 0 {
		t.Errorf("directory survived reset: %d entries", got)
	}
	if got := manager.LastActivity(symbol); got != heartbeat.NeverSeen {
		t.Errorf("heartbeat survived reset: %d", got)
	}
	if got := manager.State(symbol); got != StateUnsubscribed {
		t.Errorf("state survived reset: %v", got)
	}
}
