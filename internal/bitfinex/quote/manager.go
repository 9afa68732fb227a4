package quote

import (
	"errors"
	"fmt"
	"sync"

	"bfxfeed/internal/bitfinex/channels"
	"bfxfeed/internal/bitfinex/dispatch"
	"bfxfeed/internal/bitfinex/heartbeat"
	"bfxfeed/pkg/bitfinex"

	"go.uber.org/zap"
)

// ErrUnknownSymbol is returned when an operation references a symbol that
// has no channel assigned on this connection.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Broker is the transport-side collaborator outbound commands are handed
// to. Sends are fire-and-forget; remote confirmations come back as inbound
// events, not return values.
type Broker interface {
	SendCommand(cmd bitfinex.Command) error
}

// SubscriptionState tracks a symbol through its lifecycle. It is explicit
// rather than inferred from directory presence so acknowledgement routing
// has unambiguous state to correct.
type SubscriptionState int

const (
	StateUnsubscribed SubscriptionState = iota
	StatePending                        // subscribe sent, no channel assigned yet
	StateActive                         // channel assigned by the remote side
)

func (s SubscriptionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	default:
		return "unsubscribed"
	}
}

// Manager is the subscription and event-routing core for market-data
// streams. It owns the heartbeat ledger and one callback registry per event
// category, and shares the channel directory with the ack-routing path.
type Manager struct {
	broker     Broker
	directory  *channels.Directory
	guard      *channels.Guard
	heartbeats *heartbeat.Tracker

	tickerCallbacks *dispatch.Registry[bitfinex.TickerSymbol, bitfinex.Tick]
	candleCallbacks *dispatch.Registry[bitfinex.CandlestickSymbol, bitfinex.Candle]
	tradeCallbacks  *dispatch.Registry[bitfinex.ExecutedTradeSymbol, bitfinex.ExecutedTrade]

	stateMu sync.Mutex
	states  map[bitfinex.StreamSymbol]SubscriptionState

	logger *zap.Logger
}

func NewManager(broker Broker, directory *channels.Directory, guard *channels.Guard,
	pool *dispatch.Pool, logger *zap.Logger) *Manager {
	return &Manager{
		broker:          broker,
		directory:       directory,
		guard:           guard,
		heartbeats:      heartbeat.NewTracker(),
		tickerCallbacks: dispatch.NewRegistry[bitfinex.TickerSymbol, bitfinex.Tick](pool),
		candleCallbacks: dispatch.NewRegistry[bitfinex.CandlestickSymbol, bitfinex.Candle](pool),
		tradeCallbacks:  dispatch.NewRegistry[bitfinex.ExecutedTradeSymbol, bitfinex.ExecutedTrade](pool),
		states:          make(map[bitfinex.StreamSymbol]SubscriptionState),
		logger:          logger,
	}
}

// SubscribeTicker subscribes the ticker stream of one pair. The call
// returns once the command is handed to the broker; the channel id arrives
// later through OnSubscribeAck.
func (m *Manager) SubscribeTicker(symbol bitfinex.TickerSymbol) error {
	return m.subscribe(symbol, bitfinex.SubscribeTickerCommand{Symbol: symbol})
}

// SubscribeCandles subscribes the candle stream of one pair and timeframe.
func (m *Manager) SubscribeCandles(symbol bitfinex.CandlestickSymbol) error {
	return m.subscribe(symbol, bitfinex.SubscribeCandlesCommand{Symbol: symbol})
}

// SubscribeExecutedTrades subscribes the executed-trades stream of one pair.
func (m *Manager) SubscribeExecutedTrades(symbol bitfinex.ExecutedTradeSymbol) error {
	return m.subscribe(symbol, bitfinex.SubscribeTradesCommand{Symbol: symbol})
}

func (m *Manager) subscribe(symbol bitfinex.StreamSymbol, cmd bitfinex.Command) error {
	if err := m.guard.EnsureCapacity(); err != nil {
		return err
	}
	if err := m.broker.SendCommand(cmd); err != nil {
		return fmt.Errorf("send subscribe for %s: %w", symbol.SubscriptionKey(), err)
	}
	m.setState(symbol, StatePending)

	m.logger.Debug("subscribe sent", zap.String("symbol", symbol.SubscriptionKey()))
	return nil
}

// UnsubscribeTicker drops the ticker subscription of one pair.
func (m *Manager) UnsubscribeTicker(symbol bitfinex.TickerSymbol) error {
	return m.unsubscribe(symbol)
}

// UnsubscribeCandles drops the candle subscription of one pair and timeframe.
func (m *Manager) UnsubscribeCandles(symbol bitfinex.CandlestickSymbol) error {
	return m.unsubscribe(symbol)
}

// UnsubscribeExecutedTrades drops the executed-trades subscription of one pair.
func (m *Manager) UnsubscribeExecutedTrades(symbol bitfinex.ExecutedTradeSymbol) error {
	return m.unsubscribe(symbol)
}

func (m *Manager) unsubscribe(symbol bitfinex.StreamSymbol) error {
	channelID := m.directory.ChannelFor(symbol)
	if channelID == channels.NoChannel {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol.SubscriptionKey())
	}

	m.heartbeats.Remove(symbol)

	if err := m.broker.SendCommand(bitfinex.UnsubscribeChannelCommand{ChannelID: channelID}); err != nil {
		return fmt.Errorf("send unsubscribe for %s: %w", symbol.SubscriptionKey(), err)
	}

	// The entry is released before the remote side confirms. A rejected
	// unsubscribe leaves local and remote state diverged until reconnect.
	m.directory.Release(symbol)
	m.setState(symbol, StateUnsubscribed)

	m.logger.Debug("unsubscribe sent",
		zap.String("symbol", symbol.SubscriptionKey()),
		zap.Int("channel", channelID))
	return nil
}

// RegisterTickCallback registers a callback for tick events of one pair.
func (m *Manager) RegisterTickCallback(symbol bitfinex.TickerSymbol,
	cb dispatch.Callback[bitfinex.TickerSymbol, bitfinex.Tick]) {
	m.tickerCallbacks.Register(symbol, cb)
}

// RemoveTickCallback removes one matching tick callback.
func (m *Manager) RemoveTickCallback(symbol bitfinex.TickerSymbol,
	cb dispatch.Callback[bitfinex.TickerSymbol, bitfinex.Tick]) bool {
	return m.tickerCallbacks.Remove(symbol, cb)
}

// RegisterCandlestickCallback registers a callback for candle events.
func (m *Manager) RegisterCandlestickCallback(symbol bitfinex.CandlestickSymbol,
	cb dispatch.Callback[bitfinex.CandlestickSymbol, bitfinex.Candle]) {
	m.candleCallbacks.Register(symbol, cb)
}

// RemoveCandlestickCallback removes one matching candle callback.
func (m *Manager) RemoveCandlestickCallback(symbol bitfinex.CandlestickSymbol,
	cb dispatch.Callback[bitfinex.CandlestickSymbol, bitfinex.Candle]) bool {
	return m.candleCallbacks.Remove(symbol, cb)
}

// RegisterExecutedTradeCallback registers a callback for executed trades.
func (m *Manager) RegisterExecutedTradeCallback(symbol bitfinex.ExecutedTradeSymbol,
	cb dispatch.Callback[bitfinex.ExecutedTradeSymbol, bitfinex.ExecutedTrade]) {
	m.tradeCallbacks.Register(symbol, cb)
}

// RemoveExecutedTradeCallback removes one matching executed-trade callback.
func (m *Manager) RemoveExecutedTradeCallback(symbol bitfinex.ExecutedTradeSymbol,
	cb dispatch.Callback[bitfinex.ExecutedTradeSymbol, bitfinex.ExecutedTrade]) bool {
	return m.tradeCallbacks.Remove(symbol, cb)
}

// HandleTick is the ingestion point for one tick. The producer goroutine
// only touches the heartbeat and snapshots the callback set; callback
// bodies run on the pool.
func (m *Manager) HandleTick(symbol bitfinex.TickerSymbol, tick bitfinex.Tick) {
	m.heartbeats.Touch(symbol)
	m.tickerCallbacks.DispatchOne(symbol, tick)
}

// HandleCandlestick ingests a single candle update.
func (m *Manager) HandleCandlestick(symbol bitfinex.CandlestickSymbol, candle bitfinex.Candle) {
	m.heartbeats.Touch(symbol)
	m.candleCallbacks.DispatchOne(symbol, candle)
}

// HandleCandlestickCollection ingests a candle snapshot.
func (m *Manager) HandleCandlestickCollection(symbol bitfinex.CandlestickSymbol, candles []bitfinex.Candle) {
	m.heartbeats.Touch(symbol)
	m.candleCallbacks.DispatchBatch(symbol, candles)
}

// HandleExecutedTrade ingests a single executed trade.
func (m *Manager) HandleExecutedTrade(symbol bitfinex.ExecutedTradeSymbol, trade bitfinex.ExecutedTrade) {
	m.heartbeats.Touch(symbol)
	m.tradeCallbacks.DispatchOne(symbol, trade)
}

// HandleExecutedTradeCollection ingests a trade snapshot.
func (m *Manager) HandleExecutedTradeCollection(symbol bitfinex.ExecutedTradeSymbol, trades []bitfinex.ExecutedTrade) {
	m.heartbeats.Touch(symbol)
	m.tradeCallbacks.DispatchBatch(symbol, trades)
}

// HandleChannelHeartbeat records liveness for a symbol whose channel sent a
// heartbeat frame without data.
func (m *Manager) HandleChannelHeartbeat(symbol bitfinex.StreamSymbol) {
	m.heartbeats.Touch(symbol)
}

// OnSubscribeAck is invoked by the ack-routing path when the remote side
// confirms a subscription and assigns its channel id.
func (m *Manager) OnSubscribeAck(symbol bitfinex.StreamSymbol, channelID int) {
	m.directory.Assign(symbol, channelID)
	m.setState(symbol, StateActive)

	m.logger.Info("subscription acknowledged",
		zap.String("symbol", symbol.SubscriptionKey()),
		zap.Int("channel", channelID))
}

// OnUnsubscribeAck reconciles a confirmed unsubscription. The directory
// entry is normally gone already (released optimistically); a leftover
// binding means the unsubscribe was issued elsewhere and is dropped here.
func (m *Manager) OnUnsubscribeAck(channelID int) {
	symbol, ok := m.directory.SymbolFor(channelID)
	if !ok {
		return
	}
	m.directory.Release(symbol)
	m.heartbeats.Remove(symbol)
	m.setState(symbol, StateUnsubscribed)

	m.logger.Info("unsubscription acknowledged",
		zap.String("symbol", symbol.SubscriptionKey()),
		zap.Int("channel", channelID))
}

// State returns the current subscription state of the symbol.
func (m *Manager) State(symbol bitfinex.StreamSymbol) SubscriptionState {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.states[symbol]
}

// LastActivity returns the symbol's heartbeat timestamp, or
// heartbeat.NeverSeen if no event arrived yet.
func (m *Manager) LastActivity(symbol bitfinex.StreamSymbol) int64 {
	return m.heartbeats.LastActivity(symbol)
}

// HeartbeatSnapshot returns a copy of the whole heartbeat ledger.
func (m *Manager) HeartbeatSnapshot() map[bitfinex.StreamSymbol]int64 {
	return m.heartbeats.Snapshot()
}

// Reset clears heartbeats, directory entries and subscription states.
// Called on reconnect before subscriptions are replayed.
func (m *Manager) Reset() {
	m.heartbeats.ClearAll()
	m.directory.Clear()

	m.stateMu.Lock()
	m.states = make(map[bitfinex.StreamSymbol]SubscriptionState)
	m.stateMu.Unlock()
}

func (m *Manager) setState(symbol bitfinex.StreamSymbol, state SubscriptionState) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if state == StateUnsubscribed {
		delete(m.states, symbol)
		return
	}
	m.states[symbol] = state
}
