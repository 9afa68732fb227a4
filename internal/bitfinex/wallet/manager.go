package wallet

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"bfxfeed/pkg/bitfinex"

	"go.uber.org/zap"
)

// ErrUnauthenticated is returned for wallet queries and commands issued
// before the connection completes authentication.
var ErrUnauthenticated = errors.New("connection is not authenticated")

// Connection is the transport-side collaborator: it reports authentication
// state and carries outbound commands.
type Connection interface {
	SendCommand(cmd bitfinex.Command) error
	IsAuthenticated() bool
}

// Key identifies one wallet. A currency can hold one balance per wallet
// type (exchange, margin, funding).
type Key struct {
	Type     string
	Currency string
}

// Manager owns the balance table. Bulk wallet updates arrive asynchronously
// from the account channel; reads happen on arbitrary caller goroutines.
// Updates build a fresh table and swap it atomically, so readers work on
// immutable snapshots and the read path takes no lock.
type Manager struct {
	conn Connection

	writeMu sync.Mutex // serializes table swaps
	table   atomic.Pointer[map[Key]bitfinex.Wallet]

	updateHook func([]bitfinex.Wallet)

	logger *zap.Logger
}

func NewManager(conn Connection, logger *zap.Logger) *Manager {
	m := &Manager{
		conn:   conn,
		logger: logger,
	}
	empty := make(map[Key]bitfinex.Wallet)
	m.table.Store(&empty)
	return m
}

// SetUpdateHook installs a function invoked after each applied bulk update
// with the records that changed. Used to attach persistence.
func (m *Manager) SetUpdateHook(hook func([]bitfinex.Wallet)) {
	m.updateHook = hook
}

// OnWalletUpdates applies a bulk update. Each record upserts its
// (wallet type, currency) cell; the last write wins, no merging.
func (m *Manager) OnWalletUpdates(wallets []bitfinex.Wallet) {
	if len(wallets) == 0 {
		return
	}

	m.writeMu.Lock()
	current := *m.table.Load()
	next := make(map[Key]bitfinex.Wallet, len(current)+len(wallets))
	for k, w := range current {
		next[k] = w
	}
	for _, w := range wallets {
		next[Key{Type: w.Type, Currency: w.Currency}] = w
	}
	m.table.Store(&next)
	m.writeMu.Unlock()

	m.logger.Debug("wallet table updated",
		zap.Int("records", len(wallets)),
		zap.Int("total", len(next)))

	if m.updateHook != nil {
		m.updateHook(wallets)
	}
}

// Wallets returns all balance records. Fails when the connection is not
// authenticated.
func (m *Manager) Wallets() ([]bitfinex.Wallet, error) {
	if err := m.requireAuth(); err != nil {
		return nil, err
	}

	snapshot := *m.table.Load()
	out := make([]bitfinex.Wallet, 0, len(snapshot))
	for _, w := range snapshot {
		out = append(out, w)
	}
	return out, nil
}

// WalletTable returns the current snapshot keyed by (type, currency). The
// returned map is never mutated after the swap; callers must treat it as
// read-only.
func (m *Manager) WalletTable() (map[Key]bitfinex.Wallet, error) {
	if err := m.requireAuth(); err != nil {
		return nil, err
	}
	return *m.table.Load(), nil
}

// CalculateMarginBalance asks the server to recalculate the margin balance
// for the currency. Fire-and-forget; the result arrives as a wallet update.
func (m *Manager) CalculateMarginBalance(currency string) error {
	return m.calculate("wallet_margin_" + currency)
}

// CalculateFundingBalance asks the server to recalculate the funding
// balance for the currency.
func (m *Manager) CalculateFundingBalance(currency string) error {
	return m.calculate("wallet_funding_" + currency)
}

func (m *Manager) calculate(target string) error {
	if err := m.requireAuth(); err != nil {
		return err
	}
	if err := m.conn.SendCommand(bitfinex.CalculateCommand{Target: target}); err != nil {
		return fmt.Errorf("send calc %s: %w", target, err)
	}
	return nil
}

func (m *Manager) requireAuth() error {
	if !m.conn.IsAuthenticated() {
		return ErrUnauthenticated
	}
	return nil
}
