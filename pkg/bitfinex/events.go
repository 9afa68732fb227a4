package bitfinex

// Tick represents a single ticker update for a currency pair.
// Field order follows the wire array: [BID, BID_SIZE, ASK, ASK_SIZE,
// DAILY_CHANGE, DAILY_CHANGE_REL, LAST_PRICE, VOLUME, HIGH, LOW].
type Tick struct {
	Bid            float64 `json:"bid"`
	BidSize        float64 `json:"bid_size"`
	Ask            float64 `json:"ask"`
	AskSize        float64 `json:"ask_size"`
	DailyChange    float64 `json:"daily_change"`
	DailyChangeRel float64 `json:"daily_change_rel"`
	LastPrice      float64 `json:"last_price"`
	Volume         float64 `json:"volume"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Timestamp      int64   `json:"timestamp"` // Time the update was ingested (ms since epoch)
}

// Candle represents a single candlestick from a candles channel.
// Wire order: [MTS, OPEN, CLOSE, HIGH, LOW, VOLUME].
type Candle struct {
	Timestamp int64   `json:"timestamp"` // Start of the candle window (ms since epoch)
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"volume"`
}

// ExecutedTrade represents one trade executed on the remote side.
// Wire order: [ID, MTS, AMOUNT, PRICE]; a negative amount is a sell.
type ExecutedTrade struct {
	ID        int64   `json:"id"`
	Timestamp int64   `json:"timestamp"` // Execution time (ms since epoch)
	Amount    float64 `json:"amount"`
	Price     float64 `json:"price"`
}

// Wallet types as reported in account wallet frames.
const (
	WalletTypeExchange = "exchange"
	WalletTypeMargin   = "margin"
	WalletTypeFunding  = "funding"
)

// Wallet is one balance snapshot keyed by (wallet type, currency).
// Wire order: [WALLET_TYPE, CURRENCY, BALANCE, UNSETTLED_INTEREST, BALANCE_AVAILABLE].
type Wallet struct {
	Type              string  `json:"type"`     // "exchange", "margin" or "funding"
	Currency          string  `json:"currency"` // e.g. "BTC"
	Balance           float64 `json:"balance"`
	UnsettledInterest float64 `json:"unsettled_interest"`
	BalanceAvailable  float64 `json:"balance_available"` // 0 until the server calculates it
}
