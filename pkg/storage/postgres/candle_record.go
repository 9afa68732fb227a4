package postgres

import "time"

// CandleRecord represents one candlestick stored in the database. Candle
// channels resend the open window repeatedly, so (pair, timeframe, start)
// is unique and inserts upsert in place.
type CandleRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Pair      string    `gorm:"type:text;not null;index:idx_candle_pair;index:idx_pair_timeframe_start,unique"`
	Timeframe string    `gorm:"type:varchar(10);not null;index:idx_pair_timeframe_start,unique"`
	Start     time.Time `gorm:"not null;index:idx_pair_timeframe_start,unique"`

	Open  float64 `gorm:"type:numeric;not null"`
	Close float64 `gorm:"type:numeric;not null"`
	High  float64 `gorm:"type:numeric;not null"`
	Low   float64 `gorm:"type:numeric;not null"`

	Volume float64 `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (CandleRecord) TableName() string {
	return "candle_record"
}

// WalletRecord represents one balance snapshot stored in the database,
// keyed by (wallet type, currency); new snapshots overwrite old ones.
type WalletRecord struct {
	ID uint `gorm:"primaryKey"`

	WalletType string `gorm:"type:varchar(16);not null;index:idx_wallet_type_currency,unique"`
	Currency   string `gorm:"type:varchar(16);not null;index:idx_wallet_type_currency,unique"`

	Balance          float64 `gorm:"type:numeric;not null"`
	BalanceAvailable float64 `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (WalletRecord) TableName() string {
	return "wallet_record"
}
