package postgres

import (
	"context"
	"time"

	"bfxfeed/pkg/bitfinex"

	"gorm.io/gorm/clause"
)

// UpsertCandle inserts the candle or refreshes the existing row for the
// same (pair, timeframe, start). Candle channels resend the open window on
// every trade, so the last write wins.
func (p *PostgresClient) UpsertCandle(ctx context.Context, record *CandleRecord) error {
	return p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "pair"},
			{Name: "timeframe"},
			{Name: "start"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"open", "close", "high", "low", "volume"}),
	}).Create(record).Error
}

func (p *PostgresClient) GetCandle(ctx context.Context, pair, timeframe string, start time.Time) (*CandleRecord, error) {
	var candle CandleRecord
	err := p.DB.WithContext(ctx).
		Where("pair = ? AND timeframe = ? AND start = ?", pair, timeframe, start).
		First(&candle).Error

	if err != nil {
		return nil, err
	}
	return &candle, nil
}

func (p *PostgresClient) GetCandlesByPair(ctx context.Context, pair, timeframe string) ([]CandleRecord, error) {
	var candles []CandleRecord
	err := p.DB.WithContext(ctx).
		Where("pair = ? AND timeframe = ?", pair, timeframe).
		Order("start ASC").
		Find(&candles).Error

	if err != nil {
		return nil, err
	}
	return candles, nil
}

func (p *PostgresClient) DeleteOldCandles(ctx context.Context, before time.Time) error {
	return p.DB.WithContext(ctx).
		Where("start < ?", before).
		Delete(&CandleRecord{}).Error
}

// ToCandleRecord converts a candle and its symbol into a record for DB
// insertion. The timeframe is stored in its DB label form ("1D" → "1d").
func ToCandleRecord(symbol bitfinex.CandlestickSymbol, c bitfinex.Candle) (*CandleRecord, error) {
	meta, err := symbol.Timeframe.Meta()
	if err != nil {
		return nil, err
	}

	return &CandleRecord{
		Pair:      symbol.Pair,
		Timeframe: meta.DBValue,
		Start:     time.UnixMilli(c.Timestamp),
		Open:      c.Open,
		Close:     c.Close,
		High:      c.High,
		Low:       c.Low,
		Volume:    c.Volume,
	}, nil
}
