package postgres

import (
	"context"

	"bfxfeed/pkg/bitfinex"

	"gorm.io/gorm/clause"
)

// UpsertWallet stores one balance snapshot, overwriting the previous row
// for the same (wallet type, currency).
func (p *PostgresClient) UpsertWallet(ctx context.Context, wallet bitfinex.Wallet) error {
	record := &WalletRecord{
		WalletType:       wallet.Type,
		Currency:         wallet.Currency,
		Balance:          wallet.Balance,
		BalanceAvailable: wallet.BalanceAvailable,
	}

	return p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "wallet_type"},
			{Name: "currency"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "balance_available", "recorded_at"}),
	}).Create(record).Error
}

func (p *PostgresClient) GetWallets(ctx context.Context) ([]WalletRecord, error) {
	var wallets []WalletRecord
	err := p.DB.WithContext(ctx).
		Order("wallet_type, currency").
		Find(&wallets).Error

	if err != nil {
		return nil, err
	}
	return wallets, nil
}
