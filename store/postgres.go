package store

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mainframehq/paymo-go/types"
)

// transactionRow is the relational shape of a TransactionRecord. The
// composite unique index carries the same idempotence the path key does:
// a retried write upserts onto the same row.
type transactionRow struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Account   string `gorm:"type:varchar(64);not null;uniqueIndex:idx_account_network_tx"`
	Network   string `gorm:"type:varchar(32);not null;uniqueIndex:idx_account_network_tx"`
	TxHash    string `gorm:"type:varchar(80);not null;uniqueIndex:idx_account_network_tx"`
	FromAddr  string `gorm:"type:varchar(64);not null"`
	ToAddr    string `gorm:"type:varchar(64);not null"`
	Value     string `gorm:"type:varchar(80);not null"`
	Note      string `gorm:"type:text"`
	Timestamp int64  `gorm:"not null;index"`
}

func (transactionRow) TableName() string {
	return "account_transactions"
}

// PostgresStore persists records in Postgres through gorm.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, types.Errorf(types.ErrStoreError, "connect postgres: %v", err)
	}

	if err := db.AutoMigrate(&transactionRow{}); err != nil {
		return nil, types.Errorf(types.ErrStoreError, "migrate schema: %v", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing gorm handle.
func NewPostgresStoreFromDB(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&transactionRow{}); err != nil {
		return nil, types.Errorf(types.ErrStoreError, "migrate schema: %v", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Put(ctx context.Context, key string, rec *types.TransactionRecord) error {
	account, network, txHash, err := SplitKey(key)
	if err != nil {
		return types.Errorf(types.ErrStoreError, "%v", err)
	}

	row := transactionRow{
		Account:   account,
		Network:   network,
		TxHash:    txHash,
		FromAddr:  rec.From,
		ToAddr:    rec.To,
		Value:     rec.Value,
		Note:      rec.Note,
		Timestamp: rec.Timestamp,
	}

	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}, {Name: "network"}, {Name: "tx_hash"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return types.Errorf(types.ErrStoreError, "write record %s: %v", key, err)
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, account, network string) ([]*types.TransactionRecord, error) {
	var rows []transactionRow
	err := p.db.WithContext(ctx).
		Where("account = ? AND network = ?", account, network).
		Order("timestamp ASC, tx_hash ASC").
		Find(&rows).Error
	if err != nil {
		return nil, types.Errorf(types.ErrStoreError, "list %s/%s: %v", account, network, err)
	}

	out := make([]*types.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, &types.TransactionRecord{
			From:      row.FromAddr,
			To:        row.ToAddr,
			Network:   row.Network,
			TxHash:    row.TxHash,
			Value:     row.Value,
			Note:      row.Note,
			Timestamp: row.Timestamp,
		})
	}
	return out, nil
}

func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
