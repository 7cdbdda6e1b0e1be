package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type transactionRow struct {
	Seq         uint64 `gorm:"primaryKey;autoIncrement"`
	TxID        string `gorm:"column:tx_id;size:96;uniqueIndex"`
	CustomerKey string `gorm:"size:128;index"`
	Payload     string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (transactionRow) TableName() string { return "ledger_transactions" }

// SQLiteRepository keeps the ledger in the local gorm database.
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository migrates the ledger table and returns the repository.
func NewSQLiteRepository(db *gorm.DB) (*SQLiteRepository, error) {
	if err := db.AutoMigrate(&transactionRow{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Insert appends tx unless its identifier is already stored.
func (r *SQLiteRepository) Insert(ctx context.Context, tx Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var count int64
		if err := db.Model(&transactionRow{}).Where("tx_id = ?", tx.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateTransaction
		}
		row := transactionRow{
			TxID:        tx.ID,
			CustomerKey: strings.ToLower(tx.Customer),
			Payload:     string(payload),
		}
		return db.Create(&row).Error
	})
}

// List returns every record, most recent first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Transaction, error) {
	var rows []transactionRow
	if err := r.db.WithContext(ctx).Order("seq desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

// ByCustomer returns the records of customer, most recent first.
func (r *SQLiteRepository) ByCustomer(ctx context.Context, customer string) ([]Transaction, error) {
	var rows []transactionRow
	err := r.db.WithContext(ctx).
		Where("customer_key = ?", strings.ToLower(customer)).
		Order("seq desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

// Clear deletes every record.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&transactionRow{}).Error
}

func decodeRows(rows []transactionRow) ([]Transaction, error) {
	out := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		var tx Transaction
		if err := json.Unmarshal([]byte(row.Payload), &tx); err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", row.TxID, err)
		}
		out = append(out, tx)
	}
	return out, nil
}
