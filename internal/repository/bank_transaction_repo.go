package repository

import (
	"context"
	"time"

	"github.com/kupferco/lv-notas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BankTransactionRepository interface {
	// BulkInsert imports aggregator rows, silently skipping external ids that
	// were imported before. Returns how many rows were actually inserted.
	BulkInsert(ctx context.Context, txns []model.BankTransaction) (int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.BankTransaction, error)
	// ListUnclaimedInRange returns transactions in [start, end] not yet linked
	// to any payment.
	ListUnclaimedInRange(ctx context.Context, therapistID uuid.UUID, start, end time.Time) ([]model.BankTransaction, error)
}

type bankTransactionRepo struct{ db *gorm.DB }

func NewBankTransactionRepository(db *gorm.DB) BankTransactionRepository {
	return &bankTransactionRepo{db: db}
}

func (r *bankTransactionRepo) BulkInsert(ctx context.Context, txns []model.BankTransaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true}).
		Create(&txns)
	return int(res.RowsAffected), res.Error
}

func (r *bankTransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.BankTransaction, error) {
	var t model.BankTransaction
	err := r.db.WithContext(ctx).First(&t, id).Error
	return &t, err
}

func (r *bankTransactionRepo) ListUnclaimedInRange(ctx context.Context, therapistID uuid.UUID, start, end time.Time) ([]model.BankTransaction, error) {
	var txns []model.BankTransaction
	err := r.db.WithContext(ctx).
		Where("therapist_id = ? AND date BETWEEN ? AND ?", therapistID, start, end).
		Where("id NOT IN (SELECT bank_transaction_id FROM payments WHERE bank_transaction_id IS NOT NULL)").
		Order("date ASC").
		Find(&txns).Error
	return txns, err
}
