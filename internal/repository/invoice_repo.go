package repository

import (
	"context"
	"time"

	"github.com/kupferco/lv-notas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	// FindBlockingByPeriod returns the invoice that blocks a new issuance for
	// the period: an issued one, or one still processing.
	FindBlockingByPeriod(ctx context.Context, periodID uuid.UUID) (*model.Invoice, error)
	ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]model.Invoice, error)
	Update(ctx context.Context, inv *model.Invoice) error
	// ListPendingStatusChecks feeds the status cron: processing invoices whose
	// next poll is due.
	ListPendingStatusChecks(ctx context.Context, now time.Time, limit int) ([]model.Invoice, error)
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).First(&inv, id).Error
	return &inv, err
}

func (r *invoiceRepo) FindBlockingByPeriod(ctx context.Context, periodID uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).
		Where("billing_period_id = ? AND status IN ?", periodID, []string{model.InvoiceIssued, model.InvoiceProcessing}).
		First(&inv).Error
	return &inv, err
}

func (r *invoiceRepo) ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("billing_period_id = ?", periodID).
		Order("created_at DESC").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) Update(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

func (r *invoiceRepo) ListPendingStatusChecks(ctx context.Context, now time.Time, limit int) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", model.InvoiceProcessing, now).
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}
