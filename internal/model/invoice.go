package model

import (
	"time"

	"github.com/google/uuid"
)

// Invoice statuses. "issued" is guarded by a partial unique index on
// billing_period_id — re-issuance requires cancelling first.
const (
	InvoiceIssued     = "issued"
	InvoiceProcessing = "processing"
	InvoiceError      = "error"
	InvoiceCancelled  = "cancelled"
)

// Invoice records one NFS-e issuance attempt against the external provider.
// Failed attempts stay as "error" rows (audit trail) and never block a retry.
type Invoice struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BillingPeriodID uuid.UUID `gorm:"type:uuid;index;not null"`
	// ProviderInvoiceID is the provider's own document identifier, set once
	// the provider accepts the request.
	ProviderInvoiceID *string `gorm:"type:varchar(60)"`
	Status            string  `gorm:"type:varchar(12);not null"`
	IssuedAt          *time.Time
	ErrorMessage      *string
	CancelReason      *string
	// PDFPath is relative to PDF_STORAGE_PATH; nil until the PDF is downloaded.
	PDFPath *string
	// Retry bookkeeping — used by the status cron to resolve "processing" rows.
	RetryCount  int `gorm:"not null;default:0"`
	NextRetryAt *time.Time
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
