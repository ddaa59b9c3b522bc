package model

import (
	"time"

	"github.com/google/uuid"
)

// BankTransaction is an inbound credit imported from the therapist's banking
// aggregator export. Rows are read-only once imported; "claimed" means a
// Payment references the transaction.
type BankTransaction struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TherapistID uuid.UUID `gorm:"type:uuid;index;not null"`
	// ExternalID deduplicates re-imports of the same aggregator export.
	ExternalID  string    `gorm:"uniqueIndex;not null"`
	AmountCents int64     `gorm:"not null"`
	Description string    `gorm:"not null"`
	Date        time.Time `gorm:"type:date;index;not null"`
	SenderName  string
	// SenderDocument is the payer CPF/CNPJ when the aggregator exposes it
	// (Pix credits usually do, TED/DOC sometimes, cash deposits never).
	SenderDocument string `gorm:"type:varchar(20)"`
	Type           string `gorm:"type:varchar(20)"` // pix | ted | doc | deposit
	CreatedAt      time.Time
}
