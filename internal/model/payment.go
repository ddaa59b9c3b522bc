package model

import (
	"time"

	"github.com/google/uuid"
)

// Payment methods.
const (
	MethodPix      = "pix"
	MethodTransfer = "transfer"
	MethodCash     = "cash"
	MethodCard     = "card"
)

// Payment settles a billing period. The amount is stored as confirmed by the
// operator and need not equal the period total. BankTransactionID carries a
// UNIQUE index so a bank transaction can back at most one payment, no matter
// which patient or period it was matched against.
type Payment struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BillingPeriodID uuid.UUID `gorm:"type:uuid;index;not null"`
	AmountCents     int64     `gorm:"not null"`
	Method          string    `gorm:"type:varchar(12);not null"`
	PaymentDate     time.Time `gorm:"type:date;not null"`
	ReferenceNumber *string   `gorm:"type:varchar(60)"`
	BankTransactionID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	CreatedAt         time.Time
}
