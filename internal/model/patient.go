package model

import (
	"time"

	"github.com/google/uuid"
)

// Patient belongs to exactly one therapist. SessionPriceCents is the per-session
// price applied when a month is processed; changing it later never affects
// already-processed periods (their snapshots carry the billed total).
type Patient struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TherapistID uuid.UUID `gorm:"type:uuid;index;not null"`
	Name        string    `gorm:"not null"`
	// Document is the patient's CPF, digits only or formatted — matching
	// normalizes before comparing.
	Document          *string `gorm:"type:varchar(20)"`
	Email             *string
	Phone             *string `gorm:"type:varchar(30)"`
	SessionPriceCents int64   `gorm:"not null"`
	// BillingStartDate: sessions before this date are never billable, even if
	// they exist in the agenda (the therapist may have migrated mid-treatment).
	BillingStartDate time.Time `gorm:"type:date;not null"`
	Active           bool      `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
