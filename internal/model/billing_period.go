package model

import (
	"fmt"
	"hash/crc32"
	"time"

	"github.com/google/uuid"
)

// BillingPeriod statuses. A non-existent row is the implicit "can process"
// state; void is terminal and frees the (therapist, patient, year, month) key.
const (
	PeriodProcessed = "processed"
	PeriodPaid      = "paid"
	PeriodVoid      = "void"
)

// BillingPeriod is the monthly aggregation of a patient's billable sessions
// into one payable unit. At most one non-void row may exist per
// (therapist_id, patient_id, year, month) — enforced by a partial unique
// index created in infra.NewDatabase.
type BillingPeriod struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TherapistID uuid.UUID `gorm:"type:uuid;index;not null"`
	PatientID   uuid.UUID `gorm:"type:uuid;index;not null"`
	Year        int       `gorm:"not null"`
	Month       int       `gorm:"not null"` // 1-12
	SessionCount     int   `gorm:"not null"`
	TotalAmountCents int64 `gorm:"not null"`
	// Reference is the short code patients put in their transfer descriptions
	// ("LV-202506-8F3A21BC"); the matcher scans bank descriptions for it.
	Reference string  `gorm:"type:varchar(24);index;not null"`
	Status    string  `gorm:"type:varchar(12);not null;default:'processed'"`
	VoidReason  *string
	ProcessedAt time.Time `gorm:"not null"`
	ProcessedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Snapshots []SessionSnapshot `gorm:"foreignKey:BillingPeriodID"`
	Payments  []Payment         `gorm:"foreignKey:BillingPeriodID"`
}

// MonthEnd returns the last instant of the period's month in UTC. The matcher
// uses it for date-proximity tie-breaking.
func (p *BillingPeriod) MonthEnd() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, 0).Add(-time.Second)
}

// SessionSnapshot is the immutable record of a billed session captured at
// processing time. Rows are insert-only: billing disputes must reference
// exactly what was billed, independent of later edits in the agenda.
type SessionSnapshot struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BillingPeriodID uuid.UUID `gorm:"type:uuid;index;not null"`
	ExternalEventID string    `gorm:"not null"`
	SessionDate     time.Time `gorm:"type:date;not null"`
	SessionTime     string    `gorm:"type:varchar(5);not null"` // "14:00"
	PatientName     string    `gorm:"not null"`
	CreatedAt       time.Time
}

// PeriodReference derives the deterministic billing reference for a period
// key. Deterministic on purpose: voiding and reprocessing a month yields the
// same code, so a patient's saved transfer description stays valid.
func PeriodReference(therapistID, patientID uuid.UUID, year, month int) string {
	sum := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s|%s|%04d|%02d", therapistID, patientID, year, month)))
	return fmt.Sprintf("LV-%04d%02d-%08X", year, month, sum)
}
