package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPeriodReferenceFormat(t *testing.T) {
	ref := PeriodReference(uuid.New(), uuid.New(), 2025, 6)
	assert.Regexp(t, `^LV-202506-[0-9A-F]{8}$`, ref)
}

func TestPeriodReferenceDistinctAcrossPatients(t *testing.T) {
	therapistID := uuid.New()
	a := PeriodReference(therapistID, uuid.New(), 2025, 6)
	b := PeriodReference(therapistID, uuid.New(), 2025, 6)
	assert.NotEqual(t, a, b)
}

func TestMonthEnd(t *testing.T) {
	p := BillingPeriod{Year: 2025, Month: 6}
	assert.Equal(t, time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC), p.MonthEnd())

	// Leap February
	p = BillingPeriod{Year: 2024, Month: 2}
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), p.MonthEnd())

	// December rolls into the next year correctly
	p = BillingPeriod{Year: 2025, Month: 12}
	assert.Equal(t, time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), p.MonthEnd())
}
