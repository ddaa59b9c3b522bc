package dto

type CreatePatientRequest struct {
	Name              string  `json:"name" validate:"required"`
	Document          *string `json:"document" validate:"omitempty,min=11,max=18"`
	Email             *string `json:"email" validate:"omitempty,email"`
	Phone             *string `json:"phone"`
	SessionPriceCents int64   `json:"session_price_cents" validate:"required,gt=0"`
	BillingStartDate  string  `json:"billing_start_date" validate:"required,datetime=2006-01-02"`
}

type UpdatePatientRequest struct {
	Name              *string `json:"name"`
	Document          *string `json:"document" validate:"omitempty,min=11,max=18"`
	Email             *string `json:"email" validate:"omitempty,email"`
	Phone             *string `json:"phone"`
	SessionPriceCents *int64  `json:"session_price_cents" validate:"omitempty,gt=0"`
	BillingStartDate  *string `json:"billing_start_date" validate:"omitempty,datetime=2006-01-02"`
}

type PatientResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Document          *string `json:"document"`
	Email             *string `json:"email"`
	Phone             *string `json:"phone"`
	SessionPriceCents int64   `json:"session_price_cents"`
	BillingStartDate  string  `json:"billing_start_date"`
	Active            bool    `json:"active"`
}

// OutstandingResponse reports the patient's oldest unpaid period, if any.
// Always a single entry even when several months are open — the chronology
// rule forces them to be settled oldest-first anyway.
type OutstandingResponse struct {
	HasOutstanding   bool   `json:"has_outstanding"`
	AmountCents      int64  `json:"amount_cents"`
	OldestUnpaidYear int    `json:"oldest_unpaid_year,omitempty"`
	OldestUnpaidMonth int   `json:"oldest_unpaid_month,omitempty"`
	BillingPeriodID  string `json:"billing_period_id,omitempty"`
	Reference        string `json:"reference,omitempty"`
}
