package dto

// ProcessChargesRequest creates the billing period for one patient-month.
type ProcessChargesRequest struct {
	PatientID string `json:"patient_id" validate:"required,uuid"`
	Year      int    `json:"year" validate:"required,min=2000,max=2100"`
	Month     int    `json:"month" validate:"required,min=1,max=12"`
}

type VoidPeriodRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

type SessionSnapshotResponse struct {
	ExternalEventID string `json:"external_event_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PatientName     string `json:"patient_name"`
}

type PaymentResponse struct {
	ID                string  `json:"id"`
	BillingPeriodID   string  `json:"billing_period_id"`
	AmountCents       int64   `json:"amount_cents"`
	Method            string  `json:"method"`
	PaymentDate       string  `json:"payment_date"`
	ReferenceNumber   *string `json:"reference_number"`
	BankTransactionID *string `json:"bank_transaction_id"`
	CreatedAt         string  `json:"created_at"`
}

type BillingPeriodResponse struct {
	ID               string                    `json:"id"`
	PatientID        string                    `json:"patient_id"`
	Year             int                       `json:"year"`
	Month            int                       `json:"month"`
	SessionCount     int                       `json:"session_count"`
	TotalAmountCents int64                     `json:"total_amount_cents"`
	Reference        string                    `json:"reference"`
	Status           string                    `json:"status"`
	VoidReason       *string                   `json:"void_reason,omitempty"`
	ProcessedAt      string                    `json:"processed_at"`
	Snapshots        []SessionSnapshotResponse `json:"snapshots,omitempty"`
	Payments         []PaymentResponse         `json:"payments,omitempty"`
}

// BillingSummaryRow is one line of GET /v1/billing/summary: the month's state
// for one active patient. Status "can_process" means no non-void period exists.
type BillingSummaryRow struct {
	PatientID        string `json:"patient_id"`
	PatientName      string `json:"patient_name"`
	BillingPeriodID  string `json:"billing_period_id,omitempty"`
	SessionCount     int    `json:"session_count"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	PaidAmountCents  int64  `json:"paid_amount_cents"`
	Reference        string `json:"reference,omitempty"`
	Status           string `json:"status"` // can_process | processed | paid
}

type BillingSummaryResponse struct {
	Year  int                 `json:"year"`
	Month int                 `json:"month"`
	Data  []BillingSummaryRow `json:"data"`
}
