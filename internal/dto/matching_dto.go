package dto

// MatchFilter is bound from the query string of GET /v1/matches.
type MatchFilter struct {
	Start string `form:"start" validate:"required,datetime=2006-01-02"`
	End   string `form:"end" validate:"required,datetime=2006-01-02"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// MatchResponse is one advisory suggestion: the single best candidate period
// for one unclaimed bank transaction. Nothing is persisted — the operator
// must confirm it through POST /v1/payments.
type MatchResponse struct {
	TransactionID   string   `json:"transaction_id"`
	BillingPeriodID string   `json:"billing_period_id"`
	PatientID       string   `json:"patient_id"`
	PatientName     string   `json:"patient_name"`
	Confidence      float64  `json:"confidence"`
	Reasons         []string `json:"reasons"`

	// Pre-filled values for the RecordPayment confirmation form.
	SuggestedAmountCents int64  `json:"suggested_amount_cents"`
	SuggestedDate        string `json:"suggested_date"`
	SuggestedMethod      string `json:"suggested_method"`
	SuggestedReference   string `json:"suggested_reference"`
}

type MatchListResponse struct {
	Data  []MatchResponse `json:"data"`
	Total int             `json:"total"`
}
