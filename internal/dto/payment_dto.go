package dto

// RecordPaymentRequest confirms a payment against a billing period. When the
// payment was matched from a bank transaction, BankTransactionID links it so
// the transaction cannot be claimed twice.
type RecordPaymentRequest struct {
	BillingPeriodID   string  `json:"billing_period_id" validate:"required,uuid"`
	AmountCents       int64   `json:"amount_cents" validate:"required,gt=0"`
	Method            string  `json:"method" validate:"required,oneof=pix transfer cash card"`
	PaymentDate       string  `json:"payment_date" validate:"required,datetime=2006-01-02"`
	ReferenceNumber   *string `json:"reference_number"`
	BankTransactionID *string `json:"bank_transaction_id" validate:"omitempty,uuid"`
}
