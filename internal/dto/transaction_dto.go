package dto

// ImportTransactionItem is one row of a banking-aggregator export, already
// mapped by the caller to the engine-facing shape. Amounts are integer cents.
type ImportTransactionItem struct {
	ExternalID     string `json:"external_id" validate:"required"`
	AmountCents    int64  `json:"amount_cents" validate:"required,gt=0"`
	Description    string `json:"description"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	SenderName     string `json:"sender_name"`
	SenderDocument string `json:"sender_document"`
	Type           string `json:"type" validate:"omitempty,oneof=pix ted doc deposit"`
}

type ImportTransactionsRequest struct {
	Transactions []ImportTransactionItem `json:"transactions" validate:"required,min=1,max=1000,dive"`
}

type ImportTransactionsResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"` // duplicates of already-imported external ids
}
