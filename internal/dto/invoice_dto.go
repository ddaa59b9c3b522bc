package dto

type RequestInvoiceRequest struct {
	BillingPeriodID string `json:"billing_period_id" validate:"required,uuid"`
}

type CancelInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

type InvoiceResponse struct {
	ID                string  `json:"id"`
	BillingPeriodID   string  `json:"billing_period_id"`
	ProviderInvoiceID *string `json:"provider_invoice_id"`
	Status            string  `json:"status"`
	IssuedAt          *string `json:"issued_at"`
	ErrorMessage      *string `json:"error_message"`
	CancelReason      *string `json:"cancel_reason,omitempty"`
	PDFUrl            *string `json:"pdf_url,omitempty"`
	CreatedAt         string  `json:"created_at"`
}
