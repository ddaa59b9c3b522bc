// Package apierror provides the typed error taxonomy of the billing engine and
// the standardized error response structures for the API. All errors returned
// to clients go through this package to ensure consistency and to prevent
// leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string { return e.Detail }

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Erro de validação", Code: "validation_error", Fields: fields}
}

// ── Domain errors ─────────────────────────────────────────────────────────────

// DomainError is a typed business failure. Services return these; handlers map
// them to HTTP statuses via Respond. Two DomainErrors compare equal under
// errors.Is when their Codes match, so `errors.Is(err, ErrAlreadyProcessed)`
// works on detail-annotated copies.
type DomainError struct {
	Code      string
	Status    int
	Detail    string
	Retryable bool
}

func (e *DomainError) Error() string { return e.Detail }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithDetailf returns a copy of the error carrying a contextualized message.
func (e *DomainError) WithDetailf(format string, args ...interface{}) *DomainError {
	clone := *e
	clone.Detail = fmt.Sprintf(format, args...)
	return &clone
}

var (
	// ErrValidation: malformed or semantically invalid input.
	ErrValidation = &DomainError{Code: "validation_error", Status: http.StatusUnprocessableEntity, Detail: "Entrada inválida"}
	// ErrAlreadyProcessed: a non-void billing period already exists for the
	// (therapist, patient, year, month) key. The caller must void first.
	ErrAlreadyProcessed = &DomainError{Code: "already_processed", Status: http.StatusConflict, Detail: "Período já processado"}
	// ErrNotFound: missing period/payment/invoice/patient.
	ErrNotFound = &DomainError{Code: "not_found", Status: http.StatusNotFound, Detail: "Registro não encontrado"}
	// ErrPeriodHasPayment: void blocked because payments exist.
	ErrPeriodHasPayment = &DomainError{Code: "period_has_payment", Status: http.StatusConflict, Detail: "Período possui pagamentos e não pode ser anulado"}
	// ErrChronologyViolation: an older unpaid period must be settled first.
	ErrChronologyViolation = &DomainError{Code: "chronology_violation", Status: http.StatusConflict, Detail: "Existe um período anterior em aberto"}
	// ErrCertificate: invoice blocked by missing/expired digital certificate.
	ErrCertificate = &DomainError{Code: "certificate_error", Status: http.StatusPreconditionFailed, Detail: "Certificado digital ausente ou vencido"}
	// ErrProvider: upstream invoice-provider failure. Safe to retry.
	ErrProvider = &DomainError{Code: "provider_error", Status: http.StatusBadGateway, Detail: "Falha no provedor de NFS-e", Retryable: true}
	// ErrConcurrencyConflict: lost a uniqueness race. Safe to retry.
	ErrConcurrencyConflict = &DomainError{Code: "concurrency_conflict", Status: http.StatusConflict, Detail: "Conflito de concorrência", Retryable: true}
	// ErrDuplicateInvoice: an issued invoice already exists for the period.
	ErrDuplicateInvoice = &DomainError{Code: "duplicate_invoice", Status: http.StatusConflict, Detail: "Já existe uma nota fiscal emitida para este período"}
	// ErrTransactionClaimed: the bank transaction is already linked to a payment.
	ErrTransactionClaimed = &DomainError{Code: "transaction_claimed", Status: http.StatusConflict, Detail: "Transação bancária já vinculada a um pagamento"}
)

// Respond writes the correct HTTP status and envelope for any error coming out
// of the service layer. Unknown errors become an opaque 500.
func Respond(c *gin.Context, err error) {
	var de *DomainError
	if errors.As(err, &de) {
		c.JSON(de.Status, &APIError{Detail: de.Detail, Code: de.Code})
		return
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, ve)
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, New("Erro interno do servidor"))
}
