package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/infra"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type InvoiceService interface {
	RequestInvoice(ctx context.Context, therapistID uuid.UUID, req dto.RequestInvoiceRequest) (*dto.InvoiceResponse, error)
	CancelInvoice(ctx context.Context, therapistID, invoiceID uuid.UUID, reason string) error
	GetInvoice(ctx context.Context, therapistID, invoiceID uuid.UUID) (*dto.InvoiceResponse, error)
	ListByPeriod(ctx context.Context, therapistID, periodID uuid.UUID) ([]dto.InvoiceResponse, error)
	// GetInvoicePDFPath returns the absolute path of the stored PDF,
	// downloading it from the provider on first access.
	GetInvoicePDFPath(ctx context.Context, therapistID, invoiceID uuid.UUID) (string, error)
}

type invoiceService struct {
	repo          repository.InvoiceRepository
	periodRepo    repository.BillingPeriodRepository
	patientRepo   repository.PatientRepository
	therapistRepo repository.TherapistRepository
	provider      infra.InvoiceProvider
	cb            *infra.CircuitBreaker
	storagePath   string
}

func NewInvoiceService(
	repo repository.InvoiceRepository,
	periodRepo repository.BillingPeriodRepository,
	patientRepo repository.PatientRepository,
	therapistRepo repository.TherapistRepository,
	provider infra.InvoiceProvider,
	cb *infra.CircuitBreaker,
	storagePath string,
) InvoiceService {
	return &invoiceService{
		repo:          repo,
		periodRepo:    periodRepo,
		patientRepo:   patientRepo,
		therapistRepo: therapistRepo,
		provider:      provider,
		cb:            cb,
		storagePath:   storagePath,
	}
}

// ── RequestInvoice ────────────────────────────────────────────────────────────
// Issues an NFS-e for a paid billing period. Gate checks, in order:
//   1. Period exists, belongs to the therapist, status is paid
//   2. Therapist has an unexpired digital certificate
//   3. No issued or processing invoice already covers the period
// Only then is the provider called, through the circuit breaker with a 30s
// deadline. Failed attempts persist as error rows so the history of tries is
// auditable; they never block a retry.

func (s *invoiceService) RequestInvoice(ctx context.Context, therapistID uuid.UUID, req dto.RequestInvoiceRequest) (*dto.InvoiceResponse, error) {
	periodID, err := uuid.Parse(req.BillingPeriodID)
	if err != nil {
		return nil, apierror.ErrValidation.WithDetailf("billing_period_id inválido")
	}

	period, err := s.periodRepo.FindByID(ctx, periodID)
	if err != nil || period.TherapistID != therapistID {
		return nil, apierror.ErrNotFound.WithDetailf("Período de cobrança não encontrado")
	}
	if period.Status != model.PeriodPaid {
		return nil, apierror.ErrValidation.WithDetailf("Nota fiscal exige período pago (status atual: %s)", period.Status)
	}

	therapist, err := s.therapistRepo.FindByID(ctx, therapistID)
	if err != nil {
		return nil, apierror.ErrNotFound
	}
	if !therapist.HasValidCertificate(time.Now()) {
		return nil, apierror.ErrCertificate
	}
	if therapist.Document == nil {
		return nil, apierror.ErrValidation.WithDetailf("Cadastre seu CPF/CNPJ antes de emitir notas")
	}

	if existing, err := s.repo.FindBlockingByPeriod(ctx, periodID); err == nil {
		if existing.Status == model.InvoiceIssued {
			return nil, apierror.ErrDuplicateInvoice
		}
		// processing: the prior request is still with the municipality; hand
		// back the pending row instead of double-submitting.
		resp := invoiceToResponse(existing)
		return &resp, nil
	}

	patient, err := s.patientRepo.FindByID(ctx, period.PatientID)
	if err != nil {
		return nil, apierror.ErrNotFound.WithDetailf("Paciente não encontrado")
	}

	provReq := infra.InvoiceRequest{
		Reference:          period.Reference,
		AmountCents:        period.TotalAmountCents,
		ServiceDescription: fmt.Sprintf("Sessões de psicoterapia — %02d/%04d (%d sessões)", period.Month, period.Year, period.SessionCount),
		CustomerName:       patient.Name,
		CompetenceDate:     period.MonthEnd(),
		IssuerDocument:     *therapist.Document,
	}
	if patient.Document != nil {
		provReq.CustomerDocument = *patient.Document
	}

	var result *infra.InvoiceResult
	cbErr := s.cb.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		var callErr error
		result, callErr = s.provider.GenerateInvoice(callCtx, provReq)
		return callErr
	})
	if cbErr != nil {
		log.Error().Err(cbErr).Str("billing_period_id", periodID.String()).Msg("invoice issuance failed")
		msg := cbErr.Error()
		errRow := &model.Invoice{
			BillingPeriodID: periodID,
			Status:          model.InvoiceError,
			ErrorMessage:    &msg,
			LastError:       &msg,
		}
		if err := s.repo.Create(ctx, errRow); err != nil {
			log.Error().Err(err).Msg("could not persist invoice error row")
		}
		return nil, apierror.ErrProvider
	}

	inv := &model.Invoice{
		BillingPeriodID: periodID,
	}
	switch result.Status {
	case infra.ProviderIssued:
		now := time.Now().UTC()
		inv.Status = model.InvoiceIssued
		inv.ProviderInvoiceID = &result.ProviderInvoiceID
		inv.IssuedAt = &now
	case infra.ProviderProcessing:
		next := time.Now().UTC().Add(30 * time.Second)
		inv.Status = model.InvoiceProcessing
		inv.ProviderInvoiceID = &result.ProviderInvoiceID
		inv.NextRetryAt = &next
	default:
		inv.Status = model.InvoiceError
		inv.ErrorMessage = &result.Message
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	if inv.Status == model.InvoiceError {
		return nil, apierror.ErrValidation.WithDetailf("Nota rejeitada pelo provedor: %s", result.Message)
	}

	resp := invoiceToResponse(inv)
	return &resp, nil
}

// ── CancelInvoice ─────────────────────────────────────────────────────────────

func (s *invoiceService) CancelInvoice(ctx context.Context, therapistID, invoiceID uuid.UUID, reason string) error {
	inv, _, err := s.findOwned(ctx, therapistID, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != model.InvoiceIssued && inv.Status != model.InvoiceProcessing {
		return apierror.ErrValidation.WithDetailf("Nota em status %s não pode ser cancelada", inv.Status)
	}

	if inv.ProviderInvoiceID != nil {
		cbErr := s.cb.Execute(func() error {
			callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return s.provider.CancelInvoice(callCtx, *inv.ProviderInvoiceID, reason)
		})
		if cbErr != nil {
			log.Error().Err(cbErr).Str("invoice_id", invoiceID.String()).Msg("invoice cancellation failed")
			return apierror.ErrProvider
		}
	}

	inv.Status = model.InvoiceCancelled
	inv.CancelReason = &reason
	return s.repo.Update(ctx, inv)
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *invoiceService) GetInvoice(ctx context.Context, therapistID, invoiceID uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, _, err := s.findOwned(ctx, therapistID, invoiceID)
	if err != nil {
		return nil, err
	}
	resp := invoiceToResponse(inv)
	return &resp, nil
}

func (s *invoiceService) ListByPeriod(ctx context.Context, therapistID, periodID uuid.UUID) ([]dto.InvoiceResponse, error) {
	period, err := s.periodRepo.FindByID(ctx, periodID)
	if err != nil || period.TherapistID != therapistID {
		return nil, apierror.ErrNotFound.WithDetailf("Período de cobrança não encontrado")
	}
	invoices, err := s.repo.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, invoiceToResponse(&invoices[i]))
	}
	return out, nil
}

func (s *invoiceService) GetInvoicePDFPath(ctx context.Context, therapistID, invoiceID uuid.UUID) (string, error) {
	inv, _, err := s.findOwned(ctx, therapistID, invoiceID)
	if err != nil {
		return "", err
	}
	if inv.Status != model.InvoiceIssued {
		return "", apierror.ErrValidation.WithDetailf("PDF disponível apenas para notas emitidas")
	}
	if inv.PDFPath != nil {
		return fmt.Sprintf("%s/%s", s.storagePath, *inv.PDFPath), nil
	}
	if inv.ProviderInvoiceID == nil {
		return "", apierror.ErrNotFound.WithDetailf("Nota sem identificador no provedor")
	}

	var fileName string
	cbErr := s.cb.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		var dlErr error
		fileName, dlErr = s.provider.DownloadPDF(callCtx, *inv.ProviderInvoiceID, s.storagePath)
		return dlErr
	})
	if cbErr != nil {
		log.Error().Err(cbErr).Str("invoice_id", invoiceID.String()).Msg("invoice PDF download failed")
		return "", apierror.ErrProvider
	}

	inv.PDFPath = &fileName
	if err := s.repo.Update(ctx, inv); err != nil {
		log.Warn().Err(err).Msg("could not persist invoice pdf path")
	}
	return fmt.Sprintf("%s/%s", s.storagePath, fileName), nil
}

func (s *invoiceService) findOwned(ctx context.Context, therapistID, invoiceID uuid.UUID) (*model.Invoice, *model.BillingPeriod, error) {
	inv, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, apierror.ErrNotFound.WithDetailf("Nota fiscal não encontrada")
	}
	period, err := s.periodRepo.FindByID(ctx, inv.BillingPeriodID)
	if err != nil || period.TherapistID != therapistID {
		return nil, nil, apierror.ErrNotFound.WithDetailf("Nota fiscal não encontrada")
	}
	return inv, period, nil
}

func invoiceToResponse(inv *model.Invoice) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:                inv.ID.String(),
		BillingPeriodID:   inv.BillingPeriodID.String(),
		ProviderInvoiceID: inv.ProviderInvoiceID,
		Status:            inv.Status,
		ErrorMessage:      inv.ErrorMessage,
		CancelReason:      inv.CancelReason,
		CreatedAt:         inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.IssuedAt != nil {
		issued := inv.IssuedAt.Format(time.RFC3339)
		resp.IssuedAt = &issued
	}
	if inv.Status == model.InvoiceIssued {
		url := fmt.Sprintf("/v1/invoices/%s/pdf", inv.ID)
		resp.PDFUrl = &url
	}
	return resp
}
