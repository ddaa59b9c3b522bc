package service

import (
	"context"
	"errors"
	"time"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/repository"
	"github.com/kupferco/lv-notas/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type PaymentService interface {
	RecordPayment(ctx context.Context, therapistID uuid.UUID, req dto.RecordPaymentRequest) (*dto.PaymentResponse, error)
	CancelPayment(ctx context.Context, therapistID, paymentID uuid.UUID) error
}

type paymentService struct {
	repo       repository.PaymentRepository
	periodRepo repository.BillingPeriodRepository
	dispatcher *worker.Dispatcher
}

func NewPaymentService(
	repo repository.PaymentRepository,
	periodRepo repository.BillingPeriodRepository,
	dispatcher *worker.Dispatcher,
) PaymentService {
	return &paymentService{repo: repo, periodRepo: periodRepo, dispatcher: dispatcher}
}

// ── RecordPayment ─────────────────────────────────────────────────────────────
// Settles a billing period. Everything that decides the outcome runs inside
// one transaction with the period row locked:
//   1. Lock period, validate ownership and "processed" status
//   2. Chronology: reject if an older month of the same patient is unpaid
//   3. If backed by a bank transaction, re-check it is still unclaimed
//   4. Insert payment, flip period to paid
//   5. COMMIT, then (async) enqueue the receipt job

func (s *paymentService) RecordPayment(ctx context.Context, therapistID uuid.UUID, req dto.RecordPaymentRequest) (*dto.PaymentResponse, error) {
	periodID, err := uuid.Parse(req.BillingPeriodID)
	if err != nil {
		return nil, apierror.ErrValidation.WithDetailf("billing_period_id inválido")
	}
	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		return nil, apierror.ErrValidation.WithDetailf("payment_date inválida")
	}
	var bankTxnID *uuid.UUID
	if req.BankTransactionID != nil {
		id, err := uuid.Parse(*req.BankTransactionID)
		if err != nil {
			return nil, apierror.ErrValidation.WithDetailf("bank_transaction_id inválido")
		}
		bankTxnID = &id
	}

	payment := model.Payment{
		BillingPeriodID:   periodID,
		AmountCents:       req.AmountCents,
		Method:            req.Method,
		PaymentDate:       paymentDate,
		ReferenceNumber:   req.ReferenceNumber,
		BankTransactionID: bankTxnID,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		q := tx
		if q == nil {
			q = s.repo.DB()
		}
		period, err := s.periodRepo.FindByIDForUpdate(ctx, q, periodID)
		if err != nil {
			return apierror.ErrNotFound.WithDetailf("Período de cobrança não encontrado")
		}
		if period.TherapistID != therapistID {
			return apierror.ErrNotFound.WithDetailf("Período de cobrança não encontrado")
		}
		switch period.Status {
		case model.PeriodPaid:
			return apierror.ErrValidation.WithDetailf("Período já está pago")
		case model.PeriodVoid:
			return apierror.ErrValidation.WithDetailf("Período anulado não recebe pagamentos")
		}

		oldest, err := oldestUnpaidPeriod(ctx, s.periodRepo, tx, period.PatientID)
		if err != nil {
			return err
		}
		if oldest != nil && oldest.ID != period.ID {
			return apierror.ErrChronologyViolation.WithDetailf(
				"Quite primeiro o período %02d/%04d", oldest.Month, oldest.Year)
		}

		if payment.AmountCents != period.TotalAmountCents {
			// Accepted, but worth an operator-visible trace.
			log.Warn().
				Str("billing_period_id", period.ID.String()).
				Int64("expected_cents", period.TotalAmountCents).
				Int64("received_cents", payment.AmountCents).
				Msg("payment amount differs from period total")
		}

		if bankTxnID != nil {
			claimed, err := s.repo.IsTransactionClaimedTx(q, *bankTxnID)
			if err != nil {
				return err
			}
			if claimed {
				return apierror.ErrTransactionClaimed
			}
		}

		if err := s.repo.CreateTx(ctx, tx, &payment); err != nil {
			// The unique index on bank_transaction_id closes the race left
			// open between the claim check and the insert.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierror.ErrTransactionClaimed
			}
			return err
		}
		return s.periodRepo.UpdateStatusTx(q, period.ID, model.PeriodPaid)
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.EnqueueReceipt(ctx, map[string]interface{}{
			"payment_id": payment.ID.String(),
		})
	}

	resp := paymentToResponse(&payment)
	return &resp, nil
}

// ── CancelPayment ─────────────────────────────────────────────────────────────
// Undo for a mistaken confirmation: removes the payment and flips the period
// back to processed, releasing any claimed bank transaction.

func (s *paymentService) CancelPayment(ctx context.Context, therapistID, paymentID uuid.UUID) error {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return apierror.ErrNotFound.WithDetailf("Pagamento não encontrado")
	}

	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		q := tx
		if q == nil {
			q = s.repo.DB()
		}
		period, err := s.periodRepo.FindByIDForUpdate(ctx, q, payment.BillingPeriodID)
		if err != nil {
			return apierror.ErrNotFound.WithDetailf("Período de cobrança não encontrado")
		}
		if period.TherapistID != therapistID {
			return apierror.ErrNotFound.WithDetailf("Pagamento não encontrado")
		}
		if err := s.repo.DeleteTx(q, paymentID); err != nil {
			return err
		}
		remaining, err := s.repo.CountByPeriodTx(q, period.ID)
		if err != nil {
			return err
		}
		if remaining == 0 && period.Status == model.PeriodPaid {
			return s.periodRepo.UpdateStatusTx(q, period.ID, model.PeriodProcessed)
		}
		return nil
	})
}

func paymentToResponse(p *model.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		ID:              p.ID.String(),
		BillingPeriodID: p.BillingPeriodID.String(),
		AmountCents:     p.AmountCents,
		Method:          p.Method,
		PaymentDate:     p.PaymentDate.Format("2006-01-02"),
		ReferenceNumber: p.ReferenceNumber,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
	if p.BankTransactionID != nil {
		id := p.BankTransactionID.String()
		resp.BankTransactionID = &id
	}
	return resp
}
