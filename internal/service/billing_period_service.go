package service

import (
	"context"
	"errors"
	"time"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/infra"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/repository"
	"github.com/kupferco/lv-notas/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type BillingPeriodService interface {
	ProcessCharges(ctx context.Context, therapistID uuid.UUID, req dto.ProcessChargesRequest) (*dto.BillingPeriodResponse, error)
	VoidBillingPeriod(ctx context.Context, therapistID, periodID uuid.UUID, reason string) error
	GetBillingPeriod(ctx context.Context, therapistID, periodID uuid.UUID) (*dto.BillingPeriodResponse, error)
	GetMonthlyBillingSummary(ctx context.Context, therapistID uuid.UUID, year, month int) (*dto.BillingSummaryResponse, error)
}

type billingPeriodService struct {
	repo        repository.BillingPeriodRepository
	patientRepo repository.PatientRepository
	invoiceRepo repository.InvoiceRepository
	sessions    infra.SessionSource
	dispatcher  *worker.Dispatcher
}

func NewBillingPeriodService(
	repo repository.BillingPeriodRepository,
	patientRepo repository.PatientRepository,
	invoiceRepo repository.InvoiceRepository,
	sessions infra.SessionSource,
	dispatcher *worker.Dispatcher,
) BillingPeriodService {
	return &billingPeriodService{
		repo:        repo,
		patientRepo: patientRepo,
		invoiceRepo: invoiceRepo,
		sessions:    sessions,
		dispatcher:  dispatcher,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// billableStatuses: attended sessions and no-shows are normally charged,
// cancelled-in-time sessions are not.
func isBillable(status string) bool {
	return status == "attended" || status == "no_show"
}

// ── ProcessCharges ────────────────────────────────────────────────────────────
// Turns one patient-month of agenda sessions into a billing period:
//   1. Resolve patient, validate ownership and target month not in the future
//   2. Fetch sessions from the agenda, filter billable and clip to
//      billing_start_date
//   3. Pre-check no non-void period exists for the key
//   4. BEGIN TX: insert period + immutable session snapshots
//   5. COMMIT, then (async) enqueue the charges notification email

func (s *billingPeriodService) ProcessCharges(ctx context.Context, therapistID uuid.UUID, req dto.ProcessChargesRequest) (*dto.BillingPeriodResponse, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, apierror.ErrValidation.WithDetailf("patient_id inválido")
	}

	patient, err := s.patientRepo.FindByID(ctx, patientID)
	if err != nil || patient.TherapistID != therapistID {
		return nil, apierror.ErrNotFound.WithDetailf("Paciente não encontrado")
	}
	if !patient.Active {
		return nil, apierror.ErrValidation.WithDetailf("Paciente inativo não pode ser cobrado")
	}

	now := time.Now().UTC()
	monthStart := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, time.UTC)
	if monthStart.After(now) {
		return nil, apierror.ErrValidation.WithDetailf("Não é possível processar um mês futuro")
	}

	// Pre-check before hitting the agenda; the partial unique index is the
	// real guard, this just gives a clean error on the common path.
	if _, err := s.repo.FindActiveByKey(ctx, therapistID, patientID, req.Year, req.Month); err == nil {
		return nil, apierror.ErrAlreadyProcessed
	}

	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Second)
	events, err := s.sessions.GetSessions(ctx, patientID, monthStart, monthEnd)
	if err != nil {
		log.Error().Err(err).Str("patient_id", patientID.String()).Msg("agenda fetch failed")
		return nil, apierror.ErrProvider.WithDetailf("Falha ao consultar a agenda de sessões")
	}

	var billable []infra.SessionEvent
	for _, ev := range events {
		if !isBillable(ev.Status) {
			continue
		}
		if ev.Date.Before(patient.BillingStartDate) {
			continue
		}
		billable = append(billable, ev)
	}
	if len(billable) == 0 {
		return nil, apierror.ErrValidation.WithDetailf("Nenhuma sessão cobrável em %02d/%04d", req.Month, req.Year)
	}

	period := model.BillingPeriod{
		TherapistID:      therapistID,
		PatientID:        patientID,
		Year:             req.Year,
		Month:            req.Month,
		SessionCount:     len(billable),
		TotalAmountCents: int64(len(billable)) * patient.SessionPriceCents,
		Reference:        model.PeriodReference(therapistID, patientID, req.Year, req.Month),
		Status:           model.PeriodProcessed,
		ProcessedAt:      now,
		ProcessedBy:      therapistID,
	}
	for _, ev := range billable {
		period.Snapshots = append(period.Snapshots, model.SessionSnapshot{
			ExternalEventID: ev.ExternalEventID,
			SessionDate:     ev.Date,
			SessionTime:     ev.Time,
			PatientName:     patient.Name,
		})
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.Create(ctx, tx, &period)
	})
	if txErr != nil {
		// Two concurrent processors for the same key: the index rejects the
		// loser, who may simply retry and receive already_processed.
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			return nil, apierror.ErrConcurrencyConflict.WithDetailf("Período processado simultaneamente, tente novamente")
		}
		return nil, txErr
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.EnqueueNotification(ctx, map[string]interface{}{
			"billing_period_id": period.ID.String(),
			"patient_name":      patient.Name,
			"session_count":     period.SessionCount,
			"amount_cents":      period.TotalAmountCents,
			"reference":         period.Reference,
			"year":              period.Year,
			"month":             period.Month,
		})
	}

	return periodToResponse(&period), nil
}

// ── VoidBillingPeriod ─────────────────────────────────────────────────────────

func (s *billingPeriodService) VoidBillingPeriod(ctx context.Context, therapistID, periodID uuid.UUID, reason string) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		q := tx
		if q == nil {
			q = s.repo.DB()
		}
		period, err := s.repo.FindByIDForUpdate(ctx, q, periodID)
		if err != nil {
			return apierror.ErrNotFound.WithDetailf("Período de cobrança não encontrado")
		}
		if period.TherapistID != therapistID {
			return apierror.ErrNotFound.WithDetailf("Período de cobrança não encontrado")
		}
		switch period.Status {
		case model.PeriodVoid:
			return apierror.ErrValidation.WithDetailf("Período já está anulado")
		case model.PeriodPaid:
			return apierror.ErrPeriodHasPayment
		}
		if inv, err := s.invoiceRepo.FindBlockingByPeriod(ctx, periodID); err == nil {
			return apierror.ErrValidation.WithDetailf("Período possui nota fiscal %s; cancele-a antes de anular", inv.Status)
		}
		// Paid status already covers periods with payments, but partial
		// records could exist if a payment was cancelled mid-flight.
		count, err := s.paymentCount(tx, periodID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apierror.ErrPeriodHasPayment
		}
		return s.repo.UpdateVoidTx(q, periodID, reason)
	})
}

func (s *billingPeriodService) paymentCount(tx *gorm.DB, periodID uuid.UUID) (int64, error) {
	q := tx
	if q == nil {
		q = s.repo.DB()
	}
	if q == nil {
		return 0, nil
	}
	var count int64
	err := q.Model(&model.Payment{}).Where("billing_period_id = ?", periodID).Count(&count).Error
	return count, err
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *billingPeriodService) GetBillingPeriod(ctx context.Context, therapistID, periodID uuid.UUID) (*dto.BillingPeriodResponse, error) {
	period, err := s.repo.FindByID(ctx, periodID)
	if err != nil || period.TherapistID != therapistID {
		return nil, apierror.ErrNotFound.WithDetailf("Período de cobrança não encontrado")
	}
	return periodToResponse(period), nil
}

func (s *billingPeriodService) GetMonthlyBillingSummary(ctx context.Context, therapistID uuid.UUID, year, month int) (*dto.BillingSummaryResponse, error) {
	patients, err := s.patientRepo.ListByTherapist(ctx, therapistID, false)
	if err != nil {
		return nil, err
	}
	periods, err := s.repo.ListByTherapistMonth(ctx, therapistID, year, month)
	if err != nil {
		return nil, err
	}
	byPatient := make(map[uuid.UUID]*model.BillingPeriod, len(periods))
	for i := range periods {
		byPatient[periods[i].PatientID] = &periods[i]
	}

	resp := &dto.BillingSummaryResponse{Year: year, Month: month, Data: make([]dto.BillingSummaryRow, 0, len(patients))}
	for _, p := range patients {
		row := dto.BillingSummaryRow{
			PatientID:   p.ID.String(),
			PatientName: p.Name,
			Status:      "can_process",
		}
		if period, ok := byPatient[p.ID]; ok {
			row.BillingPeriodID = period.ID.String()
			row.SessionCount = period.SessionCount
			row.TotalAmountCents = period.TotalAmountCents
			row.Reference = period.Reference
			row.Status = period.Status
			for _, pay := range period.Payments {
				row.PaidAmountCents += pay.AmountCents
			}
		}
		resp.Data = append(resp.Data, row)
	}
	return resp, nil
}

func periodToResponse(p *model.BillingPeriod) *dto.BillingPeriodResponse {
	resp := &dto.BillingPeriodResponse{
		ID:               p.ID.String(),
		PatientID:        p.PatientID.String(),
		Year:             p.Year,
		Month:            p.Month,
		SessionCount:     p.SessionCount,
		TotalAmountCents: p.TotalAmountCents,
		Reference:        p.Reference,
		Status:           p.Status,
		VoidReason:       p.VoidReason,
		ProcessedAt:      p.ProcessedAt.Format(time.RFC3339),
	}
	for _, snap := range p.Snapshots {
		resp.Snapshots = append(resp.Snapshots, dto.SessionSnapshotResponse{
			ExternalEventID: snap.ExternalEventID,
			Date:            snap.SessionDate.Format("2006-01-02"),
			Time:            snap.SessionTime,
			PatientName:     snap.PatientName,
		})
	}
	for _, pay := range p.Payments {
		resp.Payments = append(resp.Payments, paymentToResponse(&pay))
	}
	return resp
}
