package service

import (
	"context"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OutstandingService interface {
	GetOutstanding(ctx context.Context, therapistID, patientID uuid.UUID) (*dto.OutstandingResponse, error)
}

type outstandingService struct {
	periodRepo  repository.BillingPeriodRepository
	patientRepo repository.PatientRepository
}

func NewOutstandingService(periodRepo repository.BillingPeriodRepository, patientRepo repository.PatientRepository) OutstandingService {
	return &outstandingService{periodRepo: periodRepo, patientRepo: patientRepo}
}

func (s *outstandingService) GetOutstanding(ctx context.Context, therapistID, patientID uuid.UUID) (*dto.OutstandingResponse, error) {
	patient, err := s.patientRepo.FindByID(ctx, patientID)
	if err != nil || patient.TherapistID != therapistID {
		return nil, apierror.ErrNotFound.WithDetailf("Paciente não encontrado")
	}

	oldest, err := oldestUnpaidPeriod(ctx, s.periodRepo, nil, patientID)
	if err != nil {
		return nil, err
	}
	if oldest == nil {
		return &dto.OutstandingResponse{HasOutstanding: false}, nil
	}
	return &dto.OutstandingResponse{
		HasOutstanding:    true,
		AmountCents:       oldest.TotalAmountCents,
		OldestUnpaidYear:  oldest.Year,
		OldestUnpaidMonth: oldest.Month,
		BillingPeriodID:   oldest.ID.String(),
		Reference:         oldest.Reference,
	}, nil
}

// oldestUnpaidPeriod scans the patient's non-void periods in chronological
// order and returns the first still-unpaid one, or nil. Shared with the
// payment path, which calls it inside its transaction (q = tx) so the
// chronology check sees uncommitted sibling writes.
func oldestUnpaidPeriod(ctx context.Context, repo repository.BillingPeriodRepository, q *gorm.DB, patientID uuid.UUID) (*model.BillingPeriod, error) {
	periods, err := repo.ListNonVoidByPatient(ctx, q, patientID)
	if err != nil {
		return nil, err
	}
	for i := range periods {
		if periods[i].Status == model.PeriodProcessed {
			return &periods[i], nil
		}
	}
	return nil, nil
}
