package service

import (
	"context"
	"time"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/repository"

	"github.com/google/uuid"
)

type PatientService interface {
	Create(ctx context.Context, therapistID uuid.UUID, req dto.CreatePatientRequest) (*dto.PatientResponse, error)
	Update(ctx context.Context, therapistID, patientID uuid.UUID, req dto.UpdatePatientRequest) (*dto.PatientResponse, error)
	Get(ctx context.Context, therapistID, patientID uuid.UUID) (*dto.PatientResponse, error)
	List(ctx context.Context, therapistID uuid.UUID, includeInactive bool) ([]dto.PatientResponse, error)
	Deactivate(ctx context.Context, therapistID, patientID uuid.UUID) error
}

type patientService struct {
	repo repository.PatientRepository
}

func NewPatientService(repo repository.PatientRepository) PatientService {
	return &patientService{repo: repo}
}

func (s *patientService) Create(ctx context.Context, therapistID uuid.UUID, req dto.CreatePatientRequest) (*dto.PatientResponse, error) {
	startDate, err := time.Parse("2006-01-02", req.BillingStartDate)
	if err != nil {
		return nil, apierror.ErrValidation.WithDetailf("billing_start_date inválida")
	}
	patient := model.Patient{
		TherapistID:       therapistID,
		Name:              req.Name,
		Document:          req.Document,
		Email:             req.Email,
		Phone:             req.Phone,
		SessionPriceCents: req.SessionPriceCents,
		BillingStartDate:  startDate,
		Active:            true,
	}
	if err := s.repo.Create(ctx, &patient); err != nil {
		return nil, err
	}
	resp := patientToResponse(&patient)
	return &resp, nil
}

func (s *patientService) Update(ctx context.Context, therapistID, patientID uuid.UUID, req dto.UpdatePatientRequest) (*dto.PatientResponse, error) {
	patient, err := s.findOwned(ctx, therapistID, patientID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Document != nil {
		patient.Document = req.Document
	}
	if req.Email != nil {
		patient.Email = req.Email
	}
	if req.Phone != nil {
		patient.Phone = req.Phone
	}
	if req.SessionPriceCents != nil {
		// Applies to future processing only; existing periods keep the total
		// captured at processing time.
		patient.SessionPriceCents = *req.SessionPriceCents
	}
	if req.BillingStartDate != nil {
		startDate, err := time.Parse("2006-01-02", *req.BillingStartDate)
		if err != nil {
			return nil, apierror.ErrValidation.WithDetailf("billing_start_date inválida")
		}
		patient.BillingStartDate = startDate
	}
	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, err
	}
	resp := patientToResponse(patient)
	return &resp, nil
}

func (s *patientService) Get(ctx context.Context, therapistID, patientID uuid.UUID) (*dto.PatientResponse, error) {
	patient, err := s.findOwned(ctx, therapistID, patientID)
	if err != nil {
		return nil, err
	}
	resp := patientToResponse(patient)
	return &resp, nil
}

func (s *patientService) List(ctx context.Context, therapistID uuid.UUID, includeInactive bool) ([]dto.PatientResponse, error) {
	patients, err := s.repo.ListByTherapist(ctx, therapistID, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PatientResponse, 0, len(patients))
	for i := range patients {
		out = append(out, patientToResponse(&patients[i]))
	}
	return out, nil
}

func (s *patientService) Deactivate(ctx context.Context, therapistID, patientID uuid.UUID) error {
	if _, err := s.findOwned(ctx, therapistID, patientID); err != nil {
		return err
	}
	return s.repo.Deactivate(ctx, patientID)
}

func (s *patientService) findOwned(ctx context.Context, therapistID, patientID uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.FindByID(ctx, patientID)
	if err != nil || patient.TherapistID != therapistID {
		return nil, apierror.ErrNotFound.WithDetailf("Paciente não encontrado")
	}
	return patient, nil
}

func patientToResponse(p *model.Patient) dto.PatientResponse {
	return dto.PatientResponse{
		ID:                p.ID.String(),
		Name:              p.Name,
		Document:          p.Document,
		Email:             p.Email,
		Phone:             p.Phone,
		SessionPriceCents: p.SessionPriceCents,
		BillingStartDate:  p.BillingStartDate.Format("2006-01-02"),
		Active:            p.Active,
	}
}
