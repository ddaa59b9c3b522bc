package worker

// receipt_worker.go
// Processes receipt jobs from QueueReceipt: renders the payment receipt PDF
// and emails it to the patient when an email is on file.

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/kupferco/lv-notas/internal/infra"
	"github.com/kupferco/lv-notas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReceiptJobPayload is the job envelope sent to QueueReceipt.
type ReceiptJobPayload struct {
	PaymentID string `json:"payment_id"`
}

type ReceiptWorker struct {
	mailer        *infra.Mailer
	paymentRepo   repository.PaymentRepository
	periodRepo    repository.BillingPeriodRepository
	patientRepo   repository.PatientRepository
	therapistRepo repository.TherapistRepository
	storagePath   string
}

func NewReceiptWorker(
	mailer *infra.Mailer,
	paymentRepo repository.PaymentRepository,
	periodRepo repository.BillingPeriodRepository,
	patientRepo repository.PatientRepository,
	therapistRepo repository.TherapistRepository,
	storagePath string,
) *ReceiptWorker {
	return &ReceiptWorker{
		mailer:        mailer,
		paymentRepo:   paymentRepo,
		periodRepo:    periodRepo,
		patientRepo:   patientRepo,
		therapistRepo: therapistRepo,
		storagePath:   storagePath,
	}
}

func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("receipt_worker: invalid payload")
		return
	}
	paymentID, err := uuid.Parse(payload.PaymentID)
	if err != nil {
		log.Error().Str("payment_id", payload.PaymentID).Msg("receipt_worker: invalid payment id")
		return
	}

	payment, err := w.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		// Payment may have been cancelled between enqueue and dequeue.
		log.Warn().Err(err).Str("payment_id", payload.PaymentID).Msg("receipt_worker: payment not found — skipping")
		return
	}
	period, err := w.periodRepo.FindByID(ctx, payment.BillingPeriodID)
	if err != nil {
		log.Error().Err(err).Msg("receipt_worker: period not found")
		return
	}
	patient, err := w.patientRepo.FindByID(ctx, period.PatientID)
	if err != nil {
		log.Error().Err(err).Msg("receipt_worker: patient not found")
		return
	}
	therapist, err := w.therapistRepo.FindByID(ctx, period.TherapistID)
	if err != nil {
		log.Error().Err(err).Msg("receipt_worker: therapist not found")
		return
	}

	fileName, err := infra.GenerateReceiptPDF(payment, period, patient, therapist, w.storagePath)
	if err != nil {
		log.Error().Err(err).Str("payment_id", payload.PaymentID).Msg("receipt_worker: pdf generation failed")
		return
	}
	log.Info().Str("file", fileName).Msg("receipt_worker: receipt generated")

	if patient.Email == nil || *patient.Email == "" {
		return
	}
	subject := fmt.Sprintf("Recibo de pagamento — %02d/%04d", period.Month, period.Year)
	body := fmt.Sprintf(
		"Olá %s,\n\nSegue em anexo o recibo do pagamento de R$ %.2f referente a %02d/%04d.\n\nAtenciosamente,\n%s\n",
		patient.Name, float64(payment.AmountCents)/100, period.Month, period.Year, therapist.Name)
	if err := w.mailer.Send(*patient.Email, subject, body, filepath.Join(w.storagePath, fileName)); err != nil {
		log.Error().Err(err).Str("to", *patient.Email).Msg("receipt_worker: failed to send receipt email")
		return
	}
	log.Info().Str("to", *patient.Email).Msg("receipt_worker: receipt emailed")
}
