package worker

// notification_worker.go
// Processes monthly-charges notifications from QueueNotification.
// Emails the therapist a summary of the period just processed.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kupferco/lv-notas/internal/infra"
	"github.com/kupferco/lv-notas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NotificationJobPayload is the job envelope sent to QueueNotification.
type NotificationJobPayload struct {
	BillingPeriodID string `json:"billing_period_id"`
	PatientName     string `json:"patient_name"`
	SessionCount    int    `json:"session_count"`
	AmountCents     int64  `json:"amount_cents"`
	Reference       string `json:"reference"`
	Year            int    `json:"year"`
	Month           int    `json:"month"`
}

type NotificationWorker struct {
	mailer        *infra.Mailer
	periodRepo    repository.BillingPeriodRepository
	therapistRepo repository.TherapistRepository
}

func NewNotificationWorker(
	mailer *infra.Mailer,
	periodRepo repository.BillingPeriodRepository,
	therapistRepo repository.TherapistRepository,
) *NotificationWorker {
	return &NotificationWorker{mailer: mailer, periodRepo: periodRepo, therapistRepo: therapistRepo}
}

func (w *NotificationWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload NotificationJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("notification_worker: invalid payload")
		return
	}

	periodID, err := uuid.Parse(payload.BillingPeriodID)
	if err != nil {
		log.Error().Str("billing_period_id", payload.BillingPeriodID).Msg("notification_worker: invalid period id")
		return
	}
	period, err := w.periodRepo.FindByID(ctx, periodID)
	if err != nil {
		log.Error().Err(err).Str("billing_period_id", payload.BillingPeriodID).Msg("notification_worker: period not found")
		return
	}
	therapist, err := w.therapistRepo.FindByID(ctx, period.TherapistID)
	if err != nil {
		log.Error().Err(err).Msg("notification_worker: therapist not found")
		return
	}

	subject := fmt.Sprintf("Cobrança processada — %s (%02d/%04d)", payload.PatientName, payload.Month, payload.Year)
	body := fmt.Sprintf(
		"Olá %s,\n\nA cobrança de %s foi processada:\n\n"+
			"  Sessões: %d\n  Valor total: R$ %.2f\n  Referência: %s\n\n"+
			"Oriente o paciente a incluir a referência na descrição da transferência.\n",
		therapist.Name, payload.PatientName, payload.SessionCount,
		float64(payload.AmountCents)/100, payload.Reference)

	if err := w.mailer.Send(therapist.Email, subject, body, ""); err != nil {
		log.Error().Err(err).Str("to", therapist.Email).Msg("notification_worker: failed to send email")
		return
	}
	log.Info().Str("to", therapist.Email).Str("reference", payload.Reference).Msg("notification_worker: charges summary sent")
}
