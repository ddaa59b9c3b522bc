package worker

// invoice_status_cron.go
// Background goroutine that resolves invoices stuck in status='processing':
// municipalities queue NFS-e issuance, so the engine polls the provider until
// the document is issued or rejected. Uses the Circuit Breaker to avoid
// hammering a downed provider.

import (
	"context"
	"fmt"
	"time"

	"github.com/kupferco/lv-notas/internal/infra"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	statusTickInterval = 30 * time.Second
	statusBatchSize    = 10

	// MaxInvoiceStatusRetries caps polling attempts before the invoice is
	// flagged error and parked in the DLQ.
	MaxInvoiceStatusRetries = 8
)

// StatusCronConfig holds all dependencies for the polling goroutine.
type StatusCronConfig struct {
	InvoiceRepo repository.InvoiceRepository
	Provider    infra.InvoiceProvider
	CB          *infra.CircuitBreaker
	RDB         *redis.Client
}

// StartInvoiceStatusCron launches a background goroutine that ticks every
// 30s, queries processing invoices past their next_retry_at, and polls the
// provider through the CB. It respects the context for graceful shutdown.
func StartInvoiceStatusCron(ctx context.Context, cfg StatusCronConfig) {
	go func() {
		ticker := time.NewTicker(statusTickInterval)
		defer ticker.Stop()

		log.Info().Msg("invoice_status_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("invoice_status_cron: shutting down")
				return
			case <-ticker.C:
				pollPendingInvoices(ctx, cfg)
			}
		}
	}()
}

func pollPendingInvoices(ctx context.Context, cfg StatusCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed provider
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("invoice_status_cron: circuit breaker is open, skipping tick")
		return
	}

	now := time.Now()
	invoices, err := cfg.InvoiceRepo.ListPendingStatusChecks(ctx, now, statusBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("invoice_status_cron: failed to query pending invoices")
		return
	}
	if len(invoices) == 0 {
		return
	}

	log.Info().Int("count", len(invoices)).Msg("invoice_status_cron: polling pending invoices")

	for i := range invoices {
		inv := &invoices[i]

		// Check CB state before each call — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("invoice_status_cron: circuit breaker opened mid-batch, stopping")
			return
		}
		if inv.ProviderInvoiceID == nil {
			continue
		}

		var result *infra.InvoiceResult
		cbErr := cfg.CB.Execute(func() error {
			r, err := cfg.Provider.GetInvoiceStatus(ctx, *inv.ProviderInvoiceID)
			if err != nil {
				return err
			}
			result = r
			return nil
		})

		if cbErr != nil {
			scheduleRetry(ctx, cfg, inv, cbErr.Error())
			continue
		}

		switch result.Status {
		case infra.ProviderIssued:
			issuedAt := time.Now().UTC()
			inv.Status = model.InvoiceIssued
			inv.IssuedAt = &issuedAt
			inv.NextRetryAt = nil
			inv.LastError = nil
			_ = cfg.InvoiceRepo.Update(ctx, inv)
			log.Info().
				Str("invoice_id", inv.ID.String()).
				Int("polls", inv.RetryCount).
				Msg("invoice_status_cron: invoice issued")
		case infra.ProviderRejected:
			inv.Status = model.InvoiceError
			msg := result.Message
			inv.ErrorMessage = &msg
			inv.NextRetryAt = nil
			_ = cfg.InvoiceRepo.Update(ctx, inv)
			log.Warn().
				Str("invoice_id", inv.ID.String()).
				Str("message", result.Message).
				Msg("invoice_status_cron: provider rejected invoice")
		default:
			// Still processing: schedule the next poll.
			scheduleRetry(ctx, cfg, inv, "still processing")
		}
	}
}

func scheduleRetry(ctx context.Context, cfg StatusCronConfig, inv *model.Invoice, reason string) {
	inv.RetryCount++
	inv.LastError = &reason
	nextRetry := time.Now().Add(computeRetryBackoff(inv.RetryCount))
	inv.NextRetryAt = &nextRetry

	if inv.RetryCount >= MaxInvoiceStatusRetries {
		inv.Status = model.InvoiceError
		msg := fmt.Sprintf("não resolvida após %d verificações: %s", inv.RetryCount, reason)
		inv.ErrorMessage = &msg
		inv.NextRetryAt = nil
		log.Error().
			Str("invoice_id", inv.ID.String()).
			Int("retries", inv.RetryCount).
			Msg("invoice_status_cron: max retries exceeded, moving to error/DLQ")

		payload := fmt.Sprintf(`{"invoice_id":"%s","billing_period_id":"%s"}`, inv.ID, inv.BillingPeriodID)
		SendToDLQ(ctx, cfg.RDB, QueueNotification, "invoice_status", []byte(payload),
			fmt.Sprintf("max retries (%d) exceeded: %s", MaxInvoiceStatusRetries, reason),
			inv.RetryCount)
	} else {
		log.Warn().
			Str("invoice_id", inv.ID.String()).
			Int("retry_count", inv.RetryCount).
			Time("next_retry_at", nextRetry).
			Msg("invoice_status_cron: poll failed, scheduled next attempt")
	}

	_ = cfg.InvoiceRepo.Update(ctx, inv)
}

// computeRetryBackoff doubles the wait per attempt: 1m, 2m, 4m... capped at 30m.
func computeRetryBackoff(attempt int) time.Duration {
	backoff := time.Minute << uint(attempt-1)
	if backoff > 30*time.Minute || backoff <= 0 {
		backoff = 30 * time.Minute
	}
	return backoff
}
