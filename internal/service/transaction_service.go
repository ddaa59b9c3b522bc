package service

import (
	"context"
	"time"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type TransactionService interface {
	Import(ctx context.Context, therapistID uuid.UUID, req dto.ImportTransactionsRequest) (*dto.ImportTransactionsResponse, error)
}

type transactionService struct {
	repo repository.BankTransactionRepository
}

func NewTransactionService(repo repository.BankTransactionRepository) TransactionService {
	return &transactionService{repo: repo}
}

// Import loads a banking-aggregator export. Re-imports are safe: rows whose
// external_id already exists are skipped, never updated.
func (s *transactionService) Import(ctx context.Context, therapistID uuid.UUID, req dto.ImportTransactionsRequest) (*dto.ImportTransactionsResponse, error) {
	txns := make([]model.BankTransaction, 0, len(req.Transactions))
	for _, item := range req.Transactions {
		date, err := time.Parse("2006-01-02", item.Date)
		if err != nil {
			return nil, apierror.ErrValidation.WithDetailf("Data inválida na transação %s", item.ExternalID)
		}
		txns = append(txns, model.BankTransaction{
			TherapistID:    therapistID,
			ExternalID:     item.ExternalID,
			AmountCents:    item.AmountCents,
			Description:    item.Description,
			Date:           date,
			SenderName:     item.SenderName,
			SenderDocument: item.SenderDocument,
			Type:           item.Type,
		})
	}

	inserted, err := s.repo.BulkInsert(ctx, txns)
	if err != nil {
		return nil, err
	}
	skipped := len(txns) - inserted
	log.Info().
		Str("therapist_id", therapistID.String()).
		Int("imported", inserted).
		Int("skipped", skipped).
		Msg("bank transactions imported")
	return &dto.ImportTransactionsResponse{Imported: inserted, Skipped: skipped}, nil
}
