package service

import (
	"context"

	"github.com/ayo6706/ledger-transfers/internal/command"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/ayo6706/ledger-transfers/internal/observability"
	"github.com/ayo6706/ledger-transfers/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettlementResult reports one settlement batch: the batch row and the ids
// of the transfers settled into it.
type SettlementResult struct {
	Settlement *models.Settlement `json:"settlement,omitempty"`
	Transfers  []uuid.UUID        `json:"transfers"`
}

type SettlementService struct {
	handlers *command.Handlers
	repo     *repository.Repository
	logger   *zap.Logger
}

func NewSettlementService(handlers *command.Handlers, repo *repository.Repository, logger *zap.Logger) *SettlementService {
	return &SettlementService{handlers: handlers, repo: repo, logger: logger}
}

// Settle opens a new settlement batch and settles every currently settleable
// transfer into it. When nothing is settleable no batch is created.
func (s *SettlementService) Settle(ctx context.Context) (*SettlementResult, error) {
	ids, err := s.repo.ListSettleable(ctx)
	if err != nil {
		return nil, err
	}
	observability.SetSettleableTransfers(int64(len(ids)))
	if len(ids) == 0 {
		return &SettlementResult{Transfers: []uuid.UUID{}}, nil
	}

	settlement, err := s.repo.CreateSettlement(ctx, uuid.New())
	if err != nil {
		return nil, err
	}

	result := &SettlementResult{Settlement: settlement, Transfers: make([]uuid.UUID, 0, len(ids))}
	for _, id := range ids {
		if _, err := s.handlers.Settle(ctx, id, settlement.ID); err != nil {
			// Leave the transfer for the next batch rather than failing the
			// whole settlement.
			s.logger.Error("failed to settle transfer",
				zap.String("transfer_id", id.String()),
				zap.String("settlement_id", settlement.ID.String()),
				zap.Error(err))
			continue
		}
		result.Transfers = append(result.Transfers, id)
	}
	observability.SetSettleableTransfers(int64(len(ids) - len(result.Transfers)))
	return result, nil
}

// ListSettleable returns the ids of executed transfers not yet settled.
func (s *SettlementService) ListSettleable(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.repo.ListSettleable(ctx)
	if err != nil {
		return nil, err
	}
	observability.SetSettleableTransfers(int64(len(ids)))
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}
