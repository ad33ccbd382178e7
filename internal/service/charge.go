package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/ayo6706/ledger-transfers/internal/repository"
	"github.com/google/uuid"
)

type ChargeService struct {
	repo *repository.Repository
}

func NewChargeService(repo *repository.Repository) *ChargeService {
	return &ChargeService{repo: repo}
}

// Create registers a fee rule applied to future executed transfers.
func (s *ChargeService) Create(ctx context.Context, charge *models.Charge) error {
	if charge.Name == "" {
		return fmt.Errorf("%w: charge name is required", domain.ErrValidation)
	}
	if charge.ChargeType != domain.ChargeTypeFlat && charge.ChargeType != domain.ChargeTypePercentage {
		return fmt.Errorf("%w: unknown charge type %q", domain.ErrValidation, charge.ChargeType)
	}
	if !validRole(charge.Payer) || !validRole(charge.Payee) {
		return fmt.Errorf("%w: payer and payee must be one of sender, receiver, ledger", domain.ErrValidation)
	}
	if !charge.Amount.IsPositive() {
		return fmt.Errorf("%w: charge amount must be positive", domain.ErrValidation)
	}
	if charge.MinThreshold != nil && charge.MaxThreshold != nil &&
		!charge.MinThreshold.LessThan(*charge.MaxThreshold) {
		return fmt.Errorf("%w: min_threshold must be below max_threshold", domain.ErrValidation)
	}
	return s.repo.CreateCharge(ctx, charge)
}

// ListActive returns the active fee rules in application order.
func (s *ChargeService) ListActive(ctx context.Context) ([]models.Charge, error) {
	charges, err := s.repo.ListActiveCharges(ctx)
	if err != nil {
		return nil, err
	}
	if charges == nil {
		charges = []models.Charge{}
	}
	return charges, nil
}

// FeesForTransfer returns the fees computed for one executed transfer.
func (s *ChargeService) FeesForTransfer(ctx context.Context, rawID string) ([]models.Fee, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: transfer id must be a UUID", domain.ErrValidation)
	}
	fees, err := s.repo.ListFeesByTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if fees == nil {
		fees = []models.Fee{}
	}
	return fees, nil
}

func validRole(role string) bool {
	switch role {
	case domain.RoleSender, domain.RoleReceiver, domain.RoleLedger:
		return true
	}
	return false
}
