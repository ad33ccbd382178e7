package service

import (
	"context"
	"sort"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/repository"
)

type PositionService struct {
	repo *repository.Repository
}

func NewPositionService(repo *repository.Repository) *PositionService {
	return &PositionService{repo: repo}
}

// Positions folds the executed-but-unsettled transfers into per-account net
// positions. Every registered account appears, at zero if it took part in
// nothing.
func (s *PositionService) Positions(ctx context.Context) ([]domain.Position, error) {
	legs, err := s.repo.ListSettleableLegs(ctx)
	if err != nil {
		return nil, err
	}
	positions := domain.CalculatePositions(legs)
	if err := s.seed(ctx, positions); err != nil {
		return nil, err
	}
	return sortPositions(positions), nil
}

// FeePositions folds all computed fees into per-account net positions.
func (s *PositionService) FeePositions(ctx context.Context) ([]domain.Position, error) {
	legs, err := s.repo.ListFeeLegs(ctx)
	if err != nil {
		return nil, err
	}
	positions := domain.CalculateFeePositions(legs)
	if err := s.seed(ctx, positions); err != nil {
		return nil, err
	}
	return sortPositions(positions), nil
}

func (s *PositionService) seed(ctx context.Context, positions map[string]domain.Position) error {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		names = append(names, a.Name)
	}
	domain.SeedPositions(positions, names)
	return nil
}

func sortPositions(positions map[string]domain.Position) []domain.Position {
	out := make([]domain.Position, 0, len(positions))
	for _, p := range positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}
