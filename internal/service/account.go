package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/ayo6706/ledger-transfers/internal/repository"
)

type AccountService struct {
	repo *repository.Repository
}

func NewAccountService(repo *repository.Repository) *AccountService {
	return &AccountService{repo: repo}
}

// Create registers an account name. Re-registering an existing name returns
// the existing account.
func (s *AccountService) Create(ctx context.Context, name string) (*models.Account, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: account name is required", domain.ErrValidation)
	}
	return s.repo.CreateAccount(ctx, name)
}

func (s *AccountService) Get(ctx context.Context, name string) (*models.Account, error) {
	return s.repo.GetAccountByName(ctx, name)
}

func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}
