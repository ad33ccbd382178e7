package service

import (
	"context"
	"testing"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCharge() *models.Charge {
	return &models.Charge{
		Name:       "processing",
		ChargeType: domain.ChargeTypeFlat,
		Payer:      domain.RoleSender,
		Payee:      domain.RoleLedger,
		Amount:     decimal.RequireFromString("2.50"),
		IsActive:   true,
	}
}

func TestChargeCreateValidation(t *testing.T) {
	s := newStack(t)
	defer s.close()
	ctx := context.Background()

	min := decimal.RequireFromString("10")
	cases := []struct {
		name   string
		mutate func(c *models.Charge)
	}{
		{"missing name", func(c *models.Charge) { c.Name = "" }},
		{"bad type", func(c *models.Charge) { c.ChargeType = "tiered" }},
		{"bad payer", func(c *models.Charge) { c.Payer = "treasury" }},
		{"bad payee", func(c *models.Charge) { c.Payee = "treasury" }},
		{"zero amount", func(c *models.Charge) { c.Amount = decimal.Zero }},
		{"inverted thresholds", func(c *models.Charge) {
			c.MinThreshold = &min
			c.MaxThreshold = &min
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			charge := validCharge()
			tc.mutate(charge)
			err := s.charges.Create(ctx, charge)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestChargeListActive(t *testing.T) {
	s := newStack(t)
	defer s.close()
	ctx := context.Background()

	charges, err := s.charges.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, charges)

	require.NoError(t, s.charges.Create(ctx, validCharge()))
	inactive := validCharge()
	inactive.Name = "legacy"
	inactive.IsActive = false
	require.NoError(t, s.charges.Create(ctx, inactive))

	charges, err = s.charges.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, "processing", charges[0].Name)
}

func TestAccountService(t *testing.T) {
	s := newStack(t)
	defer s.close()
	ctx := context.Background()

	_, err := s.accounts.Create(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	created, err := s.accounts.Create(ctx, "carol")
	require.NoError(t, err)

	// Re-registering returns the same row.
	again, err := s.accounts.Create(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	got, err := s.accounts.Get(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = s.accounts.Get(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrAccountNotFound)

	accounts, err := s.accounts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 4)
}
