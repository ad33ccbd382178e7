package service

import (
	"context"
	"testing"
	"time"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionsSeedEveryAccount(t *testing.T) {
	s := newStack(t)
	defer s.close()
	ctx := context.Background()

	_, err := s.accounts.Create(ctx, "carol")
	require.NoError(t, err)

	positions, err := s.positions.Positions(ctx)
	require.NoError(t, err)

	// Sorted by account name, every account present at zero.
	require.Len(t, positions, 4)
	assert.Equal(t, "alice", positions[0].Account)
	assert.Equal(t, "bob", positions[1].Account)
	assert.Equal(t, "carol", positions[2].Account)
	assert.Equal(t, testFeeAccount, positions[3].Account)
	for _, p := range positions {
		assert.True(t, p.Net.IsZero())
		assert.True(t, p.Payments.IsZero())
		assert.True(t, p.Receipts.IsZero())
	}
}

func TestFeePositionsFromExecutedTransfer(t *testing.T) {
	s := newStack(t)
	defer s.close()
	ctx := context.Background()

	require.NoError(t, s.charges.Create(ctx, &models.Charge{
		Name:       "processing",
		ChargeType: domain.ChargeTypeFlat,
		Payer:      domain.RoleSender,
		Payee:      domain.RoleLedger,
		Amount:     decimal.RequireFromString("2.50"),
		IsActive:   true,
	}))

	req := prepareRequest(conditionFor(t, testFulfillment), time.Now().UTC().Add(time.Hour))
	_, _, err := s.transfers.Prepare(ctx, req)
	require.NoError(t, err)
	_, err = s.transfers.Fulfill(ctx, req.ID, testFulfillment)
	require.NoError(t, err)

	fees, err := s.charges.FeesForTransfer(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, "2.5", fees[0].Amount.String())

	positions, err := s.positions.FeePositions(ctx)
	require.NoError(t, err)
	byAccount := positionsByAccount(positions)
	assert.Equal(t, "-2.5", byAccount["alice"].Net.String())
	assert.Equal(t, "2.5", byAccount[testFeeAccount].Net.String())
	assert.True(t, byAccount["bob"].Net.IsZero())
}
