package service

import (
	"context"
	"testing"
	"time"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleBatchesExecutedTransfers(t *testing.T) {
	s := newStack(t)
	defer s.close()
	ctx := context.Background()

	first := prepareRequest(conditionFor(t, testFulfillment), time.Now().UTC().Add(time.Hour))
	_, _, err := s.transfers.Prepare(ctx, first)
	require.NoError(t, err)
	_, err = s.transfers.Fulfill(ctx, first.ID, testFulfillment)
	require.NoError(t, err)

	second := prepareRequest("", time.Time{})
	_, _, err = s.transfers.Prepare(ctx, second)
	require.NoError(t, err)

	// A prepared-but-unfulfilled transfer stays out of the batch.
	pending := prepareRequest(conditionFor(t, testFulfillment), time.Now().UTC().Add(time.Hour))
	_, _, err = s.transfers.Prepare(ctx, pending)
	require.NoError(t, err)

	result, err := s.settlements.Settle(ctx)
	require.NoError(t, err)
	require.NotNil(t, result.Settlement)
	assert.ElementsMatch(t, []uuid.UUID{
		uuid.MustParse(first.ID),
		uuid.MustParse(second.ID),
	}, result.Transfers)

	res, err := s.transfers.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSettled, res.State)

	ids, err := s.settlements.ListSettleable(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// With nothing settleable no batch is opened.
	result, err = s.settlements.Settle(ctx)
	require.NoError(t, err)
	assert.Nil(t, result.Settlement)
	assert.Empty(t, result.Transfers)
}

func TestSettledTransfersLeavePositions(t *testing.T) {
	s := newStack(t)
	defer s.close()
	ctx := context.Background()

	req := prepareRequest("", time.Time{})
	_, _, err := s.transfers.Prepare(ctx, req)
	require.NoError(t, err)

	positions, err := s.positions.Positions(ctx)
	require.NoError(t, err)
	byAccount := positionsByAccount(positions)
	assert.Equal(t, "-100.25", byAccount["alice"].Net.String())
	assert.Equal(t, "100.25", byAccount["bob"].Net.String())

	_, err = s.settlements.Settle(ctx)
	require.NoError(t, err)

	// Settlement zeroes the outstanding positions.
	positions, err = s.positions.Positions(ctx)
	require.NoError(t, err)
	byAccount = positionsByAccount(positions)
	assert.True(t, byAccount["alice"].Net.IsZero())
	assert.True(t, byAccount["bob"].Net.IsZero())
}

func positionsByAccount(positions []domain.Position) map[string]domain.Position {
	out := make(map[string]domain.Position, len(positions))
	for _, p := range positions {
		out[p.Account] = p
	}
	return out
}
