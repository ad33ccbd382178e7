package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	err error
}

func (s stubVerifier) Verify(condition, fulfillment string) error { return s.err }

func preparedEvent(condition string) TransferPrepared {
	return TransferPrepared{
		ID:     uuid.New(),
		Ledger: "http://localhost",
		Debits: []Funds{{
			Account: "alice",
			Amount:  decimal.RequireFromString("100.25"),
		}},
		Credits: []Funds{{
			Account: "bob",
			Amount:  decimal.RequireFromString("100.25"),
		}},
		ExecutionCondition: condition,
		ExpiresAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func recordedAt(ev Event, seq int64, at time.Time) RecordedEvent {
	return RecordedEvent{Event: ev, SequenceNumber: seq, Timestamp: at}
}

func TestReplayEmptyHistory(t *testing.T) {
	_, err := Replay(nil)
	assert.ErrorIs(t, err, ErrTransferNotFound)
}

func TestReplayConditionalLifecycle(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	t0 := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	events := []RecordedEvent{
		recordedAt(prepared, 1, t0),
		recordedAt(TransferExecuted{Fulfillment: "cf:0:abc"}, 2, t1),
	}

	tr, err := Replay(events)
	require.NoError(t, err)
	assert.Equal(t, StateExecuted, tr.State)
	assert.Equal(t, "cf:0:abc", tr.Fulfillment)
	assert.Equal(t, t0, tr.Timeline.PreparedAt)
	require.NotNil(t, tr.Timeline.ExecutedAt)
	assert.Equal(t, t1, *tr.Timeline.ExecutedAt)
	assert.Equal(t, int64(2), tr.Version())

	// Folding the same history again yields identical state.
	again, err := Replay(events)
	require.NoError(t, err)
	assert.Equal(t, tr, again)
}

func TestReplayUnconditionalExecutesImmediately(t *testing.T) {
	prepared := preparedEvent("")
	t0 := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

	tr, err := Replay([]RecordedEvent{recordedAt(prepared, 1, t0)})
	require.NoError(t, err)
	assert.Equal(t, StateExecuted, tr.State)
	require.NotNil(t, tr.Timeline.ExecutedAt)
	assert.Equal(t, t0, *tr.Timeline.ExecutedAt)
	assert.Equal(t, t0, tr.Timeline.PreparedAt)
}

func TestFulfillGuards(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	now := prepared.ExpiresAt.Add(-time.Hour)

	tr, err := Replay([]RecordedEvent{recordedAt(prepared, 1, now.Add(-time.Minute))})
	require.NoError(t, err)

	ev, err := tr.Fulfill("cf:0:abc", stubVerifier{}, now)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "cf:0:abc", ev.Fulfillment)
}

func TestFulfillAfterExpiry(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	tr, err := Replay([]RecordedEvent{recordedAt(prepared, 1, prepared.ExpiresAt.Add(-time.Hour))})
	require.NoError(t, err)

	// Expiry is checked before the condition, so even a bad fulfillment
	// reports expiry.
	_, err = tr.Fulfill("garbage", stubVerifier{err: assert.AnError}, prepared.ExpiresAt.Add(time.Second))
	assert.ErrorIs(t, err, ErrExpiredTransfer)
}

func TestFulfillAtExactExpiryIsAllowed(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	tr, err := Replay([]RecordedEvent{recordedAt(prepared, 1, prepared.ExpiresAt.Add(-time.Hour))})
	require.NoError(t, err)

	ev, err := tr.Fulfill("cf:0:abc", stubVerifier{}, prepared.ExpiresAt)
	require.NoError(t, err)
	assert.NotNil(t, ev)
}

func TestFulfillVerifierFailure(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	tr, err := Replay([]RecordedEvent{recordedAt(prepared, 1, time.Now())})
	require.NoError(t, err)

	_, err = tr.Fulfill("cf:0:xyz", stubVerifier{err: assert.AnError}, prepared.ExpiresAt.Add(-time.Hour))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFulfillIdempotentForSameString(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	tr, err := Replay([]RecordedEvent{
		recordedAt(prepared, 1, time.Now()),
		recordedAt(TransferExecuted{Fulfillment: "cf:0:abc"}, 2, time.Now()),
	})
	require.NoError(t, err)

	ev, err := tr.Fulfill("cf:0:abc", stubVerifier{err: assert.AnError}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, ev)

	_, err = tr.Fulfill("cf:0:other", stubVerifier{}, time.Now())
	assert.ErrorIs(t, err, ErrUnpreparedTransfer)
}

func TestFulfillRejectedTransfer(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	tr, err := Replay([]RecordedEvent{
		recordedAt(prepared, 1, time.Now()),
		recordedAt(TransferRejected{Reason: RejectionCancelled}, 2, time.Now()),
	})
	require.NoError(t, err)

	_, err = tr.Fulfill("cf:0:abc", stubVerifier{}, prepared.ExpiresAt.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrUnpreparedTransfer)
}

func TestRejectPrepared(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	tr, err := Replay([]RecordedEvent{recordedAt(prepared, 1, time.Now())})
	require.NoError(t, err)

	ev, err := tr.Reject(RejectionCancelled, "changed my mind")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, RejectionCancelled, ev.Reason)

	require.NoError(t, tr.Apply(recordedAt(*ev, 2, time.Now())))
	assert.Equal(t, StateRejected, tr.State)
	assert.True(t, tr.Credits[0].Rejected)
	assert.Equal(t, "changed my mind", tr.Credits[0].RejectionMessage)
}

func TestRejectUnconditional(t *testing.T) {
	prepared := preparedEvent("")
	tr, err := Replay([]RecordedEvent{recordedAt(prepared, 1, time.Now())})
	require.NoError(t, err)

	// The not-conditional error wins over the executed-state error.
	_, err = tr.Reject(RejectionCancelled, "")
	assert.ErrorIs(t, err, ErrTransferNotConditional)
}

func TestRejectExecuted(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	tr, err := Replay([]RecordedEvent{
		recordedAt(prepared, 1, time.Now()),
		recordedAt(TransferExecuted{Fulfillment: "cf:0:abc"}, 2, time.Now()),
	})
	require.NoError(t, err)

	_, err = tr.Reject(RejectionCancelled, "")
	assert.ErrorIs(t, err, ErrInvalidModification)
}

func TestRejectIdempotent(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	tr, err := Replay([]RecordedEvent{
		recordedAt(prepared, 1, time.Now()),
		recordedAt(TransferRejected{Reason: RejectionExpired, Message: "transfer expired"}, 2, time.Now()),
	})
	require.NoError(t, err)

	ev, err := tr.Reject(RejectionExpired, "transfer expired")
	require.NoError(t, err)
	assert.Nil(t, ev)

	_, err = tr.Reject(RejectionCancelled, "different")
	assert.ErrorIs(t, err, ErrInvalidModification)
}

func TestSettleGuards(t *testing.T) {
	prepared := preparedEvent("")
	tr, err := Replay([]RecordedEvent{recordedAt(prepared, 1, time.Now())})
	require.NoError(t, err)

	batch := uuid.New()
	ev, err := tr.Settle(batch)
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.NoError(t, tr.Apply(recordedAt(*ev, 2, time.Now())))
	assert.Equal(t, StateSettled, tr.State)

	// Same batch is a no-op, another batch is a conflict.
	ev, err = tr.Settle(batch)
	require.NoError(t, err)
	assert.Nil(t, ev)

	_, err = tr.Settle(uuid.New())
	assert.ErrorIs(t, err, ErrInvalidModification)
}

func TestSettleUnexecuted(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	tr, err := Replay([]RecordedEvent{recordedAt(prepared, 1, time.Now())})
	require.NoError(t, err)

	_, err = tr.Settle(uuid.New())
	assert.ErrorIs(t, err, ErrInvalidModification)
}

func TestMatchesPrepared(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")
	tr, err := Replay([]RecordedEvent{recordedAt(prepared, 1, time.Now())})
	require.NoError(t, err)

	assert.True(t, tr.MatchesPrepared(prepared))

	// Equal decimal values in different representations still match.
	same := prepared
	same.Debits = []Funds{{Account: "alice", Amount: decimal.RequireFromString("100.250")}}
	same.Credits = []Funds{{Account: "bob", Amount: decimal.RequireFromString("100.2500")}}
	assert.True(t, tr.MatchesPrepared(same))

	different := prepared
	different.Credits = []Funds{{Account: "carol", Amount: prepared.Credits[0].Amount}}
	assert.False(t, tr.MatchesPrepared(different))

	differentExpiry := prepared
	differentExpiry.ExpiresAt = prepared.ExpiresAt.Add(time.Second)
	assert.False(t, tr.MatchesPrepared(differentExpiry))
}

func TestEventCodecRoundTrip(t *testing.T) {
	prepared := preparedEvent("cc:0:3:abc:5")

	payload, err := EncodeEvent(prepared)
	require.NoError(t, err)

	decoded, err := DecodeEvent(EventTransferPrepared, payload)
	require.NoError(t, err)
	got, ok := decoded.(TransferPrepared)
	require.True(t, ok)
	assert.Equal(t, prepared.ID, got.ID)
	assert.True(t, prepared.Debits[0].Amount.Equal(got.Debits[0].Amount))

	_, err = DecodeEvent("SomethingElse", payload)
	assert.Error(t, err)
}
