package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConditionVerifier checks a fulfillment string against a recorded condition.
// The single production implementation lives in internal/cryptocondition.
type ConditionVerifier interface {
	Verify(condition, fulfillment string) error
}

// Timeline records when each lifecycle phase was reached.
type Timeline struct {
	PreparedAt time.Time  `json:"prepared_at"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
}

// Transfer is the aggregate reconstructed by folding its event history. It is
// never persisted directly; the event log is the source of truth.
type Transfer struct {
	ID                 uuid.UUID
	Ledger             string
	Debits             []Funds
	Credits            []Funds
	ExecutionCondition string
	ExpiresAt          time.Time
	State              string
	Fulfillment        string
	RejectionReason    string
	SettlementID       uuid.UUID
	Timeline           Timeline

	version int64
}

// Version is the sequence number of the last applied event.
func (t *Transfer) Version() int64 { return t.version }

// Replay folds an ordered event history into a fresh aggregate. Folding the
// same history twice yields identical state.
func Replay(events []RecordedEvent) (*Transfer, error) {
	if len(events) == 0 {
		return nil, ErrTransferNotFound
	}
	t := &Transfer{}
	for _, ev := range events {
		if err := t.Apply(ev); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Apply is the pure reducer for a single recorded event.
func (t *Transfer) Apply(rec RecordedEvent) error {
	switch ev := rec.Event.(type) {
	case TransferPrepared:
		t.ID = ev.ID
		t.Ledger = ev.Ledger
		t.Debits = cloneFunds(ev.Debits)
		t.Credits = cloneFunds(ev.Credits)
		t.ExecutionCondition = ev.ExecutionCondition
		t.ExpiresAt = ev.ExpiresAt
		t.State = StatePrepared
		t.Timeline.PreparedAt = rec.Timestamp
		if ev.ExecutionCondition == "" {
			// Unconditional transfers execute synchronously at creation;
			// both phases derive from the one event.
			t.State = StateExecuted
			ts := rec.Timestamp
			t.Timeline.ExecutedAt = &ts
		}
	case TransferExecuted:
		t.State = StateExecuted
		t.Fulfillment = ev.Fulfillment
		ts := rec.Timestamp
		t.Timeline.ExecutedAt = &ts
	case TransferRejected:
		t.State = StateRejected
		t.RejectionReason = ev.Reason
		if ev.Reason == RejectionCancelled && len(t.Credits) > 0 {
			t.Credits[0].Rejected = true
			t.Credits[0].RejectionMessage = ev.Message
		}
		ts := rec.Timestamp
		t.Timeline.RejectedAt = &ts
	case TransferSettled:
		t.State = StateSettled
		t.SettlementID = ev.SettlementID
	default:
		return fmt.Errorf("unhandled event %T", rec.Event)
	}
	t.version = rec.SequenceNumber
	return nil
}

// MatchesPrepared compares the proposed prepare payload against the state the
// aggregate was created with, field by field.
func (t *Transfer) MatchesPrepared(ev TransferPrepared) bool {
	if t.Ledger != ev.Ledger ||
		t.ExecutionCondition != ev.ExecutionCondition ||
		!t.ExpiresAt.Equal(ev.ExpiresAt) {
		return false
	}
	return fundsEqual(t.Debits, ev.Debits) && fundsEqual(t.Credits, ev.Credits)
}

// Fulfill guards the prepared→executed transition. A nil event with nil error
// means the transfer was previously fulfilled with the same string and there
// is nothing to persist.
func (t *Transfer) Fulfill(fulfillment string, verifier ConditionVerifier, now time.Time) (*TransferExecuted, error) {
	if t.State == StateExecuted && t.Fulfillment != "" && t.Fulfillment == fulfillment {
		return nil, nil
	}
	if t.State != StatePrepared {
		return nil, fmt.Errorf("%w: state is %s", ErrUnpreparedTransfer, t.State)
	}
	if now.After(t.ExpiresAt) {
		return nil, fmt.Errorf("%w: expired at %s", ErrExpiredTransfer, t.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if err := verifier.Verify(t.ExecutionCondition, fulfillment); err != nil {
		return nil, err
	}
	return &TransferExecuted{Fulfillment: fulfillment}, nil
}

// Reject guards the prepared→rejected transition. A nil event with nil error
// means an identical rejection was already recorded.
func (t *Transfer) Reject(reason, message string) (*TransferRejected, error) {
	if t.State == StateRejected && t.RejectionReason == reason {
		// Only cancellations carry the message into state, so it is compared
		// for them alone.
		if reason != RejectionCancelled || t.rejectionMessage() == message {
			return nil, nil
		}
	}
	if t.ExecutionCondition == "" {
		return nil, fmt.Errorf("%w: unconditional transfers cannot be rejected", ErrTransferNotConditional)
	}
	if t.State == StateExecuted || t.State == StateSettled {
		return nil, fmt.Errorf("%w: transfers in state %s may not be rejected", ErrInvalidModification, t.State)
	}
	if t.State == StateRejected {
		return nil, fmt.Errorf("%w: transfer was already rejected with a different reason", ErrInvalidModification)
	}
	return &TransferRejected{Reason: reason, Message: message}, nil
}

// Settle guards the executed→settled transition.
func (t *Transfer) Settle(settlementID uuid.UUID) (*TransferSettled, error) {
	if t.State == StateSettled {
		if t.SettlementID == settlementID {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: transfer already settled in batch %s", ErrInvalidModification, t.SettlementID)
	}
	if t.State != StateExecuted {
		return nil, fmt.Errorf("%w: transfers in state %s may not be settled", ErrInvalidModification, t.State)
	}
	return &TransferSettled{SettlementID: settlementID}, nil
}

func (t *Transfer) rejectionMessage() string {
	if len(t.Credits) == 0 {
		return ""
	}
	return t.Credits[0].RejectionMessage
}

func cloneFunds(in []Funds) []Funds {
	out := make([]Funds, len(in))
	copy(out, in)
	return out
}

func fundsEqual(a, b []Funds) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Account != b[i].Account ||
			!a[i].Amount.Equal(b[i].Amount) ||
			a[i].Memo != b[i].Memo ||
			a[i].Invoice != b[i].Invoice {
			return false
		}
	}
	return true
}
