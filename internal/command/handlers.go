// Package command implements the transfer lifecycle command handlers: load
// the aggregate from the event log, run the transition guard, persist the
// resulting event, then hand it to the projections. One command yields at
// most one new persisted event.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/eventstore"
	"github.com/ayo6706/ledger-transfers/internal/projection"
	"github.com/google/uuid"
)

type Handlers struct {
	events    *eventstore.Store
	projector *projection.Projector
	verifier  domain.ConditionVerifier
	now       func() time.Time
}

func New(events *eventstore.Store, projector *projection.Projector, verifier domain.ConditionVerifier) *Handlers {
	return &Handlers{
		events:    events,
		projector: projector,
		verifier:  verifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall clock, for tests.
func (h *Handlers) WithClock(now func() time.Time) *Handlers {
	h.now = now
	return h
}

// Load replays the aggregate for id. Returns domain.ErrTransferNotFound when
// no events exist.
func (h *Handlers) Load(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	stored, err := h.events.FindByAggregateID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, domain.ErrTransferNotFound
	}
	recorded := make([]domain.RecordedEvent, 0, len(stored))
	for _, se := range stored {
		ev, err := domain.DecodeEvent(se.Name, se.Payload)
		if err != nil {
			return nil, err
		}
		recorded = append(recorded, domain.RecordedEvent{
			Event:          ev,
			SequenceNumber: se.SequenceNumber,
			Timestamp:      se.Timestamp,
		})
	}
	return domain.Replay(recorded)
}

// Prepare creates the aggregate with the externally supplied id. The id is
// passed explicitly and the event is appended as the forced first event of
// the stream. Returns the aggregate and whether it already existed.
func (h *Handlers) Prepare(ctx context.Context, ev domain.TransferPrepared) (*domain.Transfer, bool, error) {
	existing, err := h.Load(ctx, ev.ID)
	if err != nil && !errors.Is(err, domain.ErrTransferNotFound) {
		return nil, false, err
	}
	if existing != nil {
		return h.guardExisting(existing, ev)
	}

	stored, err := h.persist(ctx, ev.ID, ev, true)
	if err == nil {
		t := &domain.Transfer{}
		if applyErr := t.Apply(recorded(ev, stored)); applyErr != nil {
			return nil, false, applyErr
		}
		h.projector.Dispatch(ctx, *stored)
		return t, false, nil
	}
	if !errors.Is(err, eventstore.ErrAlreadyExists) {
		return nil, false, err
	}

	// Lost the race for sequence 1: a concurrent create won. Re-read and
	// decide by payload equality.
	winner, loadErr := h.Load(ctx, ev.ID)
	if loadErr != nil {
		return nil, false, loadErr
	}
	return h.guardExisting(winner, ev)
}

func (h *Handlers) guardExisting(existing *domain.Transfer, ev domain.TransferPrepared) (*domain.Transfer, bool, error) {
	if !existing.MatchesPrepared(ev) {
		return nil, false, fmt.Errorf("%w: transfer %s exists with a different payload", domain.ErrInvalidModification, ev.ID)
	}
	if existing.State == domain.StatePrepared {
		return existing, true, nil
	}
	// Identical payload but the transfer already advanced past prepared.
	// The service layer treats this as an idempotent success.
	return existing, true, fmt.Errorf("%w: transfer %s is %s", domain.ErrAlreadyExists, ev.ID, existing.State)
}

// Fulfill verifies the fulfillment against the stored condition and records
// execution. A lost append race is re-read and converted into the idempotent
// "previously fulfilled" result when the winner recorded the same string.
func (h *Handlers) Fulfill(ctx context.Context, id uuid.UUID, fulfillment string) (*domain.Transfer, error) {
	return h.fulfill(ctx, id, fulfillment, true)
}

func (h *Handlers) fulfill(ctx context.Context, id uuid.UUID, fulfillment string, retryOnConflict bool) (*domain.Transfer, error) {
	t, err := h.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	ev, err := t.Fulfill(fulfillment, h.verifier, h.now())
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return t, nil // previously fulfilled with the same string
	}

	stored, err := h.persist(ctx, id, *ev, false)
	if err != nil {
		if retryOnConflict && errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return h.fulfill(ctx, id, fulfillment, false)
		}
		return nil, err
	}
	if err := t.Apply(recorded(*ev, stored)); err != nil {
		return nil, err
	}
	h.projector.Dispatch(ctx, *stored)
	return t, nil
}

// Reject records a rejection with the given reason.
func (h *Handlers) Reject(ctx context.Context, id uuid.UUID, reason, message string) (*domain.Transfer, error) {
	t, err := h.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	ev, err := t.Reject(reason, message)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return t, nil // identical rejection already recorded
	}

	stored, err := h.persist(ctx, id, *ev, false)
	if err != nil {
		return nil, err
	}
	if err := t.Apply(recorded(*ev, stored)); err != nil {
		return nil, err
	}
	h.projector.Dispatch(ctx, *stored)
	return t, nil
}

// Settle marks an executed transfer as settled in the given batch.
func (h *Handlers) Settle(ctx context.Context, id, settlementID uuid.UUID) (*domain.Transfer, error) {
	t, err := h.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	ev, err := t.Settle(settlementID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return t, nil
	}

	stored, err := h.persist(ctx, id, *ev, false)
	if err != nil {
		return nil, err
	}
	if err := t.Apply(recorded(*ev, stored)); err != nil {
		return nil, err
	}
	h.projector.Dispatch(ctx, *stored)
	return t, nil
}

func (h *Handlers) persist(ctx context.Context, id uuid.UUID, ev domain.Event, mustBeFirst bool) (*eventstore.Event, error) {
	payload, err := domain.EncodeEvent(ev)
	if err != nil {
		return nil, err
	}
	return h.events.Append(ctx, eventstore.Event{
		Name:          ev.EventName(),
		Payload:       payload,
		AggregateID:   id,
		AggregateName: domain.AggregateName,
		Timestamp:     h.now(),
	}, mustBeFirst)
}

func recorded(ev domain.Event, stored *eventstore.Event) domain.RecordedEvent {
	return domain.RecordedEvent{
		Event:          ev,
		SequenceNumber: stored.SequenceNumber,
		Timestamp:      stored.Timestamp,
	}
}
