// Package projection keeps the read models in sync with the event log.
// Projections consume events after they are durably appended; a projection
// failure is logged and counted but never aborts the command path. Detected
// read-model/event-log mismatches are fatal consistency faults and are
// reported loudly.
package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/ledger-transfers/internal/eventstore"
	"github.com/ayo6706/ledger-transfers/internal/observability"
	"go.uber.org/zap"
)

// Fatal consistency faults. Two different races can produce them and they
// are kept as separate, diagnosable conditions.
var (
	// ErrRowNeverPrepared means a lifecycle event arrived for a transfer the
	// detail projection has no prepared row for.
	ErrRowNeverPrepared = errors.New("transfer row was never prepared")

	// ErrRowAlreadyFinalized means a lifecycle event arrived for a row that
	// already left the prepared state with different data.
	ErrRowAlreadyFinalized = errors.New("transfer row already finalized")
)

// Handler is one read-model projection.
type Handler interface {
	Name() string
	EventNames() []string
	Apply(ctx context.Context, ev eventstore.Event) error
	Truncate(ctx context.Context) error
}

// Projector fans persisted events out to the registered projections.
type Projector struct {
	store    *eventstore.Store
	handlers []Handler
	logger   *zap.Logger
}

func NewProjector(store *eventstore.Store, logger *zap.Logger, handlers ...Handler) *Projector {
	return &Projector{store: store, handlers: handlers, logger: logger}
}

// Dispatch applies one freshly persisted event to every interested
// projection. The event is already durable, so failures are reported and
// swallowed; the resync on next start repairs any drift.
func (p *Projector) Dispatch(ctx context.Context, ev eventstore.Event) {
	for _, h := range p.handlers {
		if !handles(h, ev.Name) {
			continue
		}
		if err := h.Apply(ctx, ev); err != nil {
			p.report(h, ev, err)
		}
	}
}

// Resync rebuilds every projection from scratch: truncate, then replay the
// full history of its event types in append order. Run on service start.
func (p *Projector) Resync(ctx context.Context) error {
	for _, h := range p.handlers {
		if err := h.Truncate(ctx); err != nil {
			return fmt.Errorf("truncate projection %s: %w", h.Name(), err)
		}
		events, err := p.store.FindByName(ctx, h.EventNames()...)
		if err != nil {
			return fmt.Errorf("load history for projection %s: %w", h.Name(), err)
		}
		for _, ev := range events {
			if err := h.Apply(ctx, ev); err != nil {
				return fmt.Errorf("replay %s into projection %s: %w", ev.Name, h.Name(), err)
			}
		}
		p.logger.Info("projection resynced",
			zap.String("projection", h.Name()),
			zap.Int("events", len(events)))
	}
	return nil
}

func (p *Projector) report(h Handler, ev eventstore.Event, err error) {
	observability.IncrementProjectionFailure(h.Name(), ev.Name)
	if errors.Is(err, ErrRowNeverPrepared) {
		observability.IncrementConsistencyFault("row_never_prepared")
		p.logger.Error("CRITICAL: read model diverged from event log",
			zap.String("projection", h.Name()),
			zap.String("event", ev.Name),
			zap.String("aggregate_id", ev.AggregateID.String()),
			zap.Error(err))
		return
	}
	if errors.Is(err, ErrRowAlreadyFinalized) {
		observability.IncrementConsistencyFault("row_already_finalized")
		p.logger.Error("CRITICAL: read model diverged from event log",
			zap.String("projection", h.Name()),
			zap.String("event", ev.Name),
			zap.String("aggregate_id", ev.AggregateID.String()),
			zap.Error(err))
		return
	}
	p.logger.Error("projection apply failed",
		zap.String("projection", h.Name()),
		zap.String("event", ev.Name),
		zap.String("aggregate_id", ev.AggregateID.String()),
		zap.Error(err))
}

func handles(h Handler, name string) bool {
	for _, n := range h.EventNames() {
		if n == name {
			return true
		}
	}
	return false
}
