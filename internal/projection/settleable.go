package projection

import (
	"context"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/eventstore"
	"github.com/ayo6706/ledger-transfers/internal/repository"
)

// Settleable tracks executed-but-unsettled transfers as two marker tables;
// the settleable set is the anti-join of executed minus settled. Marker
// inserts are conflict-ignoring so replay never double-counts.
type Settleable struct {
	repo *repository.Repository
}

func NewSettleable(repo *repository.Repository) *Settleable {
	return &Settleable{repo: repo}
}

func (p *Settleable) Name() string { return "settleable_transfers" }

func (p *Settleable) EventNames() []string {
	return []string{
		domain.EventTransferPrepared,
		domain.EventTransferExecuted,
		domain.EventTransferSettled,
	}
}

func (p *Settleable) Truncate(ctx context.Context) error {
	return p.repo.TruncateSettleableMarkers(ctx)
}

func (p *Settleable) Apply(ctx context.Context, stored eventstore.Event) error {
	ev, err := domain.DecodeEvent(stored.Name, stored.Payload)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case domain.TransferPrepared:
		// Unconditional transfers execute on the prepare event itself.
		if ev.ExecutionCondition != "" {
			return nil
		}
		return p.repo.InsertExecutedMarker(ctx, stored.AggregateID, stored.Timestamp)
	case domain.TransferExecuted:
		return p.repo.InsertExecutedMarker(ctx, stored.AggregateID, stored.Timestamp)
	case domain.TransferSettled:
		return p.repo.InsertSettledMarker(ctx, stored.AggregateID, ev.SettlementID)
	}
	return nil
}
