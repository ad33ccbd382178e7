package projection

import (
	"context"
	"fmt"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/eventstore"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/ayo6706/ledger-transfers/internal/repository"
	"github.com/jackc/pgx/v5"
)

// TransferDetail maintains the denormalized one-row-per-transfer read model.
// Account URIs from the event payload are resolved to internal account ids
// on insert.
type TransferDetail struct {
	repo *repository.Repository
}

func NewTransferDetail(repo *repository.Repository) *TransferDetail {
	return &TransferDetail{repo: repo}
}

func (p *TransferDetail) Name() string { return "transfer_detail" }

func (p *TransferDetail) EventNames() []string {
	return []string{
		domain.EventTransferPrepared,
		domain.EventTransferExecuted,
		domain.EventTransferRejected,
		domain.EventTransferSettled,
	}
}

func (p *TransferDetail) Truncate(ctx context.Context) error {
	return p.repo.TruncateTransferRows(ctx)
}

func (p *TransferDetail) Apply(ctx context.Context, stored eventstore.Event) error {
	ev, err := domain.DecodeEvent(stored.Name, stored.Payload)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case domain.TransferPrepared:
		return p.applyPrepared(ctx, stored, ev)
	case domain.TransferExecuted:
		return p.applyExecuted(ctx, stored, ev)
	case domain.TransferRejected:
		return p.applyRejected(ctx, stored, ev)
	case domain.TransferSettled:
		return p.applySettled(ctx, stored)
	}
	return nil
}

func (p *TransferDetail) applyPrepared(ctx context.Context, stored eventstore.Event, ev domain.TransferPrepared) error {
	debitID, err := p.repo.ResolveAccountID(ctx, ev.Debits[0].Account)
	if err != nil {
		return fmt.Errorf("resolve debit account: %w", err)
	}
	creditID, err := p.repo.ResolveAccountID(ctx, ev.Credits[0].Account)
	if err != nil {
		return fmt.Errorf("resolve credit account: %w", err)
	}

	row := &models.TransferRow{
		TransferUUID:       ev.ID,
		Ledger:             ev.Ledger,
		DebitAccountID:     debitID,
		CreditAccountID:    creditID,
		DebitAmount:        ev.Debits[0].Amount,
		CreditAmount:       ev.Credits[0].Amount,
		ExecutionCondition: ev.ExecutionCondition,
		State:              domain.StatePrepared,
		ExpiresAt:          ev.ExpiresAt,
		PreparedAt:         stored.Timestamp,
	}
	if ev.ExecutionCondition == "" {
		// Unconditional transfers land directly in executed state.
		row.State = domain.StateExecuted
		ts := stored.Timestamp
		row.ExecutedAt = &ts
	}
	_, err = p.repo.InsertTransferRow(ctx, row)
	return err
}

func (p *TransferDetail) applyExecuted(ctx context.Context, stored eventstore.Event, ev domain.TransferExecuted) error {
	rows, err := p.repo.MarkTransferExecuted(ctx, stored.AggregateID, ev.Fulfillment, stored.Timestamp)
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}
	// The prepared row must pre-exist. Distinguish "never prepared" from
	// "already finalized" so the two races stay diagnosable.
	existing, err := p.repo.GetTransferRow(ctx, stored.AggregateID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("%w: executed event for %s", ErrRowNeverPrepared, stored.AggregateID)
		}
		return err
	}
	if existing.State == domain.StateExecuted && existing.Fulfillment == ev.Fulfillment {
		return nil // replay of the same event
	}
	if existing.State == domain.StateSettled {
		return nil // replay after settlement already advanced the row
	}
	return fmt.Errorf("%w: executed event for %s found row in state %s", ErrRowAlreadyFinalized, stored.AggregateID, existing.State)
}

func (p *TransferDetail) applyRejected(ctx context.Context, stored eventstore.Event, ev domain.TransferRejected) error {
	rows, err := p.repo.MarkTransferRejected(ctx, stored.AggregateID, ev.Reason, ev.Message, stored.Timestamp)
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}
	existing, err := p.repo.GetTransferRow(ctx, stored.AggregateID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("%w: rejected event for %s", ErrRowNeverPrepared, stored.AggregateID)
		}
		return err
	}
	if existing.State == domain.StateRejected && existing.RejectionReason == ev.Reason {
		return nil // replay
	}
	return fmt.Errorf("%w: rejected event for %s found row in state %s", ErrRowAlreadyFinalized, stored.AggregateID, existing.State)
}

func (p *TransferDetail) applySettled(ctx context.Context, stored eventstore.Event) error {
	rows, err := p.repo.MarkTransferSettled(ctx, stored.AggregateID)
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}
	existing, err := p.repo.GetTransferRow(ctx, stored.AggregateID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("%w: settled event for %s", ErrRowNeverPrepared, stored.AggregateID)
		}
		return err
	}
	if existing.State == domain.StateSettled {
		return nil // replay
	}
	return fmt.Errorf("%w: settled event for %s found row in state %s", ErrRowAlreadyFinalized, stored.AggregateID, existing.State)
}
