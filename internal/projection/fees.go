package projection

import (
	"context"
	"fmt"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/eventstore"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/ayo6706/ledger-transfers/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Fees computes one fee row per applicable charge when a transfer executes.
// Charges are evaluated in name order; the unique (transfer, charge)
// constraint makes replay idempotent.
type Fees struct {
	repo *repository.Repository

	// ledgerAccount collects fees whose payer or payee role is "ledger".
	ledgerAccount string
}

func NewFees(repo *repository.Repository, ledgerAccount string) *Fees {
	return &Fees{repo: repo, ledgerAccount: ledgerAccount}
}

func (p *Fees) Name() string { return "fees" }

func (p *Fees) EventNames() []string {
	return []string{
		domain.EventTransferPrepared,
		domain.EventTransferExecuted,
	}
}

func (p *Fees) Truncate(ctx context.Context) error {
	return p.repo.TruncateFees(ctx)
}

func (p *Fees) Apply(ctx context.Context, stored eventstore.Event) error {
	ev, err := domain.DecodeEvent(stored.Name, stored.Payload)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case domain.TransferPrepared:
		if ev.ExecutionCondition != "" {
			return nil
		}
		return p.applyExecuted(ctx, stored)
	case domain.TransferExecuted:
		return p.applyExecuted(ctx, stored)
	}
	return nil
}

func (p *Fees) applyExecuted(ctx context.Context, stored eventstore.Event) error {
	row, err := p.repo.GetTransferRow(ctx, stored.AggregateID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("%w: fee computation for %s", ErrRowNeverPrepared, stored.AggregateID)
		}
		return err
	}

	charges, err := p.repo.ListActiveCharges(ctx)
	if err != nil {
		return err
	}

	for _, charge := range charges {
		if !chargeApplies(charge, row.CreditAmount) {
			continue
		}
		payerID, err := p.resolveRole(ctx, charge.Payer, row)
		if err != nil {
			return err
		}
		payeeID, err := p.resolveRole(ctx, charge.Payee, row)
		if err != nil {
			return err
		}
		fee := &models.Fee{
			TransferUUID:   row.TransferUUID,
			ChargeID:       charge.ID,
			Amount:         feeAmount(charge, row.CreditAmount),
			PayerAccountID: payerID,
			PayeeAccountID: payeeID,
		}
		if _, err := p.repo.InsertFee(ctx, fee); err != nil {
			return err
		}
	}
	return nil
}

func (p *Fees) resolveRole(ctx context.Context, role string, row *models.TransferRow) (int64, error) {
	switch role {
	case domain.RoleSender:
		return row.DebitAccountID, nil
	case domain.RoleReceiver:
		return row.CreditAccountID, nil
	case domain.RoleLedger:
		return p.repo.ResolveAccountID(ctx, p.ledgerAccount)
	default:
		return 0, fmt.Errorf("unknown charge role %q", role)
	}
}

func chargeApplies(charge models.Charge, creditAmount decimal.Decimal) bool {
	if charge.MinThreshold != nil && creditAmount.LessThan(*charge.MinThreshold) {
		return false
	}
	if charge.MaxThreshold != nil && creditAmount.GreaterThanOrEqual(*charge.MaxThreshold) {
		return false
	}
	return true
}

func feeAmount(charge models.Charge, creditAmount decimal.Decimal) decimal.Decimal {
	if charge.ChargeType == domain.ChargeTypePercentage {
		return creditAmount.Mul(charge.Amount)
	}
	return charge.Amount
}
