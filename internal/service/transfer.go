// Package service holds the application services between the HTTP handlers
// and the command/query layers. Services validate input, run commands, and
// translate aggregates and read-model rows into the external representation.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayo6706/ledger-transfers/internal/command"
	"github.com/ayo6706/ledger-transfers/internal/cryptocondition"
	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/ayo6706/ledger-transfers/internal/observability"
	"github.com/ayo6706/ledger-transfers/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PrepareRequest is the client payload of PUT /v1/transfers/{id}.
type PrepareRequest struct {
	ID                 string        `json:"id"`
	Ledger             string        `json:"ledger"`
	Debits             []domain.Funds `json:"debits"`
	Credits            []domain.Funds `json:"credits"`
	ExecutionCondition string        `json:"execution_condition,omitempty"`
	ExpiresAt          time.Time     `json:"expires_at,omitempty"`
}

// TransferResource is the external representation of a transfer.
type TransferResource struct {
	ID                   uuid.UUID       `json:"id"`
	Ledger               string          `json:"ledger"`
	Debits               []domain.Funds  `json:"debits"`
	Credits              []domain.Funds  `json:"credits"`
	ExecutionCondition   string          `json:"execution_condition,omitempty"`
	ExecutionFulfillment string          `json:"execution_fulfillment,omitempty"`
	ExpiresAt            time.Time       `json:"expires_at,omitempty"`
	State                string          `json:"state"`
	RejectionReason      string          `json:"rejection_reason,omitempty"`
	Timeline             domain.Timeline `json:"timeline"`
}

// ExpirySweepResult summarizes one pass over past-expiry prepared transfers.
// Transfers lists the ids the sweep actually rejected.
type ExpirySweepResult struct {
	Expired   int         `json:"expired"`
	Rejected  int         `json:"rejected"`
	Skipped   int         `json:"skipped"`
	Failed    int         `json:"failed"`
	Transfers []uuid.UUID `json:"transfers"`
}

type TransferService struct {
	handlers *command.Handlers
	repo     *repository.Repository
	logger   *zap.Logger

	// ledger is this service's own ledger identifier; prepares naming any
	// other ledger are rejected.
	ledger string

	// expiryConcurrency bounds the number of in-flight rejections during an
	// expiry sweep.
	expiryConcurrency int
}

func NewTransferService(handlers *command.Handlers, repo *repository.Repository, logger *zap.Logger, ledger string, expiryConcurrency int) *TransferService {
	if expiryConcurrency < 1 {
		expiryConcurrency = 1
	}
	return &TransferService{
		handlers:          handlers,
		repo:              repo,
		logger:            logger,
		ledger:            ledger,
		expiryConcurrency: expiryConcurrency,
	}
}

// Prepare creates a transfer under the client-chosen id. The second return
// value reports whether an identical transfer already existed; a retried
// create is a success, not a conflict.
func (s *TransferService) Prepare(ctx context.Context, req PrepareRequest) (*TransferResource, bool, error) {
	ev, err := s.validatePrepare(ctx, req)
	if err != nil {
		return nil, false, err
	}

	t, existed, err := s.handlers.Prepare(ctx, *ev)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) && t != nil {
			// Identical payload, transfer already advanced past prepared.
			return translateAggregate(t), true, nil
		}
		return nil, false, err
	}
	return translateAggregate(t), existed, nil
}

// GetByID serves the transfer from the detail read model, falling back to an
// event-log replay when the projection has not caught up yet.
func (s *TransferService) GetByID(ctx context.Context, rawID string) (*TransferResource, error) {
	id, err := parseTransferID(rawID)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.GetTransferRow(ctx, id)
	if err == nil {
		return translateRow(row), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	t, err := s.handlers.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return translateAggregate(t), nil
}

// Fulfill submits a fulfillment for a conditional transfer. Submitting a
// fulfillment to an already expired transfer rejects the transfer as a side
// effect before the error is returned.
func (s *TransferService) Fulfill(ctx context.Context, rawID, fulfillment string) (*TransferResource, error) {
	id, err := parseTransferID(rawID)
	if err != nil {
		return nil, err
	}
	if fulfillment == "" {
		return nil, fmt.Errorf("%w: fulfillment is required", domain.ErrValidation)
	}

	t, err := s.handlers.Fulfill(ctx, id, fulfillment)
	if err != nil {
		if errors.Is(err, domain.ErrExpiredTransfer) {
			if _, rejErr := s.handlers.Reject(ctx, id, domain.RejectionExpired, "transfer expired"); rejErr != nil {
				s.logger.Error("failed to reject expired transfer on fulfillment",
					zap.String("transfer_id", id.String()),
					zap.Error(rejErr))
			}
		}
		return nil, err
	}
	return translateAggregate(t), nil
}

// GetFulfillment returns the fulfillment a transfer was executed with.
func (s *TransferService) GetFulfillment(ctx context.Context, rawID string) (string, error) {
	id, err := parseTransferID(rawID)
	if err != nil {
		return "", err
	}
	t, err := s.handlers.Load(ctx, id)
	if err != nil {
		return "", err
	}
	if t.ExecutionCondition == "" {
		return "", fmt.Errorf("%w: transfer %s", domain.ErrTransferNotConditional, id)
	}
	if t.State == domain.StateRejected {
		return "", fmt.Errorf("%w: transfer %s", domain.ErrAlreadyRolledBack, id)
	}
	if t.Fulfillment == "" {
		return "", fmt.Errorf("%w: transfer %s", domain.ErrMissingFulfillment, id)
	}
	return t.Fulfillment, nil
}

// Reject cancels a prepared conditional transfer on the client's behalf.
func (s *TransferService) Reject(ctx context.Context, rawID, message string) (*TransferResource, error) {
	id, err := parseTransferID(rawID)
	if err != nil {
		return nil, err
	}
	t, err := s.handlers.Reject(ctx, id, domain.RejectionCancelled, message)
	if err != nil {
		return nil, err
	}
	return translateAggregate(t), nil
}

// RejectExpired sweeps prepared transfers whose expiry has passed and rejects
// each one. Rejections run concurrently up to the configured bound; a
// transfer that advanced between listing and rejection is skipped, not an
// error.
func (s *TransferService) RejectExpired(ctx context.Context) (*ExpirySweepResult, error) {
	ids, err := s.repo.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	result := &ExpirySweepResult{
		Expired:   len(ids),
		Transfers: make([]uuid.UUID, 0, len(ids)),
	}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.expiryConcurrency)

	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(id uuid.UUID) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := s.handlers.Reject(ctx, id, domain.RejectionExpired, "transfer expired")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Rejected++
				result.Transfers = append(result.Transfers, id)
				observability.IncrementExpiredTransfer("rejected")
			case errors.Is(err, domain.ErrInvalidModification),
				errors.Is(err, domain.ErrTransferNotConditional):
				// Raced an execution or settlement; the row will catch up.
				result.Skipped++
				observability.IncrementExpiredTransfer("skipped")
			default:
				result.Failed++
				observability.IncrementExpiredTransfer("failed")
				s.logger.Error("failed to reject expired transfer",
					zap.String("transfer_id", id.String()),
					zap.Error(err))
			}
		}(id)
	}
	wg.Wait()
	return result, nil
}

func (s *TransferService) validatePrepare(ctx context.Context, req PrepareRequest) (*domain.TransferPrepared, error) {
	id, err := parseTransferID(req.ID)
	if err != nil {
		return nil, err
	}
	if req.Ledger != s.ledger {
		return nil, fmt.Errorf("%w: ledger %q is not served here", domain.ErrValidation, req.Ledger)
	}
	if len(req.Debits) != 1 || len(req.Credits) != 1 {
		return nil, fmt.Errorf("%w: exactly one debit and one credit are required", domain.ErrValidation)
	}
	debit, credit := req.Debits[0], req.Credits[0]
	if !debit.Amount.IsPositive() || !credit.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amounts must be positive", domain.ErrValidation)
	}
	if !debit.Amount.Equal(credit.Amount) {
		return nil, fmt.Errorf("%w: debit and credit amounts must balance", domain.ErrValidation)
	}
	if req.ExecutionCondition != "" {
		if _, err := cryptocondition.ParseCondition(req.ExecutionCondition); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		if req.ExpiresAt.IsZero() {
			return nil, fmt.Errorf("%w: conditional transfers require expires_at", domain.ErrValidation)
		}
	}
	if _, err := s.repo.GetAccountByName(ctx, debit.Account); err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: unknown debit account %q", domain.ErrValidation, debit.Account)
		}
		return nil, err
	}
	if _, err := s.repo.GetAccountByName(ctx, credit.Account); err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: unknown credit account %q", domain.ErrValidation, credit.Account)
		}
		return nil, err
	}

	return &domain.TransferPrepared{
		ID:                 id,
		Ledger:             req.Ledger,
		Debits:             []domain.Funds{{Account: debit.Account, Amount: debit.Amount, Memo: debit.Memo, Invoice: debit.Invoice}},
		Credits:            []domain.Funds{{Account: credit.Account, Amount: credit.Amount, Memo: credit.Memo, Invoice: credit.Invoice}},
		ExecutionCondition: req.ExecutionCondition,
		ExpiresAt:          req.ExpiresAt.UTC(),
	}, nil
}

func parseTransferID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: transfer id must be a UUID", domain.ErrValidation)
	}
	return id, nil
}

func translateAggregate(t *domain.Transfer) *TransferResource {
	return &TransferResource{
		ID:                   t.ID,
		Ledger:               t.Ledger,
		Debits:               t.Debits,
		Credits:              t.Credits,
		ExecutionCondition:   t.ExecutionCondition,
		ExecutionFulfillment: t.Fulfillment,
		ExpiresAt:            t.ExpiresAt,
		State:                t.State,
		RejectionReason:      t.RejectionReason,
		Timeline:             t.Timeline,
	}
}

func translateRow(row *models.TransferRow) *TransferResource {
	debits := []domain.Funds{{Account: row.DebitAccount, Amount: row.DebitAmount}}
	credits := []domain.Funds{{
		Account:          row.CreditAccount,
		Amount:           row.CreditAmount,
		Rejected:         row.CreditRejected,
		RejectionMessage: row.CreditRejectionMsg,
	}}
	return &TransferResource{
		ID:                   row.TransferUUID,
		Ledger:               row.Ledger,
		Debits:               debits,
		Credits:              credits,
		ExecutionCondition:   row.ExecutionCondition,
		ExecutionFulfillment: row.Fulfillment,
		ExpiresAt:            row.ExpiresAt,
		State:                row.State,
		RejectionReason:      row.RejectionReason,
		Timeline: domain.Timeline{
			PreparedAt: row.PreparedAt,
			ExecutedAt: row.ExecutedAt,
			RejectedAt: row.RejectedAt,
		},
	}
}
