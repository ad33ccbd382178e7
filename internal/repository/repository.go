package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository holds the hand-written read-model queries. Amounts travel as
// text to keep NUMERIC round-trips exact.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateAccount registers an account name, returning the existing row when
// the name is already taken.
func (r *Repository) CreateAccount(ctx context.Context, name string) (*models.Account, error) {
	account := &models.Account{}
	query := `
		INSERT INTO accounts (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at
	`
	err := r.db.QueryRow(ctx, query, name).Scan(&account.ID, &account.Name, &account.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (r *Repository) GetAccountByName(ctx context.Context, name string) (*models.Account, error) {
	account := &models.Account{}
	query := `SELECT id, name, created_at FROM accounts WHERE name = $1`
	err := r.db.QueryRow(ctx, query, name).Scan(&account.ID, &account.Name, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// ListAccounts returns every registered account ordered by name.
func (r *Repository) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ResolveAccountID maps an account name to its internal identifier.
func (r *Repository) ResolveAccountID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM accounts WHERE name = $1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to resolve account %q: %w", name, err)
	}
	return id, nil
}

// InsertTransferRow inserts the prepared detail row. Returns false when the
// row already exists, which makes replay a no-op.
func (r *Repository) InsertTransferRow(ctx context.Context, row *models.TransferRow) (bool, error) {
	query := `
		INSERT INTO transfers (
			transfer_uuid, ledger, debit_account_id, credit_account_id,
			debit_amount, credit_amount, execution_condition, state,
			expires_at, prepared_at, fulfillment, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, NULLIF($11, ''), $12)
		ON CONFLICT (transfer_uuid) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		row.TransferUUID, row.Ledger, row.DebitAccountID, row.CreditAccountID,
		row.DebitAmount.String(), row.CreditAmount.String(), row.ExecutionCondition,
		row.State, row.ExpiresAt, row.PreparedAt, row.Fulfillment, row.ExecutedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert transfer row: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) GetTransferRow(ctx context.Context, id uuid.UUID) (*models.TransferRow, error) {
	query := `
		SELECT t.transfer_uuid, t.ledger, t.debit_account_id, t.credit_account_id,
			da.name, ca.name,
			t.debit_amount::text, t.credit_amount::text,
			COALESCE(t.execution_condition, ''), COALESCE(t.fulfillment, ''),
			t.state, COALESCE(t.rejection_reason, ''),
			t.credit_rejected, COALESCE(t.credit_rejection_message, ''),
			t.expires_at, t.prepared_at, t.executed_at, t.rejected_at
		FROM transfers t
		JOIN accounts da ON da.id = t.debit_account_id
		JOIN accounts ca ON ca.id = t.credit_account_id
		WHERE t.transfer_uuid = $1
	`
	row := &models.TransferRow{}
	var debitAmount, creditAmount string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&row.TransferUUID, &row.Ledger, &row.DebitAccountID, &row.CreditAccountID,
		&row.DebitAccount, &row.CreditAccount,
		&debitAmount, &creditAmount,
		&row.ExecutionCondition, &row.Fulfillment,
		&row.State, &row.RejectionReason,
		&row.CreditRejected, &row.CreditRejectionMsg,
		&row.ExpiresAt, &row.PreparedAt, &row.ExecutedAt, &row.RejectedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get transfer row: %w", err)
	}
	if row.DebitAmount, err = decimal.NewFromString(debitAmount); err != nil {
		return nil, fmt.Errorf("bad debit amount %q: %w", debitAmount, err)
	}
	if row.CreditAmount, err = decimal.NewFromString(creditAmount); err != nil {
		return nil, fmt.Errorf("bad credit amount %q: %w", creditAmount, err)
	}
	return row, nil
}

// MarkTransferExecuted updates the detail row from prepared to executed.
// Returns the number of rows changed; the projection interprets zero.
func (r *Repository) MarkTransferExecuted(ctx context.Context, id uuid.UUID, fulfillment string, at time.Time) (int64, error) {
	query := `
		UPDATE transfers
		SET state = $2, fulfillment = NULLIF($3, ''), executed_at = $4
		WHERE transfer_uuid = $1 AND state = $5
	`
	tag, err := r.db.Exec(ctx, query, id, domain.StateExecuted, fulfillment, at, domain.StatePrepared)
	if err != nil {
		return 0, fmt.Errorf("failed to mark transfer executed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkTransferRejected updates the detail row from prepared to rejected.
func (r *Repository) MarkTransferRejected(ctx context.Context, id uuid.UUID, reason, message string, at time.Time) (int64, error) {
	query := `
		UPDATE transfers
		SET state = $2, rejection_reason = $3,
			credit_rejected = ($3 = $6),
			credit_rejection_message = NULLIF($4, ''),
			rejected_at = $5
		WHERE transfer_uuid = $1 AND state = $7
	`
	tag, err := r.db.Exec(ctx, query, id, domain.StateRejected, reason, message, at,
		domain.RejectionCancelled, domain.StatePrepared)
	if err != nil {
		return 0, fmt.Errorf("failed to mark transfer rejected: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkTransferSettled records the settled state on the detail row.
func (r *Repository) MarkTransferSettled(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `UPDATE transfers SET state = $2 WHERE transfer_uuid = $1 AND state = $3`
	tag, err := r.db.Exec(ctx, query, id, domain.StateSettled, domain.StateExecuted)
	if err != nil {
		return 0, fmt.Errorf("failed to mark transfer settled: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertExecutedMarker records an executed-but-unsettled marker. Idempotent.
func (r *Repository) InsertExecutedMarker(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		INSERT INTO executed_transfers (transfer_uuid, executed_at)
		VALUES ($1, $2) ON CONFLICT (transfer_uuid) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to insert executed marker: %w", err)
	}
	return nil
}

// InsertSettledMarker records a settled marker keyed by transfer+settlement.
func (r *Repository) InsertSettledMarker(ctx context.Context, id, settlementID uuid.UUID) error {
	query := `
		INSERT INTO settled_transfers (transfer_uuid, settlement_id)
		VALUES ($1, $2) ON CONFLICT (transfer_uuid, settlement_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, id, settlementID); err != nil {
		return fmt.Errorf("failed to insert settled marker: %w", err)
	}
	return nil
}

// ListSettleable returns executed transfers with no settled marker.
func (r *Repository) ListSettleable(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT e.transfer_uuid
		FROM executed_transfers e
		LEFT JOIN settled_transfers s ON s.transfer_uuid = e.transfer_uuid
		WHERE s.transfer_uuid IS NULL
		ORDER BY e.executed_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list settleable transfers: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan settleable transfer: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListSettleableLegs returns the flattened debit/credit legs of the
// settleable set, feeding the position calculator.
func (r *Repository) ListSettleableLegs(ctx context.Context) ([]domain.TransferLeg, error) {
	query := `
		SELECT da.name, t.debit_amount::text, ca.name, t.credit_amount::text
		FROM executed_transfers e
		JOIN transfers t ON t.transfer_uuid = e.transfer_uuid
		JOIN accounts da ON da.id = t.debit_account_id
		JOIN accounts ca ON ca.id = t.credit_account_id
		LEFT JOIN settled_transfers s ON s.transfer_uuid = e.transfer_uuid
		WHERE s.transfer_uuid IS NULL
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list settleable legs: %w", err)
	}
	defer rows.Close()

	var legs []domain.TransferLeg
	for rows.Next() {
		var leg domain.TransferLeg
		var debit, credit string
		if err := rows.Scan(&leg.DebitAccount, &debit, &leg.CreditAccount, &credit); err != nil {
			return nil, fmt.Errorf("failed to scan settleable leg: %w", err)
		}
		if leg.DebitAmount, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("bad debit amount %q: %w", debit, err)
		}
		if leg.CreditAmount, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("bad credit amount %q: %w", credit, err)
		}
		legs = append(legs, leg)
	}
	return legs, rows.Err()
}

// ListExpired returns prepared transfers whose expiry is strictly before now.
func (r *Repository) ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `SELECT transfer_uuid FROM transfers WHERE state = $1 AND expires_at < $2 ORDER BY expires_at`
	rows, err := r.db.Query(ctx, query, domain.StatePrepared, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired transfers: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expired transfer: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateSettlement records a settlement batch.
func (r *Repository) CreateSettlement(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	settlement := &models.Settlement{ID: id}
	query := `INSERT INTO settlements (id) VALUES ($1) RETURNING created_at`
	if err := r.db.QueryRow(ctx, query, id).Scan(&settlement.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create settlement: %w", err)
	}
	return settlement, nil
}

// CreateCharge registers a fee rule.
func (r *Repository) CreateCharge(ctx context.Context, c *models.Charge) error {
	query := `
		INSERT INTO charges (name, charge_type, payer, payee, amount, min_threshold, max_threshold, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, c.Name, c.ChargeType, c.Payer, c.Payee,
		c.Amount.String(), decimalParam(c.MinThreshold), decimalParam(c.MaxThreshold), c.IsActive).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create charge: %w", err)
	}
	return nil
}

// ListActiveCharges returns active charges ordered by name. The ordering is
// part of the fee resolution contract.
func (r *Repository) ListActiveCharges(ctx context.Context) ([]models.Charge, error) {
	query := `
		SELECT id, name, charge_type, payer, payee,
			amount::text, min_threshold::text, max_threshold::text, is_active
		FROM charges
		WHERE is_active
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list charges: %w", err)
	}
	defer rows.Close()

	var charges []models.Charge
	for rows.Next() {
		var c models.Charge
		var amount string
		var minT, maxT *string
		if err := rows.Scan(&c.ID, &c.Name, &c.ChargeType, &c.Payer, &c.Payee,
			&amount, &minT, &maxT, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan charge: %w", err)
		}
		if c.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad charge amount %q: %w", amount, err)
		}
		if c.MinThreshold, err = decimalFromText(minT); err != nil {
			return nil, err
		}
		if c.MaxThreshold, err = decimalFromText(maxT); err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

// InsertFee records one computed fee. Returns false if a fee already exists
// for the same (transfer, charge) pair.
func (r *Repository) InsertFee(ctx context.Context, fee *models.Fee) (bool, error) {
	query := `
		INSERT INTO fees (transfer_uuid, charge_id, amount, payer_account_id, payee_account_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transfer_uuid, charge_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, fee.TransferUUID, fee.ChargeID,
		fee.Amount.String(), fee.PayerAccountID, fee.PayeeAccountID)
	if err != nil {
		return false, fmt.Errorf("failed to insert fee: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListFeesByTransfer returns the fees computed for one transfer.
func (r *Repository) ListFeesByTransfer(ctx context.Context, id uuid.UUID) ([]models.Fee, error) {
	query := `
		SELECT id, transfer_uuid, charge_id, amount::text, payer_account_id, payee_account_id, created_at
		FROM fees WHERE transfer_uuid = $1 ORDER BY charge_id
	`
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list fees: %w", err)
	}
	defer rows.Close()

	var fees []models.Fee
	for rows.Next() {
		var f models.Fee
		var amount string
		if err := rows.Scan(&f.ID, &f.TransferUUID, &f.ChargeID, &amount,
			&f.PayerAccountID, &f.PayeeAccountID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fee: %w", err)
		}
		if f.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad fee amount %q: %w", amount, err)
		}
		fees = append(fees, f)
	}
	return fees, rows.Err()
}

// ListFeeLegs returns all fees as payer/payee legs for position calculation.
func (r *Repository) ListFeeLegs(ctx context.Context) ([]domain.FeeLeg, error) {
	query := `
		SELECT pa.name, ca.name, f.amount::text
		FROM fees f
		JOIN accounts pa ON pa.id = f.payer_account_id
		JOIN accounts ca ON ca.id = f.payee_account_id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fee legs: %w", err)
	}
	defer rows.Close()

	var legs []domain.FeeLeg
	for rows.Next() {
		var leg domain.FeeLeg
		var amount string
		if err := rows.Scan(&leg.PayerAccount, &leg.PayeeAccount, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan fee leg: %w", err)
		}
		if leg.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad fee amount %q: %w", amount, err)
		}
		legs = append(legs, leg)
	}
	return legs, rows.Err()
}

// Truncate helpers used by projection resync.

func (r *Repository) TruncateTransferRows(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `TRUNCATE TABLE transfers`); err != nil {
		return fmt.Errorf("failed to truncate transfers: %w", err)
	}
	return nil
}

func (r *Repository) TruncateSettleableMarkers(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `TRUNCATE TABLE executed_transfers, settled_transfers`); err != nil {
		return fmt.Errorf("failed to truncate settleable markers: %w", err)
	}
	return nil
}

func (r *Repository) TruncateFees(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `TRUNCATE TABLE fees`); err != nil {
		return fmt.Errorf("failed to truncate fees: %w", err)
	}
	return nil
}

func decimalParam(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func decimalFromText(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("bad decimal %q: %w", *s, err)
	}
	return &d, nil
}
