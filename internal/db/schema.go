package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements creates every table the service needs. Statements are
// idempotent so startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ledger_events (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		payload JSONB NOT NULL,
		aggregate_id UUID NOT NULL,
		aggregate_name TEXT NOT NULL,
		sequence_number BIGINT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		global_position BIGSERIAL,
		UNIQUE (aggregate_id, sequence_number)
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_events_name_idx ON ledger_events (name, global_position)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transfers (
		transfer_uuid UUID PRIMARY KEY,
		ledger TEXT NOT NULL,
		debit_account_id BIGINT NOT NULL REFERENCES accounts(id),
		credit_account_id BIGINT NOT NULL REFERENCES accounts(id),
		debit_amount NUMERIC NOT NULL,
		credit_amount NUMERIC NOT NULL,
		execution_condition TEXT,
		fulfillment TEXT,
		state TEXT NOT NULL,
		rejection_reason TEXT,
		credit_rejected BOOLEAN NOT NULL DEFAULT FALSE,
		credit_rejection_message TEXT,
		expires_at TIMESTAMPTZ NOT NULL,
		prepared_at TIMESTAMPTZ NOT NULL,
		executed_at TIMESTAMPTZ,
		rejected_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS transfers_state_expires_idx ON transfers (state, expires_at)`,
	`CREATE TABLE IF NOT EXISTS executed_transfers (
		transfer_uuid UUID PRIMARY KEY,
		executed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settled_transfers (
		transfer_uuid UUID NOT NULL,
		settlement_id UUID NOT NULL,
		settled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (transfer_uuid, settlement_id)
	)`,
	`CREATE TABLE IF NOT EXISTS settlements (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS charges (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		charge_type TEXT NOT NULL,
		payer TEXT NOT NULL,
		payee TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		min_threshold NUMERIC,
		max_threshold NUMERIC,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS fees (
		id BIGSERIAL PRIMARY KEY,
		transfer_uuid UUID NOT NULL,
		charge_id BIGINT NOT NULL REFERENCES charges(id),
		amount NUMERIC NOT NULL,
		payer_account_id BIGINT NOT NULL REFERENCES accounts(id),
		payee_account_id BIGINT NOT NULL REFERENCES accounts(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (transfer_uuid, charge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		idempotency_key TEXT PRIMARY KEY,
		request_hash TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		response_status INT,
		response_body BYTEA,
		content_type TEXT,
		in_progress BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
}

// EnsureSchema applies the schema statements on startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
