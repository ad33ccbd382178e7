package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrAccountNotFound = errors.New("account not found")

// Account maps an external account name to its internal identifier used by
// the read models.
type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TransferRow is the denormalized transfer detail projection, one row per
// transfer id.
type TransferRow struct {
	TransferUUID       uuid.UUID       `json:"transfer_uuid"`
	Ledger             string          `json:"ledger"`
	DebitAccountID     int64           `json:"debit_account_id"`
	CreditAccountID    int64           `json:"credit_account_id"`
	DebitAccount       string          `json:"debit_account"`
	CreditAccount      string          `json:"credit_account"`
	DebitAmount        decimal.Decimal `json:"debit_amount"`
	CreditAmount       decimal.Decimal `json:"credit_amount"`
	ExecutionCondition string          `json:"execution_condition,omitempty"`
	Fulfillment        string          `json:"fulfillment,omitempty"`
	State              string          `json:"state"`
	RejectionReason    string          `json:"rejection_reason,omitempty"`
	CreditRejected     bool            `json:"credit_rejected,omitempty"`
	CreditRejectionMsg string          `json:"credit_rejection_message,omitempty"`
	ExpiresAt          time.Time       `json:"expires_at"`
	PreparedAt         time.Time       `json:"prepared_at"`
	ExecutedAt         *time.Time      `json:"executed_at,omitempty"`
	RejectedAt         *time.Time      `json:"rejected_at,omitempty"`
}

// Charge is a configured fee rule applied to executed transfers.
type Charge struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	ChargeType   string           `json:"charge_type"` // flat or percentage
	Payer        string           `json:"payer"`       // sender, receiver or ledger
	Payee        string           `json:"payee"`
	Amount       decimal.Decimal  `json:"amount"` // flat amount or percentage rate
	MinThreshold *decimal.Decimal `json:"min_threshold,omitempty"`
	MaxThreshold *decimal.Decimal `json:"max_threshold,omitempty"`
	IsActive     bool             `json:"is_active"`
}

// Fee is one computed charge for one executed transfer. At most one fee may
// exist per (transfer, charge) pair.
type Fee struct {
	ID             int64           `json:"id"`
	TransferUUID   uuid.UUID       `json:"transfer_uuid"`
	ChargeID       int64           `json:"charge_id"`
	Amount         decimal.Decimal `json:"amount"`
	PayerAccountID int64           `json:"payer_account_id"`
	PayeeAccountID int64           `json:"payee_account_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Settlement is a settlement batch; all transfers settled in the batch
// reference its id.
type Settlement struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
