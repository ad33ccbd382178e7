package domain

import "github.com/shopspring/decimal"

// Position is the net standing of one account across a set of executed
// transfers. Net = receipts - payments.
type Position struct {
	Account  string          `json:"account"`
	Payments decimal.Decimal `json:"payments"`
	Receipts decimal.Decimal `json:"receipts"`
	Net      decimal.Decimal `json:"net"`
}

// TransferLeg is the flattened debit/credit pair of a single executed
// transfer, as read from the settleable projection.
type TransferLeg struct {
	DebitAccount  string
	DebitAmount   decimal.Decimal
	CreditAccount string
	CreditAmount  decimal.Decimal
}

// FeeLeg is a computed fee moving value from payer to payee.
type FeeLeg struct {
	PayerAccount string
	PayeeAccount string
	Amount       decimal.Decimal
}

// CalculatePositions folds executed transfers into per-account positions.
// The fold is order-independent: any permutation of legs yields the same map.
func CalculatePositions(legs []TransferLeg) map[string]Position {
	positions := make(map[string]Position)
	for _, leg := range legs {
		addPayment(positions, leg.DebitAccount, leg.DebitAmount)
		addReceipt(positions, leg.CreditAccount, leg.CreditAmount)
	}
	return positions
}

// CalculateFeePositions folds fees into per-account positions using the same
// payment/receipt semantics as transfers.
func CalculateFeePositions(fees []FeeLeg) map[string]Position {
	positions := make(map[string]Position)
	for _, fee := range fees {
		addPayment(positions, fee.PayerAccount, fee.Amount)
		addReceipt(positions, fee.PayeeAccount, fee.Amount)
	}
	return positions
}

// SeedPositions ensures the listed accounts appear with all-zero positions
// even when they took part in no executed transfer.
func SeedPositions(positions map[string]Position, accounts []string) {
	for _, account := range accounts {
		if _, ok := positions[account]; !ok {
			positions[account] = zeroPosition(account)
		}
	}
}

func addPayment(positions map[string]Position, account string, amount decimal.Decimal) {
	p, ok := positions[account]
	if !ok {
		p = zeroPosition(account)
	}
	p.Payments = p.Payments.Add(amount)
	p.Net = p.Net.Sub(amount)
	positions[account] = p
}

func addReceipt(positions map[string]Position, account string, amount decimal.Decimal) {
	p, ok := positions[account]
	if !ok {
		p = zeroPosition(account)
	}
	p.Receipts = p.Receipts.Add(amount)
	p.Net = p.Net.Add(amount)
	positions[account] = p
}

func zeroPosition(account string) Position {
	return Position{
		Account:  account,
		Payments: decimal.Zero,
		Receipts: decimal.Zero,
		Net:      decimal.Zero,
	}
}
