package domain

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leg(debitAccount, amount, creditAccount string) TransferLeg {
	return TransferLeg{
		DebitAccount:  debitAccount,
		DebitAmount:   decimal.RequireFromString(amount),
		CreditAccount: creditAccount,
		CreditAmount:  decimal.RequireFromString(amount),
	}
}

func TestCalculatePositions(t *testing.T) {
	legs := []TransferLeg{
		leg("alice", "100", "bob"),
		leg("bob", "40", "carol"),
		leg("alice", "10.5", "carol"),
	}

	positions := CalculatePositions(legs)

	alice := positions["alice"]
	assert.Equal(t, "110.5", alice.Payments.String())
	assert.Equal(t, "0", alice.Receipts.String())
	assert.Equal(t, "-110.5", alice.Net.String())

	bob := positions["bob"]
	assert.Equal(t, "40", bob.Payments.String())
	assert.Equal(t, "100", bob.Receipts.String())
	assert.Equal(t, "60", bob.Net.String())

	carol := positions["carol"]
	assert.Equal(t, "50.5", carol.Net.String())
}

func TestCalculatePositionsOrderIndependent(t *testing.T) {
	legs := []TransferLeg{
		leg("alice", "1", "bob"),
		leg("bob", "2", "carol"),
		leg("carol", "3", "alice"),
		leg("alice", "4.25", "carol"),
		leg("bob", "5", "alice"),
	}

	want := CalculatePositions(legs)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := make([]TransferLeg, len(legs))
		copy(shuffled, legs)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := CalculatePositions(shuffled)
		require.Len(t, got, len(want))
		for account, p := range want {
			assert.True(t, p.Net.Equal(got[account].Net), "net for %s", account)
			assert.True(t, p.Payments.Equal(got[account].Payments), "payments for %s", account)
			assert.True(t, p.Receipts.Equal(got[account].Receipts), "receipts for %s", account)
		}
	}
}

func TestCalculateFeePositions(t *testing.T) {
	fees := []FeeLeg{
		{PayerAccount: "alice", PayeeAccount: "fees", Amount: decimal.RequireFromString("0.5")},
		{PayerAccount: "bob", PayeeAccount: "fees", Amount: decimal.RequireFromString("1.25")},
	}

	positions := CalculateFeePositions(fees)
	assert.Equal(t, "-0.5", positions["alice"].Net.String())
	assert.Equal(t, "-1.25", positions["bob"].Net.String())
	assert.Equal(t, "1.75", positions["fees"].Net.String())
}

func TestSeedPositions(t *testing.T) {
	positions := CalculatePositions([]TransferLeg{leg("alice", "10", "bob")})
	SeedPositions(positions, []string{"alice", "carol"})

	require.Contains(t, positions, "carol")
	carol := positions["carol"]
	assert.True(t, carol.Net.IsZero())
	assert.True(t, carol.Payments.IsZero())
	assert.True(t, carol.Receipts.IsZero())

	// Seeding never overwrites an account that took part.
	assert.Equal(t, "-10", positions["alice"].Net.String())
}
