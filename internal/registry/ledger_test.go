package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenX = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenY = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	tokenZ = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFeeLedgerDepositMerges(t *testing.T) {
	l := NewFeeLedger()
	l.Deposit(model.NewBucket(tokenX, dec("1.5")))
	l.Deposit(model.NewBucket(tokenY, dec("2")))
	l.Deposit(model.NewBucket(tokenX, dec("0.25")))

	x, ok := l.Balance(tokenX)
	require.True(t, ok)
	assert.True(t, dec("1.75").Equal(x))

	y, ok := l.Balance(tokenY)
	require.True(t, ok)
	assert.True(t, dec("2").Equal(y))

	_, ok = l.Balance(tokenZ)
	assert.False(t, ok)
	assert.Equal(t, 2, l.Len())
}

func TestFeeLedgerZeroDepositCreatesEntry(t *testing.T) {
	l := NewFeeLedger()
	l.Deposit(model.EmptyBucket(tokenZ))

	amount, ok := l.Balance(tokenZ)
	require.True(t, ok)
	assert.True(t, amount.IsZero())
}

func TestFeeLedgerWithdrawAllKeepsOrderAndDrains(t *testing.T) {
	l := NewFeeLedger()
	l.Deposit(model.NewBucket(tokenX, dec("1")))
	l.Deposit(model.NewBucket(tokenY, dec("2")))

	out := l.WithdrawAll([]common.Address{tokenY, tokenZ, tokenX, tokenY})
	require.Len(t, out, 4)

	assert.Equal(t, tokenY, out[0].Token)
	assert.True(t, dec("2").Equal(out[0].Amount))
	assert.Equal(t, tokenZ, out[1].Token)
	assert.True(t, out[1].IsEmpty())
	assert.Equal(t, tokenX, out[2].Token)
	assert.True(t, dec("1").Equal(out[2].Amount))
	assert.Equal(t, tokenY, out[3].Token)
	assert.True(t, out[3].IsEmpty(), "duplicate request drains an already empty entry")

	// drained entries stay, the unknown token is not created
	assert.Equal(t, 2, l.Len())
	_, ok := l.Balance(tokenZ)
	assert.False(t, ok)
	x, _ := l.Balance(tokenX)
	assert.True(t, x.IsZero())
}

func TestFeeLedgerConservesValue(t *testing.T) {
	l := NewFeeLedger()
	deposited := decimal.Zero
	withdrawn := decimal.Zero

	amounts := []string{"0.1", "3", "0.000000000000000001", "7.77", "0"}
	for i, a := range amounts {
		l.Deposit(model.NewBucket(tokenX, dec(a)))
		deposited = deposited.Add(dec(a))
		if i%2 == 1 {
			for _, b := range l.WithdrawAll([]common.Address{tokenX}) {
				withdrawn = withdrawn.Add(b.Amount)
			}
		}
		stored, _ := l.Balance(tokenX)
		assert.True(t, deposited.Sub(withdrawn).Equal(stored))
		assert.False(t, stored.IsNegative())
	}
}

func TestFeeLedgerEntriesInFirstDepositOrder(t *testing.T) {
	l := NewFeeLedger()
	l.Deposit(model.NewBucket(tokenZ, dec("1")))
	l.Deposit(model.NewBucket(tokenX, dec("1")))
	l.Deposit(model.NewBucket(tokenZ, dec("1")))

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, tokenZ, entries[0].Token)
	assert.True(t, dec("2").Equal(entries[0].Amount))
	assert.Equal(t, tokenX, entries[1].Token)
}
