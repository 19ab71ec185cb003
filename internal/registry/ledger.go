package registry

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/model"
	"github.com/shopspring/decimal"
)

// FeeLedger accumulates protocol fees per token.
// Entries are created on first deposit and only ever drained, never removed.
type FeeLedger struct {
	balances map[common.Address]decimal.Decimal
	order    []common.Address
}

func NewFeeLedger() *FeeLedger {
	return &FeeLedger{
		balances: make(map[common.Address]decimal.Decimal),
	}
}

// Deposit merges b into the entry for its token.
func (l *FeeLedger) Deposit(b model.Bucket) {
	current, ok := l.balances[b.Token]
	if !ok {
		l.order = append(l.order, b.Token)
		current = decimal.Zero
	}
	l.balances[b.Token] = current.Add(b.Amount)
}

// WithdrawAll drains the requested tokens, returning one bucket per token in request order.
// Unknown tokens yield empty buckets.
func (l *FeeLedger) WithdrawAll(tokens []common.Address) []model.Bucket {
	out := make([]model.Bucket, 0, len(tokens))
	for _, token := range tokens {
		amount, ok := l.balances[token]
		if !ok {
			out = append(out, model.EmptyBucket(token))
			continue
		}
		l.balances[token] = decimal.Zero
		out = append(out, model.NewBucket(token, amount))
	}
	return out
}

func (l *FeeLedger) Balance(token common.Address) (decimal.Decimal, bool) {
	amount, ok := l.balances[token]
	return amount, ok
}

// Entries lists every entry in first-deposit order.
func (l *FeeLedger) Entries() []model.Bucket {
	out := make([]model.Bucket, 0, len(l.order))
	for _, token := range l.order {
		out = append(out, model.NewBucket(token, l.balances[token]))
	}
	return out
}

func (l *FeeLedger) Len() int {
	return len(l.order)
}

func ledgerFromEntries(entries []model.Bucket) *FeeLedger {
	l := NewFeeLedger()
	for _, e := range entries {
		l.Deposit(e)
	}
	return l
}
