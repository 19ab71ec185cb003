package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// MaxDivisibility is the number of fractional digits a token amount may carry.
const MaxDivisibility = 18

// Bucket carries an amount of a single token between pools, the registry and the owner.
type Bucket struct {
	Token  common.Address  `json:"token"`
	Amount decimal.Decimal `json:"amount"`
}

// EmptyBucket returns a bucket for token holding nothing.
func EmptyBucket(token common.Address) Bucket {
	return Bucket{Token: token, Amount: decimal.Zero}
}

func NewBucket(token common.Address, amount decimal.Decimal) Bucket {
	return Bucket{Token: token, Amount: amount}
}

func (b Bucket) IsEmpty() bool {
	return b.Amount.IsZero()
}

// Validate rejects amounts a token could never hold.
func (b Bucket) Validate() error {
	if b.Amount.IsNegative() {
		return fmt.Errorf("bucket for %s holds negative amount %s", b.Token.Hex(), b.Amount)
	}
	if b.Amount.Exponent() < -MaxDivisibility && !b.Amount.Equal(b.Amount.Truncate(MaxDivisibility)) {
		return fmt.Errorf("bucket for %s exceeds %d decimal places", b.Token.Hex(), MaxDivisibility)
	}
	return nil
}
