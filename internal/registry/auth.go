package registry

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var ErrUnauthorized = errors.New("caller does not hold the owner capability")

// Proof is what a caller presents to a gated operation.
// Holder is the address that proved control over the request; the zero value proves nothing.
type Proof struct {
	Holder common.Address
}

func (p Proof) IsEmpty() bool {
	return p.Holder == (common.Address{})
}

// Authorizer decides whether a proof carries the owner capability.
type Authorizer interface {
	Authorize(proof Proof) error
}

// OwnerBadge grants the owner capability to a single address.
type OwnerBadge struct {
	Address common.Address
}

func NewOwnerBadge(address common.Address) OwnerBadge {
	return OwnerBadge{Address: address}
}

func (o OwnerBadge) Authorize(proof Proof) error {
	if proof.IsEmpty() || proof.Holder != o.Address {
		return ErrUnauthorized
	}
	return nil
}
