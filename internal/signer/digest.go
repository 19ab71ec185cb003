package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// OwnerRequestDomain separates owner request signatures from any other use of the key.
const OwnerRequestDomain = "FeeRegistry Owner Request v1"

var domainHash = crypto.Keccak256Hash([]byte(OwnerRequestDomain))

// RequestDigest is the hash an owner signs to authorize one HTTP request.
// keccak256(domain || keccak(method) || keccak(path) || uint256(timestamp) || keccak(body))
func RequestDigest(method, path string, timestamp int64, body []byte) common.Hash {
	data := make([]byte, 32*5)
	copy(data[0:32], domainHash.Bytes())
	copy(data[32:64], crypto.Keccak256([]byte(method)))
	copy(data[64:96], crypto.Keccak256([]byte(path)))
	copy(data[96:128], math.U256Bytes(big.NewInt(timestamp)))
	copy(data[128:160], crypto.Keccak256(body))
	return crypto.Keccak256Hash(data)
}
