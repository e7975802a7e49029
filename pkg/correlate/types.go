// Package correlate cross-references decoded events against raw storage
// state diffs, proving that a Transfer/Approval event is backed by an
// actual storage write rather than trusting the log in isolation.
package correlate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StateDiff is one storage slot's before/after value, as collected by a
// prestate-tracer in diff mode.
type StateDiff struct {
	Address common.Address
	Key     common.Hash
	Before  common.Hash
	After   common.Hash
}

// ProvenBalanceChange ties a Transfer event's account to the storage slot
// whose state diff proves the balance actually moved, under a given ERC-20
// layout guess.
type ProvenBalanceChange struct {
	Token   common.Address
	Account common.Address
	Layout  string
	Before  *big.Int
	After   *big.Int
}

// ProvenAllowance ties an Approval event's (owner, spender) pair to the
// storage slot whose state diff proves the allowance actually changed.
type ProvenAllowance struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
	Layout  string
	Before  *big.Int
	After   *big.Int
}
