// Package rpc defines the RpcClient capability the core consumes: block
// reads, storage reads, account/storage proof batches, eth_call with state
// overrides, and an escape hatch for tracer methods — treated everywhere
// else in this module as an opaque, injected dependency.
package rpc

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BlockTag selects a block by symbolic tag rather than an explicit number.
type BlockTag string

const (
	TagLatest    BlockTag = "latest"
	TagFinalized BlockTag = "finalized"
	TagSafe      BlockTag = "safe"
	TagPending   BlockTag = "pending"
)

// BlockRef pins a block either by tag or by an explicit number; exactly one
// should be set. A nil Number with an empty Tag defaults to "latest".
type BlockRef struct {
	Tag    BlockTag
	Number *big.Int
}

// Latest is the default block reference used when the caller has no
// explicit pin.
func Latest() BlockRef { return BlockRef{Tag: TagLatest} }

// AtNumber pins a block to an explicit number, preferred when aligning to a
// consensus checkpoint.
func AtNumber(n uint64) BlockRef { return BlockRef{Number: new(big.Int).SetUint64(n)} }

func (b BlockRef) param() interface{} {
	if b.Number != nil {
		return hexBigInt(b.Number)
	}
	tag := b.Tag
	if tag == "" {
		tag = TagLatest
	}
	return string(tag)
}

func hexBigInt(n *big.Int) string {
	return "0x" + n.Text(16)
}

// Block is the subset of block header fields the core needs: the state
// root to verify proofs against, and the fields a replay needs to
// reconstruct an execution environment.
type Block struct {
	Number        uint64
	Hash          common.Hash
	StateRoot     common.Hash
	Timestamp     uint64
	GasLimit      uint64
	BaseFeePerGas *big.Int
	Miner         common.Address
	MixHash       common.Hash
	Difficulty    *big.Int
}

// StorageProofEntry is one slot's proof, as returned by eth_getProof.
type StorageProofEntry struct {
	Key   common.Hash
	Value [32]byte
	Proof [][]byte
}

// AccountProof is the eth_getProof response for a single address.
type AccountProof struct {
	Address      common.Address
	Balance      *big.Int
	CodeHash     common.Hash
	Nonce        uint64
	StorageHash  common.Hash
	AccountProof [][]byte
	StorageProof []StorageProofEntry
}

// OverrideAccount is one entry of an eth_call stateOverride set.
type OverrideAccount struct {
	Balance   *big.Int
	Nonce     *uint64
	Code      []byte
	State     map[common.Hash]common.Hash // replaces storage wholesale
	StateDiff map[common.Hash]common.Hash // patches individual slots
}

// CallParams is the call object passed to eth_call / eth_estimateGas /
// debug_traceCall, optionally carrying per-address storage overrides.
type CallParams struct {
	From          common.Address
	To            common.Address
	Data          []byte
	Value         *big.Int
	StateOverride map[common.Address]OverrideAccount
}

// Client is the capability the core consumes for all on-chain reads. Raw
// RPC transport, connection pooling and retries are the implementation's
// concern, never the core's.
type Client interface {
	ChainID() *big.Int

	GetBlock(ctx context.Context, ref BlockRef) (*Block, error)
	GetBalance(ctx context.Context, addr common.Address, ref BlockRef) (*big.Int, error)
	GetTransactionCount(ctx context.Context, addr common.Address, ref BlockRef) (uint64, error)
	GetCode(ctx context.Context, addr common.Address, ref BlockRef) ([]byte, error)
	GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash, ref BlockRef) (common.Hash, error)
	GetProof(ctx context.Context, addr common.Address, slots []common.Hash, ref BlockRef) (*AccountProof, error)

	Call(ctx context.Context, params CallParams, ref BlockRef) ([]byte, error)
	// EstimateGas returns ok=false when the call reverts or the node
	// refuses to estimate (e.g. with overrides applied); callers fall back
	// to trace-derived gas in that case.
	EstimateGas(ctx context.Context, params CallParams, ref BlockRef) (gas uint64, ok bool, err error)

	// RawRequest is the escape hatch for tracer methods the interface
	// above doesn't model directly (debug_traceCall and its tracer
	// config), since its shape and availability vary by client.
	RawRequest(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
}

// RevertError is returned by Call when the node reports an execution
// revert rather than a transport failure; it carries whatever revert bytes
// the node surfaced so callers can distinguish "the contract said no" from
// "the RPC endpoint is down".
type RevertError struct {
	Data []byte
}

func (e *RevertError) Error() string {
	return "rpc: execution reverted"
}
