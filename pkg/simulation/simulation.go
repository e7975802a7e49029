// Package simulation reproduces a Safe transaction's on-chain execution
// without a real signature: it forges a signature under a hardcoded,
// well-known test key, overrides the Safe's owner set so that key recovers
// as the sole owner, and issues an eth_call (optionally backed by a call
// trace) at a pinned block.
package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/chainreg"
	"github.com/safelens/evidence/pkg/evmsafe/hashing"
	"github.com/safelens/evidence/pkg/rpc"
)

// Log is one event log entry surfaced by the simulated call.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// NativeTransfer is one native-value movement observed in the call trace.
type NativeTransfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// StateDiffEntry is one storage slot's before/after value from a
// prestate-tracer diff.
type StateDiffEntry struct {
	Address common.Address
	Key     common.Hash
	Before  common.Hash
	After   common.Hash
}

// Trust is a generic verdict/reason annotation a later trust-decision pass
// attaches to a Simulation; simulation fetching itself never sets it.
type Trust struct {
	Verdict string
	Reason  string
}

// Simulation is the result of replaying a Safe transaction at a pinned
// block height.
type Simulation struct {
	Success         bool
	ReturnData      []byte // set when Success
	RevertData      []byte // set when !Success and the node reported revert data
	GasUsed         uint64
	Logs            []Log
	NativeTransfers []NativeTransfer
	StateDiffs      []StateDiffEntry
	BlockNumber     uint64
	BlockTimestamp  uint64
	TraceAvailable  bool
	Trust           *Trust
}

// Options pins the block and configures optional trace collection.
type Options struct {
	Block        rpc.BlockRef
	CollectTrace bool // attempt a call-tracer pass for logs/native transfers
	CollectDiffs bool // attempt a prestate-tracer diff pass for storage diffs
}

// traceCapable is implemented by rpc.Client implementations (notably
// *rpc.EthClient) that support debug_traceCall; fetchers that don't
// implement it are simply skipped, per §4.E's "tolerate absence".
type traceCapable interface {
	TraceCall(ctx context.Context, params rpc.CallParams, ref rpc.BlockRef, tracer string, tracerConfig map[string]interface{}) (json.RawMessage, error)
}

// ExecCallParams builds the exact call Fetch issues: a signature over
// safeTxHash forged with the simulator key, the Safe storage override that
// makes that key the sole owner, and the encoded execTransaction calldata.
// Exported so the witness builder's replay trace covers the same call the
// simulation ran, not a reconstruction of it.
func ExecCallParams(safe common.Address, chainID uint64, tx hashing.Transaction) (rpc.CallParams, error) {
	domain := hashing.Domain{ChainID: new(big.Int).SetUint64(chainID), VerifyingContract: safe}
	digest := hashing.SafeTxHash(domain, tx)

	sig, err := signDigest(digest)
	if err != nil {
		return rpc.CallParams{}, fmt.Errorf("simulation: sign digest: %w", err)
	}

	return rpc.CallParams{
		From:          SimulatorAddress(),
		To:            safe,
		Data:          EncodeExecTransaction(tx, sig),
		StateOverride: map[common.Address]rpc.OverrideAccount{safe: buildOverride(tx.Nonce)},
	}, nil
}

// Fetch replays tx against safe on chainID at the pinned block, per §4.E's
// nine-step algorithm.
func Fetch(ctx context.Context, client rpc.Client, safe common.Address, chainID uint64, tx hashing.Transaction, opts Options) (*Simulation, error) {
	chain, ok := chainreg.ByChainID(chainID)
	if !ok || !chain.SupportsSimulation {
		return nil, fmt.Errorf("%w: chain id %d", ErrUnsupportedChain, chainID)
	}

	ref := opts.Block
	if ref == (rpc.BlockRef{}) {
		ref = rpc.Latest()
	}
	if ref.Tag == rpc.TagPending {
		return nil, ErrPendingBlock
	}

	block, err := client.GetBlock(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRPCUnavailable, err)
	}
	pinned := rpc.AtNumber(block.Number)

	params, err := ExecCallParams(safe, chainID, tx)
	if err != nil {
		return nil, err
	}

	sim := &Simulation{BlockNumber: block.Number, BlockTimestamp: block.Timestamp}

	retData, callErr := client.Call(ctx, params, pinned)
	if callErr != nil {
		if revertErr, ok := callErr.(*rpc.RevertError); ok {
			sim.Success = false
			sim.RevertData = revertErr.Data
		} else {
			return nil, fmt.Errorf("%w: call: %v", ErrRPCUnavailable, callErr)
		}
	} else {
		sim.Success = true
		sim.ReturnData = retData
	}

	if opts.CollectTrace {
		collectTrace(ctx, client, params, pinned, sim)
	}

	if opts.CollectDiffs {
		collectDiffs(ctx, client, params, pinned, sim)
	}

	if sim.GasUsed == 0 && sim.Success {
		if gas, ok, err := client.EstimateGas(ctx, params, pinned); err == nil && ok {
			sim.GasUsed = gas
		}
	}

	return sim, nil
}

func collectTrace(ctx context.Context, client rpc.Client, params rpc.CallParams, ref rpc.BlockRef, sim *Simulation) {
	tc, ok := client.(traceCapable)
	if !ok {
		return
	}
	raw, err := tc.TraceCall(ctx, params, ref, "callTracer", map[string]interface{}{"onlyTopCall": false})
	if err != nil {
		return
	}
	sim.TraceAvailable = true
	gas, logs, transfers, ok := parseCallTrace(raw)
	if !ok {
		return
	}
	sim.GasUsed = gas
	sim.Logs = logs
	sim.NativeTransfers = transfers
}
