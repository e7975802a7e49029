package witness

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/safelens/evidence/pkg/evmsafe/hashing"
	"github.com/safelens/evidence/pkg/rpc"
	"github.com/safelens/evidence/pkg/simulation"
)

// Request is the input BuildWitness needs beyond the simulation result
// itself: the Safe, the chain, and the full transaction the simulation
// ran, so the replay trace covers the same forged execTransaction call
// rather than an approximation of it.
type Request struct {
	Safe    common.Address
	ChainID uint64
	Tx      hashing.Transaction
	Block   rpc.BlockRef // zero value pins to Simulation.BlockNumber
}

type traceCapable interface {
	TraceCall(ctx context.Context, params rpc.CallParams, ref rpc.BlockRef, tracer string, tracerConfig map[string]interface{}) (json.RawMessage, error)
}

// BuildWitness fetches the account proof for the same storage keys the
// simulation overrode, records the override key/value pairs, computes
// simulationDigest, and — for CALL-operation transactions — attempts to
// collect replay inputs: a prestate-tracer pass over the simulated call
// when it has data, or a direct {balance,nonce,code} read fallback for a
// plain native-value transfer to an EOA.
func BuildWitness(ctx context.Context, client rpc.Client, req Request, sim *simulation.Simulation) (*SimulationWitness, error) {
	ref := req.Block
	if ref == (rpc.BlockRef{}) {
		ref = rpc.AtNumber(sim.BlockNumber)
	}

	block, err := client.GetBlock(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("witness: get block: %w", err)
	}

	overrides := simulation.OverrideSlots(req.Tx.Nonce)
	keys := sortedSlotKeys(overrides)

	accountProof, err := client.GetProof(ctx, req.Safe, keys, ref)
	if err != nil {
		return nil, fmt.Errorf("witness: get proof: %w", err)
	}

	slotValues := make([]SlotValue, len(keys))
	for i, k := range keys {
		slotValues[i] = SlotValue{Key: k, Value: overrides[k]}
	}

	w := &SimulationWitness{
		ChainID:          new(big.Int).SetUint64(req.ChainID),
		SafeAddress:      req.Safe,
		BlockNumber:      block.Number,
		StateRoot:        block.StateRoot,
		SafeAccountProof: *accountProof,
		OverriddenSlots:  slotValues,
		SimulationDigest: Digest(sim),
	}

	if req.Tx.Operation == hashing.OperationCall {
		if err := attemptReplay(ctx, client, req, ref, w); err != nil {
			// Replay collection is best-effort; its absence does not fail
			// witness construction, only leaves ReplayAccounts/ReplayBlock
			// unset.
			_ = err
		}
	}

	return w, nil
}

func attemptReplay(ctx context.Context, client rpc.Client, req Request, ref rpc.BlockRef, w *SimulationWitness) error {
	if len(req.Tx.Data) == 0 {
		return plainNativeTransferReplay(ctx, client, req, ref, w)
	}
	return prestateReplay(ctx, client, req, ref, w)
}

// plainNativeTransferReplay handles the fallback path: empty calldata sent
// to an address with no code (an EOA) needs no trace, just the three
// accounts' current balance/nonce/code.
func plainNativeTransferReplay(ctx context.Context, client rpc.Client, req Request, ref rpc.BlockRef, w *SimulationWitness) error {
	code, err := client.GetCode(ctx, req.Tx.To, ref)
	if err != nil {
		return err
	}
	if len(code) != 0 {
		return nil // not an EOA recipient; no fallback applies
	}

	addrs := []common.Address{req.Safe, req.Tx.To, simulation.SimulatorAddress()}
	accounts := make(map[common.Address]ReplayAccount, len(addrs))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, addr := range addrs {
		wg.Add(1)
		go func(addr common.Address) {
			defer wg.Done()
			bal, err := client.GetBalance(ctx, addr, ref)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			nonce, err := client.GetTransactionCount(ctx, addr, ref)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			acctCode, err := client.GetCode(ctx, addr, ref)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			mu.Lock()
			accounts[addr] = ReplayAccount{Balance: bal, Nonce: nonce, Code: acctCode}
			mu.Unlock()
		}(addr)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	w.ReplayAccounts = accounts
	w.ReplayBlock = replayBlockFrom(ctx, client, ref)
	return nil
}

// prestateReplay attempts a full-prestate (diffMode off) tracer pass over
// the exact call the simulation issued — the forged execTransaction
// calldata with the owner-set override applied — via the same optional
// TraceCall capability the simulation fetcher uses; absence is tolerated.
func prestateReplay(ctx context.Context, client rpc.Client, req Request, ref rpc.BlockRef, w *SimulationWitness) error {
	tc, ok := client.(traceCapable)
	if !ok {
		return nil
	}
	params, err := simulation.ExecCallParams(req.Safe, req.ChainID, req.Tx)
	if err != nil {
		return err
	}
	raw, err := tc.TraceCall(ctx, params, ref, "prestateTracer", map[string]interface{}{})
	if err != nil {
		return nil
	}
	accounts, ok := parsePrestate(raw)
	if !ok || len(accounts) == 0 {
		return nil
	}
	w.ReplayAccounts = accounts
	w.ReplayBlock = replayBlockFrom(ctx, client, ref)
	return nil
}

// prestateAccount mirrors one address's entry in geth's prestateTracer
// full-mode output: the pre-call balance, nonce, code and every storage
// slot the traced call read or wrote.
type prestateAccount struct {
	Balance *hexutil.Big                `json:"balance"`
	Nonce   uint64                      `json:"nonce"`
	Code    hexutil.Bytes               `json:"code"`
	Storage map[common.Hash]common.Hash `json:"storage"`
}

// parsePrestate decodes a full-mode prestateTracer response (an object
// keyed by address) into replay accounts. Malformed JSON is tolerated the
// same way the simulation fetcher's trace parsers tolerate it: ok is false
// and the caller treats replay inputs as unavailable.
func parsePrestate(raw []byte) (map[common.Address]ReplayAccount, bool) {
	var pre map[common.Address]prestateAccount
	if err := json.Unmarshal(raw, &pre); err != nil {
		return nil, false
	}

	out := make(map[common.Address]ReplayAccount, len(pre))
	for addr, acc := range pre {
		ra := ReplayAccount{Nonce: acc.Nonce, Code: acc.Code}
		if acc.Balance != nil {
			ra.Balance = acc.Balance.ToInt()
		} else {
			ra.Balance = new(big.Int)
		}
		if len(acc.Storage) > 0 {
			ra.Storage = make(map[common.Hash]common.Hash, len(acc.Storage))
			for k, v := range acc.Storage {
				ra.Storage[k] = v
			}
		}
		out[addr] = ra
	}
	return out, true
}

func replayBlockFrom(ctx context.Context, client rpc.Client, ref rpc.BlockRef) *ReplayBlock {
	block, err := client.GetBlock(ctx, ref)
	if err != nil {
		return nil
	}
	return &ReplayBlock{
		Timestamp:     block.Timestamp,
		GasLimit:      block.GasLimit,
		BaseFeePerGas: block.BaseFeePerGas,
		Beneficiary:   block.Miner,
		PrevRandao:    block.MixHash,
	}
}
