package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// EthClient is the reference RpcClient implementation: a raw gethrpc.Client
// driving every JSON-RPC method directly, since eth_getProof, eth_call
// with overrides and the tracer methods all need shapes ethclient.Client
// doesn't expose.
type EthClient struct {
	raw     *gethrpc.Client
	chainID *big.Int
	url     string

	mu               sync.Mutex
	overrideSpelling string // "" (untried), "stateOverride", or "stateOverrides"
}

// Dial connects to url and records the caller-supplied chainID; it does not
// query the endpoint for its chain id.
func Dial(ctx context.Context, url string, chainID *big.Int) (*EthClient, error) {
	raw, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %w: %w", ErrUnavailable, err)
	}
	return &EthClient{
		raw:     raw,
		chainID: chainID,
		url:     url,
	}, nil
}

func (c *EthClient) ChainID() *big.Int { return c.chainID }

func (c *EthClient) GetBlock(ctx context.Context, ref BlockRef) (*Block, error) {
	if ref.Tag == TagPending {
		return nil, ErrPendingBlock
	}

	var raw struct {
		Number        hexutil.Uint64 `json:"number"`
		Hash          common.Hash    `json:"hash"`
		StateRoot     common.Hash    `json:"stateRoot"`
		Timestamp     hexutil.Uint64 `json:"timestamp"`
		GasLimit      hexutil.Uint64 `json:"gasLimit"`
		BaseFeePerGas *hexutil.Big   `json:"baseFeePerGas"`
		Miner         common.Address `json:"miner"`
		MixHash       common.Hash    `json:"mixHash"`
		Difficulty    *hexutil.Big   `json:"difficulty"`
	}

	err := c.raw.CallContext(ctx, &raw, "eth_getBlockByNumber", ref.param(), false)
	if err != nil {
		return nil, fmt.Errorf("rpc: get block: %w: %w", ErrUnavailable, err)
	}
	if raw.Hash == (common.Hash{}) && raw.Number == 0 {
		return nil, ErrPendingBlock
	}

	b := &Block{
		Number:    uint64(raw.Number),
		Hash:      raw.Hash,
		StateRoot: raw.StateRoot,
		Timestamp: uint64(raw.Timestamp),
		GasLimit:  uint64(raw.GasLimit),
		Miner:     raw.Miner,
		MixHash:   raw.MixHash,
	}
	if raw.BaseFeePerGas != nil {
		b.BaseFeePerGas = raw.BaseFeePerGas.ToInt()
	}
	if raw.Difficulty != nil {
		b.Difficulty = raw.Difficulty.ToInt()
	}
	return b, nil
}

func (c *EthClient) GetBalance(ctx context.Context, addr common.Address, ref BlockRef) (*big.Int, error) {
	if ref.Tag == TagPending {
		return nil, ErrPendingBlock
	}
	var result hexutil.Big
	if err := c.raw.CallContext(ctx, &result, "eth_getBalance", addr, ref.param()); err != nil {
		return nil, fmt.Errorf("rpc: get balance: %w: %w", ErrUnavailable, err)
	}
	return result.ToInt(), nil
}

func (c *EthClient) GetTransactionCount(ctx context.Context, addr common.Address, ref BlockRef) (uint64, error) {
	if ref.Tag == TagPending {
		return 0, ErrPendingBlock
	}
	var result hexutil.Uint64
	if err := c.raw.CallContext(ctx, &result, "eth_getTransactionCount", addr, ref.param()); err != nil {
		return 0, fmt.Errorf("rpc: get transaction count: %w: %w", ErrUnavailable, err)
	}
	return uint64(result), nil
}

func (c *EthClient) GetCode(ctx context.Context, addr common.Address, ref BlockRef) ([]byte, error) {
	if ref.Tag == TagPending {
		return nil, ErrPendingBlock
	}
	var result hexutil.Bytes
	if err := c.raw.CallContext(ctx, &result, "eth_getCode", addr, ref.param()); err != nil {
		return nil, fmt.Errorf("rpc: get code: %w: %w", ErrUnavailable, err)
	}
	return []byte(result), nil
}

func (c *EthClient) GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash, ref BlockRef) (common.Hash, error) {
	var result hexutil.Bytes
	if err := c.raw.CallContext(ctx, &result, "eth_getStorageAt", addr, slot, ref.param()); err != nil {
		return common.Hash{}, fmt.Errorf("rpc: get storage at: %w: %w", ErrUnavailable, err)
	}
	return common.BytesToHash(result), nil
}

// proofResponse mirrors the eth_getProof JSON-RPC result shape (EIP-1186).
type proofResponse struct {
	Address      common.Address  `json:"address"`
	Balance      *hexutil.Big    `json:"balance"`
	CodeHash     common.Hash     `json:"codeHash"`
	Nonce        hexutil.Uint64  `json:"nonce"`
	StorageHash  common.Hash     `json:"storageHash"`
	AccountProof []hexutil.Bytes `json:"accountProof"`
	StorageProof []struct {
		Key   string          `json:"key"`
		Value *hexutil.Big    `json:"value"`
		Proof []hexutil.Bytes `json:"proof"`
	} `json:"storageProof"`
}

func (c *EthClient) GetProof(ctx context.Context, addr common.Address, slots []common.Hash, ref BlockRef) (*AccountProof, error) {
	keys := make([]string, len(slots))
	for i, s := range slots {
		keys[i] = s.Hex()
	}

	var resp proofResponse
	if err := c.raw.CallContext(ctx, &resp, "eth_getProof", addr, keys, ref.param()); err != nil {
		return nil, fmt.Errorf("rpc: get proof: %w: %w", ErrUnavailable, err)
	}

	out := &AccountProof{
		Address:     resp.Address,
		CodeHash:    resp.CodeHash,
		Nonce:       uint64(resp.Nonce),
		StorageHash: resp.StorageHash,
	}
	if resp.Balance != nil {
		out.Balance = resp.Balance.ToInt()
	} else {
		out.Balance = new(big.Int)
	}
	out.AccountProof = make([][]byte, len(resp.AccountProof))
	for i, n := range resp.AccountProof {
		out.AccountProof[i] = []byte(n)
	}

	out.StorageProof = make([]StorageProofEntry, len(resp.StorageProof))
	for i, sp := range resp.StorageProof {
		entry := StorageProofEntry{Key: common.HexToHash(sp.Key)}
		if sp.Value != nil {
			copy(entry.Value[:], common.LeftPadBytes(sp.Value.ToInt().Bytes(), 32))
		}
		entry.Proof = make([][]byte, len(sp.Proof))
		for j, n := range sp.Proof {
			entry.Proof[j] = []byte(n)
		}
		out.StorageProof[i] = entry
	}
	return out, nil
}

func overrideSet(o map[common.Address]OverrideAccount) map[common.Address]map[string]interface{} {
	if len(o) == 0 {
		return nil
	}
	set := make(map[common.Address]map[string]interface{}, len(o))
	for addr, ov := range o {
		entry := map[string]interface{}{}
		if ov.Balance != nil {
			entry["balance"] = hexutil.EncodeBig(ov.Balance)
		}
		if ov.Nonce != nil {
			entry["nonce"] = hexutil.EncodeUint64(*ov.Nonce)
		}
		if ov.Code != nil {
			entry["code"] = hexutil.Encode(ov.Code)
		}
		if len(ov.State) > 0 {
			state := make(map[common.Hash]common.Hash, len(ov.State))
			for k, v := range ov.State {
				state[k] = v
			}
			entry["state"] = state
		}
		if len(ov.StateDiff) > 0 {
			diff := make(map[common.Hash]common.Hash, len(ov.StateDiff))
			for k, v := range ov.StateDiff {
				diff[k] = v
			}
			entry["stateDiff"] = diff
		}
		set[addr] = entry
	}
	return set
}

func callObject(p CallParams) map[string]interface{} {
	obj := map[string]interface{}{
		"to": p.To,
	}
	if p.From != (common.Address{}) {
		obj["from"] = p.From
	}
	if len(p.Data) > 0 {
		obj["data"] = hexutil.Encode(p.Data)
	}
	if p.Value != nil {
		obj["value"] = hexutil.EncodeBig(p.Value)
	}
	return obj
}

// callWithOverride issues method(obj, blockParam, overrideSet) — eth_call
// and eth_estimateGas take the override set directly as their third
// positional parameter, with no spelling ambiguity; that ambiguity is
// specific to debug_traceCall's tracer-config shape (see traceConfig
// below) and is handled there instead.
func (c *EthClient) callWithOverride(ctx context.Context, result interface{}, method string, obj map[string]interface{}, blockParam interface{}, overrides map[common.Address]OverrideAccount) error {
	set := overrideSet(overrides)
	if set == nil {
		return c.raw.CallContext(ctx, result, method, obj, blockParam)
	}
	return c.raw.CallContext(ctx, result, method, obj, blockParam, set)
}

func (c *EthClient) Call(ctx context.Context, params CallParams, ref BlockRef) ([]byte, error) {
	obj := callObject(params)
	var result hexutil.Bytes
	err := c.callWithOverride(ctx, &result, "eth_call", obj, ref.param(), params.StateOverride)
	if err != nil {
		if revert, ok := asRevert(err); ok {
			return nil, &RevertError{Data: revert}
		}
		return nil, fmt.Errorf("rpc: call: %w: %w", ErrUnavailable, err)
	}
	return []byte(result), nil
}

// asRevert tries to pull revert data out of a JSON-RPC error the way
// go-ethereum clients surface it: an error implementing the unexported
// rpc.DataError-equivalent with an ErrorData() method.
func asRevert(err error) ([]byte, bool) {
	type dataError interface {
		ErrorData() interface{}
	}
	de, ok := err.(dataError)
	if !ok {
		return nil, false
	}
	switch d := de.ErrorData().(type) {
	case string:
		b, decErr := hexutil.Decode(d)
		if decErr != nil {
			return nil, false
		}
		return b, true
	case []byte:
		return d, true
	default:
		return nil, false
	}
}

func (c *EthClient) EstimateGas(ctx context.Context, params CallParams, ref BlockRef) (uint64, bool, error) {
	obj := callObject(params)
	var result hexutil.Uint64
	err := c.callWithOverride(ctx, &result, "eth_estimateGas", obj, ref.param(), params.StateOverride)
	if err != nil {
		if _, ok := asRevert(err); ok {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("rpc: estimate gas: %w: %w", ErrUnavailable, err)
	}
	return uint64(result), true, nil
}

func (c *EthClient) RawRequest(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.raw.CallContext(ctx, &raw, method, params...); err != nil {
		return nil, fmt.Errorf("rpc: %s: %w: %w", method, ErrUnavailable, err)
	}
	return raw, nil
}

// TraceCall issues debug_traceCall with tracer, tracerConfig and the given
// state overrides. Clients disagree on whether the tracer config's
// override field is named "stateOverride" or "stateOverrides"; this probes
// whichever spelling last worked for this client, falling back to the
// other on failure and remembering the one that succeeds — the lazy,
// per-endpoint memory the RPC capability is documented to use instead of
// sending both spellings on every call.
func (c *EthClient) TraceCall(ctx context.Context, params CallParams, ref BlockRef, tracer string, tracerConfig map[string]interface{}) (json.RawMessage, error) {
	obj := callObject(params)
	set := overrideSet(params.StateOverride)

	c.mu.Lock()
	preferred := c.overrideSpelling
	c.mu.Unlock()
	order := []string{"stateOverride", "stateOverrides"}
	if preferred != "" {
		order = []string{preferred, otherSpelling(preferred)}
	}

	var lastErr error
	for _, spelling := range order {
		cfg := map[string]interface{}{"tracer": tracer}
		for k, v := range tracerConfig {
			cfg[k] = v
		}
		if set != nil {
			cfg[spelling] = set
		}

		var raw json.RawMessage
		err := c.raw.CallContext(ctx, &raw, "debug_traceCall", obj, ref.param(), cfg)
		if err == nil {
			c.mu.Lock()
			c.overrideSpelling = spelling
			c.mu.Unlock()
			return raw, nil
		}
		lastErr = err
		if set == nil {
			// No overrides in play: the spelling is irrelevant, so a
			// failure here means the tracer itself is unsupported.
			break
		}
	}
	return nil, fmt.Errorf("rpc: debug_traceCall: %w: %w", ErrUnavailable, lastErr)
}

func otherSpelling(s string) string {
	if s == "stateOverride" {
		return "stateOverrides"
	}
	return "stateOverride"
}
