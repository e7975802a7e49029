package simulation

import (
	"context"
	"encoding/json"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/safelens/evidence/pkg/decode"
	"github.com/safelens/evidence/pkg/rpc"
)

// callTraceFrame mirrors geth's callTracer JSON frame shape.
type callTraceFrame struct {
	Type    string           `json:"type"`
	From    common.Address   `json:"from"`
	To      common.Address   `json:"to"`
	Value   *hexutil.Big     `json:"value"`
	Gas     hexutil.Uint64   `json:"gas"`
	GasUsed hexutil.Uint64   `json:"gasUsed"`
	Error   string           `json:"error"`
	Logs    []callTraceLog   `json:"logs"`
	Calls   []callTraceFrame `json:"calls"`
}

type callTraceLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// parseCallTrace decodes a callTracer response into the top-level gasUsed,
// every log across the call tree, and every native value transfer.
// Malformed JSON is tolerated: ok is false and callers treat the trace as
// unavailable rather than failing the whole simulation.
func parseCallTrace(raw []byte) (gasUsed uint64, logs []Log, transfers []NativeTransfer, ok bool) {
	var frame callTraceFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return 0, nil, nil, false
	}

	var decodeLogs func(f callTraceFrame)
	decodeLogs = func(f callTraceFrame) {
		for _, l := range f.Logs {
			logs = append(logs, Log{Address: l.Address, Topics: l.Topics, Data: l.Data})
		}
		for _, c := range f.Calls {
			decodeLogs(c)
		}
	}
	decodeLogs(frame)

	transfers = extractNativeTransfers(toDecodeFrame(frame))

	return uint64(frame.GasUsed), logs, transfers, true
}

func toDecodeFrame(f callTraceFrame) decode.CallFrame {
	var value *big.Int
	if f.Value != nil {
		value = f.Value.ToInt()
	}
	calls := make([]decode.CallFrame, len(f.Calls))
	for i, c := range f.Calls {
		calls[i] = toDecodeFrame(c)
	}
	return decode.CallFrame{
		Type:  f.Type,
		From:  f.From,
		To:    f.To,
		Value: value,
		Error: f.Error,
		Calls: calls,
	}
}

func extractNativeTransfers(root decode.CallFrame) []NativeTransfer {
	raw := decode.ExtractNativeTransfers(root)
	out := make([]NativeTransfer, len(raw))
	for i, t := range raw {
		out[i] = NativeTransfer{From: t.From, To: t.To, Value: t.Value}
	}
	return out
}

// prestateAccount mirrors one address's entry in geth's prestateTracer
// diff-mode output: only balance/nonce/code change per account, but the
// fields this package cares about are the storage slots.
type prestateAccount struct {
	Storage map[common.Hash]common.Hash `json:"storage"`
}

// prestateDiff mirrors geth's prestateTracer response shape with
// diffMode: true — a pre-state and a post-state keyed by address.
type prestateDiff struct {
	Pre  map[common.Address]prestateAccount `json:"pre"`
	Post map[common.Address]prestateAccount `json:"post"`
}

// parsePrestateDiff decodes a prestateTracer diff-mode response into the
// union of every (address, slot) pair touched on either side, each paired
// with its before/after value (the zero hash when a side never recorded
// that slot). Malformed JSON is tolerated the same way parseCallTrace
// tolerates it: ok is false and the caller treats diffs as unavailable.
func parsePrestateDiff(raw []byte) (diffs []StateDiffEntry, ok bool) {
	var d prestateDiff
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false
	}

	slotsByAddr := make(map[common.Address]map[common.Hash]struct{})
	var addrs []common.Address
	addSlots := func(addr common.Address, acc prestateAccount) {
		set, seen := slotsByAddr[addr]
		if !seen {
			set = make(map[common.Hash]struct{})
			slotsByAddr[addr] = set
			addrs = append(addrs, addr)
		}
		for slot := range acc.Storage {
			set[slot] = struct{}{}
		}
	}
	for addr, acc := range d.Pre {
		addSlots(addr, acc)
	}
	for addr, acc := range d.Post {
		addSlots(addr, acc)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Hex() < addrs[j].Hex() })

	for _, addr := range addrs {
		slots := slotsByAddr[addr]
		keys := make([]common.Hash, 0, len(slots))
		for k := range slots {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })

		for _, key := range keys {
			diffs = append(diffs, StateDiffEntry{
				Address: addr,
				Key:     key,
				Before:  d.Pre[addr].Storage[key],
				After:   d.Post[addr].Storage[key],
			})
		}
	}
	return diffs, true
}

// collectDiffs attempts a prestateTracer diff-mode pass to collect storage
// state diffs, per §4.E step 8. Failure (tracer unsupported, malformed
// response) is tolerated: sim.StateDiffs is simply left empty, matching
// collectTrace's "tolerate absence" behavior for the call tracer.
func collectDiffs(ctx context.Context, client rpc.Client, params rpc.CallParams, ref rpc.BlockRef, sim *Simulation) {
	tc, ok := client.(traceCapable)
	if !ok {
		return
	}
	raw, err := tc.TraceCall(ctx, params, ref, "prestateTracer", map[string]interface{}{"diffMode": true})
	if err != nil {
		return
	}
	diffs, ok := parsePrestateDiff(raw)
	if !ok {
		return
	}
	sim.StateDiffs = diffs
}
