// Package witness builds and verifies a SimulationWitness: the account
// proof and override record that lets an offline verifier check a packaged
// simulation against a trusted state root without re-running it.
package witness

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/safelens/evidence/pkg/simulation"
)

// canonicalLog/canonicalTransfer/canonicalDiff mirror simulation.Log etc.
// but with every hex field lowercased and optional fields normalized to
// null, the exact shape simulationDigest hashes.
type canonicalLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

type canonicalTransfer struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

type canonicalDiff struct {
	Address string `json:"address"`
	Key     string `json:"key"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

type canonicalSimulation struct {
	Success         bool                `json:"success"`
	ReturnData      *string             `json:"returnData"`
	GasUsed         uint64              `json:"gasUsed"`
	Logs            []canonicalLog      `json:"logs"`
	NativeTransfers []canonicalTransfer `json:"nativeTransfers"`
	StateDiffs      []canonicalDiff     `json:"stateDiffs"`
	BlockNumber     uint64              `json:"blockNumber"`
	BlockTimestamp  *uint64             `json:"blockTimestamp"`
	TraceAvailable  *bool               `json:"traceAvailable"`
}

func lowerHex(s string) string { return strings.ToLower(s) }

func hexOrNil(b []byte) *string {
	if b == nil {
		return nil
	}
	s := lowerHex("0x" + hex.EncodeToString(b))
	return &s
}

// canonicalize builds the deterministic, hash-stable JSON form of a
// simulation: all hex lowercased, absent optional fields mapped to null,
// log/diff order preserved exactly as returned by the simulation fetcher.
func canonicalize(sim *simulation.Simulation) canonicalSimulation {
	c := canonicalSimulation{
		Success:     sim.Success,
		GasUsed:     sim.GasUsed,
		BlockNumber: sim.BlockNumber,
	}
	if sim.Success {
		c.ReturnData = hexOrNil(sim.ReturnData)
	} else {
		c.ReturnData = hexOrNil(sim.RevertData)
	}
	if sim.BlockTimestamp != 0 {
		ts := sim.BlockTimestamp
		c.BlockTimestamp = &ts
	}
	avail := sim.TraceAvailable
	c.TraceAvailable = &avail

	c.Logs = make([]canonicalLog, len(sim.Logs))
	for i, l := range sim.Logs {
		topics := make([]string, len(l.Topics))
		for j, t := range l.Topics {
			topics[j] = lowerHex(t.Hex())
		}
		c.Logs[i] = canonicalLog{
			Address: lowerHex(l.Address.Hex()),
			Topics:  topics,
			Data:    lowerHex("0x" + hex.EncodeToString(l.Data)),
		}
	}

	c.NativeTransfers = make([]canonicalTransfer, len(sim.NativeTransfers))
	for i, nt := range sim.NativeTransfers {
		value := nt.Value
		if value == nil {
			value = new(big.Int)
		}
		c.NativeTransfers[i] = canonicalTransfer{
			From:  lowerHex(nt.From.Hex()),
			To:    lowerHex(nt.To.Hex()),
			Value: lowerHex("0x" + value.Text(16)),
		}
	}

	c.StateDiffs = make([]canonicalDiff, len(sim.StateDiffs))
	for i, d := range sim.StateDiffs {
		c.StateDiffs[i] = canonicalDiff{
			Address: lowerHex(d.Address.Hex()),
			Key:     lowerHex(d.Key.Hex()),
			Before:  lowerHex(d.Before.Hex()),
			After:   lowerHex(d.After.Hex()),
		}
	}

	return c
}

// Digest computes simulationDigest = keccak256(canonical(simulation)).
func Digest(sim *simulation.Simulation) common.Hash {
	c := canonicalize(sim)
	b, err := json.Marshal(c)
	if err != nil {
		// canonicalSimulation's fields are all JSON-marshalable primitives
		// and slices thereof; Marshal cannot fail on this shape.
		panic("witness: canonical simulation failed to marshal: " + err.Error())
	}
	return crypto.Keccak256Hash(b)
}

// sortedSlotKeys returns m's keys in ascending hex order, for deterministic
// OverriddenSlots iteration.
func sortedSlotKeys(m map[common.Hash]common.Hash) []common.Hash {
	keys := make([]common.Hash, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })
	return keys
}
