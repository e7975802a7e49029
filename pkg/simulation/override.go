package simulation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/evmsafe/storage"
	"github.com/safelens/evidence/pkg/rpc"
)

// buildOverride constructs the storage override for the Safe address per
// §4.E: a one-owner, one-threshold Safe whose sole owner is the simulator
// key, nonce pinned to the transaction's own nonce, no guard or fallback
// handler, and no enabled modules. Every slot is a StateDiff patch, not a
// wholesale State replacement, so unrelated storage (token balances the
// Safe holds, etc.) is left untouched.
func buildOverride(nonce *big.Int) rpc.OverrideAccount {
	return rpc.OverrideAccount{StateDiff: OverrideSlots(nonce)}
}

// OverrideSlots returns the exact slot/value patch set buildOverride
// applies, exported so a witness builder can fetch a proof over precisely
// these keys and the two stay provably in sync (SimulationWitness invariant
// C: every overridden slot appears in the accompanying storage proof).
func OverrideSlots(nonce *big.Int) map[common.Hash]common.Hash {
	return map[common.Hash]common.Hash{
		storage.OwnerCountSlot:               common.BigToHash(big.NewInt(1)),
		storage.ThresholdSlot:                common.BigToHash(big.NewInt(1)),
		storage.NonceSlot:                    common.BigToHash(nonce),
		storage.OwnerSlot(storage.Sentinel):  common.BytesToHash(simulatorAddr.Bytes()),
		storage.OwnerSlot(simulatorAddr):     common.BytesToHash(storage.Sentinel.Bytes()),
		storage.ModuleSlot(storage.Sentinel): common.BytesToHash(storage.Sentinel.Bytes()),
		storage.GuardStorageSlot:             common.Hash{},
		storage.FallbackHandlerStorageSlot:   common.Hash{},
	}
}
