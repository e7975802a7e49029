package witness

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/rpc"
)

// SlotValue is one overridden storage key/value pair, recorded so a
// verifier can confirm the override actually took effect under the
// accompanying account proof.
type SlotValue struct {
	Key   common.Hash
	Value common.Hash
}

// ReplayBlock carries the header fields a local replayer needs to
// reconstruct the pinned block's execution environment.
type ReplayBlock struct {
	Timestamp     uint64
	GasLimit      uint64
	BaseFeePerGas *big.Int
	Beneficiary   common.Address
	PrevRandao    common.Hash
}

// ReplayAccount is one account's pre-state, as needed to locally replay a
// transaction without trusting the simulation fetcher's own node. Storage
// holds every slot the traced call touched; it is empty for the plain
// native-transfer fallback, which touches no contract storage.
type ReplayAccount struct {
	Balance *big.Int
	Nonce   uint64
	Code    []byte
	Storage map[common.Hash]common.Hash
}

// SimulationWitness is the proof-backed record that lets a verifier check
// a packaged Simulation offline, without re-running it against a live node.
type SimulationWitness struct {
	ChainID          *big.Int
	SafeAddress      common.Address
	BlockNumber      uint64
	StateRoot        common.Hash
	SafeAccountProof rpc.AccountProof
	OverriddenSlots  []SlotValue
	SimulationDigest common.Hash

	ReplayBlock    *ReplayBlock
	ReplayAccounts map[common.Address]ReplayAccount
	ReplayCaller   *common.Address
	ReplayGasLimit *uint64
	WitnessOnly    bool
}
