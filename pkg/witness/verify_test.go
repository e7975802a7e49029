package witness

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/safelens/evidence/pkg/policyproof"
	"github.com/safelens/evidence/pkg/rpc"
	"github.com/safelens/evidence/pkg/simulation"
)

// buildSingleLeafTrie mirrors pkg/mpt's own test fixture builder: a
// degenerate one-node trie holding a single key/value pair at the root.
func buildSingleLeafTrie(t *testing.T, key []byte, value []byte) (root common.Hash, node []byte) {
	t.Helper()
	nibbles := make([]byte, 0, len(key)*2)
	for _, b := range key {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	path := make([]byte, 0, 1+len(nibbles)/2)
	path = append(path, 0x20)
	for i := 0; i < len(nibbles); i += 2 {
		path = append(path, nibbles[i]<<4|nibbles[i+1])
	}

	encodedValue, err := rlp.EncodeToBytes(value)
	if err != nil {
		t.Fatalf("encode value: %v", err)
	}
	var rawValue rlp.RawValue = encodedValue

	node, err = rlp.EncodeToBytes([]interface{}{path, rawValue})
	if err != nil {
		t.Fatalf("encode leaf node: %v", err)
	}
	return crypto.Keccak256Hash(node), node
}

func encodeTestAccount(nonce uint64, balance *big.Int, storageRoot, codeHash common.Hash) []byte {
	b, _ := rlp.EncodeToBytes([]interface{}{nonce, balance, storageRoot, codeHash})
	return b
}

// buildFixture builds a SimulationWitness whose account proof and single
// storage-proof entry are both genuinely verifiable single-leaf tries, so
// VerifyWitness exercises its real mpt checks rather than stub data.
func buildFixture(t *testing.T) (*simulation.Simulation, *SimulationWitness, common.Address) {
	t.Helper()

	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	slot := common.BigToHash(big.NewInt(3))
	var slotWord [32]byte
	slotWord[31] = 0x07

	storageKey := crypto.Keccak256(slot.Bytes())
	trimmed := []byte{0x07}
	storageRoot, storageNode := buildSingleLeafTrie(t, storageKey, trimmed)

	codeHash := crypto.Keccak256Hash([]byte("code"))
	accountEncoded := encodeTestAccount(1, big.NewInt(0), storageRoot, codeHash)
	accountKey := crypto.Keccak256(safe.Bytes())
	stateRoot, accountNode := buildSingleLeafTrie(t, accountKey, accountEncoded)

	sim := &simulation.Simulation{
		Success:     true,
		ReturnData:  []byte{0x01},
		GasUsed:     21000,
		BlockNumber: 42,
	}

	w := &SimulationWitness{
		ChainID:     big.NewInt(1),
		SafeAddress: safe,
		BlockNumber: 42,
		StateRoot:   stateRoot,
		SafeAccountProof: rpc.AccountProof{
			Address:      safe,
			Balance:      big.NewInt(0),
			CodeHash:     codeHash,
			Nonce:        1,
			StorageHash:  storageRoot,
			AccountProof: [][]byte{accountNode},
			StorageProof: []rpc.StorageProofEntry{
				{Key: slot, Value: slotWord, Proof: [][]byte{storageNode}},
			},
		},
		OverriddenSlots:  []SlotValue{{Key: slot, Value: common.BytesToHash(slotWord[:])}},
		SimulationDigest: Digest(sim),
	}

	return sim, w, safe
}

func TestVerifyWitnessAccepts(t *testing.T) {
	sim, w, safe := buildFixture(t)
	res := VerifyWitness(sim, w, VerifyParams{ChainID: 1, SafeAddress: safe})
	if !res.Valid {
		t.Fatalf("expected valid witness, errors: %v", res.Errors)
	}
	for name, check := range res.Checks {
		if !check.Passed {
			t.Errorf("check %q failed: %s", name, check.Detail)
		}
	}
}

func TestVerifyWitnessRejectsDigestMismatch(t *testing.T) {
	sim, w, safe := buildFixture(t)
	w.SimulationDigest = common.HexToHash("0xdeadbeef")

	res := VerifyWitness(sim, w, VerifyParams{ChainID: 1, SafeAddress: safe})
	if res.Valid {
		t.Fatal("expected digest mismatch to invalidate the witness")
	}
	if res.Checks["digest"].Passed {
		t.Error("expected the digest check specifically to fail")
	}
}

func TestVerifyWitnessRejectsIdentityMismatch(t *testing.T) {
	sim, w, _ := buildFixture(t)
	otherSafe := common.HexToAddress("0x2222222222222222222222222222222222222222")

	res := VerifyWitness(sim, w, VerifyParams{ChainID: 1, SafeAddress: otherSafe})
	if res.Valid {
		t.Fatal("expected safe address mismatch to invalidate the witness")
	}
	if res.Checks["identity"].Passed {
		t.Error("expected the identity check specifically to fail")
	}
}

func TestVerifyWitnessRejectsOverrideNotCoveredByProof(t *testing.T) {
	sim, w, safe := buildFixture(t)
	w.OverriddenSlots = append(w.OverriddenSlots, SlotValue{
		Key:   common.BigToHash(big.NewInt(99)),
		Value: common.BigToHash(big.NewInt(1)),
	})

	res := VerifyWitness(sim, w, VerifyParams{ChainID: 1, SafeAddress: safe})
	if res.Valid {
		t.Fatal("expected an override with no matching storage proof entry to invalidate the witness")
	}
	if res.Checks["override-coverage"].Passed {
		t.Error("expected the override-coverage check specifically to fail")
	}
}

func TestVerifyWitnessChecksPolicyProofAlignment(t *testing.T) {
	sim, w, safe := buildFixture(t)
	pp := &policyproof.OnchainPolicyProof{BlockNumber: w.BlockNumber, StateRoot: w.StateRoot}

	res := VerifyWitness(sim, w, VerifyParams{ChainID: 1, SafeAddress: safe, OnchainPolicyProof: pp})
	if !res.Checks["policy-proof-alignment"].Passed {
		t.Errorf("expected aligned policy proof to pass: %s", res.Checks["policy-proof-alignment"].Detail)
	}

	pp.BlockNumber++
	res = VerifyWitness(sim, w, VerifyParams{ChainID: 1, SafeAddress: safe, OnchainPolicyProof: pp})
	if res.Checks["policy-proof-alignment"].Passed {
		t.Error("expected a block number mismatch against the policy proof to fail alignment")
	}
}
