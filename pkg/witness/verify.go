package witness

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/mpt"
	"github.com/safelens/evidence/pkg/policyproof"
	"github.com/safelens/evidence/pkg/rpc"
	"github.com/safelens/evidence/pkg/simulation"
)

// CheckResult is one named verification step's outcome, so a caller can
// render a per-check pass/fail table rather than a single pooled verdict.
type CheckResult struct {
	Passed bool
	Detail string
}

// VerifyParams is the context VerifyWitness checks the witness against;
// OnchainPolicyProof is optional — when present, its (stateRoot,
// blockNumber) must align with the witness's.
type VerifyParams struct {
	ChainID            uint64
	SafeAddress        common.Address
	OnchainPolicyProof *policyproof.OnchainPolicyProof
}

// VerifyResult is the outcome of VerifyWitness: it never short-circuits on
// the first failing check, collecting every check's result so a caller can
// report exactly what failed.
type VerifyResult struct {
	Valid  bool
	Errors []string
	Checks map[string]CheckResult
}

func (r *VerifyResult) record(name string, passed bool, detail string) {
	if r.Checks == nil {
		r.Checks = make(map[string]CheckResult)
	}
	r.Checks[name] = CheckResult{Passed: passed, Detail: detail}
	if !passed {
		r.Valid = false
		r.Errors = append(r.Errors, detail)
	}
}

// VerifyWitness checks a SimulationWitness against the Simulation it claims
// to attest to and the context it was produced under, per §4.H: identity
// fields, digest recomputation, policy-proof alignment, account-proof
// verification, every storage-proof entry, and override coverage. Every
// check runs regardless of earlier failures.
func VerifyWitness(sim *simulation.Simulation, w *SimulationWitness, params VerifyParams) VerifyResult {
	res := VerifyResult{Valid: true, Checks: make(map[string]CheckResult)}

	wantChainID := new(big.Int).SetUint64(params.ChainID)
	res.record("identity", w.ChainID != nil && w.ChainID.Cmp(wantChainID) == 0 && w.SafeAddress == params.SafeAddress && w.BlockNumber == sim.BlockNumber,
		fmt.Sprintf("chainId/safeAddress/blockNumber: got (%v,%s,%d) want (%v,%s,%d)",
			w.ChainID, w.SafeAddress.Hex(), w.BlockNumber, wantChainID, params.SafeAddress.Hex(), sim.BlockNumber))

	gotDigest := Digest(sim)
	res.record("digest", gotDigest == w.SimulationDigest,
		fmt.Sprintf("simulation digest mismatch: recomputed %s, witness carries %s", gotDigest.Hex(), w.SimulationDigest.Hex()))

	if params.OnchainPolicyProof != nil {
		pp := params.OnchainPolicyProof
		res.record("policy-proof-alignment", pp.StateRoot == w.StateRoot && pp.BlockNumber == w.BlockNumber,
			fmt.Sprintf("policy proof alignment mismatch: policy (%s,%d) vs witness (%s,%d)",
				pp.StateRoot.Hex(), pp.BlockNumber, w.StateRoot.Hex(), w.BlockNumber))
	}

	ap := w.SafeAccountProof
	accountResult := mpt.VerifyAccount(w.StateRoot, ap.Address, ap.AccountProof, mpt.AccountRecord{
		Nonce:       ap.Nonce,
		Balance:     ap.Balance,
		StorageRoot: ap.StorageHash,
		CodeHash:    ap.CodeHash,
	})
	detail := "account proof verified"
	if !accountResult.Valid {
		detail = fmt.Sprintf("account proof invalid: %v", accountResult.Errors)
	}
	res.record("account-proof", accountResult.Valid, detail)

	storageByKey := make(map[common.Hash]rpc.StorageProofEntry, len(ap.StorageProof))
	for _, e := range ap.StorageProof {
		storageByKey[e.Key] = e
		r := mpt.VerifyStorage(ap.StorageHash, e.Key, e.Value, e.Proof)
		name := "storage-proof:" + e.Key.Hex()
		d := "storage proof verified"
		if !r.Valid {
			d = fmt.Sprintf("storage proof invalid for slot %s: %v", e.Key.Hex(), r.Errors)
		}
		res.record(name, r.Valid, d)
	}

	allCovered := true
	var coverageDetail string
	for _, ov := range w.OverriddenSlots {
		entry, ok := storageByKey[ov.Key]
		if !ok {
			allCovered = false
			coverageDetail = fmt.Sprintf("overridden slot %s has no matching storage proof entry", ov.Key.Hex())
			break
		}
		if common.BytesToHash(entry.Value[:]) != ov.Value {
			allCovered = false
			coverageDetail = fmt.Sprintf("overridden slot %s value mismatch: proof carries %x, override recorded %s", ov.Key.Hex(), entry.Value, ov.Value.Hex())
			break
		}
	}
	if allCovered {
		coverageDetail = "every overridden slot covered by a matching storage proof entry"
	}
	res.record("override-coverage", allCovered, coverageDetail)

	return res
}
