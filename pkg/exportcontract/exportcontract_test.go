package exportcontract

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/evidence"
	"github.com/safelens/evidence/pkg/evmsafe/hashing"
	"github.com/safelens/evidence/pkg/policyproof"
	"github.com/safelens/evidence/pkg/simulation"
	"github.com/safelens/evidence/pkg/witness"
)

func basePackage() evidence.Package {
	return evidence.Package{
		Transaction: hashing.Transaction{Operation: hashing.OperationCall},
	}
}

func policyProofStub() *policyproof.OnchainPolicyProof {
	return &policyproof.OnchainPolicyProof{BlockNumber: 1}
}

func TestFinalizeEmptyPackageIsPartialWithAllMissingReasons(t *testing.T) {
	contract := Finalize(basePackage(), Attempt{})
	if contract.IsFullyVerifiable {
		t.Fatal("an empty package must never be classified fully-verifiable")
	}
	if contract.Mode != evidence.ModePartial {
		t.Errorf("mode = %q, want %q", contract.Mode, evidence.ModePartial)
	}

	want := map[evidence.ExportReason]bool{
		ReasonMissingConsensusProof:     true,
		ReasonMissingOnchainPolicyProof: true,
		ReasonMissingSimulation:         true,
	}
	for _, r := range contract.Reasons {
		delete(want, r)
	}
	if len(want) != 0 {
		t.Errorf("missing expected reasons: %v", want)
	}
}

func TestFinalizeDistinguishesAttemptedFromNeverAttempted(t *testing.T) {
	attempt := Attempt{
		PolicyProofFetchErr:   errors.New("rpc timeout"),
		ConsensusModeDisabled: true,
	}
	contract := Finalize(basePackage(), attempt)

	hasReason := func(r evidence.ExportReason) bool {
		for _, got := range contract.Reasons {
			if got == r {
				return true
			}
		}
		return false
	}
	if !hasReason(ReasonPolicyProofFetchFailed) {
		t.Error("expected policy-proof-fetch-failed when PolicyProofFetchErr is set")
	}
	if !hasReason(ReasonConsensusModeDisabledByFeatureFlag) {
		t.Error("expected consensus-mode-disabled-by-feature-flag when ConsensusModeDisabled is set")
	}
	if hasReason(ReasonMissingOnchainPolicyProof) {
		t.Error("a specific fetch-failure reason should replace the generic missing-proof reason")
	}
}

func TestFinalizeFullyVerifiableRequiresEveryArtifact(t *testing.T) {
	pkg := basePackage()
	pkg.ConsensusProof = &evidence.ConsensusProof{Mode: evidence.ConsensusBeacon}
	pkg.OnchainPolicyProof = policyProofStub()
	pkg.Simulation = &simulation.Simulation{Success: true}
	pkg.Witness = &witness.SimulationWitness{
		ReplayAccounts: map[common.Address]witness.ReplayAccount{},
		ReplayBlock:    &witness.ReplayBlock{},
	}

	contract := Finalize(pkg, Attempt{})
	if !contract.IsFullyVerifiable {
		t.Fatalf("expected fully verifiable, reasons: %v", contract.Reasons)
	}
	if contract.Mode != evidence.ModeFullyVerifiable {
		t.Errorf("mode = %q, want %q", contract.Mode, evidence.ModeFullyVerifiable)
	}
	if len(contract.Reasons) != 0 {
		t.Errorf("expected no shortfall reasons, got %v", contract.Reasons)
	}
}

func TestFinalizeNonCallOperationCannotBeFullyVerifiable(t *testing.T) {
	pkg := basePackage()
	pkg.Transaction.Operation = hashing.OperationDelegateCall
	pkg.ConsensusProof = &evidence.ConsensusProof{Mode: evidence.ConsensusBeacon}
	pkg.OnchainPolicyProof = policyProofStub()
	pkg.Simulation = &simulation.Simulation{Success: true}

	contract := Finalize(pkg, Attempt{})
	if contract.IsFullyVerifiable {
		t.Fatal("a delegatecall transaction must never be classified fully-verifiable")
	}
}

func TestFinalizeMonotonicityMoreArtifactsNeverWorsenClassification(t *testing.T) {
	empty := Finalize(basePackage(), Attempt{})

	withConsensus := basePackage()
	withConsensus.ConsensusProof = &evidence.ConsensusProof{Mode: evidence.ConsensusBeacon}
	withConsensusContract := Finalize(withConsensus, Attempt{})

	if len(withConsensusContract.Reasons) >= len(empty.Reasons) {
		t.Errorf("adding an artifact should never increase the shortfall reason count: empty=%d, withConsensus=%d",
			len(empty.Reasons), len(withConsensusContract.Reasons))
	}
	if withConsensusContract.IsFullyVerifiable {
		t.Fatal("partial artifacts must never be classified fully-verifiable")
	}
}
