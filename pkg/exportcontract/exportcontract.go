// Package exportcontract classifies a Package's artifacts into a
// deterministic fully-verifiable/partial verdict, enumerating exactly why
// full trust wasn't reached (§4.J).
package exportcontract

import (
	"github.com/safelens/evidence/pkg/evidence"
	"github.com/safelens/evidence/pkg/evmsafe/hashing"
)

// Closed enum of reasons an ExportContract can carry, per spec.md §4.J.
const (
	ReasonMissingConsensusProof                evidence.ExportReason = "missing-consensus-proof"
	ReasonUnsupportedConsensusMode             evidence.ExportReason = "unsupported-consensus-mode"
	ReasonConsensusModeDisabledByFeatureFlag   evidence.ExportReason = "consensus-mode-disabled-by-feature-flag"
	ReasonMissingOnchainPolicyProof            evidence.ExportReason = "missing-onchain-policy-proof"
	ReasonMissingRPCURL                        evidence.ExportReason = "missing-rpc-url"
	ReasonConsensusProofFetchFailed            evidence.ExportReason = "consensus-proof-fetch-failed"
	ReasonPolicyProofFetchFailed               evidence.ExportReason = "policy-proof-fetch-failed"
	ReasonSimulationFetchFailed                evidence.ExportReason = "simulation-fetch-failed"
	ReasonMissingSimulation                    evidence.ExportReason = "missing-simulation"
	ReasonMissingSimulationWitness             evidence.ExportReason = "missing-simulation-witness"
	ReasonSimulationReplayUnsupportedOperation evidence.ExportReason = "simulation-replay-unsupported-operation"
)

// Attempt records what the packaging host tried and how it failed, so
// Finalize can distinguish "never attempted" from "attempted and failed"
// when composing reasons — both produce a reason, but callers building
// diagnostics may want to tell them apart (see Diagnostics).
type Attempt struct {
	ConsensusModeDisabled  bool
	MissingRPCURL          bool
	ConsensusProofFetchErr error
	PolicyProofFetchErr    error
	SimulationFetchErr     error
}

// Finalize computes the minimal, deterministic reason set for pkg and
// classifies it as fully-verifiable or partial. A package is
// fully-verifiable iff: consensus proof is present and beacon-mode, the
// onchain policy proof is present, the simulation is present, the
// transaction's operation is CALL, and the simulation witness carries both
// ReplayAccounts and ReplayBlock.
func Finalize(pkg evidence.Package, attempt Attempt) evidence.ExportContract {
	var reasons []evidence.ExportReason

	hasConsensus := pkg.ConsensusProof != nil
	consensusIsBeacon := hasConsensus && pkg.ConsensusProof.Mode == evidence.ConsensusBeacon

	switch {
	case !hasConsensus && attempt.ConsensusProofFetchErr != nil:
		reasons = append(reasons, ReasonConsensusProofFetchFailed)
	case !hasConsensus && attempt.ConsensusModeDisabled:
		reasons = append(reasons, ReasonConsensusModeDisabledByFeatureFlag)
	case !hasConsensus:
		reasons = append(reasons, ReasonMissingConsensusProof)
	case hasConsensus && !consensusIsBeacon:
		reasons = append(reasons, ReasonUnsupportedConsensusMode)
	}

	hasPolicy := pkg.OnchainPolicyProof != nil
	switch {
	case !hasPolicy && attempt.MissingRPCURL:
		reasons = append(reasons, ReasonMissingRPCURL)
	case !hasPolicy && attempt.PolicyProofFetchErr != nil:
		reasons = append(reasons, ReasonPolicyProofFetchFailed)
	case !hasPolicy:
		reasons = append(reasons, ReasonMissingOnchainPolicyProof)
	}

	hasSimulation := pkg.Simulation != nil
	switch {
	case !hasSimulation && attempt.SimulationFetchErr != nil:
		reasons = append(reasons, ReasonSimulationFetchFailed)
	case !hasSimulation:
		reasons = append(reasons, ReasonMissingSimulation)
	}

	isCall := pkg.Transaction.Operation == hashing.OperationCall
	if !isCall {
		reasons = append(reasons, ReasonSimulationReplayUnsupportedOperation)
	}

	hasWitnessReplay := pkg.Witness != nil && pkg.Witness.ReplayAccounts != nil && pkg.Witness.ReplayBlock != nil
	if hasSimulation && !hasWitnessReplay {
		reasons = append(reasons, ReasonMissingSimulationWitness)
	}

	fullyVerifiable := hasConsensus && consensusIsBeacon && hasPolicy && hasSimulation && isCall && hasWitnessReplay

	mode := evidence.ModePartial
	status := evidence.StatusPartial
	if fullyVerifiable {
		mode = evidence.ModeFullyVerifiable
		status = evidence.StatusComplete
	}

	var diagnostics []string
	if pkg.WitnessGenerationError != "" {
		diagnostics = append(diagnostics, "witness generation: "+pkg.WitnessGenerationError)
	}

	return evidence.ExportContract{
		Mode:              mode,
		Status:            status,
		IsFullyVerifiable: fullyVerifiable,
		Reasons:           reasons,
		Artifacts: evidence.ArtifactPresence{
			ConsensusProof:     hasConsensus,
			OnchainPolicyProof: hasPolicy,
			Simulation:         hasSimulation,
		},
		Diagnostics: diagnostics,
	}
}
