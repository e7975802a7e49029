// Package trust combines a verified consensus result, an on-chain policy
// proof, a simulation witness verification, an optional local replay
// result, and the confirmation signature tally into a single graded
// verdict with coded, closed-enum reasons (§4.L).
package trust

import (
	"strings"

	"github.com/safelens/evidence/pkg/evidence"
	"github.com/safelens/evidence/pkg/policyproof"
	"github.com/safelens/evidence/pkg/witness"
)

// Verdict is the overall graded trust level.
type Verdict string

const (
	VerdictTrusted    Verdict = "trusted"
	VerdictDowngraded Verdict = "downgraded"
	VerdictUntrusted  Verdict = "untrusted"
)

// Reason is a closed-enum code explaining a trust verdict or a downgrade
// from it, per spec.md §4.L.
type Reason string

const (
	ReasonMissingConsensusOrPolicyProof   Reason = "missing-consensus-or-policy-proof"
	ReasonMissingOrInvalidConsensusResult Reason = "missing-or-invalid-consensus-result"
	ReasonStateRootMismatchFlag           Reason = "state-root-mismatch-flag"
	ReasonStateRootMismatchPolicyProof    Reason = "state-root-mismatch-policy-proof"
	ReasonBlockNumberMismatchPolicyProof  Reason = "block-number-mismatch-policy-proof"

	ReasonMissingSimulationWitness           Reason = "missing-simulation-witness"
	ReasonSimulationWitnessProofFailed       Reason = "simulation-witness-proof-failed"
	ReasonSimulationReplayNotRun             Reason = "simulation-replay-not-run"
	ReasonSimulationReplayWorldStateUnproven Reason = "simulation-replay-world-state-unproven"
)

// ReplayResult is an optional local-replay engine's outcome, built from a
// SimulationWitness's ReplayAccounts/ReplayBlock; replaying the EVM itself
// is out of this module's scope (it only provides the inputs, per spec.md
// §1 Non-goals), so this is the replayer's own report.
type ReplayResult struct {
	Ran              bool
	WorldStateProven bool
	// ReplayReason, when non-empty, is a "simulation-replay-*" code the
	// local replayer itself surfaced (e.g. a specific divergence from the
	// witnessed simulation); it is passed through verbatim.
	ReplayReason Reason
}

// SignatureTally summarizes a package's confirmations against the proven
// on-chain threshold.
type SignatureTally struct {
	Threshold    uint64
	ConfirmCount uint64
	Satisfied    bool
}

// TallySignatures computes a SignatureTally from a package's confirmations
// and a proven threshold.
func TallySignatures(confirmCount uint64, threshold uint64) SignatureTally {
	return SignatureTally{
		Threshold:    threshold,
		ConfirmCount: confirmCount,
		Satisfied:    confirmCount >= threshold,
	}
}

// Decision is the trust engine's full output.
type Decision struct {
	Verdict          Verdict
	PolicyReason     Reason
	SimulationReason Reason
	Tally            SignatureTally
}

// EvaluatePolicyTrust implements §4.L's five-step consensus/policy
// decision, never short-circuiting on partial information without
// recording why. consensusValid is the ConsensusVerifier capability's own
// claim that it checked consensus.Payload and found it cryptographically
// sound; this module composes with that claim rather than re-deriving it
// (spec.md §1 Non-goals).
func EvaluatePolicyTrust(consensus *evidence.ConsensusProof, consensusValid bool, policy *policyproof.OnchainPolicyProof) (Verdict, Reason) {
	if consensus == nil || policy == nil {
		return VerdictUntrusted, ReasonMissingConsensusOrPolicyProof
	}
	if !consensusValid {
		return VerdictUntrusted, ReasonMissingOrInvalidConsensusResult
	}
	if !consensus.VerifiedStateRootMatches {
		return VerdictUntrusted, ReasonStateRootMismatchFlag
	}
	if !strings.EqualFold(consensus.StateRoot.Hex(), policy.StateRoot.Hex()) {
		return VerdictUntrusted, ReasonStateRootMismatchPolicyProof
	}
	if consensus.VerifiedBlockNumber != policy.BlockNumber {
		return VerdictUntrusted, ReasonBlockNumberMismatchPolicyProof
	}
	return VerdictTrusted, ""
}

// EvaluateSimulationTrust applies the ordered simulation-trust downgrade
// reasons: missing witness, a witness whose proofs fail verification, a
// witness with replay inputs that was never actually replayed, any
// replay-surfaced reason, or a replay that ran but didn't prove full
// world-state coverage.
func EvaluateSimulationTrust(w *witness.SimulationWitness, witnessCheck *witness.VerifyResult, replay *ReplayResult) (Verdict, Reason) {
	if w == nil {
		return VerdictDowngraded, ReasonMissingSimulationWitness
	}
	if witnessCheck == nil || !witnessCheck.Valid {
		return VerdictDowngraded, ReasonSimulationWitnessProofFailed
	}
	hasReplayInputs := w.ReplayAccounts != nil && w.ReplayBlock != nil
	if hasReplayInputs && (replay == nil || !replay.Ran) {
		return VerdictDowngraded, ReasonSimulationReplayNotRun
	}
	if replay != nil && replay.ReplayReason != "" {
		return VerdictDowngraded, replay.ReplayReason
	}
	if replay != nil && replay.Ran && !replay.WorldStateProven {
		return VerdictDowngraded, ReasonSimulationReplayWorldStateUnproven
	}
	return VerdictTrusted, ""
}

// Decide composes the policy and simulation trust decisions with the
// signature tally into a single overall Decision. The overall verdict is
// the weaker of the two component verdicts; an unsatisfied signature
// tally alone does not downgrade the cryptographic trust verdict (it is a
// separate, orthogonal governance fact a caller renders alongside it).
func Decide(consensus *evidence.ConsensusProof, consensusValid bool, policy *policyproof.OnchainPolicyProof, w *witness.SimulationWitness, witnessCheck *witness.VerifyResult, replay *ReplayResult, tally SignatureTally) Decision {
	policyVerdict, policyReason := EvaluatePolicyTrust(consensus, consensusValid, policy)
	simVerdict, simReason := EvaluateSimulationTrust(w, witnessCheck, replay)

	return Decision{
		Verdict:          weaker(policyVerdict, simVerdict),
		PolicyReason:     policyReason,
		SimulationReason: simReason,
		Tally:            tally,
	}
}

func rank(v Verdict) int {
	switch v {
	case VerdictTrusted:
		return 2
	case VerdictDowngraded:
		return 1
	default:
		return 0
	}
}

func weaker(a, b Verdict) Verdict {
	if rank(a) <= rank(b) {
		return a
	}
	return b
}
