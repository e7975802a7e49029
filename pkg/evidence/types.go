// Package evidence assembles the versioned, self-contained evidence
// package a packaging host produces and a verifier host consumes offline:
// transaction metadata, confirmations, and the three cryptographic
// artifacts (on-chain policy proof, consensus proof, simulation + witness)
// that back a graded trust verdict.
package evidence

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/safelens/evidence/pkg/evmsafe/hashing"
	"github.com/safelens/evidence/pkg/policyproof"
	"github.com/safelens/evidence/pkg/simulation"
	"github.com/safelens/evidence/pkg/witness"
)

// Version is the evidence package schema version, progressing as more
// artifacts are attached; it is never decremented.
type Version string

const (
	Version10 Version = "1.0"
	Version11 Version = "1.1"
	Version12 Version = "1.2"
)

// Confirmation is one owner's signature over the package's safeTxHash.
type Confirmation struct {
	Owner          common.Address
	Signature      []byte
	SubmissionDate time.Time
}

// ConsensusMode discriminates the tagged ConsensusProof union; only
// ConsensusBeacon offers independent consensus trust (§3 ConsensusProof).
type ConsensusMode string

const (
	ConsensusBeacon  ConsensusMode = "beacon"
	ConsensusOPStack ConsensusMode = "opstack"
	ConsensusLinea   ConsensusMode = "linea"
)

// ConsensusProof is a tagged union over the chain family's light-client
// verification strategy. Payload fields beyond StateRoot/BlockNumber are
// mode-specific and populated by the ConsensusVerifier capability this
// module composes with rather than implements (spec.md §1 Non-goals).
type ConsensusProof struct {
	Mode        ConsensusMode
	StateRoot   common.Hash
	BlockNumber uint64

	// VerifiedStateRootMatches and VerifiedBlockNumber are the
	// ConsensusVerifier's own claims about what it actually checked,
	// carried alongside the proof's own (StateRoot, BlockNumber) so the
	// trust engine can compare claim against proof without re-deriving it.
	VerifiedStateRootMatches bool
	VerifiedBlockNumber      uint64

	// Payload carries mode-specific fields (beacon light-client sync
	// committee data, op-stack output-root preimage, Linea's proof blob)
	// opaquely; this module never interprets it.
	Payload map[string]interface{}
}

// Sources records where the packaging host obtained the underlying
// transaction descriptor, for audit purposes only.
type Sources struct {
	IndexerURL string
}

// Package is the aggregate evidence package: transaction, confirmations,
// and whichever artifacts have been attached so far. Packages are
// immutable once created; every enrichment function below returns a new
// Package value rather than mutating its receiver.
type Package struct {
	PackageID   uuid.UUID
	Version     Version
	SafeAddress common.Address
	SafeTxHash  common.Hash
	ChainID     uint64
	Transaction hashing.Transaction

	Confirmations []Confirmation
	Sources       Sources
	PackagedAt    time.Time

	OnchainPolicyProof *policyproof.OnchainPolicyProof
	ConsensusProof     *ConsensusProof
	Simulation         *simulation.Simulation
	Witness            *witness.SimulationWitness

	// WitnessGenerationError is set (non-fatal) when EnrichWithSimulation
	// successfully fetched a Simulation but witness construction failed;
	// the message is URL-redacted before being stored here.
	WitnessGenerationError string

	// ExportContract is stamped by pkg/exportcontract's Finalize; nil
	// until finalization runs.
	ExportContract *ExportContract
}

// ExportMode classifies an ExportContract: fully-verifiable means every
// artifact a verifier would need to independently trust the package is
// present; partial means the package still carries whatever evidence was
// gathered, just not enough to reach full trust.
type ExportMode string

const (
	ModeFullyVerifiable ExportMode = "fully-verifiable"
	ModePartial         ExportMode = "partial"
)

// ExportStatus mirrors ExportMode at the artifact-attempt level, per
// spec.md §3's ExportContract.status field.
type ExportStatus string

const (
	StatusComplete ExportStatus = "complete"
	StatusPartial  ExportStatus = "partial"
)

// ExportReason is a closed-enum code explaining why an ExportContract did
// not reach ModeFullyVerifiable; see pkg/exportcontract for the full set
// and their insertion-stable ordering rules.
type ExportReason string

// ArtifactPresence records which artifacts an ExportContract was stamped
// with, independent of the Package's own pointers (useful once the package
// is serialized and re-read by a verifier that only has the JSON view).
type ArtifactPresence struct {
	ConsensusProof     bool
	OnchainPolicyProof bool
	Simulation         bool
}

// ExportContract is the result of pkg/exportcontract's Finalize: a
// deterministic classification of how trustworthy a Package's artifacts
// are, plus the closed-enum reasons for any shortfall.
type ExportContract struct {
	Mode              ExportMode
	Status            ExportStatus
	IsFullyVerifiable bool
	Reasons           []ExportReason
	Artifacts         ArtifactPresence
	Diagnostics       []string
}

// ChainIDBig is a convenience accessor for code that wants *big.Int rather
// than the package's native uint64 ChainID.
func (p Package) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(p.ChainID)
}
