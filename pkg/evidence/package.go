package evidence

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/safelens/evidence/internal/redact"
	"github.com/safelens/evidence/pkg/chainreg"
	"github.com/safelens/evidence/pkg/evmsafe/hashing"
	"github.com/safelens/evidence/pkg/policyproof"
	"github.com/safelens/evidence/pkg/rpc"
	"github.com/safelens/evidence/pkg/simulation"
	"github.com/safelens/evidence/pkg/witness"
)

var logger = log.New(os.Stderr, "[evidence] ", log.LstdFlags)

// IndexerDTO is the typed descriptor a remote multisig indexer hands the
// packaging host; fetching it is out of this module's scope (spec.md §1
// Non-goals), it is consumed here as an opaque input.
type IndexerDTO struct {
	SafeAddress   common.Address
	SafeTxHash    common.Hash
	ChainID       uint64
	Transaction   hashing.Transaction
	Confirmations []Confirmation
	SourceURL     string
}

// CreatePackage builds the v1.0 skeleton package from an indexer DTO,
// asserting the DTO's own safeTxHash invariant before trusting it (§3
// Transaction invariant): the EIP-712 hash of the DTO's transaction fields
// under the Safe's domain must equal the claimed safeTxHash.
func CreatePackage(dto IndexerDTO) (Package, error) {
	domain := hashing.Domain{ChainID: new(big.Int).SetUint64(dto.ChainID), VerifyingContract: dto.SafeAddress}
	computed := hashing.SafeTxHash(domain, dto.Transaction)
	if computed != dto.SafeTxHash {
		return Package{}, fmt.Errorf("evidence: safeTxHash mismatch: dto claims %s, computed %s", dto.SafeTxHash.Hex(), computed.Hex())
	}

	confirmations := append([]Confirmation(nil), dto.Confirmations...)
	sortConfirmationsByOwner(confirmations)

	return Package{
		PackageID:     uuid.New(),
		Version:       Version10,
		SafeAddress:   dto.SafeAddress,
		SafeTxHash:    dto.SafeTxHash,
		ChainID:       dto.ChainID,
		Transaction:   dto.Transaction,
		Confirmations: confirmations,
		Sources:       Sources{IndexerURL: dto.SourceURL},
		PackagedAt:    time.Now().UTC(),
	}, nil
}

func sortConfirmationsByOwner(cs []Confirmation) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && strings.Compare(strings.ToLower(cs[j].Owner.Hex()), strings.ToLower(cs[j-1].Owner.Hex())) < 0; j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

// PolicyProofOptions configures EnrichWithOnchainProof.
type PolicyProofOptions struct {
	Block rpc.BlockRef
}

// EnrichWithOnchainProof fetches the Safe's on-chain governance state and
// its storage proof, pinning to any already-present ConsensusProof's block
// (so the two artifacts describe the same state), and asserts alignment
// against it afterward. Returns a new Package of version >= 1.1.
func EnrichWithOnchainProof(ctx context.Context, client rpc.Client, pkg Package, opts PolicyProofOptions) (Package, error) {
	if _, ok := chainreg.ByChainID(pkg.ChainID); !ok {
		return pkg, fmt.Errorf("%w: chain id %d", ErrUnsupportedChain, pkg.ChainID)
	}

	ppOpts := policyproof.Options{Block: opts.Block}
	if ppOpts.Block == (rpc.BlockRef{}) && pkg.ConsensusProof != nil {
		ppOpts.Block = rpc.AtNumber(pkg.ConsensusProof.BlockNumber)
	}

	proof, err := policyproof.Fetch(ctx, client, pkg.SafeAddress, pkg.ChainID, ppOpts)
	if err != nil {
		return pkg, fmt.Errorf("evidence: enrich with onchain proof: %w", err)
	}

	out := pkg
	out.OnchainPolicyProof = proof
	out.Version = bumpVersion(out.Version, Version11)

	if out.ConsensusProof != nil {
		if err := assertProofAlignment(proof.StateRoot, proof.BlockNumber, out.ConsensusProof.StateRoot, out.ConsensusProof.BlockNumber); err != nil {
			return pkg, err
		}
	}
	return out, nil
}

// SimulationOptions configures EnrichWithSimulation.
type SimulationOptions struct {
	Block        rpc.BlockRef
	CollectTrace bool
	CollectDiffs bool
}

// EnrichWithSimulation fetches a Simulation and then attempts to build its
// SimulationWitness. Witness failure is non-fatal per §4.I: the Simulation
// is still attached, and the (URL-redacted) witness error is recorded on
// the returned Package rather than propagated. When the witness carries
// replay inputs for a CALL operation, WitnessOnly is set so local verifiers
// prefer the replay over the packaged simulation effects.
func EnrichWithSimulation(ctx context.Context, client rpc.Client, pkg Package, opts SimulationOptions) (Package, error) {
	sim, err := simulation.Fetch(ctx, client, pkg.SafeAddress, pkg.ChainID, pkg.Transaction, simulation.Options{
		Block:        opts.Block,
		CollectTrace: opts.CollectTrace,
		CollectDiffs: opts.CollectDiffs,
	})
	if err != nil {
		return pkg, fmt.Errorf("evidence: enrich with simulation: %w", err)
	}

	out := pkg
	out.Simulation = sim
	out.Version = bumpVersion(out.Version, Version11)

	req := witness.Request{
		Safe:    pkg.SafeAddress,
		ChainID: pkg.ChainID,
		Tx:      pkg.Transaction,
		Block:   rpc.AtNumber(sim.BlockNumber),
	}

	w, werr := witness.BuildWitness(ctx, client, req, sim)
	if werr != nil {
		redacted := redact.URLs(werr.Error())
		out.WitnessGenerationError = redacted
		logger.Printf("witness generation failed for safe=%s txHash=%s: %s", pkg.SafeAddress.Hex(), pkg.SafeTxHash.Hex(), redacted)
		return out, nil
	}

	if pkg.Transaction.Operation == hashing.OperationCall && w.ReplayAccounts != nil && w.ReplayBlock != nil {
		w.WitnessOnly = true
	}

	out.Witness = w
	out.Version = bumpVersion(out.Version, Version12)
	return out, nil
}

// EnrichWithConsensusProof attaches a ConsensusProof obtained from an
// external ConsensusVerifier capability (beacon light client, op-stack or
// Linea rollup proof reader — this module never runs that verification
// itself, per spec.md §1 Non-goals), asserting alignment against any
// already-present OnchainPolicyProof.
func EnrichWithConsensusProof(pkg Package, proof ConsensusProof) (Package, error) {
	out := pkg
	out.ConsensusProof = &proof
	out.Version = bumpVersion(out.Version, Version12)

	if out.OnchainPolicyProof != nil {
		if err := assertProofAlignment(out.OnchainPolicyProof.StateRoot, out.OnchainPolicyProof.BlockNumber, proof.StateRoot, proof.BlockNumber); err != nil {
			return pkg, err
		}
	}
	return out, nil
}

// assertProofAlignment is the fail-fast check at the heart of the
// EvidencePackage alignment invariant (§3): two artifacts that both claim
// to describe the same chain state must agree, case-insensitively on the
// root, exactly on the block number, or enrichment refuses to proceed.
func assertProofAlignment(onchainRoot common.Hash, onchainBlock uint64, consensusRoot common.Hash, consensusBlock uint64) error {
	rootMatches := strings.EqualFold(onchainRoot.Hex(), consensusRoot.Hex())
	blockMatches := onchainBlock == consensusBlock
	if rootMatches && blockMatches {
		return nil
	}
	return &AlignmentError{
		Code:                 AlignmentMismatchCode,
		OnchainRoot:          onchainRoot.Hex(),
		OnchainBlockNumber:   onchainBlock,
		ConsensusRoot:        consensusRoot.Hex(),
		ConsensusBlockNumber: consensusBlock,
	}
}

func bumpVersion(current, candidate Version) Version {
	if versionRank(candidate) > versionRank(current) {
		return candidate
	}
	return current
}

func versionRank(v Version) int {
	switch v {
	case Version10:
		return 0
	case Version11:
		return 1
	case Version12:
		return 2
	default:
		return -1
	}
}
