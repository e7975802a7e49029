package evidence

import (
	"errors"
	"fmt"
)

// ErrUnsupportedChain is returned when a requested chain id isn't in the
// chain registry; enrichment never silently proceeds against an unknown
// chain.
var ErrUnsupportedChain = errors.New("evidence: unsupported chain")

// AlignmentError is the fail-fast error EnrichWithOnchainProof/
// EnrichWithConsensusProof return when a newly fetched artifact's
// (stateRoot, blockNumber) disagrees with an already-present one. It is
// never swallowed: producing an internally inconsistent package is a
// programming error in the packaging host, not a degraded-trust condition.
type AlignmentError struct {
	Code                 string
	OnchainRoot          string
	OnchainBlockNumber   uint64
	ConsensusRoot        string
	ConsensusBlockNumber uint64
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("evidence: %s: onchain(root=%s,block=%d) consensus(root=%s,block=%d)",
		e.Code, e.OnchainRoot, e.OnchainBlockNumber, e.ConsensusRoot, e.ConsensusBlockNumber)
}

const AlignmentMismatchCode = "proof-alignment-mismatch"
