package interpret

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/evmsafe/hashing"
)

// settlementContract is CoW Protocol's GPv2Settlement contract address,
// the same across every chain it's deployed to (deterministic CREATE2).
var settlementContract = common.HexToAddress("0x9008D19f58AAbD9eD0D60971565AA8510560ab41")

// CowSwapPresignDetails is the typed payload for a setPreSignature call,
// decoding the 56-byte orderUid into its three packed fields.
type CowSwapPresignDetails struct {
	OrderDigest [32]byte
	Owner       Address
	ValidTo     uint32
	Signed      bool
}

// CowSwapPresignDetector matches CoW Protocol's setPreSignature(bytes
// orderUid, bool signed) call to the settlement contract.
type CowSwapPresignDetector struct{}

func (CowSwapPresignDetector) ID() string { return IDCowSwapPresign }

func (CowSwapPresignDetector) TryInterpret(call DecodedCall) (*Interpretation, error) {
	if call.Operation != hashing.OperationCall {
		return nil, nil
	}
	if call.To != settlementContract || call.Method != "setPreSignature" {
		return nil, nil
	}

	uidParam, ok := ByName(call.Parameters, "orderUid")
	if !ok || uidParam.Value.Kind != KindBytes || len(uidParam.Value.Bytes) != 56 {
		// Malformed or missing orderUid: per §7, this returns null rather
		// than a synthetic error.
		return nil, nil
	}

	var digest [32]byte
	copy(digest[:], uidParam.Value.Bytes[0:32])
	owner := [20]byte{}
	copy(owner[:], uidParam.Value.Bytes[32:52])
	validTo := binary.BigEndian.Uint32(uidParam.Value.Bytes[52:56])

	signed := true
	if signedParam, ok := ByName(call.Parameters, "signed"); ok {
		signed = signedParam.Value.Bool
	}

	return &Interpretation{
		ID:       IDCowSwapPresign,
		Severity: SeverityInfo,
		Summary:  "Pre-sign a CoW Protocol order",
		Details: CowSwapPresignDetails{
			OrderDigest: digest,
			Owner:       owner,
			ValidTo:     validTo,
			Signed:      signed,
		},
	}, nil
}
