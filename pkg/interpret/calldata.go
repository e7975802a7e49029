package interpret

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/evmsafe/hashing"
)

// Selectors for the fixed set of methods the bundled detectors recognize,
// each keccak256(signature)[:4] the same way every other selector constant
// in this package is derived (see approveSelector, createWithContextSelector).
var (
	transferSelector              = [4]byte{0xa9, 0x05, 0x9c, 0xbb}
	transferFromSelector          = [4]byte{0x23, 0xb8, 0x72, 0xdd}
	changeThresholdSelector       = [4]byte{0x69, 0x4e, 0x80, 0xc3}
	addOwnerWithThresholdSelector = [4]byte{0x0d, 0x58, 0x2f, 0x13}
	removeOwnerSelector           = [4]byte{0xf8, 0xdc, 0x5d, 0xd9}
	swapOwnerSelector             = [4]byte{0xe3, 0x18, 0xb5, 0x2b}
	multiSendSelector             = [4]byte{0x8d, 0x80, 0xff, 0x0a}
	setPreSignatureSelector       = [4]byte{0xec, 0x6c, 0xb1, 0x3f}
)

// DecodeRawCall turns a Safe transaction's raw (to, operation, value, data)
// fields into the DecodedCall boundary type the interpreter registry
// dispatches on (§4.K), recognizing exactly the fixed-ABI methods the
// bundled detectors match against. It is the verifier-side counterpart to
// decodeApproveCall/decodeMultiSend: same hand-rolled offset decoding, just
// entered from a 4-byte selector instead of from inside an already-matched
// call. An unrecognized selector (or malformed argument encoding) returns a
// DecodedCall with an empty Method and no Parameters — still valid input
// for the native-transfer case, just one no hand-coded method detector
// will claim.
func DecodeRawCall(to common.Address, operation hashing.Operation, data []byte, value *big.Int, chainID uint64, from, safeAddress common.Address) DecodedCall {
	call := DecodedCall{
		To:          to,
		Operation:   operation,
		RawData:     data,
		ChainID:     chainID,
		Value:       value,
		From:        from,
		SafeAddress: safeAddress,
	}
	if len(data) < 4 {
		return call
	}
	var sel [4]byte
	copy(sel[:], data[0:4])
	args := data[4:]

	switch sel {
	case transferSelector:
		dst, okA := addressAt(args, 0)
		amt, okV := bigAt(args, 32)
		if okA && okV {
			call.Method = "transfer"
			call.Parameters = []Param{
				{Name: "to", Type: "address", Value: Value{Kind: KindAddress, Address: dst}},
				{Name: "value", Type: "uint256", Value: Value{Kind: KindUint, Uint: amt}},
			}
		}

	case approveSelector:
		spender, okA := addressAt(args, 0)
		amt, okV := bigAt(args, 32)
		if okA && okV {
			call.Method = "approve"
			call.Parameters = []Param{
				{Name: "spender", Type: "address", Value: Value{Kind: KindAddress, Address: spender}},
				{Name: "value", Type: "uint256", Value: Value{Kind: KindUint, Uint: amt}},
			}
		}

	case transferFromSelector:
		src, okF := addressAt(args, 0)
		dst, okT := addressAt(args, 32)
		amt, okV := bigAt(args, 64)
		if okF && okT && okV {
			call.Method = "transferFrom"
			call.Parameters = []Param{
				{Name: "from", Type: "address", Value: Value{Kind: KindAddress, Address: src}},
				{Name: "to", Type: "address", Value: Value{Kind: KindAddress, Address: dst}},
				{Name: "value", Type: "uint256", Value: Value{Kind: KindUint, Uint: amt}},
			}
		}

	case changeThresholdSelector:
		threshold, ok := bigAt(args, 0)
		if ok {
			call.Method = "changeThreshold"
			call.Parameters = []Param{
				{Name: "_threshold", Type: "uint256", Value: Value{Kind: KindUint, Uint: threshold}},
			}
		}

	case addOwnerWithThresholdSelector:
		owner, okO := addressAt(args, 0)
		threshold, okT := bigAt(args, 32)
		if okO && okT {
			call.Method = "addOwnerWithThreshold"
			call.Parameters = []Param{
				{Name: "owner", Type: "address", Value: Value{Kind: KindAddress, Address: owner}},
				{Name: "_threshold", Type: "uint256", Value: Value{Kind: KindUint, Uint: threshold}},
			}
		}

	case removeOwnerSelector:
		prevOwner, okP := addressAt(args, 0)
		owner, okO := addressAt(args, 32)
		threshold, okT := bigAt(args, 64)
		if okP && okO && okT {
			call.Method = "removeOwner"
			call.Parameters = []Param{
				{Name: "prevOwner", Type: "address", Value: Value{Kind: KindAddress, Address: prevOwner}},
				{Name: "owner", Type: "address", Value: Value{Kind: KindAddress, Address: owner}},
				{Name: "_threshold", Type: "uint256", Value: Value{Kind: KindUint, Uint: threshold}},
			}
		}

	case swapOwnerSelector:
		prev, okP := addressAt(args, 0)
		old, okOld := addressAt(args, 32)
		nw, okNew := addressAt(args, 64)
		if okP && okOld && okNew {
			call.Method = "swapOwner"
			call.Parameters = []Param{
				{Name: "prevOwner", Type: "address", Value: Value{Kind: KindAddress, Address: prev}},
				{Name: "oldOwner", Type: "address", Value: Value{Kind: KindAddress, Address: old}},
				{Name: "newOwner", Type: "address", Value: Value{Kind: KindAddress, Address: nw}},
			}
		}

	case multiSendSelector:
		offset, okOff := uint64At(args, 0)
		if okOff {
			if packed, ok := bytesAt(args, offset); ok {
				call.Method = "multiSend"
				// CowSwapTWAPDetector reads RawData as the already
				// unwrapped packed transactions, not the outer ABI call.
				call.RawData = packed
				call.Parameters = []Param{
					{Name: "transactions", Type: "bytes", Value: Value{Kind: KindBytes, Bytes: packed}},
				}
			}
		}

	case setPreSignatureSelector:
		offset, okOff := uint64At(args, 0)
		signedWord, okSigned := word32At(args, 32)
		if okOff && okSigned {
			if orderUID, ok := bytesAt(args, offset); ok {
				call.Method = "setPreSignature"
				call.Parameters = []Param{
					{Name: "orderUid", Type: "bytes", Value: Value{Kind: KindBytes, Bytes: orderUID}},
					{Name: "signed", Type: "bool", Value: Value{Kind: KindBool, Bool: signedWord[31] != 0}},
				}
			}
		}
	}

	return call
}
