package interpret

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/decode"
	"github.com/safelens/evidence/pkg/evmsafe/hashing"
)

// Addresses fixed by the CoW Protocol / Composable-CoW deployment.
var (
	composableCoWAddress = common.HexToAddress("0xfdaFc9d1902f4e0b84f65F49f244b32b31013b74")
	twapHandlerAddress   = common.HexToAddress("0x6cF1e9cA41f7611dEf408122793c358a3d11E5a5")
)

// createWithContextSelector is keccak256("createWithContext((address,bytes32,bytes),address,bytes,bool)")[:4].
var createWithContextSelector = [4]byte{0x0d, 0x0d, 0x98, 0x00}

// CowSwapTWAPDetails is the typed payload for a detected TWAP order,
// decoded from the handler's ten tightly packed ABI words.
type CowSwapTWAPDetails struct {
	SellToken        TokenRef
	BuyToken         TokenRef
	Receiver         Address
	PartSellAmount   *big.Int
	MinPartLimit     *big.Int
	StartTime        uint64
	NumberOfParts    uint64
	TimeBetweenParts uint64
	Span             uint64
	AppData          [32]byte
	TotalDuration    uint64
	BundledApproval  *ERC20TransferDetails
}

// CowSwapTWAPDetector matches a Safe multiSend (delegatecall) bundling a
// createWithContext call to the Composable-CoW address with the TWAP
// handler, decoding the packed TWAP order parameters.
type CowSwapTWAPDetector struct {
	Lookup decode.MetadataLookup
}

func (CowSwapTWAPDetector) ID() string { return IDCowSwapTWAP }

func (d CowSwapTWAPDetector) TryInterpret(call DecodedCall) (*Interpretation, error) {
	if call.Operation != hashing.OperationDelegateCall || call.Method != "multiSend" {
		return nil, nil
	}

	inner, ok := decodeMultiSend(call.RawData)
	if !ok {
		return nil, nil
	}

	var order *CowSwapTWAPDetails
	var approval *ERC20TransferDetails
	erc20 := ERC20Detector{Lookup: d.Lookup}

	for _, ic := range inner {
		if ic.To == composableCoWAddress {
			if o, ok := decodeCreateWithContextTWAP(ic.Data, d.Lookup); ok {
				order = o
			}
			continue
		}
		// A bundled ERC-20 approval (the TWAP order's sell token approved
		// to the Composable-CoW vault relayer) precedes or follows the
		// createWithContext call in the same bundle.
		if len(ic.Data) >= 4 {
			if approveCall, ok := decodeApproveCall(ic.To, ic.Data); ok {
				if interp, _ := erc20.TryInterpret(approveCall); interp != nil {
					if det, ok := interp.Details.(ERC20TransferDetails); ok {
						approval = &det
					}
				}
			}
		}
	}

	if order == nil {
		return nil, nil
	}
	order.BundledApproval = approval

	return &Interpretation{
		ID:       IDCowSwapTWAP,
		Severity: SeverityInfo,
		Summary:  "Create a CoW Protocol TWAP order",
		Details:  *order,
	}, nil
}

// decodeApproveCall recognizes a plain ERC-20 approve(address,uint256) call
// by selector and re-expresses it as a DecodedCall so the ERC-20 detector
// can be reused rather than duplicated.
func decodeApproveCall(to common.Address, data []byte) (DecodedCall, bool) {
	if len(data) != 4+32+32 {
		return DecodedCall{}, false
	}
	var sel [4]byte
	copy(sel[:], data[0:4])
	if sel != approveSelector {
		return DecodedCall{}, false
	}
	spender, ok := addressAt(data, 4)
	if !ok {
		return DecodedCall{}, false
	}
	amount, ok := bigAt(data, 4+32)
	if !ok {
		return DecodedCall{}, false
	}
	return DecodedCall{
		To:        to,
		Operation: hashing.OperationCall,
		Method:    "approve",
		Parameters: []Param{
			{Name: "spender", Type: "address", Value: Value{Kind: KindAddress, Address: spender}},
			{Name: "value", Type: "uint256", Value: Value{Kind: KindUint, Uint: amount}},
		},
	}, true
}

// approveSelector is keccak256("approve(address,uint256)")[:4].
var approveSelector = [4]byte{0x09, 0x5e, 0xa7, 0xb3}

// decodeCreateWithContextTWAP decodes a createWithContext call's
// ConditionalOrderParams tuple, checks its handler against the fixed TWAP
// handler address, and unpacks the ten tightly packed words of the TWAP
// order from its staticInput.
func decodeCreateWithContextTWAP(data []byte, lookup decode.MetadataLookup) (*CowSwapTWAPDetails, bool) {
	if len(data) < 4 {
		return nil, false
	}
	var sel [4]byte
	copy(sel[:], data[0:4])
	if sel != createWithContextSelector {
		return nil, false
	}
	body := data[4:]

	tupleOffset, ok := uint64At(body, 0)
	if !ok {
		return nil, false
	}
	handler, ok := addressAt(body, tupleOffset)
	if !ok {
		return nil, false
	}
	if handler != twapHandlerAddress {
		return nil, false
	}

	staticInputRelOffset, ok := uint64At(body, tupleOffset+64)
	if !ok {
		return nil, false
	}
	staticInput, ok := bytesAt(body, tupleOffset+staticInputRelOffset)
	if !ok {
		return nil, false
	}
	if len(staticInput) < 32*10 {
		return nil, false
	}

	sellTokenAddr, _ := addressAt(staticInput, 0)
	buyTokenAddr, _ := addressAt(staticInput, 32)
	receiver, _ := addressAt(staticInput, 64)
	partSellAmount, _ := bigAt(staticInput, 96)
	minPartLimit, _ := bigAt(staticInput, 128)
	t0, _ := uint64At(staticInput, 160)
	n, _ := uint64At(staticInput, 192)
	t, _ := uint64At(staticInput, 224)
	span, _ := uint64At(staticInput, 256)
	appDataWord, _ := word32At(staticInput, 288)

	var appData [32]byte
	copy(appData[:], appDataWord)

	details := &CowSwapTWAPDetails{
		SellToken:        tokenRefFor(sellTokenAddr, lookup),
		BuyToken:         tokenRefFor(buyTokenAddr, lookup),
		Receiver:         addrTo20(receiver),
		PartSellAmount:   partSellAmount,
		MinPartLimit:     minPartLimit,
		StartTime:        t0,
		NumberOfParts:    n,
		TimeBetweenParts: t,
		Span:             span,
		AppData:          appData,
		TotalDuration:    n * t,
	}
	return details, true
}

func tokenRefFor(addr common.Address, lookup decode.MetadataLookup) TokenRef {
	ref := TokenRef{Address: addrTo20(addr)}
	if lookup != nil {
		if meta, ok := lookup(addr); ok {
			ref.Symbol = meta.Symbol
		}
	}
	return ref
}
