package interpret

import (
	"math/big"

	"github.com/safelens/evidence/pkg/decode"
	"github.com/safelens/evidence/pkg/evmsafe/hashing"
)

// ERC20TransferDetails is the typed payload for IDERC20Transfer.
type ERC20TransferDetails struct {
	Kind                string // "transfer" | "approve" | "transferFrom" | "native-transfer"
	Token               TokenRef
	From                *Address
	To                  Address
	AmountRaw           *big.Int
	AmountFormatted     string
	IsUnlimitedApproval bool
}

// TokenRef is the minimal token identity a detail payload carries; symbol
// is left empty when no metadata lookup was supplied.
type TokenRef struct {
	Address Address
	Symbol  string
}

// Address is a re-export-free alias kept local to this package's details
// types so callers don't need to import go-ethereum's common package just
// to read a detail struct's fields in the common case of printing it.
type Address = [20]byte

// maxUint256 mirrors decode.FormatAmount's unlimited-approval sentinel.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ERC20Detector matches transfer/approve/transferFrom calls (with their
// parameter-name aliases) and plain native-value transfers (empty calldata
// with nonzero value), operation=0 only.
type ERC20Detector struct {
	// Lookup optionally resolves a token's symbol for the summary; nil
	// leaves the symbol empty. Amounts are always formatted with 18
	// decimals; the decimals a lookup reports are not used.
	Lookup decode.MetadataLookup
}

func (ERC20Detector) ID() string { return IDERC20Transfer }

func (d ERC20Detector) TryInterpret(call DecodedCall) (*Interpretation, error) {
	if call.Operation != hashing.OperationCall {
		return nil, nil
	}

	if len(call.RawData) == 0 && call.Value != nil && call.Value.Sign() > 0 {
		return d.nativeTransfer(call), nil
	}

	switch call.Method {
	case "transfer":
		return d.transfer(call)
	case "approve":
		return d.approve(call)
	case "transferFrom":
		return d.transferFrom(call)
	}
	return nil, nil
}

func (d ERC20Detector) tokenRef(addr [20]byte) TokenRef {
	ref := TokenRef{Address: addr}
	if d.Lookup != nil {
		if meta, ok := d.Lookup(addrFrom20(addr)); ok {
			ref.Symbol = meta.Symbol
		}
	}
	return ref
}

func (d ERC20Detector) nativeTransfer(call DecodedCall) *Interpretation {
	to := addrTo20(call.To)
	details := ERC20TransferDetails{
		Kind:            "native-transfer",
		To:              to,
		AmountRaw:       call.Value,
		AmountFormatted: decode.FormatAmount(call.Value, 18),
	}
	return &Interpretation{
		ID:       IDERC20Transfer,
		Severity: SeverityInfo,
		Summary:  "Send native value",
		Details:  details,
	}
}

func (d ERC20Detector) transfer(call DecodedCall) (*Interpretation, error) {
	toParam, ok := ByName(call.Parameters, "to", "_to", "dst", "recipient")
	if !ok {
		return nil, nil
	}
	valParam, ok := ByName(call.Parameters, "value", "_value", "amount", "wad")
	if !ok {
		return nil, nil
	}
	tok := d.tokenRef(addrTo20(call.To))
	details := ERC20TransferDetails{
		Kind:            "transfer",
		Token:           tok,
		To:              toParam.Value.Address,
		AmountRaw:       valParam.Value.Uint,
		AmountFormatted: decode.FormatAmount(valParam.Value.Uint, 18),
	}
	return &Interpretation{
		ID:       IDERC20Transfer,
		Severity: SeverityInfo,
		Summary:  "Transfer " + details.AmountFormatted + " " + tok.Symbol,
		Details:  details,
	}, nil
}

func (d ERC20Detector) approve(call DecodedCall) (*Interpretation, error) {
	spenderParam, ok := ByName(call.Parameters, "spender", "_spender", "guy")
	if !ok {
		return nil, nil
	}
	valParam, ok := ByName(call.Parameters, "value", "_value", "amount", "wad")
	if !ok {
		return nil, nil
	}
	tok := d.tokenRef(addrTo20(call.To))
	unlimited := valParam.Value.Uint != nil && valParam.Value.Uint.Cmp(maxUint256) == 0

	severity := SeverityInfo
	if unlimited {
		severity = SeverityWarning
	}
	details := ERC20TransferDetails{
		Kind:                "approve",
		Token:               tok,
		To:                  spenderParam.Value.Address,
		AmountRaw:           valParam.Value.Uint,
		AmountFormatted:     decode.FormatAmount(valParam.Value.Uint, 18),
		IsUnlimitedApproval: unlimited,
	}
	return &Interpretation{
		ID:       IDERC20Transfer,
		Severity: severity,
		Summary:  "Approve " + details.AmountFormatted + " " + tok.Symbol,
		Details:  details,
	}, nil
}

func (d ERC20Detector) transferFrom(call DecodedCall) (*Interpretation, error) {
	fromParam, ok := ByName(call.Parameters, "from", "_from", "src", "sender")
	if !ok {
		return nil, nil
	}
	toParam, ok := ByName(call.Parameters, "to", "_to", "dst", "recipient")
	if !ok {
		return nil, nil
	}
	valParam, ok := ByName(call.Parameters, "value", "_value", "amount", "wad")
	if !ok {
		return nil, nil
	}
	tok := d.tokenRef(addrTo20(call.To))
	from := Address(fromParam.Value.Address)
	details := ERC20TransferDetails{
		Kind:            "transferFrom",
		Token:           tok,
		From:            &from,
		To:              toParam.Value.Address,
		AmountRaw:       valParam.Value.Uint,
		AmountFormatted: decode.FormatAmount(valParam.Value.Uint, 18),
	}
	return &Interpretation{
		ID:       IDERC20Transfer,
		Severity: SeverityInfo,
		Summary:  "Transfer " + details.AmountFormatted + " " + tok.Symbol + " from another account",
		Details:  details,
	}, nil
}
