// Package interpret decodes a Safe transaction's already-decoded calldata
// into a typed, tagged Interpretation a consuming UI can render without
// string-matching on human labels (§4.K).
package interpret

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/evmsafe/hashing"
)

// SolKind is the Solidity value shape a Param carries.
type SolKind string

const (
	KindAddress SolKind = "address"
	KindUint    SolKind = "uint"
	KindBytes   SolKind = "bytes"
	KindBool    SolKind = "bool"
	KindString  SolKind = "string"
	KindArray   SolKind = "array"
	KindTuple   SolKind = "tuple"
)

// Value is a tagged Solidity value; exactly the field matching Kind is set.
type Value struct {
	Kind    SolKind
	Address common.Address
	Uint    *big.Int
	Bytes   []byte
	Bool    bool
	String  string
	Array   []Value
	Tuple   map[string]Value
}

// Param is one named, typed calldata argument.
type Param struct {
	Name  string
	Type  string
	Value Value
}

// ByName returns the first parameter whose name matches any of aliases
// (case-insensitive), the small alias set detectors use to tolerate
// variant ABIs (e.g. "to"|"_to"|"dst"|"recipient").
func ByName(params []Param, aliases ...string) (Param, bool) {
	for _, want := range aliases {
		for _, p := range params {
			if equalFold(p.Name, want) {
				return p, true
			}
		}
	}
	return Param{}, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// DecodedCall is the decoded-calldata boundary type detectors dispatch on:
// a method name plus its typed parameters, with the raw bytes and call
// context available for detectors (like the CowSwap TWAP one) that need to
// look inside a bundled multiSend.
type DecodedCall struct {
	Method     string
	Parameters []Param

	To          common.Address
	Operation   hashing.Operation
	RawData     []byte
	ChainID     uint64
	Value       *big.Int
	From        common.Address
	SafeAddress common.Address
}

// Severity grades how much attention an Interpretation deserves.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Closed set of interpretation ids, per spec.md §3 Interpretation.
const (
	IDERC20Transfer  = "erc20-transfer"
	IDCowSwapTWAP    = "cowswap-twap"
	IDCowSwapPresign = "cowswap-presign"
	IDSafePolicy     = "safe-policy"
	IDERC7730        = "erc7730"
)

// Interpretation is a tagged variant keyed by ID; Details holds the
// detector-specific typed payload.
type Interpretation struct {
	ID       string
	Severity Severity
	Summary  string
	Details  interface{}
}

// Interpreter is one registered detector. TryInterpret returns nil when
// call doesn't match; it never returns an error for "no match", only for a
// genuine internal decoding failure that should surface as a diagnostic.
type Interpreter interface {
	ID() string
	TryInterpret(call DecodedCall) (*Interpretation, error)
}
