package decode

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// CallFrame mirrors the relevant fields of a debug_traceCall callTracer
// frame: type, participants, value, an optional revert marker, and nested
// sub-calls.
type CallFrame struct {
	Type  string
	From  common.Address
	To    common.Address
	Value *big.Int
	Error string
	Calls []CallFrame
}

// NativeTransfer is one native-value movement extracted from a call trace.
type NativeTransfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

var valueBearingFrame = map[string]bool{
	"CALL":    true,
	"CREATE":  true,
	"CREATE2": true,
}

// ExtractNativeTransfers walks a call trace and returns every CALL/CREATE/
// CREATE2 frame carrying a non-zero value, skipping STATICCALL/DELEGATECALL
// frames (which cannot carry value) and any reverted frame.
func ExtractNativeTransfers(root CallFrame) []NativeTransfer {
	var out []NativeTransfer
	walkFrame(root, &out)
	return out
}

func walkFrame(f CallFrame, out *[]NativeTransfer) {
	if f.Error == "" && valueBearingFrame[strings.ToUpper(f.Type)] && f.Value != nil && f.Value.Sign() > 0 {
		*out = append(*out, NativeTransfer{From: f.From, To: f.To, Value: f.Value})
	}
	for _, child := range f.Calls {
		walkFrame(child, out)
	}
}
