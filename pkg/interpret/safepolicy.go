package interpret

import (
	"fmt"

	"github.com/safelens/evidence/pkg/evmsafe/hashing"
)

// SafePolicyDetails is the typed payload for a governance-changing call to
// the Safe itself.
type SafePolicyDetails struct {
	Method       string
	NewThreshold *uint64
	NewOwner     *Address
	OldOwner     *Address
	PrevOwner    *Address
	Warnings     []string
}

// SafePolicyDetector matches calls the Safe makes to itself that change its
// own governance state: threshold, owner set.
type SafePolicyDetector struct {
	// ClassifyContract optionally flags a new-owner address as a contract
	// (vs EOA), surfaced as a warning; nil skips the check.
	ClassifyContract func(addr Address) (isContract bool)
}

var policyMethods = map[string]bool{
	"changeThreshold":       true,
	"addOwnerWithThreshold": true,
	"removeOwner":           true,
	"swapOwner":             true,
}

func (SafePolicyDetector) ID() string { return IDSafePolicy }

func (d SafePolicyDetector) TryInterpret(call DecodedCall) (*Interpretation, error) {
	if call.Operation != hashing.OperationCall {
		return nil, nil
	}
	if call.To != call.SafeAddress {
		return nil, nil
	}
	if !policyMethods[call.Method] {
		return nil, nil
	}

	details := SafePolicyDetails{Method: call.Method}
	summary := ""

	switch call.Method {
	case "changeThreshold":
		p, ok := ByName(call.Parameters, "_threshold", "threshold")
		if !ok || p.Value.Uint == nil {
			return nil, nil
		}
		n := p.Value.Uint.Uint64()
		details.NewThreshold = &n
		summary = fmt.Sprintf("Change signing threshold to %d", n)

	case "addOwnerWithThreshold":
		ownerParam, ok := ByName(call.Parameters, "owner", "_owner")
		thresholdParam, tok := ByName(call.Parameters, "_threshold", "threshold")
		if !ok || !tok || thresholdParam.Value.Uint == nil {
			return nil, nil
		}
		owner := Address(ownerParam.Value.Address)
		n := thresholdParam.Value.Uint.Uint64()
		details.NewOwner = &owner
		details.NewThreshold = &n
		summary = fmt.Sprintf("Add owner and set threshold to %d", n)
		if d.ClassifyContract != nil && d.ClassifyContract(owner) {
			details.Warnings = append(details.Warnings, "new owner is a contract, not an externally-owned account")
		}

	case "removeOwner":
		ownerParam, ok := ByName(call.Parameters, "owner", "_owner")
		thresholdParam, tok := ByName(call.Parameters, "_threshold", "threshold")
		if !ok || !tok || thresholdParam.Value.Uint == nil {
			return nil, nil
		}
		owner := Address(ownerParam.Value.Address)
		n := thresholdParam.Value.Uint.Uint64()
		details.OldOwner = &owner
		details.NewThreshold = &n
		summary = fmt.Sprintf("Remove owner and set threshold to %d", n)

	case "swapOwner":
		prevParam, pok := ByName(call.Parameters, "prevOwner", "_prevOwner")
		oldParam, ook := ByName(call.Parameters, "oldOwner", "_oldOwner")
		newParam, nok := ByName(call.Parameters, "newOwner", "_newOwner")
		if !pok || !ook || !nok {
			return nil, nil
		}
		prev := Address(prevParam.Value.Address)
		old := Address(oldParam.Value.Address)
		nw := Address(newParam.Value.Address)
		details.PrevOwner = &prev
		details.OldOwner = &old
		details.NewOwner = &nw
		summary = "Swap an owner"
		if d.ClassifyContract != nil && d.ClassifyContract(nw) {
			details.Warnings = append(details.Warnings, "new owner is a contract, not an externally-owned account")
		}
	}

	return &Interpretation{
		ID:       IDSafePolicy,
		Severity: SeverityCritical,
		Summary:  summary,
		Details:  details,
	}, nil
}
