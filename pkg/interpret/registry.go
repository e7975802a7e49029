package interpret

// Registry holds an ordered list of detectors; the first one to return a
// non-nil Interpretation wins, matching spec.md §4.K's "first non-null
// wins" rule. Order matters: hand-coded detectors are registered ahead of
// the generic descriptor fallback (testable property 9).
type Registry struct {
	detectors []Interpreter
}

// NewRegistry builds the default registry: ERC-20/native transfer, CowSwap
// TWAP, CowSwap setPreSignature, Safe policy change, then the generic
// descriptor-driven fallback, in that precedence order.
func NewRegistry(descriptors *DescriptorIndex) *Registry {
	return &Registry{
		detectors: []Interpreter{
			ERC20Detector{},
			CowSwapTWAPDetector{},
			CowSwapPresignDetector{},
			SafePolicyDetector{},
			NewGenericDetector(descriptors),
		},
	}
}

// Interpret runs call through every registered detector in order, skipping
// any whose ID appears in disabledIDs, and returns the first match.
func (r *Registry) Interpret(call DecodedCall, disabledIDs map[string]bool) (*Interpretation, error) {
	for _, d := range r.detectors {
		if disabledIDs[d.ID()] {
			continue
		}
		interp, err := d.TryInterpret(call)
		if err != nil {
			return nil, err
		}
		if interp != nil {
			return interp, nil
		}
	}
	return nil, nil
}
