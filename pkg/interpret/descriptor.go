package interpret

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DescriptorField is one labeled field the generic interpreter renders
// from a matched call's parameters.
type DescriptorField struct {
	Label    string
	ParamKey string // alias list, "|"-joined, matching ByName's aliases
}

// Descriptor is a bundled, per-contract schema (ERC-7730-style) telling
// the generic interpreter how to render a decoded call when no hand-coded
// detector claimed it.
type Descriptor struct {
	ChainID uint64
	Address common.Address
	Method  string
	Fields  []DescriptorField
}

type descriptorKey struct {
	chainID uint64
	address common.Address
	method  string
}

// DescriptorIndex is the process-wide, immutable table the generic
// interpreter consults, keyed by (chainId, address, method).
type DescriptorIndex struct {
	byKey map[descriptorKey]Descriptor
}

// NewDescriptorIndex builds an index from a flat descriptor list.
func NewDescriptorIndex(descriptors []Descriptor) *DescriptorIndex {
	idx := &DescriptorIndex{byKey: make(map[descriptorKey]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		idx.byKey[descriptorKey{d.ChainID, d.Address, d.Method}] = d
	}
	return idx
}

func (idx *DescriptorIndex) lookup(chainID uint64, addr common.Address, method string) (Descriptor, bool) {
	if idx == nil {
		return Descriptor{}, false
	}
	d, ok := idx.byKey[descriptorKey{chainID, addr, method}]
	return d, ok
}

// globalIndex is the process-wide default, set by SetGlobalIndex at
// startup. A GenericDetector built without an index of its own reads this
// pointer on every call, so it always sees the table last installed.
var globalIndex *DescriptorIndex

// SetGlobalIndex installs the process-wide descriptor table. Detectors
// built with a nil index pick up the new table on their next call;
// detectors built with an explicit index keep using that index.
func SetGlobalIndex(idx *DescriptorIndex) {
	globalIndex = idx
}

// GetGlobalIndex returns the current process-wide descriptor table.
func GetGlobalIndex() *DescriptorIndex {
	return globalIndex
}

// GenericFieldValue is one rendered, labeled field in a generic
// interpretation.
type GenericFieldValue struct {
	Label string
	Value Value
}

// GenericDetails is the typed payload for IDERC7730.
type GenericDetails struct {
	ContractMethod string
	Fields         []GenericFieldValue
}

// GenericDetector is the descriptor-driven fallback: it never wins over a
// hand-coded detector (registry order enforces that), and only fires when
// a descriptor names the exact (chainId, address, method).
type GenericDetector struct {
	// index is captured at construction and used as is; when it is nil,
	// TryInterpret consults the current global index instead.
	index *DescriptorIndex
}

// NewGenericDetector builds a detector against a specific index (pass nil
// to always track whatever SetGlobalIndex last installed).
func NewGenericDetector(idx *DescriptorIndex) GenericDetector {
	return GenericDetector{index: idx}
}

func (GenericDetector) ID() string { return IDERC7730 }

func (d GenericDetector) TryInterpret(call DecodedCall) (*Interpretation, error) {
	idx := d.index
	if idx == nil {
		idx = globalIndex
	}
	desc, ok := idx.lookup(call.ChainID, call.To, call.Method)
	if !ok {
		return nil, nil
	}

	var fields []GenericFieldValue
	for _, f := range desc.Fields {
		p, ok := ByName(call.Parameters, splitAliases(f.ParamKey)...)
		if !ok {
			continue
		}
		fields = append(fields, GenericFieldValue{Label: f.Label, Value: p.Value})
	}

	return &Interpretation{
		ID:       IDERC7730,
		Severity: SeverityInfo,
		Summary:  fmt.Sprintf("%s on %s", call.Method, desc.Address.Hex()),
		Details:  GenericDetails{ContractMethod: call.Method, Fields: fields},
	}, nil
}

func splitAliases(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
