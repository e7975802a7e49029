package interpret

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// descriptorFile is the on-disk JSON shape a descriptor index file carries:
// a flat list of per-contract method descriptors.
type descriptorFile struct {
	Descriptors []struct {
		ChainID uint64 `json:"chainId"`
		Address string `json:"address"`
		Method  string `json:"method"`
		Fields  []struct {
			Label  string `json:"label"`
			Params string `json:"params"` // "|"-joined alias list, matching ByName
		} `json:"fields"`
	} `json:"descriptors"`
}

// LoadDescriptorFile reads a JSON descriptor table from path and builds a
// DescriptorIndex from it. Callers typically install the result with
// SetGlobalIndex at startup.
func LoadDescriptorFile(path string) (*DescriptorIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("interpret: read descriptor file: %w", err)
	}

	var file descriptorFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("interpret: parse descriptor file %s: %w", path, err)
	}

	descriptors := make([]Descriptor, 0, len(file.Descriptors))
	for i, d := range file.Descriptors {
		if !common.IsHexAddress(d.Address) {
			return nil, fmt.Errorf("interpret: descriptor file %s: descriptors[%d].address: %q is not a hex address", path, i, d.Address)
		}
		if d.Method == "" {
			return nil, fmt.Errorf("interpret: descriptor file %s: descriptors[%d].method is empty", path, i)
		}
		fields := make([]DescriptorField, len(d.Fields))
		for j, f := range d.Fields {
			fields[j] = DescriptorField{Label: f.Label, ParamKey: f.Params}
		}
		descriptors = append(descriptors, Descriptor{
			ChainID: d.ChainID,
			Address: common.HexToAddress(d.Address),
			Method:  d.Method,
			Fields:  fields,
		})
	}
	return NewDescriptorIndex(descriptors), nil
}
