package interpret

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func writeDescriptorFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "descriptors.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write descriptor file: %v", err)
	}
	return path
}

func TestLoadDescriptorFile(t *testing.T) {
	path := writeDescriptorFile(t, `{
		"descriptors": [
			{
				"chainId": 1,
				"address": "0x7f268357a8c2552623316e2562d90e642bb538e5",
				"method": "atomicMatch_",
				"fields": [
					{"label": "Maker", "params": "maker|_maker"},
					{"label": "Price", "params": "price"}
				]
			}
		]
	}`)

	idx, err := LoadDescriptorFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	desc, ok := idx.lookup(1, common.HexToAddress("0x7f268357a8c2552623316e2562d90e642bb538e5"), "atomicMatch_")
	if !ok {
		t.Fatal("expected the loaded descriptor to be indexed by (chainId, address, method)")
	}
	if len(desc.Fields) != 2 || desc.Fields[0].Label != "Maker" || desc.Fields[0].ParamKey != "maker|_maker" {
		t.Errorf("descriptor fields not loaded as declared: %+v", desc.Fields)
	}

	if _, ok := idx.lookup(5, common.HexToAddress("0x7f268357a8c2552623316e2562d90e642bb538e5"), "atomicMatch_"); ok {
		t.Error("descriptor must not match a different chain id")
	}
}

func TestLoadDescriptorFileRejectsBadAddress(t *testing.T) {
	path := writeDescriptorFile(t, `{"descriptors": [{"chainId": 1, "address": "not-an-address", "method": "m"}]}`)
	if _, err := LoadDescriptorFile(path); err == nil {
		t.Fatal("expected a malformed address to be rejected")
	}
}

func TestLoadDescriptorFileRejectsMissingMethod(t *testing.T) {
	path := writeDescriptorFile(t, `{"descriptors": [{"chainId": 1, "address": "0x7f268357a8c2552623316e2562d90e642bb538e5", "method": ""}]}`)
	if _, err := LoadDescriptorFile(path); err == nil {
		t.Fatal("expected an empty method to be rejected")
	}
}
