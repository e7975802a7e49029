package storage

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestFixedSlots(t *testing.T) {
	if SingletonSlot.Big().Int64() != 0 {
		t.Fatalf("singleton slot = %v, want 0", SingletonSlot)
	}
	if OwnerCountSlot.Big().Int64() != 3 {
		t.Fatalf("ownerCount slot = %v, want 3", OwnerCountSlot)
	}
	if ThresholdSlot.Big().Int64() != 4 {
		t.Fatalf("threshold slot = %v, want 4", ThresholdSlot)
	}
	if NonceSlot.Big().Int64() != 5 {
		t.Fatalf("nonce slot = %v, want 5", NonceSlot)
	}
}

func TestGuardAndFallbackSlotsAreDistinctAndStable(t *testing.T) {
	if GuardStorageSlot == FallbackHandlerStorageSlot {
		t.Fatal("guard and fallback handler slots must differ")
	}
	again := func() common.Hash { return GuardStorageSlot }()
	if again != GuardStorageSlot {
		t.Fatal("guard slot is not stable across calls")
	}
}

func TestOwnerSlotDistinctFromModuleSlot(t *testing.T) {
	addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	if OwnerSlot(addr) == ModuleSlot(addr) {
		t.Fatal("owner and module slots must differ for the same address (different base slots)")
	}
}

func TestMappingSlotMatchesOwnerSlot(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	if MappingSlot(addr, 2) != OwnerSlot(addr) {
		t.Fatal("MappingSlot(addr, 2) must equal OwnerSlot(addr)")
	}
	if MappingSlot(addr, 1) != ModuleSlot(addr) {
		t.Fatal("MappingSlot(addr, 1) must equal ModuleSlot(addr)")
	}
}

func TestNestedMappingSlotDeterministic(t *testing.T) {
	owner := common.HexToAddress("0x2222222222222222222222222222222222222222")
	spender := common.HexToAddress("0x3333333333333333333333333333333333333333")

	a := NestedMappingSlot(owner, spender, 1)
	b := NestedMappingSlot(owner, spender, 1)
	if a != b {
		t.Fatal("NestedMappingSlot must be deterministic")
	}
	if NestedMappingSlot(spender, owner, 1) == a {
		t.Fatal("NestedMappingSlot must not be symmetric in outer/inner")
	}
}

func TestSentinelIsAddressOne(t *testing.T) {
	want := common.HexToAddress("0x0000000000000000000000000000000000000001")
	if Sentinel != want {
		t.Fatalf("Sentinel = %v, want %v", Sentinel, want)
	}
}
