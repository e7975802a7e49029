// Package storage computes Safe contract storage slots: the fixed slots a
// Safe reserves for its owner count, threshold, nonce, guard and fallback
// handler, and the dynamic mapping slots Safe and ERC-20 contracts use for
// the owner/module linked lists and balance/allowance maps.
package storage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Sentinel is the linked-list sentinel value Safe uses to terminate the
// owners and modules mappings.
var Sentinel = common.HexToAddress("0x1")

// Fixed slots in a Safe contract's storage layout.
var (
	SingletonSlot  = common.BigToHash(big.NewInt(0))
	OwnerCountSlot = common.BigToHash(big.NewInt(3))
	ThresholdSlot  = common.BigToHash(big.NewInt(4))
	NonceSlot      = common.BigToHash(big.NewInt(5))
)

// Slots derived from a keccak256 of a fixed string literal, mirroring the
// Safe contract's GuardManager and FallbackManager modules.
var (
	GuardStorageSlot           = crypto.Keccak256Hash([]byte("guard_manager.guard.address"))
	FallbackHandlerStorageSlot = crypto.Keccak256Hash([]byte("fallback_manager.handler.address"))
)

// pad32 left-pads b to 32 bytes, matching Solidity's word encoding for a
// mapping key or a small unsigned base slot.
func pad32(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

func padUint64(base uint64) []byte {
	return pad32(new(big.Int).SetUint64(base).Bytes())
}

// OwnerSlot returns the storage slot for owners[addr] in Safe's owner
// mapping, whose base slot is 2.
func OwnerSlot(addr common.Address) common.Hash {
	return mappingSlotRaw(addr, 2)
}

// ModuleSlot returns the storage slot for modules[addr] in Safe's module
// mapping, whose base slot is 1.
func ModuleSlot(addr common.Address) common.Hash {
	return mappingSlotRaw(addr, 1)
}

func mappingSlotRaw(key common.Address, base uint64) common.Hash {
	buf := make([]byte, 0, 64)
	buf = append(buf, pad32(key.Bytes())...)
	buf = append(buf, padUint64(base)...)
	return crypto.Keccak256Hash(buf)
}

// MappingSlot computes keccak256(abiEncode(address,uint256)(key, base)), the
// standard Solidity slot for mapping(address => T) declared at slot base.
func MappingSlot(key common.Address, base uint64) common.Hash {
	return mappingSlotRaw(key, base)
}

// NestedMappingSlot computes the slot for mapping(address => mapping(address
// => T)) nested maps — ERC-20 allowances, notably — declared at slot base:
// keccak256(abiEncode(address,uint256)(inner, MappingSlot(outer, base))).
func NestedMappingSlot(outer, inner common.Address, base uint64) common.Hash {
	outerSlot := MappingSlot(outer, base)
	buf := make([]byte, 0, 64)
	buf = append(buf, pad32(inner.Bytes())...)
	buf = append(buf, outerSlot.Bytes()...)
	return crypto.Keccak256Hash(buf)
}
