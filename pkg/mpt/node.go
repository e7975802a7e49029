package mpt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// keyToNibbles expands each byte of key into two nibbles, high first. MPT
// paths are addressed in nibbles, not bytes.
func keyToNibbles(key []byte) []byte {
	nibbles := make([]byte, 0, len(key)*2)
	for _, b := range key {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	return nibbles
}

// decodeCompact is the two-pass hex-prefix decoder: it reads the flag
// nibble (odd-length bit, leaf/extension bit) out of the first byte, then
// unpacks the remaining path nibbles.
func decodeCompact(b []byte) (nibbles []byte, isLeaf bool, err error) {
	if len(b) == 0 {
		return nil, false, fmt.Errorf("mpt: empty compact-encoded path")
	}
	flag := b[0] >> 4
	oddLen := flag&1 != 0
	isLeaf = flag&2 != 0

	if oddLen {
		nibbles = append(nibbles, b[0]&0x0f)
	}
	for _, c := range b[1:] {
		nibbles = append(nibbles, c>>4, c&0x0f)
	}
	return nibbles, isLeaf, nil
}

// rawItems splits a branch/extension/leaf node's RLP list into its raw
// (still-encoded) child items, without recursively decoding them — a
// branch child may be an inline embedded node, a 32-byte hash reference, or
// empty, and the caller decides which based on the first byte.
func rawItems(node []byte) ([]rlp.RawValue, error) {
	var items []rlp.RawValue
	if err := rlp.DecodeBytes(node, &items); err != nil {
		return nil, fmt.Errorf("mpt: malformed node: %w", err)
	}
	return items, nil
}

// childKind classifies a raw list item referenced from a branch or
// extension node.
type childKind int

const (
	childEmpty childKind = iota
	childHash
	childEmbedded
)

func classifyChild(item rlp.RawValue) childKind {
	if len(item) == 0 {
		return childEmpty
	}
	switch {
	case item[0] == 0x80:
		return childEmpty
	case item[0] == 0xa0 && len(item) == 33:
		return childHash
	case item[0] >= 0xc0:
		return childEmbedded
	default:
		// A raw value shorter than 32 bytes that isn't a list is only
		// possible for degenerate single-item tries; treat as embedded.
		return childEmbedded
	}
}

func childHashOf(item rlp.RawValue) (common.Hash, error) {
	var h []byte
	if err := rlp.DecodeBytes(item, &h); err != nil {
		return common.Hash{}, fmt.Errorf("mpt: malformed hash reference: %w", err)
	}
	return common.BytesToHash(h), nil
}

// leafValue unwraps the single level of RLP-string encoding around a
// branch/leaf value item, returning the raw bytes the trie stored (which
// for account and storage leaves is itself an RLP encoding the caller
// decodes further).
func leafValue(item rlp.RawValue) ([]byte, error) {
	var v []byte
	if err := rlp.DecodeBytes(item, &v); err != nil {
		return nil, fmt.Errorf("mpt: malformed leaf value: %w", err)
	}
	return v, nil
}
