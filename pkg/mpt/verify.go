// Package mpt verifies Merkle-Patricia Trie account and storage proofs
// returned by eth_getProof against a claimed state root, by walking the
// proof's extension/branch/leaf nodes and matching nibble paths derived
// from keccak256(address) or keccak256(slot).
package mpt

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ProofDB indexes proof nodes by their keccak256 hash, as eth_getProof
// returns them: an ordered list of RLP node blobs with no explicit
// parent/child linkage beyond the hash references embedded in each node.
type ProofDB struct {
	nodes map[common.Hash][]byte
}

// NewProofDB builds a ProofDB from the raw proof node list in request
// order; duplicate nodes are harmless since they hash identically.
func NewProofDB(proof [][]byte) *ProofDB {
	db := &ProofDB{nodes: make(map[common.Hash][]byte, len(proof))}
	for _, node := range proof {
		db.nodes[crypto.Keccak256Hash(node)] = node
	}
	return db
}

func (db *ProofDB) get(h common.Hash) ([]byte, bool) {
	n, ok := db.nodes[h]
	return n, ok
}

// Result is the outcome of a single proof verification. Verification never
// panics; it stops at the first problem, which Errors then describes.
type Result struct {
	Valid  bool
	Value  []byte
	Errors []string
}

func fail(errs ...string) Result {
	return Result{Valid: false, Errors: errs}
}

// VerifyProof walks the proof nodes rooted at rootHash looking up key (the
// caller's keccak256(address) or keccak256(slot) bytes, expanded to a
// nibble path here), and returns the raw terminal leaf value on success.
func VerifyProof(rootHash common.Hash, key []byte, proof [][]byte) Result {
	db := NewProofDB(proof)
	nibbles := keyToNibbles(key)

	cur := rootHash
	var curNode []byte
	pos := 0

	for {
		node, ok := db.get(cur)
		if !ok {
			return fail(fmt.Sprintf("proof node missing for hash %s", cur.Hex()))
		}
		curNode = node

		items, err := rawItems(curNode)
		if err != nil {
			return fail(err.Error())
		}

		switch len(items) {
		case 17:
			// Branch node: 16 nibble-indexed children plus a terminal value.
			if pos == len(nibbles) {
				v, err := leafValue(items[16])
				if err != nil {
					return fail(err.Error())
				}
				if len(v) == 0 {
					return fail("branch node has no value at terminal position")
				}
				return Result{Valid: true, Value: v}
			}
			nib := nibbles[pos]
			child := items[nib]
			switch classifyChild(child) {
			case childEmpty:
				return fail(fmt.Sprintf("no branch child at nibble %d (path exhausted early)", nib))
			case childHash:
				h, err := childHashOf(child)
				if err != nil {
					return fail(err.Error())
				}
				cur = h
			case childEmbedded:
				// The embedded node's own RLP bytes are hashed again on the
				// next iteration's db lookup; since an embedded node isn't
				// content-addressed, stash it directly.
				cur = crypto.Keccak256Hash(child)
				db.nodes[cur] = child
			}
			pos++

		case 2:
			pathNibbles, isLeaf, err := decodeCompact(toBytes(items[0]))
			if err != nil {
				return fail(err.Error())
			}
			if pos+len(pathNibbles) > len(nibbles) {
				return fail("extension/leaf path longer than remaining key")
			}
			if !bytes.Equal(nibbles[pos:pos+len(pathNibbles)], pathNibbles) {
				return fail("nibble path mismatch against proof node")
			}
			pos += len(pathNibbles)

			if isLeaf {
				if pos != len(nibbles) {
					return fail("leaf reached before key fully consumed")
				}
				v, err := leafValue(items[1])
				if err != nil {
					return fail(err.Error())
				}
				return Result{Valid: true, Value: v}
			}

			// Extension node: items[1] is the child reference.
			switch classifyChild(items[1]) {
			case childEmpty:
				return fail("extension node has no child")
			case childHash:
				h, err := childHashOf(items[1])
				if err != nil {
					return fail(err.Error())
				}
				cur = h
			case childEmbedded:
				cur = crypto.Keccak256Hash(items[1])
				db.nodes[cur] = items[1]
			}

		default:
			return fail(fmt.Sprintf("node has unexpected item count %d", len(items)))
		}
	}
}

// toBytes decodes a raw RLP string item (a hex-prefix-encoded path) into
// its plain byte content.
func toBytes(item rlp.RawValue) []byte {
	var b []byte
	_ = rlp.DecodeBytes(item, &b)
	return b
}

// AccountRecord is the four-field RLP list every externally-owned or
// contract account is stored as in the state trie.
type AccountRecord struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
}

func encodeAccount(a AccountRecord) ([]byte, error) {
	balance := a.Balance
	if balance == nil {
		balance = new(big.Int)
	}
	return rlp.EncodeToBytes([]interface{}{
		a.Nonce,
		balance,
		a.StorageRoot,
		a.CodeHash,
	})
}

// VerifyAccount verifies that the account record for keccak256(address)
// appears in the proof under stateRoot and equals claimed exactly.
func VerifyAccount(stateRoot common.Hash, address common.Address, proof [][]byte, claimed AccountRecord) Result {
	key := crypto.Keccak256(address.Bytes())
	res := VerifyProof(stateRoot, key, proof)
	if !res.Valid {
		return res
	}
	want, err := encodeAccount(claimed)
	if err != nil {
		return fail(fmt.Sprintf("encode claimed account: %v", err))
	}
	if !bytes.Equal(res.Value, want) {
		return fail("account record mismatch against proof terminal value")
	}
	return Result{Valid: true, Value: res.Value}
}

// VerifyStorage verifies that the storage slot for keccak256(slot) appears
// in the proof under storageHash with the claimed right-padded 32-byte
// word. An all-zero claimed value corresponds to an untouched slot, which
// RLP-encodes to the empty byte string and is not separately verifiable
// against a non-existence proof here (absence proofs are out of scope for
// this verifier, which only confirms inclusion).
func VerifyStorage(storageHash common.Hash, slot common.Hash, claimedWord [32]byte, proof [][]byte) Result {
	key := crypto.Keccak256(slot.Bytes())
	res := VerifyProof(storageHash, key, proof)
	if !res.Valid {
		return res
	}
	trimmed := bytes.TrimLeft(claimedWord[:], "\x00")
	want, err := rlp.EncodeToBytes(trimmed)
	if err != nil {
		return fail(fmt.Sprintf("encode claimed storage value: %v", err))
	}
	if !bytes.Equal(res.Value, want) {
		return fail("storage value mismatch against proof terminal value")
	}
	return Result{Valid: true, Value: res.Value}
}
