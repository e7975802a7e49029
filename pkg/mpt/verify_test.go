package mpt

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// buildSingleLeafTrie constructs the degenerate one-node trie: a leaf at
// the root whose compact-encoded path is the full 64-nibble key. This
// isolates the leaf-decoding and compact-path logic without needing a
// multi-level fixture.
func buildSingleLeafTrie(t *testing.T, key []byte, value []byte) (root common.Hash, node []byte) {
	t.Helper()
	nibbles := keyToNibbles(key)
	if len(nibbles)%2 != 0 {
		t.Fatalf("test helper assumes an even nibble count, got %d", len(nibbles))
	}
	path := make([]byte, 0, 1+len(nibbles)/2)
	path = append(path, 0x20) // flag nibble 2: leaf, even length
	for i := 0; i < len(nibbles); i += 2 {
		path = append(path, nibbles[i]<<4|nibbles[i+1])
	}

	encodedValue, err := rlp.EncodeToBytes(value)
	if err != nil {
		t.Fatalf("encode value: %v", err)
	}
	var rawValue rlp.RawValue = encodedValue

	node, err = rlp.EncodeToBytes([]interface{}{path, rawValue})
	if err != nil {
		t.Fatalf("encode leaf node: %v", err)
	}
	return crypto.Keccak256Hash(node), node
}

func TestVerifyProofSingleLeafAccepts(t *testing.T) {
	addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	key := crypto.Keccak256(addr.Bytes())
	value := []byte("hello-trie-value")

	root, node := buildSingleLeafTrie(t, key, value)
	res := VerifyProof(root, key, [][]byte{node})
	if !res.Valid {
		t.Fatalf("expected valid proof, errors: %v", res.Errors)
	}
	if !bytes.Equal(res.Value, value) {
		t.Fatalf("value = %x, want %x", res.Value, value)
	}
}

func TestVerifyProofRejectsWrongRoot(t *testing.T) {
	addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	key := crypto.Keccak256(addr.Bytes())
	_, node := buildSingleLeafTrie(t, key, []byte("value"))

	wrongRoot := crypto.Keccak256Hash([]byte("not the real root"))
	res := VerifyProof(wrongRoot, key, [][]byte{node})
	if res.Valid {
		t.Fatal("expected verification to fail against a wrong root")
	}
}

func TestVerifyAccountRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	key := crypto.Keccak256(addr.Bytes())

	account := AccountRecord{
		Nonce:       7,
		Balance:     big.NewInt(1_000_000),
		StorageRoot: crypto.Keccak256Hash([]byte("storage-root")),
		CodeHash:    crypto.Keccak256Hash([]byte("code")),
	}
	encoded, err := encodeAccount(account)
	if err != nil {
		t.Fatalf("encodeAccount: %v", err)
	}

	root, node := buildSingleLeafTrie(t, key, encoded)
	res := VerifyAccount(root, addr, [][]byte{node}, account)
	if !res.Valid {
		t.Fatalf("expected valid account proof, errors: %v", res.Errors)
	}

	mutated := account
	mutated.Nonce = 8
	if bad := VerifyAccount(root, addr, [][]byte{node}, mutated); bad.Valid {
		t.Fatal("expected a mismatched nonce to fail verification")
	}
}

func TestVerifyStorageRoundTrip(t *testing.T) {
	slot := common.BigToHash(big.NewInt(5))
	key := crypto.Keccak256(slot.Bytes())

	var word [32]byte
	word[31] = 0x2a // 42

	trimmed := []byte{0x2a}
	encodedValue, err := rlp.EncodeToBytes(trimmed)
	if err != nil {
		t.Fatalf("encode storage value: %v", err)
	}

	root, node := buildSingleLeafTrie(t, key, encodedValue)
	res := VerifyStorage(root, slot, word, [][]byte{node})
	if !res.Valid {
		t.Fatalf("expected valid storage proof, errors: %v", res.Errors)
	}

	var flippedWord [32]byte
	flippedWord[31] = 0x2b
	if bad := VerifyStorage(root, slot, flippedWord, [][]byte{node}); bad.Valid {
		t.Fatal("flipping the low nibble of the value must fail verification")
	}
}
