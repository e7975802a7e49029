package policyproof

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/evmsafe/storage"
	"github.com/safelens/evidence/pkg/rpc"
)

// fakeClient is a minimal in-memory rpc.Client backed by a single account's
// storage, enough to exercise the fixed-slot reads and linked-list walks.
type fakeClient struct {
	chainID *big.Int
	block   rpc.Block
	slots   map[common.Hash]common.Hash
}

func (f *fakeClient) ChainID() *big.Int { return f.chainID }

func (f *fakeClient) GetBlock(ctx context.Context, ref rpc.BlockRef) (*rpc.Block, error) {
	b := f.block
	return &b, nil
}

func (f *fakeClient) GetBalance(ctx context.Context, addr common.Address, ref rpc.BlockRef) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeClient) GetTransactionCount(ctx context.Context, addr common.Address, ref rpc.BlockRef) (uint64, error) {
	return 0, nil
}

func (f *fakeClient) GetCode(ctx context.Context, addr common.Address, ref rpc.BlockRef) ([]byte, error) {
	return nil, nil
}

func (f *fakeClient) GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash, ref rpc.BlockRef) (common.Hash, error) {
	return f.slots[slot], nil
}

func (f *fakeClient) GetProof(ctx context.Context, addr common.Address, slots []common.Hash, ref rpc.BlockRef) (*rpc.AccountProof, error) {
	entries := make([]rpc.StorageProofEntry, 0, len(slots))
	for _, s := range slots {
		v := f.slots[s]
		entries = append(entries, rpc.StorageProofEntry{Key: s, Value: v, Proof: [][]byte{{0x00}}})
	}
	return &rpc.AccountProof{
		Address:      addr,
		Balance:      big.NewInt(0),
		Nonce:        0,
		AccountProof: [][]byte{{0x00}},
		StorageProof: entries,
	}, nil
}

func (f *fakeClient) Call(ctx context.Context, params rpc.CallParams, ref rpc.BlockRef) ([]byte, error) {
	return nil, nil
}

func (f *fakeClient) EstimateGas(ctx context.Context, params rpc.CallParams, ref rpc.BlockRef) (uint64, bool, error) {
	return 0, false, nil
}

func (f *fakeClient) RawRequest(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	return nil, nil
}

func addrWord(a common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(a.Bytes(), 32))
}

func uintWord(v uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(v))
}

func newTestSafe(safe common.Address, owners []common.Address, modules []common.Address) *fakeClient {
	slots := map[common.Hash]common.Hash{
		storage.OwnerCountSlot: uintWord(uint64(len(owners))),
		storage.ThresholdSlot:  uintWord(1),
		storage.NonceSlot:      uintWord(7),
	}

	prev := storage.Sentinel
	for _, o := range owners {
		slots[storage.OwnerSlot(prev)] = addrWord(o)
		prev = o
	}
	slots[storage.OwnerSlot(prev)] = addrWord(storage.Sentinel)

	prevMod := storage.Sentinel
	for _, m := range modules {
		slots[storage.ModuleSlot(prevMod)] = addrWord(m)
		prevMod = m
	}
	slots[storage.ModuleSlot(prevMod)] = addrWord(storage.Sentinel)

	return &fakeClient{
		chainID: big.NewInt(1),
		block:   rpc.Block{Number: 100, StateRoot: common.HexToHash("0xabc")},
		slots:   slots,
	}
}

func TestFetchReconstructsOwnersAndModules(t *testing.T) {
	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	o1 := common.HexToAddress("0x2222222222222222222222222222222222222222")
	o2 := common.HexToAddress("0x3333333333333333333333333333333333333333")
	m1 := common.HexToAddress("0x4444444444444444444444444444444444444444")

	client := newTestSafe(safe, []common.Address{o1, o2}, []common.Address{m1})

	proof, err := Fetch(context.Background(), client, safe, 1, Options{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(proof.DecodedPolicy.Owners) != 2 || proof.DecodedPolicy.Owners[0] != o1 || proof.DecodedPolicy.Owners[1] != o2 {
		t.Fatalf("owners = %v, want [%v %v]", proof.DecodedPolicy.Owners, o1, o2)
	}
	if len(proof.DecodedPolicy.Modules) != 1 || proof.DecodedPolicy.Modules[0] != m1 {
		t.Fatalf("modules = %v, want [%v]", proof.DecodedPolicy.Modules, m1)
	}
	if proof.DecodedPolicy.Nonce != 7 {
		t.Fatalf("nonce = %d, want 7", proof.DecodedPolicy.Nonce)
	}
	if proof.BlockNumber != 100 {
		t.Fatalf("blockNumber = %d, want 100", proof.BlockNumber)
	}
}

func TestFetchEveryReferencedSlotIsInProof(t *testing.T) {
	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	o1 := common.HexToAddress("0x2222222222222222222222222222222222222222")
	client := newTestSafe(safe, []common.Address{o1}, nil)

	proof, err := Fetch(context.Background(), client, safe, 1, Options{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	present := map[common.Hash]bool{}
	for _, e := range proof.AccountProof.StorageProof {
		present[e.Key] = true
	}
	required := []common.Hash{
		storage.OwnerSlot(storage.Sentinel),
		storage.OwnerSlot(o1),
		storage.ModuleSlot(storage.Sentinel),
	}
	for _, s := range required {
		if !present[s] {
			t.Fatalf("slot %s missing from account proof", s.Hex())
		}
	}
}

func TestFetchUnsupportedChain(t *testing.T) {
	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	client := newTestSafe(safe, nil, nil)

	_, err := Fetch(context.Background(), client, safe, 999999, Options{})
	if !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("err = %v, want ErrUnsupportedChain", err)
	}
}

func TestFetchPendingBlockRejected(t *testing.T) {
	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	client := newTestSafe(safe, nil, nil)

	_, err := Fetch(context.Background(), client, safe, 1, Options{Block: rpc.BlockRef{Tag: rpc.TagPending}})
	if !errors.Is(err, ErrPendingBlock) {
		t.Fatalf("err = %v, want ErrPendingBlock", err)
	}
}

func TestFetchModuleWalkOverflow(t *testing.T) {
	safe := common.HexToAddress("0x1111111111111111111111111111111111111111")
	modules := make([]common.Address, 0, maxModuleWalk+1)
	for i := 0; i < maxModuleWalk+1; i++ {
		modules = append(modules, common.BigToAddress(big.NewInt(int64(i+1000))))
	}
	client := newTestSafe(safe, nil, modules)

	_, err := Fetch(context.Background(), client, safe, 1, Options{})
	if !errors.Is(err, ErrLinkedListOverflow) {
		t.Fatalf("err = %v, want ErrLinkedListOverflow", err)
	}
}
