// Package policyproof assembles an on-chain, proof-backed snapshot of a
// Safe's governance state: its owners, threshold, nonce, guard and fallback
// handler, each claim paired with the storage proof that lets a verifier
// check it offline against a trusted state root.
package policyproof

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/chainreg"
	"github.com/safelens/evidence/pkg/evmsafe/storage"
	"github.com/safelens/evidence/pkg/rpc"
)

// maxModuleWalk bounds the modules linked-list walk; a Safe with more than
// this many enabled modules is treated as a malformed or adversarial node
// response rather than walked indefinitely.
const maxModuleWalk = 50

// DecodedPolicy is the reconstructed governance state: every field here is
// backed by a storage slot present in the accompanying AccountProof.
type DecodedPolicy struct {
	Owners          []common.Address
	Threshold       uint64
	Nonce           uint64
	Modules         []common.Address
	Guard           common.Address
	FallbackHandler common.Address
	Singleton       common.Address
}

// Trust is a generic verdict/reason annotation pkg/trust attaches to a
// fetched OnchainPolicyProof once it is cross-checked against a consensus
// proof; Fetch itself never sets it.
type Trust struct {
	Verdict string
	Reason  string
}

// OnchainPolicyProof is the output of Fetch: a block-pinned account proof
// plus the decoded policy it attests to.
type OnchainPolicyProof struct {
	BlockNumber   uint64
	StateRoot     common.Hash
	AccountProof  rpc.AccountProof
	DecodedPolicy DecodedPolicy
	Trust         *Trust
}

// Options pins the block a proof is fetched against. A zero value fetches
// against the chain's latest block.
type Options struct {
	Block rpc.BlockRef
}

// Fetch builds an OnchainPolicyProof for safe on chainID, per §4.C: select
// the chain, read a block, read the six fixed slots concurrently, walk the
// owners and modules linked lists, then issue a single batched proof
// request covering every slot the reconstruction touched.
func Fetch(ctx context.Context, client rpc.Client, safe common.Address, chainID uint64, opts Options) (*OnchainPolicyProof, error) {
	if _, ok := chainreg.ByChainID(chainID); !ok {
		return nil, fmt.Errorf("%w: chain id %d", ErrUnsupportedChain, chainID)
	}

	ref := opts.Block
	if ref == (rpc.BlockRef{}) {
		ref = rpc.Latest()
	}
	if ref.Tag == rpc.TagPending {
		return nil, ErrPendingBlock
	}

	block, err := client.GetBlock(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRPCUnavailable, err)
	}
	if block == nil {
		return nil, ErrPendingBlock
	}
	pinned := rpc.AtNumber(block.Number)

	var ownerCountWord, thresholdWord, nonceWord, singletonWord, guardWord, fallbackWord common.Hash
	var ownerCountErr, thresholdErr, nonceErr, singletonErr, guardErr, fallbackErr error

	var wg sync.WaitGroup
	wg.Add(6)
	go func() {
		defer wg.Done()
		ownerCountWord, ownerCountErr = client.GetStorageAt(ctx, safe, storage.OwnerCountSlot, pinned)
	}()
	go func() {
		defer wg.Done()
		thresholdWord, thresholdErr = client.GetStorageAt(ctx, safe, storage.ThresholdSlot, pinned)
	}()
	go func() {
		defer wg.Done()
		nonceWord, nonceErr = client.GetStorageAt(ctx, safe, storage.NonceSlot, pinned)
	}()
	go func() {
		defer wg.Done()
		singletonWord, singletonErr = client.GetStorageAt(ctx, safe, storage.SingletonSlot, pinned)
	}()
	go func() {
		defer wg.Done()
		guardWord, guardErr = client.GetStorageAt(ctx, safe, storage.GuardStorageSlot, pinned)
	}()
	go func() {
		defer wg.Done()
		fallbackWord, fallbackErr = client.GetStorageAt(ctx, safe, storage.FallbackHandlerStorageSlot, pinned)
	}()
	wg.Wait()

	switch {
	case ownerCountErr != nil:
		return nil, fmt.Errorf("%w: ownerCount: %v", ErrRPCUnavailable, ownerCountErr)
	case thresholdErr != nil:
		return nil, fmt.Errorf("%w: threshold: %v", ErrRPCUnavailable, thresholdErr)
	case nonceErr != nil:
		return nil, fmt.Errorf("%w: nonce: %v", ErrRPCUnavailable, nonceErr)
	case singletonErr != nil:
		return nil, fmt.Errorf("%w: singleton: %v", ErrRPCUnavailable, singletonErr)
	case guardErr != nil:
		return nil, fmt.Errorf("%w: guard: %v", ErrRPCUnavailable, guardErr)
	case fallbackErr != nil:
		return nil, fmt.Errorf("%w: fallbackHandler: %v", ErrRPCUnavailable, fallbackErr)
	}

	ownerCount := new(big.Int).SetBytes(ownerCountWord.Bytes()).Uint64()

	owners, ownerSlots, err := walkLinkedList(ctx, client, safe, pinned, storage.OwnerSlot, ownerCount)
	if err != nil {
		return nil, err
	}
	modules, moduleSlots, err := walkLinkedList(ctx, client, safe, pinned, storage.ModuleSlot, maxModuleWalk)
	if err != nil {
		return nil, err
	}

	slotSet := map[common.Hash]bool{
		storage.OwnerCountSlot:               true,
		storage.ThresholdSlot:                true,
		storage.NonceSlot:                    true,
		storage.SingletonSlot:                true,
		storage.GuardStorageSlot:             true,
		storage.FallbackHandlerStorageSlot:   true,
		storage.OwnerSlot(storage.Sentinel):  true,
		storage.ModuleSlot(storage.Sentinel): true,
	}
	for _, s := range ownerSlots {
		slotSet[s] = true
	}
	for _, s := range moduleSlots {
		slotSet[s] = true
	}

	slots := make([]common.Hash, 0, len(slotSet))
	for s := range slotSet {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Hex() < slots[j].Hex() })

	accountProof, err := client.GetProof(ctx, safe, slots, pinned)
	if err != nil {
		return nil, fmt.Errorf("%w: getProof: %v", ErrRPCUnavailable, err)
	}

	return &OnchainPolicyProof{
		BlockNumber:  block.Number,
		StateRoot:    block.StateRoot,
		AccountProof: *accountProof,
		DecodedPolicy: DecodedPolicy{
			Owners:          owners,
			Threshold:       new(big.Int).SetBytes(thresholdWord.Bytes()).Uint64(),
			Nonce:           new(big.Int).SetBytes(nonceWord.Bytes()).Uint64(),
			Modules:         modules,
			Guard:           common.BytesToAddress(guardWord.Bytes()),
			FallbackHandler: common.BytesToAddress(fallbackWord.Bytes()),
			Singleton:       common.BytesToAddress(singletonWord.Bytes()),
		},
	}, nil
}

// walkLinkedList follows a Safe sentinel linked list (owners or modules)
// starting at SENTINEL, stopping when the next pointer returns to SENTINEL
// or zero. It returns the discovered addresses in list order and every slot
// it read along the way; a list that has not ended after bound entries
// yields ErrLinkedListOverflow instead.
func walkLinkedList(ctx context.Context, client rpc.Client, safe common.Address, ref rpc.BlockRef, slotOf func(common.Address) common.Hash, bound uint64) ([]common.Address, []common.Hash, error) {
	var addrs []common.Address
	var slots []common.Hash

	current := storage.Sentinel
	for i := uint64(0); i < bound+1; i++ {
		slot := slotOf(current)
		slots = append(slots, slot)

		word, err := client.GetStorageAt(ctx, safe, slot, ref)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: linked list: %v", ErrRPCUnavailable, err)
		}
		next := common.BytesToAddress(word.Bytes())
		if next == storage.Sentinel || (next == common.Address{}) {
			return addrs, slots, nil
		}
		addrs = append(addrs, next)
		current = next
	}
	return nil, nil, fmt.Errorf("%w: exceeded %d entries", ErrLinkedListOverflow, bound)
}
