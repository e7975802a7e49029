package correlate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/decode"
	"github.com/safelens/evidence/pkg/evmsafe/storage"
)

// diffIndex keys a state-diff lookup by (token address, storage slot).
type diffIndex map[common.Address]map[common.Hash]StateDiff

func indexDiffs(diffs []StateDiff) diffIndex {
	idx := make(diffIndex, len(diffs))
	for _, d := range diffs {
		m, ok := idx[d.Address]
		if !ok {
			m = make(map[common.Hash]StateDiff)
			idx[d.Address] = m
		}
		m[d.Key] = d
	}
	return idx
}

func wordToBig(h common.Hash) *big.Int {
	return new(big.Int).SetBytes(h.Bytes())
}

// CorrelateBalances matches each Transfer event's participant accounts
// against the fixed ERC-20 layout registry, emitting a ProvenBalanceChange
// for the first layout whose computed balance slot appears in diffs.
// Deduplicated by (token, account, layout).
func CorrelateBalances(events []decode.Event, diffs []StateDiff) []ProvenBalanceChange {
	idx := indexDiffs(diffs)
	seen := make(map[[3]string]bool)
	var out []ProvenBalanceChange

	for _, e := range events {
		if e.Kind != decode.KindERC20Transfer {
			continue
		}
		for _, acct := range []common.Address{e.From, e.To} {
			if acct == (common.Address{}) {
				continue
			}
			for _, l := range layouts {
				slot := storage.MappingSlot(acct, l.BalanceBase)
				d, ok := idx[e.Token][slot]
				if !ok {
					continue
				}
				key := [3]string{e.Token.Hex(), acct.Hex(), l.Name}
				if seen[key] {
					break
				}
				seen[key] = true
				out = append(out, ProvenBalanceChange{
					Token:   e.Token,
					Account: acct,
					Layout:  l.Name,
					Before:  wordToBig(d.Before),
					After:   wordToBig(d.After),
				})
				break
			}
		}
	}
	return out
}

// CorrelateAllowances matches each Approval event's (owner, spender) pair
// against the fixed ERC-20 layout registry, emitting a ProvenAllowance for
// the first layout whose computed allowance slot appears in diffs.
// Deduplicated by (token, owner, spender, layout).
func CorrelateAllowances(events []decode.Event, diffs []StateDiff) []ProvenAllowance {
	idx := indexDiffs(diffs)
	seen := make(map[[4]string]bool)
	var out []ProvenAllowance

	for _, e := range events {
		if e.Kind != decode.KindERC20Approval {
			continue
		}
		owner, spender := e.From, e.To
		for _, l := range layouts {
			slot := storage.NestedMappingSlot(owner, spender, l.AllowanceBase)
			d, ok := idx[e.Token][slot]
			if !ok {
				continue
			}
			key := [4]string{e.Token.Hex(), owner.Hex(), spender.Hex(), l.Name}
			if seen[key] {
				break
			}
			seen[key] = true
			out = append(out, ProvenAllowance{
				Token:   e.Token,
				Owner:   owner,
				Spender: spender,
				Layout:  l.Name,
				Before:  wordToBig(d.Before),
				After:   wordToBig(d.After),
			})
			break
		}
	}
	return out
}
