package correlate

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/decode"
)

// ErrLayoutAmbiguous marks a non-fatal diagnostic: the event-derived and
// state-diff-derived allowance for the same (token, spender) disagree. The
// state-diff value is still the one returned (it is the proven on-chain
// value); this is a flag for export diagnostics, not a failure.
var ErrLayoutAmbiguous = errors.New("correlate: event and state-diff allowances disagree")

// RemainingApproval is a non-zero allowance surviving after a transaction,
// with Source recording which evidence it was derived from.
type RemainingApproval struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
	Amount  *big.Int
	Source  string // "state-diff" or "event"
}

// AmbiguityDiagnostic records a disagreement between event-derived and
// state-diff-derived allowances for the same (token, owner, spender).
type AmbiguityDiagnostic struct {
	Err             error
	Token           common.Address
	Owner           common.Address
	Spender         common.Address
	EventAmount     *big.Int
	StateDiffAmount *big.Int
}

type approvalKey struct {
	token, owner, spender common.Address
}

// ComputeRemainingApprovals returns the non-zero allowances left after
// execution. When a state-diff-proven value exists for a (token, spender)
// pair it wins (source=state-diff); otherwise the last Approval event for
// that pair wins (source=event). When both sources exist and disagree, an
// AmbiguityDiagnostic is also returned for that pair (non-fatal — the
// state-diff value is still used).
func ComputeRemainingApprovals(events []decode.Event, diffs []StateDiff) ([]RemainingApproval, []AmbiguityDiagnostic) {
	var order []approvalKey
	eventAmounts := make(map[approvalKey]*big.Int)

	for _, e := range events {
		if e.Kind != decode.KindERC20Approval {
			continue
		}
		k := approvalKey{e.Token, e.From, e.To}
		if _, seen := eventAmounts[k]; !seen {
			order = append(order, k)
		}
		eventAmounts[k] = e.AmountRaw // last write wins
	}

	proven := CorrelateAllowances(events, diffs)
	stateAmounts := make(map[approvalKey]*big.Int, len(proven))
	for _, p := range proven {
		k := approvalKey{p.Token, p.Owner, p.Spender}
		if _, seen := eventAmounts[k]; !seen {
			order = append(order, k)
		}
		stateAmounts[k] = p.After
	}

	var out []RemainingApproval
	var diagnostics []AmbiguityDiagnostic
	seen := make(map[approvalKey]bool)

	for _, k := range order {
		if seen[k] {
			continue
		}
		seen[k] = true

		stateAmt, hasState := stateAmounts[k]
		eventAmt, hasEvent := eventAmounts[k]

		if hasState && hasEvent && stateAmt.Cmp(eventAmt) != 0 {
			diagnostics = append(diagnostics, AmbiguityDiagnostic{
				Err:             ErrLayoutAmbiguous,
				Token:           k.token,
				Owner:           k.owner,
				Spender:         k.spender,
				EventAmount:     eventAmt,
				StateDiffAmount: stateAmt,
			})
		}

		var amount *big.Int
		var source string
		switch {
		case hasState:
			amount, source = stateAmt, "state-diff"
		case hasEvent:
			amount, source = eventAmt, "event"
		default:
			continue
		}
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		out = append(out, RemainingApproval{
			Token:   k.token,
			Owner:   k.owner,
			Spender: k.spender,
			Amount:  amount,
			Source:  source,
		})
	}

	return out, diagnostics
}
