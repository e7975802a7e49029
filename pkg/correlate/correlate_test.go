package correlate

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/decode"
	"github.com/safelens/evidence/pkg/evmsafe/storage"
)

func hashFromBig(v int64) common.Hash {
	return common.BigToHash(big.NewInt(v))
}

func TestCorrelateBalancesMatchesOZLayout(t *testing.T) {
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	from := common.HexToAddress("0x3333333333333333333333333333333333333333")
	to := common.HexToAddress("0x4444444444444444444444444444444444444444")

	events := []decode.Event{{
		Kind: decode.KindERC20Transfer, Token: token, From: from, To: to, AmountRaw: big.NewInt(100),
	}}
	diffs := []StateDiff{
		{Address: token, Key: storage.MappingSlot(from, 0), Before: hashFromBig(500), After: hashFromBig(400)},
		{Address: token, Key: storage.MappingSlot(to, 0), Before: hashFromBig(0), After: hashFromBig(100)},
	}

	got := CorrelateBalances(events, diffs)
	if len(got) != 2 {
		t.Fatalf("got %d proven changes, want 2: %+v", len(got), got)
	}
	for _, pc := range got {
		if pc.Layout != "oz" {
			t.Fatalf("layout = %s, want oz", pc.Layout)
		}
	}
}

func TestCorrelateBalancesNoMatchWhenDiffAbsent(t *testing.T) {
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	from := common.HexToAddress("0x3333333333333333333333333333333333333333")
	to := common.HexToAddress("0x4444444444444444444444444444444444444444")
	events := []decode.Event{{Kind: decode.KindERC20Transfer, Token: token, From: from, To: to, AmountRaw: big.NewInt(1)}}

	got := CorrelateBalances(events, nil)
	if len(got) != 0 {
		t.Fatalf("got %d, want 0", len(got))
	}
}

func TestCorrelateAllowancesDAILayout(t *testing.T) {
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	owner := common.HexToAddress("0x3333333333333333333333333333333333333333")
	spender := common.HexToAddress("0x4444444444444444444444444444444444444444")

	events := []decode.Event{{Kind: decode.KindERC20Approval, Token: token, From: owner, To: spender, AmountRaw: big.NewInt(1000)}}
	diffs := []StateDiff{
		{Address: token, Key: storage.NestedMappingSlot(owner, spender, 3), Before: hashFromBig(0), After: hashFromBig(1000)},
	}

	got := CorrelateAllowances(events, diffs)
	if len(got) != 1 || got[0].Layout != "dai" {
		t.Fatalf("got %+v", got)
	}
}

func TestComputeRemainingApprovalsStateDiffWins(t *testing.T) {
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	owner := common.HexToAddress("0x3333333333333333333333333333333333333333")
	spender := common.HexToAddress("0x4444444444444444444444444444444444444444")

	events := []decode.Event{{Kind: decode.KindERC20Approval, Token: token, From: owner, To: spender, AmountRaw: big.NewInt(1000)}}
	diffs := []StateDiff{
		{Address: token, Key: storage.NestedMappingSlot(owner, spender, 1), Before: hashFromBig(0), After: hashFromBig(500)},
	}

	remaining, diagnostics := ComputeRemainingApprovals(events, diffs)
	if len(remaining) != 1 {
		t.Fatalf("remaining = %+v", remaining)
	}
	if remaining[0].Source != "state-diff" || remaining[0].Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("remaining[0] = %+v, want state-diff 500", remaining[0])
	}
	if len(diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v, want 1 ambiguity (event=1000 vs state-diff=500)", diagnostics)
	}
}

func TestComputeRemainingApprovalsFallsBackToEvent(t *testing.T) {
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	owner := common.HexToAddress("0x3333333333333333333333333333333333333333")
	spender := common.HexToAddress("0x4444444444444444444444444444444444444444")

	events := []decode.Event{
		{Kind: decode.KindERC20Approval, Token: token, From: owner, To: spender, AmountRaw: big.NewInt(100)},
		{Kind: decode.KindERC20Approval, Token: token, From: owner, To: spender, AmountRaw: big.NewInt(200)},
	}

	remaining, diagnostics := ComputeRemainingApprovals(events, nil)
	if len(diagnostics) != 0 {
		t.Fatalf("diagnostics = %+v, want none", diagnostics)
	}
	if len(remaining) != 1 || remaining[0].Source != "event" || remaining[0].Amount.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("remaining = %+v, want last event (200)", remaining)
	}
}

func TestComputeRemainingApprovalsZeroFilteredOut(t *testing.T) {
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	owner := common.HexToAddress("0x3333333333333333333333333333333333333333")
	spender := common.HexToAddress("0x4444444444444444444444444444444444444444")

	events := []decode.Event{{Kind: decode.KindERC20Approval, Token: token, From: owner, To: spender, AmountRaw: big.NewInt(0)}}
	remaining, _ := ComputeRemainingApprovals(events, nil)
	if len(remaining) != 0 {
		t.Fatalf("remaining = %+v, want empty (zero filtered)", remaining)
	}
}
