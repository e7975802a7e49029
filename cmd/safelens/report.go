package main

import (
	"fmt"
	"sort"

	"github.com/safelens/evidence/pkg/correlate"
	"github.com/safelens/evidence/pkg/decode"
	"github.com/safelens/evidence/pkg/interpret"
	"github.com/safelens/evidence/pkg/trust"
	"github.com/safelens/evidence/pkg/witness"
)

// Report is the verify subcommand's rendered output, in both the
// human-readable and --json views.
type Report struct {
	SafeAddress string                `json:"safe_address"`
	SafeTxHash  string                `json:"safe_tx_hash"`
	ChainID     uint64                `json:"chain_id"`
	ExportMode  string                `json:"export_mode"`
	Decision    trust.Decision        `json:"decision"`
	Witness     *witness.VerifyResult `json:"witness,omitempty"`

	// Interpretation, Events, and the correlated balance/allowance results
	// are the verifier-side decoding pass over the packaged simulation's
	// logs and state diffs (§4.F/§4.G) plus the transaction interpreter
	// registry (§4.K) — what the verdict above is explaining, not what
	// produced it.
	Interpretation     *interpret.Interpretation       `json:"interpretation,omitempty"`
	Events             []decode.Event                  `json:"events,omitempty"`
	BalanceChanges     []correlate.ProvenBalanceChange `json:"balance_changes,omitempty"`
	Allowances         []correlate.ProvenAllowance     `json:"allowances,omitempty"`
	RemainingApprovals []correlate.RemainingApproval   `json:"remaining_approvals,omitempty"`
	Ambiguities        []correlate.AmbiguityDiagnostic `json:"ambiguities,omitempty"`
}

func printReport(r Report) {
	fmt.Printf("safe:        %s (chain %d)\n", r.SafeAddress, r.ChainID)
	fmt.Printf("safeTxHash:  %s\n", r.SafeTxHash)
	fmt.Printf("exportMode:  %s\n", r.ExportMode)
	fmt.Println()
	fmt.Printf("verdict:     %s\n", r.Decision.Verdict)
	if r.Decision.PolicyReason != "" {
		fmt.Printf("  policy:    %s\n", r.Decision.PolicyReason)
	}
	if r.Decision.SimulationReason != "" {
		fmt.Printf("  simulation: %s\n", r.Decision.SimulationReason)
	}
	fmt.Printf("signatures:  %d/%d (satisfied=%v)\n",
		r.Decision.Tally.ConfirmCount, r.Decision.Tally.Threshold, r.Decision.Tally.Satisfied)

	if r.Witness != nil {
		fmt.Println()
		fmt.Println("witness checks:")
		names := make([]string, 0, len(r.Witness.Checks))
		for name := range r.Witness.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			check := r.Witness.Checks[name]
			status := "ok"
			if !check.Passed {
				status = "FAIL"
			}
			fmt.Printf("  [%-4s] %-28s %s\n", status, name, check.Detail)
		}
	}

	if r.Interpretation != nil {
		fmt.Println()
		fmt.Printf("interpretation: %-20s [%s] %s\n", r.Interpretation.ID, r.Interpretation.Severity, r.Interpretation.Summary)
	}

	if len(r.Events) > 0 {
		fmt.Println()
		fmt.Println("events:")
		for _, e := range r.Events {
			fmt.Printf("  %-24s %-10s %s -> %s  %s\n", e.Kind, e.Direction, e.From.Hex(), e.To.Hex(), e.AmountFormatted)
		}
	}

	if len(r.BalanceChanges) > 0 {
		fmt.Println()
		fmt.Println("balance changes:")
		for _, b := range r.BalanceChanges {
			fmt.Printf("  %s  %s  %s -> %s  (layout %s)\n", b.Token.Hex(), b.Account.Hex(), b.Before, b.After, b.Layout)
		}
	}

	if len(r.Allowances) > 0 {
		fmt.Println()
		fmt.Println("allowances:")
		for _, a := range r.Allowances {
			fmt.Printf("  %s  %s -> %s  %s -> %s  (layout %s)\n", a.Token.Hex(), a.Owner.Hex(), a.Spender.Hex(), a.Before, a.After, a.Layout)
		}
	}

	if len(r.RemainingApprovals) > 0 {
		fmt.Println()
		fmt.Println("remaining approvals:")
		for _, a := range r.RemainingApprovals {
			fmt.Printf("  %s  %s -> %s  %s  (source %s)\n", a.Token.Hex(), a.Owner.Hex(), a.Spender.Hex(), a.Amount, a.Source)
		}
	}

	if len(r.Ambiguities) > 0 {
		fmt.Println()
		fmt.Println("ambiguities:")
		for _, a := range r.Ambiguities {
			fmt.Printf("  %s  %s -> %s  event=%s state-diff=%s\n", a.Token.Hex(), a.Owner.Hex(), a.Spender.Hex(), a.EventAmount, a.StateDiffAmount)
		}
	}
}
