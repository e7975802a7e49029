package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/config"
	"github.com/safelens/evidence/pkg/correlate"
	"github.com/safelens/evidence/pkg/decode"
	"github.com/safelens/evidence/pkg/evidence"
	"github.com/safelens/evidence/pkg/interpret"
	"github.com/safelens/evidence/pkg/simulation"
	"github.com/safelens/evidence/pkg/trust"
	"github.com/safelens/evidence/pkg/witness"
)

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the verdict report as JSON instead of human-readable text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("verify: missing <path> argument")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if err := installDescriptors(cfg.DescriptorIndexPath); err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	pkg, err := evidence.UnmarshalPackage(data)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	report := buildReport(pkg)

	if *asJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("verify: marshal report: %w", err)
		}
		fmt.Println(string(out))
	} else {
		printReport(report)
	}

	os.Exit(exitCodeFor(report.Decision.Verdict, pkg.ExportContract))
	return nil
}

// exitCodeFor maps the rendered verdict onto the CLI exit codes spec.md §6
// specifies for `verify`: 0 fully-verifiable, 1 partial, 2 invalid.
func exitCodeFor(verdict trust.Verdict, contract *evidence.ExportContract) int {
	if verdict == trust.VerdictUntrusted {
		return 2
	}
	if contract != nil && contract.IsFullyVerifiable && verdict == trust.VerdictTrusted {
		return 0
	}
	return 1
}

// buildReport runs the trust-decision pipeline against a loaded package: it
// never calls out to the network (this is the offline verifier path), so
// consensusValid is taken as "a ConsensusProof is attached at all" rather
// than re-running a ConsensusVerifier capability (spec.md §1 Non-goals).
// Per spec.md's verification data flow ("JSON → schema validation → D
// verifies ... → H recomputes digest and verifies witness → K/F/G decode
// effects → L computes verdict"), the packaged simulation's logs and state
// diffs are decoded and correlated, and the transaction's calldata is run
// through the interpreter registry, before the trust decision is computed.
func buildReport(pkg evidence.Package) Report {
	var witnessCheck *witness.VerifyResult
	if pkg.Simulation != nil && pkg.Witness != nil {
		r := witness.VerifyWitness(pkg.Simulation, pkg.Witness, witness.VerifyParams{
			ChainID:            pkg.ChainID,
			SafeAddress:        pkg.SafeAddress,
			OnchainPolicyProof: pkg.OnchainPolicyProof,
		})
		witnessCheck = &r
	}

	var threshold uint64
	if pkg.OnchainPolicyProof != nil {
		threshold = pkg.OnchainPolicyProof.DecodedPolicy.Threshold
	}
	tally := trust.TallySignatures(uint64(len(pkg.Confirmations)), threshold)

	consensusValid := pkg.ConsensusProof != nil

	decision := trust.Decide(pkg.ConsensusProof, consensusValid, pkg.OnchainPolicyProof, pkg.Witness, witnessCheck, nil, tally)

	events, diffs := decodeSimulationEffects(pkg)

	call := interpret.DecodeRawCall(pkg.Transaction.To, pkg.Transaction.Operation, pkg.Transaction.Data, pkg.Transaction.Value, pkg.ChainID, common.Address{}, pkg.SafeAddress)
	registry := interpret.NewRegistry(interpret.GetGlobalIndex())
	interpretation, _ := registry.Interpret(call, nil)

	remaining, ambiguities := correlate.ComputeRemainingApprovals(events, diffs)

	return Report{
		SafeAddress:        pkg.SafeAddress.Hex(),
		SafeTxHash:         pkg.SafeTxHash.Hex(),
		ChainID:            pkg.ChainID,
		Decision:           decision,
		ExportMode:         exportModeOf(pkg.ExportContract),
		Witness:            witnessCheck,
		Interpretation:     interpretation,
		Events:             events,
		BalanceChanges:     correlate.CorrelateBalances(events, diffs),
		Allowances:         correlate.CorrelateAllowances(events, diffs),
		RemainingApprovals: remaining,
		Ambiguities:        ambiguities,
	}
}

// decodeSimulationEffects decodes a packaged simulation's raw logs into
// Safe-relative events (§4.F) and re-expresses its state diffs in
// pkg/correlate's terms (§4.G); both are empty when no simulation was
// packaged. No token-metadata lookup is available offline, so amounts
// format at the 18-decimal, symbol-less default.
func decodeSimulationEffects(pkg evidence.Package) ([]decode.Event, []correlate.StateDiff) {
	if pkg.Simulation == nil {
		return nil, nil
	}

	var events []decode.Event
	for _, log := range pkg.Simulation.Logs {
		decoded, ok := decode.DecodeLog(toDecodeLog(log), pkg.SafeAddress, nil)
		if !ok {
			continue
		}
		events = append(events, decoded...)
	}

	diffs := make([]correlate.StateDiff, len(pkg.Simulation.StateDiffs))
	for i, d := range pkg.Simulation.StateDiffs {
		diffs[i] = correlate.StateDiff{Address: d.Address, Key: d.Key, Before: d.Before, After: d.After}
	}

	return events, diffs
}

func toDecodeLog(l simulation.Log) decode.Log {
	return decode.Log{Address: l.Address, Topics: l.Topics, Data: l.Data}
}

func exportModeOf(c *evidence.ExportContract) string {
	if c == nil {
		return ""
	}
	return string(c.Mode)
}
