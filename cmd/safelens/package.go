package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/safelens/evidence/pkg/config"
	"github.com/safelens/evidence/pkg/evidence"
	"github.com/safelens/evidence/pkg/exportcontract"
	"github.com/safelens/evidence/pkg/obsmetrics"
	"github.com/safelens/evidence/pkg/pkgurl"
	"github.com/safelens/evidence/pkg/rpc"
)

func runPackage(args []string) error {
	fs := flag.NewFlagSet("package", flag.ExitOnError)
	rpcURL := fs.String("rpc-url", "", "JSON-RPC endpoint (defaults to SAFELENS_RPC_URL)")
	blockFlag := fs.String("block", "latest", "finalized|safe|latest|<number>")
	outPath := fs.String("out", "", "output path for the evidence package JSON (defaults to stdout)")
	dtoPath := fs.String("dto", "", "path to the indexer-supplied transaction DTO JSON (required)")
	metricsAddr := fs.String("metrics-addr", "", "if set, serve Prometheus metrics at this address while packaging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("package: missing <safe-url> argument")
	}
	if *dtoPath == "" {
		return fmt.Errorf("package: --dto is required (fetching the transaction from a remote indexer is out of scope)")
	}

	urlResult, err := pkgurl.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("package: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("package: %w", err)
	}
	if *rpcURL != "" {
		cfg.RPCURL = *rpcURL
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("package: no RPC URL (set --rpc-url or SAFELENS_RPC_URL)")
	}

	if err := installDescriptors(cfg.DescriptorIndexPath); err != nil {
		return fmt.Errorf("package: %w", err)
	}

	dto, err := loadDTO(*dtoPath)
	if err != nil {
		return fmt.Errorf("package: %w", err)
	}
	if dto.SafeAddress != urlResult.SafeAddress {
		return fmt.Errorf("package: dto safe address %s does not match url safe address %s", dto.SafeAddress.Hex(), urlResult.SafeAddress.Hex())
	}
	if dto.ChainID != urlResult.ChainID {
		return fmt.Errorf("package: dto chain id %d does not match url chain id %d", dto.ChainID, urlResult.ChainID)
	}
	if urlResult.SafeTxHash != nil && dto.SafeTxHash != *urlResult.SafeTxHash {
		return fmt.Errorf("package: dto safeTxHash %s does not match url safeTxHash %s", dto.SafeTxHash.Hex(), urlResult.SafeTxHash.Hex())
	}

	pkg, err := evidence.CreatePackage(dto)
	if err != nil {
		return fmt.Errorf("package: %w", err)
	}

	var metrics *obsmetrics.Metrics
	if *metricsAddr != "" {
		metrics = startMetricsServer(*metricsAddr)
	}

	ctx := context.Background()
	client, err := rpc.Dial(ctx, cfg.RPCURL, new(big.Int).SetUint64(dto.ChainID))
	if err != nil {
		return fmt.Errorf("package: connect to rpc: %w", err)
	}

	blockRef, err := parseBlockFlag(*blockFlag)
	if err != nil {
		return fmt.Errorf("package: %w", err)
	}

	attempt := exportcontract.Attempt{ConsensusModeDisabled: true}

	enriched, err := evidence.EnrichWithOnchainProof(ctx, client, pkg, evidence.PolicyProofOptions{Block: blockRef})
	if err != nil {
		if _, ok := err.(*evidence.AlignmentError); ok {
			return fmt.Errorf("package: %w", err)
		}
		attempt.PolicyProofFetchErr = err
		recordProofFetch(metrics, "policy", "error")
	} else {
		pkg = enriched
		recordProofFetch(metrics, "policy", "ok")
	}

	enriched, err = evidence.EnrichWithSimulation(ctx, client, pkg, evidence.SimulationOptions{
		Block:        blockRef,
		CollectTrace: true,
		CollectDiffs: true,
	})
	if err != nil {
		attempt.SimulationFetchErr = err
		recordProofFetch(metrics, "simulation", "error")
	} else {
		pkg = enriched
		recordProofFetch(metrics, "simulation", "ok")
	}

	contract := exportcontract.Finalize(pkg, attempt)
	pkg.ExportContract = &contract

	out, err := evidence.MarshalPackage(pkg)
	if err != nil {
		return fmt.Errorf("package: marshal package: %w", err)
	}

	if *outPath == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(*outPath, out, 0o644)
}

func loadDTO(path string) (evidence.IndexerDTO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evidence.IndexerDTO{}, fmt.Errorf("read dto: %w", err)
	}
	dto, err := evidence.UnmarshalIndexerDTO(data)
	if err != nil {
		return evidence.IndexerDTO{}, fmt.Errorf("parse dto: %w", err)
	}
	return dto, nil
}

func parseBlockFlag(s string) (rpc.BlockRef, error) {
	switch s {
	case "", "latest":
		return rpc.BlockRef{Tag: rpc.TagLatest}, nil
	case "finalized":
		return rpc.BlockRef{Tag: rpc.TagFinalized}, nil
	case "safe":
		return rpc.BlockRef{Tag: rpc.TagSafe}, nil
	default:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return rpc.BlockRef{}, fmt.Errorf("invalid --block %q: want finalized|safe|latest|<number>", s)
		}
		return rpc.AtNumber(n), nil
	}
}

func startMetricsServer(addr string) *obsmetrics.Metrics {
	m := obsmetrics.New(prometheus.DefaultRegisterer)
	mux := http.NewServeMux()
	mux.Handle("/metrics", obsmetrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return m
}

func recordProofFetch(m *obsmetrics.Metrics, kind, outcome string) {
	if m != nil {
		m.RecordProofFetch(kind, outcome)
	}
}
