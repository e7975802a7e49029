package rpc

import "errors"

// Sentinel errors from the RPC capability boundary. The core never retries
// or swallows these; it propagates them (URL-redacted where surfaced) to
// the caller.
var (
	ErrUnsupportedChain = errors.New("rpc: unsupported chain")
	ErrPendingBlock     = errors.New("rpc: pending block rejected")
	ErrUnavailable      = errors.New("rpc: endpoint unavailable")
)
