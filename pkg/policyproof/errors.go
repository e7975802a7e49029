package policyproof

import "errors"

// Sentinel errors a caller branches on with errors.Is.
var (
	ErrUnsupportedChain   = errors.New("policyproof: unsupported chain")
	ErrPendingBlock       = errors.New("policyproof: pending block rejected")
	ErrRPCUnavailable     = errors.New("policyproof: rpc unavailable")
	ErrLinkedListOverflow = errors.New("policyproof: sentinel linked-list walk exceeded its bound")
)
