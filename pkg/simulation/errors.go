package simulation

import "errors"

// Sentinel errors a caller branches on with errors.Is.
var (
	ErrUnsupportedChain = errors.New("simulation: chain does not support simulation")
	ErrPendingBlock     = errors.New("simulation: pending block rejected")
	ErrRPCUnavailable   = errors.New("simulation: rpc unavailable")
)
