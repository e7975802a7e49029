// Package pkgurl parses a host-appointed multisig UI URL into the chain id
// and Safe address (and, when present, safeTxHash) the packaging CLI needs,
// rejecting any URL whose origin or parameters don't match the closed set
// this module understands.
package pkgurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safelens/evidence/pkg/chainreg"
)

// Errors a caller can match on.
var (
	ErrUnknownHost        = errors.New("pkgurl: unrecognized multisig UI origin")
	ErrUnknownChainPrefix = errors.New("pkgurl: unrecognized chain prefix")
	ErrMissingSafeParam   = errors.New("pkgurl: missing \"safe\" query parameter")
	ErrMalformedSafeParam = errors.New("pkgurl: malformed \"safe\" query parameter")
	ErrMalformedIDParam   = errors.New("pkgurl: malformed \"id\" query parameter")
	ErrConflictingAddress = errors.New("pkgurl: \"safe\" and \"id\" parameters name different addresses")
)

// knownHosts is the closed set of multisig UI origins this module trusts
// to interpret "safe"/"id" query parameters the way it expects.
var knownHosts = map[string]bool{
	"app.safe.global": true,
}

// isHexHash reports whether s is a 0x-prefixed 32-byte hex string, the
// shape a safeTxHash takes inside an "id" parameter.
func isHexHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Result is what the CLI needs to kick off packaging: the chain, the Safe
// address, and — if the URL named a specific pending transaction — its
// safeTxHash.
type Result struct {
	ChainID     uint64
	ChainPrefix string
	SafeAddress common.Address
	SafeTxHash  *common.Hash
}

// Parse extracts a Result from a raw multisig UI URL such as
// "https://app.safe.global/transactions/tx?safe=eth:0xAbc...&id=multisig_0xAbc..._0xHash...".
func Parse(raw string) (Result, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Result{}, fmt.Errorf("pkgurl: parse url: %w", err)
	}
	if !knownHosts[u.Host] {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownHost, u.Host)
	}

	q := u.Query()
	safeParam := q.Get("safe")
	if safeParam == "" {
		return Result{}, ErrMissingSafeParam
	}
	prefix, addrHex, ok := strings.Cut(safeParam, ":")
	if !ok || prefix == "" || addrHex == "" {
		return Result{}, fmt.Errorf("%w: %q", ErrMalformedSafeParam, safeParam)
	}
	if !common.IsHexAddress(addrHex) {
		return Result{}, fmt.Errorf("%w: %q", ErrMalformedSafeParam, safeParam)
	}
	chain, ok := chainreg.ByPrefix(prefix)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownChainPrefix, prefix, chainreg.Prefixes())
	}
	addr := common.HexToAddress(addrHex)

	res := Result{
		ChainID:     chain.ChainID,
		ChainPrefix: chain.Prefix,
		SafeAddress: addr,
	}

	idParam := q.Get("id")
	if idParam == "" {
		return res, nil
	}

	parts := strings.Split(idParam, "_")
	if len(parts) != 3 || parts[0] != "multisig" {
		return Result{}, fmt.Errorf("%w: %q", ErrMalformedIDParam, idParam)
	}
	if !common.IsHexAddress(parts[1]) {
		return Result{}, fmt.Errorf("%w: %q", ErrMalformedIDParam, idParam)
	}
	idAddr := common.HexToAddress(parts[1])
	if idAddr != addr {
		return Result{}, fmt.Errorf("%w: safe=%s id=%s", ErrConflictingAddress, addr.Hex(), idAddr.Hex())
	}
	if !isHexHash(parts[2]) {
		return Result{}, fmt.Errorf("%w: %q", ErrMalformedIDParam, idParam)
	}
	txHash := common.HexToHash(parts[2])
	res.SafeTxHash = &txHash
	return res, nil
}
