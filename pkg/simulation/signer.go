package simulation

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// simulatorKeyHex is Hardhat/Anvil's deterministic account #0 private key.
// It is public, well-known, and carries no funds on any real chain; using
// it is safe precisely because it is not a secret. Simulation forges a
// signature over safeTxHash with this key and overrides the Safe's owner
// set so that ecrecover resolves to it, letting execTransaction's
// checkNSignatures pass without needing a real owner's signature.
const simulatorKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var simulatorKey *ecdsa.PrivateKey
var simulatorAddr common.Address

func init() {
	key, err := crypto.HexToECDSA(simulatorKeyHex)
	if err != nil {
		panic("simulation: invalid hardcoded simulator key: " + err.Error())
	}
	simulatorKey = key
	simulatorAddr = crypto.PubkeyToAddress(key.PublicKey)
}

// SimulatorAddress is the address execTransaction's signature check will
// recover to once the forged signature below is applied; callers use it to
// build the Safe owner-list override.
func SimulatorAddress() common.Address {
	return simulatorAddr
}

// signDigest signs a 32-byte digest with the simulator key using raw ECDSA
// over the digest — not the EIP-191 personal-sign prefixed form — because
// the Safe contract's checkNSignatures calls ecrecover(h, v, r, s) directly
// on safeTxHash. Returns a 65-byte r||s||v signature with v in {27, 28}.
func signDigest(digest [32]byte) ([]byte, error) {
	sig, err := crypto.Sign(digest[:], simulatorKey)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
