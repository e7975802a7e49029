// Package hashing computes the EIP-712 safeTxHash a Safe owner signs, bit
// for bit identical to the hash the Safe contract itself recomputes inside
// checkSignatures.
package hashing

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Operation is the Safe call type: 0 for a regular CALL, 1 for a
// DELEGATECALL.
type Operation uint8

const (
	OperationCall         Operation = 0
	OperationDelegateCall Operation = 1
)

// Domain is the EIP-712 domain a Safe signs under: its chain id and its own
// address as the verifying contract.
type Domain struct {
	ChainID           *big.Int
	VerifyingContract common.Address
}

// Transaction is the set of fields a Safe signer authorizes. It is
// immutable once packaged: the safeTxHash invariant binds every field here
// to the package's recorded hash.
type Transaction struct {
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      Operation
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          *big.Int
}

// Fixed EIP-712 type strings from the Safe contract's source. These are
// struct literals, not parsed schemas, because the Safe contract itself
// hardcodes them as Solidity string constants — there is no dynamic typed
// data schema to build here.
var (
	domainTypehash = crypto.Keccak256Hash(
		[]byte("EIP712Domain(uint256 chainId,address verifyingContract)"),
	)
	safeTxTypehash = crypto.Keccak256Hash(
		[]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"),
	)
)

func word(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

func wordBig(v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	return word(v.Bytes())
}

func wordAddr(a common.Address) []byte {
	return word(a.Bytes())
}

func wordUint8(v Operation) []byte {
	return word([]byte{byte(v)})
}

// DomainSeparator computes keccak256(abi.encode(DOMAIN_TYPEHASH, chainId,
// verifyingContract)).
func DomainSeparator(d Domain) common.Hash {
	buf := make([]byte, 0, 96)
	buf = append(buf, domainTypehash.Bytes()...)
	buf = append(buf, wordBig(d.ChainID)...)
	buf = append(buf, wordAddr(d.VerifyingContract)...)
	return crypto.Keccak256Hash(buf)
}

// StructHash computes keccak256(abi.encode(SAFE_TX_TYPEHASH, to, value,
// keccak256(data), operation, safeTxGas, baseGas, gasPrice, gasToken,
// refundReceiver, nonce)).
func StructHash(tx Transaction) common.Hash {
	dataHash := crypto.Keccak256Hash(tx.Data)

	buf := make([]byte, 0, 32*11)
	buf = append(buf, safeTxTypehash.Bytes()...)
	buf = append(buf, wordAddr(tx.To)...)
	buf = append(buf, wordBig(tx.Value)...)
	buf = append(buf, dataHash.Bytes()...)
	buf = append(buf, wordUint8(tx.Operation)...)
	buf = append(buf, wordBig(tx.SafeTxGas)...)
	buf = append(buf, wordBig(tx.BaseGas)...)
	buf = append(buf, wordBig(tx.GasPrice)...)
	buf = append(buf, wordAddr(tx.GasToken)...)
	buf = append(buf, wordAddr(tx.RefundReceiver)...)
	buf = append(buf, wordBig(tx.Nonce)...)
	return crypto.Keccak256Hash(buf)
}

// SafeTxHash computes keccak256(0x19 || 0x01 || domainSeparator ||
// structHash), the exact digest a Safe owner's signature covers and the
// digest checkNSignatures verifies via ecrecover. Pure: it never touches
// the network and is stable across languages given the same domain and
// transaction fields.
func SafeTxHash(domain Domain, tx Transaction) common.Hash {
	ds := DomainSeparator(domain)
	sh := StructHash(tx)

	buf := make([]byte, 0, 2+32+32)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, ds.Bytes()...)
	buf = append(buf, sh.Bytes()...)
	return crypto.Keccak256Hash(buf)
}
