package simulation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/safelens/evidence/pkg/evmsafe/hashing"
)

// execTransactionSelector is the 4-byte selector for
// execTransaction(address,uint256,bytes,uint8,uint256,uint256,uint256,address,address,bytes).
var execTransactionSelector = crypto.Keccak256(
	[]byte("execTransaction(address,uint256,bytes,uint8,uint256,uint256,uint256,address,address,bytes)"),
)[:4]

func word(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

func wordBig(v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	return word(v.Bytes())
}

// padTo32 right-pads b to the next multiple of 32 bytes, matching the ABI
// tail encoding for dynamic bytes values.
func padTo32(b []byte) []byte {
	rem := len(b) % 32
	if rem == 0 {
		return b
	}
	return append(append([]byte{}, b...), make([]byte, 32-rem)...)
}

// EncodeExecTransaction ABI-encodes a call to the Safe's execTransaction
// with tx's fields and the given forged signature as the sole entry in the
// signatures bytes parameter.
func EncodeExecTransaction(tx hashing.Transaction, signature []byte) []byte {
	const numParams = 10
	head := make([]byte, 0, numParams*32)
	var tail []byte

	head = append(head, word(tx.To.Bytes())...)
	head = append(head, wordBig(tx.Value)...)

	dataOffset := numParams * 32
	head = append(head, wordBig(big.NewInt(int64(dataOffset)))...)

	head = append(head, word([]byte{byte(tx.Operation)})...)
	head = append(head, wordBig(tx.SafeTxGas)...)
	head = append(head, wordBig(tx.BaseGas)...)
	head = append(head, wordBig(tx.GasPrice)...)
	head = append(head, word(tx.GasToken.Bytes())...)
	head = append(head, word(tx.RefundReceiver.Bytes())...)

	dataTail := encodeBytesTail(tx.Data)
	sigOffset := dataOffset + len(dataTail)
	head = append(head, wordBig(big.NewInt(int64(sigOffset)))...)

	tail = append(tail, dataTail...)
	tail = append(tail, encodeBytesTail(signature)...)

	out := make([]byte, 0, 4+len(head)+len(tail))
	out = append(out, execTransactionSelector...)
	out = append(out, head...)
	out = append(out, tail...)
	return out
}

func encodeBytesTail(b []byte) []byte {
	out := wordBig(big.NewInt(int64(len(b))))
	out = append(out, padTo32(b)...)
	return out
}
