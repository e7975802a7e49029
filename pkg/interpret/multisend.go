package interpret

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// innerCall is one transaction packed inside a Safe multiSend call.
type innerCall struct {
	Operation uint8
	To        common.Address
	Value     *big.Int
	Data      []byte
}

// decodeMultiSend unpacks multiSend's single bytes argument: a tightly
// packed, back-to-back sequence of (operation uint8, to address, value
// uint256, dataLength uint256, data bytes) tuples with no padding between
// entries, per the MultiSendCallOnly contract's documented layout.
func decodeMultiSend(packed []byte) ([]innerCall, bool) {
	var out []innerCall
	i := 0
	for i < len(packed) {
		if i+1+20+32+32 > len(packed) {
			return nil, false
		}
		op := packed[i]
		i++
		to := common.BytesToAddress(packed[i : i+20])
		i += 20
		value := new(big.Int).SetBytes(packed[i : i+32])
		i += 32
		length := new(big.Int).SetBytes(packed[i : i+32]).Uint64()
		i += 32
		if i+int(length) > len(packed) {
			return nil, false
		}
		data := packed[i : i+int(length)]
		i += int(length)
		out = append(out, innerCall{Operation: op, To: to, Value: value, Data: data})
	}
	return out, true
}

func word32At(data []byte, offset uint64) ([]byte, bool) {
	if offset+32 > uint64(len(data)) {
		return nil, false
	}
	return data[offset : offset+32], true
}

func uint64At(data []byte, offset uint64) (uint64, bool) {
	w, ok := word32At(data, offset)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint64(w[24:32]), true
}

func bigAt(data []byte, offset uint64) (*big.Int, bool) {
	w, ok := word32At(data, offset)
	if !ok {
		return nil, false
	}
	return new(big.Int).SetBytes(w), true
}

func addressAt(data []byte, offset uint64) (common.Address, bool) {
	w, ok := word32At(data, offset)
	if !ok {
		return common.Address{}, false
	}
	return common.BytesToAddress(w[12:32]), true
}

// bytesAt reads a dynamic ABI bytes value whose length-prefix word begins
// at offset: a uint256 length followed by that many content bytes,
// right-padded to a 32-byte boundary (the padding is ignored by callers).
func bytesAt(data []byte, offset uint64) ([]byte, bool) {
	n, ok := uint64At(data, offset)
	if !ok {
		return nil, false
	}
	start := offset + 32
	if start+n > uint64(len(data)) {
		return nil, false
	}
	return data[start : start+n], true
}
