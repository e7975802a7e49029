// Package decode turns raw EVM logs and call-trace frames into the typed,
// Safe-relative events the interpreter and correlator consume: ERC-20/721/
// 1155 transfers and approvals, WETH wrap/unwrap, and plain native-value
// transfers.
package decode

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Kind enumerates the event shapes this package recognizes.
type Kind string

const (
	KindERC20Transfer  Kind = "erc20-transfer"
	KindERC721Transfer Kind = "erc721-transfer"
	KindERC20Approval  Kind = "erc20-approval"
	KindERC1155Single  Kind = "erc1155-transfer-single"
	KindERC1155Batch   Kind = "erc1155-transfer-batch"
	KindWETHDeposit    Kind = "weth-deposit"
	KindWETHWithdrawal Kind = "weth-withdrawal"
)

// Direction is computed relative to the Safe address under inspection.
type Direction string

const (
	DirectionSend     Direction = "send"
	DirectionReceive  Direction = "receive"
	DirectionInternal Direction = "internal"
)

// TokenMetadata is the optional symbol/decimals pair a caller can supply for
// amount formatting; decoding proceeds without it (decimals default to 18,
// symbol left empty) since fetching it is an RPC call outside this
// package's scope.
type TokenMetadata struct {
	Symbol   string
	Decimals uint8
}

// MetadataLookup resolves a token's metadata, if known.
type MetadataLookup func(token common.Address) (TokenMetadata, bool)

// Event is one decoded log, normalized to the shape every consumer expects.
type Event struct {
	Kind            Kind
	Token           common.Address
	TokenSymbol     string
	TokenDecimals   uint8
	AmountRaw       *big.Int
	AmountFormatted string
	From            common.Address
	To              common.Address
	Direction       Direction
	TokenID         *big.Int // set for ERC-721 and ERC-1155 transfers
}

// Log is the minimal raw-log shape this package decodes from; callers adapt
// their RPC client's log type to this.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

var (
	transferSig       = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	approvalSig       = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
	transferSingleSig = crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)"))
	transferBatchSig  = crypto.Keccak256Hash([]byte("TransferBatch(address,address,address,uint256[],uint256[])"))
	depositSig        = crypto.Keccak256Hash([]byte("Deposit(address,uint256)"))
	withdrawalSig     = crypto.Keccak256Hash([]byte("Withdrawal(address,uint256)"))
)

const word = 32

// DecodeLog decodes a single raw log relative to safe, returning zero or
// more events (TransferBatch can emit several). Malformed data is skipped
// silently: the second return is false and the slice is nil.
func DecodeLog(log Log, safe common.Address, lookup MetadataLookup) ([]Event, bool) {
	if len(log.Topics) == 0 {
		return nil, false
	}

	switch log.Topics[0] {
	case transferSig:
		return decodeTransfer(log, safe, lookup)
	case approvalSig:
		return decodeApproval(log, safe, lookup)
	case transferSingleSig:
		return decodeTransferSingle(log, safe, lookup)
	case transferBatchSig:
		return decodeTransferBatch(log, safe, lookup)
	case depositSig:
		return decodeDeposit(log, safe, lookup)
	case withdrawalSig:
		return decodeWithdrawal(log, safe, lookup)
	default:
		return nil, false
	}
}

func metadata(token common.Address, lookup MetadataLookup) (string, uint8) {
	if lookup == nil {
		return "", 18
	}
	if m, ok := lookup(token); ok {
		return m.Symbol, m.Decimals
	}
	return "", 18
}

func direction(safe, from, to common.Address) Direction {
	switch {
	case from == safe && to == safe:
		return DirectionInternal
	case from == safe:
		return DirectionSend
	case to == safe:
		return DirectionReceive
	default:
		return DirectionInternal
	}
}

func topicAddress(t common.Hash) common.Address {
	return common.BytesToAddress(t.Bytes())
}

func decodeTransfer(log Log, safe common.Address, lookup MetadataLookup) ([]Event, bool) {
	switch len(log.Topics) {
	case 3:
		if len(log.Data) < word {
			return nil, false
		}
		from := topicAddress(log.Topics[1])
		to := topicAddress(log.Topics[2])
		amount := new(big.Int).SetBytes(log.Data[:word])
		symbol, decimals := metadata(log.Address, lookup)
		return []Event{{
			Kind:            KindERC20Transfer,
			Token:           log.Address,
			TokenSymbol:     symbol,
			TokenDecimals:   decimals,
			AmountRaw:       amount,
			AmountFormatted: FormatAmount(amount, decimals),
			From:            from,
			To:              to,
			Direction:       direction(safe, from, to),
		}}, true
	case 4:
		from := topicAddress(log.Topics[1])
		to := topicAddress(log.Topics[2])
		tokenID := new(big.Int).SetBytes(log.Topics[3].Bytes())
		return []Event{{
			Kind:            KindERC721Transfer,
			Token:           log.Address,
			AmountRaw:       big.NewInt(1),
			AmountFormatted: "1",
			From:            from,
			To:              to,
			Direction:       direction(safe, from, to),
			TokenID:         tokenID,
		}}, true
	default:
		return nil, false
	}
}

func decodeApproval(log Log, safe common.Address, lookup MetadataLookup) ([]Event, bool) {
	if len(log.Topics) != 3 || len(log.Data) < word {
		return nil, false
	}
	owner := topicAddress(log.Topics[1])
	spender := topicAddress(log.Topics[2])
	amount := new(big.Int).SetBytes(log.Data[:word])
	symbol, decimals := metadata(log.Address, lookup)
	return []Event{{
		Kind:            KindERC20Approval,
		Token:           log.Address,
		TokenSymbol:     symbol,
		TokenDecimals:   decimals,
		AmountRaw:       amount,
		AmountFormatted: FormatAmount(amount, decimals),
		From:            owner,
		To:              spender,
		Direction:       direction(safe, owner, spender),
	}}, true
}

func decodeTransferSingle(log Log, safe common.Address, lookup MetadataLookup) ([]Event, bool) {
	if len(log.Topics) != 4 || len(log.Data) < 2*word {
		return nil, false
	}
	from := topicAddress(log.Topics[2])
	to := topicAddress(log.Topics[3])
	id := new(big.Int).SetBytes(log.Data[:word])
	value := new(big.Int).SetBytes(log.Data[word : 2*word])
	return []Event{{
		Kind:            KindERC1155Single,
		Token:           log.Address,
		AmountRaw:       value,
		AmountFormatted: FormatAmount(value, 0),
		From:            from,
		To:              to,
		Direction:       direction(safe, from, to),
		TokenID:         id,
	}}, true
}

// decodeTransferBatch decodes TransferBatch's two dynamic uint256[] array
// parameters: two 32-byte offset words pointing into data at the length-
// prefixed ids and values arrays.
func decodeTransferBatch(log Log, safe common.Address, lookup MetadataLookup) ([]Event, bool) {
	if len(log.Topics) != 4 || len(log.Data) < 2*word {
		return nil, false
	}
	from := topicAddress(log.Topics[2])
	to := topicAddress(log.Topics[3])

	idsOff := new(big.Int).SetBytes(log.Data[:word]).Int64()
	valsOff := new(big.Int).SetBytes(log.Data[word : 2*word]).Int64()

	ids, ok := decodeDynamicArray(log.Data, idsOff)
	if !ok {
		return nil, false
	}
	values, ok := decodeDynamicArray(log.Data, valsOff)
	if !ok {
		return nil, false
	}
	if len(ids) != len(values) {
		return nil, false
	}

	events := make([]Event, 0, len(ids))
	for i := range ids {
		events = append(events, Event{
			Kind:            KindERC1155Batch,
			Token:           log.Address,
			AmountRaw:       values[i],
			AmountFormatted: FormatAmount(values[i], 0),
			From:            from,
			To:              to,
			Direction:       direction(safe, from, to),
			TokenID:         ids[i],
		})
	}
	return events, true
}

func decodeDynamicArray(data []byte, offset int64) ([]*big.Int, bool) {
	if offset < 0 || int64(len(data)) < offset+word {
		return nil, false
	}
	length := new(big.Int).SetBytes(data[offset : offset+word]).Int64()
	if length < 0 || length > 1<<20 {
		return nil, false
	}
	start := offset + word
	end := start + length*word
	if int64(len(data)) < end {
		return nil, false
	}
	out := make([]*big.Int, length)
	for i := int64(0); i < length; i++ {
		lo := start + i*word
		out[i] = new(big.Int).SetBytes(data[lo : lo+word])
	}
	return out, true
}

func decodeDeposit(log Log, safe common.Address, lookup MetadataLookup) ([]Event, bool) {
	if len(log.Topics) != 2 || len(log.Data) < word {
		return nil, false
	}
	to := topicAddress(log.Topics[1])
	amount := new(big.Int).SetBytes(log.Data[:word])
	return []Event{{
		Kind:            KindWETHDeposit,
		Token:           log.Address,
		AmountRaw:       amount,
		AmountFormatted: FormatAmount(amount, 18),
		To:              to,
		Direction:       direction(safe, common.Address{}, to),
	}}, true
}

func decodeWithdrawal(log Log, safe common.Address, lookup MetadataLookup) ([]Event, bool) {
	if len(log.Topics) != 2 || len(log.Data) < word {
		return nil, false
	}
	from := topicAddress(log.Topics[1])
	amount := new(big.Int).SetBytes(log.Data[:word])
	return []Event{{
		Kind:            KindWETHWithdrawal,
		Token:           log.Address,
		AmountRaw:       amount,
		AmountFormatted: FormatAmount(amount, 18),
		From:            from,
		Direction:       direction(safe, from, common.Address{}),
	}}, true
}
