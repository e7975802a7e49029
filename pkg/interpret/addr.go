package interpret

import "github.com/ethereum/go-ethereum/common"

func addrTo20(a common.Address) [20]byte {
	return [20]byte(a)
}

func addrFrom20(a [20]byte) common.Address {
	return common.Address(a)
}
