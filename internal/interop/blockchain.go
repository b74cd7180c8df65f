package interop

import (
	"github.com/ethereum/go-ethereum/common"
)

var AddressStringToSlice = common.HexToAddress

type BlockchainAddress = common.Address
type BlockchainHash = common.Hash
