package ledger

import (
	"github.com/ethereum/go-ethereum/common"
)

type AssetKind string

const (
	AssetNative AssetKind = "native"
	AssetToken  AssetKind = "token"
)

// Asset tags the value kind moved by the engine: the native coin or a
// designated fungible token
type Asset struct {
	Kind  AssetKind
	Token common.Address
}

func Native() Asset {
	return Asset{Kind: AssetNative}
}

func Token(addr common.Address) Asset {
	return Asset{Kind: AssetToken, Token: addr}
}

func (a Asset) IsNative() bool {
	return a.Kind == AssetNative
}

func (a Asset) String() string {
	if a.IsNative() {
		return string(AssetNative)
	}
	return string(AssetToken) + ":" + a.Token.Hex()
}
