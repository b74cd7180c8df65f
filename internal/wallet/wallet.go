package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"gitlab.com/GigFlow/settlement-node/internal/interop"
)

// AuthorityWallet holds the identity of the platform authority, the only
// party allowed to mint reputation credentials directly
type AuthorityWallet struct {
	address    interop.BlockchainAddress
	privateKey string
}

func NewAuthorityWalletFromMnemonic(mnemonic string, accountIndex int) (*AuthorityWallet, error) {
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	path := hdwallet.MustParseDerivationPath(fmt.Sprintf("m/44'/60'/0'/0/%d", accountIndex))

	account, err := wallet.Derive(path, false)
	if err != nil {
		return nil, err
	}

	address, err := wallet.Address(account)
	if err != nil {
		return nil, err
	}

	privateKey, err := wallet.PrivateKeyHex(account)
	if err != nil {
		return nil, err
	}

	return &AuthorityWallet{
		address:    address,
		privateKey: privateKey,
	}, nil
}

func NewAuthorityWalletFromPrivateKey(privateKey string) (*AuthorityWallet, error) {
	key, err := crypto.HexToECDSA(privateKey)
	if err != nil {
		return nil, err
	}

	return &AuthorityWallet{
		address:    crypto.PubkeyToAddress(key.PublicKey),
		privateKey: privateKey,
	}, nil
}

func (wallet *AuthorityWallet) GetAccountAddress() interop.BlockchainAddress {
	return wallet.address
}

func (wallet *AuthorityWallet) GetPrivateKey() string {
	return wallet.privateKey
}
