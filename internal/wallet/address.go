package wallet

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/onchain-coinflip/coinflip/configs"
)

var ErrNoAccount = errors.New("no wallet account configured: set wallet.address or wallet.private-key")

// ConfiguredAddress prefers wallet.address and falls back to the address of
// wallet.private-key.
func ConfiguredAddress(cfg configs.Wallet) (common.Address, error) {
	if cfg.Address != "" {
		if !common.IsHexAddress(cfg.Address) {
			return common.Address{}, errors.New("wallet.address is not a hex address")
		}
		return common.HexToAddress(cfg.Address), nil
	}
	if cfg.PrivateKey != "" {
		key, err := ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return common.Address{}, err
		}
		return crypto.PubkeyToAddress(key.PublicKey), nil
	}
	return common.Address{}, ErrNoAccount
}
