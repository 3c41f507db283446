package configs

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var Values Config

type (
	ChainName string

	Config struct {
		Chains    map[ChainName]Chain `mapstructure:"chains"`
		Paymaster Paymaster           `mapstructure:"paymaster"`
		Wallet    Wallet              `mapstructure:"wallet"`
		Game      Game                `mapstructure:"game"`
		Webhook   Webhook             `mapstructure:"webhook"`
		DevChain  DevChain            `mapstructure:"devchain"`
	}

	Chain struct {
		ID              uint64 `mapstructure:"id"`
		RPCURL          string `mapstructure:"rpc-url"`
		ContractAddress string `mapstructure:"contract-address"`
		ExplorerURL     string `mapstructure:"explorer-url"`
		// UserFacing chains are offered to players. Others stay resolvable for
		// backward compatibility only.
		UserFacing bool `mapstructure:"user-facing"`
	}

	Paymaster struct {
		URL string `mapstructure:"url"`
	}

	Wallet struct {
		PrivateKey string `mapstructure:"private-key"`
		Address    string `mapstructure:"address"`
		RPCURL     string `mapstructure:"rpc-url"`
	}

	Game struct {
		ChainID        uint64        `mapstructure:"chain-id"`
		FlipDelay      time.Duration `mapstructure:"flip-delay"`
		DailyWindow    time.Duration `mapstructure:"daily-window"`
		DailyFreeFlips uint64        `mapstructure:"daily-free-flips"`
		PollInterval   time.Duration `mapstructure:"poll-interval"`
		Confirmations  uint64        `mapstructure:"confirmations"`
	}

	Webhook struct {
		ListenAddress string `mapstructure:"listen-address"`
	}

	DevChain struct {
		Image         string `mapstructure:"image"`
		Port          int    `mapstructure:"port"`
		ChainID       uint64 `mapstructure:"chain-id"`
		ContainerName string `mapstructure:"container-name"`
	}
)

const (
	ChainNameBase        ChainName = "base"
	ChainNameBaseSepolia ChainName = "base-sepolia"
)

// ChainByID returns the configured chain carrying the given chain id.
func (c *Config) ChainByID(id uint64) (ChainName, Chain, bool) {
	for name, chain := range c.Chains {
		if chain.ID == id {
			return name, chain, true
		}
	}
	return "", Chain{}, false
}

func (c *Config) Validate() error {
	var errs []error

	if len(c.Chains) == 0 {
		errs = append(errs, errors.New("chains is required"))
	}

	seen := make(map[uint64]ChainName, len(c.Chains))
	userFacing := 0
	for name, chain := range c.Chains {
		if chain.ID == 0 {
			errs = append(errs, fmt.Errorf("chains.%s.id is required", name))
		}
		if other, dup := seen[chain.ID]; dup && chain.ID != 0 {
			errs = append(errs, fmt.Errorf("chains.%s.id duplicates chains.%s.id", name, other))
		}
		seen[chain.ID] = name
		if chain.RPCURL == "" {
			errs = append(errs, fmt.Errorf("chains.%s.rpc-url is required", name))
		}
		if chain.ContractAddress != "" && !common.IsHexAddress(chain.ContractAddress) {
			errs = append(errs, fmt.Errorf("chains.%s.contract-address is not a hex address", name))
		}
		if chain.UserFacing {
			userFacing++
		}
	}
	if len(c.Chains) > 0 && userFacing == 0 {
		errs = append(errs, errors.New("at least one chain must be user-facing"))
	}

	if c.Paymaster.URL != "" {
		if _, err := url.ParseRequestURI(c.Paymaster.URL); err != nil {
			errs = append(errs, fmt.Errorf("paymaster.url is invalid: %w", err))
		}
	}

	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		errs = append(errs, errors.New("wallet.address is not a hex address"))
	}

	if err := c.Game.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

func (g *Game) Validate() error {
	var errs []error

	if g.ChainID == 0 {
		errs = append(errs, errors.New("game.chain-id is required"))
	}
	if g.FlipDelay < 0 {
		errs = append(errs, errors.New("game.flip-delay must not be negative"))
	}
	if g.DailyWindow <= 0 {
		errs = append(errs, errors.New("game.daily-window must be greater than 0"))
	}
	if g.DailyFreeFlips == 0 {
		errs = append(errs, errors.New("game.daily-free-flips must be greater than 0"))
	}
	if g.PollInterval <= 0 {
		errs = append(errs, errors.New("game.poll-interval must be greater than 0"))
	}

	return errors.Join(errs...)
}

func (d *DevChain) Validate() error {
	var errs []error

	if d.Image == "" {
		errs = append(errs, errors.New("devchain.image is required"))
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, errors.New("devchain.port must be between 1 and 65535"))
	}
	if d.ChainID == 0 {
		errs = append(errs, errors.New("devchain.chain-id is required"))
	}
	if d.ContainerName == "" {
		errs = append(errs, errors.New("devchain.container-name is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("devchain configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}
