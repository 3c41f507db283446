package output

import (
	"github.com/onchain-coinflip/coinflip/configs"
	"gopkg.in/yaml.v3"
)

type (
	Model struct {
		CoinFlip CoinFlip `yaml:"coinflip"`
	}
	CoinFlip struct {
		Chains      map[configs.ChainName]ChainConfig `yaml:"chains"`
		Contract    ContractConfig                    `yaml:"contract"`
		Sponsorship Sponsorship                       `yaml:"sponsorship"`
	}
	ChainConfig struct {
		ID          uint64 `yaml:"id"`
		RPCURL      string `yaml:"rpc-url"`
		ExplorerURL string `yaml:"explorer-url,omitempty"`
		UserFacing  bool   `yaml:"user-facing"`
		Address     string `yaml:"address,omitempty"`
	}

	ContractConfig struct {
		DailyFreeFlips uint64             `yaml:"daily-free-flips"`
		ABI            SingleQuotedString `yaml:"abi"`
	}

	Sponsorship struct {
		Provider   string `yaml:"provider"`
		Configured bool   `yaml:"configured"`
		Docs       string `yaml:"docs"`
	}

	SingleQuotedString string
)

func (s SingleQuotedString) MarshalYAML() (any, error) {
	node := &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.SingleQuotedStyle,
		Value: string(s),
	}
	return node, nil
}
