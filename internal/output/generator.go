package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/onchain-coinflip/coinflip/internal/chain"
	"github.com/onchain-coinflip/coinflip/internal/contract"
	"github.com/onchain-coinflip/coinflip/internal/logger"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
	"gopkg.in/yaml.v3"
)

const DefaultFileName = "coinflip.yaml"

// Generator renders the deployment registry for frontends and scripts. Keys
// never leave the process; only public chain data is written.
type Generator struct {
	registry  *chain.Registry
	evaluator *sponsorship.Evaluator
	daily     uint64
	logger    *slog.Logger
}

func NewGenerator(registry *chain.Registry, evaluator *sponsorship.Evaluator, dailyFreeFlips uint64) *Generator {
	return &Generator{
		registry:  registry,
		evaluator: evaluator,
		daily:     dailyFreeFlips,
		logger:    logger.Named("output_generator"),
	}
}

func (g *Generator) Model() *Model {
	chains := make(map[configs.ChainName]ChainConfig)
	for _, entry := range g.registry.All() {
		cfg := ChainConfig{
			ID:          entry.ID,
			RPCURL:      entry.RPCURL,
			ExplorerURL: entry.ExplorerURL,
			UserFacing:  entry.UserFacing,
		}
		if address, ok := g.registry.AddressFor(entry.ID); ok {
			cfg.Address = address.Hex()
		}
		chains[entry.Name] = cfg
	}

	return &Model{
		CoinFlip: CoinFlip{
			Chains: chains,
			Contract: ContractConfig{
				DailyFreeFlips: g.daily,
				ABI:            SingleQuotedString(compactJSON(contract.RawABI)),
			},
			Sponsorship: Sponsorship{
				Provider:   sponsorship.Provider,
				Configured: g.evaluator.Configured(),
				Docs:       sponsorship.DocsURL,
			},
		},
	}
}

func (g *Generator) Generate(path string) error {
	data, err := yaml.Marshal(g.Model())
	if err != nil {
		return fmt.Errorf("could not marshal output model. Err: '%w'", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write output file. Err: '%w'", err)
	}

	g.logger.With("path", path).Info("deployment registry written")

	return nil
}

func compactJSON(jsonStr string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(jsonStr)); err != nil {
		return jsonStr
	}
	return buf.String()
}
