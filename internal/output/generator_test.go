package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/onchain-coinflip/coinflip/internal/chain"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const deployed = "0x00000000000000000000000000000000C0FFEE01"

func testGenerator(paymasterURL string) *Generator {
	registry := chain.NewRegistry(map[configs.ChainName]configs.Chain{
		configs.ChainNameBase:        {ID: 8453, RPCURL: "https://mainnet.base.org", ContractAddress: deployed, UserFacing: true},
		configs.ChainNameBaseSepolia: {ID: 84532, RPCURL: "https://sepolia.base.org"},
	})
	return NewGenerator(registry, sponsorship.NewEvaluator(paymasterURL), 3)
}

func TestGeneratorModel(t *testing.T) {
	model := testGenerator("https://paymaster.example").Model()

	base := model.CoinFlip.Chains[configs.ChainNameBase]
	assert.Equal(t, uint64(8453), base.ID)
	assert.True(t, base.UserFacing)
	assert.True(t, strings.EqualFold(deployed, base.Address))

	sepolia := model.CoinFlip.Chains[configs.ChainNameBaseSepolia]
	assert.Empty(t, sepolia.Address)
	assert.False(t, sepolia.UserFacing)

	assert.Equal(t, uint64(3), model.CoinFlip.Contract.DailyFreeFlips)
	assert.NotContains(t, string(model.CoinFlip.Contract.ABI), "\n")
	assert.True(t, model.CoinFlip.Sponsorship.Configured)
}

func TestGeneratorWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, testGenerator("").Generate(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "abi: '[")
	assert.NotContains(t, string(data), "private")

	var decoded Model
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Len(t, decoded.CoinFlip.Chains, 2)
	assert.False(t, decoded.CoinFlip.Sponsorship.Configured)
	assert.Equal(t, sponsorship.Provider, decoded.CoinFlip.Sponsorship.Provider)
}
