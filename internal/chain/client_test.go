package chain

import (
	"context"
	"testing"

	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDial(t *testing.T) {
	registry := NewRegistry(map[configs.ChainName]configs.Chain{
		configs.ChainNameBase: {ID: 8453, RPCURL: "http://127.0.0.1:8545", UserFacing: true},
		"no-rpc":              {ID: 5},
	})

	client, entry, err := registry.Dial(context.Background(), 8453)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	assert.Equal(t, configs.ChainNameBase, entry.Name)

	_, _, err = registry.Dial(context.Background(), 1)
	assert.ErrorContains(t, err, "not configured")

	_, _, err = registry.Dial(context.Background(), 5)
	assert.ErrorContains(t, err, "no rpc-url")
}
