package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Dial connects to the RPC endpoint configured for chainID.
func (r *Registry) Dial(ctx context.Context, chainID uint64) (*ethclient.Client, Entry, error) {
	entry, ok := r.Lookup(chainID)
	if !ok {
		return nil, Entry{}, fmt.Errorf("chain %d is not configured", chainID)
	}
	if entry.RPCURL == "" {
		return nil, Entry{}, fmt.Errorf("chain %s has no rpc-url", entry.Name)
	}

	client, err := ethclient.DialContext(ctx, entry.RPCURL)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("failed to dial %s rpc: %w", entry.Name, err)
	}

	return client, entry, nil
}
