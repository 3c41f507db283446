package chain

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/onchain-coinflip/coinflip/configs"
)

type (
	// Entry is one row of the chain table.
	Entry struct {
		Name        configs.ChainName
		ID          uint64
		RPCURL      string
		Contract    common.Address
		ExplorerURL string
		UserFacing  bool
	}

	// Registry is an immutable lookup from chain id to the CoinFlip deployment on it.
	Registry struct {
		entries map[uint64]Entry
	}
)

// NewRegistry snapshots the configured chains. Later changes to chains do not
// leak into the registry.
func NewRegistry(chains map[configs.ChainName]configs.Chain) *Registry {
	entries := make(map[uint64]Entry, len(chains))
	for name, c := range chains {
		var contract common.Address
		if common.IsHexAddress(c.ContractAddress) {
			contract = common.HexToAddress(c.ContractAddress)
		}
		entries[c.ID] = Entry{
			Name:        name,
			ID:          c.ID,
			RPCURL:      c.RPCURL,
			Contract:    contract,
			ExplorerURL: c.ExplorerURL,
			UserFacing:  c.UserFacing,
		}
	}
	return &Registry{entries: entries}
}

// AddressFor returns the contract address deployed on chainID. The zero address
// counts as "not deployed".
func (r *Registry) AddressFor(chainID uint64) (common.Address, bool) {
	entry, ok := r.entries[chainID]
	if !ok || entry.Contract == (common.Address{}) {
		return common.Address{}, false
	}
	return entry.Contract, true
}

// IsSupported reports whether chainID is offered to players. Legacy chains are
// resolvable through AddressFor but are never supported.
func (r *Registry) IsSupported(chainID uint64) bool {
	entry, ok := r.entries[chainID]
	return ok && entry.UserFacing
}

func (r *Registry) Lookup(chainID uint64) (Entry, bool) {
	entry, ok := r.entries[chainID]
	return entry, ok
}

// Supported lists user-facing chains ordered by chain id.
func (r *Registry) Supported() []Entry {
	var out []Entry
	for _, entry := range r.entries {
		if entry.UserFacing {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All lists every known chain ordered by chain id.
func (r *Registry) All() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
