// Package engine wires the core services together behind one DI instance:
// the token graph and deployment registry built from configuration, the
// quote/route/basket services on top, and the plan assembly entrypoints the
// HTTP layer calls.
package engine

import (
	"bytes"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/omni-route/internal/config"
	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/services/tokengraph"
)

type poolPair struct {
	a, b ethcommon.Address
}

func normalizePair(a, b ethcommon.Address) poolPair {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return poolPair{a: a, b: b}
}

// Registry is the configuration-derived view of every chain: registered
// currencies, bridge groups, hub currencies, known pools and contract
// deployments. It is built once and read-only afterwards.
type Registry struct {
	graph *tokengraph.Graph

	hubs  map[uint64][]*domain.Currency
	pools map[uint64]map[poolPair]struct{}

	quoters  map[uint64]ethcommon.Address
	routers  map[uint64]ethcommon.Address
	permit2s map[uint64]ethcommon.Address
	bridges  map[uint64]ethcommon.Address

	groups map[string][]*domain.Currency
	rpcs   map[uint64]string
}

func BuildRegistry(cfg *config.ChainsConfig) (*Registry, error) {
	r := &Registry{
		graph:    tokengraph.New(),
		hubs:     make(map[uint64][]*domain.Currency),
		pools:    make(map[uint64]map[poolPair]struct{}),
		quoters:  make(map[uint64]ethcommon.Address),
		routers:  make(map[uint64]ethcommon.Address),
		permit2s: make(map[uint64]ethcommon.Address),
		bridges:  make(map[uint64]ethcommon.Address),
		groups:   make(map[string][]*domain.Currency),
		rpcs:     make(map[uint64]string),
	}

	for _, chain := range cfg.Chains {
		r.rpcs[chain.ChainID] = chain.RPCUrl
		if chain.Quoter != "" {
			r.quoters[chain.ChainID] = ethcommon.HexToAddress(chain.Quoter)
		}
		if chain.Router != "" {
			r.routers[chain.ChainID] = ethcommon.HexToAddress(chain.Router)
		}
		if chain.Permit2 != "" {
			r.permit2s[chain.ChainID] = ethcommon.HexToAddress(chain.Permit2)
		}
		if chain.Bridge != "" {
			r.bridges[chain.ChainID] = ethcommon.HexToAddress(chain.Bridge)
		}

		for _, cc := range chain.Currencies {
			currency := r.graph.Register(&domain.Currency{
				ChainID:  chain.ChainID,
				Address:  ethcommon.HexToAddress(cc.Address),
				Decimals: cc.Decimals,
				Symbol:   cc.Symbol,
				Name:     cc.Name,
				LogoURI:  cc.LogoURI,
				Native:   cc.Native,
			})
			if cc.Group != "" {
				r.groups[cc.Group] = append(r.groups[cc.Group], currency)
			}
		}

		for _, hubAddr := range chain.Hubs {
			hub, ok := r.graph.Lookup(chain.ChainID, ethcommon.HexToAddress(hubAddr))
			if !ok {
				return nil, fmt.Errorf("chain %d: hub %s is not a registered currency", chain.ChainID, hubAddr)
			}
			r.hubs[chain.ChainID] = append(r.hubs[chain.ChainID], hub)
		}

		pairs := make(map[poolPair]struct{}, len(chain.Pools))
		for _, p := range chain.Pools {
			pairs[normalizePair(ethcommon.HexToAddress(p.Token0), ethcommon.HexToAddress(p.Token1))] = struct{}{}
		}
		r.pools[chain.ChainID] = pairs
	}

	for label, members := range r.groups {
		if err := r.graph.Connect(members); err != nil {
			return nil, fmt.Errorf("bridge group %q: %w", label, err)
		}
	}
	return r, nil
}

func (r *Registry) Graph() *tokengraph.Graph { return r.graph }

// HasPool reports whether a liquidity pair is known from configuration.
func (r *Registry) HasPool(chainID uint64, a, b *domain.Currency) bool {
	pairs, ok := r.pools[chainID]
	if !ok {
		return false
	}
	_, ok = pairs[normalizePair(a.Address, b.Address)]
	return ok
}

func (r *Registry) Hubs(chainID uint64) []*domain.Currency {
	return r.hubs[chainID]
}

func (r *Registry) Quoter(chainID uint64) (ethcommon.Address, bool) {
	addr, ok := r.quoters[chainID]
	return addr, ok
}

func (r *Registry) Router(chainID uint64) (ethcommon.Address, bool) {
	addr, ok := r.routers[chainID]
	return addr, ok
}

func (r *Registry) Permit2(chainID uint64) (ethcommon.Address, bool) {
	addr, ok := r.permit2s[chainID]
	return addr, ok
}

func (r *Registry) Bridge(chainID uint64) (ethcommon.Address, bool) {
	addr, ok := r.bridges[chainID]
	return addr, ok
}

// Quoters returns the per-chain quoter deployment map.
func (r *Registry) Quoters() map[uint64]ethcommon.Address {
	return r.quoters
}

// RPCs returns the per-chain endpoint map.
func (r *Registry) RPCs() map[uint64]string {
	return r.rpcs
}

// Currencies lists every registered currency.
func (r *Registry) Currencies() []*domain.Currency {
	var out []*domain.Currency
	for chainID := range r.rpcs {
		out = append(out, r.graph.OnChain(chainID)...)
	}
	return out
}

// Groups returns the configured bridge groups by label.
func (r *Registry) Groups() map[string][]*domain.Currency {
	return r.groups
}
