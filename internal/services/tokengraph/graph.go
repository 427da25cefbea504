// Package tokengraph holds the per-chain currency registry and the
// multichain "remote token" linkage. The graph is built once at configuration
// time and is read-only afterwards; the core services never mutate it.
package tokengraph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/omni-route/internal/domain"
)

var (
	ErrDuplicateChain  = errors.New("multichain group has two entries on the same chain")
	ErrMixedNativeness = errors.New("native currency linked to a non-native one")
	ErrUnknownCurrency = errors.New("currency not registered")
)

// Graph is the long-lived currency registry. Construction (Register/Connect)
// happens under the write lock during configuration; all query methods take
// the read lock and are safe for concurrent use.
type Graph struct {
	mu sync.RWMutex

	byChain map[uint64]map[common.Address]*domain.Currency

	// remotes maps a currency to its group: chainID -> representation.
	// Every member of a group shares the same map, so edges are symmetric
	// by construction.
	remotes map[domain.CurrencyKey]map[uint64]*domain.Currency
}

func New() *Graph {
	return &Graph{
		byChain: make(map[uint64]map[common.Address]*domain.Currency),
		remotes: make(map[domain.CurrencyKey]map[uint64]*domain.Currency),
	}
}

// Register adds a currency to the per-chain index. Re-registering the same
// key returns the already-registered instance.
func (g *Graph) Register(c *domain.Currency) *domain.Currency {
	g.mu.Lock()
	defer g.mu.Unlock()

	chain, ok := g.byChain[c.ChainID]
	if !ok {
		chain = make(map[common.Address]*domain.Currency)
		g.byChain[c.ChainID] = chain
	}
	if existing, ok := chain[c.Address]; ok {
		return existing
	}
	chain[c.Address] = c
	return c
}

// Connect links a flat list of same-asset entries into one multichain group
// with symmetric remote edges. Invariants checked before anything is linked:
// no two entries on the same chain, and nativeness is uniform across the
// group. Entries must already be registered.
func (g *Graph) Connect(entries []*domain.Currency) error {
	if len(entries) < 2 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[uint64]struct{}, len(entries))
	native := entries[0].IsNative()
	for _, c := range entries {
		if _, dup := seen[c.ChainID]; dup {
			return fmt.Errorf("%w: chain %d (%s)", ErrDuplicateChain, c.ChainID, c)
		}
		seen[c.ChainID] = struct{}{}
		if c.IsNative() != native {
			return fmt.Errorf("%w: %s", ErrMixedNativeness, c)
		}
		if !g.registered(c) {
			return fmt.Errorf("%w: %s", ErrUnknownCurrency, c)
		}
	}

	// Merge with any group an entry already belongs to, then point every
	// member at the shared map.
	group := make(map[uint64]*domain.Currency, len(entries))
	for _, c := range entries {
		if existing, ok := g.remotes[c.Key()]; ok {
			for chainID, member := range existing {
				if prev, clash := group[chainID]; clash && prev != member {
					return fmt.Errorf("%w: chain %d (%s vs %s)", ErrDuplicateChain, chainID, prev, member)
				}
				group[chainID] = member
			}
		}
		if prev, clash := group[c.ChainID]; clash && prev != c {
			return fmt.Errorf("%w: chain %d (%s vs %s)", ErrDuplicateChain, c.ChainID, prev, c)
		}
		group[c.ChainID] = c
	}
	for _, member := range group {
		g.remotes[member.Key()] = group
	}
	return nil
}

func (g *Graph) registered(c *domain.Currency) bool {
	chain, ok := g.byChain[c.ChainID]
	if !ok {
		return false
	}
	_, ok = chain[c.Address]
	return ok
}

// OnChain lists every currency registered on one chain.
func (g *Graph) OnChain(chainID uint64) []*domain.Currency {
	g.mu.RLock()
	defer g.mu.RUnlock()

	chain, ok := g.byChain[chainID]
	if !ok {
		return nil
	}
	out := make([]*domain.Currency, 0, len(chain))
	for _, c := range chain {
		out = append(out, c)
	}
	return out
}

// Lookup resolves a currency by chain and address.
func (g *Graph) Lookup(chainID uint64, addr common.Address) (*domain.Currency, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	chain, ok := g.byChain[chainID]
	if !ok {
		return nil, false
	}
	c, ok := chain[addr]
	return c, ok
}

// RemoteOn returns the group member of c on the given chain, if any.
// A currency is not its own remote.
func (g *Graph) RemoteOn(c *domain.Currency, chainID uint64) (*domain.Currency, bool) {
	if c.ChainID == chainID {
		return nil, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	group, ok := g.remotes[c.Key()]
	if !ok {
		return nil, false
	}
	remote, ok := group[chainID]
	return remote, ok
}

// Remotes returns all other-chain representations of c.
func (g *Graph) Remotes(c *domain.Currency) []*domain.Currency {
	g.mu.RLock()
	defer g.mu.RUnlock()

	group, ok := g.remotes[c.Key()]
	if !ok {
		return nil
	}
	out := make([]*domain.Currency, 0, len(group)-1)
	for chainID, member := range group {
		if chainID == c.ChainID {
			continue
		}
		out = append(out, member)
	}
	return out
}

// SharedChains returns the chains on which both a and b have a group member
// (the currency itself counts as its on-chain representation).
func (g *Graph) SharedChains(a, b *domain.Currency) []uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	chainsOf := func(c *domain.Currency) map[uint64]struct{} {
		set := map[uint64]struct{}{c.ChainID: {}}
		if group, ok := g.remotes[c.Key()]; ok {
			for chainID := range group {
				set[chainID] = struct{}{}
			}
		}
		return set
	}

	setA := chainsOf(a)
	shared := make([]uint64, 0, len(setA))
	for chainID := range chainsOf(b) {
		if _, ok := setA[chainID]; ok {
			shared = append(shared, chainID)
		}
	}
	return shared
}

// Bridgeable reports whether a can be bridged directly to b: both native on
// different chains (native bridging between configured chains is always
// assumed possible), or members of the same multichain group.
func (g *Graph) Bridgeable(a, b *domain.Currency) bool {
	if a.ChainID == b.ChainID {
		return false
	}
	if a.IsNative() && b.IsNative() {
		return true
	}
	remote, ok := g.RemoteOn(a, b.ChainID)
	return ok && remote.Equal(b)
}
