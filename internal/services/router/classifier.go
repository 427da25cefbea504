// Package router decides the shape of a conversion: which ordered sequence
// of swap and bridge flows turns currencyIn into currencyOut, and — when a
// pair can be realized on several chains — which chain prices it best.
package router

import (
	"context"
	"errors"
	"math/big"
	"sort"

	"github.com/rs/zerolog"

	"github.com/hxuan190/omni-route/internal/common"
	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/services/tokengraph"
)

// ErrSameCurrency rejects degenerate requests before any network call.
var ErrSameCurrency = errors.New("currencyIn equals currencyOut")

// PoolIndex answers "is there a swap path on this chain" from configuration
// alone, without touching the network. Hub currencies are the configured
// multihop intermediates per chain.
type PoolIndex interface {
	HasPool(chainID uint64, a, b *domain.Currency) bool
	Hubs(chainID uint64) []*domain.Currency
}

// Classifier produces flow lists. It performs no quoting; price selection
// between feasible chains belongs to the Selector.
type Classifier struct {
	graph *tokengraph.Graph
	pools PoolIndex
	sel   *Selector
	log   zerolog.Logger
}

func NewClassifier(graph *tokengraph.Graph, pools PoolIndex) *Classifier {
	return &Classifier{
		graph: graph,
		pools: pools,
		log:   common.NewComponentLogger("classifier"),
	}
}

// UseSelector lets ClassifyWithAmount price the intermediate-chain choice of
// a bridge-swap-bridge plan instead of taking the lowest chain id.
func (c *Classifier) UseSelector(sel *Selector) {
	c.sel = sel
}

// Classify returns the ordered flow list converting in to out, or
// (nil, nil) when no sequence exists — "no route" is a value, not an error.
// The only error is the same-currency invariant breach. Without an amount
// the intermediate-chain choice falls back to the lowest feasible chain id.
func (c *Classifier) Classify(in, out *domain.Currency) (domain.RoutePlan, error) {
	return c.classify(context.Background(), in, out, nil)
}

// ClassifyWithAmount is Classify for callers that know the input amount:
// when several chains could carry the middle swap of a bridge-swap-bridge
// plan, the bound selector quotes each candidate and the best-priced chain
// wins.
func (c *Classifier) ClassifyWithAmount(ctx context.Context, in, out *domain.Currency, amountIn *big.Int) (domain.RoutePlan, error) {
	return c.classify(ctx, in, out, amountIn)
}

func (c *Classifier) classify(ctx context.Context, in, out *domain.Currency, amountIn *big.Int) (domain.RoutePlan, error) {
	if in.Equal(out) {
		return nil, ErrSameCurrency
	}

	// Direct bridge: both native on different chains, or linked remotes.
	if c.graph.Bridgeable(in, out) {
		return domain.RoutePlan{bridgeFlow(in, out)}, nil
	}

	// Same chain: a single swap if any pool path exists.
	if in.ChainID == out.ChainID {
		if c.pathExists(in.ChainID, in, out) {
			return domain.RoutePlan{swapFlow(in.ChainID, in, out)}, nil
		}
		return nil, nil
	}

	// Cross-chain without a direct bridge, in preference order.
	if plan := c.bridgeThenSwap(in, out); plan != nil {
		return plan, nil
	}
	if plan := c.swapThenBridge(in, out); plan != nil {
		return plan, nil
	}
	if plan := c.bridgeSwapBridge(ctx, in, out, amountIn); plan != nil {
		return plan, nil
	}

	c.log.Debug().Str("in", in.String()).Str("out", out.String()).Msg("no feasible flow sequence")
	return nil, nil
}

// pathExists checks a direct pool or a two-hop path through a configured hub.
func (c *Classifier) pathExists(chainID uint64, a, b *domain.Currency) bool {
	if c.pools.HasPool(chainID, a, b) {
		return true
	}
	for _, hub := range c.pools.Hubs(chainID) {
		if hub.Equal(a) || hub.Equal(b) {
			continue
		}
		if c.pools.HasPool(chainID, a, hub) && c.pools.HasPool(chainID, hub, b) {
			return true
		}
	}
	return false
}

// bridgeThenSwap bridges in to its remote on out's chain, then swaps there.
func (c *Classifier) bridgeThenSwap(in, out *domain.Currency) domain.RoutePlan {
	remote, ok := c.graph.RemoteOn(in, out.ChainID)
	if !ok || !c.pathExists(out.ChainID, remote, out) {
		return nil
	}
	return domain.RoutePlan{
		bridgeFlow(in, remote),
		swapFlow(out.ChainID, remote, out),
	}
}

// swapThenBridge swaps in on its own chain into something bridgeable to out.
func (c *Classifier) swapThenBridge(in, out *domain.Currency) domain.RoutePlan {
	local, ok := c.graph.RemoteOn(out, in.ChainID)
	if !ok || !c.pathExists(in.ChainID, in, local) {
		return nil
	}
	return domain.RoutePlan{
		swapFlow(in.ChainID, in, local),
		bridgeFlow(local, out),
	}
}

// bridgeSwapBridge routes through an intermediate chain that has both a
// remote of in and a remote of out with a swap path between them. When
// several chains qualify and an amount plus a selector are available, the
// best-priced chain wins; otherwise the lowest chain id keeps the choice
// deterministic.
func (c *Classifier) bridgeSwapBridge(ctx context.Context, in, out *domain.Currency, amountIn *big.Int) domain.RoutePlan {
	candidates := c.intermediateChains(in, out)
	if len(candidates) == 0 {
		return nil
	}
	chainID := candidates[0]
	if len(candidates) > 1 && c.sel != nil && amountIn != nil {
		if best, ok, err := c.sel.SelectAmong(ctx, in, out, amountIn, candidates); err == nil && ok {
			chainID = best.ChainID
		}
	}
	return c.throughChain(in, out, chainID)
}

// intermediateChains lists chains able to carry the middle swap, ascending
// by chain id.
func (c *Classifier) intermediateChains(in, out *domain.Currency) []uint64 {
	var chains []uint64
	for _, rIn := range c.graph.Remotes(in) {
		if rIn.ChainID == out.ChainID {
			continue
		}
		rOut, ok := c.graph.RemoteOn(out, rIn.ChainID)
		if !ok || !c.pathExists(rIn.ChainID, rIn, rOut) {
			continue
		}
		chains = append(chains, rIn.ChainID)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	return chains
}

// throughChain builds the three-flow plan over the chosen intermediate.
func (c *Classifier) throughChain(in, out *domain.Currency, chainID uint64) domain.RoutePlan {
	rIn, okIn := c.graph.RemoteOn(in, chainID)
	rOut, okOut := c.graph.RemoteOn(out, chainID)
	if !okIn || !okOut {
		return nil
	}
	return domain.RoutePlan{
		bridgeFlow(in, rIn),
		swapFlow(chainID, rIn, rOut),
		bridgeFlow(rOut, out),
	}
}

func swapFlow(chainID uint64, in, out *domain.Currency) domain.AssetFlow {
	return domain.AssetFlow{Kind: domain.FlowSwap, ChainID: chainID, In: in, Out: out}
}

func bridgeFlow(in, out *domain.Currency) domain.AssetFlow {
	return domain.AssetFlow{Kind: domain.FlowBridge, In: in, Out: out}
}
