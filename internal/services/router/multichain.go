package router

import (
	"context"
	"math/big"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hxuan190/omni-route/internal/common"
	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/metrics"
	"github.com/hxuan190/omni-route/internal/services/quoter"
	"github.com/hxuan190/omni-route/internal/services/tokengraph"
)

// Deployments reports whether a chain carries a quoter deployment. A chain
// without one is skipped by the selector — absence, not an error.
type Deployments interface {
	HasQuoter(chainID uint64) bool
}

// Selector runs the single-chain aggregator on every chain where both sides
// of a pair have a representation and keeps the best-priced result.
type Selector struct {
	graph       *tokengraph.Graph
	agg         *quoter.Aggregator
	pools       PoolIndex
	deployments Deployments
	log         zerolog.Logger
}

func NewSelector(graph *tokengraph.Graph, agg *quoter.Aggregator, pools PoolIndex, deployments Deployments) *Selector {
	return &Selector{
		graph:       graph,
		agg:         agg,
		pools:       pools,
		deployments: deployments,
		log:         common.NewComponentLogger("selector"),
	}
}

// SelectBestChain quotes amountIn of in against out on every shared chain
// concurrently and returns the chain with the globally largest amountOut.
// The boolean is false when no candidate chain has liquidity.
func (s *Selector) SelectBestChain(ctx context.Context, in, out *domain.Currency, amountIn *big.Int) (*domain.ChainQuote, bool, error) {
	return s.SelectAmong(ctx, in, out, amountIn, s.graph.SharedChains(in, out))
}

// SelectAmong restricts the best-chain search to the given candidate chains.
// The classifier uses it to price the intermediate chain of a
// bridge-swap-bridge plan. Chains without a quoter deployment are skipped.
func (s *Selector) SelectAmong(ctx context.Context, in, out *domain.Currency, amountIn *big.Int, chains []uint64) (*domain.ChainQuote, bool, error) {
	candidates := s.deployedOn(chains)
	if len(candidates) == 0 {
		return nil, false, nil
	}
	metrics.ChainsEvaluated.Observe(float64(len(candidates)))

	type chainResult struct {
		chainID uint64
		quote   *domain.Quote
		err     error
	}
	results := make([]chainResult, len(candidates))

	var wg sync.WaitGroup
	for i, chainID := range candidates {
		localIn, okIn := s.localOn(in, chainID)
		localOut, okOut := s.localOn(out, chainID)
		if !okIn || !okOut {
			continue
		}
		wg.Add(1)
		go func(idx int, chainID uint64, localIn, localOut *domain.Currency) {
			defer wg.Done()
			q, err := s.agg.QuoteExactIn(ctx, chainID, localIn, localOut, amountIn, s.pools.Hubs(chainID))
			results[idx] = chainResult{chainID: chainID, quote: q, err: err}
		}(i, chainID, localIn, localOut)
	}
	wg.Wait()

	var best *domain.ChainQuote
	var firstErr error
	for _, r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		if !r.quote.HasLiquidity() {
			metrics.LiquidityMisses.Inc()
			continue
		}
		if best == nil || r.quote.AmountOut.Cmp(best.Quote.AmountOut) > 0 {
			best = &domain.ChainQuote{ChainID: r.chainID, Quote: r.quote}
		}
	}
	if best == nil {
		if firstErr != nil {
			return nil, false, firstErr
		}
		return nil, false, nil
	}

	s.log.Debug().
		Uint64("chain", best.ChainID).
		Str("amountOut", best.Quote.AmountOut.String()).
		Int("candidates", len(candidates)).
		Msg("selected best chain")
	return best, true, nil
}

// deployedOn filters candidate chains down to ones with a quoter deployed.
func (s *Selector) deployedOn(chains []uint64) []uint64 {
	candidates := chains[:0]
	for _, chainID := range chains {
		if s.deployments != nil && !s.deployments.HasQuoter(chainID) {
			continue
		}
		candidates = append(candidates, chainID)
	}
	return candidates
}

// localOn resolves the chain-local representation of c.
func (s *Selector) localOn(c *domain.Currency, chainID uint64) (*domain.Currency, bool) {
	if c.ChainID == chainID {
		return c, true
	}
	return s.graph.RemoteOn(c, chainID)
}
