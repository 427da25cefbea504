// Package basket composes per-underlying quotes into basket mint, burn and
// weighted-buy previews. Mint and burn carry commit semantics and fail
// all-or-nothing; the weighted preview is best-effort and drops dry legs.
package basket

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/hxuan190/omni-route/internal/common"
	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/metrics"
	"github.com/hxuan190/omni-route/internal/services/quoter"
)

// Reader loads a basket contract's allocation list from chain state.
type Reader interface {
	ReadBasket(ctx context.Context, chainID uint64, basket ethcommon.Address) (*domain.Basket, error)
}

// HubSource supplies the configured multihop intermediates per chain.
type HubSource interface {
	Hubs(chainID uint64) []*domain.Currency
}

type Service struct {
	reader Reader
	agg    *quoter.Aggregator
	hubs   HubSource
	log    zerolog.Logger
}

func NewService(reader Reader, agg *quoter.Aggregator, hubs HubSource) *Service {
	return &Service{
		reader: reader,
		agg:    agg,
		hubs:   hubs,
		log:    common.NewComponentLogger("basket"),
	}
}

type legResult struct {
	leg domain.BasketQuoteLeg
	err error
}

// MintQuote prices minting `shares` of a basket paid in `in`. Each
// underlying requires fixedUnits × shares, quoted exact-output concurrently;
// the totals are summed. Any leg without liquidity fails the whole quote:
// a basket cannot be minted partially.
func (s *Service) MintQuote(ctx context.Context, chainID uint64, basketAddr ethcommon.Address, in *domain.Currency, shares *big.Int) (*domain.BasketQuote, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, quoter.ErrInvalidAmount
	}
	b, err := s.reader.ReadBasket(ctx, chainID, basketAddr)
	if err != nil {
		metrics.BasketQuoteRequests.WithLabelValues("mint", "error").Inc()
		return nil, err
	}

	results := make([]legResult, len(b.Allocations))
	var wg sync.WaitGroup
	for i, alloc := range b.Allocations {
		required := new(big.Int).Mul(alloc.FixedUnits, shares)
		wg.Add(1)
		go func(idx int, underlying *domain.Currency, required *big.Int) {
			defer wg.Done()
			results[idx] = s.exactOutLeg(ctx, chainID, in, underlying, required)
		}(i, alloc.Currency, required)
	}
	wg.Wait()

	quote := &domain.BasketQuote{
		Basket:  basketAddr,
		Shares:  shares,
		TotalIn: new(big.Int),
		Legs:    make([]domain.BasketQuoteLeg, len(results)),
	}
	for i, r := range results {
		if r.err != nil {
			metrics.BasketQuoteRequests.WithLabelValues("mint", "error").Inc()
			return nil, r.err
		}
		quote.TotalIn.Add(quote.TotalIn, r.leg.AmountIn)
		quote.Legs[i] = r.leg
	}
	metrics.BasketQuoteRequests.WithLabelValues("mint", "ok").Inc()
	metrics.BasketLegCount.Observe(float64(len(quote.Legs)))
	return quote, nil
}

// BurnQuote is the mint dual: each underlying's fixedUnits × shares is
// quoted exact-input into `out` and the outputs are summed, with the same
// all-or-nothing policy.
func (s *Service) BurnQuote(ctx context.Context, chainID uint64, basketAddr ethcommon.Address, out *domain.Currency, shares *big.Int) (*domain.BasketQuote, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, quoter.ErrInvalidAmount
	}
	b, err := s.reader.ReadBasket(ctx, chainID, basketAddr)
	if err != nil {
		metrics.BasketQuoteRequests.WithLabelValues("burn", "error").Inc()
		return nil, err
	}

	results := make([]legResult, len(b.Allocations))
	var wg sync.WaitGroup
	for i, alloc := range b.Allocations {
		released := new(big.Int).Mul(alloc.FixedUnits, shares)
		wg.Add(1)
		go func(idx int, underlying *domain.Currency, released *big.Int) {
			defer wg.Done()
			results[idx] = s.exactInLeg(ctx, chainID, underlying, out, released)
		}(i, alloc.Currency, released)
	}
	wg.Wait()

	quote := &domain.BasketQuote{
		Basket:   basketAddr,
		Shares:   shares,
		TotalOut: new(big.Int),
		Legs:     make([]domain.BasketQuoteLeg, len(results)),
	}
	for i, r := range results {
		if r.err != nil {
			metrics.BasketQuoteRequests.WithLabelValues("burn", "error").Inc()
			return nil, r.err
		}
		quote.TotalOut.Add(quote.TotalOut, r.leg.AmountOut)
		quote.Legs[i] = r.leg
	}
	metrics.BasketQuoteRequests.WithLabelValues("burn", "ok").Inc()
	metrics.BasketLegCount.Observe(float64(len(quote.Legs)))
	return quote, nil
}

// WeightedBuyQuote splits amountIn across the allocation list by weight and
// quotes each slice exact-input. Per-leg amounts use independent floor
// division, so the slices may sum to slightly less than amountIn; the
// shortfall is never redistributed. Legs without liquidity, or whose slice
// floors to zero, are dropped, not fatal — this is a display preview, not a
// commitment.
func (s *Service) WeightedBuyQuote(ctx context.Context, chainID uint64, in *domain.Currency, amountIn *big.Int, allocations []domain.BasketAllocation) ([]domain.BasketQuoteLeg, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, quoter.ErrInvalidAmount
	}
	totalWeight := new(big.Int)
	for _, alloc := range allocations {
		totalWeight.Add(totalWeight, new(big.Int).SetUint64(alloc.Weight))
	}
	if totalWeight.Sign() == 0 {
		return nil, fmt.Errorf("%w: total weight is zero", quoter.ErrInvalidAmount)
	}

	type weightedSlice struct {
		underlying *domain.Currency
		amount     *big.Int
	}
	slices := make([]weightedSlice, 0, len(allocations))
	for _, alloc := range allocations {
		slice := new(big.Int).Mul(amountIn, new(big.Int).SetUint64(alloc.Weight))
		slice.Div(slice, totalWeight)
		// Floor division zeroes out low-weight legs on dust inputs; those
		// legs are dropped like any other dry leg instead of tripping the
		// aggregator's amount check.
		if slice.Sign() == 0 {
			continue
		}
		slices = append(slices, weightedSlice{underlying: alloc.Currency, amount: slice})
	}

	results := make([]legResult, len(slices))
	var wg sync.WaitGroup
	for i, ws := range slices {
		wg.Add(1)
		go func(idx int, underlying *domain.Currency, slice *big.Int) {
			defer wg.Done()
			results[idx] = s.exactInLeg(ctx, chainID, in, underlying, slice)
		}(i, ws.underlying, ws.amount)
	}
	wg.Wait()

	legs := make([]domain.BasketQuoteLeg, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			// Dry legs are filtered; only transport failures surface.
			if isNoLiquidity(r.err) {
				continue
			}
			metrics.BasketQuoteRequests.WithLabelValues("weighted", "error").Inc()
			return nil, r.err
		}
		legs = append(legs, r.leg)
	}
	metrics.BasketQuoteRequests.WithLabelValues("weighted", "ok").Inc()
	metrics.BasketLegCount.Observe(float64(len(legs)))
	return legs, nil
}

// exactOutLeg prices acquiring `required` of underlying paid in `in`.
// The identity leg (paying in the underlying itself) needs no quote.
func (s *Service) exactOutLeg(ctx context.Context, chainID uint64, in, underlying *domain.Currency, required *big.Int) legResult {
	if in.Equal(underlying) {
		return legResult{leg: domain.BasketQuoteLeg{
			Currency: underlying, AmountIn: required, AmountOut: required,
		}}
	}
	q, err := s.agg.QuoteExactOut(ctx, chainID, in, underlying, required, s.hubs.Hubs(chainID))
	if err != nil {
		return legResult{err: err}
	}
	if !q.HasLiquidity() {
		return legResult{err: fmt.Errorf("%w: leg %s", quoter.ErrNoLiquidity, underlying)}
	}
	return legResult{leg: domain.BasketQuoteLeg{
		Currency: underlying, AmountIn: q.AmountIn, AmountOut: q.AmountOut, Quote: q,
	}}
}

// exactInLeg prices spending `amount` of `in` into `out`. A dry leg is
// reported as a no-liquidity error for the caller to treat per its policy.
func (s *Service) exactInLeg(ctx context.Context, chainID uint64, in, out *domain.Currency, amount *big.Int) legResult {
	if in.Equal(out) {
		return legResult{leg: domain.BasketQuoteLeg{
			Currency: out, AmountIn: amount, AmountOut: amount,
		}}
	}
	q, err := s.agg.QuoteExactIn(ctx, chainID, in, out, amount, s.hubs.Hubs(chainID))
	if err != nil {
		return legResult{err: err}
	}
	if !q.HasLiquidity() {
		return legResult{err: fmt.Errorf("%w: leg %s", quoter.ErrNoLiquidity, out)}
	}
	return legResult{leg: domain.BasketQuoteLeg{
		Currency: out, AmountIn: q.AmountIn, AmountOut: q.AmountOut, Quote: q,
	}}
}

func isNoLiquidity(err error) bool {
	return errors.Is(err, quoter.ErrNoLiquidity)
}
