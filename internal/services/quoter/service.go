// Package quoter aggregates best-price quotes for one swap leg on one chain.
// It never computes AMM math itself: every candidate is priced by the
// on-chain quoter contract and the aggregator only compares results.
package quoter

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hxuan190/omni-route/internal/common"
	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/metrics"
)

var (
	// ErrPoolUnavailable marks a single pool configuration with no usable
	// liquidity (quoter revert). It is a per-candidate skip signal, never
	// surfaced to callers.
	ErrPoolUnavailable = errors.New("pool unavailable")

	// ErrNoLiquidity is the commit-path failure for a leg whose best quote
	// type is none. The aggregator itself returns BestNone as a value;
	// callers with commit semantics convert it into this error.
	ErrNoLiquidity = errors.New("no liquidity for pair")

	ErrSameCurrency = errors.New("currencyIn equals currencyOut")
	ErrInvalidAmount = errors.New("amount must be positive")
)

// PoolQuoteRequest prices one amount against one pool configuration.
// ExactIn true: Amount is the input, the quoter returns the output.
// ExactIn false: Amount is the desired output, the quoter returns the input.
type PoolQuoteRequest struct {
	ChainID uint64
	In      *domain.Currency
	Out     *domain.Currency
	Config  domain.PoolConfig
	Amount  *big.Int
	ExactIn bool
}

// PoolQuote is the raw quoter-contract answer for one pool.
type PoolQuote struct {
	Amount      *big.Int
	GasEstimate uint64
}

// QuoteFunc queries the on-chain quoter for a single pool. Implementations
// return ErrPoolUnavailable when the pool has no liquidity for the request
// and a transport error otherwise.
type QuoteFunc func(ctx context.Context, req PoolQuoteRequest) (*PoolQuote, error)

// Aggregator finds the best price for a pair across the pool configuration
// candidates and the configured hub currencies.
type Aggregator struct {
	quote   QuoteFunc
	configs []domain.PoolConfig
	log     zerolog.Logger
}

func NewAggregator(quote QuoteFunc, configs []domain.PoolConfig) *Aggregator {
	if len(configs) == 0 {
		configs = domain.DefaultPoolConfigs
	}
	return &Aggregator{
		quote:   quote,
		configs: configs,
		log:     common.NewComponentLogger("quoter"),
	}
}

// candidate is one fully priced route option.
type candidate struct {
	route       domain.Route
	amountIn    *big.Int
	amountOut   *big.Int
	gasEstimate uint64
	multihop    bool
}

// QuoteExactIn returns the best quote for swapping amountIn of `in` into
// `out` on one chain. Single-hop and per-hub multihop candidates are priced
// concurrently; the largest amountOut wins. A quote with Best == BestNone is
// the canonical no-liquidity result, not an error.
func (a *Aggregator) QuoteExactIn(ctx context.Context, chainID uint64, in, out *domain.Currency, amountIn *big.Int, hubs []*domain.Currency) (q *domain.Quote, err error) {
	if err := checkLegArgs(in, out, amountIn); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { observeQuote("exact_in", start, q, err) }()

	results := make([]*candidate, 1+len(hubs))
	errs := make([]error, 1+len(hubs))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = a.singleHop(ctx, chainID, in, out, amountIn, true)
	}()

	for i, hub := range hubs {
		if hub.Equal(in) || hub.Equal(out) {
			continue
		}
		wg.Add(1)
		go func(idx int, hub *domain.Currency) {
			defer wg.Done()
			results[idx], errs[idx] = a.twoHopExactIn(ctx, chainID, in, hub, out, amountIn)
		}(1+i, hub)
	}
	wg.Wait()

	best, err := pickBest(results, errs, true)
	if err != nil {
		return nil, err
	}
	if best == nil {
		return &domain.Quote{
			ChainID: chainID, In: in, Out: out,
			AmountIn: amountIn, AmountOut: new(big.Int),
			Best: domain.BestNone,
		}, nil
	}
	return best.toQuote(chainID, in, out), nil
}

// QuoteExactOut is the exact-output dual: amountOut is fixed and the
// candidate requiring the smallest amountIn wins.
func (a *Aggregator) QuoteExactOut(ctx context.Context, chainID uint64, in, out *domain.Currency, amountOut *big.Int, hubs []*domain.Currency) (q *domain.Quote, err error) {
	if err := checkLegArgs(in, out, amountOut); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { observeQuote("exact_out", start, q, err) }()

	results := make([]*candidate, 1+len(hubs))
	errs := make([]error, 1+len(hubs))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = a.singleHop(ctx, chainID, in, out, amountOut, false)
	}()

	for i, hub := range hubs {
		if hub.Equal(in) || hub.Equal(out) {
			continue
		}
		wg.Add(1)
		go func(idx int, hub *domain.Currency) {
			defer wg.Done()
			results[idx], errs[idx] = a.twoHopExactOut(ctx, chainID, in, hub, out, amountOut)
		}(1+i, hub)
	}
	wg.Wait()

	best, err := pickBest(results, errs, false)
	if err != nil {
		return nil, err
	}
	if best == nil {
		return &domain.Quote{
			ChainID: chainID, In: in, Out: out,
			AmountIn: new(big.Int), AmountOut: amountOut,
			Best: domain.BestNone,
		}, nil
	}
	return best.toQuote(chainID, in, out), nil
}

// observeQuote records one aggregation by mode and outcome.
func observeQuote(mode string, start time.Time, q *domain.Quote, err error) {
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case !q.HasLiquidity():
		status = "no_liquidity"
	}
	metrics.QuoteRequests.WithLabelValues(mode, status).Inc()
	metrics.QuoteDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func checkLegArgs(in, out *domain.Currency, amount *big.Int) error {
	if in.Equal(out) {
		return ErrSameCurrency
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// singleHop prices the direct pair across every pool configuration in
// parallel and keeps the best. Missing liquidity on a configuration is a
// skip; a transport error is remembered and surfaced only when nothing
// else succeeded.
func (a *Aggregator) singleHop(ctx context.Context, chainID uint64, in, out *domain.Currency, amount *big.Int, exactIn bool) (*candidate, error) {
	quotes := make([]*PoolQuote, len(a.configs))
	errs := make([]error, len(a.configs))

	var wg sync.WaitGroup
	for i, cfg := range a.configs {
		wg.Add(1)
		go func(idx int, cfg domain.PoolConfig) {
			defer wg.Done()
			quotes[idx], errs[idx] = a.quote(ctx, PoolQuoteRequest{
				ChainID: chainID, In: in, Out: out,
				Config: cfg, Amount: amount, ExactIn: exactIn,
			})
		}(i, cfg)
	}
	wg.Wait()
	metrics.PoolsEvaluated.Observe(float64(len(a.configs)))

	var best *candidate
	var firstErr error
	for i, q := range quotes {
		if errs[i] != nil {
			if !errors.Is(errs[i], ErrPoolUnavailable) && firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		if q == nil || q.Amount == nil || q.Amount.Sign() <= 0 {
			continue
		}
		c := singleCandidate(in, out, a.configs[i], amount, q, exactIn)
		if better(c, best, exactIn) {
			best = c
		}
	}
	if best == nil && firstErr != nil {
		return nil, firstErr
	}
	return best, nil
}

func singleCandidate(in, out *domain.Currency, cfg domain.PoolConfig, amount *big.Int, q *PoolQuote, exactIn bool) *candidate {
	c := &candidate{
		route:       domain.Route{{In: in, Out: out, Config: cfg}},
		gasEstimate: q.GasEstimate,
	}
	if exactIn {
		c.amountIn, c.amountOut = amount, q.Amount
	} else {
		c.amountIn, c.amountOut = q.Amount, amount
	}
	return c
}

// twoHopExactIn routes in -> hub -> out: the first leg's best output feeds
// the second leg.
func (a *Aggregator) twoHopExactIn(ctx context.Context, chainID uint64, in, hub, out *domain.Currency, amountIn *big.Int) (*candidate, error) {
	first, err := a.singleHop(ctx, chainID, in, hub, amountIn, true)
	if err != nil || first == nil {
		return nil, err
	}
	second, err := a.singleHop(ctx, chainID, hub, out, first.amountOut, true)
	if err != nil || second == nil {
		return nil, err
	}
	return &candidate{
		route:       append(append(domain.Route{}, first.route...), second.route...),
		amountIn:    amountIn,
		amountOut:   second.amountOut,
		gasEstimate: first.gasEstimate + second.gasEstimate,
		multihop:    true,
	}, nil
}

// twoHopExactOut works backwards: price the hub amount the second leg needs,
// then the input the first leg needs to produce it.
func (a *Aggregator) twoHopExactOut(ctx context.Context, chainID uint64, in, hub, out *domain.Currency, amountOut *big.Int) (*candidate, error) {
	second, err := a.singleHop(ctx, chainID, hub, out, amountOut, false)
	if err != nil || second == nil {
		return nil, err
	}
	first, err := a.singleHop(ctx, chainID, in, hub, second.amountIn, false)
	if err != nil || first == nil {
		return nil, err
	}
	return &candidate{
		route:       append(append(domain.Route{}, first.route...), second.route...),
		amountIn:    first.amountIn,
		amountOut:   amountOut,
		gasEstimate: first.gasEstimate + second.gasEstimate,
		multihop:    true,
	}, nil
}

// better reports whether challenger beats incumbent. The comparison is
// strict, so on an exact tie the earlier candidate (single-hop before any
// hub route) is kept: fewer hops for the same price.
func better(challenger, incumbent *candidate, exactIn bool) bool {
	if challenger == nil {
		return false
	}
	if incumbent == nil {
		return true
	}
	if exactIn {
		return challenger.amountOut.Cmp(incumbent.amountOut) > 0
	}
	return challenger.amountIn.Cmp(incumbent.amountIn) < 0
}

func pickBest(results []*candidate, errs []error, exactIn bool) (*candidate, error) {
	var best *candidate
	var firstErr error
	for i, c := range results {
		if errs[i] != nil && firstErr == nil {
			firstErr = errs[i]
		}
		if better(c, best, exactIn) {
			best = c
		}
	}
	if best == nil && firstErr != nil {
		return nil, firstErr
	}
	return best, nil
}

func (c *candidate) toQuote(chainID uint64, in, out *domain.Currency) *domain.Quote {
	best := domain.BestSingle
	if c.multihop {
		best = domain.BestMultihop
	}
	return &domain.Quote{
		ChainID:     chainID,
		In:          in,
		Out:         out,
		AmountIn:    c.amountIn,
		AmountOut:   c.amountOut,
		Route:       c.route,
		GasEstimate: c.gasEstimate,
		Best:        best,
	}
}
