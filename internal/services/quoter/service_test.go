package quoter

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/omni-route/internal/domain"
)

var (
	tokenA = &domain.Currency{ChainID: 900, Address: common.BytesToAddress([]byte{0xA}), Decimals: 18, Symbol: "TKA"}
	tokenB = &domain.Currency{ChainID: 900, Address: common.BytesToAddress([]byte{0xB}), Decimals: 18, Symbol: "TKB"}
	hubUSD = &domain.Currency{ChainID: 900, Address: common.BytesToAddress([]byte{0xC}), Decimals: 6, Symbol: "USDh"}
)

// fixtureQuoter prices pairs from a rate table in basis points. A pair/fee
// combination missing from the table behaves like a pool with no liquidity.
type fixtureQuoter struct {
	// rates[pair][fee] = output per 10000 units of input
	rates map[string]map[uint32]int64
}

func pairKey(in, out *domain.Currency) string {
	return in.Symbol + "/" + out.Symbol
}

func (f *fixtureQuoter) quote(_ context.Context, req PoolQuoteRequest) (*PoolQuote, error) {
	fees, ok := f.rates[pairKey(req.In, req.Out)]
	if !ok {
		return nil, ErrPoolUnavailable
	}
	rate, ok := fees[req.Config.Fee]
	if !ok {
		return nil, ErrPoolUnavailable
	}
	out := new(big.Int)
	if req.ExactIn {
		out.Mul(req.Amount, big.NewInt(rate))
		out.Div(out, big.NewInt(10000))
	} else {
		out.Mul(req.Amount, big.NewInt(10000))
		out.Div(out, big.NewInt(rate))
	}
	return &PoolQuote{Amount: out, GasEstimate: 50000}, nil
}

func TestQuoteExactInPrefersBestConfig(t *testing.T) {
	fq := &fixtureQuoter{rates: map[string]map[uint32]int64{
		"TKA/TKB": {500: 9800, 3000: 9700},
	}}
	agg := NewAggregator(fq.quote, nil)

	q, err := agg.QuoteExactIn(context.Background(), 900, tokenA, tokenB, big.NewInt(1_000_000), nil)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Best != domain.BestSingle {
		t.Fatalf("expected single-hop best, got %v", q.Best)
	}
	if got := q.AmountOut.Int64(); got != 980_000 {
		t.Fatalf("expected best fee tier output 980000, got %d", got)
	}
	if len(q.Route) != 1 || q.Route[0].Config.Fee != 500 {
		t.Fatalf("expected the 500 fee tier to win, got %+v", q.Route)
	}
}

func TestQuoteExactInMultihopBeatsDirect(t *testing.T) {
	fq := &fixtureQuoter{rates: map[string]map[uint32]int64{
		"TKA/TKB":  {3000: 9000},
		"TKA/USDh": {500: 9900},
		"USDh/TKB": {500: 9900},
	}}
	agg := NewAggregator(fq.quote, nil)

	q, err := agg.QuoteExactIn(context.Background(), 900, tokenA, tokenB, big.NewInt(1_000_000), []*domain.Currency{hubUSD})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Best != domain.BestMultihop {
		t.Fatalf("expected multihop best, got %v", q.Best)
	}
	// 1e6 * 0.99 * 0.99 = 980100 > 900000 direct
	if got := q.AmountOut.Int64(); got != 980_100 {
		t.Fatalf("expected multihop output 980100, got %d", got)
	}
	if len(q.Route) != 2 || !q.Route[0].Out.Equal(hubUSD) {
		t.Fatalf("expected two hops through the hub, got %+v", q.Route)
	}
}

func TestQuoteExactInNoLiquidityIsValueNotError(t *testing.T) {
	fq := &fixtureQuoter{rates: map[string]map[uint32]int64{}}
	agg := NewAggregator(fq.quote, nil)

	q, err := agg.QuoteExactIn(context.Background(), 900, tokenA, tokenB, big.NewInt(1_000_000), []*domain.Currency{hubUSD})
	if err != nil {
		t.Fatalf("no liquidity must not be an error, got %v", err)
	}
	if q.Best != domain.BestNone {
		t.Fatalf("expected BestNone, got %v", q.Best)
	}
	if q.HasLiquidity() {
		t.Fatal("BestNone quote must report no liquidity")
	}
}

func TestQuoteExactOutMinimizesInput(t *testing.T) {
	fq := &fixtureQuoter{rates: map[string]map[uint32]int64{
		"TKA/TKB": {500: 9800, 10000: 9000},
	}}
	agg := NewAggregator(fq.quote, nil)

	q, err := agg.QuoteExactOut(context.Background(), 900, tokenA, tokenB, big.NewInt(980_000), nil)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Best != domain.BestSingle {
		t.Fatalf("expected single best, got %v", q.Best)
	}
	// 980000 * 10000 / 9800 = 1000000 beats 980000*10000/9000
	if got := q.AmountIn.Int64(); got != 1_000_000 {
		t.Fatalf("expected minimal input 1000000, got %d", got)
	}
	if q.AmountOut.Int64() != 980_000 {
		t.Fatalf("exact-out amount must stay fixed, got %d", q.AmountOut.Int64())
	}
}

func TestQuoteExactInRejectsSameCurrency(t *testing.T) {
	called := false
	agg := NewAggregator(func(context.Context, PoolQuoteRequest) (*PoolQuote, error) {
		called = true
		return nil, ErrPoolUnavailable
	}, nil)

	if _, err := agg.QuoteExactIn(context.Background(), 900, tokenA, tokenA, big.NewInt(1), nil); !errors.Is(err, ErrSameCurrency) {
		t.Fatalf("expected ErrSameCurrency, got %v", err)
	}
	if called {
		t.Fatal("identical pair must be rejected before any quoter call")
	}
}

func TestQuoteExactInPropagatesTransportError(t *testing.T) {
	boom := errors.New("rpc timeout")
	agg := NewAggregator(func(context.Context, PoolQuoteRequest) (*PoolQuote, error) {
		return nil, boom
	}, nil)

	_, err := agg.QuoteExactIn(context.Background(), 900, tokenA, tokenB, big.NewInt(1_000_000), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error to surface, got %v", err)
	}
}

func TestQuoteExactInTieKeepsSingleHop(t *testing.T) {
	// Hub route prices to exactly the same output as the direct pool; the
	// direct single-hop must win the tie.
	fq := &fixtureQuoter{rates: map[string]map[uint32]int64{
		"TKA/TKB":  {500: 9000},
		"TKA/USDh": {500: 10000},
		"USDh/TKB": {500: 9000},
	}}
	agg := NewAggregator(fq.quote, nil)

	q, err := agg.QuoteExactIn(context.Background(), 900, tokenA, tokenB, big.NewInt(1_000_000), []*domain.Currency{hubUSD})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Best != domain.BestSingle {
		t.Fatalf("tie must keep the single-hop candidate, got %v", q.Best)
	}
}
