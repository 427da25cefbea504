package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/omni-route/internal/config"
	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/services/builder"
	"github.com/hxuan190/omni-route/internal/services/quoter"
	"github.com/hxuan190/omni-route/internal/services/router"
)

const (
	addrA      = "0x00000000000000000000000000000000000000aa"
	addrB      = "0x00000000000000000000000000000000000000bb"
	quoterAddr = "0x00000000000000000000000000000000000000c1"
	routerAddr = "0x00000000000000000000000000000000000000c2"
	bridgeAddr = "0x00000000000000000000000000000000000000c3"
)

type deploymentsStub map[uint64]bool

func (d deploymentsStub) HasQuoter(chainID uint64) bool { return d[chainID] }

// perChainRate prices the direct pair with a per-chain bps rate; absent
// chains have no liquidity.
func perChainRate(rates map[uint64]int64) quoter.QuoteFunc {
	return func(_ context.Context, req quoter.PoolQuoteRequest) (*quoter.PoolQuote, error) {
		rate, ok := rates[req.ChainID]
		if !ok {
			return nil, quoter.ErrPoolUnavailable
		}
		out := new(big.Int).Mul(req.Amount, big.NewInt(rate))
		out.Div(out, big.NewInt(10_000))
		if !req.ExactIn {
			out = new(big.Int).Mul(req.Amount, big.NewInt(10_000))
			out.Div(out, big.NewInt(rate))
		}
		return &quoter.PoolQuote{Amount: out, GasEstimate: 90_000}, nil
	}
}

// fixture: USDX bridged between 900 and 901; WIDE and the only USDX/WIDE
// pool live on 901. Converting USDX@900 into WIDE@901 must bridge first.
func engineFixture(t *testing.T, rates map[uint64]int64) *Service {
	t.Helper()

	cfg := &config.ChainsConfig{Chains: []config.ChainConfig{
		{
			ChainID: 900,
			RPCUrl:  "http://localhost:1",
			Bridge:  bridgeAddr,
			Currencies: []config.CurrencyConfig{
				{Address: addrA, Decimals: 18, Symbol: "USDX", Group: "usdx"},
			},
		},
		{
			ChainID: 901,
			RPCUrl:  "http://localhost:2",
			Quoter:  quoterAddr,
			Router:  routerAddr,
			Bridge:  bridgeAddr,
			Currencies: []config.CurrencyConfig{
				{Address: addrA, Decimals: 18, Symbol: "USDX", Group: "usdx"},
				{Address: addrB, Decimals: 18, Symbol: "WIDE"},
			},
			Pools: []config.PoolPairConfig{{Token0: addrA, Token1: addrB}},
		},
	}}

	registry, err := BuildRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	agg := quoter.NewAggregator(perChainRate(rates), nil)
	sel := router.NewSelector(registry.Graph(), agg, registry, deploymentsStub{901: true})
	classifier := router.NewClassifier(registry.Graph(), registry)
	classifier.UseSelector(sel)

	return &Service{
		registry:   registry,
		agg:        agg,
		classifier: classifier,
		selector:   sel,
		assembler:  builder.NewAssembler(),
		general:    &config.GeneralConfig{SlippageCentiBps: 1_000, DeadlineSeconds: 600},
	}
}

// A bridge-then-swap plan must price the destination-chain swap leg, not
// just the bridge deposit.
func TestBuildPlanBridgeSwapQuotesDestinationLeg(t *testing.T) {
	svc := engineFixture(t, map[uint64]int64{901: 9_800})

	in, err := svc.ResolveCurrency(900, ethcommon.HexToAddress(addrA))
	if err != nil {
		t.Fatalf("resolve in: %v", err)
	}
	out, err := svc.ResolveCurrency(901, ethcommon.HexToAddress(addrB))
	if err != nil {
		t.Fatalf("resolve out: %v", err)
	}

	result, err := svc.BuildPlan(context.Background(), PlanRequest{
		In:       in,
		Out:      out,
		AmountIn: big.NewInt(1_000_000),
		Signer:   ethcommon.Address{0x51},
	})
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}

	if result.Kind != domain.KindBridgeSwap {
		t.Errorf("got kind %s, want %s", result.Kind, domain.KindBridgeSwap)
	}
	if len(result.Quotes) != 1 {
		t.Fatalf("got %d quotes, want the destination swap leg priced", len(result.Quotes))
	}
	q := result.Quotes[0]
	if q.ChainID != 901 || q.In.ChainID != 901 || q.Out.ChainID != 901 {
		t.Errorf("quote on chain %d (%d/%d), want 901 throughout", q.ChainID, q.In.ChainID, q.Out.ChainID)
	}
	if want := big.NewInt(980_000); q.AmountOut.Cmp(want) != 0 {
		t.Errorf("destination amountOut = %s, want %s", q.AmountOut, want)
	}

	// The submitted transaction is still the source-chain bridge deposit.
	if len(result.Calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(result.Calls))
	}
	if result.Calls[0].To != ethcommon.HexToAddress(bridgeAddr) {
		t.Errorf("call target %s, want the bridge %s", result.Calls[0].To, bridgeAddr)
	}
}

// A dry destination leg fails the whole plan, commit semantics.
func TestBuildPlanBridgeSwapDryDestination(t *testing.T) {
	svc := engineFixture(t, map[uint64]int64{})

	in, _ := svc.ResolveCurrency(900, ethcommon.HexToAddress(addrA))
	out, _ := svc.ResolveCurrency(901, ethcommon.HexToAddress(addrB))

	result, err := svc.BuildPlan(context.Background(), PlanRequest{
		In:       in,
		Out:      out,
		AmountIn: big.NewInt(1_000_000),
		Signer:   ethcommon.Address{0x51},
	})
	if !errors.Is(err, ErrNoLiquidity) {
		t.Fatalf("got err %v, want ErrNoLiquidity", err)
	}
	if result != nil {
		t.Errorf("got a partial result %+v, want nil", result)
	}
}
