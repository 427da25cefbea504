package router

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/services/quoter"
	"github.com/hxuan190/omni-route/internal/services/tokengraph"
)

func token(chainID uint64, addrByte byte, symbol string) *domain.Currency {
	return &domain.Currency{
		ChainID:  chainID,
		Address:  common.Address{addrByte},
		Decimals: 18,
		Symbol:   symbol,
	}
}

// poolIndexStub answers pool existence from a static pair list.
type poolIndexStub struct {
	pairs map[uint64][][2]common.Address
	hubs  map[uint64][]*domain.Currency
}

func (p *poolIndexStub) HasPool(chainID uint64, a, b *domain.Currency) bool {
	for _, pair := range p.pairs[chainID] {
		if (pair[0] == a.Address && pair[1] == b.Address) ||
			(pair[0] == b.Address && pair[1] == a.Address) {
			return true
		}
	}
	return false
}

func (p *poolIndexStub) Hubs(chainID uint64) []*domain.Currency {
	return p.hubs[chainID]
}

// fixture: tokens A and B each bridged between chains 900 and 901, with a
// single A/B pool deployed on chain 900 only.
func twoChainFixture(t *testing.T) (*tokengraph.Graph, *poolIndexStub, map[string]*domain.Currency) {
	t.Helper()

	g := tokengraph.New()
	cs := map[string]*domain.Currency{
		"A900": token(900, 0xa, "AAA"),
		"A901": token(901, 0xa, "AAA"),
		"B900": token(900, 0xb, "BBB"),
		"B901": token(901, 0xb, "BBB"),
	}
	for _, c := range cs {
		g.Register(c)
	}
	if err := g.Connect([]*domain.Currency{cs["A900"], cs["A901"]}); err != nil {
		t.Fatalf("connect A: %v", err)
	}
	if err := g.Connect([]*domain.Currency{cs["B900"], cs["B901"]}); err != nil {
		t.Fatalf("connect B: %v", err)
	}

	pools := &poolIndexStub{
		pairs: map[uint64][][2]common.Address{
			900: {{cs["A900"].Address, cs["B900"].Address}},
		},
	}
	return g, pools, cs
}

func checkPlan(t *testing.T, plan domain.RoutePlan, kinds ...domain.FlowKind) {
	t.Helper()
	if len(plan) != len(kinds) {
		t.Fatalf("got %d flows, want %d", len(plan), len(kinds))
	}
	for i, k := range kinds {
		if plan[i].Kind != k {
			t.Errorf("flow %d: got kind %v, want %v", i, plan[i].Kind, k)
		}
	}
	if !plan.Valid() {
		t.Errorf("plan does not chain: %+v", plan)
	}
}

func TestClassifyDirectBridge(t *testing.T) {
	g, pools, cs := twoChainFixture(t)
	c := NewClassifier(g, pools)

	plan, err := c.Classify(cs["A900"], cs["A901"])
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	checkPlan(t, plan, domain.FlowBridge)
	if got := plan.Kind(); got != domain.KindBridge {
		t.Errorf("got kind %s, want %s", got, domain.KindBridge)
	}
}

func TestClassifySameChainSwap(t *testing.T) {
	g, pools, cs := twoChainFixture(t)
	c := NewClassifier(g, pools)

	plan, err := c.Classify(cs["A900"], cs["B900"])
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	checkPlan(t, plan, domain.FlowSwap)
	if plan[0].ChainID != 900 {
		t.Errorf("swap on chain %d, want 900", plan[0].ChainID)
	}
	if got := plan.Kind(); got != domain.KindSwap {
		t.Errorf("got kind %s, want %s", got, domain.KindSwap)
	}
}

// With no pool on chain 901, bridging A first strands it; the classifier
// must fall through to swap-then-bridge.
func TestClassifySwapThenBridge(t *testing.T) {
	g, pools, cs := twoChainFixture(t)
	c := NewClassifier(g, pools)

	plan, err := c.Classify(cs["A900"], cs["B901"])
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	checkPlan(t, plan, domain.FlowSwap, domain.FlowBridge)
	if plan[0].ChainID != 900 {
		t.Errorf("swap on chain %d, want 900", plan[0].ChainID)
	}
	if !plan[1].Out.Equal(cs["B901"]) {
		t.Errorf("bridge lands on %s, want %s", plan[1].Out, cs["B901"])
	}
	if got := plan.Kind(); got != domain.KindSwapBridge {
		t.Errorf("got kind %s, want %s", got, domain.KindSwapBridge)
	}
}

func TestClassifyBridgeThenSwap(t *testing.T) {
	g, pools, cs := twoChainFixture(t)
	c := NewClassifier(g, pools)

	plan, err := c.Classify(cs["A901"], cs["B900"])
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	checkPlan(t, plan, domain.FlowBridge, domain.FlowSwap)
	if plan[1].ChainID != 900 {
		t.Errorf("swap on chain %d, want 900", plan[1].ChainID)
	}
	if got := plan.Kind(); got != domain.KindBridgeSwap {
		t.Errorf("got kind %s, want %s", got, domain.KindBridgeSwap)
	}
}

func TestClassifyNoRouteIsValue(t *testing.T) {
	g, pools, cs := twoChainFixture(t)
	c := NewClassifier(g, pools)

	// Chain 901 has no pools at all.
	plan, err := c.Classify(cs["A901"], cs["B901"])
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if plan != nil {
		t.Errorf("expected no route, got %+v", plan)
	}
}

func TestClassifySameCurrency(t *testing.T) {
	g, pools, cs := twoChainFixture(t)
	c := NewClassifier(g, pools)

	if _, err := c.Classify(cs["A900"], cs["A900"]); !errors.Is(err, ErrSameCurrency) {
		t.Fatalf("got %v, want ErrSameCurrency", err)
	}
}

// Neither endpoint chain can swap, but chain 900 carries remotes of both
// sides and the pool between them.
func TestClassifyBridgeSwapBridge(t *testing.T) {
	g, pools, cs := twoChainFixture(t)

	a902 := g.Register(token(902, 0xa, "AAA"))
	b903 := g.Register(token(903, 0xb, "BBB"))
	if err := g.Connect([]*domain.Currency{cs["A900"], a902}); err != nil {
		t.Fatalf("connect A: %v", err)
	}
	if err := g.Connect([]*domain.Currency{cs["B900"], b903}); err != nil {
		t.Fatalf("connect B: %v", err)
	}

	c := NewClassifier(g, pools)
	plan, err := c.Classify(a902, b903)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	checkPlan(t, plan, domain.FlowBridge, domain.FlowSwap, domain.FlowBridge)
	if plan[1].ChainID != 900 {
		t.Errorf("intermediate swap on chain %d, want 900", plan[1].ChainID)
	}
	if got := plan.Kind(); got != domain.KindMultiLeg {
		t.Errorf("got kind %s, want %s", got, domain.KindMultiLeg)
	}
}

func TestClassifyMultihopPathViaHub(t *testing.T) {
	g := tokengraph.New()
	a := g.Register(token(900, 0xa, "AAA"))
	b := g.Register(token(900, 0xb, "BBB"))
	hub := g.Register(token(900, 0xc, "HUB"))

	// No direct A/B pool; both sides pair against the hub.
	pools := &poolIndexStub{
		pairs: map[uint64][][2]common.Address{
			900: {
				{a.Address, hub.Address},
				{hub.Address, b.Address},
			},
		},
		hubs: map[uint64][]*domain.Currency{900: {hub}},
	}

	c := NewClassifier(g, pools)
	plan, err := c.Classify(a, b)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	checkPlan(t, plan, domain.FlowSwap)
}

// fixture: A on 902 and B on 903, both bridged onto intermediates 900 and
// 905, with A/B pools on both intermediates — two feasible middle chains.
func twoIntermediateFixture(t *testing.T) (*tokengraph.Graph, *poolIndexStub, *domain.Currency, *domain.Currency) {
	t.Helper()

	g := tokengraph.New()
	a900 := g.Register(token(900, 0xa, "AAA"))
	a905 := g.Register(token(905, 0xa, "AAA"))
	a902 := g.Register(token(902, 0xa, "AAA"))
	b900 := g.Register(token(900, 0xb, "BBB"))
	b905 := g.Register(token(905, 0xb, "BBB"))
	b903 := g.Register(token(903, 0xb, "BBB"))

	if err := g.Connect([]*domain.Currency{a900, a902, a905}); err != nil {
		t.Fatalf("connect A: %v", err)
	}
	if err := g.Connect([]*domain.Currency{b900, b903, b905}); err != nil {
		t.Fatalf("connect B: %v", err)
	}

	pools := &poolIndexStub{
		pairs: map[uint64][][2]common.Address{
			900: {{a900.Address, b900.Address}},
			905: {{a905.Address, b905.Address}},
		},
	}
	return g, pools, a902, b903
}

// Without an amount the intermediate-chain choice must not depend on map
// iteration order: repeated calls always land on the lowest chain id.
func TestClassifyIntermediateChainDeterministic(t *testing.T) {
	g, pools, a902, b903 := twoIntermediateFixture(t)
	c := NewClassifier(g, pools)

	for i := 0; i < 100; i++ {
		plan, err := c.Classify(a902, b903)
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		checkPlan(t, plan, domain.FlowBridge, domain.FlowSwap, domain.FlowBridge)
		if plan[1].ChainID != 900 {
			t.Fatalf("call %d: intermediate swap on chain %d, want 900", i, plan[1].ChainID)
		}
	}
}

// With an amount and a bound selector, the better-priced intermediate wins
// over the lower chain id.
func TestClassifyIntermediateChainByPrice(t *testing.T) {
	g, pools, a902, b903 := twoIntermediateFixture(t)

	agg := quoter.NewAggregator(perChainRate(map[uint64]int64{
		900: 9_700,
		905: 9_900,
	}), nil)
	sel := NewSelector(g, agg, pools, deploymentsStub{900: true, 905: true})

	c := NewClassifier(g, pools)
	c.UseSelector(sel)

	plan, err := c.ClassifyWithAmount(context.Background(), a902, b903, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	checkPlan(t, plan, domain.FlowBridge, domain.FlowSwap, domain.FlowBridge)
	if plan[1].ChainID != 905 {
		t.Errorf("intermediate swap on chain %d, want the better-priced 905", plan[1].ChainID)
	}

	// The amount-free path keeps the deterministic choice.
	plan, err = c.Classify(a902, b903)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if plan[1].ChainID != 900 {
		t.Errorf("amount-free intermediate on chain %d, want 900", plan[1].ChainID)
	}
}

// An undeployed intermediate is skipped by the priced selection.
func TestClassifyIntermediateSkipsUndeployed(t *testing.T) {
	g, pools, a902, b903 := twoIntermediateFixture(t)

	agg := quoter.NewAggregator(perChainRate(map[uint64]int64{
		900: 9_700,
		905: 9_900,
	}), nil)
	sel := NewSelector(g, agg, pools, deploymentsStub{900: true})

	c := NewClassifier(g, pools)
	c.UseSelector(sel)

	plan, err := c.ClassifyWithAmount(context.Background(), a902, b903, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if plan[1].ChainID != 900 {
		t.Errorf("intermediate swap on chain %d, want the only deployed 900", plan[1].ChainID)
	}
}
