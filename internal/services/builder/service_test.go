package builder

import (
	"math/big"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/omni-route/internal/common"
	"github.com/hxuan190/omni-route/internal/domain"
)

func token(addrByte byte, symbol string) *domain.Currency {
	return &domain.Currency{
		ChainID:  1,
		Address:  ethcommon.Address{addrByte},
		Decimals: 18,
		Symbol:   symbol,
	}
}

func nativeCurrency() *domain.Currency {
	return &domain.Currency{ChainID: 1, Decimals: 18, Symbol: "ETH", Native: true}
}

func singleHopQuote(in, out *domain.Currency, amountIn, amountOut int64) *domain.Quote {
	return &domain.Quote{
		ChainID:   1,
		In:        in,
		Out:       out,
		AmountIn:  big.NewInt(amountIn),
		AmountOut: big.NewInt(amountOut),
		Route: domain.Route{{
			In: in, Out: out,
			Config: domain.PoolConfig{Fee: 3000, TickSpacing: 60},
		}},
		Best: domain.BestSingle,
	}
}

func opSequence(plan *domain.ExecutionPlan) []domain.Opcode {
	ops := make([]domain.Opcode, len(plan.Instructions))
	for i, ins := range plan.Instructions {
		ops[i] = ins.Op
	}
	return ops
}

func countOp(ops []domain.Opcode, op domain.Opcode) int {
	n := 0
	for _, o := range ops {
		if o == op {
			n++
		}
	}
	return n
}

func TestSlippageMinOut(t *testing.T) {
	amount := big.NewInt(1_000_000)

	// 1% in centi-bps.
	got := SlippageMinOut(amount, 1_000)
	if got.Int64() != 990_000 {
		t.Errorf("minOut = %s, want 990000", got)
	}

	// Pure and idempotent: identical inputs, identical integer.
	again := SlippageMinOut(amount, 1_000)
	if got.Cmp(again) != 0 {
		t.Errorf("second call returned %s, first %s", again, got)
	}

	// Zero tolerance is the identity.
	if id := SlippageMinOut(amount, 0); id.Cmp(amount) != 0 {
		t.Errorf("f(x, 0) = %s, want %s", id, amount)
	}

	// Full tolerance floors at zero.
	if z := SlippageMinOut(amount, common.SlippageDenominator); z.Sign() != 0 {
		t.Errorf("f(x, denom) = %s, want 0", z)
	}
}

func TestSlippageMaxIn(t *testing.T) {
	got := SlippageMaxIn(big.NewInt(1_000_000), 1_000)
	if got.Int64() != 1_010_000 {
		t.Errorf("maxIn = %s, want 1010000", got)
	}
}

func TestAssemblePermitIsFirst(t *testing.T) {
	a := NewAssembler()
	plan, err := a.Assemble(Request{
		ChainID: 1,
		Legs:    []Leg{{Quote: singleHopQuote(token(0xa, "AAA"), token(0xb, "BBB"), 100, 98), ExactIn: true}},
	}, Options{Permit: []byte{0xde, 0xad}})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if plan.Instructions[0].Op != domain.OpPermit {
		t.Errorf("instruction 0 is %s, want PERMIT", plan.Instructions[0].Op)
	}
}

// Two legs paying the same input and landing on two outputs: exactly one
// settle for the shared input and one take per distinct output.
func TestAssembleSettleTakeDeduplication(t *testing.T) {
	in := token(0x1, "USDX")
	outZ := token(0xc, "ZZZ")
	outW := token(0xd, "WWW")

	a := NewAssembler()
	plan, err := a.Assemble(Request{
		ChainID: 1,
		Legs: []Leg{
			{Quote: singleHopQuote(in, outZ, 100, 98), ExactIn: true},
			{Quote: singleHopQuote(in, outW, 200, 196), ExactIn: true},
			{Quote: singleHopQuote(in, outZ, 50, 49), ExactIn: true},
		},
	}, Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	ops := opSequence(plan)
	if got := countOp(ops, domain.OpSettle); got != 1 {
		t.Errorf("got %d settles, want 1 for the single distinct input", got)
	}
	if got := countOp(ops, domain.OpTake); got != 2 {
		t.Errorf("got %d takes, want 2 for two distinct outputs", got)
	}

	// Swaps strictly before settles, settles strictly before takes.
	want := []domain.Opcode{
		domain.OpSwapExactInSingle, domain.OpSwapExactInSingle, domain.OpSwapExactInSingle,
		domain.OpSettle, domain.OpTake, domain.OpTake,
	}
	if len(ops) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(ops), len(want))
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("instruction %d is %s, want %s", i, ops[i], want[i])
		}
	}
}

func TestAssembleTargetCallsLast(t *testing.T) {
	in := token(0x1, "USDX")
	out := token(0xb, "BBB")

	a := NewAssembler()
	plan, err := a.Assemble(Request{
		ChainID: 1,
		Legs:    []Leg{{Quote: singleHopQuote(in, out, 100, 98), ExactIn: true}},
		FollowUps: []TargetCall{
			{To: ethcommon.Address{0xee}, Data: []byte{0x01}},
		},
	}, Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	ops := opSequence(plan)
	if ops[len(ops)-1] != domain.OpTargetCall {
		t.Errorf("last instruction is %s, want TARGET_CALL", ops[len(ops)-1])
	}
}

func TestAssembleNativeValue(t *testing.T) {
	native := nativeCurrency()
	out := token(0xb, "BBB")
	fee := big.NewInt(7)

	a := NewAssembler()
	plan, err := a.Assemble(Request{
		ChainID: 1,
		Legs:    []Leg{{Quote: singleHopQuote(native, out, 1_000, 980), ExactIn: true}},
		FollowUps: []TargetCall{
			{To: ethcommon.Address{0xee}, Data: []byte{0x01}, Value: fee},
		},
	}, Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	// amountIn plus the bridge fee.
	if plan.Value.Int64() != 1_007 {
		t.Errorf("value = %s, want 1007", plan.Value)
	}
}

func TestAssembleTokenInputZeroValue(t *testing.T) {
	a := NewAssembler()
	plan, err := a.Assemble(Request{
		ChainID: 1,
		Legs:    []Leg{{Quote: singleHopQuote(token(0xa, "AAA"), token(0xb, "BBB"), 100, 98), ExactIn: true}},
	}, Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if plan.Value.Sign() != 0 {
		t.Errorf("value = %s, want 0 for token input", plan.Value)
	}
}

func TestAssembleDeadlines(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	opts := Options{Now: func() time.Time { return now }}
	leg := Leg{Quote: singleHopQuote(token(0xa, "AAA"), token(0xb, "BBB"), 100, 98), ExactIn: true}

	a := NewAssembler()
	plan, err := a.Assemble(Request{ChainID: 1, Legs: []Leg{leg}}, opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if want := uint64(1_700_000_000 + common.DefaultDeadlineSeconds); plan.Deadline != want {
		t.Errorf("deadline = %d, want %d", plan.Deadline, want)
	}

	// Follow-up calls imply a bridge horizon.
	plan, err = a.Assemble(Request{
		ChainID:   1,
		Legs:      []Leg{leg},
		FollowUps: []TargetCall{{To: ethcommon.Address{0xee}}},
	}, opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if want := uint64(1_700_000_000 + common.BridgeDeadlineSeconds); plan.Deadline != want {
		t.Errorf("bridge deadline = %d, want %d", plan.Deadline, want)
	}

	// Explicit horizon wins.
	plan, err = a.Assemble(Request{ChainID: 1, Legs: []Leg{leg}}, Options{
		DeadlineSeconds: 42, Now: opts.Now,
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if want := uint64(1_700_000_000 + 42); plan.Deadline != want {
		t.Errorf("custom deadline = %d, want %d", plan.Deadline, want)
	}
}

func TestAssembleEmptyRequest(t *testing.T) {
	a := NewAssembler()
	if _, err := a.Assemble(Request{ChainID: 1}, Options{}); err == nil {
		t.Fatal("expected error for empty request")
	}
}

func TestToCallArgs(t *testing.T) {
	a := NewAssembler()
	plan, err := a.Assemble(Request{
		ChainID: 1,
		Legs:    []Leg{{Quote: singleHopQuote(nativeCurrency(), token(0xb, "BBB"), 1_000, 980), ExactIn: true}},
	}, Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	router := ethcommon.Address{0x99}
	signer := ethcommon.Address{0x55}
	call, err := a.ToCallArgs(plan, router, signer)
	if err != nil {
		t.Fatalf("to call args: %v", err)
	}
	if call.To != router {
		t.Errorf("to = %s, want router", call.To)
	}
	if call.Signer != signer {
		t.Errorf("signer = %s, want %s", call.Signer, signer)
	}
	if call.Value.Cmp(plan.Value) != 0 {
		t.Errorf("value = %s, want %s", call.Value, plan.Value)
	}
	if len(call.Data) == 0 {
		t.Error("empty calldata")
	}
}

func TestPlannerMultihopOpcode(t *testing.T) {
	in := token(0xa, "AAA")
	hub := token(0xc, "HUB")
	out := token(0xb, "BBB")
	q := &domain.Quote{
		ChainID:   1,
		In:        in,
		Out:       out,
		AmountIn:  big.NewInt(100),
		AmountOut: big.NewInt(97),
		Route: domain.Route{
			{In: in, Out: hub, Config: domain.PoolConfig{Fee: 500, TickSpacing: 10}},
			{In: hub, Out: out, Config: domain.PoolConfig{Fee: 3000, TickSpacing: 60}},
		},
		Best: domain.BestMultihop,
	}

	a := NewAssembler()
	plan, err := a.Assemble(Request{ChainID: 1, Legs: []Leg{{Quote: q, ExactIn: true}}}, Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if plan.Instructions[0].Op != domain.OpSwapExactIn {
		t.Errorf("instruction 0 is %s, want SWAP_EXACT_IN", plan.Instructions[0].Op)
	}
}
