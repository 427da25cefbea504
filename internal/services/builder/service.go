package builder

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/hxuan190/omni-route/internal/common"
	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/metrics"
)

// routerExecuteABI is the entrypoint consumed by submission: one byte of
// command per instruction plus the matching encoded inputs.
const routerExecuteABI = `[{"name":"execute","type":"function","stateMutability":"payable","inputs":[{"name":"commands","type":"bytes"},{"name":"inputs","type":"bytes[]"},{"name":"deadline","type":"uint256"}],"outputs":[]}]`

var routerABI = mustParseABI(routerExecuteABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Leg is one priced swap to include in a plan.
type Leg struct {
	Quote   *domain.Quote
	ExactIn bool
}

// Request describes one chain-local transaction to assemble. The assembler
// never re-derives prices; the quotes are taken as chosen.
type Request struct {
	ChainID uint64
	Legs    []Leg

	// OutputReceivers redirects takes of specific output currencies,
	// used when a following bridge instruction consumes the funds.
	OutputReceivers map[domain.CurrencyKey]ethcommon.Address

	// FollowUps run after settlement: bridge sweeps, bridge allowance
	// grants, cross-chain message dispatches.
	FollowUps []TargetCall
}

// Options tune slippage and deadline; zero values take the defaults.
type Options struct {
	SlippageCentiBps uint64
	DeadlineSeconds  uint64
	Permit           hexutil.Bytes
	Now              func() time.Time
}

type Assembler struct {
	log zerolog.Logger
}

func NewAssembler() *Assembler {
	return &Assembler{log: common.NewComponentLogger("builder")}
}

// Assemble turns a request into an immutable execution plan. Instruction
// order follows the on-chain contract: permit first, swaps, one settle per
// distinct input, one take per distinct output, follow-up calls last.
func (a *Assembler) Assemble(req Request, opts Options) (*domain.ExecutionPlan, error) {
	slippage := opts.SlippageCentiBps
	if slippage == 0 {
		slippage = common.DefaultSlippageCentiBps
	}
	deadline := opts.DeadlineSeconds
	if deadline == 0 {
		deadline = common.DefaultDeadlineSeconds
		if len(req.FollowUps) > 0 {
			deadline = common.BridgeDeadlineSeconds
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	planner := NewPlanner()
	if len(opts.Permit) > 0 {
		planner.AddPermit(opts.Permit)
	}
	for _, leg := range req.Legs {
		limit := SlippageMinOut(leg.Quote.AmountOut, slippage)
		if !leg.ExactIn {
			limit = SlippageMaxIn(leg.Quote.AmountIn, slippage)
		}
		planner.AddSwap(SwapLeg{Quote: leg.Quote, ExactIn: leg.ExactIn, Limit: limit})
	}
	for key, receiver := range req.OutputReceivers {
		for _, leg := range req.Legs {
			if leg.Quote.Out.Key() == key {
				planner.RouteOutput(leg.Quote.Out, receiver)
				break
			}
		}
	}
	for _, call := range req.FollowUps {
		planner.AddTargetCall(call)
	}

	actions, err := planner.Build()
	if err != nil {
		metrics.PlanRequests.WithLabelValues("swap", "error").Inc()
		return nil, err
	}
	instructions, err := EncodeActions(actions)
	if err != nil {
		metrics.PlanRequests.WithLabelValues("swap", "error").Inc()
		return nil, err
	}

	plan := &domain.ExecutionPlan{
		ChainID:      req.ChainID,
		Instructions: instructions,
		Value:        actions.NativeValue(),
		Deadline:     uint64(now().Unix()) + deadline,
	}
	metrics.PlanRequests.WithLabelValues("swap", "ok").Inc()
	metrics.PlanInstructions.Observe(float64(len(instructions)))
	a.log.Debug().
		Uint64("chain", req.ChainID).
		Int("instructions", len(instructions)).
		Str("value", plan.Value.String()).
		Msg("assembled execution plan")
	return plan, nil
}

// ToCallArgs wraps a plan into the single router call ready for an
// external signer.
func (a *Assembler) ToCallArgs(plan *domain.ExecutionPlan, router, signer ethcommon.Address) (*domain.CallArgs, error) {
	commands := make([]byte, len(plan.Instructions))
	inputs := make([][]byte, len(plan.Instructions))
	for i, ins := range plan.Instructions {
		commands[i] = byte(ins.Op)
		inputs[i] = ins.Data
	}
	data, err := routerABI.Pack("execute", commands, inputs, new(big.Int).SetUint64(plan.Deadline))
	if err != nil {
		return nil, fmt.Errorf("encode execute call: %w", err)
	}
	return &domain.CallArgs{
		To:     router,
		Data:   data,
		Value:  plan.Value,
		Signer: signer,
	}, nil
}

// SlippageMinOut applies the slippage tolerance to an exact-in output:
// amountOut × (100000 − centiBps) / 100000 in integer arithmetic. The
// function is pure; a zero tolerance returns the amount unchanged.
func SlippageMinOut(amountOut *big.Int, centiBps uint64) *big.Int {
	if centiBps >= common.SlippageDenominator {
		return new(big.Int)
	}
	x, _ := uint256.FromBig(amountOut)
	z := new(uint256.Int)
	z.MulDivOverflow(x, uint256.NewInt(common.SlippageDenominator-centiBps), uint256.NewInt(common.SlippageDenominator))
	return z.ToBig()
}

// SlippageMaxIn is the exact-out dual: the largest input the caller will
// pay, amountIn × (100000 + centiBps) / 100000.
func SlippageMaxIn(amountIn *big.Int, centiBps uint64) *big.Int {
	x, _ := uint256.FromBig(amountIn)
	z := new(uint256.Int)
	z.MulDivOverflow(x, uint256.NewInt(common.SlippageDenominator+centiBps), uint256.NewInt(common.SlippageDenominator))
	return z.ToBig()
}
