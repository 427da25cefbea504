// Package builder turns a chosen quote or flow list into an ordered,
// atomic execution plan. The planner assembles the in-memory action list
// and owns the ordering rules; serialization to encoded instructions is a
// separate step so the two can be tested independently.
package builder

import (
	"errors"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/hxuan190/omni-route/internal/domain"
)

var (
	ErrEmptyPlan    = errors.New("plan has no actions")
	ErrMissingLimit = errors.New("swap leg has no slippage limit")
)

// SwapLeg is one priced swap to encode. Limit is amountOutMinimum for
// exact-in legs and amountInMaximum for exact-out legs.
type SwapLeg struct {
	Quote   *domain.Quote
	ExactIn bool
	Limit   *big.Int
}

// TargetCall is a follow-up contract call appended after settlement:
// a bridge sweep, a bridge allowance grant, or a message dispatch.
type TargetCall struct {
	To    ethcommon.Address
	Data  hexutil.Bytes
	Value *big.Int
}

// settleEntry accumulates the total paid per distinct input currency.
type settleEntry struct {
	currency *domain.Currency
	amount   *big.Int
}

// takeEntry accumulates the minimum received per distinct output currency.
// Receiver zero means the caller.
type takeEntry struct {
	currency *domain.Currency
	minimum  *big.Int
	receiver ethcommon.Address
}

// Planner builds the ordered action list for one transaction. Actions are
// appended in call order; Build derives the settle and take sets from the
// swap legs and emits everything in the on-chain-mandated sequence.
type Planner struct {
	permit    hexutil.Bytes
	legs      []SwapLeg
	calls     []TargetCall
	receivers map[domain.CurrencyKey]ethcommon.Address
}

func NewPlanner() *Planner {
	return &Planner{receivers: make(map[domain.CurrencyKey]ethcommon.Address)}
}

// AddPermit installs a pre-signed permit blob. It always serializes at
// instruction index 0.
func (p *Planner) AddPermit(data hexutil.Bytes) *Planner {
	p.permit = data
	return p
}

func (p *Planner) AddSwap(leg SwapLeg) *Planner {
	p.legs = append(p.legs, leg)
	return p
}

func (p *Planner) AddTargetCall(call TargetCall) *Planner {
	p.calls = append(p.calls, call)
	return p
}

// RouteOutput redirects the take of one output currency to a specific
// receiver, used when a following bridge step consumes the funds.
func (p *Planner) RouteOutput(c *domain.Currency, receiver ethcommon.Address) *Planner {
	p.receivers[c.Key()] = receiver
	return p
}

// Actions is the fully ordered in-memory plan:
// permit, swaps, one settle per distinct input, one take per distinct
// output, then target calls. Settles and takes are emitted in
// first-appearance order so serialization is deterministic.
type Actions struct {
	Permit  hexutil.Bytes
	Legs    []SwapLeg
	Settles []settleEntry
	Takes   []takeEntry
	Calls   []TargetCall
}

func (p *Planner) Build() (*Actions, error) {
	if len(p.legs) == 0 && len(p.calls) == 0 {
		return nil, ErrEmptyPlan
	}

	var (
		settleOrder []domain.CurrencyKey
		settles     = make(map[domain.CurrencyKey]*settleEntry)
		takeOrder   []domain.CurrencyKey
		takes       = make(map[domain.CurrencyKey]*takeEntry)
	)
	for _, leg := range p.legs {
		if leg.Limit == nil {
			return nil, ErrMissingLimit
		}

		inKey := leg.Quote.In.Key()
		s, ok := settles[inKey]
		if !ok {
			s = &settleEntry{currency: leg.Quote.In, amount: new(big.Int)}
			settles[inKey] = s
			settleOrder = append(settleOrder, inKey)
		}
		// Worst-case payment: the fixed input for exact-in, the
		// maximum-input limit for exact-out.
		if leg.ExactIn {
			s.amount.Add(s.amount, leg.Quote.AmountIn)
		} else {
			s.amount.Add(s.amount, leg.Limit)
		}

		outKey := leg.Quote.Out.Key()
		tk, ok := takes[outKey]
		if !ok {
			tk = &takeEntry{currency: leg.Quote.Out, minimum: new(big.Int), receiver: p.receivers[outKey]}
			takes[outKey] = tk
			takeOrder = append(takeOrder, outKey)
		}
		// Guaranteed receipt: the minimum-output limit for exact-in,
		// the fixed output for exact-out.
		if leg.ExactIn {
			tk.minimum.Add(tk.minimum, leg.Limit)
		} else {
			tk.minimum.Add(tk.minimum, leg.Quote.AmountOut)
		}
	}

	actions := &Actions{
		Permit: p.permit,
		Legs:   p.legs,
		Calls:  p.calls,
	}
	for _, key := range settleOrder {
		actions.Settles = append(actions.Settles, *settles[key])
	}
	for _, key := range takeOrder {
		actions.Takes = append(actions.Takes, *takes[key])
	}
	return actions, nil
}

// NativeValue is the transaction's top-level value: the summed settle
// amounts of native inputs plus any native value carried by target calls.
func (a *Actions) NativeValue() *big.Int {
	value := new(big.Int)
	for _, s := range a.Settles {
		if s.currency.IsNative() {
			value.Add(value, s.amount)
		}
	}
	for _, c := range a.Calls {
		if c.Value != nil {
			value.Add(value, c.Value)
		}
	}
	return value
}
