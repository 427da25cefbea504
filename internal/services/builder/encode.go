package builder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/omni-route/internal/domain"
)

// ABI fragments for instruction parameters. Non-standard integer widths
// (uint24, int24, uint128) bind to *big.Int in the encoder.
func mustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	addressType = mustType("address", nil)
	uint256Type = mustType("uint256", nil)
	uint128Type = mustType("uint128", nil)
	boolType    = mustType("bool", nil)
	bytesType   = mustType("bytes", nil)

	poolKeyType = mustType("tuple", []abi.ArgumentMarshaling{
		{Name: "currency0", Type: "address"},
		{Name: "currency1", Type: "address"},
		{Name: "fee", Type: "uint24"},
		{Name: "tickSpacing", Type: "int24"},
		{Name: "hooks", Type: "address"},
	})

	pathKeyType = mustType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "intermediateCurrency", Type: "address"},
		{Name: "fee", Type: "uint24"},
		{Name: "tickSpacing", Type: "int24"},
		{Name: "hooks", Type: "address"},
		{Name: "hookData", Type: "bytes"},
	})

	swapSingleArgs = abi.Arguments{
		{Type: poolKeyType}, {Type: boolType},
		{Type: uint128Type}, {Type: uint128Type}, {Type: bytesType},
	}
	swapPathArgs = abi.Arguments{
		{Type: addressType}, {Type: pathKeyType},
		{Type: uint128Type}, {Type: uint128Type},
	}
	settleArgs     = abi.Arguments{{Type: addressType}, {Type: uint256Type}, {Type: boolType}}
	takeArgs       = abi.Arguments{{Type: addressType}, {Type: addressType}, {Type: uint256Type}}
	targetCallArgs = abi.Arguments{{Type: addressType}, {Type: uint256Type}, {Type: bytesType}}
)

type abiPoolKey struct {
	Currency0   ethcommon.Address
	Currency1   ethcommon.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       ethcommon.Address
}

type abiPathKey struct {
	IntermediateCurrency ethcommon.Address
	Fee                  *big.Int
	TickSpacing          *big.Int
	Hooks                ethcommon.Address
	HookData             []byte
}

func toABIPoolKey(key domain.PoolKey) abiPoolKey {
	return abiPoolKey{
		Currency0:   key.Currency0,
		Currency1:   key.Currency1,
		Fee:         new(big.Int).SetUint64(uint64(key.Fee)),
		TickSpacing: big.NewInt(int64(key.TickSpacing)),
		Hooks:       key.Hooks,
	}
}

// EncodeActions serializes the ordered action list into wire instructions.
// Order is preserved exactly; the planner already placed the permit first
// and the target calls last.
func EncodeActions(a *Actions) ([]domain.Instruction, error) {
	instructions := make([]domain.Instruction, 0, 1+len(a.Legs)+len(a.Settles)+len(a.Takes)+len(a.Calls))

	if len(a.Permit) > 0 {
		instructions = append(instructions, domain.Instruction{Op: domain.OpPermit, Data: a.Permit})
	}

	for _, leg := range a.Legs {
		ins, err := encodeSwapLeg(leg)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ins)
	}

	for _, s := range a.Settles {
		data, err := settleArgs.Pack(s.currency.Address, s.amount, true)
		if err != nil {
			return nil, fmt.Errorf("encode settle %s: %w", s.currency, err)
		}
		instructions = append(instructions, domain.Instruction{Op: domain.OpSettle, Data: data})
	}

	for _, tk := range a.Takes {
		data, err := takeArgs.Pack(tk.currency.Address, tk.receiver, tk.minimum)
		if err != nil {
			return nil, fmt.Errorf("encode take %s: %w", tk.currency, err)
		}
		instructions = append(instructions, domain.Instruction{Op: domain.OpTake, Data: data})
	}

	for _, c := range a.Calls {
		value := c.Value
		if value == nil {
			value = new(big.Int)
		}
		data, err := targetCallArgs.Pack(c.To, value, []byte(c.Data))
		if err != nil {
			return nil, fmt.Errorf("encode target call to %s: %w", c.To, err)
		}
		instructions = append(instructions, domain.Instruction{Op: domain.OpTargetCall, Data: data})
	}

	return instructions, nil
}

func encodeSwapLeg(leg SwapLeg) (domain.Instruction, error) {
	route := leg.Quote.Route
	if len(route) == 0 {
		return domain.Instruction{}, fmt.Errorf("quote %s/%s carries no route", leg.Quote.In, leg.Quote.Out)
	}

	if !route.IsMultihop() {
		hop := route[0]
		key, zeroForOne := domain.NewPoolKey(hop.In, hop.Out, hop.Config)
		op := domain.OpSwapExactInSingle
		amount, limit := leg.Quote.AmountIn, leg.Limit
		if !leg.ExactIn {
			op = domain.OpSwapExactOutSingle
			amount, limit = leg.Quote.AmountOut, leg.Limit
		}
		data, err := swapSingleArgs.Pack(toABIPoolKey(key), zeroForOne, amount, limit, []byte{})
		if err != nil {
			return domain.Instruction{}, fmt.Errorf("encode single-hop swap: %w", err)
		}
		return domain.Instruction{Op: op, Data: data}, nil
	}

	// Multihop: the path lists each hop's landing currency and pool config.
	path := make([]abiPathKey, len(route))
	for i, hop := range route {
		path[i] = abiPathKey{
			IntermediateCurrency: hop.Out.Address,
			Fee:                  new(big.Int).SetUint64(uint64(hop.Config.Fee)),
			TickSpacing:          big.NewInt(int64(hop.Config.TickSpacing)),
			Hooks:                hop.Config.Hooks,
			HookData:             []byte{},
		}
	}
	op := domain.OpSwapExactIn
	amount, limit := leg.Quote.AmountIn, leg.Limit
	if !leg.ExactIn {
		op = domain.OpSwapExactOut
		amount, limit = leg.Quote.AmountOut, leg.Limit
	}
	data, err := swapPathArgs.Pack(route[0].In.Address, path, amount, limit)
	if err != nil {
		return domain.Instruction{}, fmt.Errorf("encode multihop swap: %w", err)
	}
	return domain.Instruction{Op: op, Data: data}, nil
}
