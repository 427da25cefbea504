package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Opcode identifies one encoded action inside an execution plan.
type Opcode uint8

const (
	OpPermit             Opcode = 0x01
	OpSwapExactInSingle  Opcode = 0x06
	OpSwapExactIn        Opcode = 0x07
	OpSwapExactOutSingle Opcode = 0x08
	OpSwapExactOut       Opcode = 0x09
	OpSettle             Opcode = 0x0b
	OpTake               Opcode = 0x0e
	OpTargetCall         Opcode = 0x20
)

func (o Opcode) String() string {
	switch o {
	case OpPermit:
		return "PERMIT"
	case OpSwapExactInSingle:
		return "SWAP_EXACT_IN_SINGLE"
	case OpSwapExactIn:
		return "SWAP_EXACT_IN"
	case OpSwapExactOutSingle:
		return "SWAP_EXACT_OUT_SINGLE"
	case OpSwapExactOut:
		return "SWAP_EXACT_OUT"
	case OpSettle:
		return "SETTLE"
	case OpTake:
		return "TAKE"
	case OpTargetCall:
		return "TARGET_CALL"
	default:
		return "UNKNOWN"
	}
}

// Instruction is one opcode plus its ABI-encoded parameters.
type Instruction struct {
	Op   Opcode        `json:"op"`
	Data hexutil.Bytes `json:"data"`
}

// ExecutionPlan is the ordered, atomic instruction sequence for one
// transaction. It is immutable once built; instruction order is an on-chain
// atomicity contract and must never be changed after assembly.
type ExecutionPlan struct {
	ChainID      uint64        `json:"chainId"`
	Instructions []Instruction `json:"instructions"`
	// Value is the native amount attached to the transaction: the plan's
	// amountIn when the input currency is native plus any bridge fee, zero
	// otherwise.
	Value    *big.Int `json:"value"`
	Deadline uint64   `json:"deadline"`
}

// CallArgs is the minimal submission unit: a single call ready for an
// external signer. Create once, never mutate, discard after submission.
type CallArgs struct {
	To     common.Address `json:"to"`
	Data   hexutil.Bytes  `json:"data"`
	Value  *big.Int       `json:"value"`
	Signer common.Address `json:"account"`
}
