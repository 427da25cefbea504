package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI fragments for the contract surfaces the engine reads. Only
// the functions actually called are declared.

const metaQuoterABIJSON = `[
	{"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[
		{"name":"poolKey","type":"tuple","components":[
			{"name":"currency0","type":"address"},
			{"name":"currency1","type":"address"},
			{"name":"fee","type":"uint24"},
			{"name":"tickSpacing","type":"int24"},
			{"name":"hooks","type":"address"}
		]},
		{"name":"zeroForOne","type":"bool"},
		{"name":"exactAmount","type":"uint128"},
		{"name":"hookData","type":"bytes"}
	]}],"outputs":[{"name":"amountOut","type":"uint256"},{"name":"gasEstimate","type":"uint256"}]},
	{"name":"quoteExactOutputSingle","type":"function","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[
		{"name":"poolKey","type":"tuple","components":[
			{"name":"currency0","type":"address"},
			{"name":"currency1","type":"address"},
			{"name":"fee","type":"uint24"},
			{"name":"tickSpacing","type":"int24"},
			{"name":"hooks","type":"address"}
		]},
		{"name":"zeroForOne","type":"bool"},
		{"name":"exactAmount","type":"uint128"},
		{"name":"hookData","type":"bytes"}
	]}],"outputs":[{"name":"amountIn","type":"uint256"},{"name":"gasEstimate","type":"uint256"}]}
]`

const erc20ABIJSON = `[
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

const permit2ABIJSON = `[
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"token","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"amount","type":"uint160"},{"name":"expiration","type":"uint48"},{"name":"nonce","type":"uint48"}]}
]`

const basketABIJSON = `[
	{"name":"getAllocations","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"tuple[]","components":[
		{"name":"currency","type":"address"},
		{"name":"weight","type":"uint64"},
		{"name":"fixedUnits","type":"uint256"}
	]}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

const ownersABIJSON = `[
	{"name":"getOwners","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]}
]`

var (
	metaQuoterABI = mustParseABI(metaQuoterABIJSON)
	erc20ABI      = mustParseABI(erc20ABIJSON)
	permit2ABI    = mustParseABI(permit2ABIJSON)
	basketABI     = mustParseABI(basketABIJSON)
	ownersABI     = mustParseABI(ownersABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
