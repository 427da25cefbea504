package evm

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

const bridgeABIJSON = `[
	{"name":"deposit","type":"function","stateMutability":"payable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"dstChainId","type":"uint64"},{"name":"recipient","type":"address"}],"outputs":[]}
]`

var bridgeABI = mustParseABI(bridgeABIJSON)

// EncodeBridgeDeposit builds the calldata sweeping `amount` of `token` into
// the bridge towards dstChainID. Native deposits use the zero token address
// and carry the amount as call value.
func EncodeBridgeDeposit(token ethcommon.Address, amount *big.Int, dstChainID uint64, recipient ethcommon.Address) ([]byte, error) {
	return bridgeABI.Pack("deposit", token, amount, dstChainID, recipient)
}
