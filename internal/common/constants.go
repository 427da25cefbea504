// Package common contains common constants and variables used across services
package common

import "math/big"

// MaxUint256 is the largest representable ERC-20 amount, used as the
// unlimited-approval sentinel.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// SlippageDenominator fixes slippage units at centi-basis-points (0.001%).
const SlippageDenominator = 100_000

// DefaultSlippageCentiBps is 1% unless the caller overrides it.
const DefaultSlippageCentiBps = 1_000

// Plan deadline horizons in seconds. The short horizon is the default for
// same-chain plans; bridge legs get the long one.
const (
	DefaultDeadlineSeconds = 600
	BridgeDeadlineSeconds  = 3600
)
