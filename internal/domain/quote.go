package domain

import "math/big"

// BestType tags which candidate won a quote aggregation. BestNone is the
// canonical "no liquidity" signal and is not an error by itself.
type BestType uint8

const (
	BestNone BestType = iota
	BestSingle
	BestMultihop
)

func (b BestType) String() string {
	switch b {
	case BestSingle:
		return "single"
	case BestMultihop:
		return "multihop"
	default:
		return "none"
	}
}

// Quote is the result of best-price aggregation for one swap leg.
// For exact-input quotes AmountIn is fixed and AmountOut is the maximum found
// over candidate routes; for exact-output the roles are reversed and AmountIn
// is the minimum found.
type Quote struct {
	ChainID     uint64    `json:"chainId"`
	In          *Currency `json:"in"`
	Out         *Currency `json:"out"`
	AmountIn    *big.Int  `json:"amountIn"`
	AmountOut   *big.Int  `json:"amountOut"`
	Route       Route     `json:"route,omitempty"`
	GasEstimate uint64    `json:"gasEstimate,omitempty"`
	Best        BestType  `json:"best"`
}

// HasLiquidity reports whether any candidate route was quotable.
func (q *Quote) HasLiquidity() bool {
	return q != nil && q.Best != BestNone
}

// ChainQuote pairs a quote with the chain the multichain selector picked.
type ChainQuote struct {
	ChainID uint64 `json:"chainId"`
	Quote   *Quote `json:"quote"`
}
