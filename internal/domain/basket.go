package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BasketAllocation is one underlying position of a basket contract.
// FixedUnits is the per-share unit requirement used by mint/burn; Weight is
// the proportional share used by the weighted-buy preview.
type BasketAllocation struct {
	Currency   *Currency `json:"currency"`
	Weight     uint64    `json:"weight,omitempty"`
	FixedUnits *big.Int  `json:"fixedUnits,omitempty"`
}

// Basket is an on-chain contract holding a fixed allocation list.
type Basket struct {
	ChainID     uint64           `json:"chainId"`
	Address     common.Address   `json:"address"`
	Symbol      string           `json:"symbol,omitempty"`
	Allocations []BasketAllocation `json:"allocations"`
}

// BasketQuoteLeg is one underlying leg of a basket quote.
type BasketQuoteLeg struct {
	Currency  *Currency `json:"currency"`
	AmountIn  *big.Int  `json:"amountIn"`
	AmountOut *big.Int  `json:"amountOut"`
	Quote     *Quote    `json:"quote,omitempty"`
}

// BasketQuote aggregates per-leg quotes for a mint or burn.
// Mint: TotalIn is the summed input currency cost for the requested shares.
// Burn: TotalOut is the summed output received for the burned shares.
type BasketQuote struct {
	Basket   common.Address   `json:"basket"`
	Shares   *big.Int         `json:"shares"`
	TotalIn  *big.Int         `json:"totalIn,omitempty"`
	TotalOut *big.Int         `json:"totalOut,omitempty"`
	Legs     []BasketQuoteLeg `json:"legs"`
}
