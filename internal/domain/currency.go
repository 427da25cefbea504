package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAddress is the sentinel address used for a chain's native asset.
var NativeAddress = common.Address{}

// Currency identifies one asset on one chain. Native currencies carry the
// zero address sentinel; everything else is an ERC-20 style token.
type Currency struct {
	ChainID  uint64         `json:"chainId"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol,omitempty"`
	Name     string         `json:"name,omitempty"`
	LogoURI  string         `json:"logoURI,omitempty"`
	Native   bool           `json:"native,omitempty"`
}

// CurrencyKey is a comparable identity for map lookups.
type CurrencyKey struct {
	ChainID uint64
	Address common.Address
}

func (c *Currency) Key() CurrencyKey {
	return CurrencyKey{ChainID: c.ChainID, Address: c.Address}
}

// Equal reports whether two currencies are the same asset on the same chain.
func (c *Currency) Equal(other *Currency) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.ChainID == other.ChainID && c.Address == other.Address
}

func (c *Currency) IsNative() bool {
	return c.Native || c.Address == NativeAddress
}

func (c *Currency) String() string {
	if c.Symbol != "" {
		return fmt.Sprintf("%s@%d", c.Symbol, c.ChainID)
	}
	return fmt.Sprintf("%s@%d", c.Address.Hex(), c.ChainID)
}
