package domain

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// PoolConfig identifies one liquidity pool flavor between two currencies:
// fee tier in hundredths of a bip (ppm), tick spacing, and an optional hook.
type PoolConfig struct {
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tickSpacing"`
	Hooks       common.Address `json:"hooks"`
}

// DefaultPoolConfigs is the fixed candidate set tried when searching for
// liquidity between a pair. Fee tiers follow the standard ladder.
var DefaultPoolConfigs = []PoolConfig{
	{Fee: 100, TickSpacing: 1},
	{Fee: 500, TickSpacing: 10},
	{Fee: 3000, TickSpacing: 60},
	{Fee: 10000, TickSpacing: 200},
}

// PoolKey is the canonical on-chain pool identifier: the two currencies in
// address order plus the pool configuration.
type PoolKey struct {
	Currency0   common.Address `json:"currency0"`
	Currency1   common.Address `json:"currency1"`
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tickSpacing"`
	Hooks       common.Address `json:"hooks"`
}

// NewPoolKey builds the canonical key for a pair and reports whether a swap
// from `in` to `out` crosses the pool in the zero-for-one direction.
func NewPoolKey(in, out *Currency, cfg PoolConfig) (PoolKey, bool) {
	a, b := in.Address, out.Address
	zeroForOne := bytes.Compare(a.Bytes(), b.Bytes()) < 0
	if !zeroForOne {
		a, b = b, a
	}
	return PoolKey{
		Currency0:   a,
		Currency1:   b,
		Fee:         cfg.Fee,
		TickSpacing: cfg.TickSpacing,
		Hooks:       cfg.Hooks,
	}, zeroForOne
}

// RouteHop is one pool crossing on a route.
type RouteHop struct {
	In     *Currency  `json:"in"`
	Out    *Currency  `json:"out"`
	Config PoolConfig `json:"config"`
}

// Route is an ordered list of hops connecting a currency pair, possibly
// through intermediate hub currencies. Length 1 is a single-hop route.
type Route []RouteHop

func (r Route) IsMultihop() bool {
	return len(r) > 1
}

// Path returns the currency chain of the route, input first.
func (r Route) Path() []*Currency {
	if len(r) == 0 {
		return nil
	}
	path := make([]*Currency, 0, len(r)+1)
	path = append(path, r[0].In)
	for _, hop := range r {
		path = append(path, hop.Out)
	}
	return path
}
