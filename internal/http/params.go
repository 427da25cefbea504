package http

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/engine"
	"github.com/hxuan190/omni-route/internal/http/httputil"
)

// parseAmount decodes a base-10 amount in smallest token units.
func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive: %s", s)
	}
	return amount, nil
}

// parseAddress accepts a 0x-hex address; "native" (or the empty string) maps
// to the native-asset sentinel.
func parseAddress(s string) (ethcommon.Address, error) {
	if s == "" || strings.EqualFold(s, "native") {
		return domain.NativeAddress, nil
	}
	if !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, fmt.Errorf("invalid address: %s", s)
	}
	return ethcommon.HexToAddress(s), nil
}

// resolveCurrency parses an address and resolves it against the registry.
func resolveCurrency(svc *engine.Service, chainID uint64, addr string) (*domain.Currency, error) {
	a, err := parseAddress(addr)
	if err != nil {
		return nil, err
	}
	return svc.ResolveCurrency(chainID, a)
}

// writeEngineError maps engine errors onto HTTP statuses: bad inputs are
// 400s, missing routes and dry pools are 404s, everything else is a 500.
func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownCurrency),
		errors.Is(err, engine.ErrUnknownChain),
		errors.Is(err, engine.ErrSameCurrency):
		httputil.BadRequest(c, err.Error())
	case errors.Is(err, engine.ErrNoRoute),
		errors.Is(err, engine.ErrNoLiquidity):
		httputil.NotFound(c, err.Error())
	default:
		httputil.InternalError(c, err.Error())
	}
}
