package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/engine"
	"github.com/hxuan190/omni-route/internal/http/httputil"
)

type BasketHandler struct {
	engineSvc *engine.Service
}

func NewBasketHandler(engineSvc *engine.Service) *BasketHandler {
	return &BasketHandler{engineSvc: engineSvc}
}

func (h *BasketHandler) Root() string {
	return "/basket"
}

func (h *BasketHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/mint", h.getMintQuote)
	pub.GET("/burn", h.getBurnQuote)
	pub.POST("/weighted", h.postWeightedBuy)
}

// MintQuoteRequest prices acquiring every underlying for `shares` basket
// shares, paid in a single input currency.
type MintQuoteRequest struct {
	ChainID uint64 `form:"chainId" binding:"required"`
	Basket  string `form:"basket" binding:"required"`
	In      string `form:"in" binding:"required"`
	Shares  string `form:"shares" binding:"required"`
}

func (h *BasketHandler) getMintQuote(c *gin.Context) {
	var req MintQuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	basketAddr, err := parseAddress(req.Basket)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	shares, err := parseAmount(req.Shares)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	in, err := resolveCurrency(h.engineSvc, req.ChainID, req.In)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	quote, err := h.engineSvc.MintQuote(c.Request.Context(), req.ChainID, basketAddr, in, shares)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	httputil.Success(c, quote)
}

// BurnQuoteRequest prices liquidating `shares` basket shares into a single
// output currency.
type BurnQuoteRequest struct {
	ChainID uint64 `form:"chainId" binding:"required"`
	Basket  string `form:"basket" binding:"required"`
	Out     string `form:"out" binding:"required"`
	Shares  string `form:"shares" binding:"required"`
}

func (h *BasketHandler) getBurnQuote(c *gin.Context) {
	var req BurnQuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	basketAddr, err := parseAddress(req.Basket)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	shares, err := parseAmount(req.Shares)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	out, err := resolveCurrency(h.engineSvc, req.ChainID, req.Out)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	quote, err := h.engineSvc.BurnQuote(c.Request.Context(), req.ChainID, basketAddr, out, shares)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	httputil.Success(c, quote)
}

// WeightedBuyRequest splits an input amount across target currencies by
// weight and prices each leg. Legs without liquidity are dropped from the
// response rather than failing the preview.
type WeightedBuyRequest struct {
	ChainID     uint64                  `json:"chainId" binding:"required"`
	In          string                  `json:"in" binding:"required"`
	AmountIn    string                  `json:"amountIn" binding:"required"`
	Allocations []WeightedBuyAllocation `json:"allocations" binding:"required,dive"`
}

type WeightedBuyAllocation struct {
	Currency string `json:"currency" binding:"required"`
	Weight   uint64 `json:"weight" binding:"required"`
}

func (h *BasketHandler) postWeightedBuy(c *gin.Context) {
	var req WeightedBuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	in, err := resolveCurrency(h.engineSvc, req.ChainID, req.In)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	allocations := make([]domain.BasketAllocation, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		currency, err := resolveCurrency(h.engineSvc, req.ChainID, a.Currency)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		allocations = append(allocations, domain.BasketAllocation{Currency: currency, Weight: a.Weight})
	}

	legs, err := h.engineSvc.WeightedBuyQuote(c.Request.Context(), req.ChainID, in, amountIn, allocations)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	httputil.Success(c, legs)
}
