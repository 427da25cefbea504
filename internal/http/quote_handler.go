package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/omni-route/internal/engine"
	"github.com/hxuan190/omni-route/internal/http/httputil"
)

type QuoteHandler struct {
	engineSvc *engine.Service
}

func NewQuoteHandler(engineSvc *engine.Service) *QuoteHandler {
	return &QuoteHandler{engineSvc: engineSvc}
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
	pub.GET("/best", h.getBestChain)
}

// QuoteRequest asks for a chain-local best-price quote.
type QuoteRequest struct {
	// Chain the swap executes on.
	ChainID uint64 `form:"chainId" binding:"required"`

	// Input and output token addresses on that chain. "native" selects the
	// chain's native asset.
	In  string `form:"in" binding:"required"`
	Out string `form:"out" binding:"required"`

	// Amount in smallest token units.
	Amount string `form:"amount" binding:"required"`

	// "ExactIn" fixes the input and estimates the output; "ExactOut" the
	// reverse. Defaults to ExactIn.
	Mode string `form:"mode" enums:"ExactIn,ExactOut"`
}

func (h *QuoteHandler) getQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if req.Mode != "" && req.Mode != "ExactIn" && req.Mode != "ExactOut" {
		httputil.BadRequest(c, "mode must be ExactIn or ExactOut")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	in, err := resolveCurrency(h.engineSvc, req.ChainID, req.In)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	out, err := resolveCurrency(h.engineSvc, req.ChainID, req.Out)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.Mode == "ExactOut" {
		q, err := h.engineSvc.QuoteExactOut(ctx, req.ChainID, in, out, amount)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		if !q.HasLiquidity() {
			httputil.NotFound(c, "no liquidity for pair")
			return
		}
		httputil.Success(c, q)
		return
	}

	q, err := h.engineSvc.QuoteExactIn(ctx, req.ChainID, in, out, amount)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if !q.HasLiquidity() {
		httputil.NotFound(c, "no liquidity for pair")
		return
	}
	httputil.Success(c, q)
}

// BestChainRequest asks which shared chain prices a pair best.
type BestChainRequest struct {
	InChainID  uint64 `form:"inChainId" binding:"required"`
	In         string `form:"in" binding:"required"`
	OutChainID uint64 `form:"outChainId" binding:"required"`
	Out        string `form:"out" binding:"required"`
	AmountIn   string `form:"amountIn" binding:"required"`
}

func (h *QuoteHandler) getBestChain(c *gin.Context) {
	var req BestChainRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	in, err := resolveCurrency(h.engineSvc, req.InChainID, req.In)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	out, err := resolveCurrency(h.engineSvc, req.OutChainID, req.Out)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	best, ok, err := h.engineSvc.SelectBestChain(c.Request.Context(), in, out, amountIn)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if !ok {
		httputil.NotFound(c, "no chain with liquidity for pair")
		return
	}

	httputil.Success(c, best)
}
