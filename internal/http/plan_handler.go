package http

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/omni-route/internal/engine"
	"github.com/hxuan190/omni-route/internal/http/httputil"
)

type PlanHandler struct {
	engineSvc *engine.Service
}

func NewPlanHandler(engineSvc *engine.Service) *PlanHandler {
	return &PlanHandler{engineSvc: engineSvc}
}

func (h *PlanHandler) Root() string {
	return "/plan"
}

func (h *PlanHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.postPlan)
	pub.GET("/approvals", h.getApprovals)
}

// PlanHTTPRequest asks for a signed-ready execution plan for a conversion.
type PlanHTTPRequest struct {
	InChainID  uint64 `json:"inChainId" binding:"required"`
	In         string `json:"in" binding:"required"`
	OutChainID uint64 `json:"outChainId" binding:"required"`
	Out        string `json:"out" binding:"required"`
	AmountIn   string `json:"amountIn" binding:"required"`
	Signer     string `json:"signer" binding:"required"`

	// Slippage tolerance in centi-basis-points (1/100_000). Zero means the
	// service default.
	SlippageCentiBps uint64 `json:"slippageCentiBps"`
	// Execution deadline in seconds from now. Zero means the service default.
	DeadlineSeconds uint64 `json:"deadlineSeconds"`
	// Optional pre-encoded Permit2 payload, prepended to the plan.
	Permit hexutil.Bytes `json:"permit,omitempty"`
}

func (h *PlanHandler) postPlan(c *gin.Context) {
	var req PlanHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	signer, err := parseAddress(req.Signer)
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

	result, err := h.engineSvc.BuildPlan(c.Request.Context(), engine.PlanRequest{
		In:               in,
		Out:              out,
		AmountIn:         amountIn,
		Signer:           signer,
		SlippageCentiBps: req.SlippageCentiBps,
		DeadlineSeconds:  req.DeadlineSeconds,
		Permit:           req.Permit,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}

	httputil.Success(c, result)
}

// ApprovalsRequest checks whether `owner` must approve `spender` before a
// plan can pull `minAmount` of `token`.
type ApprovalsRequest struct {
	ChainID   uint64 `form:"chainId" binding:"required"`
	Token     string `form:"token" binding:"required"`
	Owner     string `form:"owner" binding:"required"`
	Spender   string `form:"spender" binding:"required"`
	MinAmount string `form:"minAmount" binding:"required"`
}

func (h *PlanHandler) getApprovals(c *gin.Context) {
	var req ApprovalsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	minAmount, err := parseAmount(req.MinAmount)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	spender, err := parseAddress(req.Spender)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	calls, err := h.engineSvc.EnsureApprovals(c.Request.Context(), req.ChainID, token, owner, spender, minAmount)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	httputil.Success(c, gin.H{"calls": calls, "required": len(calls) > 0})
}
