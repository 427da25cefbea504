package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/omni-route/internal/domain"
	"github.com/hxuan190/omni-route/internal/engine"
	"github.com/hxuan190/omni-route/internal/http/httputil"
)

type RouteHandler struct {
	engineSvc *engine.Service
}

func NewRouteHandler(engineSvc *engine.Service) *RouteHandler {
	return &RouteHandler{engineSvc: engineSvc}
}

func (h *RouteHandler) Root() string {
	return "/route"
}

func (h *RouteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getRoute)
}

// RouteRequest asks how a pair would be converted, without pricing it.
type RouteRequest struct {
	InChainID  uint64 `form:"inChainId" binding:"required"`
	In         string `form:"in" binding:"required"`
	OutChainID uint64 `form:"outChainId" binding:"required"`
	Out        string `form:"out" binding:"required"`
}

// RouteResponse carries the ordered flow list plus its display kind.
type RouteResponse struct {
	Kind  domain.TransactionKind `json:"kind"`
	Flows domain.RoutePlan       `json:"flows"`
}

func (h *RouteHandler) getRoute(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
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

	flows, err := h.engineSvc.Classify(in, out)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if flows == nil {
		httputil.NotFound(c, "no route for pair")
		return
	}

	httputil.Success(c, RouteResponse{Kind: flows.Kind(), Flows: flows})
}
