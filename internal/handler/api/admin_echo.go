package api

import (
	"net/http"

	models "FinSage/internal/domain/models"
	"FinSage/internal/service/compliance"
	"FinSage/internal/service/marketdata"
	"FinSage/internal/service/retrieval"
	xhttp "FinSage/pkg/http"
	xlogger "FinSage/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AdminEchoHandler serves the operational surface: cache control,
// compliance table inspection, and snapshot management.
type AdminEchoHandler struct {
	logger *xlogger.Logger
	market *marketdata.Client
	engine *compliance.Engine
	index  *retrieval.Index
}

func NewAdminEchoHandler(logger *xlogger.Logger, market *marketdata.Client, engine *compliance.Engine, index *retrieval.Index) *AdminEchoHandler {
	return &AdminEchoHandler{logger: logger, market: market, engine: engine, index: index}
}

func (h *AdminEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/admin")
	g.DELETE("/cache", h.InvalidateCache)
	g.GET("/cache/stats", h.CacheStats)
	g.GET("/compliance/patterns", h.Patterns)
	g.GET("/compliance/broker", h.ValidateBroker)
	g.GET("/compliance/penalty/:type", h.PenaltyInfo)
	g.POST("/index/snapshot", h.InstallSnapshot)
	g.GET("/index/status", h.IndexStatus)
	g.GET("/logs", h.RecentLogs)
}

func (h *AdminEchoHandler) InvalidateCache(c echo.Context) error {
	req := &models.InvalidateCacheRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var removed int
	switch {
	case req.Symbol != "":
		removed = h.market.InvalidateSymbol(req.Symbol)
	case req.Kind != "":
		removed = h.market.InvalidateKind(req.Kind)
	default:
		removed = h.market.InvalidateAll()
	}
	h.logger.Info("market cache invalidated",
		xlogger.String("symbol", req.Symbol),
		xlogger.String("kind", req.Kind),
		xlogger.Int("removed", removed))
	return xhttp.SuccessResponse(c, map[string]int{"removed": removed})
}

func (h *AdminEchoHandler) CacheStats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.market.CacheStats())
}

func (h *AdminEchoHandler) Patterns(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Patterns())
}

func (h *AdminEchoHandler) ValidateBroker(c echo.Context) error {
	req := &models.BrokerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.engine.ValidateBroker(req.Name))
}

func (h *AdminEchoHandler) PenaltyInfo(c echo.Context) error {
	violationType := c.Param("type")
	info, ok := h.engine.PenaltyInfo(violationType)
	if !ok {
		return xhttp.NotFoundResponse(c, map[string]interface{}{
			"violation_type": violationType,
			"known_types":    h.engine.PenaltyTypes(),
		})
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *AdminEchoHandler) InstallSnapshot(c echo.Context) error {
	req := &models.InstallSnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	chunks, err := retrieval.LoadChunks(req.Path)
	if err != nil {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_SNAPSHOT_LOAD", "path", err.Error(), http.StatusUnprocessableEntity))
	}
	if err := h.index.InstallSnapshot(c.Request().Context(), chunks); err != nil {
		h.logger.Error("snapshot install failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, h.index.Status())
}

func (h *AdminEchoHandler) IndexStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.index.Status())
}

// RecentLogs returns the aggregated warn/error entries collected since the
// last flush window.
func (h *AdminEchoHandler) RecentLogs(c echo.Context) error {
	col := h.logger.Collector()
	if col == nil {
		return xhttp.SuccessResponse(c, []xlogger.AggregatedLogEntry{})
	}
	return xhttp.SuccessResponse(c, col.Snapshot())
}
