package api

import (
	"errors"
	"net/http"

	models "FinSage/internal/domain/models"
	domrepo "FinSage/internal/domain/repository"
	"FinSage/internal/service/marketdata"
	"FinSage/internal/usecase"
	xhttp "FinSage/pkg/http"
	xlogger "FinSage/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ContextEchoHandler serves the query surface: context assembly and
// market reads.
type ContextEchoHandler struct {
	logger *xlogger.Logger
	orch   *usecase.Orchestrator
	market *marketdata.Client
}

func NewContextEchoHandler(logger *xlogger.Logger, orch *usecase.Orchestrator, market *marketdata.Client) *ContextEchoHandler {
	return &ContextEchoHandler{logger: logger, orch: orch, market: market}
}

func (h *ContextEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/context", h.Context)
	g.GET("/market/status", h.MarketStatus)
	g.GET("/market/quote", h.Quote)
	g.GET("/market/history", h.History)
}

func (h *ContextEchoHandler) Context(c echo.Context) error {
	req := &models.ContextRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.orch.BuildContext(c.Request().Context(), req.Query, req.K)
	if err != nil {
		if errors.Is(err, domrepo.ErrIndexNotReady) {
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_INDEX_NOT_READY", "", "retrieval index not ready", http.StatusServiceUnavailable))
		}
		h.logger.Error("build context error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *ContextEchoHandler) MarketStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.market.MarketStatus())
}

func (h *ContextEchoHandler) Quote(c echo.Context) error {
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	fact, stale, err := h.market.Quote(c.Request().Context(), req.Symbol)
	if err != nil {
		if errors.Is(err, domrepo.ErrMarketDataUnavailable) {
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_MARKET_UNAVAILABLE", "symbol", "no source could serve the quote", http.StatusBadGateway))
		}
		h.logger.Error("quote error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if stale {
		c.Response().Header().Set("Warning", `110 - "Response is Stale"`)
	}
	return xhttp.SuccessResponse(c, fact)
}

func (h *ContextEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	fact, stale, err := h.market.History(c.Request().Context(), req.Symbol, models.HistoryRange(req.Range), req.Interval)
	if err != nil {
		if errors.Is(err, domrepo.ErrMarketDataUnavailable) {
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_MARKET_UNAVAILABLE", "symbol", "no source could serve the history", http.StatusBadGateway))
		}
		h.logger.Error("history error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if stale {
		c.Response().Header().Set("Warning", `110 - "Response is Stale"`)
	}
	return xhttp.SuccessResponse(c, fact)
}
