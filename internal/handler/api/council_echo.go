package api

import (
	"time"

	models "AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/service/ratelimit"
	"AnalystCouncil/internal/usecase"
	xhttp "AnalystCouncil/pkg/http"
	xlogger "AnalystCouncil/pkg/logger"

	"github.com/labstack/echo/v4"
)

// A council run is expensive (N provider calls plus synthesis), so the
// run endpoint is budgeted per client IP.
const (
	runBurst        = 3
	runRefillPerSec = 0.05 // 3/min sustained
)

// CouncilEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type CouncilEchoHandler struct {
	logger  *xlogger.Logger
	council *usecase.CouncilService
	history *usecase.HistoryService
	quotes  *usecase.QuoteService
	limiter *ratelimit.Limiter
}

func NewCouncilEchoHandler(logger *xlogger.Logger, council *usecase.CouncilService, history *usecase.HistoryService, quotes *usecase.QuoteService) *CouncilEchoHandler {
	return &CouncilEchoHandler{
		logger:  logger,
		council: council,
		history: history,
		quotes:  quotes,
		limiter: ratelimit.New(),
	}
}

func (h *CouncilEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/council", h.RunCouncil, h.limitRuns)
	g.GET("/experts", h.Experts)
	g.GET("/history", h.History)
	g.GET("/quote", h.Quote)
}

func (h *CouncilEchoHandler) limitRuns(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow("council:"+c.RealIP(), runBurst, runRefillPerSec) {
			return xhttp.TooManyRequestsResponse(c, "council run budget exhausted, retry later")
		}
		return next(c)
	}
}

// RunCouncil executes one full council round for a symbol.
func (h *CouncilEchoHandler) RunCouncil(c echo.Context) error {
	req := &models.CouncilRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	analysisReq := models.AnalysisRequest{
		Symbol:      req.Symbol,
		RequestedAt: time.Now().UTC(),
	}

	// Quote lookup is best-effort: experts still analyze without one.
	if h.quotes != nil && (req.WithQuote == nil || *req.WithQuote) {
		quote, err := h.quotes.Quote(c.Request().Context(), req.Symbol)
		if err != nil {
			h.logger.Warn("quote lookup failed",
				xlogger.String("symbol", req.Symbol),
				xlogger.Error(err))
		} else {
			analysisReq.Quote = quote
		}
	}

	var report *models.CouncilReport
	var err error
	if req.Threshold != nil {
		report, err = h.council.RunWithThreshold(c.Request().Context(), analysisReq, *req.Threshold)
	} else {
		report, err = h.council.Run(c.Request().Context(), analysisReq)
	}
	if err != nil {
		h.logger.Error("council run error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

// Experts lists the configured council members.
func (h *CouncilEchoHandler) Experts(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.council.Experts())
}

// History returns recent council reports, newest first.
func (h *CouncilEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	reports, err := h.history.List(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, reports)
}

// Quote returns the current market snapshot for a symbol.
func (h *CouncilEchoHandler) Quote(c echo.Context) error {
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	quote, err := h.quotes.Quote(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("quote usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, quote)
}
