package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	xhttp "CandleNet/pkg/http"
	xlogger "CandleNet/pkg/logger"
)

type RunsEchoHandler struct {
	logger *xlogger.Logger
	runs   domrepo.RunStore
}

func NewRunsEchoHandler(logger *xlogger.Logger, runs domrepo.RunStore) *RunsEchoHandler {
	return &RunsEchoHandler{logger: logger, runs: runs}
}

func (h *RunsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.Group("/api").GET("/runs", h.List)
}

// List returns recorded training runs, newest first, optionally for one symbol.
func (h *RunsEchoHandler) List(c echo.Context) error {
	req := &models.RunsRequest{}
	if err := xhttp.Bind(c, req); err != nil {
		return err
	}
	runs, err := h.runs.List(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return xhttp.NewError(http.StatusInternalServerError, "ERR_RUNS", "list runs").Wrap(err)
	}
	if runs == nil {
		runs = []*models.TrainingRun{}
	}
	h.logger.Debug("runs listed", xlogger.String("symbol", req.Symbol), xlogger.Int("count", len(runs)))
	return xhttp.List(c, runs, len(runs))
}
