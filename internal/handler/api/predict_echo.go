package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"CandleNet/internal/domain/models"
	xhttp "CandleNet/pkg/http"
	xlogger "CandleNet/pkg/logger"
)

// PredictionService runs inference on an already parsed sample.
type PredictionService interface {
	PredictValues(ctx context.Context, id models.Identity, data []float64) (*models.Prediction, error)
}

var predictErrors = xhttp.NewErrorMap().
	On(models.ErrModelNotFound, http.StatusNotFound, "ERR_MODEL_NOT_FOUND").
	Otherwise(http.StatusUnprocessableEntity, "ERR_INFERENCE")

type PredictEchoHandler struct {
	logger    *xlogger.Logger
	predictor PredictionService
}

func NewPredictEchoHandler(logger *xlogger.Logger, predictor PredictionService) *PredictEchoHandler {
	return &PredictEchoHandler{logger: logger, predictor: predictor}
}

func (h *PredictEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.Group("/api").POST("/predict", h.Predict)
}

// Predict evaluates the grid of one sample against the saved model of its identity.
// Rows are concatenated row-major, the same order the file loader uses.
func (h *PredictEchoHandler) Predict(c echo.Context) error {
	start := time.Now()
	req := &models.PredictRequest{}
	if err := xhttp.Bind(c, req); err != nil {
		return err
	}
	id := models.Identity{Symbol: req.Symbol, Partition: req.Partition, Horizon: req.Horizon}
	if err := id.Validate(); err != nil {
		return xhttp.NewError(http.StatusBadRequest, "ERR_IDENTITY", "%v", err)
	}

	var data []float64
	for _, row := range req.Grid {
		data = append(data, row...)
	}

	res, err := h.predictor.PredictValues(c.Request().Context(), id, data)
	if err != nil {
		h.logger.Warn("predict failed", xlogger.String("identity", id.Key()), xlogger.Error(err))
		return predictErrors.Map(err)
	}
	h.logger.Debug("predict served", xlogger.String("identity", id.Key()), xlogger.Duration("took", time.Since(start)))
	return xhttp.OK(c, res)
}
