package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"DemandCast/internal/domain/models"
	domsvc "DemandCast/internal/domain/service"
	"DemandCast/internal/service/cache"
	svcmetrics "DemandCast/internal/service/metrics"
	"DemandCast/internal/service/ratelimit"
	"DemandCast/internal/usecase"
	xhttp "DemandCast/pkg/http"
	xlogger "DemandCast/pkg/logger"
)

// CacheTTLs controls response caching for the read-heavy endpoints.
type CacheTTLs struct {
	Stats     time.Duration
	ModelInfo time.Duration
}

// HealthChecker reports storage backend health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ForecastHandler exposes the forecasting API over Echo.
type ForecastHandler struct {
	logger     *xlogger.Logger
	forecaster *usecase.Forecaster
	tracker    *usecase.AccuracyTracker
	trainer    *usecase.Trainer
	model      domsvc.DemandModel
	health     HealthChecker
	warehouse  HealthChecker
	cache      cache.BytesCache
	ttls       CacheTTLs
	limiter    *ratelimit.Limiter
}

// NewForecastHandler builds the handler. warehouse may be nil when no sales
// warehouse is configured; its status is then omitted from the health payload.
func NewForecastHandler(
	logger *xlogger.Logger,
	forecaster *usecase.Forecaster,
	tracker *usecase.AccuracyTracker,
	trainer *usecase.Trainer,
	model domsvc.DemandModel,
	health HealthChecker,
	warehouse HealthChecker,
	bytesCache cache.BytesCache,
	ttls CacheTTLs,
) *ForecastHandler {
	svcmetrics.Register()
	return &ForecastHandler{
		logger:     logger,
		forecaster: forecaster,
		tracker:    tracker,
		trainer:    trainer,
		model:      model,
		health:     health,
		warehouse:  warehouse,
		cache:      bytesCache,
		ttls:       ttls,
		limiter:    ratelimit.New(),
	}
}

var _ xhttp.Handler = (*ForecastHandler)(nil)

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/predict-forecast", h.PredictForecast)

	// "recent" must register before the :id route.
	e.GET("/predictions/recent", h.Recent)
	e.GET("/predictions/store/:storeId/product/:productId", h.ByStoreProduct)
	e.GET("/predictions/store/:storeId", h.ByStore)
	e.GET("/predictions/product/:productId", h.ByProduct)
	e.GET("/predictions/:id", h.ByID)
	e.PUT("/predictions/:id", h.RecordActual)
	e.DELETE("/predictions/:id", h.Delete)
	e.PUT("/predictions/:id/actual", h.RecordActual)

	e.GET("/stats/accuracy", h.AccuracyStats)
	e.GET("/model/info", h.ModelInfo)
	e.POST("/model/train", h.Train)
}

func (h *ForecastHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	status := map[string]interface{}{
		"status":       "ok",
		"database":     "ok",
		"model_loaded": h.model.Loaded(),
	}
	code := http.StatusOK
	if err := h.health.Health(ctx); err != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
		code = http.StatusServiceUnavailable
	}
	if h.warehouse != nil {
		status["clickhouse"] = "ok"
		if err := h.warehouse.Health(ctx); err != nil {
			status["status"] = "degraded"
			status["clickhouse"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}

func (h *ForecastHandler) PredictForecast(c echo.Context) error {
	start := time.Now()
	defer func() { svcmetrics.EndpointLatency.WithLabelValues("predict_forecast").Observe(time.Since(start).Seconds()) }()

	if !h.limiter.Allow(c.RealIP(), 10, 5) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	req := &models.ForecastHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p, err := h.forecaster.Forecast(c.Request().Context(), models.ForecastRequest{
		StoreID:          models.StoreID(req.StoreID),
		ProductID:        models.ProductID(req.ProductID),
		TargetMonth:      req.TargetMonth,
		HistoricalMonths: req.HistoricalMonths,
	})
	if err != nil {
		return h.domainError(c, "predict_forecast", err)
	}
	return xhttp.CreatedResponse(c, p)
}

func (h *ForecastHandler) ByID(c echo.Context) error {
	p, err := h.forecaster.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.domainError(c, "get_prediction", err)
	}
	return xhttp.SuccessResponse(c, p)
}

func (h *ForecastHandler) Delete(c echo.Context) error {
	if err := h.forecaster.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.domainError(c, "delete_prediction", err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *ForecastHandler) RecordActual(c echo.Context) error {
	req := &models.ActualHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p, err := h.tracker.RecordActual(c.Request().Context(), c.Param("id"), *req.ActualQuantity)
	if err != nil {
		return h.domainError(c, "record_actual", err)
	}
	return xhttp.SuccessResponse(c, p)
}

func (h *ForecastHandler) Recent(c echo.Context) error {
	req := &models.RecentHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.forecaster.ListRecent(c.Request().Context(), req.Limit)
	if err != nil {
		return h.domainError(c, "recent", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ForecastHandler) ByStore(c echo.Context) error {
	req := &models.ListHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.forecaster.ListByStore(c.Request().Context(), models.StoreID(c.Param("storeId")), req.Limit)
	if err != nil {
		return h.domainError(c, "by_store", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ForecastHandler) ByProduct(c echo.Context) error {
	req := &models.ListHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.forecaster.ListByProduct(c.Request().Context(), models.ProductID(c.Param("productId")), req.Limit)
	if err != nil {
		return h.domainError(c, "by_product", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ForecastHandler) ByStoreProduct(c echo.Context) error {
	req := &models.ListHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.forecaster.ListByStoreProduct(
		c.Request().Context(),
		models.StoreID(c.Param("storeId")),
		models.ProductID(c.Param("productId")),
		req.Limit,
	)
	if err != nil {
		return h.domainError(c, "by_store_product", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ForecastHandler) AccuracyStats(c echo.Context) error {
	req := &models.StatsHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cacheKey := "stats:accuracy:" + req.StoreID
	if b, ok := h.cacheGet(cacheKey); ok {
		return c.JSONBlob(http.StatusOK, b)
	}

	stats, err := h.tracker.Stats(c.Request().Context(), models.StoreID(req.StoreID))
	if err != nil {
		return h.domainError(c, "accuracy_stats", err)
	}
	h.cacheSet(cacheKey, stats, h.ttls.Stats)
	return xhttp.SuccessResponse(c, stats)
}

func (h *ForecastHandler) ModelInfo(c echo.Context) error {
	const cacheKey = "model:info"
	if b, ok := h.cacheGet(cacheKey); ok {
		return c.JSONBlob(http.StatusOK, b)
	}

	info, err := h.forecaster.ModelInfo(c.Request().Context())
	if err != nil {
		return h.domainError(c, "model_info", err)
	}
	h.cacheSet(cacheKey, info, h.ttls.ModelInfo)
	return xhttp.SuccessResponse(c, info)
}

func (h *ForecastHandler) Train(c echo.Context) error {
	start := time.Now()
	defer func() { svcmetrics.EndpointLatency.WithLabelValues("train").Observe(time.Since(start).Seconds()) }()

	if !h.limiter.Allow(c.RealIP(), 2, 0.1) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	req := &models.TrainHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	artifact, err := h.trainer.Train(c.Request().Context(), models.TrainRequest{
		StoreID:   models.StoreID(req.StoreID),
		ProductID: models.ProductID(req.ProductID),
		Months:    req.Months,
	})
	if err != nil {
		return h.domainError(c, "train", err)
	}
	return xhttp.CreatedResponse(c, artifact)
}

// cacheGet returns the SuccessResponse envelope cached for key. Cache
// failures are treated as misses.
func (h *ForecastHandler) cacheGet(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil || !ok {
		return nil, false
	}
	return b, true
}

func (h *ForecastHandler) cacheSet(key string, data interface{}, ttl time.Duration) {
	if h.cache == nil || ttl <= 0 {
		return
	}
	envelope := xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	}
	b, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	if err := h.cache.SetBytes(key, b, ttl); err != nil {
		h.logger.Warn("response cache write failed", xlogger.String("key", key), xlogger.Error(err))
	}
}

// domainError translates domain errors into HTTP responses.
func (h *ForecastHandler) domainError(c echo.Context, endpoint string, err error) error {
	svcmetrics.EndpointErrors.WithLabelValues(endpoint).Inc()

	switch {
	case errors.Is(err, models.ErrNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("prediction not found").WithError(err))
	case errors.Is(err, models.ErrNoData):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no reconciled predictions").WithError(err))
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_INSUFFICIENT_DATA", "", "not enough sales history to forecast", http.StatusUnprocessableEntity,
		).WithError(err))
	case errors.Is(err, models.ErrModelNotLoaded):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_MODEL_NOT_LOADED", "", "no trained model is available", http.StatusServiceUnavailable,
		).WithError(err))
	case errors.Is(err, models.ErrTrainingInProgress):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_TRAINING_IN_PROGRESS", "", "a training run is already in progress", http.StatusConflict,
		).WithError(err))
	}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_VALIDATION", verr.Field, verr.Reason, http.StatusBadRequest,
		).WithError(err))
	}
	var derr *models.DataSourceError
	if errors.As(err, &derr) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_UPSTREAM", "", "sales history source unavailable", http.StatusBadGateway,
		).WithError(err))
	}

	h.logger.Error("unhandled domain error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}
