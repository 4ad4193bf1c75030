package usecase

import (
	"context"
	"math"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	domsvc "DemandCast/internal/domain/service"
	"DemandCast/internal/services/features"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/util"
)

const (
	defaultHistoricalMonths = 12
	maxHistoricalMonths     = 60
	accuracyLookback        = 5
)

// Forecaster runs the forecast pipeline: history, features, model scoring,
// confidence, persistence, event publication.
type Forecaster struct {
	history    domrepo.HistoryProvider
	store      domrepo.PredictionStore
	model      domsvc.DemandModel
	confidence domsvc.ConfidenceEstimator
	events     domrepo.ForecastEvents
	metrics    domrepo.Metrics
	l          *applogger.Logger
}

func NewForecaster(
	history domrepo.HistoryProvider,
	store domrepo.PredictionStore,
	model domsvc.DemandModel,
	confidence domsvc.ConfidenceEstimator,
	events domrepo.ForecastEvents,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *Forecaster {
	return &Forecaster{
		history:    history,
		store:      store,
		model:      model,
		confidence: confidence,
		events:     events,
		metrics:    metrics,
		l:          l,
	}
}

// Forecast produces and persists one prediction. Exactly one prediction row
// is written per successful call; event publication is best effort and never
// fails the request.
func (f *Forecaster) Forecast(ctx context.Context, req models.ForecastRequest) (*models.Prediction, error) {
	began := time.Now()

	if err := req.StoreID.Validate(); err != nil {
		return nil, err
	}
	if err := req.ProductID.Validate(); err != nil {
		return nil, err
	}
	months := req.HistoricalMonths
	if months <= 0 {
		months = defaultHistoricalMonths
	}
	if months > maxHistoricalMonths {
		months = maxHistoricalMonths
	}
	if !util.IsMonthStart(req.TargetMonth) {
		return nil, &models.ValidationError{Field: "target_month", Reason: "must be the first instant of a calendar month"}
	}
	target := util.MonthStart(req.TargetMonth)
	start := util.AddMonths(target, -months)

	records, err := f.history.Fetch(ctx, req.StoreID, req.ProductID, start, target)
	if err != nil {
		f.metrics.RecordError("history_fetch")
		return nil, err
	}

	vector, err := features.Build(records, target)
	if err != nil {
		f.metrics.RecordError("feature_build")
		return nil, err
	}

	raw, margin, err := f.model.Predict(vector)
	if err != nil {
		f.metrics.RecordError("model_predict")
		return nil, err
	}
	quantity := int(math.Round(math.Max(0, raw)))

	score := f.confidence.Estimate(margin, vector.LowConfidence, f.recentAccuracy(ctx, req.StoreID, req.ProductID))

	info, _ := f.model.Info()
	stored, err := f.store.Create(ctx, &models.Prediction{
		StoreID:           req.StoreID,
		ProductID:         req.ProductID,
		ForecastMonth:     target,
		PredictedQuantity: quantity,
		ConfidenceScore:   score,
		ModelVersion:      info.Version,
	})
	if err != nil {
		f.metrics.RecordError("persist")
		return nil, err
	}

	if err := f.events.PublishForecastCreated(ctx, stored); err != nil {
		f.l.Warn("forecast event publish failed",
			applogger.String("prediction_id", stored.ID),
			applogger.Error(err),
		)
	}

	f.metrics.RecordForecast(string(req.StoreID), string(req.ProductID))
	f.metrics.RecordPredictedQuantity(string(req.StoreID), string(req.ProductID), float64(quantity))
	f.metrics.RecordConfidence(score)
	f.metrics.RecordLatency("forecast", time.Since(began).Seconds())

	f.l.Info("forecast created",
		applogger.String("prediction_id", stored.ID),
		applogger.String("store_id", string(req.StoreID)),
		applogger.String("product_id", string(req.ProductID)),
		applogger.Int("predicted_quantity", quantity),
		applogger.Float64("confidence", score),
		applogger.Bool("low_confidence", vector.LowConfidence),
	)
	return stored, nil
}

// recentAccuracy averages accuracy over the latest reconciled predictions
// for the pair. Any lookup failure degrades to no blending rather than
// failing the forecast.
func (f *Forecaster) recentAccuracy(ctx context.Context, storeID models.StoreID, productID models.ProductID) *float64 {
	rows, err := f.store.Reconciled(ctx, models.ReconciledFilter{
		StoreID:   storeID,
		ProductID: productID,
		Limit:     accuracyLookback,
	})
	if err != nil {
		f.l.Warn("recent accuracy lookup failed", applogger.Error(err))
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	var sum float64
	var n int
	for _, p := range rows {
		if p.Accuracy == nil {
			continue
		}
		sum += *p.Accuracy
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// GetByID returns a stored prediction.
func (f *Forecaster) GetByID(ctx context.Context, id string) (*models.Prediction, error) {
	return f.store.GetByID(ctx, id)
}

// Delete removes a stored prediction.
func (f *Forecaster) Delete(ctx context.Context, id string) error {
	return f.store.Delete(ctx, id)
}

// ListByStore returns the newest predictions for a store.
func (f *Forecaster) ListByStore(ctx context.Context, storeID models.StoreID, limit int) ([]*models.Prediction, error) {
	if err := storeID.Validate(); err != nil {
		return nil, err
	}
	return f.store.ListByStore(ctx, storeID, limit)
}

// ListByProduct returns the newest predictions for a product.
func (f *Forecaster) ListByProduct(ctx context.Context, productID models.ProductID, limit int) ([]*models.Prediction, error) {
	if err := productID.Validate(); err != nil {
		return nil, err
	}
	return f.store.ListByProduct(ctx, productID, limit)
}

// ListByStoreProduct returns the newest predictions for a store/product pair.
func (f *Forecaster) ListByStoreProduct(ctx context.Context, storeID models.StoreID, productID models.ProductID, limit int) ([]*models.Prediction, error) {
	if err := storeID.Validate(); err != nil {
		return nil, err
	}
	if err := productID.Validate(); err != nil {
		return nil, err
	}
	return f.store.ListByStoreProduct(ctx, storeID, productID, limit)
}

// ListRecent returns the newest predictions across all pairs.
func (f *Forecaster) ListRecent(ctx context.Context, limit int) ([]*models.Prediction, error) {
	return f.store.ListRecent(ctx, limit)
}

// ModelInfo describes the active model, or ErrModelNotLoaded when none is
// bound.
func (f *Forecaster) ModelInfo(ctx context.Context) (*models.ModelInfo, error) {
	info, ok := f.model.Info()
	if !ok {
		return nil, models.ErrModelNotLoaded
	}
	return &info, nil
}
