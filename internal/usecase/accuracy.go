package usecase

import (
	"context"
	"math"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	applogger "DemandCast/pkg/logger"
)

// AccuracyTracker reconciles predictions with realized demand and reports
// aggregate accuracy.
type AccuracyTracker struct {
	store   domrepo.PredictionStore
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewAccuracyTracker(store domrepo.PredictionStore, metrics domrepo.Metrics, l *applogger.Logger) *AccuracyTracker {
	return &AccuracyTracker{store: store, metrics: metrics, l: l}
}

// RecordActual attaches the realized quantity to a prediction and derives
// its accuracy. Calling it again with the same quantity is a no-op; calling
// with a different quantity overwrites.
func (t *AccuracyTracker) RecordActual(ctx context.Context, id string, actual int) (*models.Prediction, error) {
	if actual < 0 {
		return nil, &models.ValidationError{Field: "actual_quantity", Reason: "must be non-negative"}
	}
	p, err := t.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	accuracy := predictionAccuracy(p.PredictedQuantity, actual)
	updated, err := t.store.SetActual(ctx, id, actual, accuracy)
	if err != nil {
		t.metrics.RecordError("record_actual")
		return nil, err
	}

	t.l.Info("actual recorded",
		applogger.String("prediction_id", id),
		applogger.Int("predicted", p.PredictedQuantity),
		applogger.Int("actual", actual),
		applogger.Float64("accuracy", accuracy),
	)
	return updated, nil
}

// Stats aggregates accuracy over reconciled predictions, optionally limited
// to one store. No reconciled predictions yields ErrNoData.
func (t *AccuracyTracker) Stats(ctx context.Context, storeID models.StoreID) (*models.AccuracyStats, error) {
	if storeID != "" {
		if err := storeID.Validate(); err != nil {
			return nil, err
		}
	}
	rows, err := t.store.Reconciled(ctx, models.ReconciledFilter{StoreID: storeID})
	if err != nil {
		return nil, err
	}

	var (
		accSum  float64
		mapeSum float64
		n       int
	)
	for _, p := range rows {
		if p.ActualQuantity == nil || p.Accuracy == nil {
			continue
		}
		accSum += *p.Accuracy
		denom := math.Max(float64(*p.ActualQuantity), 1)
		mapeSum += math.Abs(float64(p.PredictedQuantity)-float64(*p.ActualQuantity)) / denom * 100
		n++
	}
	if n == 0 {
		return nil, models.ErrNoData
	}
	return &models.AccuracyStats{
		Count:                       n,
		MeanAccuracy:                accSum / float64(n),
		MeanAbsolutePercentageError: mapeSum / float64(n),
	}, nil
}

// predictionAccuracy maps prediction error to [0,1]; 1 is exact. The
// denominator floors at one unit so zero-demand months stay defined.
func predictionAccuracy(predicted, actual int) float64 {
	err := math.Abs(float64(predicted) - float64(actual))
	acc := 1 - err/math.Max(float64(actual), 1)
	if acc < 0 {
		return 0
	}
	if acc > 1 {
		return 1
	}
	return acc
}
