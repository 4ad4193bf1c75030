package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	"DemandCast/internal/services/features"
	"DemandCast/internal/services/model"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/util"
)

const (
	defaultTrainingMonths = 24
	maxTrainingMonths     = 120
)

// Trainer retrains the demand model from sales history and publishes the
// resulting artifact. At most one training run is in flight at a time.
type Trainer struct {
	history   domrepo.HistoryProvider
	artifacts domrepo.ArtifactStore
	manager   *model.Manager
	opts      model.TrainOptions
	metrics   domrepo.Metrics
	l         *applogger.Logger

	running atomic.Bool
}

func NewTrainer(
	history domrepo.HistoryProvider,
	artifacts domrepo.ArtifactStore,
	manager *model.Manager,
	opts model.TrainOptions,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *Trainer {
	return &Trainer{
		history:   history,
		artifacts: artifacts,
		manager:   manager,
		opts:      opts,
		metrics:   metrics,
		l:         l,
	}
}

// Train runs one training cycle for a store/product pair. A second call
// while one is in flight returns ErrTrainingInProgress. The new model is
// persisted first, then swapped in; scoring keeps using the old model until
// the swap.
func (t *Trainer) Train(ctx context.Context, req models.TrainRequest) (*models.ModelArtifact, error) {
	if err := req.StoreID.Validate(); err != nil {
		return nil, err
	}
	if err := req.ProductID.Validate(); err != nil {
		return nil, err
	}
	if !t.running.CompareAndSwap(false, true) {
		return nil, models.ErrTrainingInProgress
	}
	defer t.running.Store(false)

	began := time.Now()
	months := req.Months
	if months <= 0 {
		months = defaultTrainingMonths
	}
	if months > maxTrainingMonths {
		months = maxTrainingMonths
	}
	end := util.MonthStart(time.Now().UTC())
	start := util.AddMonths(end, -months)

	records, err := t.history.Fetch(ctx, req.StoreID, req.ProductID, start, end)
	if err != nil {
		t.metrics.RecordError("training_fetch")
		return nil, err
	}

	samples, err := buildSamples(records, start, end, months)
	if err != nil {
		t.metrics.RecordError("training_features")
		return nil, err
	}
	artifact, err := model.Train(samples, features.Schema(), t.opts)
	if err != nil {
		t.metrics.RecordError("training")
		return nil, err
	}

	if err := t.artifacts.Publish(ctx, artifact); err != nil {
		t.metrics.RecordError("artifact_publish")
		return nil, err
	}
	t.manager.Bind(artifact)

	t.metrics.RecordLatency("train", time.Since(began).Seconds())
	t.l.Info("model trained",
		applogger.String("version", artifact.Version),
		applogger.String("store_id", string(req.StoreID)),
		applogger.String("product_id", string(req.ProductID)),
		applogger.Int("samples", artifact.TrainingSamples),
		applogger.Float64("mae", artifact.Metrics.MAE),
		applogger.Float64("mape", artifact.Metrics.MAPE),
		applogger.Float64("rmse", artifact.Metrics.RMSE),
	)
	return artifact, nil
}

// buildSamples slides a per-month window over the history: each month in
// (start, end) with at least one prior sales month becomes one sample whose
// label is that month's total quantity. Months the feature builder rejects
// for lack of prior data are skipped; any other builder error aborts the run.
func buildSamples(records []models.SalesRecord, start, end time.Time, months int) ([]models.TrainingSample, error) {
	samples := make([]models.TrainingSample, 0, months)
	for m := util.AddMonths(start, 1); m.Before(end); m = util.AddMonths(m, 1) {
		vector, err := features.Build(records, m)
		if err != nil {
			if errors.Is(err, models.ErrInsufficientData) {
				continue
			}
			return nil, err
		}
		var label float64
		for _, r := range records {
			if util.SameMonth(r.Date, m) {
				label += float64(r.Quantity)
			}
		}
		samples = append(samples, models.TrainingSample{Features: vector.Values, Label: label})
	}
	return samples, nil
}
