package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/confidence"
)

func salesMonth(y int, m time.Month, qty int) models.SalesRecord {
	return models.SalesRecord{
		StoreID:   "S01",
		ProductID: "P01",
		Date:      time.Date(y, m, 10, 0, 0, 0, 0, time.UTC),
		Quantity:  qty,
	}
}

func newTestForecaster(history *fakeHistory, store *fakeStore, model *fakeModel, events *fakeEvents, metrics *fakeMetrics) *Forecaster {
	return NewForecaster(history, store, model, confidence.New(5.0, 0.6, 0.3), events, metrics, testLogger())
}

func TestForecastRoundTrip(t *testing.T) {
	history := &fakeHistory{records: []models.SalesRecord{
		salesMonth(2025, time.March, 10),
		salesMonth(2025, time.April, 12),
		salesMonth(2025, time.May, 14),
	}}
	store := newFakeStore()
	events := &fakeEvents{}
	metrics := newFakeMetrics()
	model := &fakeModel{quantity: 17.4, margin: 2.0, version: "v20250601_000000"}

	f := newTestForecaster(history, store, model, events, metrics)
	p, err := f.Forecast(context.Background(), models.ForecastRequest{
		StoreID:     "S01",
		ProductID:   "P01",
		TargetMonth: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, 17, p.PredictedQuantity, "raw output rounds to whole units")
	assert.Equal(t, "v20250601_000000", p.ModelVersion)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), p.ForecastMonth)
	assert.NotEmpty(t, p.ID)
	assert.Greater(t, p.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, p.ConfidenceScore, 1.0)
	assert.False(t, p.Reconciled())

	// Default window is 12 months back from the target month.
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), history.lastStart)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), history.lastEnd)

	assert.Equal(t, []string{p.ID}, events.published)
	assert.Equal(t, 1, metrics.counts)

	got, err := f.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestForecastClampsNegativePrediction(t *testing.T) {
	history := &fakeHistory{records: []models.SalesRecord{salesMonth(2025, time.May, 1)}}
	model := &fakeModel{quantity: -4.2, margin: 1.0, version: "v1"}

	f := newTestForecaster(history, newFakeStore(), model, &fakeEvents{}, newFakeMetrics())
	p, err := f.Forecast(context.Background(), models.ForecastRequest{
		StoreID:     "S01",
		ProductID:   "P01",
		TargetMonth: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, p.PredictedQuantity)
}

func TestForecastValidatesIdentifiers(t *testing.T) {
	f := newTestForecaster(&fakeHistory{}, newFakeStore(), &fakeModel{version: "v1"}, &fakeEvents{}, newFakeMetrics())

	_, err := f.Forecast(context.Background(), models.ForecastRequest{
		StoreID:     " ",
		ProductID:   "P01",
		TargetMonth: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "store_id", verr.Field)
}

func TestForecastRejectsMidMonthTarget(t *testing.T) {
	history := &fakeHistory{records: []models.SalesRecord{salesMonth(2025, time.May, 3)}}
	store := newFakeStore()

	f := newTestForecaster(history, store, &fakeModel{quantity: 5, version: "v1"}, &fakeEvents{}, newFakeMetrics())
	_, err := f.Forecast(context.Background(), models.ForecastRequest{
		StoreID:     "S01",
		ProductID:   "P01",
		TargetMonth: time.Date(2025, time.June, 15, 8, 30, 0, 0, time.UTC),
	})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "target_month", verr.Field)

	stored, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, stored, "nothing persisted for a rejected target")
}

func TestForecastPropagatesHistoryFailure(t *testing.T) {
	boom := &models.DataSourceError{Err: errors.New("upstream down")}
	history := &fakeHistory{err: boom}
	metrics := newFakeMetrics()

	f := newTestForecaster(history, newFakeStore(), &fakeModel{version: "v1"}, &fakeEvents{}, metrics)
	_, err := f.Forecast(context.Background(), models.ForecastRequest{
		StoreID:     "S01",
		ProductID:   "P01",
		TargetMonth: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	var derr *models.DataSourceError
	assert.True(t, errors.As(err, &derr))
	assert.Equal(t, 1, metrics.errors["history_fetch"])
}

func TestForecastInsufficientHistory(t *testing.T) {
	f := newTestForecaster(&fakeHistory{}, newFakeStore(), &fakeModel{version: "v1"}, &fakeEvents{}, newFakeMetrics())
	_, err := f.Forecast(context.Background(), models.ForecastRequest{
		StoreID:     "S01",
		ProductID:   "P01",
		TargetMonth: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestForecastModelNotLoaded(t *testing.T) {
	history := &fakeHistory{records: []models.SalesRecord{salesMonth(2025, time.May, 1)}}
	model := &fakeModel{err: models.ErrModelNotLoaded}

	f := newTestForecaster(history, newFakeStore(), model, &fakeEvents{}, newFakeMetrics())
	_, err := f.Forecast(context.Background(), models.ForecastRequest{
		StoreID:     "S01",
		ProductID:   "P01",
		TargetMonth: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, models.ErrModelNotLoaded)
}

func TestForecastSurvivesEventFailure(t *testing.T) {
	history := &fakeHistory{records: []models.SalesRecord{salesMonth(2025, time.May, 3)}}
	events := &fakeEvents{err: errors.New("broker down")}

	f := newTestForecaster(history, newFakeStore(), &fakeModel{quantity: 5, version: "v1"}, events, newFakeMetrics())
	p, err := f.Forecast(context.Background(), models.ForecastRequest{
		StoreID:     "S01",
		ProductID:   "P01",
		TargetMonth: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
}

func TestForecastBlendsRecentAccuracy(t *testing.T) {
	history := &fakeHistory{records: []models.SalesRecord{salesMonth(2025, time.May, 3)}}
	store := newFakeStore()
	model := &fakeModel{quantity: 5, margin: 5, version: "v1"}

	f := newTestForecaster(history, store, model, &fakeEvents{}, newFakeMetrics())
	req := models.ForecastRequest{
		StoreID:     "S01",
		ProductID:   "P01",
		TargetMonth: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}

	first, err := f.Forecast(context.Background(), req)
	require.NoError(t, err)

	// Reconcile the first prediction perfectly; the next score should rise.
	tracker := NewAccuracyTracker(store, newFakeMetrics(), testLogger())
	_, err = tracker.RecordActual(context.Background(), first.ID, first.PredictedQuantity)
	require.NoError(t, err)

	second, err := f.Forecast(context.Background(), req)
	require.NoError(t, err)
	assert.Greater(t, second.ConfidenceScore, first.ConfidenceScore)
}

func TestForecastAccuracyLookupFailureIsNonFatal(t *testing.T) {
	history := &fakeHistory{records: []models.SalesRecord{salesMonth(2025, time.May, 3)}}
	store := newFakeStore()
	store.queryErr = errors.New("query timeout")

	f := newTestForecaster(history, store, &fakeModel{quantity: 5, version: "v1"}, &fakeEvents{}, newFakeMetrics())
	_, err := f.Forecast(context.Background(), models.ForecastRequest{
		StoreID:     "S01",
		ProductID:   "P01",
		TargetMonth: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}
