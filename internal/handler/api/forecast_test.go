package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/service/cache"
	"DemandCast/internal/services/confidence"
	svcmodel "DemandCast/internal/services/model"
	"DemandCast/internal/usecase"
	applogger "DemandCast/pkg/logger"
)

type memHistory struct {
	records []models.SalesRecord
}

func (m *memHistory) Fetch(context.Context, models.StoreID, models.ProductID, time.Time, time.Time) ([]models.SalesRecord, error) {
	return m.records, nil
}

type memStore struct {
	seq   int
	preds map[string]*models.Prediction
}

func newMemStore() *memStore { return &memStore{preds: make(map[string]*models.Prediction)} }

func (m *memStore) Create(_ context.Context, p *models.Prediction) (*models.Prediction, error) {
	m.seq++
	stored := *p
	stored.ID = "pred-" + string(rune('0'+m.seq))
	stored.CreatedAt = time.Now().UTC()
	m.preds[stored.ID] = &stored
	return &stored, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*models.Prediction, error) {
	p, ok := m.preds[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (m *memStore) SetActual(_ context.Context, id string, actual int, accuracy float64) (*models.Prediction, error) {
	p, ok := m.preds[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p.ActualQuantity = &actual
	p.Accuracy = &accuracy
	return p, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.preds[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.preds, id)
	return nil
}

func (m *memStore) all(limit int) []*models.Prediction {
	out := make([]*models.Prediction, 0, len(m.preds))
	for _, p := range m.preds {
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memStore) ListByStore(_ context.Context, _ models.StoreID, limit int) ([]*models.Prediction, error) {
	return m.all(limit), nil
}

func (m *memStore) ListByProduct(_ context.Context, _ models.ProductID, limit int) ([]*models.Prediction, error) {
	return m.all(limit), nil
}

func (m *memStore) ListByStoreProduct(_ context.Context, _ models.StoreID, _ models.ProductID, limit int) ([]*models.Prediction, error) {
	return m.all(limit), nil
}

func (m *memStore) ListRecent(_ context.Context, limit int) ([]*models.Prediction, error) {
	return m.all(limit), nil
}

func (m *memStore) Reconciled(_ context.Context, f models.ReconciledFilter) ([]*models.Prediction, error) {
	out := make([]*models.Prediction, 0)
	for _, p := range m.preds {
		if p.Reconciled() {
			out = append(out, p)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) Health(context.Context) error { return nil }

type memModel struct {
	quantity float64
	version  string
}

func (m *memModel) Predict(models.FeatureVector) (float64, float64, error) {
	if m.version == "" {
		return 0, 0, models.ErrModelNotLoaded
	}
	return m.quantity, 1.0, nil
}

func (m *memModel) Info() (models.ModelInfo, bool) {
	if m.version == "" {
		return models.ModelInfo{}, false
	}
	return models.ModelInfo{Version: m.version}, true
}

func (m *memModel) Loaded() bool { return m.version != "" }

type memEvents struct{}

func (memEvents) PublishForecastCreated(context.Context, *models.Prediction) error { return nil }
func (memEvents) Close() error                                                     { return nil }

type memMetrics struct{}

func (memMetrics) RecordForecast(string, string)                   {}
func (memMetrics) RecordPredictedQuantity(string, string, float64) {}
func (memMetrics) RecordConfidence(float64)                        {}
func (memMetrics) RecordError(string)                              {}
func (memMetrics) RecordLatency(string, float64)                   {}

func newTestHandler(t *testing.T, store *memStore, model *memModel) (*ForecastHandler, *echo.Echo) {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)

	history := &memHistory{records: []models.SalesRecord{{
		StoreID:   "S01",
		ProductID: "P01",
		Date:      time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC),
		Quantity:  12,
	}}}
	est := confidence.New(5.0, 0.6, 0.3)
	forecaster := usecase.NewForecaster(history, store, model, est, memEvents{}, memMetrics{}, l)
	tracker := usecase.NewAccuracyTracker(store, memMetrics{}, l)
	trainer := usecase.NewTrainer(history, nopArtifacts{}, svcmodel.NewManager(), svcmodel.TrainOptions{
		ValidationSplit: 0.2,
		Seed:            1,
		Ridge:           1.0,
	}, memMetrics{}, l)

	h := NewForecastHandler(l, forecaster, tracker, trainer, model, store, nil, cache.NewTTLCache(), CacheTTLs{
		Stats:     time.Minute,
		ModelInfo: time.Minute,
	})
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

type nopArtifacts struct{}

func (nopArtifacts) LoadActive(context.Context) (*models.ModelArtifact, error) {
	return nil, models.ErrModelNotLoaded
}
func (nopArtifacts) Publish(context.Context, *models.ModelArtifact) error { return nil }

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	_, e := newTestHandler(t, newMemStore(), &memModel{version: "v1"})
	rec := doJSON(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, true, body["model_loaded"])
}

func TestHealthReportsUnboundModel(t *testing.T) {
	_, e := newTestHandler(t, newMemStore(), &memModel{})
	rec := doJSON(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code, "an unbound model is reported, not a failure")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["model_loaded"])
}

func TestPredictForecastEndpoint(t *testing.T) {
	store := newMemStore()
	_, e := newTestHandler(t, store, &memModel{quantity: 14.6, version: "v1"})

	rec := doJSON(e, http.MethodPost, "/predict-forecast",
		`{"store_id":"S01","product_id":"P01","target_month":"2025-06-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusCreated, env.Status)

	var p models.Prediction
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, 15, p.PredictedQuantity)
	assert.Equal(t, "v1", p.ModelVersion)
	assert.Len(t, store.preds, 1)
}

func TestPredictForecastValidation(t *testing.T) {
	_, e := newTestHandler(t, newMemStore(), &memModel{version: "v1"})

	rec := doJSON(e, http.MethodPost, "/predict-forecast", `{"product_id":"P01"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestPredictForecastModelNotLoaded(t *testing.T) {
	_, e := newTestHandler(t, newMemStore(), &memModel{})

	rec := doJSON(e, http.MethodPost, "/predict-forecast",
		`{"store_id":"S01","product_id":"P01","target_month":"2025-06-01T00:00:00Z"}`)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusServiceUnavailable, env.Status)
	assert.Contains(t, string(env.Data), "ERR_MODEL_NOT_LOADED")
}

func TestGetPredictionNotFound(t *testing.T) {
	_, e := newTestHandler(t, newMemStore(), &memModel{version: "v1"})

	rec := doJSON(e, http.MethodGet, "/predictions/nope", "")
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestRecentRouteWinsOverID(t *testing.T) {
	_, e := newTestHandler(t, newMemStore(), &memModel{version: "v1"})

	rec := doJSON(e, http.MethodGet, "/predictions/recent", "")
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusOK, env.Status, "recent must not be captured by the :id route")
}

func TestRecordActualEndpoint(t *testing.T) {
	store := newMemStore()
	_, e := newTestHandler(t, store, &memModel{quantity: 90, version: "v1"})

	rec := doJSON(e, http.MethodPost, "/predict-forecast",
		`{"store_id":"S01","product_id":"P01","target_month":"2025-06-01T00:00:00Z"}`)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var p models.Prediction
	require.NoError(t, json.Unmarshal(env.Data, &p))

	rec = doJSON(e, http.MethodPut, "/predictions/"+p.ID+"/actual", `{"actual_quantity":100}`)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusOK, env.Status)

	var updated models.Prediction
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	require.NotNil(t, updated.Accuracy)
	assert.InDelta(t, 0.9, *updated.Accuracy, 1e-9)
}

func TestRecordActualAtPredictionPath(t *testing.T) {
	store := newMemStore()
	_, e := newTestHandler(t, store, &memModel{quantity: 90, version: "v1"})

	rec := doJSON(e, http.MethodPost, "/predict-forecast",
		`{"store_id":"S01","product_id":"P01","target_month":"2025-06-01T00:00:00Z"}`)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var p models.Prediction
	require.NoError(t, json.Unmarshal(env.Data, &p))

	// PUT on the prediction itself updates the actual, same as the
	// /actual sub-resource.
	rec = doJSON(e, http.MethodPut, "/predictions/"+p.ID, `{"actual_quantity":90}`)
	require.NotEqual(t, http.StatusMethodNotAllowed, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusOK, env.Status)

	var updated models.Prediction
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	require.NotNil(t, updated.Accuracy)
	assert.InDelta(t, 1.0, *updated.Accuracy, 1e-9)
}

func TestAccuracyStatsEmpty(t *testing.T) {
	_, e := newTestHandler(t, newMemStore(), &memModel{version: "v1"})

	rec := doJSON(e, http.MethodGet, "/stats/accuracy", "")
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestModelInfoEndpointCaches(t *testing.T) {
	_, e := newTestHandler(t, newMemStore(), &memModel{version: "v7"})

	first := doJSON(e, http.MethodGet, "/model/info", "")
	assert.Contains(t, first.Body.String(), "v7")

	second := doJSON(e, http.MethodGet, "/model/info", "")
	assert.Contains(t, second.Body.String(), "v7")
}
