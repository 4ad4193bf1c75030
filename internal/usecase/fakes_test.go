package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DemandCast/internal/domain/models"
	applogger "DemandCast/pkg/logger"
)

func testLogger() *applogger.Logger {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}

type fakeHistory struct {
	records []models.SalesRecord
	err     error

	lastStart time.Time
	lastEnd   time.Time
}

func (f *fakeHistory) Fetch(_ context.Context, _ models.StoreID, _ models.ProductID, start, end time.Time) ([]models.SalesRecord, error) {
	f.lastStart, f.lastEnd = start, end
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeStore struct {
	mu        sync.Mutex
	seq       int
	preds     map[string]*models.Prediction
	createErr error
	queryErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{preds: make(map[string]*models.Prediction)}
}

func (f *fakeStore) Create(_ context.Context, p *models.Prediction) (*models.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	stored := *p
	stored.ID = fmt.Sprintf("p%d", f.seq)
	stored.CreatedAt = time.Now().UTC()
	f.preds[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*models.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.preds[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) SetActual(_ context.Context, id string, actual int, accuracy float64) (*models.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.preds[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p.ActualQuantity = &actual
	p.Accuracy = &accuracy
	cp := *p
	return &cp, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.preds[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.preds, id)
	return nil
}

func (f *fakeStore) ListByStore(_ context.Context, storeID models.StoreID, limit int) ([]*models.Prediction, error) {
	return f.filter(func(p *models.Prediction) bool { return p.StoreID == storeID }, limit)
}

func (f *fakeStore) ListByProduct(_ context.Context, productID models.ProductID, limit int) ([]*models.Prediction, error) {
	return f.filter(func(p *models.Prediction) bool { return p.ProductID == productID }, limit)
}

func (f *fakeStore) ListByStoreProduct(_ context.Context, storeID models.StoreID, productID models.ProductID, limit int) ([]*models.Prediction, error) {
	return f.filter(func(p *models.Prediction) bool {
		return p.StoreID == storeID && p.ProductID == productID
	}, limit)
}

func (f *fakeStore) ListRecent(_ context.Context, limit int) ([]*models.Prediction, error) {
	return f.filter(func(*models.Prediction) bool { return true }, limit)
}

func (f *fakeStore) Reconciled(_ context.Context, filter models.ReconciledFilter) ([]*models.Prediction, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.filter(func(p *models.Prediction) bool {
		if !p.Reconciled() {
			return false
		}
		if filter.StoreID != "" && p.StoreID != filter.StoreID {
			return false
		}
		if filter.ProductID != "" && p.ProductID != filter.ProductID {
			return false
		}
		return true
	}, filter.Limit)
}

func (f *fakeStore) Health(context.Context) error { return nil }

func (f *fakeStore) filter(keep func(*models.Prediction) bool, limit int) ([]*models.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Prediction, 0, len(f.preds))
	for _, p := range f.preds {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeModel struct {
	quantity float64
	margin   float64
	err      error
	version  string
}

func (f *fakeModel) Predict(models.FeatureVector) (float64, float64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.quantity, f.margin, nil
}

func (f *fakeModel) Info() (models.ModelInfo, bool) {
	if f.version == "" {
		return models.ModelInfo{}, false
	}
	return models.ModelInfo{Version: f.version}, true
}

func (f *fakeModel) Loaded() bool { return f.version != "" }

type fakeEvents struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *fakeEvents) PublishForecastCreated(_ context.Context, p *models.Prediction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, p.ID)
	return nil
}

func (f *fakeEvents) Close() error { return nil }

type fakeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	counts int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: make(map[string]int)}
}

func (f *fakeMetrics) RecordForecast(string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts++
}

func (f *fakeMetrics) RecordPredictedQuantity(string, string, float64) {}
func (f *fakeMetrics) RecordConfidence(float64)                        {}

func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[kind]++
}

func (f *fakeMetrics) RecordLatency(string, float64) {}

type fakeArtifacts struct {
	mu        sync.Mutex
	published []*models.ModelArtifact
	err       error
}

func (f *fakeArtifacts) LoadActive(context.Context) (*models.ModelArtifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		return nil, models.ErrModelNotLoaded
	}
	return f.published[len(f.published)-1], nil
}

func (f *fakeArtifacts) Publish(_ context.Context, a *models.ModelArtifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, a)
	return nil
}
