package model

import (
	"math"
	"sync/atomic"

	"DemandCast/internal/domain/models"
	domsvc "DemandCast/internal/domain/service"
)

// Manager holds the single active artifact binding. The pointer is replaced
// wholesale on retrain, so readers in flight always observe a complete,
// consistent artifact.
type Manager struct {
	active atomic.Pointer[models.ModelArtifact]
}

func NewManager() *Manager {
	return &Manager{}
}

// Bind publishes a new active artifact. The artifact must be fully built
// before it is bound.
func (m *Manager) Bind(a *models.ModelArtifact) {
	m.active.Store(a)
}

// Active returns the current artifact snapshot.
func (m *Manager) Active() (*models.ModelArtifact, bool) {
	a := m.active.Load()
	return a, a != nil
}

func (m *Manager) Loaded() bool {
	return m.active.Load() != nil
}

// Predict maps a feature vector to the model's raw real-valued output plus an
// uncertainty margin. Rounding and clamping to whole units is the
// orchestrator's job. A vector whose width disagrees with the artifact schema
// is a fatal configuration error.
func (m *Manager) Predict(v models.FeatureVector) (float64, float64, error) {
	a := m.active.Load()
	if a == nil {
		return 0, 0, models.ErrModelNotLoaded
	}
	if len(v.Values) != len(a.FeatureSchema) {
		return 0, 0, models.ErrFeatureSchema
	}

	quantity := rawPredict(a, v.Values)

	// Margin widens with the vector's distance from the training
	// distribution: familiar inputs carry the residual spread, outliers up
	// to twice that.
	dist := 0.0
	for i, x := range v.Values {
		z := math.Abs(x-a.FeatureMeans[i]) / a.FeatureStds[i]
		dist += math.Min(z, 3)
	}
	dist /= float64(len(v.Values))
	margin := a.ResidualStd * (1 + dist/3)

	return quantity, margin, nil
}

// Info returns the introspection view of the active artifact.
func (m *Manager) Info() (models.ModelInfo, bool) {
	a := m.active.Load()
	if a == nil {
		return models.ModelInfo{}, false
	}
	weights := make([]models.FeatureWeight, len(a.FeatureSchema))
	for i, name := range a.FeatureSchema {
		weights[i] = models.FeatureWeight{Feature: name, Weight: a.Weights[i]}
	}
	return models.ModelInfo{
		Version:         a.Version,
		TrainedAt:       a.TrainedAt,
		FeaturesCount:   len(a.FeatureSchema),
		TrainingSamples: a.TrainingSamples,
		Metrics:         a.Metrics,
		FeatureWeights:  weights,
	}, true
}

var _ domsvc.DemandModel = (*Manager)(nil)
