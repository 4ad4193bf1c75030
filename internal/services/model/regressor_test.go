package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandCast/internal/domain/models"
)

var testSchema = []string{"f1", "f2", "f3"}

// linearSamples follows y = 2*a + 3*b - c + 5 with no noise.
func linearSamples() []models.TrainingSample {
	grid := [][3]float64{
		{1, 2, 1}, {2, 1, 0}, {3, 3, 2}, {4, 1, 1},
		{5, 2, 3}, {6, 4, 0}, {7, 1, 2}, {8, 3, 1},
		{9, 2, 0}, {10, 5, 4}, {11, 1, 3}, {12, 4, 2},
	}
	samples := make([]models.TrainingSample, 0, len(grid))
	for _, g := range grid {
		samples = append(samples, models.TrainingSample{
			Features: []float64{g[0], g[1], g[2]},
			Label:    2*g[0] + 3*g[1] - g[2] + 5,
		})
	}
	return samples
}

func TestTrainTooFewSamples(t *testing.T) {
	samples := linearSamples()[:3]
	_, err := Train(samples, testSchema, TrainOptions{Seed: 1})
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestTrainSchemaMismatch(t *testing.T) {
	samples := linearSamples()
	samples[4].Features = samples[4].Features[:2]
	_, err := Train(samples, testSchema, TrainOptions{Seed: 1})
	assert.ErrorIs(t, err, models.ErrFeatureSchema)
}

func TestTrainDeterministic(t *testing.T) {
	opts := TrainOptions{ValidationSplit: 0.25, Seed: 42, Ridge: 0.5}

	a, err := Train(linearSamples(), testSchema, opts)
	require.NoError(t, err)
	b, err := Train(linearSamples(), testSchema, opts)
	require.NoError(t, err)

	assert.Equal(t, a.Weights, b.Weights)
	assert.Equal(t, a.Intercept, b.Intercept)
	assert.Equal(t, a.Metrics, b.Metrics)
}

func TestTrainSeedChangesSplit(t *testing.T) {
	a, err := Train(linearSamples(), testSchema, TrainOptions{ValidationSplit: 0.25, Seed: 1, Ridge: 0.5})
	require.NoError(t, err)
	b, err := Train(linearSamples(), testSchema, TrainOptions{ValidationSplit: 0.25, Seed: 2, Ridge: 0.5})
	require.NoError(t, err)

	assert.NotEqual(t, a.Weights, b.Weights)
}

func TestTrainRecoversLinearRelation(t *testing.T) {
	// Keep the ridge small so the fit tracks the noiseless relation closely.
	artifact, err := Train(linearSamples(), testSchema, TrainOptions{ValidationSplit: 0.2, Seed: 7, Ridge: 1e-6})
	require.NoError(t, err)

	got := rawPredict(artifact, []float64{6, 2, 1})
	want := 2*6.0 + 3*2.0 - 1.0 + 5
	assert.InDelta(t, want, got, 0.5)

	assert.Less(t, artifact.Metrics.RMSE, 1.0)
	assert.GreaterOrEqual(t, artifact.Metrics.MAPE, 0.0)
}

func TestTrainArtifactShape(t *testing.T) {
	artifact, err := Train(linearSamples(), testSchema, TrainOptions{Seed: 3})
	require.NoError(t, err)

	assert.Equal(t, testSchema, artifact.FeatureSchema)
	assert.Len(t, artifact.Weights, len(testSchema))
	assert.Len(t, artifact.FeatureMeans, len(testSchema))
	assert.Len(t, artifact.FeatureStds, len(testSchema))
	assert.NotEmpty(t, artifact.Version)
	assert.Equal(t, artifact.Metrics.RMSE, artifact.ResidualStd)
	for _, s := range artifact.FeatureStds {
		assert.Greater(t, s, 0.0)
	}
}

func TestManagerPredict(t *testing.T) {
	m := NewManager()
	assert.False(t, m.Loaded())

	_, _, err := m.Predict(models.FeatureVector{Values: []float64{1, 2, 3}})
	assert.ErrorIs(t, err, models.ErrModelNotLoaded)

	artifact, err := Train(linearSamples(), testSchema, TrainOptions{Seed: 5, Ridge: 1e-6})
	require.NoError(t, err)
	m.Bind(artifact)
	assert.True(t, m.Loaded())

	_, _, err = m.Predict(models.FeatureVector{Values: []float64{1, 2}})
	assert.ErrorIs(t, err, models.ErrFeatureSchema)

	qty, margin, err := m.Predict(models.FeatureVector{Values: []float64{6, 2, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 22.0, qty, 0.5)
	assert.GreaterOrEqual(t, margin, artifact.ResidualStd)
}

func TestManagerMarginGrowsWithDistance(t *testing.T) {
	m := NewManager()
	artifact, err := Train(linearSamples(), testSchema, TrainOptions{Seed: 5})
	require.NoError(t, err)
	m.Bind(artifact)

	_, near, err := m.Predict(models.FeatureVector{Values: []float64{6, 2, 1}})
	require.NoError(t, err)
	_, far, err := m.Predict(models.FeatureVector{Values: []float64{100, 100, 100}})
	require.NoError(t, err)

	assert.Greater(t, far, near)
}

func TestManagerInfo(t *testing.T) {
	m := NewManager()
	_, ok := m.Info()
	assert.False(t, ok)

	artifact, err := Train(linearSamples(), testSchema, TrainOptions{Seed: 9})
	require.NoError(t, err)
	m.Bind(artifact)

	info, ok := m.Info()
	require.True(t, ok)
	assert.Equal(t, artifact.Version, info.Version)
	assert.Equal(t, len(testSchema), info.FeaturesCount)
	require.Len(t, info.FeatureWeights, len(testSchema))
	assert.Equal(t, "f1", info.FeatureWeights[0].Feature)
}
