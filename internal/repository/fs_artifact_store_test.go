package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandCast/internal/domain/models"
)

func testArtifact(version string) *models.ModelArtifact {
	return &models.ModelArtifact{
		Version:         version,
		TrainedAt:       time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC),
		FeatureSchema:   []string{"f1", "f2"},
		Weights:         []float64{1.5, -0.25},
		Intercept:       10,
		FeatureMeans:    []float64{3, 4},
		FeatureStds:     []float64{1, 2},
		ResidualStd:     2.5,
		TrainingSamples: 20,
		Metrics:         models.ModelMetrics{MAE: 2, MAPE: 8, RMSE: 2.5},
	}
}

func TestFSArtifactStoreEmptyDir(t *testing.T) {
	store, err := NewFSArtifactStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.LoadActive(context.Background())
	assert.ErrorIs(t, err, models.ErrModelNotLoaded)
}

func TestFSArtifactStoreRoundTrip(t *testing.T) {
	store, err := NewFSArtifactStore(t.TempDir())
	require.NoError(t, err)

	want := testArtifact("v20250601_120000")
	require.NoError(t, store.Publish(context.Background(), want))

	got, err := store.LoadActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFSArtifactStorePublishRepoints(t *testing.T) {
	store, err := NewFSArtifactStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Publish(context.Background(), testArtifact("v1")))
	require.NoError(t, store.Publish(context.Background(), testArtifact("v2")))

	got, err := store.LoadActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Version)
}

func TestFSArtifactStoreOldVersionsSurvive(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSArtifactStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Publish(context.Background(), testArtifact("v1")))
	require.NoError(t, store.Publish(context.Background(), testArtifact("v2")))

	// Published versions are immutable files; a rollback is just repointing.
	assert.FileExists(t, store.artifactPath("v1"))
	assert.FileExists(t, store.artifactPath("v2"))
}

func TestFSArtifactStoreRejectsBlankVersion(t *testing.T) {
	store, err := NewFSArtifactStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Publish(context.Background(), &models.ModelArtifact{}))
	assert.Error(t, store.Publish(context.Background(), nil))
}
