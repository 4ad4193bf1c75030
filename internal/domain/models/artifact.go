package models

import "time"

// ModelArtifact is one immutable trained estimator. Training always produces
// a new version; the active artifact is replaced wholesale, never mutated.
type ModelArtifact struct {
	Version         string        `json:"version"`
	TrainedAt       time.Time     `json:"trained_at"`
	FeatureSchema   []string      `json:"feature_schema"`
	Weights         []float64     `json:"weights"`
	Intercept       float64       `json:"intercept"`
	FeatureMeans    []float64     `json:"feature_means"`
	FeatureStds     []float64     `json:"feature_stds"`
	ResidualStd     float64       `json:"residual_std"`
	TrainingSamples int           `json:"training_samples"`
	Metrics         ModelMetrics  `json:"metrics"`
}

// ModelMetrics are evaluation metrics computed on the validation split.
type ModelMetrics struct {
	MAE  float64 `json:"mae"`
	MAPE float64 `json:"mape"`
	RMSE float64 `json:"rmse"`
}

// FeatureWeight pairs a feature name with its fitted coefficient for
// introspection.
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// ModelInfo is the introspection view of the active artifact.
type ModelInfo struct {
	Version         string          `json:"model_version"`
	TrainedAt       time.Time       `json:"trained_at"`
	FeaturesCount   int             `json:"features_count"`
	TrainingSamples int             `json:"training_samples"`
	Metrics         ModelMetrics    `json:"metrics"`
	FeatureWeights  []FeatureWeight `json:"feature_weights"`
}
