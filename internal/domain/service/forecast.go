package service

import "DemandCast/internal/domain/models"

// DemandModel maps a feature vector to a predicted quantity and a raw
// uncertainty margin. The raw output stays a real number; rounding to whole
// units happens at the orchestrator boundary.
type DemandModel interface {
	Predict(v models.FeatureVector) (quantity float64, rawMargin float64, err error)
	Info() (models.ModelInfo, bool)
	Loaded() bool
}

// ConfidenceEstimator derives a bounded confidence score from the model's
// uncertainty margin, the data-sufficiency flag, and any rolling accuracy for
// the same store/product. Never fails; output is clamped to [0,1].
type ConfidenceEstimator interface {
	Estimate(rawMargin float64, lowConfidence bool, recentAccuracy *float64) float64
}
