package confidence

import (
	domsvc "DemandCast/internal/domain/service"
)

// Estimator turns the model's raw uncertainty margin into a bounded [0,1]
// confidence score. All three knobs are configuration, not constants: there
// is no canonical formula for this blend, so deployments tune it.
type Estimator struct {
	marginScale     float64
	lowDataDiscount float64
	blendWeight     float64
}

func New(marginScale, lowDataDiscount, blendWeight float64) *Estimator {
	if marginScale <= 0 {
		marginScale = 5.0
	}
	if lowDataDiscount <= 0 || lowDataDiscount > 1 {
		lowDataDiscount = 0.6
	}
	if blendWeight < 0 || blendWeight > 1 {
		blendWeight = 0.3
	}
	return &Estimator{
		marginScale:     marginScale,
		lowDataDiscount: lowDataDiscount,
		blendWeight:     blendWeight,
	}
}

// Estimate never fails. The base score decays monotonically as the margin
// widens; a sparse history discounts it multiplicatively; when the pair has
// reconciled history, the score is pulled toward its rolling accuracy so
// habitually wrong pairs cannot ride a tight margin.
func (e *Estimator) Estimate(rawMargin float64, lowConfidence bool, recentAccuracy *float64) float64 {
	if rawMargin < 0 {
		rawMargin = 0
	}
	score := e.marginScale / (e.marginScale + rawMargin)

	if lowConfidence {
		score *= e.lowDataDiscount
	}

	if recentAccuracy != nil {
		acc := clamp01(*recentAccuracy)
		score = (1-e.blendWeight)*score + e.blendWeight*acc
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ domsvc.ConfidenceEstimator = (*Estimator)(nil)
