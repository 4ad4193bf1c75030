package models

import "time"

// Prediction is a persisted forecast. Created once by the forecaster, mutated
// exactly once when the realized quantity is recorded, deleted only by
// explicit operator action.
type Prediction struct {
	ID                string    `json:"id"`
	StoreID           StoreID   `json:"store_id"`
	ProductID         ProductID `json:"product_id"`
	ForecastMonth     time.Time `json:"forecast_month"`
	PredictedQuantity int       `json:"predicted_quantity"`
	ConfidenceScore   float64   `json:"confidence_score"`
	ModelVersion      string    `json:"model_version"`
	CreatedAt         time.Time `json:"created_at"`
	ActualQuantity    *int      `json:"actual_quantity,omitempty"`
	Accuracy          *float64  `json:"accuracy,omitempty"`
}

// Reconciled reports whether the realized quantity has been recorded.
func (p *Prediction) Reconciled() bool {
	return p.ActualQuantity != nil
}

// ReconciledFilter narrows reconciled-prediction queries. Zero values mean
// "no filter"; Limit 0 means unbounded.
type ReconciledFilter struct {
	StoreID   StoreID
	ProductID ProductID
	Limit     int
}

// AccuracyStats aggregates reconciled predictions.
type AccuracyStats struct {
	Count                       int     `json:"count"`
	MeanAccuracy                float64 `json:"mean_accuracy"`
	MeanAbsolutePercentageError float64 `json:"mean_absolute_percentage_error"`
}
