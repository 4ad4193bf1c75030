package models

import "time"

// ForecastRequest asks for a next-period demand forecast for one
// store/product pair. TargetMonth must be a first-of-month timestamp.
type ForecastRequest struct {
	StoreID          StoreID
	ProductID        ProductID
	TargetMonth      time.Time
	HistoricalMonths int
}

// FeatureVector is the fixed-order numeric input to the demand model.
// Values follow the schema published by the feature builder; length and order
// are pinned by the model version.
type FeatureVector struct {
	Values []float64

	// LowConfidence is raised when the historical window spans fewer than
	// three distinct months. The confidence estimator discounts for it.
	LowConfidence bool

	// DistinctMonths is the number of distinct calendar months observed in
	// the filtered window.
	DistinctMonths int
}

// TrainingSample is one labeled row of the training matrix.
type TrainingSample struct {
	Features []float64
	Label    float64
}

// TrainRequest scopes a training run.
type TrainRequest struct {
	StoreID   StoreID
	ProductID ProductID
	Months    int
}
