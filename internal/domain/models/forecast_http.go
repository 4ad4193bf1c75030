package models

import "time"

// Requests for the forecast HTTP endpoints. Defined in domain for consistency and reuse.

type ForecastHTTPRequest struct {
	StoreID          string    `json:"store_id" validate:"required"`
	ProductID        string    `json:"product_id" validate:"required"`
	TargetMonth      time.Time `json:"target_month" validate:"required"`
	HistoricalMonths int       `json:"historical_months" default:"12" validate:"gte=1,lte=60"`
}

type ActualHTTPRequest struct {
	ActualQuantity *int `json:"actual_quantity" validate:"required,gte=0"`
}

type TrainHTTPRequest struct {
	StoreID   string `json:"store_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	Months    int    `json:"months" default:"24" validate:"gte=4,lte=120"`
}

type ListHTTPRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type RecentHTTPRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type StatsHTTPRequest struct {
	StoreID string `query:"store_id" json:"store_id"`
}
