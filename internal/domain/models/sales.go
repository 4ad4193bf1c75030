package models

import (
	"strings"
	"time"
)

// StoreID identifies a retail store. Validated once at the boundary so the
// inner layers never see a blank identifier.
type StoreID string

// ProductID identifies a product (SKU / style code).
type ProductID string

func (s StoreID) Validate() error {
	if strings.TrimSpace(string(s)) == "" {
		return &ValidationError{Field: "store_id", Reason: "must not be empty"}
	}
	return nil
}

func (p ProductID) Validate() error {
	if strings.TrimSpace(string(p)) == "" {
		return &ValidationError{Field: "product_id", Reason: "must not be empty"}
	}
	return nil
}

// SalesRecord is one raw historical sales observation supplied by the
// history provider. Immutable once fetched.
type SalesRecord struct {
	StoreID    StoreID   `json:"store_id"`
	ProductID  ProductID `json:"product_id"`
	Date       time.Time `json:"date"`
	Quantity   int       `json:"quantity"`
	Revenue    float64   `json:"revenue"`
	Discount   float64   `json:"discount"`
	IsFestival bool      `json:"is_festival"`
}
