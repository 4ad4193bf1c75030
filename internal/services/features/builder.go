package features

import (
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/pkg/util"
)

// Feature order is pinned per model version; the schema below is recorded in
// every trained artifact and re-checked at inference time.
var schema = []string{
	"month",
	"year",
	"sales_last_1_month",
	"sales_last_2_month",
	"sales_last_3_month",
	"average_discount",
	"is_festival_month",
	"trend_slope",
	"quarter",
}

// Schema returns the ordered feature names.
func Schema() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

// ReliableMonths is the minimum distinct-month count for a window to be
// considered reliable; below it the low-confidence flag is raised.
const ReliableMonths = 3

// Build derives the fixed-width feature vector for targetMonth from raw sales
// records. Records must already be sorted ascending by date; an out-of-order
// sequence fails with a validation error. Records on or after targetMonth are
// ignored. A window with zero distinct months fails with
// models.ErrInsufficientData. Pure function of its inputs.
func Build(records []models.SalesRecord, targetMonth time.Time) (models.FeatureVector, error) {
	var fv models.FeatureVector

	targetMonth = util.MonthStart(targetMonth)

	for i := 1; i < len(records); i++ {
		if records[i].Date.Before(records[i-1].Date) {
			return fv, &models.ValidationError{Field: "records", Reason: "must be sorted ascending by date"}
		}
	}

	window := make([]models.SalesRecord, 0, len(records))
	for _, r := range records {
		if r.Date.Before(targetMonth) {
			window = append(window, r)
		}
	}

	months := distinctMonths(window)
	if months == 0 {
		return fv, models.ErrInsufficientData
	}

	fv.DistinctMonths = months
	fv.LowConfidence = months < ReliableMonths

	lag1 := monthQuantity(window, util.AddMonths(targetMonth, -1))
	lag2 := monthQuantity(window, util.AddMonths(targetMonth, -2))
	lag3 := monthQuantity(window, util.AddMonths(targetMonth, -3))

	fv.Values = []float64{
		float64(targetMonth.Month()),
		float64(targetMonth.Year()),
		lag1,
		lag2,
		lag3,
		averageDiscount(window),
		festivalFlag(window),
		trendSlope(window),
		float64((int(targetMonth.Month())-1)/3 + 1),
	}
	return fv, nil
}

// distinctMonths counts distinct calendar months in the window.
func distinctMonths(window []models.SalesRecord) int {
	seen := make(map[int]struct{}, len(window))
	for _, r := range window {
		seen[util.MonthIndex(r.Date)] = struct{}{}
	}
	return len(seen)
}

// monthQuantity sums quantities in the exact calendar month of m; a month
// with no matching records contributes 0, not missing.
func monthQuantity(window []models.SalesRecord, m time.Time) float64 {
	total := 0
	for _, r := range window {
		if util.SameMonth(r.Date, m) {
			total += r.Quantity
		}
	}
	return float64(total)
}

// averageDiscount is the mean discount over the window, 0.0 when empty.
func averageDiscount(window []models.SalesRecord) float64 {
	if len(window) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, r := range window {
		sum += r.Discount
	}
	return sum / float64(len(window))
}

// festivalFlag is 1 if any record in the most recent month of the window is
// flagged as a festival, else 0.
func festivalFlag(window []models.SalesRecord) float64 {
	if len(window) == 0 {
		return 0
	}
	last := window[0].Date
	for _, r := range window {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	for _, r := range window {
		if util.SameMonth(r.Date, last) && r.IsFestival {
			return 1
		}
	}
	return 0
}

// trendSlope fits a least-squares line through (monthIndex, monthlyTotal)
// pairs and returns its slope in units per month. Fewer than two distinct
// months yields 0.
func trendSlope(window []models.SalesRecord) float64 {
	totals := make(map[int]float64)
	for _, r := range window {
		totals[util.MonthIndex(r.Date)] += float64(r.Quantity)
	}
	n := float64(len(totals))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for idx, total := range totals {
		x := float64(idx)
		sumX += x
		sumY += total
		sumXY += x * total
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
