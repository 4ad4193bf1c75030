package salesapi

import (
	"context"
	"sort"
	"strings"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	pkghttp "DemandCast/pkg/http"
	applogger "DemandCast/pkg/logger"
)

// Config holds sales API connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client fetches sales history from the upstream retail sales API.
type Client struct {
	http    *pkghttp.Client
	baseURL string
	apiKey  string
	l       *applogger.Logger
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// SetLogger injects a structured logger.
func (c *Client) SetLogger(l *applogger.Logger) { c.l = l }

var _ domrepo.HistoryProvider = (*Client)(nil)

// salesResponse mirrors the upstream payload. Only the fields the feature
// pipeline consumes are mapped.
type salesResponse struct {
	Results []salesResult `json:"results"`
}

type salesResult struct {
	Plant struct {
		StoreID string `json:"storeId"`
	} `json:"plant"`
	MaterialCode struct {
		StyleCode string `json:"styleCode"`
	} `json:"materialCode"`
	Date       string  `json:"date"`
	Quantity   int     `json:"quantity"`
	NSV        float64 `json:"nsv"`
	Discount   float64 `json:"discount"`
	IsFestival bool    `json:"isFestival"`
}

// Fetch queries the sales API for the pair over [start, end) and returns
// records sorted ascending by date. Upstream failures and unparseable
// payloads come back as DataSourceError.
func (c *Client) Fetch(ctx context.Context, storeID models.StoreID, productID models.ProductID, start, end time.Time) ([]models.SalesRecord, error) {
	began := time.Now()

	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var payload salesResponse
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodGet,
		URL:     c.baseURL + "/sales",
		Headers: headers,
		QueryParams: map[string][]string{
			"storeId":   {string(storeID)},
			"styleCode": {string(productID)},
			"startDate": {start.Format("2006-01-02")},
			"endDate":   {end.Format("2006-01-02")},
		},
	}, &payload)
	if err != nil {
		if c.l != nil {
			c.l.Error("sales api request error",
				applogger.String("store_id", string(storeID)),
				applogger.String("product_id", string(productID)),
				applogger.Error(err),
			)
		}
		return nil, &models.DataSourceError{Err: err}
	}

	out := make([]models.SalesRecord, 0, len(payload.Results))
	for _, r := range payload.Results {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			// Tolerate full timestamps from older API versions.
			date, err = time.Parse(time.RFC3339, r.Date)
			if err != nil {
				return nil, &models.DataSourceError{Err: err}
			}
		}
		// Upstream may return neighboring records; keep only the requested pair
		// inside the window.
		if r.Plant.StoreID != string(storeID) || r.MaterialCode.StyleCode != string(productID) {
			continue
		}
		if date.Before(start) || !date.Before(end) {
			continue
		}
		out = append(out, models.SalesRecord{
			StoreID:    storeID,
			ProductID:  productID,
			Date:       date,
			Quantity:   r.Quantity,
			Revenue:    r.NSV,
			Discount:   r.Discount,
			IsFestival: r.IsFestival,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	if c.l != nil {
		c.l.Debug("sales api fetch ok",
			applogger.String("store_id", string(storeID)),
			applogger.String("product_id", string(productID)),
			applogger.Int("records", len(out)),
			applogger.Duration("duration_ms", time.Since(began)),
		)
	}
	return out, nil
}
