package salesapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandCast/internal/domain/models"
)

const salesPayload = `{
	"results": [
		{
			"plant": {"storeId": "S01"},
			"materialCode": {"styleCode": "P01"},
			"date": "2025-05-10",
			"quantity": 9,
			"nsv": 450.0,
			"discount": 0.1,
			"isFestival": false
		},
		{
			"plant": {"storeId": "S01"},
			"materialCode": {"styleCode": "P01"},
			"date": "2025-04-02",
			"quantity": 5,
			"nsv": 250.0,
			"discount": 0.2,
			"isFestival": true
		},
		{
			"plant": {"storeId": "S99"},
			"materialCode": {"styleCode": "P01"},
			"date": "2025-04-15",
			"quantity": 100,
			"nsv": 5000.0,
			"discount": 0.0,
			"isFestival": false
		}
	]
}`

func TestFetchParsesAndSorts(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/sales", r.URL.Path)
		assert.Equal(t, "S01", r.URL.Query().Get("storeId"))
		assert.Equal(t, "P01", r.URL.Query().Get("styleCode"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(salesPayload))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/api", APIKey: "secret"})
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	records, err := c.Fetch(context.Background(), "S01", "P01", start, end)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)

	// The foreign store's record is dropped; the rest come back ascending.
	require.Len(t, records, 2)
	assert.Equal(t, time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, 5, records[0].Quantity)
	assert.Equal(t, 250.0, records[0].Revenue)
	assert.True(t, records[0].IsFestival)
	assert.Equal(t, time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC), records[1].Date)
}

func TestFetchFiltersWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(salesPayload))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	start := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	records, err := c.Fetch(context.Background(), "S01", "P01", start, end)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 9, records[0].Quantity)
}

func TestFetchUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Fetch(context.Background(), "S01", "P01", time.Time{}, time.Now())

	var derr *models.DataSourceError
	assert.True(t, errors.As(err, &derr))
}

func TestFetchMalformedDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"plant":{"storeId":"S01"},"materialCode":{"styleCode":"P01"},"date":"yesterday","quantity":1}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Fetch(context.Background(), "S01", "P01", time.Time{}, time.Now())

	var derr *models.DataSourceError
	assert.True(t, errors.As(err, &derr))
}

func TestFetchUnreachable(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})
	_, err := c.Fetch(context.Background(), "S01", "P01", time.Time{}, time.Now())

	var derr *models.DataSourceError
	assert.True(t, errors.As(err, &derr))
}
