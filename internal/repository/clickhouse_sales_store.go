package repository

import (
	"context"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	"DemandCast/pkg/clickhouse"
	applogger "DemandCast/pkg/logger"
)

// SalesSchema creates the sales history table (idempotent).
var SalesSchema = []string{
	`CREATE TABLE IF NOT EXISTS sales_records (
		store_id    String,
		product_id  String,
		date        DateTime,
		quantity    Int32,
		revenue     Float64,
		discount    Float64,
		is_festival UInt8
	) ENGINE = MergeTree()
	ORDER BY (store_id, product_id, date)`,
}

// ClickHouseSalesStore serves sales history from a ClickHouse warehouse.
// It is one of the interchangeable HistoryProvider backends.
type ClickHouseSalesStore struct {
	client *clickhouse.Client
	l      *applogger.Logger
}

func NewClickHouseSalesStore(client *clickhouse.Client) *ClickHouseSalesStore {
	return &ClickHouseSalesStore{client: client}
}

// SetLogger injects a structured logger.
func (s *ClickHouseSalesStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.HistoryProvider = (*ClickHouseSalesStore)(nil)

// Fetch returns sales records for the pair over [start, end), oldest first.
func (s *ClickHouseSalesStore) Fetch(ctx context.Context, storeID models.StoreID, productID models.ProductID, start, end time.Time) ([]models.SalesRecord, error) {
	const q = `
		SELECT store_id, product_id, date, quantity, revenue, discount, is_festival
		FROM sales_records
		WHERE store_id = ? AND product_id = ? AND date >= ? AND date < ?
		ORDER BY date ASC
	`
	began := time.Now()
	rows, err := s.client.DB().QueryContext(ctx, q, string(storeID), string(productID), start, end)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse sales query error", applogger.Error(err))
		}
		return nil, &models.DataSourceError{Err: err}
	}
	defer rows.Close()

	out := make([]models.SalesRecord, 0, 256)
	for rows.Next() {
		var (
			r        models.SalesRecord
			sid, pid string
			festival uint8
		)
		if err := rows.Scan(&sid, &pid, &r.Date, &r.Quantity, &r.Revenue, &r.Discount, &festival); err != nil {
			return nil, &models.DataSourceError{Err: err}
		}
		r.StoreID = models.StoreID(sid)
		r.ProductID = models.ProductID(pid)
		r.IsFestival = festival != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.DataSourceError{Err: err}
	}
	if s.l != nil {
		s.l.Debug("clickhouse sales query ok",
			applogger.String("store_id", string(storeID)),
			applogger.String("product_id", string(productID)),
			applogger.Int("records", len(out)),
			applogger.Duration("duration_ms", time.Since(began)),
		)
	}
	return out, nil
}
