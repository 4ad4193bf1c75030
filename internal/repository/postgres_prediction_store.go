package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	applogger "DemandCast/pkg/logger"
	pkgpg "DemandCast/pkg/postgres"
)

// PredictionSchema is the idempotent DDL applied at startup.
var PredictionSchema = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
		id UUID PRIMARY KEY,
		store_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		forecast_month TIMESTAMPTZ NOT NULL,
		predicted_quantity INTEGER NOT NULL,
		confidence_score DOUBLE PRECISION NOT NULL,
		model_version TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		actual_quantity INTEGER,
		accuracy DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_store ON predictions (store_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_product ON predictions (product_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions (created_at DESC)`,
}

const predictionColumns = `id, store_id, product_id, forecast_month, predicted_quantity,
	confidence_score, model_version, created_at, actual_quantity, accuracy`

// PostgresPredictionStore implements PredictionStore using PostgreSQL.
type PostgresPredictionStore struct {
	pool *pkgpg.Pool
	l    *applogger.Logger
}

func NewPostgresPredictionStore(pool *pkgpg.Pool) *PostgresPredictionStore {
	return &PostgresPredictionStore{pool: pool}
}

// SetLogger injects a structured logger.
func (s *PostgresPredictionStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.PredictionStore = (*PostgresPredictionStore)(nil)

// Create persists a new prediction, assigning its identifier and creation
// time. The input is not mutated.
func (s *PostgresPredictionStore) Create(ctx context.Context, p *models.Prediction) (*models.Prediction, error) {
	stored := *p
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()

	const q = `
		INSERT INTO predictions (` + predictionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.pool.Exec(ctx, q,
		stored.ID,
		string(stored.StoreID),
		string(stored.ProductID),
		stored.ForecastMonth,
		stored.PredictedQuantity,
		stored.ConfidenceScore,
		stored.ModelVersion,
		stored.CreatedAt,
		stored.ActualQuantity,
		stored.Accuracy,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("postgres create prediction error", applogger.Error(err))
		}
		return nil, &models.PersistenceError{Op: "create", Err: err}
	}
	return &stored, nil
}

// GetByID returns models.ErrNotFound for unknown and malformed identifiers
// alike; a bad UUID must never surface as a crash or a 500.
func (s *PostgresPredictionStore) GetByID(ctx context.Context, id string) (*models.Prediction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	const q = `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`
	p, err := scanPrediction(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, &models.PersistenceError{Op: "get", Err: err}
	}
	return p, nil
}

// SetActual records the realized quantity and derived accuracy. Repeated
// calls with the same arguments leave the row unchanged.
func (s *PostgresPredictionStore) SetActual(ctx context.Context, id string, actual int, accuracy float64) (*models.Prediction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	const q = `
		UPDATE predictions
		SET actual_quantity = $2, accuracy = $3
		WHERE id = $1
		RETURNING ` + predictionColumns
	p, err := scanPrediction(s.pool.QueryRow(ctx, q, id, actual, accuracy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, &models.PersistenceError{Op: "set_actual", Err: err}
	}
	return p, nil
}

func (s *PostgresPredictionStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM predictions WHERE id = $1`, id)
	if err != nil {
		return &models.PersistenceError{Op: "delete", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresPredictionStore) ListByStore(ctx context.Context, storeID models.StoreID, limit int) ([]*models.Prediction, error) {
	const q = `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE store_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return s.list(ctx, "list_by_store", q, string(storeID), limit)
}

func (s *PostgresPredictionStore) ListByProduct(ctx context.Context, productID models.ProductID, limit int) ([]*models.Prediction, error) {
	const q = `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return s.list(ctx, "list_by_product", q, string(productID), limit)
}

func (s *PostgresPredictionStore) ListByStoreProduct(ctx context.Context, storeID models.StoreID, productID models.ProductID, limit int) ([]*models.Prediction, error) {
	const q = `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE store_id = $1 AND product_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	return s.list(ctx, "list_by_store_product", q, string(storeID), string(productID), limit)
}

func (s *PostgresPredictionStore) ListRecent(ctx context.Context, limit int) ([]*models.Prediction, error) {
	const q = `
		SELECT ` + predictionColumns + `
		FROM predictions
		ORDER BY created_at DESC
		LIMIT $1
	`
	return s.list(ctx, "list_recent", q, limit)
}

// Reconciled returns predictions with a recorded actual quantity, newest
// first, optionally narrowed by store and/or product. Limit 0 is unbounded.
func (s *PostgresPredictionStore) Reconciled(ctx context.Context, f models.ReconciledFilter) ([]*models.Prediction, error) {
	q := `SELECT ` + predictionColumns + ` FROM predictions WHERE actual_quantity IS NOT NULL`
	args := make([]interface{}, 0, 3)
	if f.StoreID != "" {
		args = append(args, string(f.StoreID))
		q += fmt.Sprintf(" AND store_id = $%d", len(args))
	}
	if f.ProductID != "" {
		args = append(args, string(f.ProductID))
		q += fmt.Sprintf(" AND product_id = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.list(ctx, "reconciled", q, args...)
}

func (s *PostgresPredictionStore) Health(ctx context.Context) error {
	return s.pool.Health(ctx)
}

func (s *PostgresPredictionStore) list(ctx context.Context, op, q string, args ...interface{}) ([]*models.Prediction, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("postgres query error", applogger.String("op", op), applogger.Error(err))
		}
		return nil, &models.PersistenceError{Op: op, Err: err}
	}
	defer rows.Close()

	out := make([]*models.Prediction, 0, 64)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, &models.PersistenceError{Op: op, Err: err}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: op, Err: err}
	}
	if s.l != nil {
		s.l.Debug("postgres query ok",
			applogger.String("op", op),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	var (
		p         models.Prediction
		storeID   string
		productID string
	)
	err := row.Scan(
		&p.ID,
		&storeID,
		&productID,
		&p.ForecastMonth,
		&p.PredictedQuantity,
		&p.ConfidenceScore,
		&p.ModelVersion,
		&p.CreatedAt,
		&p.ActualQuantity,
		&p.Accuracy,
	)
	if err != nil {
		return nil, err
	}
	p.StoreID = models.StoreID(storeID)
	p.ProductID = models.ProductID(productID)
	return &p, nil
}
