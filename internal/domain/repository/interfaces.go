package repository

import (
	"context"
	"time"

	"DemandCast/internal/domain/models"
)

// HistoryProvider supplies raw sales records for a store/product pair over
// [start, end), sorted ascending by date. The provider contract requires
// ascending order; the feature builder re-validates it at the boundary.
type HistoryProvider interface {
	Fetch(ctx context.Context, storeID models.StoreID, productID models.ProductID, start, end time.Time) ([]models.SalesRecord, error)
}

// PredictionStore owns prediction durability. Create assigns the identifier
// and creation time; SetActual is the only permitted mutation after creation.
type PredictionStore interface {
	Create(ctx context.Context, p *models.Prediction) (*models.Prediction, error)
	GetByID(ctx context.Context, id string) (*models.Prediction, error)
	SetActual(ctx context.Context, id string, actual int, accuracy float64) (*models.Prediction, error)
	Delete(ctx context.Context, id string) error
	ListByStore(ctx context.Context, storeID models.StoreID, limit int) ([]*models.Prediction, error)
	ListByProduct(ctx context.Context, productID models.ProductID, limit int) ([]*models.Prediction, error)
	ListByStoreProduct(ctx context.Context, storeID models.StoreID, productID models.ProductID, limit int) ([]*models.Prediction, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Prediction, error)
	Reconciled(ctx context.Context, f models.ReconciledFilter) ([]*models.Prediction, error)
	Health(ctx context.Context) error
}

// ArtifactStore persists trained model artifacts. Publish writes a new
// immutable version and repoints the active marker atomically; LoadActive
// returns the currently published artifact.
type ArtifactStore interface {
	LoadActive(ctx context.Context) (*models.ModelArtifact, error)
	Publish(ctx context.Context, a *models.ModelArtifact) error
}

// ForecastEvents publishes prediction lifecycle events to the message bus.
type ForecastEvents interface {
	PublishForecastCreated(ctx context.Context, p *models.Prediction) error
	Close() error
}

// Metrics records operational metrics for the forecasting pipeline.
type Metrics interface {
	RecordForecast(storeID, productID string)
	RecordPredictedQuantity(storeID, productID string, qty float64)
	RecordConfidence(score float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
