package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	pkgkafka "DemandCast/pkg/kafka"
	applogger "DemandCast/pkg/logger"
)

// ActualsHandler consumes realized-demand messages and reconciles the
// referenced predictions.
type ActualsHandler struct {
	topic   string
	tracker *AccuracyTracker
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewActualsHandler(topic string, tracker *AccuracyTracker, metrics domrepo.Metrics, l *applogger.Logger) *ActualsHandler {
	return &ActualsHandler{topic: topic, tracker: tracker, metrics: metrics, l: l}
}

var _ pkgkafka.MessageHandler = (*ActualsHandler)(nil)

func (h *ActualsHandler) Topic() string { return h.topic }

// incoming message schema: {prediction_id, actual_quantity}
func (h *ActualsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		PredictionID   string `json:"prediction_id"`
		ActualQuantity int    `json:"actual_quantity"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("actuals_unmarshal")
		return err
	}

	_, err := h.tracker.RecordActual(ctx, m.PredictionID, m.ActualQuantity)
	if err != nil {
		// An unknown prediction is a stale or foreign message, not a
		// retryable failure.
		if errors.Is(err, models.ErrNotFound) {
			h.l.Warn("actuals message for unknown prediction",
				applogger.String("prediction_id", m.PredictionID),
			)
			return nil
		}
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			h.l.Warn("actuals message rejected",
				applogger.String("prediction_id", m.PredictionID),
				applogger.Error(err),
			)
			return nil
		}
		h.metrics.RecordError("actuals_record")
		return err
	}
	return nil
}
