package repository

import (
	"context"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	"DemandCast/pkg/kafka"
	applogger "DemandCast/pkg/logger"
)

// forecastCreatedEvent is the wire shape of a forecast.created message.
type forecastCreatedEvent struct {
	PredictionID       string    `json:"prediction_id"`
	StoreID            string    `json:"store_id"`
	ProductID          string    `json:"product_id"`
	ForecastMonth      time.Time `json:"forecast_month"`
	PredictedQuantity  int       `json:"predicted_quantity"`
	ConfidenceScore    float64   `json:"confidence_score"`
	ModelVersion       string    `json:"model_version"`
	CreatedAt          time.Time `json:"created_at"`
}

// KafkaForecastEvents publishes forecast lifecycle events, keyed by
// store/product so events for one pair stay ordered within a partition.
type KafkaForecastEvents struct {
	producer *kafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaForecastEvents(producer *kafka.Producer, topic string) *KafkaForecastEvents {
	return &KafkaForecastEvents{producer: producer, topic: topic}
}

// SetLogger injects a structured logger.
func (k *KafkaForecastEvents) SetLogger(l *applogger.Logger) { k.l = l }

var _ domrepo.ForecastEvents = (*KafkaForecastEvents)(nil)

func (k *KafkaForecastEvents) PublishForecastCreated(ctx context.Context, p *models.Prediction) error {
	ev := forecastCreatedEvent{
		PredictionID:      p.ID,
		StoreID:           string(p.StoreID),
		ProductID:         string(p.ProductID),
		ForecastMonth:     p.ForecastMonth,
		PredictedQuantity: p.PredictedQuantity,
		ConfidenceScore:   p.ConfidenceScore,
		ModelVersion:      p.ModelVersion,
		CreatedAt:         p.CreatedAt,
	}
	key := []byte(string(p.StoreID) + ":" + string(p.ProductID))
	if err := k.producer.Publish(ctx, k.topic, key, ev); err != nil {
		if k.l != nil {
			k.l.Error("publish forecast.created error",
				applogger.String("prediction_id", p.ID),
				applogger.Error(err),
			)
		}
		return err
	}
	return nil
}

func (k *KafkaForecastEvents) Close() error {
	return k.producer.Close()
}

// NopForecastEvents is used when Kafka is disabled.
type NopForecastEvents struct{}

var _ domrepo.ForecastEvents = (*NopForecastEvents)(nil)

func (NopForecastEvents) PublishForecastCreated(context.Context, *models.Prediction) error { return nil }
func (NopForecastEvents) Close() error                                                    { return nil }
