package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	domsvc "DemandCast/internal/domain/service"
	"DemandCast/internal/handler/api"
	internalrepo "DemandCast/internal/repository"
	icache "DemandCast/internal/service/cache"
	"DemandCast/internal/service/salesapi"
	"DemandCast/internal/services/confidence"
	"DemandCast/internal/services/model"
	"DemandCast/internal/usecase"
	pkgch "DemandCast/pkg/clickhouse"
	"DemandCast/pkg/config"
	pkgkafka "DemandCast/pkg/kafka"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/metrics"
	pkgpg "DemandCast/pkg/postgres"
	"DemandCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	l, err := applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.NewRecorder()
}

// ProvidePostgresPool creates the Postgres pool and ensures the schema.
func ProvidePostgresPool(cfg *config.Config) (*pkgpg.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pkgpg.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.InitSchema(ctx, internalrepo.PredictionSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return pool, nil
}

// ProvidePredictionStore creates the Postgres-backed prediction store.
func ProvidePredictionStore(pool *pkgpg.Pool, l *applogger.Logger) domrepo.PredictionStore {
	store := internalrepo.NewPostgresPredictionStore(pool)
	store.SetLogger(l)
	return store
}

// ProvideClickHouseClient creates a ClickHouse client when the history
// source is the warehouse; otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.History.Source != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SalesSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideHistoryProvider selects the configured sales history backend.
func ProvideHistoryProvider(cfg *config.Config, chClient *pkgch.Client, l *applogger.Logger) (domrepo.HistoryProvider, error) {
	switch cfg.History.Source {
	case "clickhouse":
		store := internalrepo.NewClickHouseSalesStore(chClient)
		store.SetLogger(l)
		return store, nil
	case "http":
		client := salesapi.NewClient(salesapi.Config{
			BaseURL: cfg.History.API.BaseURL,
			APIKey:  cfg.History.API.APIKey,
			Timeout: cfg.History.API.Timeout,
		})
		client.SetLogger(l)
		return client, nil
	default:
		return nil, fmt.Errorf("unknown history source %q", cfg.History.Source)
	}
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideForecastEvents creates the forecast event publisher.
func ProvideForecastEvents(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) domrepo.ForecastEvents {
	if producer == nil {
		return internalrepo.NopForecastEvents{}
	}
	events := internalrepo.NewKafkaForecastEvents(producer, cfg.Kafka.ForecastTopic)
	events.SetLogger(l)
	return events
}

// ProvideKafkaConsumer creates the actuals consumer, or nil when Kafka is
// disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideArtifactStore creates the filesystem artifact store.
func ProvideArtifactStore(cfg *config.Config, l *applogger.Logger) (domrepo.ArtifactStore, error) {
	store, err := internalrepo.NewFSArtifactStore(cfg.Model.Dir)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	store.SetLogger(l)
	return store, nil
}

// ProvideModelManager creates the model manager and binds the published
// artifact if one exists. Starting without a model is allowed; predictions
// fail until training publishes one.
func ProvideModelManager(store domrepo.ArtifactStore, l *applogger.Logger) (*model.Manager, error) {
	manager := model.NewManager()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	artifact, err := store.LoadActive(ctx)
	if err != nil {
		if errors.Is(err, models.ErrModelNotLoaded) {
			l.Warn("no published model artifact, starting unbound")
			return manager, nil
		}
		return nil, fmt.Errorf("load active artifact: %w", err)
	}
	manager.Bind(artifact)
	l.Info("model artifact bound", applogger.String("version", artifact.Version))
	return manager, nil
}

// ProvideConfidenceEstimator creates the confidence estimator from config.
func ProvideConfidenceEstimator(cfg *config.Config) domsvc.ConfidenceEstimator {
	return confidence.New(
		cfg.Model.Confidence.MarginScale,
		cfg.Model.Confidence.LowDataDiscount,
		cfg.Model.Confidence.AccuracyBlendWeight,
	)
}

// ProvideForecaster creates the forecast pipeline use case.
func ProvideForecaster(
	history domrepo.HistoryProvider,
	store domrepo.PredictionStore,
	manager *model.Manager,
	estimator domsvc.ConfidenceEstimator,
	events domrepo.ForecastEvents,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Forecaster {
	return usecase.NewForecaster(history, store, manager, estimator, events, m, l)
}

// ProvideAccuracyTracker creates the accuracy reconciliation use case.
func ProvideAccuracyTracker(store domrepo.PredictionStore, m domrepo.Metrics, l *applogger.Logger) *usecase.AccuracyTracker {
	return usecase.NewAccuracyTracker(store, m, l)
}

// ProvideTrainer creates the training use case.
func ProvideTrainer(
	history domrepo.HistoryProvider,
	artifacts domrepo.ArtifactStore,
	manager *model.Manager,
	cfg *config.Config,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Trainer {
	return usecase.NewTrainer(history, artifacts, manager, model.TrainOptions{
		ValidationSplit: cfg.Model.ValidationSplit,
		Seed:            cfg.Model.Seed,
		Ridge:           cfg.Model.Ridge,
	}, m, l)
}

// ProvideActualsHandler registers the handler for the actuals topic.
func ProvideActualsHandler(tracker *usecase.AccuracyTracker, m domrepo.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.ActualsHandler {
	return usecase.NewActualsHandler(cfg.Kafka.ActualsTopic, tracker, m, l)
}

// ProvideBytesCache selects Redis when enabled, in-process TTL cache
// otherwise.
func ProvideBytesCache(cfg *config.Config) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideForecastHandler creates the HTTP handler.
func ProvideForecastHandler(
	l *applogger.Logger,
	forecaster *usecase.Forecaster,
	tracker *usecase.AccuracyTracker,
	trainer *usecase.Trainer,
	manager *model.Manager,
	store domrepo.PredictionStore,
	chClient *pkgch.Client,
	bytesCache icache.BytesCache,
	cfg *config.Config,
) *api.ForecastHandler {
	var warehouse api.HealthChecker
	if chClient != nil {
		warehouse = chClient
	}
	return api.NewForecastHandler(l, forecaster, tracker, trainer, manager, store, warehouse, bytesCache, api.CacheTTLs{
		Stats:     cfg.Cache.TTL.Stats,
		ModelInfo: cfg.Cache.TTL.ModelInfo,
	})
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	handler *api.ForecastHandler,
	consumer *pkgkafka.Consumer,
	actuals *usecase.ActualsHandler,
	events domrepo.ForecastEvents,
	pool *pkgpg.Pool,
	chClient *pkgch.Client,
	l *applogger.Logger,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, handler, consumer, actuals, events, pool, chClient, l)
}
