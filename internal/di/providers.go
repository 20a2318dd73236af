package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/repository"
	"AnalystCouncil/internal/domain/service"
	"AnalystCouncil/internal/handler/api"
	mid "AnalystCouncil/internal/middleware"
	internalrepo "AnalystCouncil/internal/repository"
	"AnalystCouncil/internal/service/finnhub"
	"AnalystCouncil/internal/service/llm"
	"AnalystCouncil/internal/usecase"
	"AnalystCouncil/pkg/cache"
	pkgch "AnalystCouncil/pkg/clickhouse"
	"AnalystCouncil/pkg/config"
	pkgkafka "AnalystCouncil/pkg/kafka"
	"AnalystCouncil/pkg/logger"
	"AnalystCouncil/pkg/metrics"
	pkgqueue "AnalystCouncil/pkg/queue"
	"AnalystCouncil/pkg/server"

	kafkago "github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	format := "json"
	if cfg.Environment != "production" {
		format = "console"
	}
	return logger.New(&logger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder, or a no-op
// recorder when metrics are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return repository.NopMetrics()
	}
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when the history
// backend needs one.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.History.Backend != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := internalrepo.SchemaStatements(cfg.ClickHouse.Database, historyTable(cfg))
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func historyTable(cfg *config.Config) string {
	return cfg.ClickHouse.Database + ".analysis_reports"
}

// ProvideHistoryStore selects the configured history backend.
func ProvideHistoryStore(chClient *pkgch.Client, cfg *config.Config) (repository.HistoryStore, error) {
	switch cfg.History.Backend {
	case "clickhouse":
		if chClient == nil {
			return nil, fmt.Errorf("clickhouse history backend without client")
		}
		return internalrepo.NewClickHouseHistory(chClient.DB(), historyTable(cfg)), nil
	case "file":
		store := internalrepo.NewFileHistory(cfg.History.File.Path)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown history backend '%s'", cfg.History.Backend)
}

// ProvideRedisCache creates a Redis cache when enabled, nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	return cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideQuoteCache layers memory over Redis when Redis is available.
func ProvideQuoteCache(redisCache *cache.RedisCache) cache.Service {
	if redisCache == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(1000))
	}
	return cache.NewLayeredCache(redisCache, cache.WithLayeredMemorySize(1000))
}

// ProvideModelInvoker builds the provider registry from configured
// API keys.
func ProvideModelInvoker(cfg *config.Config) (service.ModelInvoker, error) {
	var clients []service.ModelClient
	if cfg.Providers.Anthropic.APIKey != "" {
		clients = append(clients, llm.NewAnthropicClient(cfg.Providers.Anthropic.APIKey))
	}
	if cfg.Providers.OpenAI.APIKey != "" {
		clients = append(clients, llm.NewOpenAIClient(cfg.Providers.OpenAI.APIKey))
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no model provider API keys configured")
	}
	return llm.NewRegistry(clients...), nil
}

// ProvideExpertRunner creates the per-expert attempt executor.
func ProvideExpertRunner(invoker service.ModelInvoker, cfg *config.Config, l *logger.Logger, m repository.Metrics) *usecase.ExpertRunner {
	return usecase.NewExpertRunner(invoker, cfg.Council.AttemptTimeout, l, m)
}

// ProvideExpertSpecs resolves the configured council.
func ProvideExpertSpecs(cfg *config.Config) ([]models.ExpertSpec, error) {
	return usecase.BuildSpecs(cfg.Council.Experts)
}

// ProvideSynthesizer creates the chairman pass unless disabled.
func ProvideSynthesizer(runner *usecase.ExpertRunner, cfg *config.Config, l *logger.Logger) (*usecase.Synthesizer, error) {
	if cfg.Council.SynthesisEnabled != nil && !*cfg.Council.SynthesisEnabled {
		return nil, nil
	}
	spec, err := usecase.BuildChairmanSpec(cfg.Council.Chairman)
	if err != nil {
		return nil, err
	}
	return usecase.NewSynthesizer(runner, spec, l), nil
}

// ProvideKafkaProducer creates a Kafka producer when enabled.
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

// ProvideReportPublisher creates the Kafka report publisher when a
// producer exists.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
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

// ProvideHistoryQueue creates the redis-backed append queue when
// configured. The App owns its start/stop lifecycle.
func ProvideHistoryQueue(redisCache *cache.RedisCache, cfg *config.Config, l *logger.Logger) *pkgqueue.RedisQueue {
	if !cfg.History.Queue.Enabled || redisCache == nil {
		return nil
	}
	return pkgqueue.NewRedisQueue(l, &pkgqueue.QueueConfig{
		Workers:    cfg.History.Queue.Workers,
		RetryLimit: 3,
		RetryDelay: 10 * time.Second,
	}, redisCache.Client(), pkgqueue.WithKeyPrefix("council:history"))
}

// ProvideHistoryService creates the history usecase and registers the
// deferred append job on the queue when one exists.
func ProvideHistoryService(store repository.HistoryStore, q *pkgqueue.RedisQueue, cfg *config.Config, l *logger.Logger, m repository.Metrics) *usecase.HistoryService {
	svc := usecase.NewHistoryService(store, nil, cfg.History.Backend, l, m)
	if q != nil {
		q.RegisterJob(usecase.NewHistoryAppendJob(svc))
		svc.SetQueue(q)
	}
	return svc
}

// ProvideReportConsumeHandler registers the history persistence handler
// for the reports topic.
func ProvideReportConsumeHandler(history *usecase.HistoryService, m repository.Metrics, cfg *config.Config) *usecase.ReportConsumeHandler {
	return usecase.NewReportConsumeHandler(cfg.Kafka.Topic, history, m)
}

// ProvideCouncilService assembles the orchestrator.
func ProvideCouncilService(
	runner *usecase.ExpertRunner,
	specs []models.ExpertSpec,
	synthesizer *usecase.Synthesizer,
	history *usecase.HistoryService,
	publisher repository.ReportPublisher,
	cfg *config.Config,
	l *logger.Logger,
	m repository.Metrics,
) (*usecase.CouncilService, error) {
	opts := []usecase.CouncilOption{usecase.WithHistory(history)}
	if synthesizer != nil {
		opts = append(opts, usecase.WithSynthesizer(synthesizer))
	}
	if publisher != nil {
		opts = append(opts, usecase.WithPublisher(publisher))
	}
	return usecase.NewCouncilService(runner, specs, cfg.Council.QuorumThreshold, cfg.Council.RunTimeout, l, m, opts...)
}

// ProvideQuoteService creates the quote lookup usecase.
func ProvideQuoteService(quoteCache cache.Service, cfg *config.Config, l *logger.Logger, m repository.Metrics) *usecase.QuoteService {
	source := finnhub.NewQuoteClient(cfg.Finnhub.APIKey)
	return usecase.NewQuoteService(source, quoteCache, cfg.Cache.QuoteTTL, l, m)
}

// ProvideQuoteCollector creates the realtime collector when symbols
// are configured.
func ProvideQuoteCollector(quotes *usecase.QuoteService, cfg *config.Config, m repository.Metrics) *usecase.QuoteCollector {
	if len(cfg.Finnhub.Symbols) == 0 || cfg.Finnhub.APIKey == "" {
		return nil
	}
	stream := finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Finnhub.Symbols,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
	)
	pipe := mid.NewQuotePipeline(quotes, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewQuoteCollector(stream, quotes, m, pipe)
}

// ProvideCouncilHandler creates the HTTP handler.
func ProvideCouncilHandler(l *logger.Logger, council *usecase.CouncilService, history *usecase.HistoryService, quotes *usecase.QuoteService) *api.CouncilEchoHandler {
	return api.NewCouncilEchoHandler(l, council, history, quotes)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	handler *api.CouncilEchoHandler,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.ReportConsumeHandler,
	chClient *pkgch.Client,
	publisher repository.ReportPublisher,
	q *pkgqueue.RedisQueue,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.HookFuncs{
			Before: func(ctx context.Context, _ string, km kafkago.Message, data []byte) (context.Context, kafkago.Message, []byte, error) {
				return pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km)), km, data, nil
			},
			Err: func(_ context.Context, topic string, _ kafkago.Message, _ []byte, err error) {
				l.Warn("report consume error",
					logger.String("topic", topic),
					logger.Error(err))
			},
		})
	}
	app := server.New(cfg, l, handler)
	if collector != nil {
		app.SetCollector(collector)
	}
	if consumer != nil {
		app.SetConsumer(consumer, kh)
	}
	if chClient != nil {
		app.SetCHClient(chClient)
	}
	if publisher != nil {
		app.SetPublisher(publisher)
	}
	if q != nil {
		app.SetQueue(q)
	}
	return app
}
