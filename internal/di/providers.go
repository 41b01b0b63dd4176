package di

import (
	"context"
	"fmt"
	"time"

	"AlphaChart/internal/barstore"
	"AlphaChart/internal/domain/models"
	"AlphaChart/internal/domain/repository"
	"AlphaChart/internal/handler/api"
	"AlphaChart/internal/markethours"
	internalrepo "AlphaChart/internal/repository"
	svcmetrics "AlphaChart/internal/service/metrics"
	"AlphaChart/internal/usecase"
	pkgcache "AlphaChart/pkg/cache"
	pkgch "AlphaChart/pkg/clickhouse"
	"AlphaChart/pkg/config"
	xhttp "AlphaChart/pkg/http"
	pkgkafka "AlphaChart/pkg/kafka"
	applogger "AlphaChart/pkg/logger"
	"AlphaChart/pkg/metrics"
	"AlphaChart/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
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

// ProvideLogger creates the root logger. Error lines are aggregated and
// shipped to Kafka when a producer is available.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	logCfg := cfg.Log
	if logCfg.Service == "" {
		logCfg.Service = "alphachart"
	}
	l, err := applogger.New(&logCfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			Topic:     cfg.Kafka.LogTopic,
			Publisher: producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRefreshPublisher returns nil when Kafka is off.
func ProvideRefreshPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.RefreshPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaRefreshPublisher(producer, cfg.Kafka.RefreshTopic)
}

// ProvidePayloadCache creates the raw payload cache: in-process, with Redis
// behind it when enabled.
func ProvidePayloadCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(512)), nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, 2, 5*time.Second),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc,
		pkgcache.WithLayeredMemorySize(512),
		pkgcache.WithLayeredMemoryTTL(cfg.Redis.MemoryTTL),
	), nil
}

// ProvideClickHouseClient connects to ClickHouse when it backs bars.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != config.BackendClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if cfg.ClickHouse.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, internalrepo.BarSchema(client.Database())); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return client, nil
}

// ProvideChartAPIClient creates the HTTP client for the chart backend.
func ProvideChartAPIClient(cfg *config.Config) *xhttp.Client {
	if cfg.ChartAPI.BaseURL == "" {
		return nil
	}
	return xhttp.NewClient(
		xhttp.WithBaseURL(cfg.ChartAPI.BaseURL),
		xhttp.WithTimeout(cfg.ChartAPI.Timeout),
	)
}

// ProvideBarSource selects the bar backend.
func ProvideBarSource(
	cfg *config.Config,
	l *applogger.Logger,
	client *xhttp.Client,
	payloads pkgcache.Service,
	ch *pkgch.Client,
) (repository.BarSource, error) {
	switch cfg.Backend.Type {
	case config.BackendClickHouse:
		src := internalrepo.NewCHBarSource(ch)
		src.SetLogger(l.Component("clickhouse_bars"))
		src.SetLimit(models.Intraday, cfg.ChartAPI.IntradayLimit)
		src.SetLimit(models.EndOfDay, cfg.ChartAPI.EODLimit)
		return src, nil
	case config.BackendREST:
		loc, err := time.LoadLocation(cfg.ChartAPI.Location)
		if err != nil {
			return nil, fmt.Errorf("chart api location: %w", err)
		}
		intradayTTL := cfg.ChartAPI.IntradayTTL
		if intradayTTL > cfg.Refresh.Interval {
			intradayTTL = cfg.Refresh.Interval
		}
		src := internalrepo.NewChartAPI(client,
			internalrepo.WithPayloadCache(payloads),
			internalrepo.WithLimit(models.Intraday, cfg.ChartAPI.IntradayLimit),
			internalrepo.WithLimit(models.EndOfDay, cfg.ChartAPI.EODLimit),
			internalrepo.WithPayloadTTL(models.Intraday, intradayTTL),
			internalrepo.WithPayloadTTL(models.EndOfDay, cfg.ChartAPI.EODTTL),
			internalrepo.WithLocation(loc),
		)
		src.SetLogger(l.Component("chart_api"))
		return src, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend.Type)
	}
}

// ProvideMarketCalendar loads the exchange calendar.
func ProvideMarketCalendar(cfg *config.Config) *markethours.Calendar {
	return markethours.New(cfg.Refresh.MarketMIC)
}

// ProvideMarketStatus creates the market status source.
func ProvideMarketStatus(
	cfg *config.Config,
	l *applogger.Logger,
	client *xhttp.Client,
	cal *markethours.Calendar,
) repository.MarketStatusSource {
	return internalrepo.NewMarketStatusAPI(client, cal,
		internalrepo.WithStatusTTL(cfg.ChartAPI.StatusTTL),
		internalrepo.WithStatusLogger(l.Component("market_status")),
	)
}

// ProvideSessionRegistry builds chart sessions, each with its own bar store
// over the shared source.
func ProvideSessionRegistry(
	cfg *config.Config,
	l *applogger.Logger,
	m repository.Metrics,
	source repository.BarSource,
	publisher repository.RefreshPublisher,
) (*usecase.SessionRegistry, error) {
	svcmetrics.Register()
	loc, err := time.LoadLocation(cfg.ChartAPI.Location)
	if err != nil {
		return nil, fmt.Errorf("session location: %w", err)
	}
	sessionLog := l.Component("session")
	factory := func(id string, marketOpen bool) *usecase.Session {
		opts := []barstore.Option{
			barstore.WithLogger(sessionLog),
			barstore.WithMetrics(m),
			barstore.WithTimeout(cfg.Refresh.FetchTimeout),
		}
		if publisher != nil {
			opts = append(opts, barstore.WithPublisher(publisher))
		}
		return usecase.NewSession(id, barstore.New(source, opts...),
			usecase.WithRefreshInterval(cfg.Refresh.Interval),
			usecase.WithSessionLogger(sessionLog),
			usecase.WithSessionMetrics(m),
			usecase.WithSessionLocation(loc),
			usecase.WithMarketOpen(marketOpen),
		)
	}
	return usecase.NewSessionRegistry(cfg.Refresh.MaxSessions, factory,
		usecase.WithRegistryLogger(l.Component("registry")),
		usecase.WithSizeHook(func(n int) { svcmetrics.ActiveSessions.Set(float64(n)) }),
	), nil
}

// ProvideSeriesHandler creates the series HTTP handler.
func ProvideSeriesHandler(
	l *applogger.Logger,
	sessions *usecase.SessionRegistry,
	status repository.MarketStatusSource,
) *api.SeriesEchoHandler {
	return api.NewSeriesEchoHandler(l, sessions, status)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.SeriesEchoHandler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.SlowThreshold),
		xhttp.WithLogger(l.Component("http")),
	}
	return xhttp.NewServer([]xhttp.Handler{h}, opts...)
}

// ProvideApp creates the application and registers what it must close.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	sessions *usecase.SessionRegistry,
	status repository.MarketStatusSource,
	httpServer *xhttp.Server,
	producer *pkgkafka.Producer,
	publisher repository.RefreshPublisher,
	payloads pkgcache.Service,
	ch *pkgch.Client,
) *server.App {
	app := server.New(cfg, l, sessions, status, httpServer)
	// Closers run in reverse. The producer goes last so the logger can flush
	// aggregated errors through it. The refresh publisher owns the producer
	// when both exist.
	if publisher != nil {
		app.AddCloser("refresh_publisher", publisher)
	} else if producer != nil {
		app.AddCloser("kafka_producer", producer)
	}
	app.AddCloser("logger", l)
	if ch != nil {
		app.AddCloser("clickhouse", ch)
	}
	app.AddCloser("payload_cache", payloads)
	return app
}
