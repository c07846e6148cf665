package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/athebyme/gomarket-seeder/config"
	"github.com/athebyme/gomarket-seeder/internal/adapters/cache"
	"github.com/athebyme/gomarket-seeder/internal/adapters/messaging"
	"github.com/athebyme/gomarket-seeder/internal/adapters/ordercloud"
	"github.com/athebyme/gomarket-seeder/internal/adapters/storage"
	"github.com/athebyme/gomarket-seeder/internal/domain/bulk"
	"github.com/athebyme/gomarket-seeder/internal/domain/remote"
	"github.com/athebyme/gomarket-seeder/internal/domain/services"
	"github.com/athebyme/gomarket-seeder/internal/metrics"
	"github.com/athebyme/gomarket-seeder/pkg/auth"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app зависимости одного запуска команды
type app struct {
	cfg   *config.Config
	env   config.Environment
	log   interfaces.LoggerPort
	runID string

	registry  *prometheus.Registry
	collector *metrics.Collector

	// httpClient без токена: схема платформы и документы по URL
	httpClient *http.Client
	schema     *ordercloud.SchemaSource

	// snapshots и events равны nil, если хранилище или Kafka выключены
	snapshots interfaces.SnapshotPort
	events    interfaces.MessagingPort

	closers []func() error
}

// newApp проверяет окружение и подключает включенные в настройках адаптеры
func newApp(ctx context.Context, cfg *config.Config, log interfaces.LoggerPort) (*app, error) {
	env, err := cfg.ResolveEnvironment()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	a := &app{
		cfg:        cfg,
		env:        env,
		log:        log.WithRunID(runID),
		runID:      runID,
		registry:   prometheus.NewRegistry(),
		httpClient: &http.Client{Timeout: cfg.Remote.Timeout},
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.collector = metrics.NewCollector(a.registry)

	schemaURL := cfg.Schema.URL
	if schemaURL == "" {
		schemaURL = ordercloud.SchemaURL(env.APIURL)
	}
	a.schema = ordercloud.NewSchemaSource(schemaURL, a.httpClient, a.schemaCache(ctx), cfg.Schema.CacheTTL, a.log)

	if cfg.Postgres.Enabled {
		store, err := storage.NewSnapshotStorage(ctx, cfg.PostgresDSN(), a.log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.snapshots = store
		a.log.Info("Хранилище снимков подключено")
	}

	if cfg.Kafka.Enabled {
		producer, err := messaging.NewKafkaMessaging(messaging.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
		}, a.log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, producer.Close)
		a.events = producer
		a.log.Info("Отправка событий заданий в Kafka включена",
			interfaces.LogField{Key: "topic", Value: cfg.Kafka.Topic})
	}

	return a, nil
}

// schemaCache кэш схемы в памяти; с Redis кэш становится общим между запусками.
// Недоступный Redis не мешает команде.
func (a *app) schemaCache(ctx context.Context) interfaces.CachePort {
	memory := cache.NewMemoryCache(a.cfg.Schema.CacheTTL, 10*time.Minute)
	a.closers = append(a.closers, memory.Close)
	if !a.cfg.Redis.Enabled {
		return memory
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	shared, err := cache.NewRedisCache(pingCtx, cache.RedisConfig{
		Host:      a.cfg.Redis.Host,
		Port:      a.cfg.Redis.Port,
		Password:  a.cfg.Redis.Password,
		DB:        a.cfg.Redis.DB,
		KeyPrefix: a.cfg.Redis.KeyPrefix,
	})
	if err != nil {
		a.log.Warn("Redis недоступен, схема кэшируется только в памяти",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return memory
	}
	a.closers = append(a.closers, shared.Close)
	return cache.NewLayeredCache(memory, shared, a.cfg.Schema.CacheTTL)
}

// Close закрывает адаптеры в обратном порядке
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// context помечает контекст идентификатором запуска и окружением
func (a *app) context(ctx context.Context) context.Context {
	ctx = interfaces.ContextWithRunID(ctx, a.runID)
	return services.ContextWithEnvironment(ctx, a.env.Name)
}

func (a *app) validateService() *services.ValidateService {
	s := services.NewValidateService(a.schema, a.httpClient, a.log)
	if a.snapshots != nil {
		s.WithSnapshots(a.snapshots)
	}
	return s
}

// observers наблюдатели заданий: прогресс в лог, метрики и, если включено, Kafka
func (a *app) observers() bulk.Observers {
	observers := bulk.Observers{
		bulk.NewLoggingProgressReporter(a.log),
		a.collector,
	}
	if a.events != nil {
		publisher := messaging.NewJobEventPublisher(a.events, a.cfg.Kafka.Topic, a.runID, a.log)
		if a.cfg.Kafka.StartedEvents {
			publisher.WithStartedEvents()
		}
		observers = append(observers, publisher)
	}
	return observers
}

func (a *app) engine(client remote.Client) *bulk.Engine {
	cfg := bulk.DefaultSchedulerConfig()
	if a.cfg.Bulk.MaxConcurrent > 0 {
		cfg.MaxConcurrent = a.cfg.Bulk.MaxConcurrent
	}
	cfg.MinTime = a.cfg.Bulk.MinTime
	if len(a.cfg.Bulk.RetrySchedule) > 0 {
		cfg.RetrySchedule = a.cfg.Bulk.RetrySchedule
	}
	scheduler := bulk.NewScheduler(cfg, bulk.WithObserver(a.observers()), bulk.WithLogger(a.log))
	return bulk.NewEngine(client, scheduler).WithPageSize(a.cfg.Remote.PageSize)
}

// session вход на платформу на время одной команды
type session struct {
	tokens    *auth.TokenHolder
	refresher *auth.Refresher
	client    *ordercloud.Client
}

func (s *session) Close() {
	s.refresher.Stop()
}

// login получает токен и запускает его периодическое обновление.
// Готовый токен проверяется на соответствие окружению до первого запроса к платформе.
func (a *app) login(ctx context.Context) (*session, error) {
	creds := auth.Credentials{
		GrantType:    a.cfg.Auth.GrantType,
		ClientID:     a.cfg.Auth.ClientID,
		Username:     a.cfg.Auth.Username,
		Password:     a.cfg.Auth.Password,
		ClientSecret: a.cfg.Auth.ClientSecret,
		Token:        a.cfg.Auth.Token,
	}
	if creds.Token != "" {
		claims, err := auth.NewInspector().Inspect(creds.Token)
		if err != nil {
			return nil, err
		}
		if err := auth.CheckEnvironment(claims, a.env.APIURL); err != nil {
			return nil, err
		}
	}

	port := auth.NewOAuthClient(auth.Config{
		AuthURL:    a.env.AuthURL,
		Scopes:     a.cfg.Auth.Scope,
		HTTPClient: a.httpClient,
	})
	token, err := auth.Authenticate(ctx, port, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	a.log.InfoWithContext(ctx, "Вход на платформу выполнен",
		interfaces.LogField{Key: "environment", Value: a.env.Name})

	holder := auth.NewTokenHolder(token)
	refresher := auth.NewRefresher(holder, auth.RenewWith(port, creds), a.cfg.Auth.RefreshInterval, a.log)
	if creds.Token == "" {
		refresher.Start(ctx)
	}

	client := ordercloud.NewClient(a.env.APIURL, &http.Client{
		Timeout:   a.cfg.Remote.Timeout,
		Transport: &auth.BearerTransport{Base: http.DefaultTransport, Tokens: holder},
	}, a.log)
	return &session{tokens: holder, refresher: refresher, client: client}, nil
}

// startMetricsServer отдает метрики во время длинных команд; возвращает функцию остановки
func (a *app) startMetricsServer() func() {
	if !a.cfg.Metrics.Enabled {
		return func() {}
	}
	r := chi.NewRouter()
	r.Method(http.MethodGet, a.cfg.Metrics.Endpoint, metrics.Handler(a.registry))
	server := &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("Метрики доступны", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Ошибка сервера метрик", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
