package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athebyme/gomarket-seeder/config"
	"github.com/athebyme/gomarket-seeder/internal/adapters/logger"
	"github.com/athebyme/gomarket-seeder/internal/api"
	"github.com/athebyme/gomarket-seeder/internal/domain/services"
	"github.com/athebyme/gomarket-seeder/internal/metrics"
	"github.com/athebyme/gomarket-seeder/pkg/auth"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
)

// run выполняет команду и возвращает код завершения
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	inv, err := parseArgs(args, stderr)
	switch {
	case errors.Is(err, errHelp):
		printUsage(stdout)
		return exitOK
	case err != nil:
		fmt.Fprintf(stderr, "Ошибка: %v\n\n", err)
		printUsage(stderr)
		return exitUsage
	}

	cfg, err := config.Load(inv.configPath, inv.flags)
	if err != nil {
		fmt.Fprintf(stderr, "Ошибка загрузки конфигурации: %v\n", err)
		return exitFailure
	}

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Fprintf(stderr, "Ошибка инициализации логгера: %v\n", err)
		return exitFailure
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error(err.Error())
		return exitFailure
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Warn("Ошибка при закрытии зависимостей", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()
	a.log.Debug("Запуск команды",
		interfaces.LogField{Key: "command", Value: inv.command},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "environment", Value: a.env.Name},
	)

	if inv.command == "serve" {
		err = a.serve(ctx)
	} else {
		err = a.runCommand(ctx, inv, stdout)
	}
	a.collector.ObserveRun(inv.command, err)
	if err != nil {
		// ошибки проверки уже выведены построчно
		if n := len(validationErrors(err)); n > 0 {
			a.log.Error(fmt.Sprintf("Validation failed: %d error(s)", n))
		} else {
			a.log.Error(err.Error())
		}
		return exitFailure
	}
	return exitOK
}

func validationErrors(err error) []string {
	var vf *services.ValidationFailedError
	if errors.As(err, &vf) {
		return vf.Errors
	}
	return nil
}

// runCommand выполняет download, validate или seed; SIGINT и SIGTERM отменяют команду
func (a *app) runCommand(ctx context.Context, inv *invocation, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = a.context(ctx)

	stopMetrics := a.startMetricsServer()
	defer stopMetrics()

	switch inv.command {
	case "download":
		return a.download(ctx, inv.source)
	case "validate":
		return a.validate(ctx, inv.source)
	case "seed":
		return a.seed(ctx, inv.source, stdout)
	default:
		return fmt.Errorf("unknown command %q", inv.command)
	}
}

// download выгружает маркетплейс окружения в файл
func (a *app) download(ctx context.Context, path string) error {
	start := time.Now()

	sess, err := a.login(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	dir, err := a.validateService().Directory(ctx)
	if err != nil {
		return err
	}
	svc := services.NewDownloadService(a.engine(sess.client), dir, a.log)
	if a.snapshots != nil {
		svc.WithSnapshots(a.snapshots)
	}

	doc, err := svc.Download(ctx)
	if err != nil {
		return err
	}
	if err := doc.WriteToFile(path); err != nil {
		return err
	}
	a.log.InfoWithContext(ctx, fmt.Sprintf("Wrote to file %s. Total elapsed time: %s", path, time.Since(start).Round(time.Millisecond)))
	return nil
}

// validate проверяет документ из файла или по URL без входа на платформу
func (a *app) validate(ctx context.Context, source string) error {
	_, errs, err := a.validateService().ValidateSource(ctx, source)
	if err != nil {
		return err
	}
	a.collector.ObserveValidation(len(errs))
	if len(errs) > 0 {
		return &services.ValidationFailedError{Errors: errs}
	}
	a.log.InfoWithContext(ctx, "Validation done!")
	return nil
}

// seed заливает документ на платформу и печатает итог в stdout в формате JSON
func (a *app) seed(ctx context.Context, source string, stdout io.Writer) error {
	if resolved := services.ResolveSource(a.cfg.Seed.Templates, source); resolved != source {
		a.log.InfoWithContext(ctx, fmt.Sprintf("Using template %q: %s", source, resolved))
		source = resolved
	}

	validator := a.validateService()
	doc, err := validator.Load(ctx, source)
	if err != nil {
		return err
	}
	// документ с ошибками не доходит до входа на платформу
	dir, errs, err := validator.Check(ctx, doc)
	if err != nil {
		return err
	}
	a.collector.ObserveValidation(len(errs))
	if len(errs) > 0 {
		return &services.ValidationFailedError{Errors: errs}
	}

	sess, err := a.login(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	svc := services.NewSeedService(validator, a.engine(sess.client), sess.tokens, a.log)
	if a.snapshots != nil {
		svc.WithSnapshots(a.snapshots)
	}
	result, err := svc.Upload(ctx, doc, dir)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// serve запускает HTTP API проверки документов до сигнала завершения
func (a *app) serve(ctx context.Context) error {
	var authMiddleware func(http.Handler) http.Handler
	if a.cfg.Server.RequireToken {
		authMiddleware = auth.RequireToken(auth.NewInspector(), a.env.APIURL, a.log)
	}

	router := api.SetupRouter(api.RouterConfig{
		Validator: a.validateService(),
		Observer:  a.collector,
		Metrics:   metrics.Handler(a.registry),
		Auth:      authMiddleware,
		BodyLimit: a.cfg.Server.BodyLimit,
		Timeout:   a.cfg.Server.WriteTimeout,
		Logger:    a.log,
	})
	a.log.Info("Маршрутизатор настроен")

	server := &http.Server{
		Addr:         a.cfg.ServerAddress(),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return a.context(ctx) },
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-quit:
		a.log.Info("Получен сигнал завершения, выполняется graceful shutdown...")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.log.Info("Сервер корректно завершил работу")
	return nil
}
