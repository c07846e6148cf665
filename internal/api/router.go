package api

import (
	"net/http"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/api/handlers"
	"github.com/athebyme/gomarket-seeder/internal/api/middleware"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig зависимости и настройки маршрутизатора
type RouterConfig struct {
	Validator handlers.DocumentValidator
	Observer  handlers.ValidationObserver
	// Metrics обработчик /metrics; nil отключает маршрут
	Metrics http.Handler
	// Auth промежуточное ПО для /api/v1; nil оставляет API открытым
	Auth      func(http.Handler) http.Handler
	BodyLimit int
	Timeout   time.Duration
	Logger    interfaces.LoggerPort
}

// SetupRouter настраивает маршрутизатор
func SetupRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RunID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))

	r.Method(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
	r.Method(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}
		r.Use(middleware.Timeout(timeout))

		h := handlers.NewValidateHandler(cfg.Validator, cfg.Observer, cfg.Logger)
		r.With(middleware.BodyLimit(cfg.BodyLimit)).Post("/validate", h.Validate)
		r.Get("/resources", h.Resources)
	})

	return r
}
