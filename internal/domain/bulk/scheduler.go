package bulk

import (
	"context"
	"errors"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/domain/remote"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxConcurrent максимум одновременно выполняемых заданий
	DefaultMaxConcurrent = 8
	// DefaultMinTime минимальный интервал между стартами заданий
	DefaultMinTime = 100 * time.Millisecond
)

// DefaultRetrySchedule паузы перед повторами; индекс соответствует номеру повтора
var DefaultRetrySchedule = []time.Duration{1000 * time.Millisecond, 3000 * time.Millisecond, 7000 * time.Millisecond}

// SchedulerConfig настройки планировщика
type SchedulerConfig struct {
	MaxConcurrent int
	MinTime       time.Duration
	RetrySchedule []time.Duration
}

// DefaultSchedulerConfig настройки по умолчанию
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrent: DefaultMaxConcurrent,
		MinTime:       DefaultMinTime,
		RetrySchedule: append([]time.Duration(nil), DefaultRetrySchedule...),
	}
}

// SleepFunc ожидание с учетом отмены контекста
type SleepFunc func(ctx context.Context, d time.Duration) error

// Scheduler ограничивает число одновременных заданий, выдерживает интервал между
// их стартами и повторяет упавшие задания по расписанию
type Scheduler struct {
	sem           *semaphore.Weighted
	limiter       *rate.Limiter
	maxConcurrent int
	retrySchedule []time.Duration
	observer      Observer
	logger        interfaces.LoggerPort
	sleep         SleepFunc
	now           func() time.Time
}

// Option настройка планировщика
type Option func(*Scheduler)

// WithObserver подписывает наблюдателя на события заданий
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithLogger задает логгер
func WithLogger(l interfaces.LoggerPort) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithSleep подменяет ожидание перед повтором
func WithSleep(fn SleepFunc) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

// NewScheduler создает планировщик
func NewScheduler(cfg SchedulerConfig, opts ...Option) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	limit := rate.Inf
	if cfg.MinTime > 0 {
		limit = rate.Every(cfg.MinTime)
	}
	s := &Scheduler{
		sem:           semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter:       rate.NewLimiter(limit, 1),
		maxConcurrent: cfg.MaxConcurrent,
		retrySchedule: cfg.RetrySchedule,
		sleep:         sleepContext,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxConcurrent максимум одновременных заданий
func (s *Scheduler) MaxConcurrent() int { return s.maxConcurrent }

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) emit(ev Event) {
	if s.observer == nil {
		return
	}
	ev.At = s.now()
	s.observer.OnJobEvent(ev)
}

func (s *Scheduler) acquire(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		s.sem.Release(1)
		return err
	}
	return nil
}

// Schedule выполняет задание через планировщик. Упавшее задание повторяется после паузы
// из расписания; когда расписание исчерпано, возвращается *FatalJobError.
func Schedule[T any](ctx context.Context, s *Scheduler, job JobMeta, fn func(ctx context.Context) (T, error)) (T, error) {
	return schedule(ctx, s, job, fn, nil)
}

// schedule как Schedule; settle уточняет метаданные по результату до события завершения
func schedule[T any](ctx context.Context, s *Scheduler, job JobMeta, fn func(ctx context.Context) (T, error), settle func(T) JobMeta) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := s.acquire(ctx); err != nil {
			return zero, err
		}
		s.emit(Event{Type: EventStarted, Job: job, Attempt: attempt})
		start := s.now()
		result, err := fn(ctx)
		s.sem.Release(1)
		elapsed := s.now().Sub(start)

		if err == nil {
			if settle != nil {
				job = settle(result)
			}
			s.emit(Event{Type: EventCompleted, Job: job, Attempt: attempt, Duration: elapsed})
			return result, nil
		}
		// отмена из-за фатальной ошибки соседнего задания не повторяется
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		if attempt < len(s.retrySchedule) {
			wait := s.retrySchedule[attempt]
			s.emit(Event{Type: EventRetrying, Job: job, Attempt: attempt, Delay: wait, Duration: elapsed, Err: err})
			if s.logger != nil {
				s.logger.Warn("Задание завершилось ошибкой, будет повторено",
					interfaces.LogField{Key: "job", Value: job.String()},
					interfaces.LogField{Key: "failures", Value: attempt + 1},
					interfaces.LogField{Key: "retry_after_ms", Value: wait.Milliseconds()},
					interfaces.LogField{Key: "error", Value: err.Error()},
				)
			}
			if err := s.sleep(ctx, wait); err != nil {
				return zero, err
			}
			continue
		}

		s.emit(Event{Type: EventFailed, Job: job, Attempt: attempt, Duration: elapsed, Err: err})
		s.reportFatal(job, err)
		return zero, &FatalJobError{Job: job, Attempts: attempt + 1, Err: err}
	}
}

// reportFatal пишет в журнал контекст запроса, на котором остановилась команда
func (s *Scheduler) reportFatal(job JobMeta, err error) {
	if s.logger == nil {
		return
	}
	fields := []interface{}{
		interfaces.LogField{Key: "job", Value: job.String()},
		interfaces.LogField{Key: "error", Value: err.Error()},
	}
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields,
			interfaces.LogField{Key: "request_method", Value: apiErr.Method},
			interfaces.LogField{Key: "request_url", Value: apiErr.URL},
			interfaces.LogField{Key: "request_data", Value: apiErr.RequestBody},
			interfaces.LogField{Key: "response_status", Value: apiErr.Status},
		)
		if first := apiErr.FirstError(); first != nil {
			fields = append(fields, interfaces.LogField{Key: "response_error", Value: *first})
		}
	}
	s.logger.Error("Неожиданная ошибка платформы, повторы исчерпаны", fields...)
}
