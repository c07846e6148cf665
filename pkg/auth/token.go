package auth

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
)

// DefaultRefreshInterval период обновления токена во время длинных команд
const DefaultRefreshInterval = 10 * time.Minute

// TokenHolder текущий токен доступа, общий для всех запросов
type TokenHolder struct {
	mu    sync.RWMutex
	token *interfaces.AccessToken
}

func NewTokenHolder(token *interfaces.AccessToken) *TokenHolder {
	return &TokenHolder{token: token}
}

// AccessToken строка токена для заголовка Authorization
func (h *TokenHolder) AccessToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.token == nil {
		return ""
	}
	return h.token.AccessToken
}

// Current копия текущего токена
func (h *TokenHolder) Current() *interfaces.AccessToken {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.token == nil {
		return nil
	}
	t := *h.token
	return &t
}

func (h *TokenHolder) Set(token *interfaces.AccessToken) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

// Refresher периодически обновляет токен в TokenHolder
type Refresher struct {
	holder   *TokenHolder
	renew    RenewFunc
	interval time.Duration
	logger   interfaces.LoggerPort

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewRefresher(holder *TokenHolder, renew RenewFunc, interval time.Duration, logger interfaces.LoggerPort) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		holder:   holder,
		renew:    renew,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает обновление в фоне до Stop или отмены ctx
func (r *Refresher) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				if err := r.RefreshNow(ctx); err != nil {
					r.logger.Warn("Не удалось обновить токен доступа",
						interfaces.LogField{Key: "error", Value: err.Error()})
				}
			}
		}
	}()
}

// RefreshNow обновляет токен сразу
func (r *Refresher) RefreshNow(ctx context.Context) error {
	token, err := r.renew(ctx, r.holder.Current())
	if err != nil {
		return err
	}
	r.holder.Set(token)
	r.logger.Debug("Токен доступа обновлен",
		interfaces.LogField{Key: "expires_at", Value: token.ExpiresAt})
	return nil
}

// Stop останавливает обновление и ждет завершения горутины
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.started.Load() {
		<-r.done
	}
}

// BearerTransport добавляет токен из TokenHolder в каждый запрос
type BearerTransport struct {
	Base   http.RoundTripper
	Tokens interface{ AccessToken() string }
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	token := t.Tokens.AccessToken()
	if token == "" {
		return base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(clone)
}
