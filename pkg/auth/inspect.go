package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	// ErrEnvironmentMismatch токен выдан для другого окружения платформы
	ErrEnvironmentMismatch = errors.New("token was issued for another environment")
)

// Claims поля токена платформы, нужные командам
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"cid"`
	Username string `json:"usr"`
}

// Inspector разбирает токены без проверки подписи.
// Подпись проверяет сама платформа при первом запросе.
type Inspector struct {
	claimsCache *cache.Cache
	now         func() time.Time
}

func NewInspector() *Inspector {
	return &Inspector{
		claimsCache: cache.New(5*time.Minute, 10*time.Minute),
		now:         time.Now,
	}
}

// Inspect возвращает claims токена; истекший токен считается ошибкой
func (i *Inspector) Inspect(raw string) (*Claims, error) {
	if cached, found := i.claimsCache.Get(raw); found {
		claims := cached.(*Claims)
		if err := i.checkExpiry(claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := i.checkExpiry(claims); err != nil {
		return nil, err
	}

	ttl := cache.DefaultExpiration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(i.now())
	}
	i.claimsCache.Set(raw, claims, ttl)
	return claims, nil
}

func (i *Inspector) checkExpiry(claims *Claims) error {
	if claims.ExpiresAt != nil && !i.now().Before(claims.ExpiresAt.Time) {
		return fmt.Errorf("%w at %s", ErrExpiredToken, claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	return nil
}

// CheckEnvironment сверяет aud токена с адресом API выбранного окружения.
// Токен без aud принимается.
func CheckEnvironment(claims *Claims, apiURL string) error {
	if len(claims.Audience) == 0 {
		return nil
	}
	want := normalizeURL(apiURL)
	for _, aud := range claims.Audience {
		if normalizeURL(aud) == want {
			return nil
		}
	}
	return fmt.Errorf("%w: audience %s, environment %s", ErrEnvironmentMismatch, strings.Join(claims.Audience, ","), apiURL)
}

func normalizeURL(u string) string {
	return strings.ToLower(strings.TrimRight(u, "/"))
}
