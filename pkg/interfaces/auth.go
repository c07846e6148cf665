package interfaces

import (
	"context"
	"time"
)

// AccessToken результат входа в API маркетплейса
type AccessToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthPort определяет интерфейс для получения токенов доступа
type AuthPort interface {
	// PasswordLogin выполняет вход по логину и паролю
	PasswordLogin(ctx context.Context, clientID, username, password string) (*AccessToken, error)

	// ClientCredentialsLogin выполняет вход по идентификатору и секрету клиента
	ClientCredentialsLogin(ctx context.Context, clientID, clientSecret string) (*AccessToken, error)

	// Refresh обменивает refresh-токен на новую пару токенов
	Refresh(ctx context.Context, clientID, refreshToken string) (*AccessToken, error)
}
