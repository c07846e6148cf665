package auth

import (
	"context"
	"fmt"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
)

// Типы входа, которые можно указать явно
const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
)

// Credentials учетные данные команды
type Credentials struct {
	// GrantType password или client_credentials; пустое значение выбирает тип по заполненным полям
	GrantType    string
	ClientID     string
	Username     string
	Password     string
	ClientSecret string
	// Token готовый токен доступа; если задан, вход не выполняется
	Token string
}

// Authenticate получает токен: готовый токен, вход по паролю или по секрету клиента
func Authenticate(ctx context.Context, port interfaces.AuthPort, creds Credentials) (*interfaces.AccessToken, error) {
	if creds.Token != "" {
		return &interfaces.AccessToken{AccessToken: creds.Token}, nil
	}
	if creds.ClientID == "" {
		return nil, ErrMissingClientID
	}
	switch creds.GrantType {
	case "":
	case GrantPassword:
		if creds.Username == "" || creds.Password == "" {
			return nil, ErrMissingPassword
		}
		return port.PasswordLogin(ctx, creds.ClientID, creds.Username, creds.Password)
	case GrantClientCredentials:
		if creds.ClientSecret == "" {
			return nil, ErrMissingClientSecret
		}
		return port.ClientCredentialsLogin(ctx, creds.ClientID, creds.ClientSecret)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGrantType, creds.GrantType)
	}
	switch {
	case creds.Username != "" && creds.Password != "":
		return port.PasswordLogin(ctx, creds.ClientID, creds.Username, creds.Password)
	case creds.ClientSecret != "":
		return port.ClientCredentialsLogin(ctx, creds.ClientID, creds.ClientSecret)
	default:
		return nil, ErrMissingCredentials
	}
}

// RenewFunc выдает новый токен взамен текущего
type RenewFunc func(ctx context.Context, current *interfaces.AccessToken) (*interfaces.AccessToken, error)

// RenewWith обновляет токен по refresh-токену, а без него повторяет вход
func RenewWith(port interfaces.AuthPort, creds Credentials) RenewFunc {
	return func(ctx context.Context, current *interfaces.AccessToken) (*interfaces.AccessToken, error) {
		if current != nil && current.RefreshToken != "" && creds.ClientID != "" {
			return port.Refresh(ctx, creds.ClientID, current.RefreshToken)
		}
		if creds.Token != "" {
			return nil, ErrCannotRenew
		}
		return Authenticate(ctx, port, creds)
	}
}
