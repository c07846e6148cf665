package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	// ErrInvalidCredentials сервер авторизации отклонил учетные данные или не ответил
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingClientID не указан идентификатор клиента
	ErrMissingClientID = errors.New("missing required argument: clientID")
	// ErrMissingCredentials не указаны ни логин с паролем, ни секрет клиента
	ErrMissingCredentials = errors.New("missing credentials: provide username and password or clientSecret")
	// ErrMissingPassword для входа по паролю нужны логин и пароль
	ErrMissingPassword = errors.New("missing required arguments: username and password")
	// ErrMissingClientSecret для client_credentials нужен секрет клиента
	ErrMissingClientSecret = errors.New("missing required argument: clientSecret")
	// ErrUnsupportedGrantType неизвестный тип входа
	ErrUnsupportedGrantType = errors.New("unsupported grant type")
	// ErrCannotRenew токен нельзя обновить: нет refresh-токена и учетных данных
	ErrCannotRenew = errors.New("token cannot be renewed")
)

// TokenPath путь выдачи токенов относительно адреса сервера авторизации
const TokenPath = "/oauth/token"

// Config конфигурация клиента авторизации
type Config struct {
	// AuthURL адрес сервера авторизации, например https://sandboxapi.ordercloud.io
	AuthURL    string
	Scopes     []string
	HTTPClient *http.Client
}

// OAuthClient получает токены платформы по OAuth2
type OAuthClient struct {
	tokenURL   string
	scopes     []string
	httpClient *http.Client
}

var _ interfaces.AuthPort = (*OAuthClient)(nil)

// NewOAuthClient создает клиент авторизации
func NewOAuthClient(cfg Config) *OAuthClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuthClient{
		tokenURL:   strings.TrimRight(cfg.AuthURL, "/") + TokenPath,
		scopes:     cfg.Scopes,
		httpClient: httpClient,
	}
}

func (c *OAuthClient) oauth2Config(clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   c.scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *OAuthClient) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// PasswordLogin вход по логину и паролю пользователя
func (c *OAuthClient) PasswordLogin(ctx context.Context, clientID, username, password string) (*interfaces.AccessToken, error) {
	token, err := c.oauth2Config(clientID).PasswordCredentialsToken(c.withHTTPClient(ctx), username, password)
	if err != nil {
		return nil, wrapTokenError("password login", err)
	}
	return toAccessToken(token), nil
}

// ClientCredentialsLogin вход по идентификатору и секрету клиента
func (c *OAuthClient) ClientCredentialsLogin(ctx context.Context, clientID, clientSecret string) (*interfaces.AccessToken, error) {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     c.tokenURL,
		Scopes:       c.scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	token, err := cfg.Token(c.withHTTPClient(ctx))
	if err != nil {
		return nil, wrapTokenError("client credentials login", err)
	}
	return toAccessToken(token), nil
}

// Refresh обменивает refresh-токен на новую пару токенов
func (c *OAuthClient) Refresh(ctx context.Context, clientID, refreshToken string) (*interfaces.AccessToken, error) {
	src := c.oauth2Config(clientID).TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, wrapTokenError("refresh", err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return toAccessToken(token), nil
}

func toAccessToken(t *oauth2.Token) *interfaces.AccessToken {
	return &interfaces.AccessToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.Expiry,
	}
}

// wrapTokenError любой отказ сервера авторизации считается неверными учетными данными; причина сохраняется
func wrapTokenError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInvalidCredentials, err)
}
