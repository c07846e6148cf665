package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/adapters/logger"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"
)

type tokenServer struct {
	mu    sync.Mutex
	forms []url.Values
}

func newTokenServer(t *testing.T) (*httptest.Server, *tokenServer) {
	t.Helper()
	ts := &tokenServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, TokenPath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		ts.mu.Lock()
		ts.forms = append(ts.forms, r.PostForm)
		ts.mu.Unlock()

		if r.PostForm.Get("password") == "wrong" || r.PostForm.Get("client_secret") == "wrong" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid username or password"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-` + r.PostForm.Get("grant_type") + `","refresh_token":"rt-new","token_type":"bearer","expires_in":600}`))
	}))
	t.Cleanup(srv.Close)
	return srv, ts
}

func (ts *tokenServer) last() url.Values {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.forms[len(ts.forms)-1]
}

func TestOAuthClient_Grants(t *testing.T) {
	srv, ts := newTokenServer(t)
	client := NewOAuthClient(Config{AuthURL: srv.URL + "/", Scopes: []string{"FullAccess"}, HTTPClient: srv.Client()})
	ctx := context.Background()

	token, err := client.PasswordLogin(ctx, "cid", "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "at-password", token.AccessToken)
	assert.Equal(t, "rt-new", token.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), token.ExpiresAt, time.Minute)
	form := ts.last()
	assert.Equal(t, "cid", form.Get("client_id"))
	assert.Equal(t, "admin", form.Get("username"))
	assert.Equal(t, "FullAccess", form.Get("scope"))

	token, err = client.ClientCredentialsLogin(ctx, "cid", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "at-client_credentials", token.AccessToken)
	assert.Equal(t, "s3cret", ts.last().Get("client_secret"))

	token, err = client.Refresh(ctx, "cid", "rt-old")
	require.NoError(t, err)
	assert.Equal(t, "at-refresh_token", token.AccessToken)
	assert.Equal(t, "rt-old", ts.last().Get("refresh_token"))
}

func TestOAuthClient_InvalidCredentials(t *testing.T) {
	srv, _ := newTokenServer(t)
	client := NewOAuthClient(Config{AuthURL: srv.URL, HTTPClient: srv.Client()})

	_, err := client.PasswordLogin(context.Background(), "cid", "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = client.ClientCredentialsLogin(context.Background(), "cid", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestOAuthClient_ProviderFailureIsInvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	client := NewOAuthClient(Config{AuthURL: srv.URL, HTTPClient: srv.Client()})

	_, err := client.ClientCredentialsLogin(context.Background(), "cid", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	var retrieveErr *oauth2.RetrieveError
	require.ErrorAs(t, err, &retrieveErr)
	assert.Equal(t, http.StatusServiceUnavailable, retrieveErr.Response.StatusCode)

	down := NewOAuthClient(Config{AuthURL: "http://127.0.0.1:1", HTTPClient: &http.Client{Timeout: time.Second}})
	_, err = down.Refresh(context.Background(), "cid", "rt-old")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

type fakeAuth struct {
	calls []string
}

func (f *fakeAuth) PasswordLogin(_ context.Context, clientID, username, _ string) (*interfaces.AccessToken, error) {
	f.calls = append(f.calls, "password:"+clientID+":"+username)
	return &interfaces.AccessToken{AccessToken: "pw", RefreshToken: "rt"}, nil
}

func (f *fakeAuth) ClientCredentialsLogin(_ context.Context, clientID, _ string) (*interfaces.AccessToken, error) {
	f.calls = append(f.calls, "client:"+clientID)
	return &interfaces.AccessToken{AccessToken: "cc"}, nil
}

func (f *fakeAuth) Refresh(_ context.Context, clientID, refreshToken string) (*interfaces.AccessToken, error) {
	f.calls = append(f.calls, "refresh:"+refreshToken)
	return &interfaces.AccessToken{AccessToken: "refreshed", RefreshToken: refreshToken}, nil
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		creds   Credentials
		want    string
		wantErr error
	}{
		{name: "raw token", creds: Credentials{Token: "raw"}, want: "raw"},
		{name: "password", creds: Credentials{ClientID: "c", Username: "u", Password: "p"}, want: "pw"},
		{name: "client secret", creds: Credentials{ClientID: "c", ClientSecret: "s"}, want: "cc"},
		{name: "no client id", creds: Credentials{Username: "u", Password: "p"}, wantErr: ErrMissingClientID},
		{name: "username without password", creds: Credentials{ClientID: "c", Username: "u"}, wantErr: ErrMissingCredentials},
		{name: "explicit client credentials", creds: Credentials{GrantType: GrantClientCredentials, ClientID: "c", Username: "u", Password: "p", ClientSecret: "s"}, want: "cc"},
		{name: "password grant without password", creds: Credentials{GrantType: GrantPassword, ClientID: "c", ClientSecret: "s"}, wantErr: ErrMissingPassword},
		{name: "client credentials without secret", creds: Credentials{GrantType: GrantClientCredentials, ClientID: "c"}, wantErr: ErrMissingClientSecret},
		{name: "unknown grant", creds: Credentials{GrantType: "implicit", ClientID: "c"}, wantErr: ErrUnsupportedGrantType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Authenticate(ctx, &fakeAuth{}, tt.creds)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token.AccessToken)
		})
	}
}

func TestRenewWith(t *testing.T) {
	ctx := context.Background()
	port := &fakeAuth{}

	renew := RenewWith(port, Credentials{ClientID: "c", ClientSecret: "s"})
	token, err := renew(ctx, &interfaces.AccessToken{AccessToken: "old", RefreshToken: "rt"})
	require.NoError(t, err)
	assert.Equal(t, "refreshed", token.AccessToken)

	token, err = renew(ctx, &interfaces.AccessToken{AccessToken: "old"})
	require.NoError(t, err)
	assert.Equal(t, "cc", token.AccessToken)
	assert.Equal(t, []string{"refresh:rt", "client:c"}, port.calls)

	_, err = RenewWith(port, Credentials{Token: "raw"})(ctx, &interfaces.AccessToken{AccessToken: "raw"})
	assert.ErrorIs(t, err, ErrCannotRenew)
}

func TestRefresher_UpdatesHolder(t *testing.T) {
	holder := NewTokenHolder(&interfaces.AccessToken{AccessToken: "old", RefreshToken: "rt"})
	refresher := NewRefresher(holder, RenewWith(&fakeAuth{}, Credentials{ClientID: "c"}), time.Millisecond, logger.NewNop())

	refresher.Start(context.Background())
	require.Eventually(t, func() bool { return holder.AccessToken() == "refreshed" }, time.Second, time.Millisecond)
	refresher.Stop()
	refresher.Stop()
}

func TestRefresher_FailureKeepsTokenAndWarns(t *testing.T) {
	level := zap.NewAtomicLevelAt(zap.DebugLevel)
	core, logs := observer.New(level)
	holder := NewTokenHolder(&interfaces.AccessToken{AccessToken: "raw"})
	refresher := NewRefresher(holder, RenewWith(&fakeAuth{}, Credentials{Token: "raw"}), time.Millisecond, logger.NewFromZap(zap.New(core), level))

	refresher.Start(context.Background())
	require.Eventually(t, func() bool { return logs.FilterMessage("Не удалось обновить токен доступа").Len() > 0 }, time.Second, time.Millisecond)
	refresher.Stop()
	assert.Equal(t, "raw", holder.AccessToken())
}

func TestRefresher_StopWithoutStart(t *testing.T) {
	refresher := NewRefresher(NewTokenHolder(nil), nil, time.Minute, logger.NewNop())
	refresher.Stop()
	assert.Equal(t, "", NewTokenHolder(nil).AccessToken())
}

func TestBearerTransport(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	holder := NewTokenHolder(&interfaces.AccessToken{AccessToken: "t1"})
	client := &http.Client{Transport: &BearerTransport{Base: srv.Client().Transport, Tokens: holder}}

	for _, token := range []string{"t1", "t2"} {
		holder.Set(&interfaces.AccessToken{AccessToken: token})
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, []string{"Bearer t1", "Bearer t2"}, got)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func TestInspector(t *testing.T) {
	inspector := NewInspector()
	raw := signToken(t, jwt.MapClaims{
		"aud": "https://sandboxapi.ordercloud.io",
		"cid": "client-1",
		"usr": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := inspector.Inspect(raw)
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.ClientID)
	assert.Equal(t, "admin", claims.Username)
	assert.NoError(t, CheckEnvironment(claims, "https://SANDBOXAPI.ordercloud.io/"))

	err = CheckEnvironment(claims, "https://api.ordercloud.io")
	assert.ErrorIs(t, err, ErrEnvironmentMismatch)

	cached, err := inspector.Inspect(raw)
	require.NoError(t, err)
	assert.Same(t, claims, cached)
}

func TestInspector_Errors(t *testing.T) {
	inspector := NewInspector()

	_, err := inspector.Inspect("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := signToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	_, err = inspector.Inspect(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	noAud, err := inspector.Inspect(signToken(t, jwt.MapClaims{"cid": "c"}))
	require.NoError(t, err)
	assert.NoError(t, CheckEnvironment(noAud, "https://api.ordercloud.io"))
}

func TestRequireToken(t *testing.T) {
	handler := RequireToken(NewInspector(), "https://sandboxapi.ordercloud.io", logger.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			require.True(t, ok)
			_, _ = w.Write([]byte(claims.ClientID))
		}))

	good := signToken(t, jwt.MapClaims{"aud": "https://sandboxapi.ordercloud.io", "cid": "c1"})
	other := signToken(t, jwt.MapClaims{"aud": "https://api.ordercloud.io"})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "malformed", header: "Token abc", status: http.StatusUnauthorized},
		{name: "other environment", header: "Bearer " + other, status: http.StatusForbidden},
		{name: "ok", header: "Bearer " + good, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "c1", rec.Body.String())
			}
		})
	}
}
