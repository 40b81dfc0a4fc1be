//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"go-auth-service/internal/config"
	"go-auth-service/internal/database"
	"go-auth-service/internal/event"
	"go-auth-service/internal/handler"
	"go-auth-service/internal/metrics"
	"go-auth-service/internal/middleware"
	"go-auth-service/internal/repository"
	"go-auth-service/internal/router"
	"go-auth-service/internal/service"
	"go-auth-service/internal/validator"
)

const (
	adminUsername = "root"
	adminPassword = "root-password"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	*httptest.Server
	clock *clock
}

func startPostgres(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("auth_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.New(ctx, connStr, database.PoolOptions{MaxConns: 8, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   10 * time.Second,
		JWTSecret:        "test-secret",
		TokenTTL:         service.DefaultTokenTTL,
		BcryptCost:       bcrypt.MinCost,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}
}

// newServer wires the full HTTP stack over a fresh database with a
// controllable token clock and a seeded admin.
func newServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	db := startPostgres(t)
	users := repository.NewUserRepository(db.Pool)
	tokens := repository.NewTokenRepository(db.Pool)
	audit := repository.NewAuditRepository(db.Pool)

	c := &clock{now: time.Now().UTC()}
	codec, err := service.NewTokenCodec(cfg.JWTSecret, service.WithClock(c.Now))
	require.NoError(t, err)

	bus := event.NewBus()
	hasher := service.NewPasswordHasher(cfg.BcryptCost)
	refresher := service.NewTokenRefresher(codec, tokens, cfg.TokenTTL)
	verifier := service.NewTokenVerifier(codec, refresher)
	login := service.NewLoginService(users, tokens, hasher, codec, verifier, cfg.TokenTTL, bus)
	registration := service.NewRegistrationService(users, hasher, validator.New(), bus)
	guard := service.NewAuthorizationGuard(users, tokens, verifier, bus)
	auditService := service.NewAuditService(audit)

	created, err := registration.EnsureAdmin(context.Background(), adminUsername, adminPassword, "Administrator")
	require.NoError(t, err)
	require.True(t, created)

	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe := bus.Subscribe()
	go auditService.Run(ctx, events)
	t.Cleanup(func() {
		unsubscribe()
		cancel()
	})

	m := metrics.New(prometheus.NewRegistry())
	handlers := router.Handlers{
		Auth:  handler.NewAuthHandler(registration, login),
		User:  handler.NewUserHandler(service.NewUserService(users)),
		Audit: handler.NewAuditHandler(auditService),
		Docs:  handler.NewDocsHandler(),
	}
	health := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(guard), handlers, m, health))
	t.Cleanup(server.Close)

	return &testServer{Server: server, clock: c}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func register(t *testing.T, s *testServer, username string, password string) *http.Response {
	t.Helper()

	payload, err := json.Marshal(map[string]string{
		"username":         username,
		"password":         password,
		"confirm_password": password,
		"full_name":        strings.ToUpper(username[:1]) + username[1:],
	})
	require.NoError(t, err)

	resp, err := http.Post(s.URL+"/api/v1/auth/registration", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func login(t *testing.T, s *testServer, username string, password string) *http.Response {
	t.Helper()

	form := url.Values{"username": {username}, "password": {password}}
	resp, err := http.PostForm(s.URL+"/api/v1/auth/login", form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func accessToken(t *testing.T, resp *http.Response) string {
	t.Helper()

	env := decode(t, resp)
	require.True(t, env.Success)

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.NotEmpty(t, body.AccessToken)
	require.Equal(t, "bearer", body.TokenType)
	return body.AccessToken
}

func doAuthRequest(t *testing.T, method string, url string, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
