package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/catalog"
	"github.com/elearnhq/elearn/pkg/middleware"
	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/rbac"
	"github.com/elearnhq/elearn/pkg/sso"
	"github.com/elearnhq/elearn/pkg/stats"
	"github.com/elearnhq/elearn/pkg/storage"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

const frontendURL = "https://app.example.com"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// googleStub stands in for Google: the code it receives is the external id
// it reports back.
type googleStub struct {
	profiles map[string]auth.Profile
}

func (g *googleStub) Name() sso.ProviderName { return sso.ProviderGoogle }

func (g *googleStub) AuthCodeURL(state, verifier string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (g *googleStub) Exchange(_ context.Context, code, verifier string) (auth.Profile, error) {
	p, ok := g.profiles[code]
	if !ok {
		return auth.Profile{}, fmt.Errorf("unknown code %q", code)
	}
	return p, nil
}

func (g *googleStub) ValidateConfig() error { return nil }

type testServer struct {
	t       *testing.T
	server  *Server
	conn    *sqlstore.ConnectionManager
	users   *sqlstore.UserStore
	service *auth.Service
	google  *googleStub
	metrics *observability.Metrics
	stats   *stats.Aggregator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})

	cfg := storage.DefaultConfig()
	cfg.Driver = storage.DriverSQLite
	cfg.DatabaseURL = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := sqlstore.Open(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, sqlstore.Migrate(context.Background(), conn.Primary(), logger))

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	users := sqlstore.NewUserStore(conn, metrics)
	service, err := auth.NewService(auth.Config{JWTSecret: "test-secret", TokenTTL: time.Hour, BcryptCost: 4},
		users, auth.WithLogger(logger), auth.WithMetrics(metrics))
	require.NoError(t, err)

	checker := rbac.NewChecker(rbac.DefaultPolicy(), rbac.NewStore(conn), rbac.CheckerConfig{}, metrics)
	google := &googleStub{profiles: map[string]auth.Profile{}}
	ssoHandlers := sso.NewHandlers(service, sso.NewMemoryStateStore(0, time.Minute),
		sso.HandlersConfig{FrontendURL: frontendURL}, google)
	aggregator := stats.NewAggregator(conn)

	handlerLogger := logrus.New()
	handlerLogger.SetOutput(io.Discard)

	server, err := NewServer(Config{
		CORSOrigins: []string{frontendURL},
		LoginLimit:  &middleware.RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Hour},
	}, Deps{
		Auth:          service,
		Users:         users,
		Catalog:       catalog.New(conn, catalog.WithRoleCache(checker), catalog.WithMetrics(metrics)),
		Checker:       checker,
		SSO:           ssoHandlers,
		Stats:         aggregator,
		Logger:        logger,
		HandlerLogger: handlerLogger,
		Metrics:       metrics,
	})
	require.NoError(t, err)

	return &testServer{t: t, server: server, conn: conn, users: users, service: service,
		google: google, metrics: metrics, stats: aggregator}
}

func (ts *testServer) request(method, path string, body interface{}, token string) *http.Request {
	ts.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "203.0.113.7:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, req)
	return w
}

func (ts *testServer) do(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()
	w := ts.serve(ts.request(method, path, body, token))
	var env envelope
	require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

// register signs up a password account and returns it.
func (ts *testServer) register(email, password string) *auth.User {
	ts.t.Helper()
	w, env := ts.do(http.MethodPost, "/auth/register",
		map[string]string{"email": email, "password": password, "fullName": "Test User"}, "")
	require.Equal(ts.t, http.StatusCreated, w.Code, env.Message)
	return decode[*auth.User](ts.t, env)
}

// login returns a session token for a password account.
func (ts *testServer) login(email, password string) string {
	ts.t.Helper()
	w, env := ts.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(ts.t, http.StatusOK, w.Code, env.Message)
	return decode[auth.LoginResult](ts.t, env).Token
}

// tokenFor issues a token for a seeded account with the given role.
func (ts *testServer) tokenFor(role auth.Role) (string, *auth.User) {
	ts.t.Helper()
	u, err := ts.users.Create(context.Background(), auth.NewUser{
		Email:    uuid.NewString() + "@example.com",
		FullName: "Seeded",
		Role:     role,
	})
	require.NoError(ts.t, err)
	token, err := ts.service.Tokens().Issue(u)
	require.NoError(ts.t, err)
	return token, u
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
