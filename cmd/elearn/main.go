package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/elearnhq/elearn/pkg/api"
	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/catalog"
	"github.com/elearnhq/elearn/pkg/config"
	"github.com/elearnhq/elearn/pkg/middleware"
	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/rbac"
	"github.com/elearnhq/elearn/pkg/sso"
	"github.com/elearnhq/elearn/pkg/stats"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "elearn: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("elearn exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := observability.NotifyContext(context.Background())
	defer stop()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	shutdown.RegisterShutdownFunc("otel", otelProviders.Shutdown)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	conn, err := sqlstore.Open(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shutdown.RegisterShutdownFunc("database", func(context.Context) error { return conn.Close() })
	if cfg.Storage.AutoMigrate {
		if err := sqlstore.Migrate(ctx, conn.Primary(), logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Storage.RedisEnabled() {
		redisClient, err = sqlstore.NewRedisClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error { return redisClient.Close() })
	}

	catalogOpts := []catalog.Option{catalog.WithMetrics(metrics)}
	if cfg.Storage.DocumentsEnabled() {
		documents, err := sqlstore.NewS3DocumentStore(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize document storage: %w", err)
		}
		catalogOpts = append(catalogOpts, catalog.WithDocuments(documents))
	} else {
		logger.Warn("S3 bucket not configured; citizen-id uploads are disabled")
	}

	policy := rbac.DefaultPolicy()
	if cfg.RBAC.PolicyFile != "" {
		policy, err = rbac.LoadPolicy(cfg.RBAC.PolicyFile)
		if err != nil {
			return fmt.Errorf("failed to load rbac policy: %w", err)
		}
	}
	checker := rbac.NewChecker(policy, rbac.NewStore(conn), rbac.CheckerConfig{
		CacheSize: cfg.RBAC.CacheSize,
		CacheTTL:  cfg.RBAC.CacheTTL,
	}, metrics)
	catalogOpts = append(catalogOpts, catalog.WithRoleCache(checker))

	users := sqlstore.NewUserStore(conn, metrics)
	authService, err := auth.NewService(cfg.Auth, users, auth.WithLogger(logger), auth.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}

	ssoHandlers, err := newSSOHandlers(ctx, cfg, authService, redisClient)
	if err != nil {
		return err
	}

	loginLimit := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.Server.LoginRateLimit,
		WindowDuration:    time.Minute,
	}
	var loginLimiter middleware.Limiter
	var memLimiter *middleware.RateLimiter
	if redisClient != nil {
		loginLimiter = middleware.NewDistributedRateLimiter(redisClient, loginLimit, "elearn:ratelimit:login")
	} else {
		memLimiter = middleware.NewRateLimiter(loginLimit)
		loginLimiter = memLimiter
	}

	handlerLogger := logrus.New()
	handlerLogger.SetFormatter(&logrus.JSONFormatter{})
	handlerLogger.SetOutput(os.Stdout)
	if lvl, err := logrus.ParseLevel(cfg.Observability.LogLevel.String()); err == nil {
		handlerLogger.SetLevel(lvl)
	}

	server, err := api.NewServer(api.Config{
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		LoginLimit:     loginLimit,
		TrustedProxies: cfg.Server.TrustedProxies,
	}, api.Deps{
		Auth:          authService,
		Users:         users,
		Catalog:       catalog.New(conn, catalogOpts...),
		Checker:       checker,
		SSO:           ssoHandlers,
		Stats:         stats.NewAggregator(conn, stats.WithMetrics(metrics)),
		LoginLimiter:  loginLimiter,
		Logger:        logger,
		HandlerLogger: handlerLogger,
		Metrics:       metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to build API server: %w", err)
	}

	var handler http.Handler = server
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(server, "elearn-api")
	}
	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(conn.Primary(), redisClient, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:     healthMux,
		ReadTimeout: 5 * time.Second,
	}
	shutdown.AddServer(apiServer)
	shutdown.AddServer(healthServer)

	var watcher *rbac.PolicyWatcher
	if cfg.RBAC.PolicyFile != "" {
		if watcher, err = rbac.NewPolicyWatcher(cfg.RBAC.PolicyFile, checker, logger); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	conn.StartMaintenance(gctx, 30*time.Second, metrics)
	if memLimiter != nil {
		memLimiter.StartCleanup(gctx)
	}
	g.Go(func() error { return serve(apiServer, logger) })
	g.Go(func() error { return serve(healthServer, logger) })
	if watcher != nil {
		g.Go(func() error {
			watcher.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		return shutdown.Shutdown(context.Background())
	})

	logger.WithFields(map[string]interface{}{
		"addr":        apiServer.Addr,
		"health_addr": healthServer.Addr,
		"driver":      cfg.Storage.Driver,
		"redis":       redisClient != nil,
		"version":     version,
	}).Info("elearn API started")

	return g.Wait()
}

func serve(srv *http.Server, logger *observability.Logger) error {
	logger.WithField("addr", srv.Addr).Info("HTTP server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s: %w", srv.Addr, err)
	}
	return nil
}

// newSSOHandlers builds the enabled social login providers. It returns nil
// when none are configured, which leaves /auth/{provider} unrouted.
func newSSOHandlers(ctx context.Context, cfg *config.Config, service *auth.Service, redisClient *redis.Client) (*sso.Handlers, error) {
	var configs []*sso.ProviderConfig
	if g := cfg.OAuth.Google; g.Enabled {
		configs = append(configs, sso.GoogleConfig(g.ClientID, g.ClientSecret, g.RedirectURL))
	}
	if o := cfg.OAuth.Generic; o.Enabled {
		configs = append(configs, sso.GenericOAuth2Config(o.ClientID, o.ClientSecret, o.AuthURL, o.TokenURL, o.UserInfoURL, o.RedirectURL, o.Scopes))
	}
	if len(configs) == 0 {
		return nil, nil
	}

	providers := make([]sso.Provider, 0, len(configs))
	for _, pc := range configs {
		p, err := sso.CreateProvider(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s login: %w", pc.ProviderName, err)
		}
		providers = append(providers, p)
	}

	var states sso.StateStore
	if redisClient != nil {
		states = sso.NewRedisStateStore(redisClient, cfg.OAuth.StateTTL)
	} else {
		states = sso.NewMemoryStateStore(0, cfg.OAuth.StateTTL)
	}
	return sso.NewHandlers(service, states, sso.HandlersConfig{
		FrontendURL:   cfg.OAuth.FrontendURL,
		StateTTL:      cfg.OAuth.StateTTL,
		SecureCookies: cfg.OAuth.SecureCookies,
	}, providers...), nil
}
