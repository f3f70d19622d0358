package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/storage"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Token and password settings
	Auth auth.Config

	// Social login
	OAuth OAuthConfig

	// Observability configuration
	Observability ObservabilityConfig

	// Permission policy
	RBAC RBACConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s health checks)
	HealthPort string

	CORSOrigins  []string
	MaxBodyBytes int64

	// Login attempts allowed per client IP per minute
	LoginRateLimit int

	// Proxies (IPs or CIDRs) whose X-Forwarded-For is believed
	TrustedProxies []string
}

// OAuthConfig configures the social login flow.
type OAuthConfig struct {
	FrontendURL   string
	StateTTL      time.Duration
	SecureCookies bool

	Google  GoogleConfig
	Generic GenericOAuth2Config
}

// GoogleConfig holds the Google OpenID Connect client.
type GoogleConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GenericOAuth2Config holds a plain OAuth2 provider with a userinfo endpoint.
type GenericOAuth2Config struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// RBACConfig points at an optional YAML policy that replaces the built-in
// one and is reloaded on change.
type RBACConfig struct {
	PolicyFile string
	CacheSize  int
	CacheTTL   time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		OAuth:         loadOAuthConfig(),
		Observability: loadObservabilityConfig(),
		RBAC:          loadRBACConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("ELEARN_HOST", "0.0.0.0"),
		Port:            getEnv("ELEARN_PORT", "8080"),
		ReadTimeout:     getEnvDuration("ELEARN_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("ELEARN_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("ELEARN_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("ELEARN_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("ELEARN_HEALTH_PORT", "9090"),
		CORSOrigins:     getEnvList("ELEARN_CORS_ORIGINS", []string{"http://localhost:3000"}),
		MaxBodyBytes:    getEnvInt64("ELEARN_MAX_BODY_BYTES", 6<<20),
		LoginRateLimit:  getEnvInt("ELEARN_LOGIN_RATE_LIMIT", 10),
		TrustedProxies:  getEnvList("ELEARN_TRUSTED_PROXIES", nil),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	// SQL database
	if driver := getEnv("ELEARN_DB_DRIVER", ""); driver != "" {
		cfg.Driver = driver
	}
	if dbURL := getEnv("ELEARN_DATABASE_URL", ""); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if replicaURLs := getEnv("ELEARN_DATABASE_REPLICA_URLS", ""); replicaURLs != "" {
		cfg.ReplicaURLs = sqlstore.ParseReplicaURLs(replicaURLs)
	}
	if maxConns := getEnvInt("ELEARN_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("ELEARN_DB_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("ELEARN_DB_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}
	cfg.AutoMigrate = getEnvBool("ELEARN_DB_AUTO_MIGRATE", cfg.AutoMigrate)

	// Redis config
	if redisURL := getEnv("ELEARN_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("ELEARN_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("ELEARN_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("ELEARN_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("ELEARN_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	// S3 config
	if s3Endpoint := getEnv("ELEARN_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("ELEARN_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("ELEARN_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("ELEARN_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("ELEARN_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	cfg.S3UsePathStyle = getEnvBool("ELEARN_S3_USE_PATH_STYLE", cfg.S3UsePathStyle)
	if publicURL := getEnv("ELEARN_S3_PUBLIC_URL", ""); publicURL != "" {
		cfg.S3PublicURL = publicURL
	}

	return cfg
}

// loadAuthConfig loads token and password settings from environment
func loadAuthConfig() auth.Config {
	return auth.Config{
		JWTSecret:  getEnv("ELEARN_JWT_SECRET", ""),
		TokenTTL:   getEnvDuration("ELEARN_TOKEN_TTL", auth.DefaultTokenTTL),
		BcryptCost: getEnvInt("ELEARN_BCRYPT_COST", auth.DefaultBcryptCost),
		Issuer:     getEnv("ELEARN_JWT_ISSUER", "elearn"),
	}
}

// loadOAuthConfig loads social login settings from environment
func loadOAuthConfig() OAuthConfig {
	return OAuthConfig{
		FrontendURL:   strings.TrimRight(getEnv("ELEARN_FRONTEND_URL", "http://localhost:3000"), "/"),
		StateTTL:      getEnvDuration("ELEARN_OAUTH_STATE_TTL", 10*time.Minute),
		SecureCookies: getEnvBool("ELEARN_OAUTH_SECURE_COOKIES", false),
		Google: GoogleConfig{
			Enabled:      getEnvBool("ELEARN_GOOGLE_ENABLED", false),
			ClientID:     getEnv("ELEARN_GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("ELEARN_GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("ELEARN_GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),
		},
		Generic: GenericOAuth2Config{
			Enabled:      getEnvBool("ELEARN_OAUTH2_ENABLED", false),
			ClientID:     getEnv("ELEARN_OAUTH2_CLIENT_ID", ""),
			ClientSecret: getEnv("ELEARN_OAUTH2_CLIENT_SECRET", ""),
			AuthURL:      getEnv("ELEARN_OAUTH2_AUTH_URL", ""),
			TokenURL:     getEnv("ELEARN_OAUTH2_TOKEN_URL", ""),
			UserInfoURL:  getEnv("ELEARN_OAUTH2_USERINFO_URL", ""),
			RedirectURL:  getEnv("ELEARN_OAUTH2_CALLBACK_URL", ""),
			Scopes:       getEnvList("ELEARN_OAUTH2_SCOPES", nil),
		},
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("ELEARN_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("ELEARN_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("ELEARN_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("ELEARN_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("ELEARN_OTEL_SERVICE_NAME", "elearn-api"),
		OTelServiceVersion: getEnv("ELEARN_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("ELEARN_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("ELEARN_OTEL_SAMPLE_RATIO", 1.0),
	}
}

func loadRBACConfig() RBACConfig {
	return RBACConfig{
		PolicyFile: getEnv("ELEARN_RBAC_POLICY_FILE", ""),
		CacheSize:  getEnvInt("ELEARN_RBAC_CACHE_SIZE", 16),
		CacheTTL:   getEnvDuration("ELEARN_RBAC_CACHE_TTL", time.Minute),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.LoginRateLimit <= 0 {
		return fmt.Errorf("login rate limit must be positive")
	}

	if err := c.Auth.Validate(); err != nil {
		return err
	}

	// Validate storage config based on driver
	switch c.Storage.Driver {
	case storage.DriverPostgres, storage.DriverSQLite:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for %s", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be %s or %s)",
			c.Storage.Driver, storage.DriverPostgres, storage.DriverSQLite)
	}

	if g := c.OAuth.Google; g.Enabled {
		if g.ClientID == "" || g.ClientSecret == "" {
			return fmt.Errorf("google client id and secret are required when google login is enabled")
		}
		if g.RedirectURL == "" {
			return fmt.Errorf("google callback URL is required when google login is enabled")
		}
	}
	if o := c.OAuth.Generic; o.Enabled {
		if o.ClientID == "" || o.AuthURL == "" || o.TokenURL == "" || o.UserInfoURL == "" {
			return fmt.Errorf("oauth2 client id, auth, token and userinfo URLs are required when oauth2 login is enabled")
		}
	}
	if (c.OAuth.Google.Enabled || c.OAuth.Generic.Enabled) && c.OAuth.FrontendURL == "" {
		return fmt.Errorf("frontend URL is required for social login redirects")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
