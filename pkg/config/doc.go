// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for everything except the JWT signing secret.
//
// # Configuration Structure
//
// Server settings:
//
//	ELEARN_HOST="0.0.0.0"
//	ELEARN_PORT="8080"
//	ELEARN_HEALTH_PORT="9090"
//	ELEARN_CORS_ORIGINS="https://app.example.com"
//	ELEARN_LOGIN_RATE_LIMIT="10"  # per client IP per minute
//
// Auth settings:
//
//	ELEARN_JWT_SECRET="..."  # required
//	ELEARN_TOKEN_TTL="1h"
//	ELEARN_BCRYPT_COST="10"
//
// Social login:
//
//	ELEARN_FRONTEND_URL="https://app.example.com"
//	ELEARN_GOOGLE_ENABLED="true"
//	ELEARN_GOOGLE_CLIENT_ID="..."
//	ELEARN_GOOGLE_CLIENT_SECRET="..."
//	ELEARN_GOOGLE_CALLBACK_URL="https://api.example.com/auth/google/callback"
//
// Storage settings:
//
//	ELEARN_DB_DRIVER="postgres"  # postgres, sqlite3
//	ELEARN_DATABASE_URL="postgres://localhost/elearn"
//	ELEARN_DB_MAX_CONNS="20"
//	ELEARN_REDIS_URL="redis://localhost:6379"  # optional
//	ELEARN_S3_BUCKET="citizen-ids"             # optional
//
// Observability settings:
//
//	ELEARN_LOG_LEVEL="info"  # debug, info, warn, error
//	ELEARN_METRICS_ENABLED="true"
//	ELEARN_OTEL_ENABLED="true"
//	ELEARN_OTEL_ENDPOINT="otel-collector:4317"
//
// RBAC:
//
//	ELEARN_RBAC_POLICY_FILE="/etc/elearn/policy.yaml"  # reloaded on change
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
