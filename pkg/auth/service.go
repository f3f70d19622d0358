package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/elearnhq/elearn/pkg/observability"
)

// Config is the validated configuration for Service.
type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	Issuer     string
}

// Validate rejects a missing secret and out-of-range settings.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt secret is required", ErrConfig)
	}
	if c.TokenTTL < 0 {
		return fmt.Errorf("%w: token ttl must not be negative", ErrConfig)
	}
	if c.BcryptCost != 0 && (c.BcryptCost < 4 || c.BcryptCost > 31) {
		return fmt.Errorf("%w: bcrypt cost %d out of range", ErrConfig, c.BcryptCost)
	}
	return nil
}

// LoginResult is what a successful login hands back to the caller.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
	LinkPath  LinkPath  `json:"-"`
}

// RegisterInput is a password signup request.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// Service is the single entry point for registration, password login and
// provider login.
type Service struct {
	users     UserStore
	hasher    Hasher
	tokens    *TokenIssuer
	passwords *PasswordAuthenticator
	linker    *IdentityLinker
	logger    *observability.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *observability.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics records auth outcomes into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithHasher replaces the bcrypt hasher.
func WithHasher(h Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithServiceClock sets the clock used for token issuance and verification.
func WithServiceClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService validates cfg and wires the issuer, authenticator and linker.
func NewService(cfg Config, users UserStore, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if users == nil {
		return nil, fmt.Errorf("%w: user store is required", ErrConfig)
	}

	s := &Service{
		users:  users,
		logger: observability.NewLogger(observability.InfoLevel, nil),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hasher == nil {
		s.hasher = NewBcryptHasher(cfg.BcryptCost)
	}

	tokens, err := NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL, WithClock(s.now), WithIssuer(cfg.Issuer))
	if err != nil {
		return nil, err
	}
	s.tokens = tokens
	s.passwords = NewPasswordAuthenticator(users, s.hasher, tokens)
	s.linker = NewIdentityLinker(users)
	return s, nil
}

// Tokens exposes the issuer so middleware can verify bearer tokens.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates a password account with role LEARNER. A taken email is
// ErrConflict; any other store failure is returned wrapped.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	ctx, span := observability.Tracer().Start(ctx, "auth.Register")
	defer span.End()

	email := NormalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, NewUser{
		Email:        email,
		PasswordHash: &hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         RoleLearner,
	})
	if err != nil {
		s.metrics.RecordAuthAttempt("register", outcome(err))
		if errors.Is(err, ErrConflict) {
			return nil, ErrConflict
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failure")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.RecordAuthAttempt("register", "success")
	s.logger.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login authenticates email and password and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "auth.Login")
	defer span.End()

	token, user, err := s.passwords.Authenticate(ctx, email, password)
	s.metrics.RecordAuthAttempt("password", outcome(err))
	if err != nil {
		span.SetAttributes(attribute.String("auth.outcome", outcome(err)))
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: s.now().Add(s.tokens.TTL()),
		User:      user,
	}, nil
}

// HandleProviderCallback resolves an OAuth profile to an account and issues a
// session token for it.
func (s *Service) HandleProviderCallback(ctx context.Context, p Profile) (*LoginResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "auth.HandleProviderCallback")
	defer span.End()
	span.SetAttributes(attribute.String("auth.provider", p.Provider))

	user, path, err := s.linker.Resolve(ctx, p)
	if err != nil {
		s.metrics.RecordAuthAttempt(providerLabel(p), outcome(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "link failed")
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.metrics.RecordAuthAttempt(providerLabel(p), "error")
		return nil, err
	}

	s.metrics.RecordAuthAttempt(providerLabel(p), "success")
	if s.metrics != nil {
		s.metrics.AccountsLinkedTotal.WithLabelValues(providerLabel(p), string(path)).Inc()
	}
	s.logger.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"provider": providerLabel(p),
		"path":     string(path),
	}).Info("provider login resolved")

	return &LoginResult{
		Token:     token,
		ExpiresAt: s.now().Add(s.tokens.TTL()),
		User:      user,
		LinkPath:  path,
	}, nil
}

func validateCredentials(email, password string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	// ParseAddress also accepts "Name <addr>"; only a bare address is stored.
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) > 72 {
		return fmt.Errorf("%w: password must be at most 72 bytes", ErrInvalidInput)
	}
	return nil
}

func providerLabel(p Profile) string {
	if p.Provider == "" {
		return "oauth"
	}
	return p.Provider
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAccountType):
		return "invalid_account_type"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrMissingEmail):
		return "missing_email"
	case errors.Is(err, ErrUnverifiedEmail):
		return "unverified_email"
	case errors.Is(err, ErrAlreadyLinked):
		return "already_linked"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
