package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor for new password hashes.
const DefaultBcryptCost = 10

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// BcryptHasher implements Hasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range. Zero means
// DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash creates a bcrypt hash from a password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A mismatch is (false, nil);
// a malformed hash is an error.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ Hasher = (*BcryptHasher)(nil)

// PasswordAuthenticator checks email/password logins. It never writes.
type PasswordAuthenticator struct {
	users  UserStore
	hasher Hasher
	tokens *TokenIssuer
}

// NewPasswordAuthenticator wires an authenticator.
func NewPasswordAuthenticator(users UserStore, hasher Hasher, tokens *TokenIssuer) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: users, hasher: hasher, tokens: tokens}
}

// Authenticate returns a session token for valid credentials. Checks run in
// order: unknown email (ErrUserNotFound), OAuth-only account
// (ErrInvalidAccountType), wrong password (ErrInvalidCredentials).
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (string, *User, error) {
	user, err := a.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", nil, err
	}

	if !user.HasPassword() {
		return "", nil, ErrInvalidAccountType
	}

	ok, err := a.hasher.Verify(password, *user.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	token, err := a.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
