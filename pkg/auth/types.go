package auth

import (
	"context"
	"strings"
	"time"
)

// Role is the account's privilege level.
type Role string

const (
	RoleLearner    Role = "LEARNER" // default for every new account
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User is a stored account. A nil PasswordHash marks an OAuth-only account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"`
	FullName     string    `json:"fullName"`
	AvatarURL    *string   `json:"avatar,omitempty"`
	GoogleID     *string   `json:"googleId,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil
}

// NewUser carries the fields needed to create an account.
type NewUser struct {
	Email        string
	PasswordHash *string
	FullName     string
	AvatarURL    *string
	GoogleID     *string
	Role         Role
}

// UserUpdate lists the fields the identity linker may change. Nil fields are
// left untouched.
type UserUpdate struct {
	GoogleID  *string
	AvatarURL *string
}

// Profile is an OAuth provider's identity, normalized. EmailVerified is set
// only when the provider vouches for the address.
type Profile struct {
	Provider      string
	ExternalID    string
	Emails        []string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string
}

// ExternalKey is the value stored in the account's external id column.
// Google ids are stored bare; every other provider's id is prefixed with the
// provider name so ids from different providers never collide.
func (p Profile) ExternalKey() string {
	if p.Provider == "" || p.Provider == "google" {
		return p.ExternalID
	}
	return p.Provider + ":" + p.ExternalID
}

// PrimaryEmail returns the first non-blank email, lower-cased, or "".
func (p Profile) PrimaryEmail() string {
	for _, e := range p.Emails {
		if e = NormalizeEmail(e); e != "" {
			return e
		}
	}
	return ""
}

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserStore is the credential store boundary. Lookups return ErrUserNotFound
// when no row matches. Create and Update return ErrConflict when a unique
// constraint (email or google id) rejects the write.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*User, error)
	Create(ctx context.Context, u NewUser) (*User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
}

func strPtr(s string) *string {
	return &s
}
