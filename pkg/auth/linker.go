package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// LinkPath records how a provider login resolved to an account.
type LinkPath string

const (
	LinkExisting LinkPath = "existing" // matched by external id
	LinkByEmail  LinkPath = "linked"   // matched by verified email, external id attached
	LinkCreated  LinkPath = "created"  // new OAuth-only account
)

// IdentityLinker maps a provider profile onto exactly one account.
type IdentityLinker struct {
	users UserStore
}

// NewIdentityLinker wires a linker.
func NewIdentityLinker(users UserStore) *IdentityLinker {
	return &IdentityLinker{users: users}
}

// Resolve finds or creates the account for p. Lookup order is external id,
// then email, then create. The email step only links when the provider
// verified the address and the matched account has no other identity. A concurrent first login for the same identity makes
// the losing write fail with ErrConflict; resolution is then retried once,
// which finds the winner's row.
func (l *IdentityLinker) Resolve(ctx context.Context, p Profile) (*User, LinkPath, error) {
	email := p.PrimaryEmail()
	if email == "" {
		return nil, "", ErrMissingEmail
	}
	if strings.TrimSpace(p.ExternalID) == "" {
		return nil, "", fmt.Errorf("%w: provider profile has no id", ErrInvalidInput)
	}

	user, path, err := l.resolveOnce(ctx, p, email)
	if errors.Is(err, ErrConflict) {
		user, path, err = l.resolveOnce(ctx, p, email)
	}
	return user, path, err
}

func (l *IdentityLinker) resolveOnce(ctx context.Context, p Profile, email string) (*User, LinkPath, error) {
	key := p.ExternalKey()
	user, err := l.users.FindByGoogleID(ctx, key)
	switch {
	case err == nil:
		return user, LinkExisting, nil
	case !errors.Is(err, ErrUserNotFound):
		return nil, "", err
	}

	user, err = l.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !p.EmailVerified {
			return nil, "", ErrUnverifiedEmail
		}
		if user.GoogleID != nil && *user.GoogleID != key {
			return nil, "", ErrAlreadyLinked
		}
		upd := UserUpdate{GoogleID: strPtr(key)}
		if user.AvatarURL == nil && p.PhotoURL != "" {
			upd.AvatarURL = strPtr(p.PhotoURL)
		}
		linked, err := l.users.Update(ctx, user.ID, upd)
		if err != nil {
			return nil, "", err
		}
		return linked, LinkByEmail, nil
	case !errors.Is(err, ErrUserNotFound):
		return nil, "", err
	}

	nu := NewUser{
		Email:    email,
		FullName: strings.TrimSpace(p.DisplayName),
		GoogleID: strPtr(key),
		Role:     RoleLearner,
	}
	if p.PhotoURL != "" {
		nu.AvatarURL = strPtr(p.PhotoURL)
	}
	created, err := l.users.Create(ctx, nu)
	if err != nil {
		return nil, "", err
	}
	return created, LinkCreated, nil
}
