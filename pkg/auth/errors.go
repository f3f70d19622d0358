package auth

import "errors"

var (
	// ErrConfig is returned by constructors given unusable configuration.
	ErrConfig = errors.New("auth: invalid configuration")

	// ErrUserNotFound means no account matched the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidAccountType means a password login hit an OAuth-only account.
	ErrInvalidAccountType = errors.New("invalid account type")

	// ErrInvalidCredentials means the password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConflict means a unique constraint rejected the write.
	ErrConflict = errors.New("conflict")

	// ErrMissingEmail means the provider profile carried no usable email.
	ErrMissingEmail = errors.New("provider profile has no email")

	// ErrUnverifiedEmail means the provider did not verify an email that
	// already belongs to an account, so the two cannot be linked.
	ErrUnverifiedEmail = errors.New("provider email is not verified")

	// ErrAlreadyLinked means the account matched by email is linked to a
	// different external identity.
	ErrAlreadyLinked = errors.New("account is linked to another identity")

	// ErrTokenExpired means the token's exp is in the past.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid covers every other token verification failure.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidInput means a required field was empty or malformed.
	ErrInvalidInput = errors.New("invalid input")
)
