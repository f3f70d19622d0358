// Package auth implements account registration, password login and OAuth
// identity linking, and issues the signed session tokens every protected
// route checks.
//
// # Components
//
// TokenIssuer signs HS256 tokens carrying the user's id, email, role and full
// name. Tokens expire one hour after issue; there is no revocation list.
//
//	tokens, err := auth.NewTokenIssuer(secret, time.Hour)
//	signed, err := tokens.Issue(user)
//	claims, err := tokens.Verify(signed)
//
// PasswordAuthenticator checks email/password pairs against bcrypt hashes.
// Failures are distinguishable: ErrUserNotFound, ErrInvalidAccountType for
// accounts created through Google, and ErrInvalidCredentials.
//
// IdentityLinker resolves a provider Profile to one account: by google id,
// else by email (attaching the google id and filling a missing avatar), else
// by creating a LEARNER account without a password.
//
// Service ties these together behind Register, Login and
// HandleProviderCallback, and records outcomes in metrics and traces.
//
// # Storage
//
// Accounts live behind UserStore. storage/sqlstore provides the SQL
// implementation; its unique constraints on email and google_id are what
// make concurrent first logins safe.
package auth
