package auth

import (
	"context"
	"errors"
	"time"
)

// IdentityProvider looks up a user's password hash by username. Per the
// source's design note, the hard-coded user table is acceptable for tests
// but production wiring should inject a real identity provider behind this
// same narrow interface — one lookup, one verify.
type IdentityProvider interface {
	Lookup(ctx context.Context, username string) (passwordHash string, ok bool)
}

// StaticIdentityProvider is an in-memory identity map, suitable for a
// single-operator deployment or for tests. Keys are usernames; values are
// bcrypt password hashes.
type StaticIdentityProvider map[string]string

// Lookup implements IdentityProvider.
func (m StaticIdentityProvider) Lookup(_ context.Context, username string) (string, bool) {
	hash, ok := m[username]
	return hash, ok
}

var (
	ErrUnknownUser   = errors.New("auth: unknown user")
	ErrWrongPassword = errors.New("auth: wrong password")
)

// Login verifies username/password against provider and, on success, issues
// a bearer token signed with secret and valid for ttl.
func Login(ctx context.Context, provider IdentityProvider, secret, username, password string, ttl time.Duration) (token string, expiry time.Time, err error) {
	hash, ok := provider.Lookup(ctx, username)
	if !ok {
		return "", time.Time{}, ErrUnknownUser
	}
	if err := CheckPassword(hash, password); err != nil {
		return "", time.Time{}, ErrWrongPassword
	}
	return Issue(secret, username, ttl)
}
