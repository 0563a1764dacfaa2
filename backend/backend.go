// Package backend defines the generic data-access contract the site is built
// on: named collections (tables), blob buckets, and an auth service.
//
// Two implementations ship with the module: backend/local keeps everything in
// SQLite and on disk, backend/supabase talks to a hosted Supabase project.
package backend

import (
	"context"
	"errors"
	"time"
)

// Row is one record of a collection, keyed by column name.
type Row map[string]any

// Tables is the collection half of the contract.
type Tables interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	Update(ctx context.Context, table, id string, patch Row) error
	Delete(ctx context.Context, table, id string) error
}

// Storage stores binary objects in named buckets.
type Storage interface {
	Upload(ctx context.Context, bucket, key, contentType string, data []byte) error
	PublicURL(bucket, key string) string
	Remove(ctx context.Context, bucket, key string) error
}

// Auth issues and checks admin sessions.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	GetSession(ctx context.Context, token string) (Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectURL string) error
	VerifyRecovery(ctx context.Context, tokenHash string) (Session, error)
	UpdatePassword(ctx context.Context, token, password string) error
}

// Backend bundles the three services.
type Backend interface {
	Tables
	Storage
	Auth
}

// Session is an opaque proof of authentication. The site stores AccessToken
// and hands it back; it never inspects the token itself.
type Session struct {
	AccessToken string
	Email       string
	ExpiresAt   time.Time
}

var (
	// ErrNoSession means the token is missing, expired or revoked.
	ErrNoSession = errors.New("backend: no active session")
	// ErrInvalidCredentials is returned by SignIn for any bad email/password pair.
	ErrInvalidCredentials = errors.New("backend: invalid login credentials")
	// ErrNotFound is returned when a single-row read matches nothing.
	ErrNotFound = errors.New("backend: not found")
)

// Error is a failure reported by the backend itself. Message is meant to be
// shown to the operator as-is.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

// Message returns the operator-facing text for err: the backend's own message
// when there is one, fallback otherwise.
func Message(err error, fallback string) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}

type tokenKey struct{}

// WithAccessToken returns a context carrying the signed-in admin's token.
// Implementations that enforce row-level access forward it on writes.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// AccessToken extracts the token stored by WithAccessToken.
func AccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}
