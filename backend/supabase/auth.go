package supabase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/supabase-community/gotrue-go/types"

	"github.com/eringen/orgsite/backend"
)

func newSession(token string, expiresAt int64, expiresIn time.Duration, email string) backend.Session {
	s := backend.Session{AccessToken: token, Email: email}
	switch {
	case expiresAt > 0:
		s.ExpiresAt = time.Unix(expiresAt, 0)
	case expiresIn > 0:
		s.ExpiresAt = time.Now().Add(expiresIn)
	}
	return s
}

// SignIn uses the password grant. Any 4xx is reported as invalid credentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (backend.Session, error) {
	tr, err := run(ctx, c.timeout, func() (*types.TokenResponse, error) {
		return c.auth.SignInWithEmailPassword(email, password)
	})
	if err != nil {
		err = serviceError("sign in", err)
		if s := statusOf(err); s >= 400 && s < 500 {
			return backend.Session{}, backend.ErrInvalidCredentials
		}
		return backend.Session{}, err
	}
	if tr == nil || tr.AccessToken == "" {
		return backend.Session{}, backend.ErrInvalidCredentials
	}
	return newSession(tr.AccessToken, tr.ExpiresAt, time.Duration(tr.ExpiresIn)*time.Second, tr.User.Email), nil
}

// SignOut revokes token. A token the service no longer accepts counts as
// signed out.
func (c *Client) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := run(ctx, c.timeout, func() (struct{}, error) {
		return struct{}{}, c.auth.WithToken(token).Logout()
	})
	err = serviceError("sign out", err)
	if s := statusOf(err); s == http.StatusUnauthorized || s == http.StatusForbidden || s == http.StatusNotFound {
		return nil
	}
	return err
}

// GetSession asks the auth service who token belongs to.
func (c *Client) GetSession(ctx context.Context, token string) (backend.Session, error) {
	if token == "" {
		return backend.Session{}, backend.ErrNoSession
	}
	user, err := run(ctx, c.timeout, func() (*types.UserResponse, error) {
		return c.auth.WithToken(token).GetUser()
	})
	if err != nil {
		err = serviceError("get user", err)
		if s := statusOf(err); s == http.StatusUnauthorized || s == http.StatusForbidden {
			return backend.Session{}, backend.ErrNoSession
		}
		return backend.Session{}, err
	}
	if user == nil {
		return backend.Session{}, backend.ErrNoSession
	}
	return backend.Session{AccessToken: token, Email: user.Email}, nil
}

// ResetPasswordForEmail asks the service to mail a recovery link. The link
// target comes from the project's auth settings (Site URL and the recovery
// email template), so redirectURL is not sent.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectURL string) error {
	_, err := run(ctx, c.timeout, func() (struct{}, error) {
		return struct{}{}, c.auth.Recover(types.RecoverRequest{Email: email})
	})
	return serviceError("recover", err)
}

// VerifyRecovery exchanges the token_hash from a recovery link for a session.
func (c *Client) VerifyRecovery(ctx context.Context, tokenHash string) (backend.Session, error) {
	if tokenHash == "" {
		return backend.Session{}, backend.ErrNoSession
	}
	resp, err := run(ctx, c.timeout, func() (*types.VerifyForUserResponse, error) {
		return c.auth.VerifyForUser(types.VerifyForUserRequest{
			Type:      types.VerificationTypeRecovery,
			TokenHash: tokenHash,
		})
	})
	if err != nil {
		err = serviceError("verify", err)
		if s := statusOf(err); s >= 400 && s < 500 {
			return backend.Session{}, backend.ErrNoSession
		}
		return backend.Session{}, err
	}
	if resp == nil || resp.AccessToken == "" {
		return backend.Session{}, errors.New("supabase: verify returned no session")
	}
	return newSession(resp.AccessToken, resp.ExpiresAt, time.Duration(resp.ExpiresIn)*time.Second, resp.User.Email), nil
}

// UpdatePassword changes the password of the account token belongs to.
func (c *Client) UpdatePassword(ctx context.Context, token, password string) error {
	if token == "" {
		return backend.ErrNoSession
	}
	_, err := run(ctx, c.timeout, func() (*types.UpdateUserResponse, error) {
		return c.auth.WithToken(token).UpdateUser(types.UpdateUserRequest{Password: &password})
	})
	err = serviceError("update user", err)
	if s := statusOf(err); s == http.StatusUnauthorized {
		return backend.ErrNoSession
	}
	return err
}
