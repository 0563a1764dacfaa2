package local

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/orgsite/backend"
)

const minPasswordLen = 6

// dummyHash is compared against when the email is unknown.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("orgsite"), bcrypt.DefaultCost)

// claims is the payload of a session token.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// CreateUser adds an admin account, or resets the password of an existing one.
func (b *Backend) CreateUser(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errors.New("local: email is required")
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("local: password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, `
INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET password_hash = excluded.password_hash`,
		uuid.NewString(), email, string(hash), b.now())
	return err
}

// SignIn checks the credentials and issues a session token. Unknown emails
// and wrong passwords fail identically.
func (b *Backend) SignIn(ctx context.Context, email, password string) (backend.Session, error) {
	var id, hash string
	err := b.db.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email = ?`, normalizeEmail(email)).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn comparable time so response latency does not reveal the account.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return backend.Session{}, backend.ErrInvalidCredentials
		}
		return backend.Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return backend.Session{}, backend.ErrInvalidCredentials
	}
	return b.issue(id, normalizeEmail(email), b.cfg.SessionTTL)
}

func (b *Backend) issue(userID, email string, ttl time.Duration) (backend.Session, error) {
	now := b.cfg.Now()
	exp := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte(b.cfg.JWTSecret))
	if err != nil {
		return backend.Session{}, err
	}
	return backend.Session{AccessToken: signed, Email: email, ExpiresAt: exp}, nil
}

func (b *Backend) parse(token string) (*claims, error) {
	if token == "" {
		return nil, backend.ErrNoSession
	}
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(b.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(b.cfg.Now))
	if err != nil {
		return nil, backend.ErrNoSession
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, backend.ErrNoSession
	}
	return c, nil
}

// GetSession validates the token and checks it has not been signed out.
func (b *Backend) GetSession(ctx context.Context, token string) (backend.Session, error) {
	c, err := b.parse(token)
	if err != nil {
		return backend.Session{}, err
	}
	var n int
	err = b.db.QueryRowContext(ctx, `
SELECT
    (SELECT COUNT(*) FROM revoked_sessions WHERE jti = ?) +
    (SELECT CASE WHEN COUNT(*) = 0 THEN 1 ELSE 0 END FROM users WHERE id = ?)`,
		c.ID, c.Subject).Scan(&n)
	if err != nil {
		return backend.Session{}, err
	}
	if n > 0 {
		return backend.Session{}, backend.ErrNoSession
	}
	return backend.Session{AccessToken: token, Email: c.Email, ExpiresAt: c.ExpiresAt.Time}, nil
}

// SignOut revokes the token until its natural expiry.
func (b *Backend) SignOut(ctx context.Context, token string) error {
	c, err := b.parse(token)
	if err != nil {
		// Already unusable.
		return nil
	}
	_, err = b.db.ExecContext(ctx, `INSERT OR IGNORE INTO revoked_sessions (jti, expires_at) VALUES (?, ?)`,
		c.ID, c.ExpiresAt.Time.UTC().Format(timeLayout))
	return err
}

// ResetPasswordForEmail mails a single-use recovery link when the account
// exists and silently does nothing otherwise.
func (b *Backend) ResetPasswordForEmail(ctx context.Context, email, redirectURL string) error {
	email = normalizeEmail(email)
	var userID string
	err := b.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			b.cfg.Logger.Debug("password recovery for unknown email")
			return nil
		}
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	token := hex.EncodeToString(raw)
	expires := b.cfg.Now().Add(b.cfg.RecoveryTTL).UTC().Format(timeLayout)
	if _, err := b.db.ExecContext(ctx, `INSERT INTO recovery_tokens (token_hash, user_id, expires_at) VALUES (?, ?, ?)`,
		hashToken(token), userID, expires); err != nil {
		return err
	}

	link, err := recoveryLink(redirectURL, token)
	if err != nil {
		return err
	}
	body := "A password reset was requested for your admin account.\n\n" +
		"Open this link within the next hour to choose a new password:\n" + link + "\n\n" +
		"If you did not request this, you can ignore this message.\n"
	if err := b.cfg.Mailer.Send(ctx, email, "Reset your password", body); err != nil {
		b.cfg.Logger.Warn("recovery mail failed", zap.Error(err))
		return &backend.Error{Op: "recover", Status: 500, Message: "Error sending recovery email"}
	}
	return nil
}

// VerifyRecovery exchanges a recovery token for a session. Tokens are single use.
func (b *Backend) VerifyRecovery(ctx context.Context, tokenHash string) (backend.Session, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return backend.Session{}, err
	}
	defer tx.Rollback()

	var userID, email string
	err = tx.QueryRowContext(ctx, `
SELECT u.id, u.email FROM recovery_tokens r JOIN users u ON u.id = r.user_id
WHERE r.token_hash = ? AND r.used = 0 AND r.expires_at > ?`,
		hashToken(tokenHash), b.now()).Scan(&userID, &email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return backend.Session{}, backend.ErrNoSession
		}
		return backend.Session{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE recovery_tokens SET used = 1 WHERE token_hash = ?`, hashToken(tokenHash)); err != nil {
		return backend.Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return backend.Session{}, err
	}
	return b.issue(userID, email, b.cfg.RecoveryTTL)
}

// UpdatePassword sets a new password for the session's account.
func (b *Backend) UpdatePassword(ctx context.Context, token, password string) error {
	if _, err := b.GetSession(ctx, token); err != nil {
		return err
	}
	if len(password) < minPasswordLen {
		return &backend.Error{Op: "update user", Status: 422, Message: fmt.Sprintf("Password should be at least %d characters.", minPasswordLen)}
	}
	c, err := b.parse(token)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, string(hash), c.Subject)
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func recoveryLink(redirectURL, token string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("local: bad redirect url: %w", err)
	}
	q := u.Query()
	q.Set("token_hash", token)
	q.Set("type", "recovery")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
