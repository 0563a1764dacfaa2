package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/orgsite/backend"
)

type captured struct {
	method string
	path   string
	query  map[string][]string
	header http.Header
	body   []byte
}

// setupTestServer answers every request with status and payload and records
// what it received.
func setupTestServer(t *testing.T, status int, payload string) (*Client, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.EscapedPath()
		got.query = r.URL.Query()
		got.header = r.Header.Clone()
		got.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL, AnonKey: "anon", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c, got
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{URL: "not a url", AnonKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "https://x.supabase.co"})
	assert.Error(t, err)
}

func TestSelectQueryShape(t *testing.T) {
	c, got := setupTestServer(t, 200, `[{"id":"1","title":"Hello","is_published":true}]`)

	q := backend.All().
		Pick("id", "title").
		Eq("is_published", true).
		Where("event_date", backend.Gte, "2024-01-01").
		Where("apply_link", backend.Neq, nil).
		OrderBy("event_date", false).
		OrderBy("created_at", true).
		Take(3)
	rows, err := c.Select(context.Background(), "events", q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hello", rows[0]["title"])

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/rest/v1/events", got.path)
	assert.Equal(t, []string{"id,title"}, got.query["select"])
	assert.Equal(t, []string{"eq.true"}, got.query["is_published"])
	assert.Equal(t, []string{"gte.2024-01-01"}, got.query["event_date"])
	assert.Equal(t, []string{"not.is.null"}, got.query["apply_link"])
	assert.Equal(t, []string{"3"}, got.query["limit"])
	assert.Equal(t, "anon", got.header.Get("apikey"))
	assert.Equal(t, "Bearer anon", got.header.Get("Authorization"))

	require.Len(t, got.query["order"], 1)
	order := got.query["order"][0]
	asc, desc := strings.Index(order, "event_date.asc"), strings.Index(order, "created_at.desc")
	assert.True(t, asc >= 0 && desc > asc, order)
}

func TestSelectRejectsUnknownOperator(t *testing.T) {
	c, got := setupTestServer(t, 200, `[]`)
	_, err := c.Select(context.Background(), "events", backend.All().Where("title", backend.Op("like"), "x"))
	assert.Error(t, err)
	assert.Empty(t, got.method)
}

func TestWritesForwardAccessToken(t *testing.T) {
	c, got := setupTestServer(t, 201, `[{"id":"abc","title":"T"}]`)
	ctx := backend.WithAccessToken(context.Background(), "admin-token")

	rows, err := c.Insert(ctx, "blogs", backend.Row{"title": "T"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "abc", rows[0]["id"])
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/rest/v1/blogs", got.path)
	assert.Contains(t, got.header.Get("Prefer"), "return=representation")
	assert.Equal(t, "Bearer admin-token", got.header.Get("Authorization"))
	assert.JSONEq(t, `[{"title":"T"}]`, string(got.body))
}

func TestUpdateAndDeleteByID(t *testing.T) {
	c, got := setupTestServer(t, 204, "")
	ctx := context.Background()

	require.NoError(t, c.Update(ctx, "blogs", "42", backend.Row{"is_published": false}))
	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, []string{"eq.42"}, got.query["id"])
	assert.JSONEq(t, `{"is_published":false}`, string(got.body))

	require.NoError(t, c.Delete(ctx, "about_team", "7"))
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/rest/v1/about_team", got.path)
	assert.Equal(t, []string{"eq.7"}, got.query["id"])
}

func TestErrorMessagePassesThrough(t *testing.T) {
	c, _ := setupTestServer(t, 400, `{"code":"23502","message":"null value in column \"title\" violates not-null constraint"}`)
	_, err := c.Insert(context.Background(), "blogs", backend.Row{})
	var be *backend.Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusBadRequest, be.Status)
	assert.Contains(t, backend.Message(err, "fallback"), `null value in column "title" violates not-null constraint`)
}

func TestRestStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, restStatus("23505"))
	assert.Equal(t, http.StatusBadRequest, restStatus("23502"))
	assert.Equal(t, http.StatusForbidden, restStatus("42501"))
	assert.Equal(t, http.StatusBadRequest, restStatus("PGRST204"))
	assert.Equal(t, 0, restStatus("XX000"))
}

func TestServiceErrorParsesStatusAndMessage(t *testing.T) {
	err := serviceError("get user", errors.New(`response status code 401: {"code":401,"msg":"invalid JWT"}`))
	var be *backend.Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusUnauthorized, be.Status)
	assert.Equal(t, "invalid JWT", be.Message)

	assert.NoError(t, serviceError("x", nil))
	assert.ErrorIs(t, serviceError("x", context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestRunGivesUpWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	go cancel()
	_, err := run(ctx, time.Minute, func() (int, error) {
		<-release
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	v, err := run(context.Background(), time.Minute, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestSignIn(t *testing.T) {
	c, got := setupTestServer(t, 200, `{"access_token":"tok","token_type":"bearer","expires_at":1700000000,"user":{"email":"a@b.c"}}`)
	sess, err := c.SignIn(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.AccessToken)
	assert.Equal(t, "a@b.c", sess.Email)
	assert.Equal(t, int64(1700000000), sess.ExpiresAt.Unix())
	assert.Equal(t, "/auth/v1/token", got.path)
	assert.Equal(t, []string{"password"}, got.query["grant_type"])
	assert.Equal(t, "anon", got.header.Get("apikey"))

	var creds map[string]any
	require.NoError(t, json.Unmarshal(got.body, &creds))
	assert.Equal(t, "pw", creds["password"])
}

func TestSignInRejected(t *testing.T) {
	c, _ := setupTestServer(t, 400, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
	_, err := c.SignIn(context.Background(), "a@b.c", "bad")
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)
}

func TestGetSession(t *testing.T) {
	c, got := setupTestServer(t, 200, `{"email":"a@b.c"}`)
	sess, err := c.GetSession(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", sess.Email)
	assert.Equal(t, "/auth/v1/user", got.path)
	assert.Equal(t, "Bearer tok", got.header.Get("Authorization"))

	_, err = c.GetSession(context.Background(), "")
	assert.ErrorIs(t, err, backend.ErrNoSession)

	c, _ = setupTestServer(t, 401, `{"msg":"invalid JWT"}`)
	_, err = c.GetSession(context.Background(), "expired")
	assert.ErrorIs(t, err, backend.ErrNoSession)
}

func TestServerErrorIsNotNoSession(t *testing.T) {
	c, _ := setupTestServer(t, 500, `{"message":"boom"}`)
	_, err := c.GetSession(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, backend.ErrNoSession)
}

func TestRecoveryFlow(t *testing.T) {
	c, got := setupTestServer(t, 200, `{}`)
	require.NoError(t, c.ResetPasswordForEmail(context.Background(), "a@b.c", "https://site.test/admin/reset-password/"))
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/auth/v1/recover", got.path)
	var recover map[string]any
	require.NoError(t, json.Unmarshal(got.body, &recover))
	assert.Equal(t, "a@b.c", recover["email"])

	c, got = setupTestServer(t, 200, `{"access_token":"rec","expires_in":3600,"user":{"email":"a@b.c"}}`)
	sess, err := c.VerifyRecovery(context.Background(), "hash")
	require.NoError(t, err)
	assert.Equal(t, "rec", sess.AccessToken)
	assert.Equal(t, "/auth/v1/verify", got.path)
	var verify map[string]any
	require.NoError(t, json.Unmarshal(got.body, &verify))
	assert.Equal(t, "recovery", verify["type"])
	assert.Equal(t, "hash", verify["token_hash"])

	c, _ = setupTestServer(t, 403, `{"msg":"Email link is invalid or has expired"}`)
	_, err = c.VerifyRecovery(context.Background(), "used")
	assert.ErrorIs(t, err, backend.ErrNoSession)
}

func TestUpdatePassword(t *testing.T) {
	c, got := setupTestServer(t, 200, `{"email":"a@b.c"}`)
	require.NoError(t, c.UpdatePassword(context.Background(), "rec", "newpass"))
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/auth/v1/user", got.path)
	assert.Equal(t, "Bearer rec", got.header.Get("Authorization"))

	c, _ = setupTestServer(t, 422, `{"msg":"Password should be at least 6 characters."}`)
	err := c.UpdatePassword(context.Background(), "rec", "x")
	assert.Equal(t, "Password should be at least 6 characters.", backend.Message(err, ""))
}

func TestStorage(t *testing.T) {
	c, got := setupTestServer(t, 200, `{"Key":"gallery/gallery/1-a.jpg"}`)
	ctx := backend.WithAccessToken(context.Background(), "admin-token")

	require.NoError(t, c.Upload(ctx, "gallery", "gallery/1-a.jpg", "image/jpeg", []byte("jpeg")))
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/storage/v1/object/gallery/gallery/1-a.jpg", got.path)
	assert.Equal(t, "image/jpeg", got.header.Get("Content-Type"))
	assert.Equal(t, "Bearer admin-token", got.header.Get("Authorization"))
	assert.Equal(t, "jpeg", string(got.body))

	assert.Equal(t, c.base+"/storage/v1/object/public/team-images/x.jpg", c.PublicURL("team-images", "x.jpg"))

	c, got = setupTestServer(t, 200, `[]`)
	require.NoError(t, c.Remove(ctx, "gallery", "gallery/1-a.jpg"))
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/storage/v1/object/gallery", got.path)
	assert.JSONEq(t, `{"prefixes":["gallery/1-a.jpg"]}`, string(got.body))
}
