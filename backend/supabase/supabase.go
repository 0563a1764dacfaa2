// Package supabase implements backend.Backend against a hosted Supabase
// project, using the community Go clients for its REST, auth and storage
// services.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/postgrest-go"
	storage "github.com/supabase-community/storage-go"

	"github.com/eringen/orgsite/backend"
)

// Config configures a Client.
type Config struct {
	URL        string        // project URL, e.g. https://xyz.supabase.co
	AnonKey    string        // public anon key
	Timeout    time.Duration // per call (default 15s)
	HTTPClient *http.Client  // used by the auth client when set
}

// Client is a backend.Backend talking to one Supabase project.
type Client struct {
	base    string
	anonKey string
	timeout time.Duration
	auth    gotrue.Client
}

var _ backend.Backend = (*Client)(nil)

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase: invalid project url %q", cfg.URL)
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("supabase: anon key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := http.Client{Timeout: timeout}
	if cfg.HTTPClient != nil {
		hc = *cfg.HTTPClient
	}
	base := strings.TrimRight(cfg.URL, "/")
	ref, _, _ := strings.Cut(u.Hostname(), ".")

	return &Client{
		base:    base,
		anonKey: cfg.AnonKey,
		timeout: timeout,
		auth: gotrue.New(ref, cfg.AnonKey).
			WithCustomGoTrueURL(base + "/auth/v1").
			WithClient(hc),
	}, nil
}

// bearer returns the admin token carried by ctx, else the anon key.
func (c *Client) bearer(ctx context.Context) string {
	if token, ok := backend.AccessToken(ctx); ok {
		return token
	}
	return c.anonKey
}

// rest returns a PostgREST client acting as the caller in ctx. Clients are
// built per call because the library keeps the token in shared headers.
func (c *Client) rest(ctx context.Context) *postgrest.Client {
	return postgrest.NewClient(c.base+"/rest/v1", "public", map[string]string{
		"apikey":        c.anonKey,
		"Authorization": "Bearer " + c.bearer(ctx),
	})
}

func (c *Client) storage(ctx context.Context) *storage.Client {
	return storage.NewClient(c.base+"/storage/v1", c.bearer(ctx), map[string]string{
		"apikey": c.anonKey,
	})
}

// run calls fn and gives up once ctx ends or the timeout passes. The client
// libraries take no context, so an abandoned call finishes in the background.
func run[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

var (
	// postgrest-go reports failures as "(<code>) <message>".
	restErrorPattern = regexp.MustCompile(`^\(([^)]*)\) (.*)$`)
	// gotrue-go and storage-go embed the HTTP status in the error text.
	statusPattern = regexp.MustCompile(`status code:? (\d{3})`)
)

// transportError reports failures that never reached the service. Those
// stay plain errors so their text is not shown to operators.
func transportError(op string, err error) error {
	var ue *url.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &ue) {
		return fmt.Errorf("supabase: %s: %w", op, err)
	}
	return nil
}

// restError turns a postgrest-go failure into a *backend.Error, mapping the
// Postgres or PostgREST code to the status PostgREST itself would use.
func restError(op string, err error) error {
	if err == nil {
		return nil
	}
	if te := transportError(op, err); te != nil {
		return te
	}
	be := &backend.Error{Op: op, Message: err.Error()}
	if m := restErrorPattern.FindStringSubmatch(err.Error()); m != nil {
		be.Status = restStatus(m[1])
		be.Message = m[2]
	}
	return be
}

func restStatus(code string) int {
	switch {
	case code == "23505":
		return http.StatusConflict
	case code == "42501":
		return http.StatusForbidden
	case code == "PGRST301":
		return http.StatusUnauthorized
	case strings.HasPrefix(code, "22"), strings.HasPrefix(code, "23"), strings.HasPrefix(code, "PGRST"):
		return http.StatusBadRequest
	}
	return 0
}

// serviceError turns an auth or storage failure into a *backend.Error,
// pulling the status and the service's message out of the error text.
func serviceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if te := transportError(op, err); te != nil {
		return te
	}
	text := err.Error()
	be := &backend.Error{Op: op, Message: text}
	if m := statusPattern.FindStringSubmatch(text); m != nil {
		be.Status, _ = strconv.Atoi(m[1])
	}
	if i := strings.Index(text, "{"); i >= 0 {
		if msg := payloadMessage([]byte(text[i:])); msg != "" {
			be.Message = msg
		}
	}
	return be
}

// payloadMessage reads the message out of an error body. The services
// spell the field differently.
func payloadMessage(raw []byte) string {
	var body struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, msg := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error} {
		if msg != "" {
			return msg
		}
	}
	return ""
}

func statusOf(err error) int {
	var be *backend.Error
	if errors.As(err, &be) {
		return be.Status
	}
	return 0
}
