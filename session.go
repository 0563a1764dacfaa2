package orgsite

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	sessionName = "admin_session"

	keyAccessToken   = "access_token"
	keyRecoveryToken = "recovery_token"
)

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// sessionValue reads one string from the admin cookie. A missing or
// tampered cookie reads as "".
func sessionValue(c echo.Context, key string) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	v, _ := sess.Values[key].(string)
	return v
}

// setSessionValues writes vals into the admin cookie; empty values are removed.
func setSessionValues(c echo.Context, vals map[string]string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	for k, v := range vals {
		if v == "" {
			delete(sess.Values, k)
			continue
		}
		sess.Values[k] = v
	}
	return sess.Save(c.Request(), c.Response())
}

func setAdminToken(c echo.Context, token string) error {
	return setSessionValues(c, map[string]string{keyAccessToken: token, keyRecoveryToken: ""})
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
