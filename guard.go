package orgsite

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/orgsite/backend"
)

const adminContextKey = "admin_session"

const loginPath = "/admin/login/"

// requireAdmin lets a request through only when the cookie's access token
// names a live backend session. The backend is asked exactly once per
// request; any failure redirects to the login page without running next.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := sessionValue(c, keyAccessToken)
		if token == "" {
			return c.Redirect(http.StatusSeeOther, loginPath)
		}
		ctx := c.Request().Context()
		sess, err := a.backend.GetSession(ctx, token)
		if err != nil {
			if !errors.Is(err, backend.ErrNoSession) {
				a.Logger.Warn("session check failed", zap.Error(err))
			}
			_ = clearAdminSession(c)
			return c.Redirect(http.StatusSeeOther, loginPath)
		}
		if sess.AccessToken == "" {
			sess.AccessToken = token
		}
		c.Set(adminContextKey, sess)
		c.SetRequest(c.Request().WithContext(backend.WithAccessToken(ctx, token)))
		return next(c)
	}
}

// AdminSession returns the session attached by the guard.
func AdminSession(c echo.Context) (backend.Session, bool) {
	sess, ok := c.Get(adminContextKey).(backend.Session)
	return sess, ok
}
