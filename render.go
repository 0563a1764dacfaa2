package orgsite

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/orgsite/views"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// site collects the values every page needs. Membership settings are read
// fresh on each render; a failed read hides the join link.
func (a *App) site(c echo.Context) views.Site {
	membership, err := a.Store.Membership(c.Request().Context())
	if err != nil {
		a.Logger.Warn("membership settings unavailable", zap.Error(err))
	}
	_, admin := AdminSession(c)
	return views.Site{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Path:        c.Request().URL.Path,
		CSRF:        CsrfToken(c),
		Admin:       admin,
		Membership:  membership,
		Now:         a.now(),
	}
}
