package orgsite

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// formString returns the trimmed form value.
func formString(c echo.Context, name string) string {
	return strings.TrimSpace(c.FormValue(name))
}

// formBool reads a checkbox or a hidden "true"/"false" field.
func formBool(c echo.Context, name string) bool {
	switch strings.ToLower(formString(c, name)) {
	case "1", "on", "yes", "true":
		return true
	}
	return false
}

// redirectMsg redirects (post/redirect/get) with a flash message in ?msg=.
func redirectMsg(c echo.Context, to, msg string) error {
	if msg != "" {
		to += "?msg=" + url.QueryEscape(msg)
	}
	return c.Redirect(http.StatusSeeOther, to)
}
