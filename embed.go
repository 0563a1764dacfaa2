package orgsite

import (
	"embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

// StaticAssets contains the stylesheet shipped with the site.
//
//go:embed static/site.css
var StaticAssets embed.FS

func (a *App) handleStylesheet(c echo.Context) error {
	css, err := StaticAssets.ReadFile("static/site.css")
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", css)
}
