package orgsite

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/orgsite/content"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// sitemapPages are the public pages listed before the blog posts.
var sitemapPages = []string{"about", "blog", "events", "gallery", "forum", "privacy", "terms"}

func (a *App) renderSitemap(c echo.Context, posts []content.BlogPost) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base, "/")},
	}
	for _, page := range sitemapPages {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, page)})
	}
	for _, p := range posts {
		u := sitemapURL{Loc: BuildURL(base, "blog", p.ID)}
		if !p.CreatedAt.IsZero() {
			u.LastMod = p.CreatedAt.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
