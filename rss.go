package orgsite

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/orgsite/content"
	"github.com/eringen/orgsite/views"
)

const feedItems = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Category    string `xml:"category,omitempty"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

func (a *App) renderRSS(c echo.Context, posts []content.BlogPost) error {
	base := a.Config.URL
	if len(posts) > feedItems {
		posts = posts[:feedItems]
	}
	items := make([]rssItem, 0, len(posts))
	lastBuild := ""
	for _, p := range posts {
		pubDate := ""
		if !p.CreatedAt.IsZero() {
			pubDate = p.CreatedAt.UTC().Format(time.RFC1123Z)
			if lastBuild == "" {
				lastBuild = pubDate
			}
		}
		postURL := BuildURL(base, "blog", p.ID)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: views.Excerpt(p.Content, 280),
			Category:    p.CategoryOrDefault(),
			PubDate:     pubDate,
			GUID:        postURL,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:         a.Config.Name,
			Link:          BuildURL(base),
			Description:   a.Config.Description,
			LastBuildDate: lastBuild,
			Items:         items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(feed)
}
