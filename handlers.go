package orgsite

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/orgsite/backend"
	"github.com/eringen/orgsite/content"
	"github.com/eringen/orgsite/views"
)

const (
	homeBlogCount  = 3
	homeEventCount = 3
)

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	hero, err := a.Cache.Hero(ctx)
	if err != nil {
		return err
	}
	posts, err := a.Cache.Blogs(ctx)
	if err != nil {
		return err
	}
	if len(posts) > homeBlogCount {
		posts = posts[:homeBlogCount]
	}
	events, err := a.Cache.Events(ctx)
	if err != nil {
		return err
	}
	upcoming, _ := content.PartitionEvents(events, a.now(), content.StartOfDay)
	if len(upcoming) > homeEventCount {
		upcoming = upcoming[:homeEventCount]
	}
	return Render(c, a.Views.Home(a.site(c), views.HomeData{Hero: hero, Blogs: posts, Events: upcoming}))
}

func (a *App) handleAbout(c echo.Context) error {
	ctx := c.Request().Context()
	sections, err := a.Cache.About(ctx)
	if err != nil {
		return err
	}
	team, err := a.Cache.Team(ctx)
	if err != nil {
		return err
	}
	data := views.AboutData{Sections: sections}
	for _, m := range team {
		if m.Role == content.RoleFaculty {
			data.Faculty = append(data.Faculty, m)
		} else {
			data.Members = append(data.Members, m)
		}
	}
	return Render(c, a.Views.About(a.site(c), data))
}

func (a *App) handleBlog(c echo.Context) error {
	posts, err := a.Cache.Blogs(c.Request().Context())
	if err != nil {
		return err
	}
	query := strings.TrimSpace(c.QueryParam("q"))
	category := strings.TrimSpace(c.QueryParam("category"))
	return Render(c, a.Views.Blog(a.site(c), views.BlogListData{
		Posts:      filterBlogs(posts, query, category),
		Categories: blogCategories(posts),
		Query:      query,
		Category:   category,
	}))
}

// filterBlogs keeps posts whose title or content contains query (case
// insensitive) and whose display category equals category. Empty filters
// match everything.
func filterBlogs(posts []content.BlogPost, query, category string) []content.BlogPost {
	q := strings.ToLower(query)
	var out []content.BlogPost
	for _, p := range posts {
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Content), q) {
			continue
		}
		if category != "" && p.CategoryOrDefault() != category {
			continue
		}
		out = append(out, p)
	}
	return out
}

func blogCategories(posts []content.BlogPost) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range posts {
		cat := p.CategoryOrDefault()
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	sort.Strings(out)
	return out
}

func (a *App) handleBlogPost(c echo.Context) error {
	post, err := a.Cache.Blog(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site(c)))
		}
		return err
	}
	return Render(c, a.Views.BlogPost(a.site(c), post))
}

func (a *App) handleEvents(c echo.Context) error {
	events, err := a.Cache.Events(c.Request().Context())
	if err != nil {
		return err
	}
	upcoming, past := content.PartitionEvents(events, a.now(), content.StartOfDay)
	return Render(c, a.Views.Events(a.site(c), views.EventsData{Upcoming: upcoming, Past: past}))
}

func (a *App) handleGallery(c echo.Context) error {
	items, err := a.Cache.Gallery(c.Request().Context())
	if err != nil {
		return err
	}
	var data views.GalleryData
	for _, it := range items {
		if it.Type == content.GalleryAchievement {
			data.Achievements = append(data.Achievements, it)
		} else {
			data.Events = append(data.Events, it)
		}
	}
	return Render(c, a.Views.Gallery(a.site(c), data))
}

func (a *App) handleForum(c echo.Context) error {
	posts, err := a.Cache.Forum(c.Request().Context())
	if err != nil {
		return err
	}
	category := strings.TrimSpace(c.QueryParam("category"))
	if category != "" {
		var filtered []content.ForumPost
		for _, p := range posts {
			if p.Category == category {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}
	return Render(c, a.Views.Forum(a.site(c), views.ForumData{
		Posts:      posts,
		Categories: content.ForumCategories,
		Category:   category,
	}))
}

func (a *App) handlePrivacy(c echo.Context) error {
	return Render(c, a.Views.Privacy(a.site(c)))
}

func (a *App) handleTerms(c echo.Context) error {
	return Render(c, a.Views.Terms(a.site(c)))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.Blogs(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.Blogs(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nDisallow: /admin/\n\nSitemap: " + BuildURL(a.Config.URL) + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site(c)))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error("server error",
			zap.Error(err),
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
		)
		_ = RenderStatus(c, code, a.Views.ServerError(a.site(c)))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
