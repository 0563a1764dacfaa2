// Package orgsite serves an organization's public website and its admin
// content panel, built with Go, Echo, and templ.
//
// Pages are produced by the ViewFuncs struct so a deployment can swap any
// template; orgsite handles the routing, middleware, session checks and
// every read and write against the configured backend.
package orgsite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/orgsite/backend"
	"github.com/eringen/orgsite/backend/local"
	"github.com/eringen/orgsite/content"
	"github.com/eringen/orgsite/views"
)

// ViewFuncs holds the components the handlers render. DefaultViews fills it
// from the embedded templates.
type ViewFuncs struct {
	Home        func(views.Site, views.HomeData) templ.Component
	About       func(views.Site, views.AboutData) templ.Component
	Blog        func(views.Site, views.BlogListData) templ.Component
	BlogPost    func(views.Site, content.BlogPost) templ.Component
	Events      func(views.Site, views.EventsData) templ.Component
	Gallery     func(views.Site, views.GalleryData) templ.Component
	Forum       func(views.Site, views.ForumData) templ.Component
	Privacy     func(views.Site) templ.Component
	Terms       func(views.Site) templ.Component
	NotFound    func(views.Site) templ.Component
	ServerError func(views.Site) templ.Component

	AdminLogin          func(views.Site, views.LoginData) templ.Component
	AdminForgotPassword func(views.Site, views.ForgotPasswordData) templ.Component
	AdminResetPassword  func(views.Site, views.ResetPasswordData) templ.Component
	AdminDashboard      func(views.Site, views.DashboardData) templ.Component
	AdminBlogs          func(views.Site, views.EntityPage[content.BlogPost]) templ.Component
	AdminEvents         func(views.Site, views.EventsAdmin) templ.Component
	AdminGallery        func(views.Site, views.GalleryAdmin) templ.Component
	AdminForum          func(views.Site, views.ForumAdmin) templ.Component
	AdminTeam           func(views.Site, views.EntityPage[content.TeamMember]) templ.Component
	AdminTeamDelete     func(views.Site, content.TeamMember) templ.Component
	AdminHome           func(views.Site, views.EntityPage[content.HomeHero]) templ.Component
	AdminAbout          func(views.Site, views.EntityPage[content.AboutSection]) templ.Component
	AdminMembership     func(views.Site, views.EntityPage[content.MembershipSettings]) templ.Component
}

// DefaultViews maps every page to the embedded templates in r.
func DefaultViews(r *views.Renderer) ViewFuncs {
	return ViewFuncs{
		Home:        r.Home,
		About:       r.About,
		Blog:        r.Blog,
		BlogPost:    r.BlogPost,
		Events:      r.Events,
		Gallery:     r.Gallery,
		Forum:       r.Forum,
		Privacy:     r.Privacy,
		Terms:       r.Terms,
		NotFound:    r.NotFound,
		ServerError: r.ServerError,

		AdminLogin:          r.AdminLogin,
		AdminForgotPassword: r.AdminForgotPassword,
		AdminResetPassword:  r.AdminResetPassword,
		AdminDashboard:      r.AdminDashboard,
		AdminBlogs:          r.AdminBlogs,
		AdminEvents:         r.AdminEvents,
		AdminGallery:        r.AdminGallery,
		AdminForum:          r.AdminForum,
		AdminTeam:           r.AdminTeam,
		AdminTeamDelete:     r.AdminTeamDelete,
		AdminHome:           r.AdminHome,
		AdminAbout:          r.AdminAbout,
		AdminMembership:     r.AdminMembership,
	}
}

// App is the central orgsite application. It wires together the backend,
// content store, read cache, handlers, middleware, and views.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *content.Store
	Cache  *ReadCache
	Views  ViewFuncs
	Logger *zap.Logger

	backend      backend.Backend
	closeBackend func() error
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	staticDir    string
	now          func() time.Time
	ready        bool
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config: cfg,
		Echo:   e,
		Views:  views,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the backend unless one was injected, then installs the
// middleware and routes. Start calls it when needed; tests call it directly
// and drive a.Echo.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return errors.New("orgsite: SessionSecret is required")
	}

	if a.Logger == nil {
		logger, err := NewLogger(a.Config.Log)
		if err != nil {
			return fmt.Errorf("orgsite: init logger: %w", err)
		}
		a.Logger = logger
	}

	if a.backend == nil {
		if err := a.Config.validate(); err != nil {
			return err
		}
		be, closeFn, err := OpenBackend(a.Config, a.Logger)
		if err != nil {
			return fmt.Errorf("orgsite: open backend: %w", err)
		}
		a.backend = be
		a.closeBackend = closeFn
	}

	a.Store = content.NewStore(a.backend,
		content.WithLogger(a.Logger.Named("content")),
		content.WithClock(a.now),
	)
	a.Cache = NewReadCache(a.Store, a.Config.CacheTTL)
	a.loginLimiter = NewLoginLimiter(a.Config.LoginMaxAttempts, a.Config.LoginWindow)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.ready = true
	return nil
}

// Start sets the app up and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Logger.Info("listening",
		zap.String("addr", a.Config.Addr),
		zap.String("backend", a.Config.Backend),
	)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Backend returns the backend the app talks to.
func (a *App) Backend() backend.Backend {
	return a.backend
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/public/site.css", a.handleStylesheet)
	if a.staticDir != "" {
		e.Static("/public", a.staticDir)
	}
	if lb, ok := a.backend.(*local.Backend); ok {
		e.Static("/storage", lb.StorageDir())
	}
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Public pages
	e.GET("/", a.handleHome)
	e.GET("/about/", a.handleAbout)
	e.GET("/blog/", a.handleBlog)
	e.GET("/blog/:id/", a.handleBlogPost)
	e.GET("/events/", a.handleEvents)
	e.GET("/events/upcoming.xlsx", a.handleEventsWorkbook)
	e.GET("/events/upcoming.csv", a.handleEventsCSV)
	e.GET("/gallery/", a.handleGallery)
	e.GET("/forum/", a.handleForum)
	e.GET("/privacy/", a.handlePrivacy)
	e.GET("/terms/", a.handleTerms)

	// Admin, open
	e.GET("/admin/", handleAdminIndex)
	e.GET("/admin/login/", a.handleAdminLoginPage)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", a.handleAdminLogout)
	e.GET("/admin/forgot-password/", a.handleForgotPasswordPage)
	e.POST("/admin/forgot-password/", a.handleForgotPassword)
	e.GET("/admin/reset-password/", a.handleResetPasswordPage)
	e.POST("/admin/reset-password/", a.handleResetPassword)

	// Admin, guarded
	g := e.Group("/admin", a.requireAdmin)
	g.GET("/dashboard/", a.handleDashboard)

	g.GET("/blogs/", a.handleAdminBlogs)
	g.POST("/blogs/", a.handleSaveBlog)
	g.GET("/blogs/:id/edit/", a.handleAdminBlogs)
	g.POST("/blogs/:id/", a.handleSaveBlog)
	g.POST("/blogs/:id/publish/", a.handleTogglePublished(content.TableBlogs, "/admin/blogs/"))

	g.GET("/events/", a.handleAdminEvents)
	g.POST("/events/", a.handleSaveEvent)
	g.GET("/events/:id/edit/", a.handleAdminEvents)
	g.POST("/events/:id/", a.handleSaveEvent)
	g.POST("/events/:id/publish/", a.handleTogglePublished(content.TableEvents, "/admin/events/"))

	g.GET("/gallery/", a.handleAdminGallery)
	g.POST("/gallery/", a.handleSaveGallery)
	g.GET("/gallery/:id/edit/", a.handleAdminGallery)
	g.POST("/gallery/:id/", a.handleSaveGallery)

	g.GET("/forum/", a.handleAdminForum)
	g.POST("/forum/", a.handleSaveForum)
	g.GET("/forum/:id/edit/", a.handleAdminForum)
	g.POST("/forum/:id/", a.handleSaveForum)

	g.GET("/team/", a.handleAdminTeam)
	g.POST("/team/", a.handleSaveTeamMember)
	g.GET("/team/:id/edit/", a.handleAdminTeam)
	g.POST("/team/:id/", a.handleSaveTeamMember)
	g.GET("/team/:id/delete/", a.handleConfirmDeleteTeamMember)
	g.POST("/team/:id/delete/", a.handleDeleteTeamMember)

	g.GET("/home/", a.handleAdminHome)
	g.POST("/home/", a.handleSaveHome)
	g.GET("/about/", a.handleAdminAbout)
	g.POST("/about/", a.handleSaveAbout)
	g.GET("/membership/", a.handleAdminMembership)
	g.POST("/membership/", a.handleSaveMembership)
}

// Close releases the backend and flushes the logger. Call this when the app
// is shutting down.
func (a *App) Close() error {
	var err error
	if a.closeBackend != nil {
		err = a.closeBackend()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return err
}
