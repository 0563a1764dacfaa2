package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/orgsite/content"
)

// LoginData feeds the login form.
type LoginData struct {
	Email   string
	Message string
	Error   string
}

// ForgotPasswordData feeds the password reset request form.
type ForgotPasswordData struct {
	Email   string
	Message string
	Error   string
}

// ResetPasswordData feeds the new password form. Valid is false when there
// is no recovery session; the form is not shown then.
type ResetPasswordData struct {
	Valid bool
	Error string
}

// DashboardData feeds the admin landing page.
type DashboardData struct {
	Email   string
	Message string
	Counts  []Count
}

// Count is one dashboard tile.
type Count struct {
	Label string
	Href  string
	N     int
}

// EntityPage is an admin page with one edit form above the list of records.
type EntityPage[T any] struct {
	Form    T
	Items   []T
	Errors  map[string]string
	Error   string
	Message string
}

// EventsAdmin adds the upcoming badge to the events page.
type EventsAdmin struct {
	EntityPage[content.Event]
	Upcoming map[string]bool
}

// GalleryAdmin adds the event picker to the gallery page.
type GalleryAdmin struct {
	EntityPage[content.GalleryItem]
	Events []content.Event
}

// ForumAdmin carries the opening checkbox state.
type ForumAdmin struct {
	EntityPage[content.ForumPost]
	Opening bool
}

func (r *Renderer) AdminLogin(s Site, d LoginData) templ.Component {
	return r.render("admin_login", s, Meta{Title: "Admin login"}, d)
}

func (r *Renderer) AdminForgotPassword(s Site, d ForgotPasswordData) templ.Component {
	return r.render("admin_forgot_password", s, Meta{Title: "Forgot password"}, d)
}

func (r *Renderer) AdminResetPassword(s Site, d ResetPasswordData) templ.Component {
	return r.render("admin_reset_password", s, Meta{Title: "Reset password"}, d)
}

func (r *Renderer) AdminDashboard(s Site, d DashboardData) templ.Component {
	return r.render("admin_dashboard", s, Meta{Title: "Dashboard"}, d)
}

func (r *Renderer) AdminBlogs(s Site, d EntityPage[content.BlogPost]) templ.Component {
	return r.render("admin_blogs", s, Meta{Title: "Blogs"}, d)
}

func (r *Renderer) AdminEvents(s Site, d EventsAdmin) templ.Component {
	return r.render("admin_events", s, Meta{Title: "Events"}, d)
}

func (r *Renderer) AdminGallery(s Site, d GalleryAdmin) templ.Component {
	return r.render("admin_gallery", s, Meta{Title: "Gallery"}, d)
}

func (r *Renderer) AdminForum(s Site, d ForumAdmin) templ.Component {
	return r.render("admin_forum", s, Meta{Title: "Forum"}, d)
}

func (r *Renderer) AdminTeam(s Site, d EntityPage[content.TeamMember]) templ.Component {
	return r.render("admin_team", s, Meta{Title: "Team"}, d)
}

func (r *Renderer) AdminTeamDelete(s Site, m content.TeamMember) templ.Component {
	return r.render("admin_team_delete", s, Meta{Title: "Remove team member"}, m)
}

func (r *Renderer) AdminHome(s Site, d EntityPage[content.HomeHero]) templ.Component {
	return r.render("admin_home", s, Meta{Title: "Home page"}, d)
}

func (r *Renderer) AdminAbout(s Site, d EntityPage[content.AboutSection]) templ.Component {
	return r.render("admin_about", s, Meta{Title: "About page"}, d)
}

func (r *Renderer) AdminMembership(s Site, d EntityPage[content.MembershipSettings]) templ.Component {
	return r.render("admin_membership", s, Meta{Title: "Membership"}, d)
}
