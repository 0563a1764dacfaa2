package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/orgsite/content"
)

// HomeData feeds the home page.
type HomeData struct {
	Hero   content.HomeHero
	Blogs  []content.BlogPost
	Events []content.Event
}

// AboutData feeds the about page.
type AboutData struct {
	Sections []content.AboutSection
	Faculty  []content.TeamMember
	Members  []content.TeamMember
}

// BlogListData feeds the blog index.
type BlogListData struct {
	Posts      []content.BlogPost
	Categories []string
	Query      string
	Category   string
}

// EventsData feeds the events page.
type EventsData struct {
	Upcoming []content.Event
	Past     []content.Event
}

// GalleryData feeds the gallery page.
type GalleryData struct {
	Events       []content.GalleryItem
	Achievements []content.GalleryItem
}

// ForumData feeds the forum page.
type ForumData struct {
	Posts      []content.ForumPost
	Categories []string
	Category   string
}

func (r *Renderer) Home(s Site, d HomeData) templ.Component {
	return r.render("home", s, Meta{Title: s.Name}, d)
}

func (r *Renderer) About(s Site, d AboutData) templ.Component {
	return r.render("about", s, Meta{Title: "About"}, d)
}

func (r *Renderer) Blog(s Site, d BlogListData) templ.Component {
	return r.render("blog", s, Meta{Title: "Blog"}, d)
}

func (r *Renderer) BlogPost(s Site, p content.BlogPost) templ.Component {
	return r.render("blog_post", s, Meta{
		Title:       p.Title,
		Description: Excerpt(p.Content, 160),
		JSONLD:      BlogPostingJSONLD(s, p),
	}, p)
}

func (r *Renderer) Events(s Site, d EventsData) templ.Component {
	return r.render("events", s, Meta{Title: "Events", JSONLD: EventsJSONLD(s, d.Upcoming)}, d)
}

func (r *Renderer) Gallery(s Site, d GalleryData) templ.Component {
	return r.render("gallery", s, Meta{Title: "Gallery"}, d)
}

func (r *Renderer) Forum(s Site, d ForumData) templ.Component {
	return r.render("forum", s, Meta{Title: "Forum"}, d)
}

func (r *Renderer) Privacy(s Site) templ.Component {
	return r.render("privacy", s, Meta{Title: "Privacy Policy"}, nil)
}

func (r *Renderer) Terms(s Site) templ.Component {
	return r.render("terms", s, Meta{Title: "Terms of Use"}, nil)
}

func (r *Renderer) NotFound(s Site) templ.Component {
	return r.render("not_found", s, Meta{Title: "Page not found"}, nil)
}

func (r *Renderer) ServerError(s Site) templ.Component {
	return r.render("server_error", s, Meta{Title: "Something went wrong"}, nil)
}
