package views

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/orgsite/content"
)

var testSite = Site{
	Name:        "Robotics Club",
	URL:         "https://club.example",
	Description: "Student robotics club",
	Path:        "/",
	CSRF:        "csrf-token",
	Now:         time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC),
}

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestEveryPageRenders(t *testing.T) {
	r := Must()
	day := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	post := content.BlogPost{ID: "b1", Title: "Hello", Content: "# Hi\n\nbody", CreatedAt: day}
	event := content.Event{ID: "e1", Title: "Workshop", EventDate: day, StartTime: "10:00", EndTime: "12:00"}
	member := content.TeamMember{ID: "t1", Name: "Ada", Role: content.RoleFaculty, Position: "Advisor"}

	pages := map[string]templ.Component{
		"home":                  r.Home(testSite, HomeData{Blogs: []content.BlogPost{post}, Events: []content.Event{event}}),
		"about":                 r.About(testSite, AboutData{Sections: []content.AboutSection{{SectionTitle: "Who We Are", Content: "We build."}}, Faculty: []content.TeamMember{member}}),
		"blog":                  r.Blog(testSite, BlogListData{Posts: []content.BlogPost{post}, Categories: []string{"News"}}),
		"blog_post":             r.BlogPost(testSite, post),
		"events":                r.Events(testSite, EventsData{Upcoming: []content.Event{event}}),
		"gallery":               r.Gallery(testSite, GalleryData{Achievements: []content.GalleryItem{{EventName: "Win", DriveURL: "https://drive.example/x"}}}),
		"forum":                 r.Forum(testSite, ForumData{Posts: []content.ForumPost{{Title: "Join", ApplyLink: "https://forms.example"}}}),
		"privacy":               r.Privacy(testSite),
		"terms":                 r.Terms(testSite),
		"not_found":             r.NotFound(testSite),
		"server_error":          r.ServerError(testSite),
		"admin_login":           r.AdminLogin(testSite, LoginData{Error: "Invalid email or password"}),
		"admin_forgot_password": r.AdminForgotPassword(testSite, ForgotPasswordData{Message: "sent"}),
		"admin_reset_password":  r.AdminResetPassword(testSite, ResetPasswordData{Valid: true}),
		"admin_dashboard":       r.AdminDashboard(testSite, DashboardData{Email: "a@b.c", Counts: []Count{{Label: "Blogs", Href: "/admin/blogs/", N: 2}}}),
		"admin_blogs":           r.AdminBlogs(testSite, EntityPage[content.BlogPost]{Items: []content.BlogPost{post}}),
		"admin_events":          r.AdminEvents(testSite, EventsAdmin{EntityPage: EntityPage[content.Event]{Items: []content.Event{event}}, Upcoming: map[string]bool{"e1": true}}),
		"admin_gallery":         r.AdminGallery(testSite, GalleryAdmin{Events: []content.Event{event}}),
		"admin_forum":           r.AdminForum(testSite, ForumAdmin{}),
		"admin_team":            r.AdminTeam(testSite, EntityPage[content.TeamMember]{Items: []content.TeamMember{member}}),
		"admin_team_delete":     r.AdminTeamDelete(testSite, member),
		"admin_home":            r.AdminHome(testSite, EntityPage[content.HomeHero]{}),
		"admin_about":           r.AdminAbout(testSite, EntityPage[content.AboutSection]{Items: []content.AboutSection{{ID: "who-we-are", SectionTitle: "Who We Are"}}}),
		"admin_membership":      r.AdminMembership(testSite, EntityPage[content.MembershipSettings]{}),
	}

	require.Len(t, pages, len(r.pages), "every template has a renderer")
	for name, c := range pages {
		t.Run(name, func(t *testing.T) {
			html := renderString(t, c)
			assert.Contains(t, html, "<!doctype html>")
			assert.Contains(t, html, "Robotics Club")
		})
	}
}

func TestMarkdownStripsScripts(t *testing.T) {
	out := string(Markdown("**bold** <script>alert(1)</script> [x](javascript:alert(1))"))
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
}

func TestBlogPostRendersSanitisedMarkdown(t *testing.T) {
	r := Must()
	html := renderString(t, r.BlogPost(testSite, content.BlogPost{
		ID:      "b1",
		Title:   "Post",
		Content: "Hello <img src=x onerror=alert(1)>",
	}))
	assert.Contains(t, html, "Hello")
	assert.NotContains(t, html, "onerror")
	assert.Contains(t, html, `"@type":"BlogPosting"`)
	assert.Contains(t, html, "Robotics Club Team")
}

func TestJoinLinkFollowsMembership(t *testing.T) {
	r := Must()

	off := renderString(t, r.Home(testSite, HomeData{}))
	assert.NotContains(t, off, "Join us")

	s := testSite
	s.Membership = content.MembershipSettings{Enabled: true, FormURL: "https://forms.example/join"}
	on := renderString(t, r.Home(s, HomeData{}))
	assert.Contains(t, on, "Join us")
	assert.Contains(t, on, "https://forms.example/join")

	s.Membership.FormURL = ""
	assert.NotContains(t, renderString(t, r.Home(s, HomeData{})), "Join us")
}

func TestAdminNavOnlyForAdmins(t *testing.T) {
	r := Must()
	assert.NotContains(t, renderString(t, r.Home(testSite, HomeData{})), "/admin/logout/")

	s := testSite
	s.Admin = true
	html := renderString(t, r.AdminDashboard(s, DashboardData{}))
	assert.Contains(t, html, "/admin/logout/")
	assert.Contains(t, html, `value="csrf-token"`)
}

func TestFieldErrorsRender(t *testing.T) {
	r := Must()
	html := renderString(t, r.AdminGallery(testSite, GalleryAdmin{
		EntityPage: EntityPage[content.GalleryItem]{
			Form:   content.GalleryItem{Type: content.GalleryAchievement},
			Errors: map[string]string{"drive_url": "Drive link is required for achievements"},
			Error:  "Drive link is required for achievements",
		},
	}))
	assert.Equal(t, 2, strings.Count(html, "Drive link is required for achievements"))
	assert.Contains(t, html, `<option value="achievement" selected>`)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "Hello world", Excerpt("# Hello *world*", 50))
	assert.Equal(t, "abc…", Excerpt("abcdef", 3))
	assert.Equal(t, "Hello", Excerpt("Hello <img src=x onerror=alert(1)>", 50))
	assert.Equal(t, "Q&A night", Excerpt("<b>Q&A</b> night", 50))
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "https://club.example/blog/b1/", buildURL("https://club.example", "blog", "b1"))
	assert.Equal(t, "https://club.example", buildURL("https://club.example"))
}
