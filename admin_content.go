package orgsite

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/orgsite/backend"
	"github.com/eringen/orgsite/content"
	"github.com/eringen/orgsite/views"
)

// formFailure turns a failed submission into the status, per-field messages
// and banner text the form is re-rendered with. Validation failures list
// every missing field; backend failures show the backend's own message.
func (a *App) formFailure(err error, fallback string) (int, map[string]string, string) {
	var v *content.ValidationError
	if errors.As(err, &v) {
		fields := make(map[string]string, len(v.Fields))
		for _, f := range v.Fields {
			fields[f.Field] = f.Message
		}
		return http.StatusUnprocessableEntity, fields, v.Error()
	}
	a.Logger.Warn("admin write failed", zap.Error(err))
	code := http.StatusInternalServerError
	var be *backend.Error
	if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
		code = be.Status
	}
	return code, nil, backend.Message(err, fallback)
}

// loadEdit fetches the record named by the :id route param. Routes without
// one get the zero value; an unknown id is a 404.
func loadEdit[T any](c echo.Context, get func(context.Context, string) (T, error)) (T, error) {
	var zero T
	id := c.Param("id")
	if id == "" {
		return zero, nil
	}
	rec, err := get(c.Request().Context(), id)
	if errors.Is(err, backend.ErrNotFound) {
		return zero, echo.ErrNotFound
	}
	return rec, err
}

// listFor loads the records shown under an admin form. A failed read is
// reported on the page rather than failing the request.
func listFor[T any](a *App, page *views.EntityPage[T], load func() ([]T, error), fallback string) {
	items, err := load()
	if err != nil {
		a.Logger.Warn("admin list failed", zap.Error(err))
		if page.Error == "" {
			page.Error = backend.Message(err, fallback)
		}
		return
	}
	page.Items = items
}

// saved flushes the read cache and redirects to the list.
func (a *App) saved(c echo.Context, to, msg string) error {
	a.Cache.Flush()
	return redirectMsg(c, to, msg)
}

// ---- blogs

func (a *App) handleAdminBlogs(c echo.Context) error {
	p, err := loadEdit(c, func(ctx context.Context, id string) (content.BlogPost, error) {
		return a.Store.GetBlog(ctx, id, false)
	})
	if err != nil {
		return err
	}
	return a.renderAdminBlogs(c, http.StatusOK, views.EntityPage[content.BlogPost]{Form: p, Message: c.QueryParam("msg")})
}

func (a *App) renderAdminBlogs(c echo.Context, code int, page views.EntityPage[content.BlogPost]) error {
	listFor(a, &page, func() ([]content.BlogPost, error) {
		return a.Store.ListBlogs(c.Request().Context(), false)
	}, "Could not load posts")
	return RenderStatus(c, code, a.Views.AdminBlogs(a.site(c), page))
}

func (a *App) handleSaveBlog(c echo.Context) error {
	p := content.BlogPost{
		ID:       c.Param("id"),
		Title:    formString(c, "title"),
		Author:   formString(c, "author"),
		Category: formString(c, "category"),
		Content:  c.FormValue("content"),
		ImageURL: formString(c, "image_url"),
	}
	img, err := formImage(c)
	if err != nil {
		err = withRuleErrors(err, content.BlogRules, p)
	} else {
		_, err = a.Store.SaveBlog(c.Request().Context(), content.Draft[content.BlogPost]{Record: p, Image: img})
	}
	if err != nil {
		code, fields, msg := a.formFailure(err, "Could not save the post")
		return a.renderAdminBlogs(c, code, views.EntityPage[content.BlogPost]{Form: p, Errors: fields, Error: msg})
	}
	return a.saved(c, "/admin/blogs/", "Post saved")
}

// handleTogglePublished flips is_published on table. The form posts the
// state the operator saw as "current".
func (a *App) handleTogglePublished(table, back string) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := a.Store.SetPublished(c.Request().Context(), table, c.Param("id"), formBool(c, "current"))
		if err != nil {
			a.Logger.Warn("publish toggle failed", zap.String("table", table), zap.Error(err))
			return redirectMsg(c, back, backend.Message(err, "Could not change visibility"))
		}
		return a.saved(c, back, "Visibility updated")
	}
}

// ---- events

func (a *App) handleAdminEvents(c echo.Context) error {
	e, err := loadEdit(c, a.Store.GetEvent)
	if err != nil {
		return err
	}
	page := views.EventsAdmin{EntityPage: views.EntityPage[content.Event]{Form: e, Message: c.QueryParam("msg")}}
	return a.renderAdminEvents(c, http.StatusOK, page)
}

func (a *App) renderAdminEvents(c echo.Context, code int, page views.EventsAdmin) error {
	listFor(a, &page.EntityPage, func() ([]content.Event, error) {
		return a.Store.ListEvents(c.Request().Context(), false)
	}, "Could not load events")
	now := a.now()
	page.Upcoming = make(map[string]bool, len(page.Items))
	for _, e := range page.Items {
		page.Upcoming[e.ID] = content.IsUpcoming(e, now, content.Instant)
	}
	return RenderStatus(c, code, a.Views.AdminEvents(a.site(c), page))
}

func (a *App) handleSaveEvent(c echo.Context) error {
	e := content.Event{
		ID:               c.Param("id"),
		Title:            formString(c, "title"),
		Description:      formString(c, "description"),
		StartTime:        formString(c, "start_time"),
		EndTime:          formString(c, "end_time"),
		Location:         formString(c, "location"),
		Type:             formString(c, "type"),
		RegistrationLink: formString(c, "registration_link"),
		EventImage:       formString(c, "event_image"),
	}
	if d, err := content.ParseDay(formString(c, "event_date")); err == nil {
		e.EventDate = d
	}
	img, err := formImage(c)
	if err != nil {
		err = withRuleErrors(err, content.EventRules, e)
	} else {
		_, err = a.Store.SaveEvent(c.Request().Context(), content.Draft[content.Event]{Record: e, Image: img})
	}
	if err != nil {
		code, fields, msg := a.formFailure(err, "Could not save the event")
		return a.renderAdminEvents(c, code, views.EventsAdmin{
			EntityPage: views.EntityPage[content.Event]{Form: e, Errors: fields, Error: msg},
		})
	}
	return a.saved(c, "/admin/events/", "Event saved")
}

// ---- gallery

func (a *App) handleAdminGallery(c echo.Context) error {
	g, err := loadEdit(c, a.Store.GetGalleryItem)
	if err != nil {
		return err
	}
	if g.Type == "" {
		g.Type = content.GalleryEvent
	}
	page := views.GalleryAdmin{EntityPage: views.EntityPage[content.GalleryItem]{Form: g, Message: c.QueryParam("msg")}}
	return a.renderAdminGallery(c, http.StatusOK, page)
}

func (a *App) renderAdminGallery(c echo.Context, code int, page views.GalleryAdmin) error {
	ctx := c.Request().Context()
	listFor(a, &page.EntityPage, func() ([]content.GalleryItem, error) {
		return a.Store.ListGallery(ctx)
	}, "Could not load the gallery")
	events, err := a.Store.EventChoices(ctx)
	if err != nil {
		a.Logger.Warn("event choices failed", zap.Error(err))
	}
	page.Events = events
	return RenderStatus(c, code, a.Views.AdminGallery(a.site(c), page))
}

func (a *App) handleSaveGallery(c echo.Context) error {
	ctx := c.Request().Context()
	// edits keep the event link and copied details from creation
	g, err := loadEdit(c, a.Store.GetGalleryItem)
	if err != nil {
		return err
	}
	if g.ID == "" {
		g.EventID = formString(c, "event_id")
	}
	g.EventName = formString(c, "event_name")
	g.Type = content.GalleryType(formString(c, "type"))
	g.DriveURL = formString(c, "drive_url")
	g.ImageURL = formString(c, "image_url")

	img, err := formImage(c)
	if err != nil {
		err = withRuleErrors(err, content.GalleryRules, g)
	} else {
		_, err = a.Store.SaveGallery(ctx, content.Draft[content.GalleryItem]{Record: g, Image: img})
	}
	if err != nil {
		code, fields, msg := a.formFailure(err, "Could not save the photo")
		return a.renderAdminGallery(c, code, views.GalleryAdmin{
			EntityPage: views.EntityPage[content.GalleryItem]{Form: g, Errors: fields, Error: msg},
		})
	}
	return a.saved(c, "/admin/gallery/", "Photo saved")
}

// ---- forum

func (a *App) handleAdminForum(c echo.Context) error {
	p, err := loadEdit(c, a.Store.GetForumPost)
	if err != nil {
		return err
	}
	page := views.ForumAdmin{
		EntityPage: views.EntityPage[content.ForumPost]{Form: p, Message: c.QueryParam("msg")},
		Opening:    p.IsOpening(),
	}
	return a.renderAdminForum(c, http.StatusOK, page)
}

func (a *App) renderAdminForum(c echo.Context, code int, page views.ForumAdmin) error {
	listFor(a, &page.EntityPage, func() ([]content.ForumPost, error) {
		return a.Store.ListForum(c.Request().Context())
	}, "Could not load the forum")
	return RenderStatus(c, code, a.Views.AdminForum(a.site(c), page))
}

func (a *App) handleSaveForum(c echo.Context) error {
	p := content.ForumPost{
		ID:        c.Param("id"),
		Title:     formString(c, "title"),
		Content:   c.FormValue("content"),
		Category:  formString(c, "category"),
		ApplyLink: formString(c, "apply_link"),
	}
	opening := formBool(c, "opening")
	if _, err := a.Store.SaveForum(c.Request().Context(), content.Draft[content.ForumPost]{Record: p}, opening); err != nil {
		code, fields, msg := a.formFailure(err, "Could not save the announcement")
		return a.renderAdminForum(c, code, views.ForumAdmin{
			EntityPage: views.EntityPage[content.ForumPost]{Form: p, Errors: fields, Error: msg},
			Opening:    opening,
		})
	}
	return a.saved(c, "/admin/forum/", "Announcement saved")
}

// ---- team

func (a *App) handleAdminTeam(c echo.Context) error {
	m, err := loadEdit(c, a.Store.GetTeamMember)
	if err != nil {
		return err
	}
	if m.Role == "" {
		m.Role = content.RoleMember
	}
	return a.renderAdminTeam(c, http.StatusOK, views.EntityPage[content.TeamMember]{Form: m, Message: c.QueryParam("msg")})
}

func (a *App) renderAdminTeam(c echo.Context, code int, page views.EntityPage[content.TeamMember]) error {
	listFor(a, &page, func() ([]content.TeamMember, error) {
		return a.Store.ListTeam(c.Request().Context())
	}, "Could not load the team")
	return RenderStatus(c, code, a.Views.AdminTeam(a.site(c), page))
}

func (a *App) handleSaveTeamMember(c echo.Context) error {
	m := content.TeamMember{
		ID:       c.Param("id"),
		Name:     formString(c, "name"),
		Role:     content.TeamRole(formString(c, "role")),
		Position: formString(c, "position"),
		Bio:      formString(c, "bio"),
		ImageURL: formString(c, "image_url"),
	}
	img, err := formImage(c)
	if err != nil {
		err = withRuleErrors(err, content.TeamRules, m)
	} else {
		_, err = a.Store.SaveTeamMember(c.Request().Context(), content.Draft[content.TeamMember]{Record: m, Image: img})
	}
	if err != nil {
		code, fields, msg := a.formFailure(err, "Could not save the team member")
		return a.renderAdminTeam(c, code, views.EntityPage[content.TeamMember]{Form: m, Errors: fields, Error: msg})
	}
	return a.saved(c, "/admin/team/", "Team member saved")
}

func (a *App) handleConfirmDeleteTeamMember(c echo.Context) error {
	m, err := loadEdit(c, a.Store.GetTeamMember)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminTeamDelete(a.site(c), m))
}

// handleDeleteTeamMember deletes only when the confirmation form was posted.
func (a *App) handleDeleteTeamMember(c echo.Context) error {
	id := c.Param("id")
	if formString(c, "confirm") != "yes" {
		return c.Redirect(http.StatusSeeOther, "/admin/team/"+id+"/delete/")
	}
	if err := a.Store.DeleteTeamMember(c.Request().Context(), id); err != nil {
		a.Logger.Warn("delete team member failed", zap.String("id", id), zap.Error(err))
		return redirectMsg(c, "/admin/team/", backend.Message(err, "Could not remove the team member"))
	}
	return a.saved(c, "/admin/team/", "Team member removed")
}

// ---- singletons

func (a *App) handleAdminHome(c echo.Context) error {
	hero, err := a.Store.Hero(c.Request().Context())
	page := views.EntityPage[content.HomeHero]{Form: hero, Message: c.QueryParam("msg")}
	if err != nil {
		a.Logger.Warn("load home hero failed", zap.Error(err))
		page.Error = backend.Message(err, "Could not load the home page")
	}
	return Render(c, a.Views.AdminHome(a.site(c), page))
}

func (a *App) handleSaveHome(c echo.Context) error {
	h := content.HomeHero{
		ID:                  formString(c, "id"),
		Title:               formString(c, "title"),
		Subtitle:            formString(c, "subtitle"),
		PrimaryButtonText:   formString(c, "primary_button_text"),
		PrimaryButtonLink:   formString(c, "primary_button_link"),
		SecondaryButtonText: formString(c, "secondary_button_text"),
		SecondaryButtonLink: formString(c, "secondary_button_link"),
	}
	if err := a.Store.SaveHero(c.Request().Context(), h); err != nil {
		code, fields, msg := a.formFailure(err, "Could not save the home page")
		return RenderStatus(c, code, a.Views.AdminHome(a.site(c), views.EntityPage[content.HomeHero]{Form: h, Errors: fields, Error: msg}))
	}
	return a.saved(c, "/admin/home/", "Home page saved")
}

func (a *App) handleAdminAbout(c echo.Context) error {
	page := views.EntityPage[content.AboutSection]{Message: c.QueryParam("msg")}
	listFor(a, &page, func() ([]content.AboutSection, error) {
		return a.Store.AboutSections(c.Request().Context())
	}, "Could not load the about page")
	return Render(c, a.Views.AdminAbout(a.site(c), page))
}

// handleSaveAbout reads the repeated id/section_title/content fields, one
// triple per section.
func (a *App) handleSaveAbout(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ids, titles, bodies := form["id"], form["section_title"], form["content"]
	if len(titles) != len(ids) || len(bodies) != len(ids) {
		return echo.NewHTTPError(http.StatusBadRequest, "mismatched about sections")
	}
	sections := make([]content.AboutSection, len(ids))
	for i := range ids {
		sections[i] = content.AboutSection{ID: ids[i], SectionTitle: titles[i], Content: bodies[i]}
	}
	if err := a.Store.SaveAbout(c.Request().Context(), sections); err != nil {
		code, fields, msg := a.formFailure(err, "Could not save the about page")
		return RenderStatus(c, code, a.Views.AdminAbout(a.site(c), views.EntityPage[content.AboutSection]{
			Items: sections, Errors: fields, Error: msg,
		}))
	}
	return a.saved(c, "/admin/about/", "About page saved")
}

func (a *App) handleAdminMembership(c echo.Context) error {
	m, err := a.Store.Membership(c.Request().Context())
	page := views.EntityPage[content.MembershipSettings]{Form: m, Message: c.QueryParam("msg")}
	if err != nil {
		a.Logger.Warn("load membership failed", zap.Error(err))
		page.Error = backend.Message(err, "Could not load membership settings")
	}
	return Render(c, a.Views.AdminMembership(a.site(c), page))
}

func (a *App) handleSaveMembership(c echo.Context) error {
	m := content.MembershipSettings{
		Enabled: formBool(c, "enabled"),
		FormURL: formString(c, "form_url"),
	}
	if err := a.Store.SaveMembership(c.Request().Context(), m); err != nil {
		code, fields, msg := a.formFailure(err, "Could not save membership settings")
		return RenderStatus(c, code, a.Views.AdminMembership(a.site(c), views.EntityPage[content.MembershipSettings]{
			Form: m, Errors: fields, Error: msg,
		}))
	}
	return a.saved(c, "/admin/membership/", "Membership settings saved")
}
