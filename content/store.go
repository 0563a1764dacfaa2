package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/orgsite/backend"
)

// Store runs typed reads and writes against a backend.
type Store struct {
	be     backend.Backend
	logger *zap.Logger
	now    func() time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for best-effort cleanup warnings.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore wraps be.
func NewStore(be backend.Backend, opts ...StoreOption) *Store {
	s := &Store{be: be, logger: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Backend returns the wrapped backend.
func (s *Store) Backend() backend.Backend { return s.be }

// Now is the store's clock.
func (s *Store) Now() time.Time { return s.now() }

func decode[T any](rows []backend.Row, from func(backend.Row) T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, from(r))
	}
	return out
}

func (s *Store) one(ctx context.Context, table, id string) (backend.Row, error) {
	if id == "" {
		return nil, backend.ErrNotFound
	}
	rows, err := s.be.Select(ctx, table, backend.All().Eq("id", id).Take(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, backend.ErrNotFound
	}
	return rows[0], nil
}

// ---- blogs

// ListBlogs returns posts newest first.
func (s *Store) ListBlogs(ctx context.Context, publishedOnly bool) ([]BlogPost, error) {
	q := backend.All().OrderBy("created_at", true)
	if publishedOnly {
		q = q.Eq("is_published", true)
	}
	rows, err := s.be.Select(ctx, TableBlogs, q)
	if err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	return decode(rows, blogFromRow), nil
}

// LatestBlogs returns the n newest published posts.
func (s *Store) LatestBlogs(ctx context.Context, n int) ([]BlogPost, error) {
	rows, err := s.be.Select(ctx, TableBlogs, backend.All().Eq("is_published", true).OrderBy("created_at", true).Take(n))
	if err != nil {
		return nil, fmt.Errorf("latest blogs: %w", err)
	}
	return decode(rows, blogFromRow), nil
}

// GetBlog returns one post. Hidden posts are reported as not found when
// publishedOnly is set.
func (s *Store) GetBlog(ctx context.Context, id string, publishedOnly bool) (BlogPost, error) {
	r, err := s.one(ctx, TableBlogs, id)
	if err != nil {
		return BlogPost{}, err
	}
	p := blogFromRow(r)
	if publishedOnly && !p.IsPublished {
		return BlogPost{}, backend.ErrNotFound
	}
	return p, nil
}

// SaveBlog creates or edits a post. New posts are always published.
func (s *Store) SaveBlog(ctx context.Context, d Draft[BlogPost]) (string, error) {
	return Form[BlogPost]{
		Table:    TableBlogs,
		Bucket:   BucketBlogImages,
		Rules:    BlogRules,
		ID:       func(p BlogPost) string { return p.ID },
		Encode:   BlogPost.encode,
		SetImage: func(p *BlogPost, url string) { p.ImageURL = url },
	}.with(s).Submit(ctx, d)
}

// ---- events

// ListEvents returns events by date, soonest first.
func (s *Store) ListEvents(ctx context.Context, publishedOnly bool) ([]Event, error) {
	q := backend.All().OrderBy("event_date", false)
	if publishedOnly {
		q = q.Eq("is_published", true)
	}
	rows, err := s.be.Select(ctx, TableEvents, q)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return decode(rows, eventFromRow), nil
}

// UpcomingEvents returns up to n published events dated today or later.
func (s *Store) UpcomingEvents(ctx context.Context, n int) ([]Event, error) {
	today := s.now().Format(DayLayout)
	q := backend.All().
		Eq("is_published", true).
		Where("event_date", backend.Gte, today).
		OrderBy("event_date", false)
	if n > 0 {
		q = q.Take(n)
	}
	rows, err := s.be.Select(ctx, TableEvents, q)
	if err != nil {
		return nil, fmt.Errorf("upcoming events: %w", err)
	}
	return decode(rows, eventFromRow), nil
}

// GetEvent returns one event.
func (s *Store) GetEvent(ctx context.Context, id string) (Event, error) {
	r, err := s.one(ctx, TableEvents, id)
	if err != nil {
		return Event{}, err
	}
	return eventFromRow(r), nil
}

// EventChoices lists events for the gallery form, most recent first.
func (s *Store) EventChoices(ctx context.Context) ([]Event, error) {
	rows, err := s.be.Select(ctx, TableEvents, backend.All().
		Pick("id", "title", "event_date", "location").
		OrderBy("event_date", true))
	if err != nil {
		return nil, fmt.Errorf("event choices: %w", err)
	}
	return decode(rows, eventFromRow), nil
}

// SaveEvent creates or edits an event. New events are always published.
func (s *Store) SaveEvent(ctx context.Context, d Draft[Event]) (string, error) {
	return Form[Event]{
		Table:    TableEvents,
		Bucket:   BucketEventImages,
		Rules:    EventRules,
		ID:       func(e Event) string { return e.ID },
		Encode:   Event.encode,
		SetImage: func(e *Event, url string) { e.EventImage = url },
	}.with(s).Submit(ctx, d)
}

// SetPublished flips the visibility of a blog post or event. current is the
// state the operator saw; the new value is its negation.
func (s *Store) SetPublished(ctx context.Context, table, id string, current bool) error {
	if table != TableBlogs && table != TableEvents {
		return fmt.Errorf("set published: %s has no publish flag", table)
	}
	if err := s.be.Update(ctx, table, id, backend.Row{"is_published": !current}); err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	return nil
}

// ---- gallery

// ListGallery returns every photo, newest first.
func (s *Store) ListGallery(ctx context.Context) ([]GalleryItem, error) {
	rows, err := s.be.Select(ctx, TableGallery, backend.All().OrderBy("created_at", true))
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}
	return decode(rows, galleryFromRow), nil
}

// GetGalleryItem returns one photo.
func (s *Store) GetGalleryItem(ctx context.Context, id string) (GalleryItem, error) {
	r, err := s.one(ctx, TableGallery, id)
	if err != nil {
		return GalleryItem{}, err
	}
	return galleryFromRow(r), nil
}

// SaveGallery creates or edits a photo. When an event is chosen on create,
// its date and location are copied onto the item.
func (s *Store) SaveGallery(ctx context.Context, d Draft[GalleryItem]) (string, error) {
	if err := GalleryRules.Check(d); err != nil {
		return "", err
	}
	if d.Record.Type != GalleryAchievement {
		d.Record.DriveURL = ""
	}
	if d.Record.ID == "" && d.Record.EventID != "" {
		ev, err := s.GetEvent(ctx, d.Record.EventID)
		if err != nil {
			return "", fmt.Errorf("gallery event: %w", err)
		}
		d.Record.EventDate = ev.Day()
		d.Record.EventLocation = ev.Location
	}
	return Form[GalleryItem]{
		Table:    TableGallery,
		Bucket:   BucketGallery,
		Prefix:   galleryPrefix,
		Rules:    GalleryRules,
		ID:       func(g GalleryItem) string { return g.ID },
		Encode:   GalleryItem.encode,
		SetImage: func(g *GalleryItem, url string) { g.ImageURL = url },
	}.with(s).Submit(ctx, d)
}

// ---- forum

// ListForum returns announcements newest first.
func (s *Store) ListForum(ctx context.Context) ([]ForumPost, error) {
	rows, err := s.be.Select(ctx, TableForums, backend.All().OrderBy("created_at", true))
	if err != nil {
		return nil, fmt.Errorf("list forum: %w", err)
	}
	return decode(rows, forumFromRow), nil
}

// GetForumPost returns one announcement.
func (s *Store) GetForumPost(ctx context.Context, id string) (ForumPost, error) {
	r, err := s.one(ctx, TableForums, id)
	if err != nil {
		return ForumPost{}, err
	}
	return forumFromRow(r), nil
}

// SaveForum creates or edits an announcement. Openings must carry an apply
// link; other posts never keep one.
func (s *Store) SaveForum(ctx context.Context, d Draft[ForumPost], opening bool) (string, error) {
	rules := ForumRules
	if opening {
		rules = ForumOpeningRules
	} else {
		d.Record.ApplyLink = ""
	}
	return Form[ForumPost]{
		Table:  TableForums,
		Rules:  rules,
		ID:     func(f ForumPost) string { return f.ID },
		Encode: ForumPost.encode,
	}.with(s).Submit(ctx, d)
}

// ---- team

// ListTeam returns team members oldest first.
func (s *Store) ListTeam(ctx context.Context) ([]TeamMember, error) {
	rows, err := s.be.Select(ctx, TableTeam, backend.All().OrderBy("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}
	return decode(rows, teamFromRow), nil
}

// GetTeamMember returns one member.
func (s *Store) GetTeamMember(ctx context.Context, id string) (TeamMember, error) {
	r, err := s.one(ctx, TableTeam, id)
	if err != nil {
		return TeamMember{}, err
	}
	return teamFromRow(r), nil
}

// SaveTeamMember creates or edits a member.
func (s *Store) SaveTeamMember(ctx context.Context, d Draft[TeamMember]) (string, error) {
	return Form[TeamMember]{
		Table:    TableTeam,
		Bucket:   BucketTeamImages,
		Rules:    TeamRules,
		ID:       func(m TeamMember) string { return m.ID },
		Encode:   TeamMember.encode,
		SetImage: func(m *TeamMember, url string) { m.ImageURL = url },
	}.with(s).Submit(ctx, d)
}

// DeleteTeamMember removes a member for good.
func (s *Store) DeleteTeamMember(ctx context.Context, id string) error {
	if id == "" {
		return backend.ErrNotFound
	}
	if err := s.be.Delete(ctx, TableTeam, id); err != nil {
		return fmt.Errorf("delete team member: %w", err)
	}
	return nil
}

// ---- singletons

// Hero returns the home banner. A missing row yields the zero value.
func (s *Store) Hero(ctx context.Context) (HomeHero, error) {
	rows, err := s.be.Select(ctx, TableHero, backend.All().Take(1))
	if err != nil {
		return HomeHero{}, fmt.Errorf("home hero: %w", err)
	}
	if len(rows) == 0 {
		return HomeHero{}, nil
	}
	return heroFromRow(rows[0]), nil
}

// SaveHero writes the banner in place, creating it on first save.
func (s *Store) SaveHero(ctx context.Context, h HomeHero) error {
	_, err := Form[HomeHero]{
		Table:  TableHero,
		Rules:  HeroRules,
		ID:     func(h HomeHero) string { return h.ID },
		Encode: HomeHero.encode,
	}.with(s).Submit(ctx, Draft[HomeHero]{Record: h})
	return err
}

// AboutSections returns the about page text in page order. Known titles come
// first; any other sections follow in backend order.
func (s *Store) AboutSections(ctx context.Context) ([]AboutSection, error) {
	rows, err := s.be.Select(ctx, TableAbout, backend.All())
	if err != nil {
		return nil, fmt.Errorf("about sections: %w", err)
	}
	sections := decode(rows, aboutFromRow)
	rank := func(title string) int {
		for i, t := range AboutSectionTitles {
			if strings.EqualFold(t, title) {
				return i
			}
		}
		return len(AboutSectionTitles)
	}
	ordered := make([]AboutSection, 0, len(sections))
	for r := 0; r <= len(AboutSectionTitles); r++ {
		for _, sec := range sections {
			if rank(sec.SectionTitle) == r {
				ordered = append(ordered, sec)
			}
		}
	}
	return ordered, nil
}

// SaveAbout writes every section. All sections are validated before the
// first write.
func (s *Store) SaveAbout(ctx context.Context, sections []AboutSection) error {
	var all ValidationError
	for _, sec := range sections {
		if err := AboutRules.Check(Draft[AboutSection]{Record: sec}); err != nil {
			var v *ValidationError
			if errors.As(err, &v) {
				all.Fields = append(all.Fields, v.Fields...)
			}
		}
	}
	if len(all.Fields) > 0 {
		return &all
	}
	form := Form[AboutSection]{
		Table:  TableAbout,
		Rules:  AboutRules,
		ID:     func(a AboutSection) string { return a.ID },
		Encode: AboutSection.encode,
	}.with(s)
	for _, sec := range sections {
		if _, err := form.Submit(ctx, Draft[AboutSection]{Record: sec}); err != nil {
			return err
		}
	}
	return nil
}

// Membership reads the settings row. A missing row means disabled.
func (s *Store) Membership(ctx context.Context) (MembershipSettings, error) {
	rows, err := s.be.Select(ctx, TableMembership, backend.All().Eq("id", MembershipID).Take(1))
	if err != nil {
		return MembershipSettings{}, fmt.Errorf("membership settings: %w", err)
	}
	if len(rows) == 0 {
		return MembershipSettings{}, nil
	}
	return membershipFromRow(rows[0]), nil
}

// SaveMembership updates the settings row.
func (s *Store) SaveMembership(ctx context.Context, m MembershipSettings) error {
	if err := MembershipRules.Check(Draft[MembershipSettings]{Record: m}); err != nil {
		return err
	}
	err := s.be.Update(ctx, TableMembership, MembershipID, backend.Row{
		"enabled":    m.Enabled,
		"form_url":   strings.TrimSpace(m.FormURL),
		"updated_at": s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("save membership: %w", err)
	}
	return nil
}

func (f Form[T]) with(s *Store) Form[T] {
	f.Backend = s.be
	f.Logger = s.logger
	f.Now = s.now
	return f
}

// ReadTime estimates minutes to read content: three per started thousand
// characters.
func ReadTime(content string) int {
	n := len([]rune(content))
	if n == 0 {
		return 0
	}
	return (n + 999) / 1000 * 3
}

// AuthorOr returns the post's author, or site + " Team" when unset.
func (p BlogPost) AuthorOr(site string) string {
	if strings.TrimSpace(p.Author) != "" {
		return p.Author
	}
	return site + " Team"
}

// CategoryOrDefault returns the category, "General" when unset.
func (p BlogPost) CategoryOrDefault() string {
	if strings.TrimSpace(p.Category) != "" {
		return p.Category
	}
	return "General"
}
