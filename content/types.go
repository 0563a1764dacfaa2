// Package content holds the site's typed records and the operations the
// public pages and the admin panel run against a backend.Backend.
package content

import (
	"time"

	"github.com/eringen/orgsite/backend"
)

// Collections.
const (
	TableBlogs      = "blogs"
	TableEvents     = "events"
	TableGallery    = "gallery"
	TableForums     = "forums"
	TableTeam       = "about_team"
	TableHero       = "home_hero"
	TableAbout      = "about_page"
	TableMembership = "membership_settings"
)

// Buckets.
const (
	BucketBlogImages  = "blog-images"
	BucketEventImages = "event-images"
	BucketGallery     = "gallery"
	BucketTeamImages  = "team-images"

	galleryPrefix = "gallery/"
)

// DayLayout is how event dates are stored.
const DayLayout = "2006-01-02"

// GalleryType separates event photos from achievements.
type GalleryType string

const (
	GalleryEvent       GalleryType = "event"
	GalleryAchievement GalleryType = "achievement"
)

// TeamRole groups team members on the about page.
type TeamRole string

const (
	RoleFaculty TeamRole = "faculty"
	RoleMember  TeamRole = "member"
)

// ForumCategories lists the categories offered in the admin forum form.
var ForumCategories = []string{"IT", "Core Electronics", "Career Development"}

// BlogPost is one article.
type BlogPost struct {
	ID          string
	Title       string
	Author      string
	Category    string
	Content     string
	ImageURL    string
	IsPublished bool
	CreatedAt   time.Time
}

func (p BlogPost) encode(create bool) backend.Row {
	r := backend.Row{
		"title":     p.Title,
		"author":    p.Author,
		"category":  p.Category,
		"content":   p.Content,
		"image_url": nullable(p.ImageURL),
	}
	if create {
		r["is_published"] = true
	}
	return r
}

func blogFromRow(r backend.Row) BlogPost {
	return BlogPost{
		ID:          str(r, "id"),
		Title:       str(r, "title"),
		Author:      str(r, "author"),
		Category:    str(r, "category"),
		Content:     str(r, "content"),
		ImageURL:    str(r, "image_url"),
		IsPublished: boolean(r, "is_published"),
		CreatedAt:   timestamp(r, "created_at"),
	}
}

// Event is a dated happening. EventDate carries the calendar day only
// (midnight UTC).
type Event struct {
	ID               string
	Title            string
	Description      string
	EventDate        time.Time
	StartTime        string
	EndTime          string
	Location         string
	Type             string
	RegistrationLink string
	EventImage       string
	IsPublished      bool
	CreatedAt        time.Time
}

// Day formats EventDate the way it is stored; empty for the zero date.
func (e Event) Day() string {
	if e.EventDate.IsZero() {
		return ""
	}
	return e.EventDate.Format(DayLayout)
}

func (e Event) encode(create bool) backend.Row {
	r := backend.Row{
		"title":             e.Title,
		"description":       e.Description,
		"event_date":        e.Day(),
		"start_time":        nullable(e.StartTime),
		"end_time":          nullable(e.EndTime),
		"location":          e.Location,
		"type":              nullable(e.Type),
		"registration_link": nullable(e.RegistrationLink),
		"event_image":       nullable(e.EventImage),
	}
	if create {
		r["is_published"] = true
	}
	return r
}

func eventFromRow(r backend.Row) Event {
	return Event{
		ID:               str(r, "id"),
		Title:            str(r, "title"),
		Description:      str(r, "description"),
		EventDate:        day(r, "event_date"),
		StartTime:        str(r, "start_time"),
		EndTime:          str(r, "end_time"),
		Location:         str(r, "location"),
		Type:             str(r, "type"),
		RegistrationLink: str(r, "registration_link"),
		EventImage:       str(r, "event_image"),
		IsPublished:      boolean(r, "is_published"),
		CreatedAt:        timestamp(r, "created_at"),
	}
}

// GalleryItem is one photo. EventDate and EventLocation are copied from the
// chosen event when the item is created and never follow later edits.
type GalleryItem struct {
	ID            string
	ImageURL      string
	EventName     string
	EventID       string
	EventDate     string
	EventLocation string
	DriveURL      string
	Type          GalleryType
	CreatedAt     time.Time
}

func (g GalleryItem) encode(bool) backend.Row {
	return backend.Row{
		"image_url":      g.ImageURL,
		"event_name":     g.EventName,
		"event_id":       nullable(g.EventID),
		"event_date":     nullable(g.EventDate),
		"event_location": nullable(g.EventLocation),
		"drive_url":      nullable(g.DriveURL),
		"type":           string(g.Type),
	}
}

func galleryFromRow(r backend.Row) GalleryItem {
	t := GalleryType(str(r, "type"))
	if t == "" {
		t = GalleryEvent
	}
	return GalleryItem{
		ID:            str(r, "id"),
		ImageURL:      str(r, "image_url"),
		EventName:     str(r, "event_name"),
		EventID:       str(r, "event_id"),
		EventDate:     str(r, "event_date"),
		EventLocation: str(r, "event_location"),
		DriveURL:      str(r, "drive_url"),
		Type:          t,
		CreatedAt:     timestamp(r, "created_at"),
	}
}

// ForumPost is an announcement. ApplyLink is set only for openings.
type ForumPost struct {
	ID        string
	Title     string
	Content   string
	Category  string
	ApplyLink string
	CreatedAt time.Time
}

// IsOpening reports whether the post accepts applications.
func (f ForumPost) IsOpening() bool { return f.ApplyLink != "" }

func (f ForumPost) encode(bool) backend.Row {
	return backend.Row{
		"title":      f.Title,
		"content":    f.Content,
		"category":   f.Category,
		"apply_link": nullable(f.ApplyLink),
	}
}

func forumFromRow(r backend.Row) ForumPost {
	return ForumPost{
		ID:        str(r, "id"),
		Title:     str(r, "title"),
		Content:   str(r, "content"),
		Category:  str(r, "category"),
		ApplyLink: str(r, "apply_link"),
		CreatedAt: timestamp(r, "created_at"),
	}
}

// TeamMember is a person listed on the about page.
type TeamMember struct {
	ID        string
	Name      string
	Role      TeamRole
	Position  string
	Bio       string
	ImageURL  string
	CreatedAt time.Time
}

func (m TeamMember) encode(bool) backend.Row {
	return backend.Row{
		"name":      m.Name,
		"role":      string(m.Role),
		"position":  m.Position,
		"bio":       m.Bio,
		"image_url": m.ImageURL,
	}
}

func teamFromRow(r backend.Row) TeamMember {
	return TeamMember{
		ID:        str(r, "id"),
		Name:      str(r, "name"),
		Role:      TeamRole(str(r, "role")),
		Position:  str(r, "position"),
		Bio:       str(r, "bio"),
		ImageURL:  str(r, "image_url"),
		CreatedAt: timestamp(r, "created_at"),
	}
}

// HomeHero is the home page banner. There is one row.
type HomeHero struct {
	ID                  string
	Title               string
	Subtitle            string
	PrimaryButtonText   string
	PrimaryButtonLink   string
	SecondaryButtonText string
	SecondaryButtonLink string
}

func (h HomeHero) encode(bool) backend.Row {
	return backend.Row{
		"title":                 h.Title,
		"subtitle":              h.Subtitle,
		"primary_button_text":   h.PrimaryButtonText,
		"primary_button_link":   h.PrimaryButtonLink,
		"secondary_button_text": h.SecondaryButtonText,
		"secondary_button_link": h.SecondaryButtonLink,
	}
}

func heroFromRow(r backend.Row) HomeHero {
	return HomeHero{
		ID:                  str(r, "id"),
		Title:               str(r, "title"),
		Subtitle:            str(r, "subtitle"),
		PrimaryButtonText:   str(r, "primary_button_text"),
		PrimaryButtonLink:   str(r, "primary_button_link"),
		SecondaryButtonText: str(r, "secondary_button_text"),
		SecondaryButtonLink: str(r, "secondary_button_link"),
	}
}

// About section titles, in page order.
var AboutSectionTitles = []string{"Who We Are", "Our Mission", "Our Vision"}

// AboutSection is one block of about page text.
type AboutSection struct {
	ID           string
	SectionTitle string
	Content      string
}

func (s AboutSection) encode(bool) backend.Row {
	return backend.Row{
		"section_title": s.SectionTitle,
		"content":       s.Content,
	}
}

func aboutFromRow(r backend.Row) AboutSection {
	return AboutSection{
		ID:           str(r, "id"),
		SectionTitle: str(r, "section_title"),
		Content:      str(r, "content"),
	}
}

// MembershipID is the id of the only membership_settings row.
const MembershipID = "1"

// MembershipSettings controls the join link in the navbar.
type MembershipSettings struct {
	Enabled   bool
	FormURL   string
	UpdatedAt time.Time
}

func membershipFromRow(r backend.Row) MembershipSettings {
	return MembershipSettings{
		Enabled:   boolean(r, "enabled"),
		FormURL:   str(r, "form_url"),
		UpdatedAt: timestamp(r, "updated_at"),
	}
}
