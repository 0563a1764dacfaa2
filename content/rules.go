package content

import (
	"strings"
)

// Draft is a record as submitted, plus an optional new image.
type Draft[T any] struct {
	Record T
	Image  *Upload
}

// Rule marks one field as required, optionally only when When holds.
type Rule[T any] struct {
	Field   string
	Message string
	Value   func(Draft[T]) string
	When    func(Draft[T]) bool
}

// Required builds a rule on a string field of the record.
func Required[T any](field, message string, get func(T) string) Rule[T] {
	return Rule[T]{
		Field:   field,
		Message: message,
		Value:   func(d Draft[T]) string { return get(d.Record) },
	}
}

// If restricts the rule to drafts where cond holds.
func (r Rule[T]) If(cond func(T) bool) Rule[T] {
	r.When = func(d Draft[T]) bool { return cond(d.Record) }
	return r
}

// RuleSet is the validation table for one record type.
type RuleSet[T any] []Rule[T]

// Check returns a *ValidationError listing every violated rule, or nil.
func (rs RuleSet[T]) Check(d Draft[T]) error {
	var v ValidationError
	for _, r := range rs {
		if r.When != nil && !r.When(d) {
			continue
		}
		if strings.TrimSpace(r.Value(d)) == "" {
			v.Fields = append(v.Fields, FieldError{Field: r.Field, Message: r.Message})
		}
	}
	if len(v.Fields) == 0 {
		return nil
	}
	return &v
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned before anything is sent to the backend.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// imageRequired accepts either a new upload or an already stored URL.
func imageRequired[T any](field, message string, current func(T) string) Rule[T] {
	return Rule[T]{
		Field:   field,
		Message: message,
		Value: func(d Draft[T]) string {
			if d.Image != nil {
				return "upload"
			}
			return current(d.Record)
		},
	}
}

var BlogRules = RuleSet[BlogPost]{
	Required("title", "Title is required", func(p BlogPost) string { return p.Title }),
	Required("author", "Author is required", func(p BlogPost) string { return p.Author }),
	Required("category", "Category is required", func(p BlogPost) string { return p.Category }),
	Required("content", "Content is required", func(p BlogPost) string { return p.Content }),
}

var EventRules = RuleSet[Event]{
	Required("title", "Title is required", func(e Event) string { return e.Title }),
	Required("event_date", "Date is required", Event.Day),
}

var GalleryRules = RuleSet[GalleryItem]{
	imageRequired("image", "Image is required", func(g GalleryItem) string { return g.ImageURL }),
	Required("event_name", "Event name is required", func(g GalleryItem) string { return g.EventName }),
	Required("type", "Type is required", func(g GalleryItem) string { return string(g.Type) }),
	Required("drive_url", "Drive link is required for achievements", func(g GalleryItem) string { return g.DriveURL }).
		If(func(g GalleryItem) bool { return g.Type == GalleryAchievement }),
}

var ForumRules = RuleSet[ForumPost]{
	Required("title", "Title is required", func(f ForumPost) string { return f.Title }),
	Required("content", "Content is required", func(f ForumPost) string { return f.Content }),
}

// ForumOpeningRules applies when the post is marked as an opening.
var ForumOpeningRules = append(ForumRules[:len(ForumRules):len(ForumRules)],
	Required("apply_link", "Please enter the application form link", func(f ForumPost) string { return f.ApplyLink }),
)

var TeamRules = RuleSet[TeamMember]{
	Required("name", "Name is required", func(m TeamMember) string { return m.Name }),
	Required("position", "Position is required", func(m TeamMember) string { return m.Position }),
	Required("role", "Role is required", func(m TeamMember) string { return string(m.Role) }),
}

var HeroRules = RuleSet[HomeHero]{
	Required("title", "Title is required", func(h HomeHero) string { return h.Title }),
}

var AboutRules = RuleSet[AboutSection]{
	Required("section_title", "Section title is required", func(s AboutSection) string { return s.SectionTitle }),
}

var MembershipRules = RuleSet[MembershipSettings]{
	Required("form_url", "Form link is required when membership is enabled", func(m MembershipSettings) string { return m.FormURL }).
		If(func(m MembershipSettings) bool { return m.Enabled }),
}
