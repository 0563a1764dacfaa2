package views

import (
	"encoding/json"
	"html/template"
	"net/url"
	"path"
	"strings"

	"github.com/eringen/orgsite/content"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

func jsonLD(data map[string]any) template.JS {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return template.JS(b)
}

// OrganizationJSONLD produces a Schema.org Organization block for the site.
func OrganizationJSONLD(s Site) template.JS {
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     s.Name,
		"url":      buildURL(s.URL),
	}
	if s.Description != "" {
		data["description"] = s.Description
	}
	return jsonLD(data)
}

// BlogPostingJSONLD produces a Schema.org BlogPosting block for a post.
func BlogPostingJSONLD(s Site, p content.BlogPost) template.JS {
	postURL := buildURL(s.URL, "blog", p.ID)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      p.Title,
		"description":   Excerpt(p.Content, 160),
		"datePublished": p.CreatedAt.Format("2006-01-02"),
		"url":           postURL,
		"author": map[string]string{
			"@type": "Person",
			"name":  p.AuthorOr(s.Name),
		},
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  s.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if p.Category != "" {
		data["keywords"] = p.Category
	}
	if p.ImageURL != "" {
		data["image"] = p.ImageURL
	}
	return jsonLD(data)
}

// EventsJSONLD lists the upcoming events as Schema.org Event items.
func EventsJSONLD(s Site, events []content.Event) template.JS {
	items := make([]map[string]any, 0, len(events))
	for i, e := range events {
		ev := map[string]any{
			"@type":     "Event",
			"name":      e.Title,
			"startDate": e.Day(),
			"url":       buildURL(s.URL, "events"),
		}
		if e.Location != "" {
			ev["location"] = map[string]string{"@type": "Place", "name": e.Location}
		}
		if e.Description != "" {
			ev["description"] = e.Description
		}
		items = append(items, map[string]any{"@type": "ListItem", "position": i + 1, "item": ev})
	}
	return jsonLD(map[string]any{
		"@context":        "https://schema.org",
		"@type":           "ItemList",
		"itemListElement": items,
	})
}
