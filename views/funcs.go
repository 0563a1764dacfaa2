package views

import (
	"bytes"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/eringen/orgsite/content"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
	)
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Markdown renders md to sanitised HTML. Raw HTML in the source is dropped
// by goldmark and anything that slips through is stripped by the UGC policy.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}

// Excerpt returns the first n runes of s as plain text, with HTML tags and
// markdown markers removed.
func Excerpt(s string, n int) string {
	s = html.UnescapeString(stripper.Sanitize(s))
	s = strings.NewReplacer("#", "", "*", "", "_", "", "`", "", ">", "").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

func timeRange(e content.Event) string {
	switch {
	case e.StartTime != "" && e.EndTime != "":
		return e.StartTime + " – " + e.EndTime
	case e.StartTime != "":
		return e.StartTime
	}
	return ""
}

var funcs = template.FuncMap{
	"markdown":   Markdown,
	"excerpt":    Excerpt,
	"date":       formatDate,
	"readTime":   content.ReadTime,
	"timeRange":  timeRange,
	"year":       func(t time.Time) int { return t.Year() },
	"hasPrefix":  strings.HasPrefix,
	"categories": func() []string { return content.ForumCategories },
	"upcoming": func(e content.Event, now time.Time) bool {
		return content.IsUpcoming(e, now, content.StartOfDay)
	},
}
