package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"NewsDigest/internal/domain"
)

const defaultPrefix = "News digest"

var htmlTemplate = template.Must(template.New("digest").Parse(`<html>
  <head>
    <style>
      body { font-family: sans-serif; line-height: 1.6; }
      .news-item { margin-bottom: 15px; padding-bottom: 10px; border-bottom: 1px solid #eee; }
      .news-item p { margin: 5px 0; }
      .news-item a { color: #007bff; text-decoration: none; font-weight: bold; }
      .date { font-size: 0.9em; color: #555; }
    </style>
  </head>
  <body>
    <p>{{.Intro}}</p>
{{- range .Items}}
    <div class="news-item">
      <p><a href="{{.Link}}" target="_blank">{{.Title}}</a></p>
      <p class="date">{{.Date}}</p>
    </div>
{{- end}}
  </body>
</html>
`))

type htmlItem struct {
	Title string
	Link  string
	Date  string
}

// Subject renders "<prefix> - YYYY-MM-DD" for the digest date.
func Subject(prefix string, at time.Time) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return fmt.Sprintf("%s - %s", prefix, at.Format(domain.DateLayout))
}

// Build assembles the digest delivered in one notifier call.
func Build(prefix string, now time.Time, loc *time.Location, records []domain.Record) domain.Digest {
	if loc == nil {
		loc = time.UTC
	}
	return domain.Digest{
		Subject:     Subject(prefix, now.In(loc)),
		GeneratedAt: now,
		Records:     records,
	}
}

// RenderHTML renders the digest as an HTML page of linked titles and dates.
// Titles and links are escaped.
func RenderHTML(d domain.Digest) (string, error) {
	items := make([]htmlItem, 0, len(d.Records))
	for _, rec := range d.Records {
		date := rec.DateString()
		if date == "" {
			date = "unknown date"
		}
		items = append(items, htmlItem{Title: rec.Title, Link: rec.Link, Date: date})
	}

	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, struct {
		Intro string
		Items []htmlItem
	}{
		Intro: fmt.Sprintf("%d new items:", len(items)),
		Items: items,
	})
	if err != nil {
		return "", fmt.Errorf("render digest html: %w", err)
	}
	return buf.String(), nil
}

// RenderText renders the plain-text alternative: one title, date and link block per record.
func RenderText(d domain.Digest) string {
	var b strings.Builder
	b.WriteString(d.Subject)
	b.WriteString("\n\n")
	for _, rec := range d.Records {
		fmt.Fprintf(&b, "- %s (%s)\n  %s\n", rec.Title, rec.DateString(), rec.Link)
	}
	return b.String()
}
