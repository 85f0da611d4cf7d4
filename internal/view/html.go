package view

import (
	"fmt"
	"html"
	"strings"

	"github.com/MeKo-Tech/lochistory/internal/datestr"
	"github.com/MeKo-Tech/lochistory/internal/types"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoEvents is appended when a day or geohash query returns nothing.
const NoEvents = "No events found."

// Breadcrumbs renders the heading: a root link, then one link per date prefix
// joined by "-".
func Breadcrumbs(parts []string) string {
	var b strings.Builder
	b.WriteString("<h2><a href='/#/'>~/</a> ")
	for i, p := range parts {
		if i > 0 {
			b.WriteString("-")
		}
		fmt.Fprintf(&b, "<a href='/#/%s'>%s</a>", strings.Join(parts[:i+1], "-"), html.EscapeString(p))
	}
	b.WriteString("</h2>")
	return b.String()
}

// Pager renders links to the previous and next period.
func Pager(d datestr.Date) string {
	prev, next := d.Prev().String(), d.Next().String()
	return fmt.Sprintf("<p class='pager'><a href='/#/%s'>&larr; %s</a> <a href='/#/%s'>%s &rarr;</a></p>",
		prev, prev, next, next)
}

// Lister renders aggregate rows as a list of links.
type Lister struct {
	printer *message.Printer
}

// NewLister creates a lister formatting counts for tag. An unparsable tag
// falls back to English.
func NewLister(tag string) *Lister {
	lang, err := language.Parse(tag)
	if err != nil {
		lang = language.English
	}
	return &Lister{printer: message.NewPrinter(lang)}
}

// List renders rows in the given order.
func (l *Lister) List(rows []types.Count) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, r := range rows {
		bucket := html.EscapeString(r.Bucket)
		fmt.Fprintf(&b, "<li><a href='/#/%s'>%s</a> - %s</li>", bucket, bucket, l.printer.Sprintf("%d", r.Count))
	}
	b.WriteString("</ul>")
	return b.String()
}

// MarkerPopup links an event to its day and names its geohash.
func MarkerPopup(e types.Event) string {
	day := e.Day()
	return fmt.Sprintf("<a href='/#/%s'>%s</a> - %s", day, day, html.EscapeString(e.Geohash))
}
