package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/lysyi3m/critique-desk/app/catalog"
)

// Channel describes an outgoing RSS feed built from catalog entries.
type Channel struct {
	Name        string
	Title       string
	Description string
}

// Generator renders catalog entries as RSS 2.0, one item per entry.
type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{baseURL: baseURL, version: version}
}

func (g *Generator) Run(channel Channel, entries []*catalog.Entry) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", cmp.Or(channel.Title, channel.Name), 4)
	g.writeElement(&buf, "link", g.baseURL, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, fmt.Sprintf("Catalog entries in channel %s", channel.Name)), 4)

	selfLink := fmt.Sprintf("%s/channels/%s/feed.xml", g.baseURL, channel.Name)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	for _, e := range entries {
		if e.LastUpdate.After(lastBuildDate) {
			lastBuildDate = e.LastUpdate
		}
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Critique-Desk/%s", g.version), 4)

	for _, e := range entries {
		g.writeItem(&buf, e)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, e *catalog.Entry) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(strconv.FormatInt(e.ID, 10)))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", e.Name, 6)
	g.writeElement(buf, "link", e.URL, 6)
	g.writeElement(buf, "description", e.Summary(), 6)
	g.writeElement(buf, "pubDate", e.LastUpdate.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "author", e.AuthorName, 6)
	g.writeElement(buf, "category", e.Type.String(), 6)
	g.writeElement(buf, "category", e.Status().String(), 6)

	for _, tag := range e.Tags {
		g.writeElement(buf, "category", tag, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
