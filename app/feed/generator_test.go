package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/critique-desk/app/catalog"
)

func TestGenerateChannelRSS(t *testing.T) {
	generator := NewGenerator("https://desk.example.org", "test-version")

	updated := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	entry, err := catalog.NewEntry("La porte rouge", "http://forum.example.org/forum/t-42/porte", "Alice & Bob", catalog.TypeStory, catalog.StatusOpen, updated)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	entry.Tags = []string{"horreur"}

	rss, err := generator.Run(Channel{Name: "open", Title: "Open entries"}, []*catalog.Entry{entry})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("RSS should contain XML declaration")
	}

	if !strings.Contains(rss, "<title>Open entries</title>") {
		t.Error("RSS should contain channel title")
	}

	if !strings.Contains(rss, "<description>Catalog entries in channel open</description>") {
		t.Error("RSS should contain default channel description")
	}

	if !strings.Contains(rss, `<atom:link href="https://desk.example.org/channels/open/feed.xml" rel="self" type="application/rss+xml" />`) {
		t.Error("RSS should contain atom:link self reference")
	}

	if !strings.Contains(rss, "<generator>Critique-Desk/test-version</generator>") {
		t.Error("RSS should contain generator")
	}

	if !strings.Contains(rss, `<guid isPermaLink="false">42</guid>`) {
		t.Error("RSS should use the entry id as guid")
	}

	if !strings.Contains(rss, "<link>http://forum.example.org/forum/t-42/porte</link>") {
		t.Error("RSS should contain entry link")
	}

	if !strings.Contains(rss, "<author>Alice &amp; Bob</author>") {
		t.Error("RSS should contain escaped author")
	}

	if !strings.Contains(rss, "<pubDate>Mon, 03 Jul 2023 10:00:00 +0000</pubDate>") {
		t.Error("RSS should contain last update as pubDate")
	}

	for _, category := range []string{"Story", "Open", "horreur"} {
		if !strings.Contains(rss, "<category>"+category+"</category>") {
			t.Errorf("RSS should contain category %s", category)
		}
	}

	if !strings.HasSuffix(rss, "</channel>\n</rss>") {
		t.Error("RSS should end with closing tags")
	}
}

func TestGenerateEmptyChannel(t *testing.T) {
	generator := NewGenerator("", "dev")

	rss, err := generator.Run(Channel{Name: "triage", Description: "Needs a look"}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Contains(rss, "<item>") {
		t.Error("Empty channel should have no items")
	}
	if !strings.Contains(rss, "<title>triage</title>") {
		t.Error("Title should fall back to channel name")
	}
	if !strings.Contains(rss, "<description>Needs a look</description>") {
		t.Error("RSS should contain channel description")
	}
}
