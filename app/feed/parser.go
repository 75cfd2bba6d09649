package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

const DefaultAuthorExtension = "wikidot:authorName"

type Parser struct {
	gofeedParser *gofeed.Parser
	authorNS     string
	authorName   string
}

// NewParser reads the author from the extension element named by
// authorExtension, written "namespace:element".
func NewParser(authorExtension string) *Parser {
	ns, name, ok := strings.Cut(cmp.Or(authorExtension, DefaultAuthorExtension), ":")
	if !ok {
		ns, name, _ = strings.Cut(DefaultAuthorExtension, ":")
	}
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		authorNS:     ns,
		authorName:   name,
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
		UpdatedAt:   cmp.Or(feed.UpdatedParsed, feed.PublishedParsed),
	}

	items := make([]Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		items = append(items, p.normalizeItem(item))
	}

	return metadata, items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		GUID:        cmp.Or(item.GUID, item.Link),
		Title:       strings.TrimSpace(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Author:      p.extractAuthor(item),
		PublishedAt: item.PublishedParsed,
	}

	if normalized.PublishedAt == nil {
		normalized.PublishedAt = item.UpdatedParsed
	}

	return normalized
}

func (p *Parser) extractAuthor(item *gofeed.Item) string {
	ns, ok := item.Extensions[p.authorNS]
	if !ok {
		return ""
	}
	for _, ext := range ns[p.authorName] {
		if v := strings.TrimSpace(ext.Value); v != "" {
			return v
		}
	}
	return ""
}
