package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/metrics"
)

// Merge adds the catalog-eligible items of one batch to the catalog and
// advances the watermark to the newest publication date examined. Items
// at or before the current watermark are skipped. It never fails: every
// skipped item is reported in the result.
func Merge(tx *catalog.Tx, items []Item, now time.Time) Result {
	watermark := tx.LastIngested()
	res := Result{Examined: len(items), Added: []int64{}, Rejected: []Rejection{}}
	newest := watermark

	reject := func(i int, item Item, reason RejectReason) {
		res.Rejected = append(res.Rejected, Rejection{Index: i, Title: item.Title, Link: item.Link, Reason: reason})
		metrics.FeedItems.WithLabelValues(string(reason)).Inc()
		slog.Debug("Feed item skipped", "index", i, "title", item.Title, "reason", reason)
	}

	for i, item := range items {
		if item.PublishedAt == nil {
			reject(i, item, ReasonMissingDate)
			continue
		}
		if item.PublishedAt.After(newest) {
			newest = *item.PublishedAt
		}
		if !item.PublishedAt.After(watermark) {
			res.Stale++
			metrics.FeedItems.WithLabelValues("stale").Inc()
			continue
		}

		if !HasMarker(item.Title) {
			reject(i, item, ReasonNoMarker)
			continue
		}

		id, ok := catalog.ExtractID(item.Link)
		if !ok {
			reject(i, item, ReasonNoIdentifier)
			continue
		}
		if item.Author == "" {
			reject(i, item, ReasonNoAuthor)
			continue
		}
		if _, exists := tx.Get(id); exists {
			reject(i, item, ReasonDuplicate)
			continue
		}

		name := ExtractTitle(item.Title)
		if name == "" {
			name = "unnamed-" + strconv.Itoa(i)
		}

		entry, err := catalog.NewEntry(name, item.Link, item.Author, ClassifyType(item.Title), catalog.StatusOpen, now)
		if err != nil {
			reject(i, item, ReasonNoIdentifier)
			continue
		}
		if err := tx.Insert(entry); err != nil {
			reject(i, item, ReasonDuplicate)
			continue
		}

		res.Added = append(res.Added, entry.ID)
		metrics.FeedItems.WithLabelValues("added").Inc()
		slog.Info("Entry added from feed", "id", entry.ID, "name", entry.Name, "type", entry.Type.Key(), "author", entry.AuthorName)
	}

	tx.AdvanceWatermark(newest)
	res.Watermark = tx.LastIngested()
	metrics.CatalogEntries.Set(float64(tx.Len()))

	return res
}

// Ingester pulls the forum feed and merges it into the store. Concurrent
// calls to Run share one fetch.
type Ingester struct {
	feedURL string
	fetcher *Fetcher
	parser  *Parser
	store   *catalog.Store
	now     func() time.Time
	group   singleflight.Group
}

func NewIngester(feedURL string, fetcher *Fetcher, parser *Parser, store *catalog.Store, now func() time.Time) *Ingester {
	if now == nil {
		now = time.Now
	}
	return &Ingester{
		feedURL: feedURL,
		fetcher: fetcher,
		parser:  parser,
		store:   store,
		now:     now,
	}
}

// Run fetches outside the catalog lock and holds it only for the merge.
func (i *Ingester) Run(ctx context.Context) (*Result, error) {
	v, err, shared := i.group.Do(i.feedURL, func() (interface{}, error) {
		return i.run(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Feed refresh shared with a concurrent caller", "feed", i.feedURL)
	}
	return v.(*Result), nil
}

func (i *Ingester) run(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := i.fetcher.Fetch(ctx, i.feedURL, false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	_, items, err := i.parser.Run(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var res Result
	err = i.store.Do(func(tx *catalog.Tx) error {
		now := i.now()
		// A caller that gave up while the feed was in flight gets no merge.
		if err := ctx.Err(); err != nil {
			return err
		}
		res = Merge(tx, items, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge feed: %w", err)
	}

	return &res, nil
}
