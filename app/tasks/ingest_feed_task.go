package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/critique-desk/app/feed"
)

type FeedIngester interface {
	Run(ctx context.Context) (*feed.Result, error)
}

var _ FeedIngester = (*feed.Ingester)(nil)

type IngestFeedTask struct {
	Task
	ingester FeedIngester
}

func NewIngestFeedTask(feedURL string, ingester FeedIngester) *IngestFeedTask {
	return &IngestFeedTask{
		Task:     NewTask(TaskTypeIngestFeed, feedURL),
		ingester: ingester,
	}
}

func (t *IngestFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	res, err := t.ingester.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to ingest feed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.Target,
		"duration", t.GetDuration(),
		"total", res.Examined,
		"stale", res.Stale,
		"rejected", len(res.Rejected),
		"new", len(res.Added),
		"watermark", res.Watermark)

	return nil
}
