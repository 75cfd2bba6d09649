package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/critique-desk/app/database"
	"github.com/lysyi3m/critique-desk/app/feed"
)

type PageFetcher interface {
	Fetch(ctx context.Context, url string, wantHTML bool) ([]byte, error)
}

type ExtractPreviewsTask struct {
	Task
	fetcher   PageFetcher
	extractor *feed.PreviewExtractor
	previews  database.PreviewRepository
	batchSize int
}

func NewExtractPreviewsTask(fetcher PageFetcher, extractor *feed.PreviewExtractor, previews database.PreviewRepository, batchSize int) *ExtractPreviewsTask {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &ExtractPreviewsTask{
		Task:      NewTask(TaskTypeExtractPreviews, "catalog"),
		fetcher:   fetcher,
		extractor: extractor,
		previews:  previews,
		batchSize: batchSize,
	}
}

func (t *ExtractPreviewsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := t.previews.GetEntriesForExtraction(ctx, t.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get entries for preview extraction: %w", err)
	}

	if len(entries) == 0 {
		slog.Debug("No entries need a preview")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.extractPreview(ctx, entry); err != nil {
			slog.Error("Failed to extract preview", "entry_id", entry.ID, "url", entry.URL, "error", err)
			errorCount++

			if err := t.previews.SaveFailure(ctx, entry.ID, time.Now(), err.Error()); err != nil {
				slog.Error("Failed to update preview status", "entry_id", entry.ID, "error", err)
			}
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractPreviewsTask) extractPreview(ctx context.Context, entry database.EntryForExtraction) error {
	data, err := t.fetcher.Fetch(ctx, entry.URL, true)
	if err != nil {
		return fmt.Errorf("failed to fetch thread page: %w", err)
	}

	excerpt, err := t.extractor.Run(data, entry.URL)
	if err != nil {
		return fmt.Errorf("failed to extract preview: %w", err)
	}

	if err := t.previews.SaveExtracted(ctx, entry.ID, excerpt, time.Now()); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}

	slog.Debug("Preview extracted", "entry_id", entry.ID, "url", entry.URL, "length", len(excerpt))
	return nil
}
