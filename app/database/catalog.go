package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/critique-desk/app/catalog"
)

// LoadCatalog reads the persisted catalog and watermark. Rows that fail to
// decode are logged and left out; they stay in the table untouched.
func LoadCatalog(ctx context.Context, entries EntryRepository, settings SettingsRepository) ([]*catalog.Entry, time.Time, error) {
	records, err := entries.LoadAll(ctx)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load entries: %w", err)
	}

	out := make([]*catalog.Entry, 0, len(records))
	for i, rec := range records {
		e, err := catalog.EntryFromRecord(rec)
		if err != nil {
			url := ""
			if rec.URL != nil {
				url = *rec.URL
			}
			slog.Error("Skipping unreadable catalog entry", "row", i, "url", url, "error", err)
			continue
		}
		out = append(out, e)
	}

	var watermark time.Time
	last, err := settings.GetTime(ctx, KeyLastIngested)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load watermark: %w", err)
	}
	if last != nil {
		watermark = *last
	}

	return out, watermark, nil
}

// SaveChanges persists one batch of catalog changes and the watermark.
func SaveChanges(ctx context.Context, entries EntryRepository, settings SettingsRepository, changes catalog.Changes) error {
	if err := entries.Save(ctx, changes.Upserts, changes.Deletes); err != nil {
		return err
	}
	if !changes.LastIngested.IsZero() {
		if err := settings.SetTime(ctx, KeyLastIngested, changes.LastIngested); err != nil {
			return err
		}
	}
	return nil
}
