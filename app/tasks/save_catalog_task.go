package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/database"
)

type SaveCatalogTask struct {
	Task
	store    *catalog.Store
	entries  database.EntryRepository
	settings database.SettingsRepository
}

func NewSaveCatalogTask(store *catalog.Store, entries database.EntryRepository, settings database.SettingsRepository) *SaveCatalogTask {
	return &SaveCatalogTask{
		Task:     NewTask(TaskTypeSaveCatalog, "catalog"),
		store:    store,
		entries:  entries,
		settings: settings,
	}
}

// Execute writes modified and removed entries. On failure the changes are
// handed back to the store so the next run retries them.
func (t *SaveCatalogTask) Execute(ctx context.Context) error {
	changes := t.store.TakeChanges()

	if changes.Empty() {
		return t.saveWatermark(ctx, changes)
	}

	if err := database.SaveChanges(ctx, t.entries, t.settings, changes); err != nil {
		t.store.RestoreChanges(changes)
		return fmt.Errorf("failed to save catalog: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"saved", len(changes.Upserts),
		"deleted", len(changes.Deletes))

	return nil
}

func (t *SaveCatalogTask) saveWatermark(ctx context.Context, changes catalog.Changes) error {
	if changes.LastIngested.IsZero() {
		return nil
	}

	stored, err := t.settings.GetTime(ctx, database.KeyLastIngested)
	if err != nil {
		return fmt.Errorf("failed to read watermark: %w", err)
	}
	if stored != nil && !changes.LastIngested.After(*stored) {
		return nil
	}

	if err := t.settings.SetTime(ctx, database.KeyLastIngested, changes.LastIngested); err != nil {
		return fmt.Errorf("failed to save watermark: %w", err)
	}

	slog.Debug("Watermark saved", "watermark", changes.LastIngested)
	return nil
}
