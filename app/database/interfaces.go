package database

import (
	"context"
	"time"

	"github.com/lysyi3m/critique-desk/app/catalog"
)

type EntryRepository interface {
	LoadAll(ctx context.Context) ([]catalog.Record, error)
	Save(ctx context.Context, upserts []*catalog.Entry, deletes []int64) error
	Count(ctx context.Context) (int, error)
}

type SettingsRepository interface {
	GetTime(ctx context.Context, key string) (*time.Time, error)
	SetTime(ctx context.Context, key string, value time.Time) error
}

type PreviewRepository interface {
	GetPreview(ctx context.Context, entryID int64) (*Preview, error)
	GetEntriesForExtraction(ctx context.Context, limit int) ([]EntryForExtraction, error)
	SaveExtracted(ctx context.Context, entryID int64, excerpt string, extractedAt time.Time) error
	SaveFailure(ctx context.Context, entryID int64, extractedAt time.Time, errMsg string) error
}
