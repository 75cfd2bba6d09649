package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ PreviewRepository = (*PreviewRepo)(nil)

type PreviewRepo struct {
	db *DB
}

func NewPreviewRepository(db *DB) *PreviewRepo {
	return &PreviewRepo{db: db}
}

func (r *PreviewRepo) GetPreview(ctx context.Context, entryID int64) (*Preview, error) {
	var (
		p           Preview
		extractedAt sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT entry_id, excerpt, status, attempts, extracted_at, error
		FROM previews
		WHERE entry_id = ?
	`, entryID).Scan(&p.EntryID, &p.Excerpt, &p.Status, &p.Attempts, &extractedAt, &p.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preview: %w", err)
	}

	if extractedAt.Valid {
		t := time.Unix(extractedAt.Int64, 0)
		p.ExtractedAt = &t
	}

	return &p, nil
}

// GetEntriesForExtraction returns entries still under review that have no
// preview yet, or whose previous attempts failed fewer than
// MaxPreviewAttempts times. Oldest first.
func (r *PreviewRepo) GetEntriesForExtraction(ctx context.Context, limit int) ([]EntryForExtraction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.url
		FROM entries e
		LEFT JOIN previews p ON p.entry_id = e.id
		WHERE e.status IN ('open', 'open_claimed', 'pending_review')
		  AND (p.entry_id IS NULL OR (p.status = ? AND p.attempts < ?))
		ORDER BY e.last_update, e.id
		LIMIT ?
	`, PreviewStatusFailed, MaxPreviewAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for extraction: %w", err)
	}
	defer rows.Close()

	var entries []EntryForExtraction
	for rows.Next() {
		var e EntryForExtraction
		if err := rows.Scan(&e.ID, &e.URL); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r *PreviewRepo) SaveExtracted(ctx context.Context, entryID int64, excerpt string, extractedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO previews (entry_id, excerpt, status, attempts, extracted_at, error)
		VALUES (?, ?, ?, 1, ?, '')
		ON CONFLICT (entry_id) DO UPDATE SET
			excerpt = excluded.excerpt,
			status = excluded.status,
			attempts = previews.attempts + 1,
			extracted_at = excluded.extracted_at,
			error = ''
	`, entryID, excerpt, PreviewStatusSuccess, extractedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}

func (r *PreviewRepo) SaveFailure(ctx context.Context, entryID int64, extractedAt time.Time, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO previews (entry_id, status, attempts, extracted_at, error)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (entry_id) DO UPDATE SET
			status = excluded.status,
			attempts = previews.attempts + 1,
			extracted_at = excluded.extracted_at,
			error = excluded.error
	`, entryID, PreviewStatusFailed, extractedAt.Unix(), errMsg)
	if err != nil {
		return fmt.Errorf("failed to save preview failure: %w", err)
	}
	return nil
}
