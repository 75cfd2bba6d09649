package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/critique-desk/app/catalog"
)

var _ EntryRepository = (*EntryRepo)(nil)

type EntryRepo struct {
	db *DB
}

func NewEntryRepository(db *DB) *EntryRepo {
	return &EntryRepo{db: db}
}

// LoadAll returns every stored entry as a record. Rows whose JSON columns
// cannot be decoded are logged and skipped; decoding records into entries
// is left to the caller so each bad row can be reported on its own.
func (r *EntryRepo) LoadAll(ctx context.Context) ([]catalog.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, url, type, status, last_update, author, modified, tags, reservations
		FROM entries
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var records []catalog.Record
	for rows.Next() {
		var (
			name, url, typ, status, author string
			lastUpdate                     int64
			modified                       bool
			tagsJSON, reservationsJSON     string
		)
		if err := rows.Scan(&name, &url, &typ, &status, &lastUpdate, &author, &modified, &tagsJSON, &reservationsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}

		rec := catalog.Record{
			Name:       &name,
			URL:        &url,
			Type:       &typ,
			Status:     &status,
			LastUpdate: &lastUpdate,
			Author:     &author,
			Modified:   &modified,
		}
		if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
			slog.Error("Skipping catalog entry with unreadable tags", "url", url, "error", err)
			continue
		}
		if err := json.Unmarshal([]byte(reservationsJSON), &rec.Reservations); err != nil {
			slog.Error("Skipping catalog entry with unreadable reservations", "url", url, "error", err)
			continue
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return records, nil
}

// Save writes upserts and deletes in one transaction.
func (r *EntryRepo) Save(ctx context.Context, upserts []*catalog.Entry, deletes []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range upserts {
		if err := upsertEntry(ctx, tx, e); err != nil {
			return err
		}
	}

	for _, id := range deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete entry %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func upsertEntry(ctx context.Context, tx *sql.Tx, e *catalog.Entry) error {
	rec := e.Record()

	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags of entry %d: %w", e.ID, err)
	}
	reservations, err := json.Marshal(rec.Reservations)
	if err != nil {
		return fmt.Errorf("failed to encode reservations of entry %d: %w", e.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (id, name, url, type, status, last_update, author, modified, tags, reservations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			type = excluded.type,
			status = excluded.status,
			last_update = excluded.last_update,
			author = excluded.author,
			modified = excluded.modified,
			tags = excluded.tags,
			reservations = excluded.reservations
	`, e.ID, *rec.Name, *rec.URL, *rec.Type, *rec.Status, *rec.LastUpdate, *rec.Author, *rec.Modified, string(tags), string(reservations))
	if err != nil {
		return fmt.Errorf("failed to upsert entry %d: %w", e.ID, err)
	}

	return nil
}

func (r *EntryRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}
