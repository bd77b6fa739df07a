package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/autocareer/internal/model"
)

const sourceColumns = `id, name, url, filter_text, last_scanned_at, created_at`

func scanSource(row rowScanner) (model.Source, error) {
	var (
		src       model.Source
		scannedAt sql.NullString
		createdAt string
	)
	if err := row.Scan(&src.ID, &src.Name, &src.URL, &src.FilterText, &scannedAt, &createdAt); err != nil {
		return model.Source{}, err
	}
	if scannedAt.Valid {
		t := parseTime(scannedAt.String)
		src.LastScannedAt = &t
	}
	src.CreatedAt = parseTime(createdAt)
	return src, nil
}

func (s *SQLiteStore) querySources(ctx context.Context, query string, args ...any) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning source row: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// ListSources returns every configured source in creation order.
func (s *SQLiteStore) ListSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, "SELECT "+sourceColumns+" FROM sources ORDER BY id")
}

// GetSources returns the sources with the given IDs. Unknown IDs are ignored.
func (s *SQLiteStore) GetSources(ctx context.Context, ids []int64) ([]model.Source, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.querySources(ctx,
		"SELECT "+sourceColumns+" FROM sources WHERE id IN ("+placeholders+") ORDER BY id", args...)
}

// GetSource returns one source or model.ErrNotFound.
func (s *SQLiteStore) GetSource(ctx context.Context, id int64) (model.Source, error) {
	src, err := scanSource(s.db.QueryRowContext(ctx, "SELECT "+sourceColumns+" FROM sources WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Source{}, fmt.Errorf("source %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Source{}, fmt.Errorf("loading source %d: %w", id, err)
	}
	return src, nil
}

// CreateSource inserts a new source and returns it with its ID set.
func (s *SQLiteStore) CreateSource(ctx context.Context, src model.Source) (model.Source, error) {
	src.CreatedAt = s.now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO sources (name, url, filter_text, created_at) VALUES (?, ?, ?, ?)",
		src.Name, src.URL, src.FilterText, formatTime(src.CreatedAt))
	if err != nil {
		return model.Source{}, fmt.Errorf("creating source %s: %w", src.Name, err)
	}
	if src.ID, err = res.LastInsertId(); err != nil {
		return model.Source{}, fmt.Errorf("creating source %s: %w", src.Name, err)
	}
	return src, nil
}

// UpdateSource overwrites a source's name, URL and filter text.
func (s *SQLiteStore) UpdateSource(ctx context.Context, src model.Source) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sources SET name = ?, url = ?, filter_text = ? WHERE id = ?",
		src.Name, src.URL, src.FilterText, src.ID)
	if err != nil {
		return fmt.Errorf("updating source %d: %w", src.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %d: %w", src.ID, model.ErrNotFound)
	}
	return nil
}

// DeleteSource removes a source. Jobs it discovered are kept and detached.
func (s *SQLiteStore) DeleteSource(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting source %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("source %d: %w", id, model.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE jobs SET source_id = NULL WHERE source_id = ?", id); err != nil {
			return fmt.Errorf("detaching jobs of source %d: %w", id, err)
		}
		return nil
	})
}

// MarkSourceScanned records the time a source was last scanned.
func (s *SQLiteStore) MarkSourceScanned(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE sources SET last_scanned_at = ? WHERE id = ?",
		formatTime(at), id); err != nil {
		return fmt.Errorf("marking source %d scanned: %w", id, err)
	}
	return nil
}
