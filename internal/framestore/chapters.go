package framestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cutdiff/internal/chapters"
)

// ReplaceChapters stores the chapter list for an edition, replacing any
// previously imported chapters.
func (s *Store) ReplaceChapters(ctx context.Context, name string, list []chapters.Chapter) error {
	edition, err := s.Edition(ctx, name)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chapters WHERE edition = ?", edition.Name); err != nil {
			return fmt.Errorf("clear chapters: %w", err)
		}
		for i, chapter := range list {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO chapters (edition, position, start_us, title) VALUES (?, ?, ?, ?)",
				edition.Name, i+1, chapter.Start.Microseconds(), chapter.Title,
			); err != nil {
				return fmt.Errorf("insert chapter %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// Chapters returns an edition's chapters ordered by start time.
func (s *Store) Chapters(ctx context.Context, name string) ([]chapters.Chapter, error) {
	edition, err := s.Edition(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT start_us, title FROM chapters WHERE edition = ? ORDER BY start_us, position", edition.Name)
	if err != nil {
		return nil, fmt.Errorf("query chapters: %w", err)
	}
	defer rows.Close()

	var out []chapters.Chapter
	for rows.Next() {
		var (
			startUS int64
			title   string
		)
		if err := rows.Scan(&startUS, &title); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, chapters.Chapter{Start: time.Duration(startUS) * time.Microsecond, Title: title})
	}
	return out, rows.Err()
}
