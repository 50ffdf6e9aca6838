package framestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"cutdiff/internal/services"
)

// Edition describes one hashed release of a video.
type Edition struct {
	Name       string
	Source     string
	FrameRate  float64
	FrameCount int
	Algorithms []string
	CreatedAt  time.Time
}

// HasAlgorithm reports whether fingerprints for algorithm were computed.
func (e Edition) HasAlgorithm(algorithm string) bool {
	return slices.Contains(e.Algorithms, algorithm)
}

// CreateEdition registers an edition and creates its frame table. It fails
// with services.ErrValidation when the edition already exists.
func (s *Store) CreateEdition(ctx context.Context, edition Edition) (*Edition, error) {
	name, err := NormalizeEdition(edition.Name)
	if err != nil {
		return nil, err
	}
	if edition.FrameRate <= 0 {
		return nil, services.Wrap(services.ErrValidation, "framestore", "create edition",
			fmt.Sprintf("edition %q needs a positive frame rate", name), nil)
	}
	if len(edition.Algorithms) == 0 {
		return nil, services.Wrap(services.ErrValidation, "framestore", "create edition",
			fmt.Sprintf("edition %q needs at least one algorithm", name), nil)
	}
	columns := make([]string, 0, len(edition.Algorithms))
	for _, algorithm := range edition.Algorithms {
		if !identifierPattern.MatchString(algorithm) {
			return nil, services.Wrap(services.ErrValidation, "framestore", "create edition",
				fmt.Sprintf("invalid algorithm name %q", algorithm), nil)
		}
		columns = append(columns, hashColumn(algorithm)+" TEXT")
	}

	created := Edition{
		Name:       name,
		Source:     edition.Source,
		FrameRate:  edition.FrameRate,
		Algorithms: slices.Clone(edition.Algorithms),
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM editions WHERE name = ?", name).Scan(&exists); err != nil {
			return fmt.Errorf("check edition: %w", err)
		}
		if exists > 0 {
			return services.Wrap(services.ErrValidation, "framestore", "create edition",
				fmt.Sprintf("edition %q already exists (remove it first)", name), nil)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO editions (name, source, frame_rate, frame_count, algorithms, created_at) VALUES (?, ?, ?, 0, ?, ?)`,
			created.Name, created.Source, created.FrameRate, strings.Join(created.Algorithms, ","), created.CreatedAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert edition: %w", err)
		}
		ddl := fmt.Sprintf("CREATE TABLE %s (frame_index INTEGER PRIMARY KEY, %s)", frameTable(name), strings.Join(columns, ", "))
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create frame table: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Edition loads an edition's metadata. Unknown names return services.ErrNotFound.
func (s *Store) Edition(ctx context.Context, name string) (*Edition, error) {
	normalized, err := NormalizeEdition(name)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT name, source, frame_rate, frame_count, algorithms, created_at FROM editions WHERE name = ?`, normalized)
	edition, err := scanEdition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "framestore", "load edition",
			fmt.Sprintf("edition %q has not been hashed", normalized), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load edition %q: %w", normalized, err)
	}
	return edition, nil
}

// Editions lists all editions ordered by name.
func (s *Store) Editions(ctx context.Context) ([]Edition, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT name, source, frame_rate, frame_count, algorithms, created_at FROM editions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list editions: %w", err)
	}
	defer rows.Close()

	var out []Edition
	for rows.Next() {
		edition, err := scanEdition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edition: %w", err)
		}
		out = append(out, *edition)
	}
	return out, rows.Err()
}

// DeleteEdition drops an edition, its frames, and its chapters.
func (s *Store) DeleteEdition(ctx context.Context, name string) error {
	edition, err := s.Edition(ctx, name)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+frameTable(edition.Name)); err != nil {
			return fmt.Errorf("drop frame table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM editions WHERE name = ?", edition.Name); err != nil {
			return fmt.Errorf("delete edition: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEdition(row rowScanner) (*Edition, error) {
	var (
		edition    Edition
		algorithms string
		createdAt  string
	)
	if err := row.Scan(&edition.Name, &edition.Source, &edition.FrameRate, &edition.FrameCount, &algorithms, &createdAt); err != nil {
		return nil, err
	}
	if algorithms != "" {
		edition.Algorithms = strings.Split(algorithms, ",")
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		edition.CreatedAt = ts
	}
	return &edition, nil
}
