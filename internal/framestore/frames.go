package framestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cutdiff/internal/alignment"
	"cutdiff/internal/hamming"
	"cutdiff/internal/services"
)

// Frame holds every fingerprint computed for one frame, keyed by algorithm.
type Frame struct {
	Index  int
	Hashes map[string]hamming.Fingerprint
}

// InsertFrames writes frames to an edition in a single transaction and bumps
// the edition's frame count.
func (s *Store) InsertFrames(ctx context.Context, name string, frames []Frame) error {
	if len(frames) == 0 {
		return nil
	}
	edition, err := s.Edition(ctx, name)
	if err != nil {
		return err
	}

	columns := make([]string, 0, len(edition.Algorithms)+1)
	placeholders := make([]string, 0, len(edition.Algorithms)+1)
	columns = append(columns, "frame_index")
	placeholders = append(placeholders, "?")
	for _, algorithm := range edition.Algorithms {
		columns = append(columns, hashColumn(algorithm))
		placeholders = append(placeholders, "?")
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		frameTable(edition.Name), strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare frame insert: %w", err)
		}
		defer stmt.Close()

		args := make([]any, len(columns))
		for _, frame := range frames {
			args[0] = frame.Index
			for i, algorithm := range edition.Algorithms {
				if fp, ok := frame.Hashes[algorithm]; ok && len(fp) > 0 {
					args[i+1] = fp.String()
				} else {
					args[i+1] = nil
				}
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert frame %d: %w", frame.Index, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE editions SET frame_count = frame_count + ? WHERE name = ?", len(frames), edition.Name); err != nil {
			return fmt.Errorf("update frame count: %w", err)
		}
		return nil
	})
}

// Range returns the designated algorithm's fingerprints for frames in
// [lower, upper), ordered by frame index. A frame stored without that
// fingerprint is a validation error.
func (s *Store) Range(ctx context.Context, name string, lower, upper int) ([]alignment.Record, error) {
	edition, err := s.readableEdition(ctx, name)
	if err != nil {
		return nil, err
	}
	if upper <= lower {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT frame_index, %s FROM %s WHERE frame_index >= ? AND frame_index < ? ORDER BY frame_index",
		hashColumn(s.algorithm), frameTable(edition.Name))
	records, err := s.queryRecords(ctx, query, lower, upper)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if len(record.Fingerprint) == 0 {
			return nil, services.Wrap(services.ErrValidation, "framestore", "read frames",
				fmt.Sprintf("edition %q frame %d has no %s fingerprint", edition.Name, record.Index, s.algorithm), nil)
		}
	}
	return records, nil
}

// Records returns every frame of an edition for the designated algorithm.
func (s *Store) Records(ctx context.Context, name string) ([]alignment.Record, error) {
	edition, err := s.readableEdition(ctx, name)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT frame_index, %s FROM %s ORDER BY frame_index",
		hashColumn(s.algorithm), frameTable(edition.Name))
	return s.queryRecords(ctx, query)
}

// UniqueSharedAnchors loads both editions, checks their frame indices are
// contiguous, and extracts the anchors between them.
func (s *Store) UniqueSharedAnchors(ctx context.Context, editionA, editionB string) ([]alignment.Anchor, error) {
	loaded := make([][]alignment.Record, 2)
	for i, name := range []string{editionA, editionB} {
		edition, err := s.readableEdition(ctx, name)
		if err != nil {
			return nil, err
		}
		records, err := s.Records(ctx, edition.Name)
		if err != nil {
			return nil, err
		}
		if err := alignment.ValidateSequence(edition.Name, records, edition.FrameRate); err != nil {
			return nil, err
		}
		loaded[i] = records
	}
	return alignment.ExtractAnchors(loaded[0], loaded[1]), nil
}

// EachFrame streams every frame of an edition with all of its fingerprints.
// fn must not call back into the Store while iterating.
func (s *Store) EachFrame(ctx context.Context, name string, fn func(Frame) error) error {
	edition, err := s.Edition(ctx, name)
	if err != nil {
		return err
	}
	columns := make([]string, 0, len(edition.Algorithms))
	for _, algorithm := range edition.Algorithms {
		columns = append(columns, hashColumn(algorithm))
	}
	query := fmt.Sprintf("SELECT frame_index, %s FROM %s ORDER BY frame_index",
		strings.Join(columns, ", "), frameTable(edition.Name))

	rows, err := s.db.QueryContext(ensureContext(ctx), query)
	if err != nil {
		return fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns)+1)
	for i := range values {
		dest[i+1] = &values[i]
	}
	for rows.Next() {
		var frame Frame
		dest[0] = &frame.Index
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan frame: %w", err)
		}
		frame.Hashes = make(map[string]hamming.Fingerprint, len(columns))
		for i, algorithm := range edition.Algorithms {
			if !values[i].Valid {
				continue
			}
			fp, err := hamming.ParseHex(values[i].String)
			if err != nil {
				return fmt.Errorf("frame %d %s: %w", frame.Index, algorithm, err)
			}
			frame.Hashes[algorithm] = fp
		}
		if err := fn(frame); err != nil {
			return err
		}
	}
	return rows.Err()
}

// readableEdition loads an edition and checks it carries the designated
// algorithm.
func (s *Store) readableEdition(ctx context.Context, name string) (*Edition, error) {
	edition, err := s.Edition(ctx, name)
	if err != nil {
		return nil, err
	}
	if !edition.HasAlgorithm(s.algorithm) {
		return nil, services.Wrap(services.ErrValidation, "framestore", "read frames",
			fmt.Sprintf("edition %q has no %s fingerprints (have %s)", edition.Name, s.algorithm, strings.Join(edition.Algorithms, ", ")), nil)
	}
	return edition, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]alignment.Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	var out []alignment.Record
	for rows.Next() {
		var (
			index int
			value sql.NullString
		)
		if err := rows.Scan(&index, &value); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		record := alignment.Record{Index: index}
		if value.Valid {
			fp, err := hamming.ParseHex(value.String)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", index, err)
			}
			record.Fingerprint = fp
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
