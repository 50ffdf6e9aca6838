package framestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cutdiff/internal/config"
	"cutdiff/internal/services"
)

// Store manages fingerprint persistence backed by SQLite.
type Store struct {
	db        *sql.DB
	path      string
	algorithm string
	lockPath  string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Open initializes or connects to the fingerprint database named by the
// configuration. Reads use the configured alignment algorithm.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// pragmas apply per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	store := &Store{db: db, path: cfg.Store.Path, lockPath: cfg.LockPath()}
	if err := store.UseAlgorithm(cfg.Alignment.Algorithm); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Algorithm returns the fingerprint column used by Range, Records, and
// UniqueSharedAnchors.
func (s *Store) Algorithm() string {
	return s.algorithm
}

// UseAlgorithm switches the designated fingerprint column.
func (s *Store) UseAlgorithm(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !identifierPattern.MatchString(name) {
		return services.Wrap(services.ErrValidation, "framestore", "select algorithm",
			fmt.Sprintf("invalid algorithm name %q", name), nil)
	}
	s.algorithm = name
	return nil
}

// NormalizeEdition lowercases name and checks it can be used as a table suffix.
func NormalizeEdition(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(normalized)
	if !identifierPattern.MatchString(normalized) {
		return "", services.Wrap(services.ErrValidation, "framestore", "edition name",
			fmt.Sprintf("%q must start with a letter and contain only letters, digits, and underscores", name), nil)
	}
	return normalized, nil
}

func frameTable(edition string) string {
	return "frames_" + edition
}

func hashColumn(algorithm string) string {
	return "hash_" + algorithm
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

// withTx runs fn in a transaction, retrying the whole transaction while the
// database is busy.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}
