package framestore

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"cutdiff/internal/services"
)

const lockRetryDelay = 250 * time.Millisecond

// Lock takes the exclusive writer lock next to the database so only one
// process hashes or imports at a time. The returned function releases it.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLockContext(ensureContext(ctx), lockRetryDelay)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "framestore", "lock", s.lockPath, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTransient, "framestore", "lock",
			fmt.Sprintf("%s is held by another process", s.lockPath), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

// TryLock takes the writer lock without waiting.
func (s *Store) TryLock() (func(), error) {
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "framestore", "lock", s.lockPath, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTransient, "framestore", "lock",
			fmt.Sprintf("%s is held by another process", s.lockPath), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}
