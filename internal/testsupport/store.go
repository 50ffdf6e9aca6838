package testsupport

import (
	"context"
	"testing"

	"cutdiff/internal/config"
	"cutdiff/internal/framestore"
	"cutdiff/internal/hamming"
)

// MustOpenStore opens a framestore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *framestore.Store {
	t.Helper()

	store, err := framestore.Open(cfg)
	if err != nil {
		t.Fatalf("framestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedEdition creates an edition at 24 fps whose frames carry fingerprints
// for the store's designated algorithm, in order from frame 0.
func SeedEdition(t testing.TB, store *framestore.Store, name string, fingerprints []hamming.Fingerprint) *framestore.Edition {
	t.Helper()

	ctx := context.Background()
	algorithm := store.Algorithm()
	edition, err := store.CreateEdition(ctx, framestore.Edition{
		Name:       name,
		Source:     name + ".mkv",
		FrameRate:  24,
		Algorithms: []string{algorithm},
	})
	if err != nil {
		t.Fatalf("CreateEdition: %v", err)
	}
	frames := make([]framestore.Frame, len(fingerprints))
	for i, fp := range fingerprints {
		frames[i] = framestore.Frame{Index: i, Hashes: map[string]hamming.Fingerprint{algorithm: fp}}
	}
	if err := store.InsertFrames(ctx, edition.Name, frames); err != nil {
		t.Fatalf("InsertFrames: %v", err)
	}
	edition.FrameCount = len(frames)
	return edition
}
