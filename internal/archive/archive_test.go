package archive_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"cutdiff/internal/archive"
	"cutdiff/internal/chapters"
	"cutdiff/internal/framestore"
	"cutdiff/internal/services"
	"cutdiff/internal/testsupport"
)

func seededStore(t *testing.T) *framestore.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedEdition(t, store, "theatrical", testsupport.Sequence("c", 0, 1200))
	err := store.ReplaceChapters(context.Background(), "theatrical", []chapters.Chapter{
		{Start: 0, Title: "Opening"},
		{Start: 30 * time.Second, Title: "Helm's Deep"},
	})
	if err != nil {
		t.Fatalf("replace chapters: %v", err)
	}
	return store
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := seededStore(t)

	var buf bytes.Buffer
	header, err := archive.Export(ctx, source, "theatrical", &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if header.FrameCount != 1200 || len(header.Chapters) != 2 {
		t.Fatalf("unexpected header %+v", header)
	}

	target := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	edition, err := archive.Import(ctx, target, &buf, archive.ImportOptions{Rename: "Theatrical Copy"})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if edition.Name != "theatrical_copy" || edition.FrameCount != 1200 || edition.FrameRate != 24 {
		t.Fatalf("unexpected edition %+v", edition)
	}

	want, err := source.Records(ctx, "theatrical")
	if err != nil {
		t.Fatalf("source records: %v", err)
	}
	got, err := target.Records(ctx, "theatrical_copy")
	if err != nil {
		t.Fatalf("target records: %v", err)
	}
	for i := range want {
		if got[i].Index != want[i].Index || got[i].Fingerprint.String() != want[i].Fingerprint.String() {
			t.Fatalf("frame %d differs after round trip", i)
		}
	}
	list, err := target.Chapters(ctx, "theatrical_copy")
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	if len(list) != 2 || list[1].Title != "Helm's Deep" || list[1].Start != 30*time.Second {
		t.Fatalf("unexpected chapters %+v", list)
	}
}

func TestExportFileAndReplaceOnImport(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	path := filepath.Join(t.TempDir(), "theatrical.ndjson.zst")
	if _, err := archive.ExportFile(ctx, store, "theatrical", path); err != nil {
		t.Fatalf("export file: %v", err)
	}

	if _, err := archive.ImportFile(ctx, store, path, archive.ImportOptions{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate import to fail validation, got %v", err)
	}
	edition, err := archive.ImportFile(ctx, store, path, archive.ImportOptions{Replace: true})
	if err != nil {
		t.Fatalf("replace import: %v", err)
	}
	if edition.FrameCount != 1200 {
		t.Fatalf("expected 1200 frames after replace, got %d", edition.FrameCount)
	}
	if _, err := archive.ImportFile(ctx, store, path+".missing", archive.ImportOptions{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected missing archive to be not found, got %v", err)
	}
}

func compress(t *testing.T, lines ...any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	for _, line := range lines {
		if err := json.NewEncoder(enc).Encode(line); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return &buf
}

func TestImportRejectsBadArchives(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	header := archive.Header{
		Format:     "cutdiff-fingerprints",
		Version:    1,
		Edition:    "extended",
		FrameRate:  24,
		FrameCount: 3,
		Algorithms: []string{store.Algorithm()},
	}
	frame := func(i int, hash string) map[string]any {
		return map[string]any{"i": i, "h": map[string]string{store.Algorithm(): hash}}
	}

	cases := map[string]*bytes.Buffer{
		"not zstd":      bytes.NewBufferString("plain text"),
		"wrong format":  compress(t, archive.Header{Format: "other", Version: 1}),
		"bad hash":      compress(t, header, frame(0, "zz")),
		"short archive": compress(t, header, frame(0, "00ff"), frame(1, "ff00")),
	}
	for name, payload := range cases {
		_, err := archive.Import(ctx, store, payload, archive.ImportOptions{})
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
		if _, err := store.Edition(ctx, "extended"); !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("%s: expected failed import to leave no edition, got %v", name, err)
		}
	}
}
