// Package archive moves hashed editions between frame stores as
// zstd-compressed NDJSON: a header line with the edition's metadata and
// chapters followed by one line per frame.
package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"cutdiff/internal/chapters"
	"cutdiff/internal/framestore"
	"cutdiff/internal/hamming"
	"cutdiff/internal/services"
)

const (
	formatName    = "cutdiff-fingerprints"
	formatVersion = 1
	importBatch   = 500
)

// Header is the first line of an archive.
type Header struct {
	Format     string    `json:"format"`
	Version    int       `json:"version"`
	Edition    string    `json:"edition"`
	Source     string    `json:"source"`
	FrameRate  float64   `json:"frame_rate"`
	FrameCount int       `json:"frame_count"`
	Algorithms []string  `json:"algorithms"`
	Chapters   []Chapter `json:"chapters,omitempty"`
	ExportedAt time.Time `json:"exported_at"`
}

// Chapter is a chapter marker in an archive header.
type Chapter struct {
	StartUS int64  `json:"start_us"`
	Title   string `json:"title"`
}

type frameLine struct {
	Index  int               `json:"i"`
	Hashes map[string]string `json:"h"`
}

// Export writes edition from store to w.
func Export(ctx context.Context, store *framestore.Store, edition string, w io.Writer) (*Header, error) {
	meta, err := store.Edition(ctx, edition)
	if err != nil {
		return nil, err
	}
	list, err := store.Chapters(ctx, meta.Name)
	if err != nil {
		return nil, err
	}
	header := &Header{
		Format:     formatName,
		Version:    formatVersion,
		Edition:    meta.Name,
		Source:     meta.Source,
		FrameRate:  meta.FrameRate,
		FrameCount: meta.FrameCount,
		Algorithms: meta.Algorithms,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
	}
	for _, chapter := range list {
		header.Chapters = append(header.Chapters, Chapter{StartUS: chapter.Start.Microseconds(), Title: chapter.Title})
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	lines := json.NewEncoder(enc)
	if err := lines.Encode(header); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	written := 0
	err = store.EachFrame(ctx, meta.Name, func(frame framestore.Frame) error {
		line := frameLine{Index: frame.Index, Hashes: make(map[string]string, len(frame.Hashes))}
		for algorithm, fp := range frame.Hashes {
			line.Hashes[algorithm] = fp.String()
		}
		written++
		return lines.Encode(line)
	})
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("write frames: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flush archive: %w", err)
	}
	header.FrameCount = written
	return header, nil
}

// ExportFile writes edition to path, replacing any existing file.
func ExportFile(ctx context.Context, store *framestore.Store, edition, path string) (*Header, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	header, err := Export(ctx, store, edition, file)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close archive: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return header, nil
}

// ImportOptions controls how an archive lands in the store.
type ImportOptions struct {
	// Rename stores the edition under a different name.
	Rename string
	// Replace drops an existing edition of the same name first.
	Replace bool
}

// Import reads an archive from r into store. A failed import removes the
// partially written edition.
func Import(ctx context.Context, store *framestore.Store, r io.Reader, opts ImportOptions) (*framestore.Edition, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, invalid("open archive", err)
	}
	defer dec.Close()

	lines := json.NewDecoder(bufio.NewReader(dec))
	var header Header
	if err := lines.Decode(&header); err != nil {
		return nil, invalid("read header", err)
	}
	if header.Format != formatName || header.Version != formatVersion {
		return nil, invalid(fmt.Sprintf("unsupported archive %s v%d", header.Format, header.Version), nil)
	}
	name := header.Edition
	if opts.Rename != "" {
		name = opts.Rename
	}

	unlock, err := store.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if opts.Replace {
		if err := store.DeleteEdition(ctx, name); err != nil && !errors.Is(err, services.ErrNotFound) {
			return nil, err
		}
	}
	edition, err := store.CreateEdition(ctx, framestore.Edition{
		Name:       name,
		Source:     header.Source,
		FrameRate:  header.FrameRate,
		Algorithms: header.Algorithms,
	})
	if err != nil {
		return nil, err
	}
	if err := importBody(ctx, store, edition.Name, &header, lines); err != nil {
		if delErr := store.DeleteEdition(context.WithoutCancel(ctx), edition.Name); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return nil, err
	}
	return store.Edition(ctx, edition.Name)
}

// ImportFile reads an archive from path.
func ImportFile(ctx context.Context, store *framestore.Store, path string, opts ImportOptions) (*framestore.Edition, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "archive", "open", path, err)
	}
	defer file.Close()
	return Import(ctx, store, file, opts)
}

func importBody(ctx context.Context, store *framestore.Store, edition string, header *Header, lines *json.Decoder) error {
	batch := make([]framestore.Frame, 0, importBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := store.InsertFrames(ctx, edition, batch)
		batch = batch[:0]
		return err
	}
	read := 0
	for {
		var line frameLine
		err := lines.Decode(&line)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return invalid(fmt.Sprintf("read frame line %d", read+1), err)
		}
		frame := framestore.Frame{Index: line.Index, Hashes: make(map[string]hamming.Fingerprint, len(line.Hashes))}
		for algorithm, value := range line.Hashes {
			fp, err := hamming.ParseHex(value)
			if err != nil {
				return invalid(fmt.Sprintf("frame %d %s", line.Index, algorithm), err)
			}
			frame.Hashes[algorithm] = fp
		}
		batch = append(batch, frame)
		read++
		if len(batch) == importBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if header.FrameCount > 0 && read != header.FrameCount {
		return invalid(fmt.Sprintf("archive holds %d frames, header declares %d", read, header.FrameCount), nil)
	}
	if len(header.Chapters) == 0 {
		return nil
	}
	list := make([]chapters.Chapter, 0, len(header.Chapters))
	for _, chapter := range header.Chapters {
		list = append(list, chapters.Chapter{Start: time.Duration(chapter.StartUS) * time.Microsecond, Title: chapter.Title})
	}
	return store.ReplaceChapters(ctx, edition, list)
}

func invalid(message string, err error) error {
	return services.Wrap(services.ErrValidation, "archive", "import", message, err)
}
