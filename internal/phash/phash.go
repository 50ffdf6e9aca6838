package phash

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"image"
	"slices"
	"sort"

	"github.com/corona10/goimagehash"

	"cutdiff/internal/hamming"
	"cutdiff/internal/services"
)

// Frame is a size x size 8-bit grayscale image in row-major order.
type Frame struct {
	Size   int
	Pixels []byte
}

// Validate checks the pixel buffer matches the declared size.
func (f Frame) Validate() error {
	if f.Size <= 0 || len(f.Pixels) != f.Size*f.Size {
		return fmt.Errorf("frame of size %d has %d pixels", f.Size, len(f.Pixels))
	}
	return nil
}

// Func computes one fingerprint for a frame.
type Func func(Frame) (hamming.Fingerprint, error)

var registry = map[string]Func{
	"md5":          contentHash,
	"average":      imageHash(goimagehash.AverageHash),
	"difference":   imageHash(goimagehash.DifferenceHash),
	"perceptual":   imageHash(goimagehash.PerceptionHash),
	"block_mean_0": func(f Frame) (hamming.Fingerprint, error) { return blockMeanHash(f, 16), nil },
	"block_mean_1": func(f Frame) (hamming.Fingerprint, error) { return blockMeanHash(f, 8), nil },
}

// Names returns the registered algorithm names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the algorithm registered under name.
func Lookup(name string) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "phash", "lookup",
			fmt.Sprintf("unknown algorithm %q (known: %v)", name, Names()), nil)
	}
	return fn, nil
}

// Set computes several algorithms over the same frame.
type Set struct {
	names []string
	funcs []Func
}

// NewSet resolves every name up front so unknown algorithms fail before any
// frame is decoded.
func NewSet(names []string) (*Set, error) {
	set := &Set{}
	for _, name := range names {
		fn, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		set.names = append(set.names, name)
		set.funcs = append(set.funcs, fn)
	}
	return set, nil
}

// Names returns the algorithms in the set.
func (s *Set) Names() []string {
	return slices.Clone(s.names)
}

// Compute returns every fingerprint in the set keyed by algorithm name.
func (s *Set) Compute(frame Frame) (map[string]hamming.Fingerprint, error) {
	out := make(map[string]hamming.Fingerprint, len(s.funcs))
	for i, fn := range s.funcs {
		fp, err := fn(frame)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.names[i], err)
		}
		out[s.names[i]] = fp
	}
	return out, nil
}

func contentHash(f Frame) (hamming.Fingerprint, error) {
	sum := md5.Sum(f.Pixels)
	return hamming.Fingerprint(sum[:]), nil
}

// Image returns the frame as a grayscale image sharing its pixel buffer.
func (f Frame) Image() *image.Gray {
	return &image.Gray{
		Pix:    f.Pixels,
		Stride: f.Size,
		Rect:   image.Rect(0, 0, f.Size, f.Size),
	}
}

// imageHash adapts a 64-bit goimagehash function to a big-endian
// fingerprint.
func imageHash(hash func(image.Image) (*goimagehash.ImageHash, error)) Func {
	return func(f Frame) (hamming.Fingerprint, error) {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		h, err := hash(f.Image())
		if err != nil {
			return nil, err
		}
		out := make(hamming.Fingerprint, 8)
		binary.BigEndian.PutUint64(out, h.GetHash())
		return out, nil
	}
}

// blockMeanHash scales the frame to 256x256, averages 16x16 blocks placed
// every step pixels, and sets one bit per block at or above the median.
func blockMeanHash(f Frame, step int) hamming.Fingerprint {
	const (
		side  = 256
		block = 16
	)
	img := resample(f, side, side)
	perRow := (side-block)/step + 1
	means := make([]float64, 0, perRow*perRow)
	for by := 0; by+block <= side; by += step {
		for bx := 0; bx+block <= side; bx += step {
			sum := 0.0
			for y := by; y < by+block; y++ {
				for x := bx; x < bx+block; x++ {
					sum += img[y*side+x]
				}
			}
			means = append(means, sum/(block*block))
		}
	}
	median := medianOf(means)
	return packBits(len(means), func(i int) bool { return means[i] >= median })
}

// resample scales the frame to w x h by averaging the source pixels each
// destination cell covers, falling back to the nearest pixel when upscaling.
func resample(f Frame, w, h int) []float64 {
	out := make([]float64, w*h)
	for y := range h {
		y0 := y * f.Size / h
		y1 := max((y+1)*f.Size/h, y0+1)
		for x := range w {
			x0 := x * f.Size / w
			x1 := max((x+1)*f.Size/w, x0+1)
			sum := 0
			for sy := y0; sy < y1; sy++ {
				row := f.Pixels[sy*f.Size:]
				for sx := x0; sx < x1; sx++ {
					sum += int(row[sx])
				}
			}
			out[y*w+x] = float64(sum) / float64((y1-y0)*(x1-x0))
		}
	}
	return out
}

func medianOf(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// packBits packs n predicate results into bytes, most significant bit first.
func packBits(n int, bit func(int) bool) hamming.Fingerprint {
	out := make(hamming.Fingerprint, (n+7)/8)
	for i := range n {
		if bit(i) {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}
