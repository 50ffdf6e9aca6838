package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
}

// Store contains configuration for the fingerprint database.
type Store struct {
	Path string `toml:"path"`
}

// Alignment contains the thresholds used when comparing two editions.
type Alignment struct {
	// Algorithm is the fingerprint column used for anchors and refinement.
	Algorithm string `toml:"algorithm"`
	// FrameRate converts frame indices to timestamps. Default: 23.976216
	FrameRate float64 `toml:"frame_rate"`
	// PerceptualMatchThreshold is the hamming distance at or below which two
	// frames are treated as the same frame. Default: 5
	PerceptualMatchThreshold int `toml:"perceptual_match_threshold"`
	// ExtendedSimilarityThreshold is the longest one-sided insertion, in
	// frames, that may be suppressed as padding. Default: 12
	ExtendedSimilarityThreshold int `toml:"extended_similarity_threshold"`
	// MaximumInterMatchSearch caps how many frames are compared from each end
	// of a gap per refinement step. Default: 24
	MaximumInterMatchSearch int `toml:"maximum_inter_match_search"`
}

// Hashing contains configuration for the fingerprint pipeline.
type Hashing struct {
	Workers    int      `toml:"workers"`
	FrameSize  int      `toml:"frame_size"`
	BatchSize  int      `toml:"batch_size"`
	Algorithms []string `toml:"algorithms"`
}

// Extraction contains configuration for clip and still extraction.
type Extraction struct {
	PaddingSeconds int  `toml:"padding_seconds"`
	TrimVideos     bool `toml:"trim_videos"`
	GrabFrames     bool `toml:"grab_frames"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// ObjectStore contains configuration for publishing reports and archives to
// S3-compatible storage.
type ObjectStore struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Config encapsulates all configuration values for cutdiff.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and clip output directories
//   - Store: fingerprint database location
//   - Alignment: comparison algorithm and thresholds
//   - Hashing: fingerprint pipeline concurrency and algorithms
//   - Extraction: clip padding and which artifacts to cut
//   - Logging: log format and level
//   - ObjectStore: optional S3-compatible publishing target
type Config struct {
	Paths       Paths       `toml:"paths"`
	Store       Store       `toml:"store"`
	Alignment   Alignment   `toml:"alignment"`
	Hashing     Hashing     `toml:"hashing"`
	Extraction  Extraction  `toml:"extraction"`
	Logging     Logging     `toml:"logging"`
	ObjectStore ObjectStore `toml:"object_store"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cutdiff/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cutdiff.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the CLI writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.OutputDir, filepath.Dir(c.Store.Path)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the file lock guarding writes to the fingerprint database.
func (c *Config) LockPath() string {
	return c.Store.Path + ".lock"
}

// FFmpegBinary returns the ffmpeg executable name used for decoding and cutting.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
