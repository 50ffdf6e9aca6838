package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cutdiff/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStore := filepath.Join(tempHome, ".local", "share", "cutdiff", "frame_hashes.db")
	if cfg.Store.Path != wantStore {
		t.Fatalf("unexpected store path: got %q want %q", cfg.Store.Path, wantStore)
	}
	if cfg.Alignment.Algorithm != "block_mean_0" {
		t.Fatalf("unexpected algorithm: %q", cfg.Alignment.Algorithm)
	}
	if cfg.Alignment.FrameRate != 23.976216 {
		t.Fatalf("unexpected frame rate: %v", cfg.Alignment.FrameRate)
	}
	if cfg.Alignment.PerceptualMatchThreshold != 5 ||
		cfg.Alignment.ExtendedSimilarityThreshold != 12 ||
		cfg.Alignment.MaximumInterMatchSearch != 24 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Alignment)
	}
	if cfg.ObjectStore.Enabled {
		t.Fatal("expected object store disabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, filepath.Dir(cfg.Store.Path)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "cutdiff.toml")

	type payload struct {
		Alignment struct {
			Algorithm                string  `toml:"algorithm"`
			FrameRate                float64 `toml:"frame_rate"`
			PerceptualMatchThreshold int     `toml:"perceptual_match_threshold"`
		} `toml:"alignment"`
		Hashing struct {
			Workers    int      `toml:"workers"`
			Algorithms []string `toml:"algorithms"`
		} `toml:"hashing"`
	}
	custom := payload{}
	custom.Alignment.Algorithm = "Perceptual"
	custom.Alignment.FrameRate = 25
	custom.Alignment.PerceptualMatchThreshold = 3
	custom.Hashing.Workers = 8
	custom.Hashing.Algorithms = []string{"perceptual", " PERCEPTUAL ", "md5"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Alignment.Algorithm != "perceptual" {
		t.Fatalf("expected normalized algorithm, got %q", cfg.Alignment.Algorithm)
	}
	if cfg.Alignment.FrameRate != 25 || cfg.Alignment.PerceptualMatchThreshold != 3 {
		t.Fatalf("unexpected alignment overrides: %+v", cfg.Alignment)
	}
	if cfg.Alignment.MaximumInterMatchSearch != 24 {
		t.Fatalf("expected unset fields to keep defaults, got %d", cfg.Alignment.MaximumInterMatchSearch)
	}
	if cfg.Hashing.Workers != 8 {
		t.Fatalf("expected workers 8, got %d", cfg.Hashing.Workers)
	}
	if strings.Join(cfg.Hashing.Algorithms, ",") != "perceptual,md5" {
		t.Fatalf("expected deduplicated algorithms, got %v", cfg.Hashing.Algorithms)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"frame rate", func(c *config.Config) { c.Alignment.FrameRate = 0 }, "alignment.frame_rate"},
		{"search window", func(c *config.Config) { c.Alignment.MaximumInterMatchSearch = 0 }, "alignment.maximum_inter_match_search"},
		{"algorithm not hashed", func(c *config.Config) { c.Alignment.Algorithm = "average"; c.Hashing.Algorithms = []string{"md5"} }, "hashing.algorithms"},
		{"workers", func(c *config.Config) { c.Hashing.Workers = 0 }, "hashing.workers"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"object store bucket", func(c *config.Config) {
			c.ObjectStore.Enabled = true
			c.ObjectStore.Endpoint = "localhost:9000"
		}, "object_store.bucket"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestEnvVarOverridesObjectStoreCredentials(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "cutdiff.toml")
	content := `
[object_store]
enabled = true
endpoint = "localhost:9000"
bucket = "editions"
access_key = "file-access"
secret_key = "file-secret"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CUTDIFF_S3_ACCESS_KEY", "env-access")
	t.Setenv("CUTDIFF_S3_SECRET_KEY", "env-secret")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ObjectStore.AccessKey != "env-access" || cfg.ObjectStore.SecretKey != "env-secret" {
		t.Fatalf("expected credentials from env, got %q / %q", cfg.ObjectStore.AccessKey, cfg.ObjectStore.SecretKey)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Extraction.PaddingSeconds != 5 {
		t.Fatalf("unexpected padding: %d", cfg.Extraction.PaddingSeconds)
	}
}
