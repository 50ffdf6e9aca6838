package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cutdiff/internal/config"
	"cutdiff/internal/framestore"
	"cutdiff/internal/hamming"
	"cutdiff/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	opts = append([]testsupport.ConfigOption{testsupport.WithAlgorithm("md5")}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

// seed stores editions keyed by name, then releases the store so the CLI
// opens it fresh.
func (e *cliTestEnv) seed(t *testing.T, editions map[string][]hamming.Fingerprint) {
	t.Helper()
	store, err := framestore.Open(e.cfg)
	if err != nil {
		t.Fatalf("framestore.Open: %v", err)
	}
	defer store.Close()
	for name, fingerprints := range editions {
		testsupport.SeedEdition(t, store, name, fingerprints)
	}
}

// seedInsertion stores "theatrical" and an "extended" cut with six extra
// frames after frame 109.
func (e *cliTestEnv) seedInsertion(t *testing.T) {
	t.Helper()
	extended := append(testsupport.Sequence("c", 0, 110), testsupport.Sequence("x", 0, 6)...)
	extended = append(extended, testsupport.Sequence("c", 110, 200)...)
	e.seed(t, map[string][]hamming.Fingerprint{
		"theatrical": testsupport.Sequence("c", 0, 200),
		"extended":   extended,
	})
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
