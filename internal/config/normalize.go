package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAlignment()
	c.normalizeHashing()
	c.normalizeObjectStore()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAlignment() {
	c.Alignment.Algorithm = strings.ToLower(strings.TrimSpace(c.Alignment.Algorithm))
	if c.Alignment.Algorithm == "" {
		c.Alignment.Algorithm = defaultAlgorithm
	}
}

func (c *Config) normalizeHashing() {
	seen := make(map[string]struct{}, len(c.Hashing.Algorithms))
	algorithms := make([]string, 0, len(c.Hashing.Algorithms))
	for _, name := range c.Hashing.Algorithms {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		algorithms = append(algorithms, name)
	}
	if len(algorithms) == 0 {
		algorithms = append(algorithms, defaultHashAlgorithms...)
	}
	c.Hashing.Algorithms = algorithms
}

func (c *Config) normalizeObjectStore() {
	if value, ok := os.LookupEnv("CUTDIFF_S3_ACCESS_KEY"); ok {
		c.ObjectStore.AccessKey = value
	}
	if value, ok := os.LookupEnv("CUTDIFF_S3_SECRET_KEY"); ok {
		c.ObjectStore.SecretKey = value
	}
	c.ObjectStore.Endpoint = strings.TrimSpace(c.ObjectStore.Endpoint)
	c.ObjectStore.Bucket = strings.TrimSpace(c.ObjectStore.Bucket)
	c.ObjectStore.Prefix = strings.Trim(strings.TrimSpace(c.ObjectStore.Prefix), "/")
	c.ObjectStore.AccessKey = strings.TrimSpace(c.ObjectStore.AccessKey)
	c.ObjectStore.SecretKey = strings.TrimSpace(c.ObjectStore.SecretKey)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
