package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateHashing(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateObjectStore(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if c.Alignment.FrameRate <= 0 {
		return errors.New("alignment.frame_rate must be positive")
	}
	if c.Alignment.PerceptualMatchThreshold < 0 {
		return errors.New("alignment.perceptual_match_threshold must not be negative")
	}
	if err := ensurePositiveMap(map[string]int{
		"alignment.extended_similarity_threshold": c.Alignment.ExtendedSimilarityThreshold,
		"alignment.maximum_inter_match_search":    c.Alignment.MaximumInterMatchSearch,
	}); err != nil {
		return err
	}
	if !slices.Contains(c.Hashing.Algorithms, c.Alignment.Algorithm) {
		return fmt.Errorf("alignment.algorithm %q must be listed in hashing.algorithms", c.Alignment.Algorithm)
	}
	return nil
}

func (c *Config) validateHashing() error {
	return ensurePositiveMap(map[string]int{
		"hashing.workers":    c.Hashing.Workers,
		"hashing.frame_size": c.Hashing.FrameSize,
		"hashing.batch_size": c.Hashing.BatchSize,
	})
}

func (c *Config) validateExtraction() error {
	if c.Extraction.PaddingSeconds < 0 {
		return errors.New("extraction.padding_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateObjectStore() error {
	if !c.ObjectStore.Enabled {
		return nil
	}
	if c.ObjectStore.Endpoint == "" {
		return errors.New("object_store.endpoint must be set when object_store.enabled is true")
	}
	if c.ObjectStore.Bucket == "" {
		return errors.New("object_store.bucket must be set when object_store.enabled is true")
	}
	if c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "" {
		return errors.New("object_store credentials must be set (or export CUTDIFF_S3_ACCESS_KEY / CUTDIFF_S3_SECRET_KEY) when object_store.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
