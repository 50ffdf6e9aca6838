package config

const (
	defaultDataDir                     = "~/.local/share/cutdiff"
	defaultLogDir                      = "~/.local/share/cutdiff/logs"
	defaultOutputDir                   = "out"
	defaultStorePath                   = "~/.local/share/cutdiff/frame_hashes.db"
	defaultAlgorithm                   = "block_mean_0"
	defaultFrameRate                   = 23.976216
	defaultPerceptualMatchThreshold    = 5
	defaultExtendedSimilarityThreshold = 12
	defaultMaximumInterMatchSearch     = 24
	defaultHashingWorkers              = 4
	defaultFrameSize                   = 256
	defaultBatchSize                   = 500
	defaultPaddingSeconds              = 5
	defaultLogFormat                   = "console"
	defaultLogLevel                    = "info"
	defaultObjectStorePrefix           = "cutdiff"
)

var defaultHashAlgorithms = []string{"md5", "average", "perceptual", "block_mean_0"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
		},
		Store: Store{
			Path: defaultStorePath,
		},
		Alignment: Alignment{
			Algorithm:                   defaultAlgorithm,
			FrameRate:                   defaultFrameRate,
			PerceptualMatchThreshold:    defaultPerceptualMatchThreshold,
			ExtendedSimilarityThreshold: defaultExtendedSimilarityThreshold,
			MaximumInterMatchSearch:     defaultMaximumInterMatchSearch,
		},
		Hashing: Hashing{
			Workers:    defaultHashingWorkers,
			FrameSize:  defaultFrameSize,
			BatchSize:  defaultBatchSize,
			Algorithms: append([]string(nil), defaultHashAlgorithms...),
		},
		Extraction: Extraction{
			PaddingSeconds: defaultPaddingSeconds,
			TrimVideos:     true,
			GrabFrames:     true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		ObjectStore: ObjectStore{
			Prefix: defaultObjectStorePrefix,
			UseSSL: true,
		},
	}
}
