package config

const (
	defaultStateDir                = "~/.config/rmbloat"
	defaultBloatThreshold          = 1600
	minBloatThreshold              = 500
	defaultMaxHeight               = 1080
	defaultAllowedCodecs           = "x265"
	defaultQuality                 = 28
	defaultPreset                  = "medium"
	defaultThreadCount             = 3
	defaultMinShrinkPercent        = 10
	defaultProgressTimeoutSeconds  = 300
	defaultProgressIntervalMillis  = 500
	defaultSampleSeconds           = 30
	defaultMaxConsecutiveFailures  = 10
	defaultStrategyPreference      = "auto"
	defaultContainerImage          = "joedefen/ffmpeg-vaapi-docker:latest"
	defaultBenchmarkSeconds        = 30
	defaultProbeTimeoutSeconds     = 30
	defaultRuntimeCheckTimeout     = 5
	defaultImagePullTimeoutSeconds = 300
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
	probeCacheFileName             = "probe_cache.json"
	lockFileName                   = "rmbloat.lock"
	runLogFileName                 = "runlog.db"
	logFileName                    = "rmbloat.log"
	AllowedCodecsHEVC              = "x265"
	AllowedCodecsH26x              = "x26*"
	AllowedCodecsAll               = "all"
	StrategyAuto                   = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Selection: Selection{
			BloatThreshold: defaultBloatThreshold,
			MaxHeight:      defaultMaxHeight,
			AllowedCodecs:  defaultAllowedCodecs,
		},
		Encode: Encode{
			Quality:                defaultQuality,
			Preset:                 defaultPreset,
			ThreadCount:            defaultThreadCount,
			MinShrinkPercent:       defaultMinShrinkPercent,
			ProgressTimeoutSeconds: defaultProgressTimeoutSeconds,
			ProgressIntervalMillis: defaultProgressIntervalMillis,
			SampleSeconds:          defaultSampleSeconds,
			MaxConsecutiveFailures: defaultMaxConsecutiveFailures,
		},
		Strategy: Strategy{
			Prefer:                     defaultStrategyPreference,
			Image:                      defaultContainerImage,
			BenchmarkSeconds:           defaultBenchmarkSeconds,
			ProbeTimeoutSeconds:        defaultProbeTimeoutSeconds,
			RuntimeCheckTimeoutSeconds: defaultRuntimeCheckTimeout,
			ImagePullTimeoutSeconds:    defaultImagePullTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
