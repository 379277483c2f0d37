package config

// StoreDirName is the per-root directory holding the default dedup store.
const StoreDirName = ".squeeze"

const (
	defaultStateDir        = "~/.local/share/squeeze"
	defaultLogDir          = "~/.local/share/squeeze/logs"
	defaultHashAlgorithm   = "sha256"
	defaultMinSizeBytes    = 1536 * 1024
	defaultTargetSizeBytes = 1536 * 1024
	defaultLadderStart     = 85
	defaultWEBPLadderStart = 80
	defaultLadderStep      = 5
	defaultLadderFloor     = 50
	defaultJPEGTool        = "cjpeg"
	defaultWEBPTool        = "cwebp"
	defaultPNGOptimizeTool = "oxipng"
	defaultPNGQuantizeTool = "pngquant"
	defaultOxipngLevel     = 4
	defaultToolTimeout     = 300
	defaultWorkersPerCPU   = 4
	defaultWorkersMax      = 32
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogRetention    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Store: Store{
			HashAlgorithm: defaultHashAlgorithm,
		},
		Compression: Compression{
			MinSizeBytes:    defaultMinSizeBytes,
			TargetSizeBytes: defaultTargetSizeBytes,
		},
		Ladder: Ladders{
			JPEG: Ladder{Start: defaultLadderStart, Step: defaultLadderStep, Floor: defaultLadderFloor},
			WEBP: Ladder{Start: defaultWEBPLadderStart, Step: defaultLadderStep, Floor: defaultLadderFloor},
			PNG:  Ladder{Start: defaultLadderStart, Step: defaultLadderStep, Floor: defaultLadderFloor},
		},
		Tools: Tools{
			JPEG:           defaultJPEGTool,
			WEBP:           defaultWEBPTool,
			PNGOptimize:    defaultPNGOptimizeTool,
			PNGQuantize:    defaultPNGQuantizeTool,
			OxipngLevel:    defaultOxipngLevel,
			TimeoutSeconds: defaultToolTimeout,
		},
		Workers: Workers{
			PerCPU: defaultWorkersPerCPU,
			Max:    defaultWorkersMax,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
