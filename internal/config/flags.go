package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagSourceDir   = flag.String("dir", "", "Directory of per-frame OBJ files")
	flagOutput      = flag.String("o", "", "Output cache file path")
	flagFrameStart  = flag.Int("start", -1, "Start frame of export range")
	flagFrameEnd    = flag.Int("end", -1, "End frame of export range")
	flagFPS         = flag.Float64("fps", 0, "Timeline frame rate")
	flagNoOverwrite = flag.Bool("no-overwrite", false, "Refuse to replace an existing output file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSourceDir != "" {
		cfg.Source.Dir = *flagSourceDir
	}
	if *flagOutput != "" {
		cfg.Export.OutputPath = *flagOutput
	}
	if *flagFrameStart >= 0 {
		cfg.Export.FrameStart = *flagFrameStart
	}
	if *flagFrameEnd >= 0 {
		cfg.Export.FrameEnd = *flagFrameEnd
	}
	if *flagFPS > 0 {
		cfg.Source.FPS = *flagFPS
	}
	if *flagNoOverwrite {
		cfg.Export.NoOverwrite = true
	}
}
