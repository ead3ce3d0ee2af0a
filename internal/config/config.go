// Package config handles exporter configuration loading and management.
package config

// Config holds all exporter settings.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig describes where the per-frame mesh data comes from.
type SourceConfig struct {
	Dir     string  `yaml:"dir"`     // Directory of per-frame OBJ files
	Pattern string  `yaml:"pattern"` // Frame file name pattern, e.g. "frame_%04d.obj"
	FPS     float64 `yaml:"fps"`     // Timeline rate the frames were exported at
}

// ExportConfig holds cache output settings.
type ExportConfig struct {
	OutputPath  string `yaml:"output_path"`
	Format      string `yaml:"format"`
	FrameStart  int    `yaml:"frame_start"`
	FrameEnd    int    `yaml:"frame_end"`
	NoOverwrite bool   `yaml:"no_overwrite"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values. The frame range
// defaults match the usual host timeline: frames 1 through 250 at 24fps.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Pattern: "frame_%04d.obj",
			FPS:     24,
		},
		Export: ExportConfig{
			OutputPath:  "cache.mdd",
			Format:      "mdd",
			FrameStart:  1,
			FrameEnd:    250,
			NoOverwrite: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
