package config

// LoggingConfig controls the category-based debug logging.
// When DebugMode is false no log files are written at all.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories"`
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		DebugMode: false,
		Level:     "info",
		Dir:       ".nl2code/logs",
	}
}
