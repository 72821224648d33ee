package config

// FormattingConfig configures assembled-output formatting.
type FormattingConfig struct {
	// IndentWidth is the number of spaces per indentation level.
	IndentWidth int `yaml:"indent_width"`

	// MaxLineLength is advisory; the validator reports longer lines as
	// improvement suggestions, nothing is wrapped automatically.
	MaxLineLength int `yaml:"max_line_length"`

	// AutoImport enables well-known symbol-to-module import augmentation.
	AutoImport bool `yaml:"auto_import"`
}

func defaultFormattingConfig() FormattingConfig {
	return FormattingConfig{
		IndentWidth:   4,
		MaxLineLength: 100,
		AutoImport:    true,
	}
}
