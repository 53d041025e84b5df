package logging

import "go.uber.org/zap/zapcore"

// Config is the configuration for the logging subsystem.
type Config struct {
	// Level is the minimum enabled logging level.
	Level zapcore.Level `yaml:"level"`
	// OutputPaths is a list of URLs or file paths to write logging output
	// to. Defaults to stderr.
	OutputPaths []string `yaml:"output_paths"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:       zapcore.InfoLevel,
		OutputPaths: []string{"stderr"},
	}
}
