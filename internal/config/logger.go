package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evtrends/evtrends/internal/version"
)

// NewLogger builds the process logger from the logging.* keys:
// level (debug|info|warn|error), format (json|console) and output, a
// comma-separated list of sinks ("stderr", "stdout" or file paths).
// Every entry carries the service name and build version.
func NewLogger(v *viper.Viper) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(v.GetString("logging.level"))
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	var cfg zap.Config
	switch format := v.GetString("logging.format"); format {
	case "", "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("logging.format: %q is not json or console", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = outputs(v.GetString("logging.output"))
	cfg.InitialFields = map[string]any{
		"service": "evtrends",
		"version": version.Short(),
	}
	return cfg.Build()
}

func outputs(spec string) []string {
	var paths []string
	for _, p := range strings.Split(spec, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return []string{"stderr"}
	}
	return paths
}
