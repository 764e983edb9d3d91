// Package logging builds the zap loggers shared by every pipeline stage.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/config"
)

// New creates the root logger. Output goes to stdout and, when cfg.File is
// set, to that file as well.
func New(cfg config.Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = "json"
	if cfg.Encoding == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.Sampling = nil
	zc.OutputPaths = []string{"stdout"}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	return zc.Build(zap.Fields(zap.String("app", "logiflow")))
}

// Stage returns a child logger tagged with an ETL stage (extract, transform,
// validate, load).
func Stage(log *zap.Logger, stage string) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return log.Named(stage).With(zap.String("stage", stage))
}
