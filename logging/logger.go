// Package logging provides the zap-backed implementation of
// core.ComponentAwareLogger used throughout the module.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kazkozdev/promptstudio/core"
)

// zapLogger implements core.ComponentAwareLogger over a *zap.Logger.
//
// Configuration priority mirrors the teacher's layered approach:
//  1. STUDIO_LOG_LEVEL / STUDIO_LOG_FORMAT environment variables
//  2. defaults (info level; json format when KUBERNETES_SERVICE_HOST is
//     set, console format otherwise)
type zapLogger struct {
	base      *zap.Logger
	component string
}

var (
	rootOnce sync.Once
	root     *zap.Logger
)

func rootLogger() *zap.Logger {
	rootOnce.Do(func() {
		level := strings.ToUpper(os.Getenv("STUDIO_LOG_LEVEL"))
		if level == "" {
			level = "INFO"
		}
		format := os.Getenv("STUDIO_LOG_FORMAT")
		if format == "" {
			if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
				format = "json"
			} else {
				format = "console"
			}
		}

		var zapLevel zapcore.Level
		if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
			zapLevel = zapcore.InfoLevel
		}

		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapLevel)
		cfg.Encoding = "json"
		if format != "json" {
			cfg.Encoding = "console"
			cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		}

		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		root = l
	})
	return root
}

// New returns the root logger, scoped to component "studio".
func New() core.ComponentAwareLogger {
	return &zapLogger{base: rootLogger(), component: "studio"}
}

func (l *zapLogger) WithComponent(name string) core.ComponentAwareLogger {
	return &zapLogger{base: l.base, component: name}
}

func (l *zapLogger) fields(extra map[string]interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(extra)+1)
	fields = append(fields, zap.String("component", l.component))
	for k, v := range extra {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

func (l *zapLogger) Debug(msg string, f map[string]interface{}) {
	l.base.Debug(msg, l.fields(f)...)
}

func (l *zapLogger) Info(msg string, f map[string]interface{}) {
	l.base.Info(msg, l.fields(f)...)
}

func (l *zapLogger) Warn(msg string, f map[string]interface{}) {
	l.base.Warn(msg, l.fields(f)...)
}

func (l *zapLogger) Error(msg string, f map[string]interface{}) {
	l.base.Error(msg, l.fields(f)...)
}
