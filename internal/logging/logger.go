// Package logging builds the service-wide zap logger: console encoding for
// local runs, JSON in prod, with a level that can be adjusted at runtime.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	Base   *zap.Logger
	Sugar  *zap.SugaredLogger
	Level  zap.AtomicLevel
	Closer func()
}

// Init builds the logger for the given level and environment. An
// unparseable level falls back to info rather than failing startup.
func Init(level, env string) (*Log, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	var cfg zap.Config
	if strings.ToLower(env) == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return &Log{
		Base:   base,
		Sugar:  base.Sugar(),
		Level:  lvl,
		Closer: func() { _ = base.Sync() },
	}, nil
}
