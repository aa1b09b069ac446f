package salelink

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerEnv selects the zap configuration used by NewLogger.
type LoggerEnv string

const (
	// EnvDevelopment gives human readable console output.
	EnvDevelopment LoggerEnv = "development"
	// EnvProduction gives structured JSON output.
	EnvProduction LoggerEnv = "production"
)

// NewLogger builds a zap logger for env. Unknown values fall back to production.
func NewLogger(env LoggerEnv) *zap.Logger {
	var cfg zap.Config
	if env == EnvDevelopment {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.CallerKey = ""
		cfg.DisableStacktrace = true
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.LevelKey = "level"
		cfg.EncoderConfig.CallerKey = "caller"
		cfg.DisableStacktrace = false
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Printf("salelink: failed to build zap logger for env '%s', falling back to no-op logger: %v", env, err)
		return zap.NewNop()
	}
	return logger
}

type settings struct {
	logger          *zap.Logger
	defaultQuantity float64
}

func defaultSettings() settings {
	return settings{
		logger:          zap.NewNop(),
		defaultQuantity: 1,
	}
}

// Option configures a SalesCounter or an Importer.
type Option func(*settings)

// WithLogger sets the zap logger. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLoggerEnv builds a logger with NewLogger. WithLogger wins if both are given
// and WithLogger comes last.
func WithLoggerEnv(env LoggerEnv) Option {
	return func(s *settings) {
		s.logger = NewLogger(env)
	}
}

// WithDefaultQuantity sets the quantity staged for items given without one.
// Only the Importer reads it. Values not above zero are ignored.
func WithDefaultQuantity(q float64) Option {
	return func(s *settings) {
		if q > 0 {
			s.defaultQuantity = q
		}
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
