package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"freight-portal/pkg/config"
)

func NewLogger(cfg config.LoggerConfig) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.DebugLevel)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	outputs := []string{"stdout"}
	if cfg.File != "" {
		outputs = append(outputs, cfg.File)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	dualConfig := zap.Config{
		Encoding:         "console",
		Level:            level,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    encoderConfig,
	}

	dualLogger, err := dualConfig.Build()
	if err != nil {
		panic(err)
	}

	return dualLogger
}
