// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"estatehub/internal/config"
)

const (
	logFileMaxBytes   = 10 << 20
	logFileMaxBackups = 5
)

// New returns a console logger in development and a JSON logger otherwise.
// When cfg.LogFile is set, entries are also written as JSON to a size-rotated
// file. The returned closer releases that file.
func New(cfg config.Config) (*zap.Logger, io.Closer, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	var (
		stdoutEnc zapcore.Encoder
		opts      []zap.Option
	)
	if cfg.Environment == config.EnvDevelopment {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		stdoutEnc = zapcore.NewConsoleEncoder(encCfg)
		opts = append(opts, zap.Development())
	} else {
		stdoutEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	opts = append(opts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	cores := []zapcore.Core{
		zapcore.NewCore(stdoutEnc, zapcore.Lock(os.Stdout), level),
	}

	var closer io.Closer = nopCloser{}
	if cfg.LogFile != "" {
		w, err := NewRotatingFile(cfg.LogFile, logFileMaxBytes, logFileMaxBackups)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, level))
		closer = w
	}

	logger := zap.New(zapcore.NewTee(cores...), opts...).
		With(zap.String("env", cfg.Environment))
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
