// Package log builds the zap logger used by the CLI.
package log

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	logLevel string
	output   zapcore.WriteSyncer
}

// Option configures NewLogger.
type Option func(o *options)

// WithLogLevel sets the minimum level ("debug", "info", "warn", "error").
func WithLogLevel(lv string) Option {
	return func(o *options) {
		o.logLevel = lv
	}
}

// WithOutput sends log lines to w instead of stderr.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = zapcore.AddSync(w)
	}
}

// NewLogger returns a JSON logger writing to stderr at info level unless
// configured otherwise.
func NewLogger(opts ...Option) (*zap.Logger, error) {
	options := options{
		logLevel: "info",
	}
	for _, e := range opts {
		e(&options)
	}

	var al zap.AtomicLevel
	if err := al.UnmarshalText([]byte(options.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", options.logLevel, err)
	}

	encConfig := zap.NewProductionEncoderConfig()
	encConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if options.output != nil {
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encConfig), options.output, al)
		return zap.New(core), nil
	}

	zc := zap.Config{
		DisableCaller:     true,
		DisableStacktrace: true,
		Level:             al,
		Encoding:          "json",
		EncoderConfig:     encConfig,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	zl, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return zl, nil
}
