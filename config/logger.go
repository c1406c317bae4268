package config

import (
	"fmt"
	"io"
	stdslog "log/slog"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/listcount"
	lclogrus "github.com/unkn0wn-root/listcount/log/logrus"
	lcslog "github.com/unkn0wn-root/listcount/log/slog"
	lczap "github.com/unkn0wn-root/listcount/log/zap"
	lczerolog "github.com/unkn0wn-root/listcount/log/zerolog"
)

// NewLogger builds the configured backend writing to stdout or stderr.
func NewLogger(cfg LoggerConfig) (listcount.Logger, error) {
	w := os.Stderr
	if cfg.Output == "stdout" {
		w = os.Stdout
	}
	return newLogger(cfg, w)
}

func newLogger(cfg LoggerConfig, w io.Writer) (listcount.Logger, error) {
	switch cfg.Backend {
	case "", "zerolog":
		l, err := newZerolog(cfg, w)
		if err != nil {
			return nil, err
		}
		return lczerolog.Logger{L: l}, nil
	case "zap":
		l, err := newZap(cfg, w)
		if err != nil {
			return nil, err
		}
		return lczap.ZapLogger{L: l}, nil
	case "logrus":
		e, err := newLogrus(cfg, w)
		if err != nil {
			return nil, err
		}
		return lclogrus.LogrusLogger{E: e}, nil
	case "slog":
		l, err := newSlog(cfg, w)
		if err != nil {
			return nil, err
		}
		return lcslog.Logger{L: l}, nil
	default:
		return nil, fmt.Errorf("config: unknown logger backend %q", cfg.Backend)
	}
}

func newZerolog(cfg LoggerConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, NoColor: cfg.Env != "dev"}
	}
	ctx := zerolog.New(w).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("env", cfg.Env)
	if len(cfg.Fields) > 0 {
		ctx = ctx.Fields(cfg.Fields)
	}
	return ctx.Logger().Level(level), nil
}

func newZap(cfg LoggerConfig, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Format == "console" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)

	fields := []zap.Field{zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env)}
	keys := make([]string, 0, len(cfg.Fields))
	for k := range cfg.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, cfg.Fields[k]))
	}
	return zap.New(core).With(fields...), nil
}

func newLogrus(cfg LoggerConfig, w io.Writer) (*logrus.Entry, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	if cfg.Format == "console" {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: cfg.Env != "dev", FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	fields := logrus.Fields{"service": cfg.ServiceName, "env": cfg.Env}
	for k, v := range cfg.Fields {
		fields[k] = v
	}
	return l.WithFields(fields), nil
}

func newSlog(cfg LoggerConfig, w io.Writer) (*stdslog.Logger, error) {
	var level stdslog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}
	opts := &stdslog.HandlerOptions{Level: level}
	var h stdslog.Handler
	if cfg.Format == "console" {
		h = stdslog.NewTextHandler(w, opts)
	} else {
		h = stdslog.NewJSONHandler(w, opts)
	}
	args := []any{"service", cfg.ServiceName, "env", cfg.Env}
	keys := make([]string, 0, len(cfg.Fields))
	for k := range cfg.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k, cfg.Fields[k])
	}
	return stdslog.New(h).With(args...), nil
}
