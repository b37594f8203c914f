package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02 15:04:05"

const (
	ansiGreen = "\x1b[32m"
	ansiReset = "\x1b[0m"
)

type Options struct {
	Level   string
	Format  string
	NoColor bool
	// Output defaults to a colorable stdout. Color is then turned off when
	// stdout is not a terminal.
	Output io.Writer
}

var stdoutIsTerminal = func() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Logger is the sink every worker writes to. Entries are written through a
// locked syncer, so lines from concurrent workers never interleave.
type Logger struct {
	z     *zap.Logger
	color bool
}

func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
	}

	out := opts.Output
	if out == nil {
		out = colorable.NewColorableStdout()
		if !stdoutIsTerminal() {
			opts.NoColor = true
		}
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	encCfg.CallerKey = zapcore.OmitKey
	encCfg.StacktraceKey = zapcore.OmitKey

	var enc zapcore.Encoder
	color := false
	switch opts.Format {
	case "", "console":
		if opts.NoColor {
			encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		} else {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
			color = true
		}
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
		encCfg.CallerKey = zapcore.OmitKey
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(out)), level)
	return &Logger{z: zap.New(core), color: color}, nil
}

// NewWithCore wraps an existing core, e.g. an observer in tests.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{z: zap.New(core)}
}

func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...), color: l.color}
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}

// Success is logged at info level and tagged status=success.
func (l *Logger) Success(msg string, fields ...zap.Field) {
	if l.color {
		msg = ansiGreen + msg + ansiReset
	}
	l.z.Info(msg, append(fields[:len(fields):len(fields)], zap.String("status", "success"))...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}

func (l *Logger) Sync() error {
	return l.z.Sync()
}

// MaskToken keeps the first and last four characters of a token so log
// lines stay correlatable without leaking the credential.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
