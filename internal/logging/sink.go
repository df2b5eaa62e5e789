package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors the severities a spin simulator reports.
type Level int

const (
	Severe Level = iota
	Error
	Warning
	Parameter
	Info
	Debug
)

func (l Level) String() string {
	switch l {
	case Severe:
		return "severe"
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Parameter:
		return "parameter"
	case Info:
		return "info"
	case Debug:
		return "debug"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) zap() zapcore.Level {
	switch l {
	case Severe, Error:
		return zapcore.ErrorLevel
	case Warning:
		return zapcore.WarnLevel
	case Parameter, Info:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Sender names the subsystem a record originates from.
type Sender string

const (
	SenderAPI  Sender = "API"
	SenderIO   Sender = "IO"
	SenderLLG  Sender = "LLG"
	SenderMC   Sender = "MC"
	SenderGNEB Sender = "GNEB"
	SenderUI   Sender = "UI"
)

// Sink records human-readable messages tagged with an image and chain index.
type Sink interface {
	Record(level Level, sender Sender, msg string, idxImage, idxChain int)
}

type zapSink struct {
	logger *zap.Logger
}

// NewSink adapts a zap logger. A nil logger discards every record.
func NewSink(logger *zap.Logger) Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapSink{logger: logger}
}

func (s *zapSink) Record(level Level, sender Sender, msg string, idxImage, idxChain int) {
	if ce := s.logger.Check(level.zap(), msg); ce != nil {
		ce.Write(
			zap.String("sender", string(sender)),
			zap.Stringer("severity", level),
			zap.Int("image", idxImage),
			zap.Int("chain", idxChain),
		)
	}
}

// Options configures the process logger.
type Options struct {
	Level  string
	Format string
	Output string
}

// New builds a zap logger: "json" format uses the production encoder,
// anything else the console encoder.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(opts.Format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}

	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if opts.Output != "" {
		cfg.OutputPaths = []string{opts.Output}
	}

	return cfg.Build()
}
