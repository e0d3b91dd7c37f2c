package logger

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level      string
	FileName   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	Debug      bool
}

// New builds a console logger on stderr, teed into a rotated JSON file
// when FileName is set. Every entry carries the run_id field.
func New(opts Options) (*zap.Logger, string) {
	level := parseLevel(opts.Level)
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), level),
	}

	if opts.FileName != "" {
		writer := &lumberjack.Logger{
			Filename:   opts.FileName,
			MaxSize:    orDefault(opts.MaxSize, 50),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAge, 30),
			Compress:   opts.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(writer), level))
	}

	runID := uuid.NewString()
	log := zap.New(zapcore.NewTee(cores...)).With(zap.String("run_id", runID))
	return log, runID
}

func Nop() *zap.Logger {
	return zap.NewNop()
}

func parseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
