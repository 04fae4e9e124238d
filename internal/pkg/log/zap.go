package log

import (
	"context"
	"io"

	z "go.uber.org/zap"

	"github.com/devkapilbansal/watchstream/internal/pkg/log/zap"
)

type logger struct {
	zap   *z.SugaredLogger
	level *z.AtomicLevel
}

// New returns an instance of Logger implemented using the Zap logging
// framework, writing to out at the given level. An unparseable level
// string falls back to info and logs the problem.
func New(logLevel string, out io.Writer) Logger {
	zLevel, parseLogLevelErr := zap.ParseLogLevel(logLevel)

	log := zap.New(
		zap.Level(&zLevel),
		zap.WriteTo(out),
		// Skip one caller frame so log sites are attributed to the
		// component calling the Logger, not this wrapper.
		zap.AddCallerSkip(1),
	)

	if parseLogLevelErr != nil {
		log.Error("cannot set logger to desired log level", z.String("level", logLevel))
	}
	return &logger{zap: log.Sugar(), level: &zLevel}
}

func (l *logger) Named(name string) Logger {
	return &logger{zap: l.zap.Named(name), level: l.level}
}

func (l *logger) With(args ...interface{}) Logger {
	return &logger{zap: l.zap.With(args...), level: l.level}
}

func (l *logger) UpdateLogLevel(level string) {
	parsed, err := zap.ParseLogLevel(level)
	if err != nil {
		l.zap.Errorw("cannot update log level", "level", level)
		return
	}
	l.level.SetLevel(parsed.Level())
}

func (l *logger) GetLevel() string {
	return l.level.Level().String()
}

func (l *logger) Sync() error { return l.zap.Sync() }

func (l *logger) Debug(ctx context.Context, template string, args ...interface{}) {
	l.zap.Debugf(template, args...)
}

func (l *logger) Info(ctx context.Context, template string, args ...interface{}) {
	l.zap.Infof(template, args...)
}

func (l *logger) Warn(ctx context.Context, template string, args ...interface{}) {
	l.zap.Warnf(template, args...)
}

func (l *logger) Error(ctx context.Context, template string, args ...interface{}) {
	l.zap.Errorf(template, args...)
}

func (l *logger) Fatal(ctx context.Context, template string, args ...interface{}) {
	l.zap.Fatalf(template, args...)
}

func (l *logger) Panic(ctx context.Context, template string, args ...interface{}) {
	l.zap.Panicf(template, args...)
}
