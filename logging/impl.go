package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	impl struct {
		name  string
		level AtomicLevel
		inUTC bool

		appenders []Appender
	}

	// LogEntry embeds a zapcore Entry and slice of Fields.
	LogEntry struct {
		zapcore.Entry
		fields []zapcore.Field
	}
)

// callerSkip is the number of frames between `getCaller` and the user's call to a log method:
// getCaller <- newLogEntry <- format* <- emit <- Info etc. <- caller.
const callerSkip = 5

func (imp *impl) newLogEntry(level Level) *LogEntry {
	ret := &LogEntry{}
	ret.Time = time.Now()
	if imp.inUTC {
		ret.Time = ret.Time.UTC()
	}
	ret.Level = level.AsZap()
	ret.LoggerName = imp.name
	ret.Caller = getCaller(callerSkip)
	return ret
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}

	return &impl{
		name:      newName,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var errs []error
	for _, appender := range imp.appenders {
		if err := appender.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

// AsZap builds a zap logger that tees into every appender that is also a `zapcore.Core`, e.g. the
// observer used by tests.
func (imp *impl) AsZap() *zap.SugaredLogger {
	config := zapConfig(imp.GetLevel())
	ret := zap.Must(config.Build()).Sugar().Named(imp.name)
	for _, appender := range imp.appenders {
		core, ok := appender.(zapcore.Core)
		if !ok {
			continue
		}
		ret = ret.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, core)
		}))
	}
	return ret
}

func (imp *impl) shouldLog(ctx context.Context, level Level) bool {
	if GlobalLogLevel.Level() == zapcore.DebugLevel || level >= imp.level.Get() {
		return true
	}
	return level == DEBUG && IsDebugMode(ctx)
}

func (imp *impl) write(entry *LogEntry) {
	for _, appender := range imp.appenders {
		if err := appender.Write(entry.Entry, entry.fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

// emit is the single funnel for every log method so that the caller frame depth is constant.
func (imp *impl) emit(ctx context.Context, level Level, build func(Level) *LogEntry) {
	if imp.shouldLog(ctx, level) {
		imp.write(build(level))
	}
}

func (imp *impl) formatter(args []interface{}) func(Level) *LogEntry {
	return func(level Level) *LogEntry {
		entry := imp.newLogEntry(level)
		entry.Message = fmt.Sprint(args...)
		return entry
	}
}

func (imp *impl) formatterf(template string, args []interface{}) func(Level) *LogEntry {
	return func(level Level) *LogEntry {
		entry := imp.newLogEntry(level)
		entry.Message = fmt.Sprintf(template, args...)
		return entry
	}
}

// formatterw turns `keysAndValues` into fields where the odd elements are the keys and their
// following even counterpart is the value. Values are json serialized by the appender, so only
// public struct fields show up.
func (imp *impl) formatterw(msg string, keysAndValues []interface{}) func(Level) *LogEntry {
	return func(level Level) *LogEntry {
		entry := imp.newLogEntry(level)
		entry.Message = msg
		entry.fields = make([]zapcore.Field, 0, len(keysAndValues)/2)
		for keyIdx := 0; keyIdx < len(keysAndValues); keyIdx += 2 {
			var key string
			if stringer, ok := keysAndValues[keyIdx].(fmt.Stringer); ok {
				key = stringer.String()
			} else {
				key = fmt.Sprintf("%v", keysAndValues[keyIdx])
			}

			if keyIdx+1 < len(keysAndValues) {
				entry.fields = append(entry.fields, zap.Any(key, keysAndValues[keyIdx+1]))
				continue
			}
			// An odd number of arguments is API misuse. Keep the key so it is not silently lost.
			entry.fields = append(entry.fields, zap.Any(key, errors.New("unpaired log key")))
		}
		return entry
	}
}

func (imp *impl) Debug(args ...interface{}) { imp.emit(context.Background(), DEBUG, imp.formatter(args)) }

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.emit(context.Background(), DEBUG, imp.formatterf(template, args))
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.emit(context.Background(), DEBUG, imp.formatterw(msg, keysAndValues))
}

func (imp *impl) CDebug(ctx context.Context, args ...interface{}) {
	imp.emit(ctx, DEBUG, imp.formatter(args))
}

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	imp.emit(ctx, DEBUG, imp.formatterf(template, args))
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.emit(ctx, DEBUG, imp.formatterw(msg, keysAndValues))
}

func (imp *impl) Info(args ...interface{}) { imp.emit(context.Background(), INFO, imp.formatter(args)) }

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.emit(context.Background(), INFO, imp.formatterf(template, args))
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.emit(context.Background(), INFO, imp.formatterw(msg, keysAndValues))
}

func (imp *impl) Warn(args ...interface{}) { imp.emit(context.Background(), WARN, imp.formatter(args)) }

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.emit(context.Background(), WARN, imp.formatterf(template, args))
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.emit(context.Background(), WARN, imp.formatterw(msg, keysAndValues))
}

func (imp *impl) Error(args ...interface{}) { imp.emit(context.Background(), ERROR, imp.formatter(args)) }

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.emit(context.Background(), ERROR, imp.formatterf(template, args))
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.emit(context.Background(), ERROR, imp.formatterw(msg, keysAndValues))
}

// These Fatal* methods log as errors then exit the process.
func (imp *impl) Fatal(args ...interface{}) {
	imp.emit(context.Background(), ERROR, imp.formatter(args))
	os.Exit(1)
}

func (imp *impl) Fatalf(template string, args ...interface{}) {
	imp.emit(context.Background(), ERROR, imp.formatterf(template, args))
	os.Exit(1)
}

func (imp *impl) Fatalw(msg string, keysAndValues ...interface{}) {
	imp.emit(context.Background(), ERROR, imp.formatterw(msg, keysAndValues))
	os.Exit(1)
}

// getCaller returns e.g. "logging/impl_test.go:36" as an entry caller.
func getCaller(skip int) zapcore.EntryCaller {
	var ok bool
	var entryCaller zapcore.EntryCaller
	entryCaller.PC, entryCaller.File, entryCaller.Line, ok = runtime.Caller(skip)
	if !ok {
		return entryCaller
	}
	entryCaller.Defined = true

	if runtimeFunc := runtime.FuncForPC(entryCaller.PC); runtimeFunc != nil {
		entryCaller.Function = runtimeFunc.Name()
	}
	return entryCaller
}
