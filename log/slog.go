package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
)

var (
	std *sLogger
)

const actionKey = "action"

func init() {
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)
	std = &sLogger{
		logger: logger,
		level:  lvl,
	}
}

type sLogger struct {
	mu     sync.RWMutex
	logger *slog.Logger
	level  *slog.LevelVar
	// fields injected after the logger was created
	fields []any
}

func (l *sLogger) current() *slog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.fields) == 0 {
		return l.logger
	}
	return l.logger.With(l.fields...)
}

func (l *sLogger) log(level slog.Level, msgOrFormat string, args []any) {
	if len(args) > 0 {
		msgOrFormat = fmt.Sprintf(msgOrFormat, args...)
	}
	l.current().Log(context.Background(), level, msgOrFormat)
}

// Debug logs a message at DebugLevel. The message includes any fields passed
// at the log site, as well as any fields accumulated on the logger.
func (l *sLogger) Debug(msgOrFormat string, args ...any) {
	l.log(slog.LevelDebug, msgOrFormat, args)
}

// Info logs a message at InfoLevel.
func (l *sLogger) Info(msgOrFormat string, args ...any) {
	l.log(slog.LevelInfo, msgOrFormat, args)
}

// Warn logs a message at WarnLevel.
func (l *sLogger) Warn(msgOrFormat string, args ...any) {
	l.log(slog.LevelWarn, msgOrFormat, args)
}

// Error logs a message at ErrorLevel.
func (l *sLogger) Error(msgOrFormat string, args ...any) {
	l.log(slog.LevelError, msgOrFormat, args)
}

// Fatal logs a message at ErrorLevel, then calls os.Exit(1).
func (l *sLogger) Fatal(msgOrFormat string, args ...any) {
	l.log(slog.LevelError, msgOrFormat, args)
	os.Exit(1)
}

// Action logger with just an action key.
func (l *sLogger) Action(action string) StdLogger {
	return &sLogger{
		logger: l.current().With(slog.String(actionKey, action)),
		level:  l.level,
	}
}

// With add custom maps for logger
func (l *sLogger) With(m map[string]any) StdLogger {
	return &sLogger{
		logger: l.current().With(tagsToFields(m)...),
		level:  l.level,
	}
}

func tagsToFields(m map[string]any) []any {
	lenMap := len(m)
	if lenMap == 0 {
		return nil
	}
	fields := make([]any, lenMap)
	keys := make([]string, 0, lenMap)
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, key := range keys {
		value := m[key]
		switch v := value.(type) {
		case string:
			fields[i] = slog.String(key, v)
		case int:
			fields[i] = slog.Int(key, v)
		case int32:
			fields[i] = slog.Int(key, int(v))
		case int64:
			fields[i] = slog.Int64(key, v)
		case bool:
			fields[i] = slog.Bool(key, v)
		case float32:
			fields[i] = slog.Float64(key, float64(v))
		case float64:
			fields[i] = slog.Float64(key, v)
		case error:
			fields[i] = slog.String(key, v.Error())
		default:
			fields[i] = slog.Any(key, v)
		}
	}
	return fields
}

// newWithTags new logger with tags
func (l *sLogger) newWithTags(m map[string]any) Logger {
	return &sLogger{
		logger: l.current().With(tagsToFields(m)...),
		level:  l.level,
	}
}

// Inject inject data, safe for concurrent use
func (l *sLogger) Inject(m map[string]any) {
	fields := tagsToFields(m)
	l.mu.Lock()
	l.fields = append(l.fields, fields...)
	l.mu.Unlock()
}
