package logging

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Appender is anything that accepts printf-style lines, typically a *linelog.Logger
type Appender interface {
	Log(format string, args ...any)
}

// LineHook is a logrus hook that copies operational log entries into the
// debug log as single text lines
type LineHook struct {
	appender  Appender
	levels    []logrus.Level
	formatter logrus.Formatter
}

// NewLineHook creates a hook firing for minLevel and everything more severe
func NewLineHook(appender Appender, minLevel logrus.Level) *LineHook {
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, lvl := range logrus.AllLevels {
		if lvl <= minLevel {
			levels = append(levels, lvl)
		}
	}

	return &LineHook{
		appender: appender,
		levels:   levels,
		formatter: &logrus.TextFormatter{
			DisableColors:    true,
			FullTimestamp:    true,
			TimestampFormat:  "2006-01-02T15:04:05.000Z07:00",
			QuoteEmptyFields: true,
		},
	}
}

// Levels returns the log levels this hook should fire for
func (h *LineHook) Levels() []logrus.Level {
	return h.levels
}

// Fire renders the entry and appends it. The appender never logs back through
// logrus, so there is no recursion.
func (h *LineHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("failed to format entry for debug log: %w", err)
	}

	h.appender.Log("%s", strings.TrimRight(string(b), "\n"))
	return nil
}

// MirrorTo registers a LineHook on the standard logger. The returned func
// restores the hooks the standard logger had before the call.
func MirrorTo(appender Appender, minLevel string) (func(), error) {
	level, err := logrus.ParseLevel(minLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMirrorLevel, minLevel)
	}

	std := logrus.StandardLogger()
	previous := std.ReplaceHooks(make(logrus.LevelHooks))

	hooks := make(logrus.LevelHooks, len(previous))
	for lvl, registered := range previous {
		hooks[lvl] = append([]logrus.Hook(nil), registered...)
	}
	hooks.Add(NewLineHook(appender, level))
	std.ReplaceHooks(hooks)

	return func() { std.ReplaceHooks(previous) }, nil
}
