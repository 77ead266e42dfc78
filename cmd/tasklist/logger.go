package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	charmLog "github.com/charmbracelet/log"
	"github.com/evanschultz/tasklist/internal/config"
	"github.com/evanschultz/tasklist/internal/platform"
)

// logSink is one charm logger plus whether it writes to the terminal.
type logSink struct {
	logger  *charmLog.Logger
	console bool
}

// runtimeLogger writes each event to a styled terminal sink and, in dev mode, a logfmt file.
type runtimeLogger struct {
	sinks []logSink
	muted bool
	file  *os.File
}

// loggerSettings is the resolved logging setup for one command.
type loggerSettings struct {
	Level  charmLog.Level
	Prefix string
	// FilePath enables the dev-file sink when set.
	FilePath string
}

// resolveLoggerSettings applies config and dev mode to the platform log dir.
func resolveLoggerSettings(cfg config.LoggingConfig, paths platform.Paths, appName string, devMode bool, day time.Time) (loggerSettings, error) {
	level, err := charmLog.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return loggerSettings{}, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	settings := loggerSettings{Level: level, Prefix: appName}
	if !devMode || !cfg.DevFile.Enabled {
		return settings, nil
	}

	dir := strings.TrimSpace(cfg.DevFile.Dir)
	switch {
	case dir == "":
		dir = paths.LogDir
	case !filepath.IsAbs(dir):
		cwd, err := os.Getwd()
		if err != nil {
			return loggerSettings{}, fmt.Errorf("resolve working dir: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}
	if dir == "" {
		return loggerSettings{}, fmt.Errorf("no dev log dir for %q", appName)
	}
	settings.FilePath = filepath.Join(dir, fmt.Sprintf("%s-%s.log", logFileStem(appName), day.Format("20060102")))
	return settings, nil
}

// newRuntimeLogger opens the sinks described by settings.
func newRuntimeLogger(stderr io.Writer, settings loggerSettings) (*runtimeLogger, error) {
	if stderr == nil {
		stderr = io.Discard
	}
	l := &runtimeLogger{}
	l.sinks = append(l.sinks, logSink{
		logger: charmLog.NewWithOptions(stderr, charmLog.Options{
			Level:           settings.Level,
			Prefix:          settings.Prefix,
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Formatter:       charmLog.TextFormatter,
		}),
		console: true,
	})
	if settings.FilePath == "" {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(settings.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	f, err := os.OpenFile(settings.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}
	l.file = f
	l.sinks = append(l.sinks, logSink{
		logger: charmLog.NewWithOptions(f, charmLog.Options{
			Level:           settings.Level,
			Prefix:          settings.Prefix,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Formatter:       charmLog.LogfmtFormatter,
		}),
	})
	return l, nil
}

// FilePath returns the open dev log file, or "" when file logging is off.
func (l *runtimeLogger) FilePath() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Name()
}

// MuteConsole stops terminal output while the TUI owns the screen.
func (l *runtimeLogger) MuteConsole(muted bool) {
	if l != nil {
		l.muted = muted
	}
}

// Close detaches and closes the dev-file sink; the console sink stays usable.
func (l *runtimeLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	kept := l.sinks[:0]
	for _, s := range l.sinks {
		if s.console {
			kept = append(kept, s)
		}
	}
	l.sinks = kept
	f := l.file
	l.file = nil
	return f.Close()
}

// Debug logs at debug level.
func (l *runtimeLogger) Debug(msg any, keyvals ...any) { l.log(charmLog.DebugLevel, msg, keyvals) }

// Info logs at info level.
func (l *runtimeLogger) Info(msg any, keyvals ...any) { l.log(charmLog.InfoLevel, msg, keyvals) }

// Warn logs at warn level.
func (l *runtimeLogger) Warn(msg any, keyvals ...any) { l.log(charmLog.WarnLevel, msg, keyvals) }

// Error logs at error level.
func (l *runtimeLogger) Error(msg any, keyvals ...any) { l.log(charmLog.ErrorLevel, msg, keyvals) }

func (l *runtimeLogger) log(level charmLog.Level, msg any, keyvals []any) {
	if l == nil {
		return
	}
	for _, s := range l.sinks {
		if s.console && l.muted {
			continue
		}
		s.logger.Log(level, msg, keyvals...)
	}
}

// logFileStem keeps letters, digits, '.', '_' and '-' from the app name.
func logFileStem(appName string) string {
	stem := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			return r
		}
		return '-'
	}, strings.TrimSpace(appName))
	stem = strings.Trim(stem, "-.")
	if stem == "" {
		return platform.DefaultAppName
	}
	return stem
}
