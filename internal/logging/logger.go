package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Fantasim/dropmint/internal/config"
)

// Options controls where log records go.
type Options struct {
	Level string
	Dir   string
	// Console is the second sink next to the daily file. Nil means os.Stdout.
	Console io.Writer
}

// Setup installs the default slog logger writing JSON to stdout and to a daily
// log file in logDir. The returned io.Closer closes the log file.
func Setup(levelStr, logDir string) (io.Closer, error) {
	return SetupWithOptions(Options{Level: levelStr, Dir: logDir})
}

// SetupWithOptions is Setup with an explicit console sink.
func SetupWithOptions(opts Options) (io.Closer, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level %q: %w", opts.Level, err)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", opts.Dir, err)
	}

	filename := FileName(time.Now())
	logFilePath := filepath.Join(opts.Dir, filename)

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %q: %w", logFilePath, err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	handler := slog.NewJSONHandler(io.MultiWriter(console, file), &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	slog.Info("logging initialized",
		"level", opts.Level,
		"logDir", opts.Dir,
		"logFile", filename,
	)

	if removed := CleanOldLogs(opts.Dir, config.LogMaxAgeDays); removed > 0 {
		slog.Info("cleaned old log files", "removed", removed, "maxAgeDays", config.LogMaxAgeDays)
	}

	return file, nil
}

// FileName returns the daily log file name for t.
func FileName(t time.Time) string {
	return config.LogFilePrefix + t.Format("2006-01-02") + ".log"
}

// CleanOldLogs deletes dropmint log files in logDir older than maxAgeDays
// and returns how many were removed.
func CleanOldLogs(logDir string, maxAgeDays int) int {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		slog.Warn("failed to read log directory for cleanup", "logDir", logDir, "error", err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, config.LogFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		fullPath := filepath.Join(logDir, name)
		if err := os.Remove(fullPath); err != nil {
			slog.Warn("failed to remove old log file", "file", fullPath, "error", err)
			continue
		}
		removed++
	}

	return removed
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}
