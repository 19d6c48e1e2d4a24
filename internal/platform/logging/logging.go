package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	platformerrors "medscan-server-go/internal/platform/errors"
)

// Component tags prefixed to log messages.
const (
	TagBootstrap = "Bootstrap"
	TagHTTP      = "HTTP"
	TagAnalysis  = "Analysis"
	TagImage     = "Image"
	TagStore     = "Store"
	TagEvents    = "Events"
	TagObs       = "Observability"
)

// RetentionDays is how long rotated log files are kept.
const RetentionDays = 7

const dateLayout = "2006-01-02"

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
	// Console receives the coloured text stream. Defaults to stdout.
	Console io.Writer
}

// Logger writes JSON lines to a daily-rotated file and coloured text to the
// console.
type Logger struct {
	cfg   Config
	level *slog.LevelVar

	mu          sync.RWMutex
	file        *os.File
	currentDate string
	slog        *slog.Logger
	console     slog.Handler

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New opens the log file and starts the rotation checker.
func New(cfg Config) (*Logger, error) {
	if cfg.Filename == "" {
		cfg.Filename = "server.log"
	}
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPlatform, "logging.new", "create log dir", err)
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level))

	l := &Logger{
		cfg:     cfg,
		level:   level,
		console: newConsoleHandler(cfg.Console, level),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	if err := l.openFile(); err != nil {
		return nil, err
	}
	l.currentDate = l.now().Format(dateLayout)

	l.ticker = time.NewTicker(time.Minute)
	go l.rotationLoop()
	return l, nil
}

// NewDiscard returns a logger that drops file output and writes the console
// stream to w. It never touches the filesystem.
func NewDiscard(w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	console := newConsoleHandler(w, level)
	return &Logger{
		cfg:     Config{Console: w},
		level:   level,
		console: console,
		slog:    slog.New(console),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
}

func (l *Logger) openFile() error {
	path := filepath.Join(l.cfg.Dir, l.cfg.Filename)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindPlatform, "logging.open", "open log file", err)
	}
	jsonHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: l.level})

	l.mu.Lock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	l.slog = slog.New(fanout{jsonHandler, l.console})
	l.mu.Unlock()
	return nil
}

func (l *Logger) rotationLoop() {
	for {
		select {
		case <-l.ticker.C:
			l.checkAndRotate()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Logger) checkAndRotate() {
	today := l.now().Format(dateLayout)
	l.mu.RLock()
	current := l.currentDate
	l.mu.RUnlock()
	if today == current {
		return
	}
	l.rotate(current, today)
	l.cleanOldLogs()
}

func (l *Logger) rotate(oldDate, newDate string) {
	base := strings.TrimSuffix(l.cfg.Filename, filepath.Ext(l.cfg.Filename))
	ext := filepath.Ext(l.cfg.Filename)
	current := filepath.Join(l.cfg.Dir, l.cfg.Filename)
	archived := filepath.Join(l.cfg.Dir, fmt.Sprintf("%s-%s%s", base, oldDate, ext))

	l.mu.Lock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	l.mu.Unlock()

	if err := os.Rename(current, archived); err != nil && !os.IsNotExist(err) {
		l.WarnTag(TagObs, "rotate log file: %v", err)
	}
	if err := l.openFile(); err != nil {
		l.ErrorTag(TagObs, "reopen log file: %v", err)
		return
	}

	l.mu.Lock()
	l.currentDate = newDate
	l.mu.Unlock()
	l.InfoTag(TagObs, "log file rotated", "date", newDate)
}

func (l *Logger) cleanOldLogs() {
	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		return
	}
	cutoff := l.now().AddDate(0, 0, -RetentionDays)
	base := strings.TrimSuffix(l.cfg.Filename, filepath.Ext(l.cfg.Filename))
	ext := filepath.Ext(l.cfg.Filename)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, base+"-") || !strings.HasSuffix(name, ext) {
			continue
		}
		date, err := time.Parse(dateLayout, strings.TrimSuffix(strings.TrimPrefix(name, base+"-"), ext))
		if err != nil || !date.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.cfg.Dir, name)); err == nil {
			l.InfoTag(TagObs, "removed expired log file", "file", name)
		}
	}
}

// Close stops rotation and closes the log file.
func (l *Logger) Close() error {
	var err error
	l.stopOnce.Do(func() {
		if l.ticker != nil {
			l.ticker.Stop()
		}
		close(l.stopCh)
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.file != nil {
			err = l.file.Close()
			l.file = nil
		}
	})
	return err
}

// Slog exposes the structured logger for new integrations.
func (l *Logger) Slog() *slog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.slog
}

// FormatLog prefixes message with a bracketed tag unless it already carries one.
//
//	FormatLog("HTTP", "listening") == "[HTTP] listening"
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" || strings.HasPrefix(message, "[") {
		return message
	}
	return "[" + tag + "] " + message
}

// log formats msg printf-style when it contains a verb, otherwise treats args
// as slog key/value pairs.
func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil {
		return
	}
	logger := l.Slog()
	if logger == nil {
		return
	}
	if len(args) > 0 && strings.Contains(msg, "%") {
		logger.Log(context.Background(), level, fmt.Sprintf(msg, args...))
		return
	}
	logger.Log(context.Background(), level, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// DebugTag logs a tagged debug message.
func (l *Logger) DebugTag(tag, msg string, args ...any) {
	l.log(slog.LevelDebug, FormatLog(tag, msg), args...)
}

// InfoTag logs a tagged info message.
func (l *Logger) InfoTag(tag, msg string, args ...any) {
	l.log(slog.LevelInfo, FormatLog(tag, msg), args...)
}

// WarnTag logs a tagged warning.
func (l *Logger) WarnTag(tag, msg string, args ...any) {
	l.log(slog.LevelWarn, FormatLog(tag, msg), args...)
}

// ErrorTag logs a tagged error.
func (l *Logger) ErrorTag(tag, msg string, args ...any) {
	l.log(slog.LevelError, FormatLog(tag, msg), args...)
}
