// Package logging provides category-based file logging for the translation
// pipeline. Logs are written under the configured directory with one file
// per category per day. When debug mode is off the whole package is a
// silent no-op.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category.
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup/shutdown
	CategoryParser     Category = "parser"     // Block splitting and classification
	CategoryResolver   Category = "resolver"   // Dependency analysis
	CategoryAssembler  Category = "assembler"  // Code assembly
	CategoryValidator  Category = "validator"  // Validation and fix loop
	CategoryTranslator Category = "translator" // Controller state machine
	CategoryStream     Category = "stream"     // Streaming pipeline, chunk sizing
	CategoryOffload    Category = "offload"    // Worker pool, fallbacks
	CategoryModel      Category = "model"      // Model capability calls
)

// Options mirrors config.LoggingConfig to keep this package import-free.
type Options struct {
	DebugMode  bool
	Level      string
	JSONFormat bool
	Dir        string
	Categories map[string]bool
}

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	mu       sync.RWMutex
	loggers  = make(map[Category]*Logger)
	opts     Options
	logLevel = LevelInfo
)

// Configure sets up logging. Must be called before Get; a zero Options
// value (DebugMode false) disables all output.
func Configure(o Options) error {
	mu.Lock()
	defer mu.Unlock()

	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	if !o.DebugMode {
		return nil
	}
	if o.Dir == "" {
		return fmt.Errorf("logging directory required in debug mode")
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	return nil
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.DebugMode
}

func categoryEnabled(c Category) bool {
	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, ok := opts.Categories[string(c)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. It returns a
// no-op logger when debug mode or the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if !categoryEnabled(category) {
		mu.RUnlock()
		return &Logger{category: category}
	}
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	dir := opts.Dir
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

type jsonEntry struct {
	Timestamp int64          `json:"ts"`
	Category  string         `json:"cat"`
	Level     string         `json:"lvl"`
	Message   string         `json:"msg"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func (l *Logger) write(level int, name, format string, args ...any) {
	if l.logger == nil || logLevel > level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if opts.JSONFormat {
		data, err := json.Marshal(jsonEntry{
			Timestamp: time.Now().UnixMilli(),
			Category:  string(l.category),
			Level:     name,
			Message:   msg,
		})
		if err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s", name, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) { l.write(LevelDebug, "DEBUG", format, args...) }

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) { l.write(LevelInfo, "INFO", format, args...) }

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...any) { l.write(LevelWarn, "WARN", format, args...) }

// Error logs an error. Always written when the logger exists.
func (l *Logger) Error(format string, args ...any) { l.write(LevelError, "ERROR", format, args...) }

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions for hot paths. No-ops if disabled.

// Parser logs to the parser category.
func Parser(format string, args ...any) { Get(CategoryParser).Info(format, args...) }

// ParserDebug logs debug to the parser category.
func ParserDebug(format string, args ...any) { Get(CategoryParser).Debug(format, args...) }

// Resolver logs to the resolver category.
func Resolver(format string, args ...any) { Get(CategoryResolver).Info(format, args...) }

// Translator logs to the translator category.
func Translator(format string, args ...any) { Get(CategoryTranslator).Info(format, args...) }

// TranslatorDebug logs debug to the translator category.
func TranslatorDebug(format string, args ...any) { Get(CategoryTranslator).Debug(format, args...) }

// Offload logs to the offload category.
func Offload(format string, args ...any) { Get(CategoryOffload).Info(format, args...) }

// Stream logs to the stream category.
func Stream(format string, args ...any) { Get(CategoryStream).Info(format, args...) }

// Model logs to the model category.
func Model(format string, args ...any) { Get(CategoryModel).Info(format, args...) }

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
