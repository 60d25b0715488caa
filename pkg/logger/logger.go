package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int32(l))
}

// ParseLevel maps a LOG_LEVEL value to a Level. Unknown values yield LevelInfo
// together with an error so callers can report the misconfiguration.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

type Logger struct {
	level       atomic.Int32
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
}

func New() *Logger {
	return NewWithWriters(os.Stdout, os.Stderr)
}

// NewWithWriters builds a logger writing debug/info to out and warn/error to errOut.
func NewWithWriters(out, errOut io.Writer) *Logger {
	l := &Logger{
		infoLogger:  log.New(out, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		warnLogger:  log.New(errOut, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLogger: log.New(errOut, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
		debugLogger: log.New(out, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile),
	}
	l.level.Store(int32(LevelInfo))
	return l
}

func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

func (l *Logger) enabled(level Level) bool {
	return level >= l.Level()
}

// calldepth 3 skips output, this method and the package-level wrapper.
func (l *Logger) Info(format string, v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.infoLogger.Output(3, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if l.enabled(LevelWarn) {
		l.warnLogger.Output(3, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Error(format string, v ...interface{}) {
	if l.enabled(LevelError) {
		l.errorLogger.Output(3, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.debugLogger.Output(3, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.errorLogger.Output(3, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Global logger instance
var GlobalLogger = New()

// SetLevel parses level and applies it to the global logger.
func SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	GlobalLogger.SetLevel(lvl)
	return err
}

// Convenience functions
func Info(format string, v ...interface{}) {
	GlobalLogger.Info(format, v...)
}

func Warn(format string, v ...interface{}) {
	GlobalLogger.Warn(format, v...)
}

func Error(format string, v ...interface{}) {
	GlobalLogger.Error(format, v...)
}

func Debug(format string, v ...interface{}) {
	GlobalLogger.Debug(format, v...)
}

func Fatal(format string, v ...interface{}) {
	GlobalLogger.Fatal(format, v...)
}
