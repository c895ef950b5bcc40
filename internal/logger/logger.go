package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger writes category-tagged, colorized lines. It is safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
	level Level
}

var (
	debugColor   = color.New(color.FgHiBlack)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	processColor = color.New(color.FgGreen)
	paymentColor = color.New(color.FgMagenta)
	apiColor     = color.New(color.FgBlue)
	kafkaColor   = color.New(color.FgHiCyan)
	dbColor      = color.New(color.FgHiBlue)
	secColor     = color.New(color.FgHiRed)
)

// NewLogger returns a logger on stdout. LOG_FILE additionally tees output to a file,
// LOG_LEVEL=debug enables debug lines.
func NewLogger() *Logger {
	l := &Logger{out: os.Stdout, level: LevelInfo}
	if os.Getenv("LOG_LEVEL") == "debug" {
		l.level = LevelDebug
	}
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			l.file = f
			l.out = io.MultiWriter(os.Stdout, f)
		}
	}
	return l
}

// NewLoggerWithWriter is mostly used by tests to silence or capture output.
func NewLoggerWithWriter(w io.Writer, level Level) *Logger {
	return &Logger{out: w, level: level}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewLoggerWithWriter(io.Discard, LevelError+1)
}

func (l *Logger) write(level Level, c *color.Color, tag, category, msg string) {
	if l == nil || level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(l.out, "%s %s [%s] %s\n", ts, c.Sprintf("%-7s", tag), category, msg)
}

func (l *Logger) Debug(category, msg string) { l.write(LevelDebug, debugColor, "DEBUG", category, msg) }
func (l *Logger) Info(category, msg string)  { l.write(LevelInfo, infoColor, "INFO", category, msg) }
func (l *Logger) Warn(category, msg string)  { l.write(LevelWarn, warnColor, "WARN", category, msg) }
func (l *Logger) Error(category, msg string) { l.write(LevelError, errorColor, "ERROR", category, msg) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(category, msg string) {
	l.write(LevelError, errorColor, "FATAL", category, msg)
	l.Close()
	os.Exit(1)
}

func (l *Logger) LogProcess(category, msg string) {
	l.write(LevelInfo, processColor, "PROCESS", category, msg)
}

// LogPayment logs a payment action for the given widget or attempt id.
func (l *Logger) LogPayment(action, id, msg string) {
	l.write(LevelInfo, paymentColor, "PAYMENT", action, fmt.Sprintf("%s: %s", id, msg))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.write(LevelInfo, apiColor, "API", method, fmt.Sprintf("%s -> %s (%s)", path, status, duration))
}

func (l *Logger) LogKafka(action, topic, msg string) {
	l.write(LevelInfo, kafkaColor, "KAFKA", action, fmt.Sprintf("%s: %s", topic, msg))
}

func (l *Logger) LogDatabase(action, db, msg string) {
	l.write(LevelInfo, dbColor, "DB", action, fmt.Sprintf("%s: %s", db, msg))
}

func (l *Logger) LogSecurity(event, msg string) {
	l.write(LevelWarn, secColor, "SECURE", event, msg)
}

func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.out = os.Stdout
	}
}
