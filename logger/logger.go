package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

// Logger type is interface for available logging methods.
type Logger interface {
	Trace(...interface{})
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Panic(...interface{})
	Fatal(...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LoggerImpl is a struct that extends sirupsen/logrus.
type LoggerImpl struct {
	Logger         *log.Entry
	Service        string
	LogLevelStr    string
	PrintStackDump bool
}

// NewLogger will create a new logger implementation.
// Output goes to stderr using a text formatter on a terminal and JSON otherwise,
// so log shippers on scheduled runs receive structured lines.
func NewLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	l, err := newLogger(serviceName, level, stackDumpOnPanic)
	if err != nil {
		fmt.Println("Error setting up logging: ", err)
		os.Exit(1)
	}
	return l
}

// NewLoggerE is NewLogger for callers that want to handle a bad log level themselves.
func NewLoggerE(serviceName string, level string, stackDumpOnPanic bool) (*LoggerImpl, error) {
	return newLogger(serviceName, level, stackDumpOnPanic)
}

func newLogger(serviceName string, level string, stackDumpOnPanic bool) (*LoggerImpl, error) {
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	base := log.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logLevel)
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		base.SetFormatter(&log.JSONFormatter{})
	}
	entry := base.WithFields(log.Fields{
		"service": serviceName,
	})
	return &LoggerImpl{Logger: entry, Service: serviceName, LogLevelStr: level, PrintStackDump: stackDumpOnPanic}, nil
}

// Trace log.
func (l *LoggerImpl) Trace(message ...interface{}) {
	l.Logger.Trace(message...)
}

// Debug log.
func (l *LoggerImpl) Debug(message ...interface{}) {
	l.Logger.Debug(message...)
}

// Info log.
func (l *LoggerImpl) Info(message ...interface{}) {
	l.Logger.Info(message...)
}

// Warn log.
func (l *LoggerImpl) Warn(message ...interface{}) {
	l.Logger.Warn(message...)
}

// Error (with stack trace if the user asked for stack dumps).
func (l *LoggerImpl) Error(message ...interface{}) {
	if l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Error(message...)
	} else {
		l.Logger.Error(message...)
	}
}

// Panic (with stack trace in debug mode, or if user explicitly sets PrintStackDump).
func (l *LoggerImpl) Panic(message ...interface{}) {
	if l.PrintStackDump || l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Panic(message...)
	} else {
		l.Logger.Panic(message...)
	}
}

// Fatal (with stack trace in debug mode).
// This causes exit(1) without a stack dump by default.
func (l *LoggerImpl) Fatal(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Fatal(message...)
	} else {
		l.Logger.Fatal(message...)
	}
}

// WithField returns a child logger that adds key=value to every line.
func (l *LoggerImpl) WithField(key string, value interface{}) Logger {
	return &LoggerImpl{Logger: l.Logger.WithField(key, value), Service: l.Service, LogLevelStr: l.LogLevelStr, PrintStackDump: l.PrintStackDump}
}

// WithFields returns a child logger that adds all fields to every line.
func (l *LoggerImpl) WithFields(fields map[string]interface{}) Logger {
	return &LoggerImpl{Logger: l.Logger.WithFields(fields), Service: l.Service, LogLevelStr: l.LogLevelStr, PrintStackDump: l.PrintStackDump}
}

// SetOutput will set the log output to the Writer supplied.
func (l *LoggerImpl) SetOutput(writer io.Writer) {
	l.Logger.Logger.SetOutput(writer)
}

// SetJSONFormat forces JSON output regardless of the terminal type.
func (l *LoggerImpl) SetJSONFormat() {
	l.Logger.Logger.SetFormatter(&log.JSONFormatter{})
}
