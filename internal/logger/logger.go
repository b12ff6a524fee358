// Package logger provides the scoped logging used across the compositor.
package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var Logger *log.Logger

func init() {
	Logger = log.New(os.Stderr)

	// Set log level from environment variable
	logLevel := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	switch logLevel {
	case "DEBUG":
		Logger.SetLevel(log.DebugLevel)
	case "INFO":
		Logger.SetLevel(log.InfoLevel)
	case "WARN", "WARNING":
		Logger.SetLevel(log.WarnLevel)
	case "ERROR":
		Logger.SetLevel(log.ErrorLevel)
	case "FATAL":
		Logger.SetLevel(log.FatalLevel)
	default:
		Logger.SetLevel(log.InfoLevel)
	}
}

var (
	scopeMu      sync.Mutex
	scopes       = map[string]*log.Logger{}
	enabledAll   = true
	enabledNames map[string]bool
)

// SetScopes restricts which named scopes emit. An empty list enables
// everything; otherwise only the named scopes log below fatal.
func SetScopes(names []string) {
	scopeMu.Lock()
	defer scopeMu.Unlock()
	if len(names) == 0 {
		enabledAll = true
		enabledNames = nil
	} else {
		enabledAll = false
		enabledNames = make(map[string]bool, len(names))
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n != "" {
				enabledNames[n] = true
			}
		}
	}
	for name, l := range scopes {
		applyScopeLevel(name, l)
	}
}

// Scope returns a logger prefixed with the given scope name. Scopes
// not selected via SetScopes only pass fatal messages.
func Scope(name string) *log.Logger {
	scopeMu.Lock()
	defer scopeMu.Unlock()
	if l, ok := scopes[name]; ok {
		return l
	}
	l := Logger.WithPrefix(name)
	scopes[name] = l
	applyScopeLevel(name, l)
	return l
}

func applyScopeLevel(name string, l *log.Logger) {
	if enabledAll || enabledNames[name] {
		l.SetLevel(Logger.GetLevel())
	} else {
		l.SetLevel(log.FatalLevel)
	}
}

// ExitHardError is the process exit code for internal invariant
// violations.
const ExitHardError = 99

// Invariant reports a broken internal invariant and terminates the
// process with the hard-error exit code. It never returns.
func Invariant(msg interface{}, keyvals ...interface{}) {
	Logger.Helper()
	Logger.Error(msg, keyvals...)
	os.Exit(ExitHardError)
}

// Convenience functions for common operations
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

func Fatal(msg interface{}, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	Logger.Fatalf(format, args...)
}
