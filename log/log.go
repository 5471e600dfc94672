// Package log provides the process wide structured logger. It wraps zerolog
// behind a small sugared API (Infow, Debugf, ...) so callers never import
// zerolog directly.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var (
	log   zerolog.Logger
	level = LogLevelInfo

	// panicOnInvalidChars makes the logger panic when a log line contains
	// invalid UTF-8 sequences. Mostly useful in tests to catch raw bytes
	// passed to %s verbs.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"

	// logTestWriter is the writer selected when Init is called with
	// logTestWriterName as output.
	logTestWriter io.Writer = os.Stdout
)

const logTestWriterName = "log_test_writer"

func init() {
	Init(LogLevelError, "stderr", nil)
}

// Init configures the logger. Output can be "stdout", "stderr" or a file
// path. If errorOutput is not nil, every log line of level error or above
// is also written to it.
func Init(logLevel, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output: %v", err))
		}
		out = f
	}
	out = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339Nano,
	}
	if panicOnInvalidChars {
		out = &invalidCharChecker{out: out}
	}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, &errorLevelWriter{Writer: errorOutput})
	}

	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" {
		panic(fmt.Sprintf("invalid log level: %q", logLevel))
	}
	level = logLevel
	log = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Level returns the current log level.
func Level() string {
	return level
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return &log
}

// invalidCharChecker panics if the log line contains the unicode
// replacement char, which zerolog emits for invalid UTF-8 input.
type invalidCharChecker struct {
	out io.Writer
}

func (w *invalidCharChecker) Write(p []byte) (int, error) {
	if bytes.ContainsRune(p, utf8.RuneError) || bytes.Contains(p, []byte(`\ufffd`)) {
		panic(fmt.Sprintf("log line contains invalid chars: %q", p))
	}
	return w.out.Write(p)
}

type errorLevelWriter struct {
	io.Writer
}

func (w *errorLevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < zerolog.ErrorLevel {
		return len(p), nil
	}
	return w.Write(p)
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s/%s:%d", path.Base(path.Dir(file)), path.Base(file), line)
}

func withKeys(ev *zerolog.Event, keyvalues ...any) *zerolog.Event {
	for i := 0; i < len(keyvalues); i += 2 {
		key, ok := keyvalues[i].(string)
		if !ok {
			key = fmt.Sprint(keyvalues[i])
		}
		if i+1 >= len(keyvalues) {
			ev = ev.Str(key, "MISSING")
			break
		}
		switch v := keyvalues[i+1].(type) {
		case []byte:
			ev = ev.Hex(key, v)
		case error:
			ev = ev.AnErr(key, v)
		case fmt.Stringer:
			ev = ev.Stringer(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}

func Debug(args ...any) { log.Debug().Str("caller", caller()).Msg(fmt.Sprint(args...)) }
func Info(args ...any)  { log.Info().Msg(fmt.Sprint(args...)) }
func Warn(args ...any)  { log.Warn().Str("caller", caller()).Msg(fmt.Sprint(args...)) }
func Error(args ...any) { log.Error().Str("caller", caller()).Msg(fmt.Sprint(args...)) }
func Fatal(args ...any) { log.Fatal().Str("caller", caller()).Msg(fmt.Sprint(args...)) }

func Debugf(template string, args ...any) {
	log.Debug().Str("caller", caller()).Msgf(template, args...)
}

func Infof(template string, args ...any) {
	log.Info().Msgf(template, args...)
}

func Warnf(template string, args ...any) {
	log.Warn().Str("caller", caller()).Msgf(template, args...)
}

func Errorf(template string, args ...any) {
	log.Error().Str("caller", caller()).Msgf(template, args...)
}

func Fatalf(template string, args ...any) {
	log.Fatal().Str("caller", caller()).Msgf(template, args...)
}

// Debugw logs a message with some additional context as key-value pairs.
func Debugw(msg string, keyvalues ...any) {
	withKeys(log.Debug().Str("caller", caller()), keyvalues...).Msg(msg)
}

// Infow logs a message with some additional context as key-value pairs.
func Infow(msg string, keyvalues ...any) {
	withKeys(log.Info(), keyvalues...).Msg(msg)
}

// Warnw logs a message with some additional context as key-value pairs.
func Warnw(msg string, keyvalues ...any) {
	withKeys(log.Warn().Str("caller", caller()), keyvalues...).Msg(msg)
}

// Errorw logs an error message with some additional context as key-value
// pairs. The error is attached under the "error" key.
func Errorw(err error, msg string, keyvalues ...any) {
	withKeys(log.Error().Str("caller", caller()).Err(err), keyvalues...).Msg(msg)
}

// ParseLevel normalizes user provided level names.
func ParseLevel(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return s, nil
	}
	return "", fmt.Errorf("invalid log level %q", s)
}
