package logger

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type LogLevel string

const (
	InfoLevel  LogLevel = "INFO"
	WarnLevel  LogLevel = "WARN"
	ErrorLevel LogLevel = "ERROR"
	DebugLevel LogLevel = "DEBUG"
)

var (
	emailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	tokenRegex  = regexp.MustCompile(`eyJ[^\s]+`)
	userIDRegex = regexp.MustCompile(`\buser_id\s*=\s*[0-9a-fA-F-]+`)
)

// base is shared by every Logger so Configure applies process-wide.
var base = newBase(os.Stdout)

func newBase(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})
	return l
}

// Configure sets the minimum level and, when out is non-nil, the destination
// of all loggers. Unknown levels fall back to info.
func Configure(level string, out io.Writer) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
	if out != nil {
		base.SetOutput(out)
	}
}

// Logger is a centralized structured logger
type Logger struct {
	out *logrus.Logger
}

// New creates a new Logger
func New() *Logger {
	return &Logger{out: base}
}

// Anonymize replaces sensitive information in logs (emails, tokens, IDs)
func Anonymize(s string) string {
	s = emailRegex.ReplaceAllString(s, "[REDACTED_EMAIL]")
	s = tokenRegex.ReplaceAllString(s, "[REDACTED_TOKEN]")
	s = userIDRegex.ReplaceAllString(s, "user_id=[USER_ID]")
	return s
}

func (l *Logger) log(module string, level LogLevel, msg string, err error) {
	fields := logrus.Fields{}
	if module != "" {
		fields["module"] = module
	}
	if err != nil {
		fields["error"] = Anonymize(err.Error())
	}
	entry := l.out.WithFields(fields)
	msg = Anonymize(msg)

	switch level {
	case DebugLevel:
		entry.Debug(msg)
	case WarnLevel:
		entry.Warn(msg)
	case ErrorLevel:
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
}

// --- Convenient methods ---
func (l *Logger) Info(module, msg string) {
	l.log(module, InfoLevel, msg, nil)
}

func (l *Logger) Debug(module, msg string) {
	l.log(module, DebugLevel, msg, nil)
}

func (l *Logger) Warn(module, msg string) {
	l.log(module, WarnLevel, msg, nil)
}

func (l *Logger) Error(module, msg string, err error) {
	l.log(module, ErrorLevel, msg, err)
}
