package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// Log is the logger for normal use
	Log = newLogger(os.Stdout, false)
	// Error is the Logger for errors
	Error = newLogger(os.Stderr, true)

	label = &labelHook{}
)

const errLogName = "error.log"

// Init creates logger instance to loggers
func Init() {
	initLogger()
	initErrorLogger()
}

func newLogger(out io.Writer, caller bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	l.SetReportCaller(caller)
	return l
}

func initLogger() {
	Log = newLogger(os.Stdout, false)
	Log.AddHook(label)
}

func initErrorLogger() {
	f, err := os.OpenFile(errLogName, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		panic(err)
	}

	Error = newLogger(io.MultiWriter(os.Stderr, f), true)
	Error.AddHook(label)
}

// UpdatePrefix Sets new prefix
func UpdatePrefix(prefix string) {
	label.set(prefix)
}

// SetLevel changes verbosity of the normal logger.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	Log.SetLevel(lvl)
	return nil
}

// Printf is the alias for Log.Printf
func Printf(format string, v ...interface{}) {
	Log.Printf(format, v...)
}

// Println is the alias for Log.Println
func Println(v ...interface{}) {
	Log.Println(v...)
}

// WithFields returns an entry of the normal logger carrying fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

// labelHook adds the configured label to every entry.
type labelHook struct {
	mu    sync.RWMutex
	value string
}

func (h *labelHook) set(v string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value = v
}

func (h *labelHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *labelHook) Fire(e *logrus.Entry) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.value != "" {
		e.Data["label"] = h.value
	}
	return nil
}
