package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.Mutex
	log *logrus.Logger
	out *os.File
)

// Init configures the shared logger. An unknown level falls back to info.
// With console false and no file, output is discarded. A log file opened by
// a previous Init is closed.
func Init(level, logFile string, console bool) error {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var writers []io.Writer
	var file *os.File
	if console {
		writers = append(writers, os.Stderr)
	}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return err
		}
		file, err = os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writers = append(writers, file)
	}
	if len(writers) > 0 {
		l.SetOutput(io.MultiWriter(writers...))
	} else {
		l.SetOutput(io.Discard)
	}

	mu.Lock()
	prev := out
	log, out = l, file
	mu.Unlock()

	if prev != nil {
		return prev.Close()
	}
	return nil
}

// Get returns the shared logger, creating a default one on first use.
func Get() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = logrus.New()
	}
	return log
}

// Set replaces the shared logger. Tests use it to capture output.
func Set(l *logrus.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
}

// Component returns an entry tagged with the emitting package.
func Component(name string) *logrus.Entry {
	return Get().WithField("component", name)
}

func Debugf(format string, args ...interface{}) {
	Get().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	Get().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Get().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Get().Errorf(format, args...)
}
