// Package logging holds the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	once      sync.Once
	singleton *log.Logger
)

func get() *log.Logger {
	once.Do(func() {
		singleton = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "meshview",
			CallerOffset:    1,
		})
		singleton.SetLevel(log.InfoLevel)
	})
	return singleton
}

// Logger returns the shared logger for callers that need With or a sub-logger.
func Logger() *log.Logger {
	return get()
}

// SetLevel accepts debug, info, warn, error or fatal. Unknown names leave the level unchanged.
func SetLevel(name string) {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		get().Warn("unknown log level", "level", name)
		return
	}
	get().SetLevel(lvl)
}

// SetOutput redirects log output, mostly so tests can silence it.
func SetOutput(w io.Writer) {
	get().SetOutput(w)
}

func Debug(msg string, keyvals ...interface{}) {
	get().Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...interface{}) {
	get().Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	get().Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	get().Error(msg, keyvals...)
}
