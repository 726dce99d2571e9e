package monitoring

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// FileOptions controls rotation of the on-disk log.
type FileOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileOptions keeps roughly a week of logs on the SD card.
func DefaultFileOptions() FileOptions {
	return FileOptions{MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 7, Compress: true}
}

// SetupFileLogging tees the standard logger into a size-rotated file at path
// while still writing to stderr. The returned closer flushes and closes the
// file; the standard logger is pointed back at stderr on close.
func SetupFileLogging(path string, opts FileOptions) io.Closer {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, lj))
	return closerFunc(func() error {
		log.SetOutput(os.Stderr)
		return lj.Close()
	})
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
