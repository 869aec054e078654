// Package logging builds the per-run logger: everything goes to a dated log
// file, informational messages and above are echoed to the terminal.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures SetupLogger.
type Options struct {
	// LogPath is the log file. Empty means "<YYYY-MM-DD>.log" in the
	// working directory; "-" disables the file.
	LogPath string
	// Debug lowers the level to debug, which logs every processed image.
	Debug bool
	// Console receives info and above. Defaults to os.Stderr.
	Console io.Writer
	// MaxSizeMB rotates the file at this size. Defaults to 100.
	MaxSizeMB int
}

// Logger is a logrus logger bound to one run.
type Logger struct {
	*logrus.Logger
	file io.WriteCloser
	path string
}

// DefaultLogPath returns the dated log file name for today.
func DefaultLogPath() string {
	return time.Now().Format("2006-01-02") + ".log"
}

// SetupLogger opens the log file and wires the console echo.
func SetupLogger(opts Options) (*Logger, error) {
	if opts.Console == nil {
		opts.Console = os.Stderr
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 100
	}
	if opts.LogPath == "" {
		opts.LogPath = DefaultLogPath()
	}

	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	base.SetLevel(logrus.InfoLevel)
	if opts.Debug {
		base.SetLevel(logrus.DebugLevel)
	}

	l := &Logger{Logger: base}
	if opts.LogPath == "-" {
		base.SetOutput(io.Discard)
	} else {
		f, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		f.Close()
		rotator := &lumberjack.Logger{Filename: opts.LogPath, MaxSize: opts.MaxSizeMB}
		base.SetOutput(rotator)
		l.file = rotator
		l.path = opts.LogPath
	}
	base.AddHook(&consoleHook{
		out:       opts.Console,
		formatter: &logrus.TextFormatter{FullTimestamp: true, ForceColors: isTerminal(opts.Console)},
	})

	l.Debugf("--- imagededup log started at %s ---", time.Now().Format(time.RFC3339))
	return l, nil
}

// Discard returns a logger that writes nowhere.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{Logger: base}
}

// Path returns the log file path, or "" when logging to file is disabled.
func (l *Logger) Path() string { return l.path }

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	l.Debugf("--- imagededup log closed at %s ---", time.Now().Format(time.RFC3339))
	err := l.file.Close()
	l.file = nil
	return err
}

// LogImageProcessed logs the outcome for one image.
func (l *Logger) LogImageProcessed(path string, success bool, err error) {
	if success {
		l.WithField("path", path).Debug("processed")
		return
	}
	l.WithField("path", path).WithError(err).Warn("failed")
}

// consoleHook echoes info and above to the terminal.
type consoleHook struct {
	out       io.Writer
	formatter logrus.Formatter
}

func (h *consoleHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel}
}

func (h *consoleHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
