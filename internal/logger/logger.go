package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	logDir     string
	files      []*os.File
	mu         sync.Mutex
}

// NewLogger creates a Logger writing to logDir and the console.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logger := &Logger{
		logDir: logDir,
	}

	if err := logger.setupLoggers(); err != nil {
		logger.Close()
		return nil, err
	}
	return logger, nil
}

// NewWithWriter creates a Logger that writes every level to w. Used by tools
// and tests that do not want log files.
func NewWithWriter(w io.Writer) *Logger {
	l := &Logger{}
	l.initLevels(w, w, w)
	return l
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers() error {
	infoFileHandle, err := l.openLogFile(filepath.Join(l.logDir, "info.log"))
	if err != nil {
		return err
	}
	warningFileHandle, err := l.openLogFile(filepath.Join(l.logDir, "warning.log"))
	if err != nil {
		return err
	}
	errorFileHandle, err := l.openLogFile(filepath.Join(l.logDir, "error.log"))
	if err != nil {
		return err
	}

	l.initLevels(
		io.MultiWriter(os.Stdout, infoFileHandle),
		io.MultiWriter(os.Stdout, warningFileHandle),
		io.MultiWriter(os.Stderr, errorFileHandle),
	)
	return nil
}

func (l *Logger) initLevels(info, warning, errw io.Writer) {
	l.infoLog = log.New(info, "ℹ️  INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warning, "⚠️  WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errw, "❌ ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) (*os.File, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// Dir returns the directory holding the log files, empty for writer loggers.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return nil
	}
	filePath := filepath.Join(l.logDir, fileName)
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return err
	}
	defer file.Close()

	l.Info("File %s has been cleared.", fileName)
	return nil
}

// Close releases the underlying log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
