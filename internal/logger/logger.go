// Package logger keeps a leveled log file for stride. The terminal belongs to
// the UI, so nothing is written anywhere until Open names a file.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders messages by severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel reads a level name as written in the config file
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		name = "WARN"
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("invalid log level: %q", s)
}

const timeLayout = "2006/01/02 15:04:05"

var sink struct {
	mu    sync.Mutex
	level Level
	file  *os.File
}

// Open appends to the file at path, keeping messages at level and above.
// An empty level means info. An empty path leaves logging off.
func Open(level, path string) error {
	lv := LevelInfo
	if level != "" {
		var err error
		if lv, err = ParseLevel(level); err != nil {
			return err
		}
	}
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.file != nil {
		_ = sink.file.Close()
	}
	sink.file = f
	sink.level = lv
	return nil
}

// Close stops logging and releases the file
func Close() error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.file == nil {
		return nil
	}
	err := sink.file.Close()
	sink.file = nil
	return err
}

func Debug(format string, v ...any) { write(LevelDebug, format, v...) }
func Info(format string, v ...any)  { write(LevelInfo, format, v...) }
func Warn(format string, v ...any)  { write(LevelWarn, format, v...) }
func Error(format string, v ...any) { write(LevelError, format, v...) }

func write(level Level, format string, v ...any) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.file == nil || level < sink.level {
		return
	}
	// one line per message, write errors have nowhere to go
	_, _ = fmt.Fprintf(sink.file, "%s [%s] %s\n",
		time.Now().Format(timeLayout), level, strings.TrimRight(fmt.Sprintf(format, v...), "\n"))
}
