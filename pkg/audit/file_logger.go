package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/platinummonkey/idp-redirect/pkg/observability"
)

const (
	currentLogName = "audit.log"
	rotatedGlob    = "audit-*.log"
	// Fixed-width UTC stamp so rotated names sort oldest first
	rotatedStamp = "20060102T150405.000000000Z"

	defaultMaxSize  = 100 * 1024 * 1024
	defaultMaxFiles = 10
)

// ErrLoggerClosed is returned by Log after Close
var ErrLoggerClosed = errors.New("audit log closed")

// FileLoggerConfig configures a FileLogger
type FileLoggerConfig struct {
	BasePath string
	Rotate   bool
	MaxSize  int64 // bytes in audit.log before it is rotated
	MaxFiles int   // rotated files kept

	// Logger receives retention failures; nil discards them
	Logger *observability.Logger
}

// DefaultFileLoggerConfig returns the production layout
func DefaultFileLoggerConfig() FileLoggerConfig {
	return FileLoggerConfig{
		BasePath: "/var/log/idp-redirect/audit",
		Rotate:   true,
		MaxSize:  defaultMaxSize,
		MaxFiles: defaultMaxFiles,
	}
}

// FileLogger appends mapping change events as JSON lines to audit.log
type FileLogger struct {
	cfg    FileLoggerConfig
	logger *observability.Logger

	mu   sync.Mutex
	file *os.File
	size int64
}

var _ Logger = (*FileLogger)(nil)

// NewFileLogger creates BasePath if needed and opens audit.log for appending
func NewFileLogger(cfg FileLoggerConfig) (*FileLogger, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = defaultMaxFiles
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	l := &FileLogger{cfg: cfg, logger: logger}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) currentPath() string {
	return filepath.Join(l.cfg.BasePath, currentLogName)
}

func (l *FileLogger) open() error {
	f, err := os.OpenFile(l.currentPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat audit log: %w", err)
	}
	l.file = f
	l.size = info.Size()
	return nil
}

// Log writes event as one line. A line that would push a non-empty audit.log
// past MaxSize is written to a fresh file instead.
func (l *FileLogger) Log(ctx context.Context, event *Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return ErrLoggerClosed
	}
	if l.cfg.Rotate && l.size > 0 && l.size+int64(len(line)) > l.cfg.MaxSize {
		if err := l.rotate(); err != nil {
			return err
		}
	}

	n, err := l.file.Write(line)
	l.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// rotate renames audit.log to audit-<stamp>.log, reopens it empty and prunes
// old rotations. Must be called with mu held.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	l.file = nil

	rotated := filepath.Join(l.cfg.BasePath, "audit-"+time.Now().UTC().Format(rotatedStamp)+".log")
	if err := os.Rename(l.currentPath(), rotated); err != nil {
		// keep appending to the old file rather than dropping events
		if openErr := l.open(); openErr != nil {
			return openErr
		}
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}
	if err := l.open(); err != nil {
		return err
	}

	l.prune()
	return nil
}

func (l *FileLogger) prune() {
	rotated, err := filepath.Glob(filepath.Join(l.cfg.BasePath, rotatedGlob))
	if err != nil || len(rotated) <= l.cfg.MaxFiles {
		return
	}
	sort.Strings(rotated)
	for _, path := range rotated[:len(rotated)-l.cfg.MaxFiles] {
		if err := os.Remove(path); err != nil {
			l.logger.WithError(err).WithField("path", path).Warn("Failed to remove old audit log")
		}
	}
}

// Close flushes and closes audit.log. Closing twice is a no-op.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadLogs returns up to count events from the current audit.log, oldest
// first; count <= 0 reads them all
func (l *FileLogger) ReadLogs(count int) ([]*Event, error) {
	f, err := os.Open(l.currentPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []*Event
	dec := json.NewDecoder(f)
	for count <= 0 || len(events) < count {
		var event Event
		err := dec.Decode(&event)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode audit event: %w", err)
		}
		events = append(events, &event)
	}
	return events, nil
}
