// Package linelog appends printf-style debug lines to a single file that stays
// open for the life of the process.
//
// A Logger never reports failure to its callers. If the destination cannot be
// opened, every Log call becomes a no-op; a line longer than MaxLineBytes-1
// bytes is cut short. Formatting happens outside the lock, only the append
// itself is serialized, so lines from concurrent callers never interleave.
package linelog

import (
	"fmt"
	"os"
	"sync"
)

// DefaultPath is the destination used by the linelog binary. It is fixed at
// compile time and is not read from flags, environment or config files.
const DefaultPath = "/tmp/linelog-debug.log"

// Options tunes a Logger. The zero value is ready to use.
type Options struct {
	// Metrics receives write, truncation and drop counts. May be nil.
	Metrics *Metrics
}

// Logger owns one append-only destination and a lock guarding writes to it.
// A nil *Logger is a valid logger that discards everything.
type Logger struct {
	path    string
	openErr error
	metrics *Metrics

	mu     sync.Mutex
	file   *os.File // nil when degraded or closed
	closed bool
}

// Open opens path for appending, creating it if needed. It always returns a
// usable Logger: when the open fails the Logger is degraded and Log does nothing.
func Open(path string, opts Options) *Logger {
	l := &Logger{
		path:    path,
		metrics: opts.Metrics,
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.openErr = fmt.Errorf("failed to open debug log %s: %w", path, err)
		return l
	}

	l.file = f
	return l
}

// Log renders format and args into one line and appends it to the destination.
// Text beyond MaxLineBytes-1 bytes is dropped. Log never fails visibly.
func (l *Logger) Log(format string, args ...any) {
	if l == nil {
		return
	}

	// openErr is immutable after Open, skip rendering entirely
	if l.openErr != nil {
		l.metrics.dropped(dropReasonDegraded)
		return
	}

	line, truncated := render(format, args...)

	l.mu.Lock()
	reason := l.appendLocked(line)
	l.mu.Unlock()

	if reason != "" {
		l.metrics.dropped(reason)
		return
	}
	l.metrics.written(len(line), truncated)
}

// appendLocked performs the single write for one line. It returns the drop
// reason, or "" on success. MUST be called with mu held.
func (l *Logger) appendLocked(line []byte) string {
	if l.file == nil {
		return dropReasonClosed
	}
	if _, err := l.file.Write(line); err != nil {
		return dropReasonWriteError
	}
	return ""
}

// Close releases the destination. Later Log calls are ignored.
// Calling Close more than once is safe.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil
	return err
}

// Path returns the destination path the Logger was opened with
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Degraded reports whether the destination failed to open
func (l *Logger) Degraded() bool {
	if l == nil {
		return false
	}
	return l.openErr != nil
}

// Err returns why the Logger is not writing, if anything: the open error for a
// degraded Logger, ErrClosed after Close, nil otherwise.
func (l *Logger) Err() error {
	if l == nil {
		return nil
	}
	if l.openErr != nil {
		return l.openErr
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}
