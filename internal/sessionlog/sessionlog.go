// Package sessionlog names and rotates per-run discovery/transaction log
// files, grounded on the teacher's log.go (daily-named CSV logs created
// under a directory, one file per day) and on its use of
// github.com/lestrrat-go/strftime (src/tq.go, src/xmit.go) for
// user-configurable timestamp formats.
package sessionlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

// DefaultPattern names one log file per run, down to the second, the same
// granularity the teacher's timestamp-format flag offers for received-frame
// prefixes.
const DefaultPattern = "rdm-%Y%m%d-%H%M%S.log"

// Writer appends timestamped transaction/discovery records to a rotating
// log file under dir, named from pattern via strftime (e.g. DefaultPattern).
// A new file is opened whenever the formatted name changes, mirroring the
// teacher's "new file when the day rolls over" daily-names behavior
// generalized to an arbitrary strftime pattern.
type Writer struct {
	mu      sync.Mutex
	dir     string
	pattern *strftime.Strftime
	curName string
	f       *os.File
	nowFn   func() time.Time
}

// New builds a Writer that rotates files under dir using pattern. If dir
// doesn't yet exist it's created (mirroring log_init's "try to create it"
// behavior for a missing log directory).
func New(dir, pattern string) (*Writer, error) {
	f, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("sessionlog: bad pattern %q: %w", pattern, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sessionlog: create dir %s: %w", dir, err)
	}
	return &Writer{dir: dir, pattern: f, nowFn: time.Now}, nil
}

func (w *Writer) rotateLocked() error {
	now := w.nowFn().UTC()
	name := w.pattern.FormatString(now)
	if name == w.curName && w.f != nil {
		return nil
	}
	if w.f != nil {
		_ = w.f.Close()
	}
	path := filepath.Join(w.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("sessionlog: open %s: %w", path, err)
	}
	w.f = f
	w.curName = name
	return nil
}

// WriteRecord appends one line to the current log file, rotating first if
// the formatted name has changed since the last write.
func (w *Writer) WriteRecord(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateLocked(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.f, "%s %s\n", w.nowFn().UTC().Format(time.RFC3339Nano), line); err != nil {
		return fmt.Errorf("sessionlog: write: %w", err)
	}
	return nil
}

// Close closes the currently open log file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
