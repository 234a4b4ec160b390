// Package history keeps the per-mode input history with a bounded size and
// optional suppression of consecutive duplicates, persisted as one entry per line.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultLimit is the number of entries kept when no limit is given.
const DefaultLimit = 1000

// Log is an append-only history of input lines.
type Log struct {
	path    string
	limit   int
	unique  bool
	entries []string
}

// New creates an empty log. An empty path disables persistence; a limit
// of zero or less selects DefaultLimit.
func New(path string, limit int, unique bool) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Log{path: path, limit: limit, unique: unique}
}

// Path returns the file the log is persisted to.
func (l *Log) Path() string {
	return l.path
}

// Enter appends entry. Empty entries are ignored, as is an entry equal to the
// previous one when the log is unique. It reports whether the entry was added.
func (l *Log) Enter(entry string) bool {
	entry = strings.TrimRight(entry, "\r\n")
	if entry == "" {
		return false
	}
	if l.unique && len(l.entries) > 0 && l.entries[len(l.entries)-1] == entry {
		return false
	}
	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.limit; over > 0 {
		l.entries = append([]string(nil), l.entries[over:]...)
	}
	return true
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []string {
	return append([]string(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Load appends the entries stored in the log file. A missing file is not an error.
func (l *Log) Load() error {
	if l.path == "" {
		return nil
	}
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		l.Enter(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}
	return nil
}

// Save writes the log to its file, replacing previous content.
func (l *Log) Save() error {
	if l.path == "" {
		return nil
	}
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	var b strings.Builder
	for _, e := range l.entries {
		b.WriteString(e)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(l.path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}
