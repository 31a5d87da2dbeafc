package repl

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
)

// DefaultHistorySize is the number of entries kept in memory and on disk.
const DefaultHistorySize = 1000

// History manages command history for the REPL.
type History struct {
	entries []string
	maxSize int
	file    string
}

// NewHistory creates a History persisted at file. An empty file keeps
// history in memory only.
func NewHistory(file string, maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &History{
		entries: make([]string, 0),
		maxSize: maxSize,
		file:    file,
	}
}

// Add adds a command to history. Repeating the last entry is a no-op.
func (h *History) Add(cmd string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Get returns the history entry at index (0 = most recent).
func (h *History) Get(index int) string {
	if index < 0 || index >= len(h.entries) {
		return ""
	}
	return h.entries[len(h.entries)-1-index]
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns the entries, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

// Load loads history from file. A missing file is not an error.
func (h *History) Load() error {
	if h.file == "" {
		return nil
	}
	file, err := os.Open(h.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			h.Add(line)
		}
	}
	return scanner.Err()
}

// Save saves history to file with owner-only permissions.
func (h *History) Save() error {
	if h.file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.file), 0o700); err != nil {
		return err
	}

	file, err := os.OpenFile(h.file, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	for _, entry := range h.entries {
		if _, err := w.WriteString(entry + "\n"); err != nil {
			file.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
