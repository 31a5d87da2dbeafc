package aof

import (
	"errors"
	"fmt"
	"os"
)

// DefaultRetainCount is the default number of segments kept by a Compactor.
const DefaultRetainCount = 3

// Compactor removes old segments.
type Compactor struct {
	dir         string
	retainCount int
}

// CompactorOption configures the Compactor.
type CompactorOption func(*Compactor)

// WithRetainCount sets the number of segments to retain.
func WithRetainCount(count int) CompactorOption {
	return func(c *Compactor) {
		if count > 0 {
			c.retainCount = count
		}
	}
}

// NewCompactor creates a compactor for the segments in dir.
func NewCompactor(dir string, opts ...CompactorOption) *Compactor {
	c := &Compactor{
		dir:         dir,
		retainCount: DefaultRetainCount,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compact deletes all but the newest retainCount segments.
func (c *Compactor) Compact() error {
	segs, err := listSegments(c.dir)
	if err != nil {
		return err
	}
	if len(segs) <= c.retainCount {
		return nil
	}

	var errs []error
	for _, s := range segs[:len(segs)-c.retainCount] {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", s.path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("aof: failed to delete %d segments: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// TotalSize returns the combined size of all segments in bytes.
func (c *Compactor) TotalSize() (int64, error) {
	segs, err := listSegments(c.dir)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, s := range segs {
		info, err := os.Stat(s.path)
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// FileCount returns the number of segments.
func (c *Compactor) FileCount() (int, error) {
	segs, err := listSegments(c.dir)
	if err != nil {
		return 0, err
	}
	return len(segs), nil
}
