package aof

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var errWriterClosed = errors.New("aof: writer is closed")

// File layout constants.
const (
	FilePrefix      = "aof-"
	FileExtension   = ".log"
	DefaultFilePerm = 0600
	DefaultDirPerm  = 0750
)

// Default configuration values.
const (
	DefaultBatchCount           = 128
	DefaultBatchBytes     int64 = 1 << 20 // 1MB
	DefaultSyncInterval         = time.Second
	DefaultMaxFileSize    int64 = 64 << 20 // 64MB
	DefaultRetainSegments       = 0        // keep everything
)

// SyncMode defines when the log is fsynced.
type SyncMode string

const (
	// SyncAlways flushes and fsyncs on every append.
	SyncAlways SyncMode = "always"
	// SyncEverySec flushes and fsyncs once per SyncInterval.
	SyncEverySec SyncMode = "everysec"
	// SyncNo flushes on the interval and leaves fsync to the OS.
	SyncNo SyncMode = "no"
)

// ParseSyncMode validates a configured sync mode.
func ParseSyncMode(s string) (SyncMode, error) {
	switch m := SyncMode(strings.ToLower(s)); m {
	case SyncAlways, SyncEverySec, SyncNo:
		return m, nil
	case "":
		return SyncEverySec, nil
	default:
		return "", fmt.Errorf("aof: unknown sync mode %q", s)
	}
}

// Config configures the Writer.
type Config struct {
	Dir string

	SyncMode     SyncMode
	SyncInterval time.Duration

	BatchCount int
	BatchBytes int64

	MaxFileSize    int64
	RetainSegments int
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		SyncMode:       SyncEverySec,
		SyncInterval:   DefaultSyncInterval,
		BatchCount:     DefaultBatchCount,
		BatchBytes:     DefaultBatchBytes,
		MaxFileSize:    DefaultMaxFileSize,
		RetainSegments: DefaultRetainSegments,
	}
}

// Writer appends records to segment files.
type Writer struct {
	cfg Config

	mu sync.Mutex

	segmentID uint64
	file      *os.File
	fileSize  int64

	buffer  []byte
	pending int

	records int64

	syncTicker *time.Ticker
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     bool
	onError    func(error)
	compactor  *Compactor
}

// WriterOption configures the Writer.
type WriterOption func(*Writer)

// WithErrorHandler receives errors from background flushes.
func WithErrorHandler(fn func(error)) WriterOption {
	return func(w *Writer) {
		w.onError = fn
	}
}

// NewWriter opens the log in cfg.Dir, continuing the newest segment if one
// exists.
func NewWriter(cfg Config, opts ...WriterOption) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("aof: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("aof: create dir: %w", err)
	}

	applyDefaults(&cfg)

	w := &Writer{
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if cfg.RetainSegments > 0 {
		w.compactor = NewCompactor(cfg.Dir, WithRetainCount(cfg.RetainSegments))
	}

	segs, err := listSegments(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		w.segmentID = 1
	} else {
		w.segmentID = segs[len(segs)-1].id
	}
	if err := w.openSegment(); err != nil {
		return nil, err
	}

	if cfg.SyncMode != SyncAlways {
		w.startSyncLoop()
	}
	return w, nil
}

func applyDefaults(cfg *Config) {
	if cfg.SyncMode == "" {
		cfg.SyncMode = SyncEverySec
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.BatchCount <= 0 {
		cfg.BatchCount = DefaultBatchCount
	}
	if cfg.BatchBytes <= 0 {
		cfg.BatchBytes = DefaultBatchBytes
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
}

// Append buffers rec. In SyncAlways mode it is written and fsynced before
// Append returns.
func (w *Writer) Append(rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errWriterClosed
	}

	w.buffer = append(w.buffer, rec.Encode()...)
	w.pending++

	if w.cfg.SyncMode == SyncAlways ||
		w.pending >= w.cfg.BatchCount ||
		int64(len(w.buffer)) >= w.cfg.BatchBytes {
		return w.flushLocked(w.cfg.SyncMode == SyncAlways)
	}
	return nil
}

// Flush writes buffered records and fsyncs unless the mode is SyncNo.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.flushLocked(w.cfg.SyncMode != SyncNo)
}

// Records returns the number of records written since the writer opened.
func (w *Writer) Records() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Segment returns the id of the active segment.
func (w *Writer) Segment() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.segmentID
}

func (w *Writer) flushLocked(sync bool) error {
	if len(w.buffer) == 0 {
		if sync && w.file != nil {
			return w.file.Sync()
		}
		return nil
	}
	if w.file == nil {
		return fmt.Errorf("aof: file not open")
	}

	// Rotate before writing if this batch would overflow a non-empty segment.
	if w.fileSize > 0 && w.fileSize+int64(len(w.buffer)) > w.cfg.MaxFileSize {
		if err := w.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := w.file.Write(w.buffer)
	w.fileSize += int64(n)
	if err != nil {
		return fmt.Errorf("aof: write batch: %w", err)
	}

	w.records += int64(w.pending)
	w.buffer = w.buffer[:0]
	w.pending = 0

	if sync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("aof: sync: %w", err)
		}
	}
	return nil
}

func (w *Writer) rotateLocked() error {
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("aof: sync: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("aof: close: %w", err)
	}
	w.file = nil
	w.segmentID++
	if err := w.openSegment(); err != nil {
		return err
	}
	if w.compactor != nil {
		if err := w.compactor.Compact(); err != nil {
			w.reportError(err)
		}
	}
	return nil
}

func (w *Writer) openSegment() error {
	path := filepath.Join(w.cfg.Dir, formatSegmentFilename(w.segmentID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("aof: open segment: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("aof: stat segment: %w", err)
	}

	w.file = file
	w.fileSize = stat.Size()
	return nil
}

func (w *Writer) startSyncLoop() {
	w.syncTicker = time.NewTicker(w.cfg.SyncInterval)
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.syncTicker.C:
				if err := w.Flush(); err != nil {
					w.reportError(err)
				}
			case <-w.stopCh:
				return
			}
		}
	}()
}

func (w *Writer) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

// Close flushes pending records, fsyncs and closes the active segment.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.stopCh)
	w.mu.Unlock()

	if w.syncTicker != nil {
		w.syncTicker.Stop()
	}
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.flushLocked(true)
	if cerr := w.file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("aof: close: %w", cerr)
	}
	w.file = nil
	return err
}

type segmentInfo struct {
	id   uint64
	path string
}

func formatSegmentFilename(segmentID uint64) string {
	return fmt.Sprintf("%s%08d%s", FilePrefix, segmentID, FileExtension)
}

func parseSegmentFilename(name string) (uint64, bool) {
	if !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileExtension) {
		return 0, false
	}
	var id uint64
	_, err := fmt.Sscanf(name, FilePrefix+"%d"+FileExtension, &id)
	return id, err == nil && id > 0
}

// listSegments returns the segments in dir, oldest first.
func listSegments(dir string) ([]segmentInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("aof: read dir: %w", err)
	}

	var segs []segmentInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := parseSegmentFilename(e.Name())
		if !ok {
			continue
		}
		segs = append(segs, segmentInfo{id: id, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].id < segs[j].id })
	return segs, nil
}
