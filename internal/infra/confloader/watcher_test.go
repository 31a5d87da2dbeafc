package confloader

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
)

func newTestWatcher(t *testing.T, opts ...WatcherOption) *Watcher {
	t.Helper()
	opts = append([]WatcherOption{WithWatcherLogger(logger.Discard())}, opts...)
	w, err := NewWatcher(opts...)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestNewWatcher(t *testing.T) {
	w := newTestWatcher(t)

	if w.watcher == nil {
		t.Error("NewWatcher() watcher is nil")
	}
	if w.done == nil {
		t.Error("NewWatcher() done channel is nil")
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w := newTestWatcher(t)
	if err := w.Watch("/nonexistent/dir/config.yaml"); err == nil {
		t.Error("Watch() should fail for a nonexistent directory")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w := newTestWatcher(t)
	w.StartAsync()
	time.Sleep(20 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_FileChange(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "miniredis.yaml")
	if err := os.WriteFile(configFile, []byte("log:\n  level: info\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w := newTestWatcher(t, WithDebounce(20*time.Millisecond))
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) {
		select {
		case changed <- path:
		default:
		}
	})

	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case path := <-changed:
		if filepath.Base(path) != "miniredis.yaml" {
			t.Errorf("OnChange() path = %q", path)
		}
	case <-time.After(2 * time.Second):
		t.Error("OnChange() callback was not triggered within timeout")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "miniredis.yaml")
	if err := os.WriteFile(configFile, []byte("a: 1"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w := newTestWatcher(t, WithDebounce(0))
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })
	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("callback fired %d times for an unrelated file", n)
	}
}

func TestWatcher_DebounceCoalesces(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "miniredis.yaml")
	if err := os.WriteFile(configFile, []byte("a: 0"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w := newTestWatcher(t, WithDebounce(300*time.Millisecond))
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })
	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		os.WriteFile(configFile, []byte("a: 1"), 0644)
		time.Sleep(10 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(400 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("callback fired %d times, want 1", n)
	}
}

func TestWatcher_ConcurrentCallbacks(t *testing.T) {
	w := newTestWatcher(t)

	var count atomic.Int32
	w.OnChange(func(string) { count.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.notifyCallbacks("/test/path")
		}()
	}
	wg.Wait()

	if n := count.Load(); n != 100 {
		t.Errorf("Concurrent notifications: count = %d, want 100", n)
	}
}
