package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kevink2022/Boomic-sub000/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// audioFilter treats .mp3 files as audio and skips hidden directories.
type audioFilter struct{}

func (audioFilter) Watchable(dir string) bool {
	return !strings.HasPrefix(filepath.Base(dir), ".")
}

func (audioFilter) IsAudio(path string) bool {
	return filepath.Ext(path) == ".mp3"
}

func newTestService(t *testing.T, root string, scanCount *atomic.Int32, bus *event.Bus, opts Options) *Service {
	t.Helper()
	scanFn := func(_ context.Context) error {
		scanCount.Add(1)
		return nil
	}
	if opts.Debounce == 0 {
		opts.Debounce = 50 * time.Millisecond
	}
	return NewService(root, audioFilter{}, scanFn, bus, testLogger(), opts)
}

// startService runs svc until the test ends and waits until root is watched.
func startService(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitFor(t, 2*time.Second, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.watching[svc.root]
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("test"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestNewAudioFileTriggersScan(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Artist", "Album"), 0o755); err != nil {
		t.Fatal(err)
	}
	var scans atomic.Int32
	svc := newTestService(t, root, &scans, nil, Options{})
	startService(t, svc)

	writeFile(t, filepath.Join(root, "Artist", "Album", "01 - One.mp3"))
	waitFor(t, 2*time.Second, func() bool { return scans.Load() == 1 })
}

func TestNewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	var scans atomic.Int32
	svc := newTestService(t, root, &scans, nil, Options{})
	startService(t, svc)

	dir := filepath.Join(root, "New Artist")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.watching[dir]
	})
	waitFor(t, 2*time.Second, func() bool { return scans.Load() >= 1 })

	before := scans.Load()
	writeFile(t, filepath.Join(dir, "01 - Later.mp3"))
	waitFor(t, 2*time.Second, func() bool { return scans.Load() > before })
}

func TestNonAudioFileIgnored(t *testing.T) {
	root := t.TempDir()
	var scans atomic.Int32
	svc := newTestService(t, root, &scans, nil, Options{})
	startService(t, svc)

	writeFile(t, filepath.Join(root, "notes.txt"))
	time.Sleep(300 * time.Millisecond)
	if n := scans.Load(); n != 0 {
		t.Errorf("got %d scans for a non-audio file, want 0", n)
	}
}

func TestHiddenDirectoryIgnored(t *testing.T) {
	root := t.TempDir()
	var scans atomic.Int32
	svc := newTestService(t, root, &scans, nil, Options{})
	startService(t, svc)

	if err := os.Mkdir(filepath.Join(root, ".cache"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := scans.Load(); n != 0 {
		t.Errorf("got %d scans for a hidden directory, want 0", n)
	}
}

func TestBurstCoalesces(t *testing.T) {
	root := t.TempDir()
	var scans atomic.Int32
	svc := newTestService(t, root, &scans, nil, Options{Debounce: 200 * time.Millisecond})
	startService(t, svc)

	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"} {
		writeFile(t, filepath.Join(root, name))
	}
	waitFor(t, 2*time.Second, func() bool { return scans.Load() >= 1 })
	time.Sleep(400 * time.Millisecond)
	if n := scans.Load(); n != 1 {
		t.Errorf("got %d scans, want 1", n)
	}
}

func TestRescansAreRateLimited(t *testing.T) {
	root := t.TempDir()
	var (
		mu    sync.Mutex
		times []time.Time
	)
	scanFn := func(_ context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		times = append(times, time.Now())
		return nil
	}
	svc := NewService(root, audioFilter{}, scanFn, nil, testLogger(), Options{
		Debounce:    20 * time.Millisecond,
		MinInterval: 500 * time.Millisecond,
	})
	startService(t, svc)

	writeFile(t, filepath.Join(root, "a.mp3"))
	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(times) == 1
	})
	writeFile(t, filepath.Join(root, "b.mp3"))
	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(times) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if gap := times[1].Sub(times[0]); gap < 400*time.Millisecond {
		t.Errorf("second scan ran %v after the first, want at least ~500ms", gap)
	}
}

func TestFilesChangedEvent(t *testing.T) {
	root := t.TempDir()
	bus := event.NewBus(testLogger(), 16)
	var (
		mu  sync.Mutex
		got []event.Event
	)
	bus.Subscribe(event.FilesChanged, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})
	go bus.Run(context.Background())
	t.Cleanup(bus.Stop)

	var scans atomic.Int32
	svc := newTestService(t, root, &scans, bus, Options{})
	startService(t, svc)

	path := filepath.Join(root, "a.mp3")
	writeFile(t, path)
	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	paths, _ := got[0].Data["paths"].([]string)
	if len(paths) != 1 || paths[0] != path {
		t.Errorf("paths = %v, want [%s]", paths, path)
	}
}

func TestPollDetectsChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "A", "old.mp3"))

	var scans atomic.Int32
	svc := newTestService(t, root, &scans, nil, Options{})
	svc.snapshot = svc.takeSnapshot()

	if svc.poll() {
		t.Fatal("poll reported a change with nothing changed")
	}

	writeFile(t, filepath.Join(root, "A", "new.mp3"))
	writeFile(t, filepath.Join(root, "A", "cover.jpg"))
	if err := os.Remove(filepath.Join(root, "A", "old.mp3")); err != nil {
		t.Fatal(err)
	}
	if !svc.poll() {
		t.Fatal("poll missed the changes")
	}
	if len(svc.pending) != 2 {
		t.Errorf("pending = %d paths, want 2", len(svc.pending))
	}

	svc.flush(context.Background())
	if scans.Load() != 1 {
		t.Errorf("flush ran %d scans, want 1", scans.Load())
	}
	if svc.hasPending() {
		t.Error("flush left pending paths")
	}
}

func TestContextCancellation(t *testing.T) {
	var scans atomic.Int32
	svc := newTestService(t, t.TempDir(), &scans, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
