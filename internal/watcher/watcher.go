// Package watcher turns file system activity under the library root into
// rescans.
//
// Changes are collected until the library has been quiet for the debounce
// interval, then a single scan runs. A rate limiter enforces a minimum gap
// between scans. Where fsnotify does not work (network mounts, for
// example) the service falls back to polling.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/kevink2022/Boomic-sub000/internal/event"
)

// Filter decides which directories are watched and which files matter.
type Filter interface {
	Watchable(dir string) bool
	IsAudio(path string) bool
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	// Debounce is how long the library must be quiet before a scan.
	Debounce time.Duration
	// MinInterval is the minimum time between two scans.
	MinInterval time.Duration
	// PollInterval is the snapshot interval when fsnotify is unavailable.
	PollInterval time.Duration
	// ProbeTimeout bounds the startup fsnotify probe.
	ProbeTimeout time.Duration
}

// Service watches the library root and triggers scans.
type Service struct {
	root     string
	filter   Filter
	scanFn   func(ctx context.Context) error
	eventBus *event.Bus
	logger   *slog.Logger
	opts     Options
	limiter  *rate.Limiter

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watching map[string]bool
	pending  map[string]struct{}
	snapshot map[string]struct{}
}

// NewService creates a watcher for root. bus may be nil.
func NewService(root string, filter Filter, scanFn func(ctx context.Context) error, bus *event.Bus, logger *slog.Logger, opts Options) *Service {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 2 * time.Second
	}
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	return &Service{
		root:     filepath.Clean(root),
		filter:   filter,
		scanFn:   scanFn,
		eventBus: bus,
		logger:   logger.With("component", "fs-watcher"),
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		watching: make(map[string]bool),
		pending:  make(map[string]struct{}),
	}
}

// Start blocks until ctx is canceled, dispatching file system changes to
// scans.
func (s *Service) Start(ctx context.Context) {
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error

	if ProbeFSNotify(s.root, s.opts.ProbeTimeout) {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			s.logger.Warn("fsnotify unavailable, polling", "error", err)
		} else {
			defer w.Close() //nolint:errcheck
			s.mu.Lock()
			s.watcher = w
			s.mu.Unlock()
			s.watchTree(s.root)
			eventCh, errCh = w.Events, w.Errors
		}
	} else {
		s.logger.Warn("fsnotify probe failed, polling", "path", s.root, "interval", s.opts.PollInterval.String())
	}

	// Polling only runs when fsnotify is unavailable.
	var pollCh <-chan time.Time
	if eventCh == nil {
		s.snapshot = s.takeSnapshot()
		ticker := time.NewTicker(s.opts.PollInterval)
		defer ticker.Stop()
		pollCh = ticker.C
	}

	mode := "notify"
	if eventCh == nil {
		mode = "poll"
	}
	s.logger.Info("filesystem watcher starting", "root", s.root, "mode", mode)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	var reservation *rate.Reservation

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("filesystem watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if s.handleFSEvent(ev) {
				resetTimer(timer, s.opts.Debounce)
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-pollCh:
			if s.poll() {
				resetTimer(timer, s.opts.Debounce)
			}

		case <-timer.C:
			if !s.hasPending() {
				continue
			}
			if reservation == nil {
				reservation = s.limiter.Reserve()
			}
			if d := reservation.Delay(); d > 0 {
				s.logger.Debug("rescan rate limited", "wait", d.String())
				resetTimer(timer, d)
				continue
			}
			reservation = nil
			s.flush(ctx)
		}
	}
}

// handleFSEvent records a relevant change and reports whether it was one.
func (s *Service) handleFSEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !s.filter.Watchable(ev.Name) {
				return false
			}
			s.watchTree(ev.Name)
			s.markPending(ev.Name)
			return true
		}
	}

	s.mu.Lock()
	wasDir := s.watching[ev.Name]
	if wasDir && !ev.Has(fsnotify.Create) {
		delete(s.watching, ev.Name)
	}
	s.mu.Unlock()

	if !wasDir && !s.filter.IsAudio(ev.Name) {
		return false
	}
	s.markPending(ev.Name)
	return true
}

// watchTree adds watches for dir and every watchable directory below it.
func (s *Service) watchTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if !s.filter.Watchable(path) {
			return fs.SkipDir
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.watching[path] {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			s.logger.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		s.watching[path] = true
		return nil
	})
}

func (s *Service) markPending(path string) {
	s.mu.Lock()
	s.pending[path] = struct{}{}
	s.mu.Unlock()
}

func (s *Service) hasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

func (s *Service) flush(ctx context.Context) {
	s.mu.Lock()
	paths := make([]string, 0, len(s.pending))
	for p := range s.pending {
		paths = append(paths, p)
	}
	clear(s.pending)
	s.mu.Unlock()
	slices.Sort(paths)

	s.logger.Info("library changed, triggering scan", "paths", len(paths))
	if s.eventBus != nil {
		s.eventBus.Publish(event.Event{
			Type: event.FilesChanged,
			Data: map[string]any{"paths": paths},
		})
	}
	if err := s.scanFn(ctx); err != nil {
		s.logger.Error("scan triggered by fs watcher failed", "error", err)
	}
}

// poll compares the audio files on disk against the last snapshot and
// reports whether anything changed.
func (s *Service) poll() bool {
	next := s.takeSnapshot()
	changed := false
	for p := range next {
		if _, ok := s.snapshot[p]; !ok {
			s.markPending(p)
			changed = true
		}
	}
	for p := range s.snapshot {
		if _, ok := next[p]; !ok {
			s.markPending(p)
			changed = true
		}
	}
	s.snapshot = next
	return changed
}

func (s *Service) takeSnapshot() map[string]struct{} {
	snap := make(map[string]struct{})
	_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if !s.filter.Watchable(path) {
				return fs.SkipDir
			}
			return nil
		}
		if s.filter.IsAudio(path) {
			snap[path] = struct{}{}
		}
		return nil
	})
	return snap
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
