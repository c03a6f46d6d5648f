// Package logging builds the process-wide slog logger and lets its level,
// format and file output change at runtime.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging setup.
type Config struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
	FileCompress   bool   `yaml:"file_compress"`
}

// DefaultConfig returns info-level JSON logging to the console only.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Format:         "json",
		FileMaxSizeMB:  100,
		FileMaxFiles:   3,
		FileMaxAgeDays: 30,
	}
}

// Validate reports the first unrecognized setting.
func (c Config) Validate() error {
	if !ValidLevel(c.Level) {
		return fmt.Errorf("invalid log level %q", c.Level)
	}
	if !ValidFormat(c.Format) {
		return fmt.Errorf("invalid log format %q", c.Format)
	}
	return nil
}

func (c Config) String() string {
	s := fmt.Sprintf("level=%s format=%s", c.Level, c.Format)
	if c.FilePath != "" {
		s += fmt.Sprintf(" file=%s max_size=%dMB max_files=%d max_age=%dd",
			c.FilePath, c.FileMaxSizeMB, c.FileMaxFiles, c.FileMaxAgeDays)
	}
	return s
}

// SwappableHandler is a slog.Handler whose inner handler can be replaced
// while loggers derived from it stay valid.
type SwappableHandler struct {
	inner atomic.Pointer[slog.Handler]
	// derive rebuilds this handler's attrs and groups on a new root.
	derive func(slog.Handler) slog.Handler
	parent *SwappableHandler
	// cache holds the last derived handler and the root it was built on.
	cache atomic.Pointer[derivedHandler]
}

type derivedHandler struct {
	root *slog.Handler
	h    slog.Handler
}

// NewSwappableHandler creates a SwappableHandler wrapping h.
func NewSwappableHandler(h slog.Handler) *SwappableHandler {
	s := &SwappableHandler{}
	s.inner.Store(&h)
	return s
}

// Swap replaces the inner handler of the root and of every handler
// derived from it on next use.
func (s *SwappableHandler) Swap(h slog.Handler) {
	s.inner.Store(&h)
}

func (s *SwappableHandler) current() slog.Handler {
	h, _ := s.resolve()
	return h
}

// resolve returns the handler to use and the root handler it derives from.
// Derived handlers are rebuilt only after the root is swapped.
func (s *SwappableHandler) resolve() (slog.Handler, *slog.Handler) {
	if s.parent == nil {
		root := s.inner.Load()
		return *root, root
	}
	base, root := s.parent.resolve()
	if c := s.cache.Load(); c != nil && c.root == root {
		return c.h, root
	}
	h := s.derive(base)
	s.cache.Store(&derivedHandler{root: root, h: h})
	return h, root
}

func (s *SwappableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.current().Enabled(ctx, level)
}

func (s *SwappableHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.current().Handle(ctx, r)
}

func (s *SwappableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SwappableHandler{
		parent: s,
		derive: func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) },
	}
}

func (s *SwappableHandler) WithGroup(name string) slog.Handler {
	return &SwappableHandler{
		parent: s,
		derive: func(h slog.Handler) slog.Handler { return h.WithGroup(name) },
	}
}

// Manager owns the logger and its file output.
type Manager struct {
	console  io.Writer
	levelVar *slog.LevelVar
	handler  *SwappableHandler

	mu     sync.Mutex
	config Config
	closer io.Closer
}

// NewManager builds a logger writing to console (stderr when nil) and,
// if configured, a rotating log file.
func NewManager(cfg Config, console io.Writer) (*Manager, *slog.Logger) {
	if console == nil {
		console = os.Stderr
	}
	lvl := &slog.LevelVar{}
	lvl.Set(parseLevel(cfg.Level))

	writer, closer := buildWriter(cfg, console)
	m := &Manager{
		console:  console,
		levelVar: lvl,
		handler:  NewSwappableHandler(buildHandler(writer, lvl, cfg.Format)),
		config:   cfg,
		closer:   closer,
	}
	return m, slog.New(m.handler)
}

// Reconfigure applies cfg. A level change is immediate; a format or file
// change rebuilds the handler under every existing logger.
func (m *Manager) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.levelVar.Set(parseLevel(cfg.Level))

	old := m.config
	old.Level = cfg.Level
	if old != cfg {
		if m.closer != nil {
			m.closer.Close() //nolint:errcheck
			m.closer = nil
		}
		writer, closer := buildWriter(cfg, m.console)
		m.handler.Swap(buildHandler(writer, m.levelVar, cfg.Format))
		m.closer = closer
	}

	m.config = cfg
	return nil
}

// Config returns the active configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Close releases the log file, if any. It is safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closer == nil {
		return nil
	}
	err := m.closer.Close()
	m.closer = nil
	return err
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// FormatLevel returns the config name of l.
func FormatLevel(l slog.Level) string {
	return strings.ToLower(l.String())
}

func buildWriter(cfg Config, console io.Writer) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return console, nil
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    positiveOr(cfg.FileMaxSizeMB, 100),
		MaxBackups: positiveOr(cfg.FileMaxFiles, 3),
		MaxAge:     positiveOr(cfg.FileMaxAgeDays, 30),
		Compress:   cfg.FileCompress,
	}
	return io.MultiWriter(console, lj), lj
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func buildHandler(w io.Writer, leveler slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: leveler}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ValidLevel reports whether s names a level: debug, info, warn or error.
func ValidLevel(s string) bool {
	switch s {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// ValidFormat reports whether s is "text" or "json".
func ValidFormat(s string) bool {
	return s == "text" || s == "json"
}
