// Package scanner walks a music directory and turns unknown audio files
// into unlinked tracks.
//
// Metadata comes from the path: Artist/Album/[D-]NN - Title.ext. A
// "Disc N" or "CD N" directory below the album sets the disc number.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/model"
)

// Art filenames, in order of preference.
var artPatterns = []string{"cover.jpg", "cover.png", "folder.jpg", "folder.png", "front.jpg", "front.png", "album.jpg", "album.png"}

// DefaultExtensions are the audio file extensions recognized when none are
// configured.
var DefaultExtensions = []string{".mp3", ".flac", ".m4a", ".aac", ".ogg", ".opus", ".wav", ".aiff", ".alac"}

var (
	filePattern = regexp.MustCompile(`^(?:(\d{1,2})-)?(\d{1,3})(?:\s*[-.]\s*|\s+)(.+)$`)
	discPattern = regexp.MustCompile(`(?i)^(?:cd|disc|disk)\s*(\d{1,2})$`)
)

// Scanner finds audio files below a library root.
type Scanner struct {
	root       string
	extensions map[string]bool
	exclusions map[string]bool
	logger     *slog.Logger
	newID      func() uuid.UUID
}

// New returns a Scanner for root. Directory names in exclusions are
// skipped, case-insensitively, as are hidden directories.
func New(root string, extensions, exclusions []string, logger *slog.Logger) *Scanner {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	extMap := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		extMap[e] = true
	}
	excMap := make(map[string]bool, len(exclusions))
	for _, e := range exclusions {
		excMap[strings.ToLower(e)] = true
	}
	return &Scanner{
		root:       filepath.Clean(root),
		extensions: extMap,
		exclusions: excMap,
		logger:     logger.With(slog.String("component", "scanner")),
		newID:      uuid.New,
	}
}

// Root returns the library root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the library and returns a track for every audio file whose
// source is not in known.
func (s *Scanner) Scan(ctx context.Context, known map[string]struct{}) (*Result, error) {
	result := &Result{
		ID:        uuid.New().String(),
		Root:      s.root,
		StartedAt: time.Now().UTC(),
	}

	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading library directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library path %s is not a directory", s.root)
	}

	artByDir := make(map[string]*string)
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path != s.root && s.skipDir(d.Name()) {
				return fs.SkipDir
			}
			result.Directories++
			return nil
		}
		if !d.Type().IsRegular() || !s.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		result.AudioFiles++
		result.Sources = append(result.Sources, path)
		if _, ok := known[path]; ok {
			result.Known++
			return nil
		}
		result.Tracks = append(result.Tracks, s.track(path, artByDir))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking library: %w", err)
	}

	result.CompletedAt = time.Now().UTC()
	s.logger.Info("scan finished",
		"root", s.root,
		"directories", result.Directories,
		"audio_files", result.AudioFiles,
		"new", len(result.Tracks),
		"duration", result.CompletedAt.Sub(result.StartedAt).String(),
	)
	return result, nil
}

// skipDir reports whether a directory name is skipped by the walk.
func (s *Scanner) skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || s.exclusions[strings.ToLower(name)]
}

// Watchable reports whether dir lies below the root and outside any
// skipped directory.
func (s *Scanner) Watchable(dir string) bool {
	rel, err := filepath.Rel(s.root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if rel == "." {
		return true
	}
	return !slices.ContainsFunc(strings.Split(rel, string(filepath.Separator)), s.skipDir)
}

// IsAudio reports whether path has a recognized audio extension.
func (s *Scanner) IsAudio(path string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

func (s *Scanner) track(path string, artByDir map[string]*string) model.Track {
	t := model.Track{ID: s.newID(), Source: path, Tags: []string{}}

	rel, _ := filepath.Rel(s.root, path)
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	if len(dirs) == 1 && dirs[0] == "." {
		dirs = nil
	}

	if n := len(dirs); n > 0 {
		if m := discPattern.FindStringSubmatch(dirs[n-1]); m != nil && n > 1 {
			disc, _ := strconv.Atoi(m[1])
			t.DiscNo = &disc
			dirs = dirs[:n-1]
		}
	}
	switch len(dirs) {
	case 0:
	case 1:
		t.ArtistName = model.Ptr(dirs[0])
	default:
		t.ArtistName = model.Ptr(dirs[0])
		t.AlbumTitle = model.Ptr(dirs[len(dirs)-1])
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := filePattern.FindStringSubmatch(stem); m != nil {
		if m[1] != "" && t.DiscNo == nil {
			disc, _ := strconv.Atoi(m[1])
			t.DiscNo = &disc
		}
		no, _ := strconv.Atoi(m[2])
		t.TrackNo = &no
		t.Title = model.Ptr(strings.TrimSpace(m[3]))
	} else {
		t.Title = model.Ptr(stem)
	}

	t.Art = s.art(filepath.Dir(path), artByDir)
	return t
}

// art returns the cover image for a directory, falling back to the parent
// for disc subdirectories.
func (s *Scanner) art(dir string, cache map[string]*string) *string {
	if a, ok := cache[dir]; ok {
		return a
	}
	var found *string
	for _, p := range artPatterns {
		candidate := filepath.Join(dir, p)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			found = &candidate
			break
		}
	}
	if found == nil && dir != s.root && discPattern.MatchString(filepath.Base(dir)) {
		found = s.art(filepath.Dir(dir), cache)
	}
	cache[dir] = found
	return found
}
