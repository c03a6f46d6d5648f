// Package library is the entry point for reading and editing the music
// library. Every edit is expressed as a request that the transactor
// evaluates against the Basis it will be applied to.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/edit"
	"github.com/kevink2022/Boomic-sub000/internal/event"
	"github.com/kevink2022/Boomic-sub000/internal/model"
	"github.com/kevink2022/Boomic-sub000/internal/scanner"
	"github.com/kevink2022/Boomic-sub000/internal/transaction"
	"github.com/kevink2022/Boomic-sub000/internal/transactor"
)

// ErrNotFound is returned when an edit targets an entity the library does
// not hold.
var ErrNotFound = errors.New("not found")

// Scanner finds audio files that the library does not know yet.
type Scanner interface {
	Root() string
	Scan(ctx context.Context, known map[string]struct{}) (*scanner.Result, error)
}

// Service exposes library reads, edits, history and scanning.
type Service struct {
	tx       *transactor.Transactor
	gen      *edit.Generator
	scanner  Scanner
	eventBus *event.Bus
	logger   *slog.Logger

	scanMu sync.Mutex
}

// NewService wires a library service. scanner and bus may be nil.
func NewService(tx *transactor.Transactor, gen *edit.Generator, sc Scanner, bus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		tx:       tx,
		gen:      gen,
		scanner:  sc,
		eventBus: bus,
		logger:   logger.With("component", "library"),
	}
}

// Current returns the latest Basis.
func (s *Service) Current() *basis.Basis {
	return s.tx.Current()
}

// Subscribe returns a latest-value channel of Basis snapshots.
func (s *Service) Subscribe() (<-chan *basis.Basis, func()) {
	return s.tx.Subscribe()
}

func (s *Service) submit(ctx context.Context, req transactor.Request) (transactor.Result, error) {
	res, err := s.tx.Submit(ctx, req)
	if err != nil {
		return res, err
	}
	if !res.Committed {
		s.logger.Debug("edit changed nothing")
	}
	return res, nil
}

// ImportTracks adds and links new tracks.
func (s *Service) ImportTracks(ctx context.Context, tracks []model.Track) (transactor.Result, error) {
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.ImportTracks(b, tracks)
	})
}

// UpdateTrack patches one track.
func (s *Service) UpdateTrack(ctx context.Context, id uuid.UUID, u model.TrackUpdate) (transactor.Result, error) {
	if _, ok := s.Current().Track(id); !ok {
		return transactor.Result{}, fmt.Errorf("track %s: %w", id, ErrNotFound)
	}
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.UpdateTrack(b, id, u)
	})
}

// UpdateTracks patches several tracks in one transaction.
func (s *Service) UpdateTracks(ctx context.Context, updates map[uuid.UUID]model.TrackUpdate) (transactor.Result, error) {
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.UpdateTracks(b, updates)
	})
}

// DeleteTracks removes tracks.
func (s *Service) DeleteTracks(ctx context.Context, ids []uuid.UUID) (transactor.Result, error) {
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.DeleteTracks(b, ids)
	})
}

// UpdateAlbum edits an album's title, art or artist override.
func (s *Service) UpdateAlbum(ctx context.Context, id uuid.UUID, u model.AlbumUpdate) (transactor.Result, error) {
	if _, ok := s.Current().Album(id); !ok {
		return transactor.Result{}, fmt.Errorf("album %s: %w", id, ErrNotFound)
	}
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.UpdateAlbum(b, id, u)
	})
}

// DeleteAlbums removes albums and their tracks.
func (s *Service) DeleteAlbums(ctx context.Context, ids []uuid.UUID) (transactor.Result, error) {
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.DeleteAlbums(b, ids)
	})
}

// UpdateArtist edits an artist's name or art.
func (s *Service) UpdateArtist(ctx context.Context, id uuid.UUID, u model.ArtistUpdate) (transactor.Result, error) {
	if _, ok := s.Current().Artist(id); !ok {
		return transactor.Result{}, fmt.Errorf("artist %s: %w", id, ErrNotFound)
	}
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.UpdateArtist(b, id, u)
	})
}

// DeleteArtists removes artists and their tracks.
func (s *Service) DeleteArtists(ctx context.Context, ids []uuid.UUID) (transactor.Result, error) {
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.DeleteArtists(b, ids)
	})
}

// AddTaglist creates a taglist.
func (s *Service) AddTaglist(ctx context.Context, l model.Taglist) (transactor.Result, error) {
	if strings.TrimSpace(l.Title) == "" {
		return transactor.Result{}, fmt.Errorf("taglist title is required")
	}
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.AddTaglist(b, l)
	})
}

// UpdateTaglist edits a taglist.
func (s *Service) UpdateTaglist(ctx context.Context, id uuid.UUID, u model.TaglistUpdate) (transactor.Result, error) {
	if _, ok := s.Current().Taglist(id); !ok {
		return transactor.Result{}, fmt.Errorf("taglist %s: %w", id, ErrNotFound)
	}
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.UpdateTaglist(b, id, u)
	})
}

// DeleteTaglists removes taglists.
func (s *Service) DeleteTaglists(ctx context.Context, ids []uuid.UUID) (transactor.Result, error) {
	return s.submit(ctx, func(b *basis.Basis) transaction.Transaction {
		return s.gen.DeleteTaglists(b, ids)
	})
}

// Relink recomputes every link in the library from the tracks' artist
// names and album titles.
func (s *Service) Relink(ctx context.Context) (transactor.Result, error) {
	return s.submit(ctx, s.gen.Relink)
}

// History returns up to n of the latest transactions, oldest first.
func (s *Service) History(n int) []transaction.Record {
	return s.tx.ViewLast(n)
}

// HistorySince returns the transactions committed at or after since.
func (s *Service) HistorySince(since time.Time) []transaction.Record {
	return s.tx.ViewSince(since)
}

// Rollback undoes every transaction after id; with after unset, id itself
// is undone too.
func (s *Service) Rollback(ctx context.Context, id uuid.UUID, after bool) (transactor.Result, error) {
	return s.tx.RollbackTo(ctx, id, after)
}

// ScanSummary reports what a scan changed.
type ScanSummary struct {
	Found    int
	Imported int
	Removed  int
}

// Scan walks the library root, imports unknown audio files and deletes
// tracks under the root whose files are gone. Concurrent calls run one at
// a time.
func (s *Service) Scan(ctx context.Context) (ScanSummary, error) {
	if s.scanner == nil {
		return ScanSummary{}, fmt.Errorf("no scanner configured")
	}
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	current := s.Current()
	known := make(map[string]struct{}, current.Counts().Tracks)
	for _, t := range current.AllTracks() {
		known[t.Source] = struct{}{}
	}

	result, err := s.scanner.Scan(ctx, known)
	if err != nil {
		return ScanSummary{}, fmt.Errorf("scanning library: %w", err)
	}
	summary := ScanSummary{Found: result.AudioFiles}

	if len(result.Tracks) > 0 {
		res, err := s.ImportTracks(ctx, result.Tracks)
		if err != nil {
			return summary, fmt.Errorf("importing scanned tracks: %w", err)
		}
		if res.Committed {
			summary.Imported = len(result.Tracks)
		}
	}

	onDisk := make(map[string]struct{}, len(result.Sources))
	for _, src := range result.Sources {
		onDisk[src] = struct{}{}
	}
	root := s.scanner.Root()
	var gone []uuid.UUID
	for _, t := range current.AllTracks() {
		if _, ok := onDisk[t.Source]; !ok && within(root, t.Source) {
			gone = append(gone, t.ID)
		}
	}
	if len(gone) > 0 {
		res, err := s.DeleteTracks(ctx, gone)
		if err != nil {
			return summary, fmt.Errorf("removing missing tracks: %w", err)
		}
		if res.Committed {
			summary.Removed = len(gone)
		}
	}

	s.logger.Info("scan completed",
		"found", summary.Found,
		"imported", summary.Imported,
		"removed", summary.Removed,
	)
	if s.eventBus != nil {
		s.eventBus.Publish(event.Event{
			Type: event.ScanCompleted,
			Data: map[string]any{
				"scan_id":  result.ID,
				"found":    summary.Found,
				"imported": summary.Imported,
				"removed":  summary.Removed,
			},
		})
	}
	return summary, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
