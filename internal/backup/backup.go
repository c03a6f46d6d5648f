// Package backup snapshots the SQLite transaction log with VACUUM INTO and
// prunes old snapshots by count and age.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const stampLayout = "20060102-150405"

// snapshotPattern matches snapshot filenames: boomic-YYYYMMDD-HHMMSS.db
var snapshotPattern = regexp.MustCompile(`^boomic-\d{8}-\d{6}\.db$`)

// Snapshot describes a snapshot file.
type Snapshot struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service writes and prunes snapshots of one database.
type Service struct {
	db  *sql.DB
	dir string

	mu         sync.RWMutex
	retention  int
	maxAgeDays int

	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a snapshot service writing into dir. retention is the
// number of snapshots Prune keeps; maxAgeDays of zero disables age pruning.
func NewService(db *sql.DB, dir string, retention, maxAgeDays int, logger *slog.Logger) *Service {
	return &Service{
		db:         db,
		dir:        dir,
		retention:  retention,
		maxAgeDays: maxAgeDays,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "backup")),
	}
}

// Dir returns the snapshot directory.
func (s *Service) Dir() string {
	return s.dir
}

// Backup writes a consistent copy of the database. VACUUM INTO refuses to
// overwrite, so two snapshots within the same second fail.
func (s *Service) Backup(ctx context.Context) (*Snapshot, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := s.now().UTC()
	filename := "boomic-" + now.Format(stampLayout) + ".db"
	dest := filepath.Join(s.dir, filename)

	start := time.Now()
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	s.logger.Info("snapshot written",
		slog.String("filename", filename),
		slog.Int64("size", info.Size()),
		slog.Duration("took", time.Since(start)))

	return &Snapshot{
		Filename:  filename,
		Size:      info.Size(),
		CreatedAt: now.Truncate(time.Second),
	}, nil
}

// List returns all snapshots, newest first.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !snapshotPattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "boomic-"), ".db")
		ts, err := time.Parse(stampLayout, stamp)
		if err != nil {
			ts = info.ModTime().UTC()
		}
		snapshots = append(snapshots, Snapshot{
			Filename:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: ts,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// Delete removes one snapshot by filename.
func (s *Service) Delete(filename string) error {
	if !IsValidFilename(filename) {
		return fmt.Errorf("invalid snapshot filename %q", filename)
	}
	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	s.logger.Info("snapshot deleted", slog.String("filename", filename))
	return nil
}

// Inspect opens a snapshot and counts its transactions per
// namespace.
func (s *Service) Inspect(ctx context.Context, filename string) (map[string]int, error) {
	if !IsValidFilename(filename) {
		return nil, fmt.Errorf("invalid snapshot filename %q", filename)
	}
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer db.Close() //nolint:errcheck

	rows, err := db.QueryContext(ctx,
		"SELECT namespace, COUNT(*) FROM transactions GROUP BY namespace")
	if err != nil {
		return nil, fmt.Errorf("counting snapshot transactions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[string]int)
	for rows.Next() {
		var ns string
		var n int
		if err := rows.Scan(&ns, &n); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		counts[ns] = n
	}
	return counts, rows.Err()
}

// SetRetention updates the number of snapshots Prune keeps.
func (s *Service) SetRetention(count int) {
	s.mu.Lock()
	s.retention = count
	s.mu.Unlock()
}

// SetMaxAgeDays updates the age limit Prune enforces.
func (s *Service) SetMaxAgeDays(days int) {
	s.mu.Lock()
	s.maxAgeDays = days
	s.mu.Unlock()
}

// Prune deletes snapshots beyond the retention count and those older than
// the age limit. It returns how many were removed.
func (s *Service) Prune() (int, error) {
	s.mu.RLock()
	retention := s.retention
	maxAge := s.maxAgeDays
	s.mu.RUnlock()

	snapshots, err := s.List()
	if err != nil {
		return 0, err
	}

	var cutoff time.Time
	if maxAge > 0 {
		cutoff = s.now().UTC().AddDate(0, 0, -maxAge)
	}

	removed := 0
	for i, snap := range snapshots {
		overCount := retention > 0 && i >= retention
		tooOld := maxAge > 0 && snap.CreatedAt.Before(cutoff)
		if !overCount && !tooOld {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, snap.Filename)); err != nil {
			s.logger.Warn("failed to remove snapshot",
				slog.String("filename", snap.Filename),
				slog.Any("error", err))
			continue
		}
		removed++
		s.logger.Info("pruned snapshot",
			slog.String("filename", snap.Filename),
			slog.Bool("aged", tooOld))
	}
	return removed, nil
}

// StartScheduler snapshots and prunes on a fixed interval until ctx is
// canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("backup scheduler started",
		slog.String("interval", interval.String()),
		slog.String("dir", s.dir))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("backup scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Backup(ctx); err != nil {
				s.logger.Error("scheduled backup failed", slog.Any("error", err))
				continue
			}
			if _, err := s.Prune(); err != nil {
				s.logger.Error("snapshot prune failed", slog.Any("error", err))
			}
		}
	}
}

// IsValidFilename reports whether filename names a snapshot and cannot
// escape the snapshot directory.
func IsValidFilename(filename string) bool {
	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return false
	}
	return snapshotPattern.MatchString(filename)
}
