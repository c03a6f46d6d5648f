// Package maintenance keeps the SQLite transaction log compact: it reports
// file and page usage and runs PRAGMA optimize, WAL checkpoints and VACUUM.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Status describes the log database on disk.
type Status struct {
	DBFileSize     int64          `json:"db_file_size"`
	WALFileSize    int64          `json:"wal_file_size"`
	PageCount      int64          `json:"page_count"`
	PageSize       int64          `json:"page_size"`
	FreePages      int64          `json:"free_pages"`
	Transactions   map[string]int `json:"transactions"`
	LastOptimizeAt time.Time      `json:"last_optimize_at,omitzero"`
}

// Service runs maintenance against one database file.
type Service struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger

	mu           sync.Mutex
	lastOptimize time.Time
}

// NewService creates a maintenance service. dbPath locates the database
// and WAL files for size reporting.
func NewService(db *sql.DB, dbPath string, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		dbPath: dbPath,
		logger: logger.With(slog.String("component", "maintenance")),
	}
}

// Status reports file sizes, page usage and transaction counts per
// namespace.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{Transactions: make(map[string]int)}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}

	pragmas := []struct {
		name string
		dst  *int64
	}{
		{"page_count", &st.PageCount},
		{"page_size", &st.PageSize},
		{"freelist_count", &st.FreePages},
	}
	for _, p := range pragmas {
		if err := s.db.QueryRowContext(ctx, "PRAGMA "+p.name).Scan(p.dst); err != nil {
			s.logger.Warn("reading pragma", "pragma", p.name, "error", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT namespace, COUNT(*) FROM transactions GROUP BY namespace")
	if err != nil {
		return nil, fmt.Errorf("counting transactions: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var ns string
		var n int
		if err := rows.Scan(&ns, &n); err != nil {
			return nil, fmt.Errorf("scanning transaction count: %w", err)
		}
		st.Transactions[ns] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting transactions: %w", err)
	}

	s.mu.Lock()
	st.LastOptimizeAt = s.lastOptimize
	s.mu.Unlock()
	return st, nil
}

// Optimize runs PRAGMA optimize followed by a truncating WAL checkpoint.
func (s *Service) Optimize(ctx context.Context) error {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}

	s.mu.Lock()
	s.lastOptimize = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Info("optimize complete", slog.Duration("took", time.Since(start)))
	return nil
}

// Vacuum rebuilds the database file, returning free pages to the OS.
func (s *Service) Vacuum(ctx context.Context) error {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM: %w", err)
	}
	s.logger.Info("vacuum complete", slog.Duration("took", time.Since(start)))
	return nil
}

// StartScheduler runs Optimize on a fixed interval until ctx is canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("maintenance scheduler started",
		slog.String("interval", interval.String()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Optimize(ctx); err != nil {
				s.logger.Error("scheduled optimize failed", slog.Any("error", err))
			}
		}
	}
}
