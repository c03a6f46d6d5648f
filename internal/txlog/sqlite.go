package txlog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/kevink2022/Boomic-sub000/internal/database"
	"github.com/kevink2022/Boomic-sub000/internal/transaction"
)

// SQLiteStore keeps the log in the transactions table. Append order is
// the table's autoincrement sequence.
type SQLiteStore struct {
	db    *sql.DB
	owned bool

	mu     sync.Mutex
	closed bool
}

// OpenSQLite opens (and migrates) the database at path and returns a
// store that closes it on Close.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, owned: true}, nil
}

// NewSQLiteStore wraps an already migrated database. Closing the store
// leaves db open.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// DB returns the underlying database for snapshots and maintenance.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Append(ctx context.Context, namespace string, r transaction.Record) error {
	if err := s.check(namespace); err != nil {
		return err
	}
	payload, sum, err := Encode(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (namespace, id, created_at, label, significance, payload, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		namespace, r.ID.String(), r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.Transaction.Label, string(r.Transaction.Significance), payload, int64(sum),
	)
	if err != nil {
		return fmt.Errorf("appending to log %s: %w", namespace, err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context, namespace string) ([]transaction.Record, error) {
	if err := s.check(namespace); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, payload, checksum FROM transactions
		WHERE namespace = ? ORDER BY seq`, namespace)
	if err != nil {
		return nil, fmt.Errorf("reading log %s: %w", namespace, err)
	}
	defer rows.Close() //nolint:errcheck

	var records []transaction.Record
	for rows.Next() {
		var (
			seq     int64
			id      string
			payload []byte
			sum     int64
		)
		if err := rows.Scan(&seq, &id, &payload, &sum); err != nil {
			return nil, fmt.Errorf("scanning log %s: %w", namespace, err)
		}
		r, err := Decode(payload, uint32(sum)) //nolint:gosec // G115: stored from a uint32
		if err != nil {
			return nil, fmt.Errorf("log %s seq %d: %w", namespace, seq, err)
		}
		if r.ID.String() != id {
			return nil, fmt.Errorf("%w: log %s seq %d: row id %s, record id %s", ErrCorrupt, namespace, seq, id, r.ID)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating log %s: %w", namespace, err)
	}
	return records, nil
}

func (s *SQLiteStore) Truncate(ctx context.Context, namespace string, keep int) error {
	if err := s.check(namespace); err != nil {
		return err
	}
	if keep < 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM transactions
		WHERE namespace = ? AND seq NOT IN (
			SELECT seq FROM transactions WHERE namespace = ? ORDER BY seq LIMIT ?
		)`, namespace, namespace, keep)
	if err != nil {
		return fmt.Errorf("truncating log %s: %w", namespace, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) check(namespace string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return checkNamespace(namespace)
}
