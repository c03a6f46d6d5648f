// Package txlog persists committed transactions as an ordered,
// append-only log per namespace.
//
// Each record is stored as its JSON encoding together with a CRC-32
// checksum of that encoding. Reading a record whose checksum or contents
// do not verify fails with ErrCorrupt; stores never skip or repair
// damaged records.
package txlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"regexp"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/transaction"
)

var (
	// ErrCorrupt is returned when a stored record fails verification.
	ErrCorrupt = errors.New("transaction log corrupted")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("transaction log closed")

	// ErrNamespace is returned for namespaces that are empty or contain
	// characters other than letters, digits, '.', '_' and '-'.
	ErrNamespace = errors.New("invalid log namespace")
)

// Store is an append-only transaction log partitioned by namespace.
type Store interface {
	// Append durably adds r to the end of the namespace's log.
	Append(ctx context.Context, namespace string, r transaction.Record) error
	// ReadAll returns every record of the namespace in append order.
	ReadAll(ctx context.Context, namespace string) ([]transaction.Record, error)
	// Truncate keeps the first keep records of the namespace and drops
	// the rest.
	Truncate(ctx context.Context, namespace string, keep int) error
	Close() error
}

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func checkNamespace(ns string) error {
	if !namespacePattern.MatchString(ns) || ns == "." || ns == ".." {
		return fmt.Errorf("%w: %q", ErrNamespace, ns)
	}
	return nil
}

// Encode returns the stored form of r and its checksum.
func Encode(r transaction.Record) ([]byte, uint32, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding record %s: %w", r.ID, err)
	}
	return payload, crc32.ChecksumIEEE(payload), nil
}

// Decode verifies payload against sum and decodes it.
func Decode(payload []byte, sum uint32) (transaction.Record, error) {
	if got := crc32.ChecksumIEEE(payload); got != sum {
		return transaction.Record{}, fmt.Errorf("%w: stored=%08x computed=%08x", ErrCorrupt, sum, got)
	}
	var r transaction.Record
	if err := json.Unmarshal(payload, &r); err != nil {
		return transaction.Record{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if r.ID == uuid.Nil {
		return transaction.Record{}, fmt.Errorf("%w: record without id", ErrCorrupt)
	}
	if !r.Transaction.Significance.Valid() {
		return transaction.Record{}, fmt.Errorf("%w: record %s has significance %q", ErrCorrupt, r.ID, r.Transaction.Significance)
	}
	return r, nil
}

// Backends accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Open returns the store for backend. path is the database file for
// sqlite and the log directory for file; memory ignores it.
func Open(ctx context.Context, backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(ctx, path)
	case BackendFile:
		return NewFileStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}
