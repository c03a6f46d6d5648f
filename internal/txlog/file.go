package txlog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/kevink2022/Boomic-sub000/internal/filesystem"
	"github.com/kevink2022/Boomic-sub000/internal/transaction"
)

// FileStore keeps each namespace in <dir>/<namespace>.log, one record per
// line as "<crc32 hex> <json>". Appends are synced before returning.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	closed bool
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file log: empty directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(namespace string) string {
	return filepath.Join(s.dir, namespace+".log")
}

func (s *FileStore) Append(ctx context.Context, namespace string, r transaction.Record) error {
	if err := s.check(ctx, namespace); err != nil {
		return err
	}
	line, err := encodeLine(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(namespace), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) //nolint:gosec // G304: path built from a validated namespace
	if err != nil {
		return fmt.Errorf("opening log %s: %w", namespace, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("appending to log %s: %w", namespace, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("syncing log %s: %w", namespace, err)
	}
	return f.Close()
}

func (s *FileStore) ReadAll(ctx context.Context, namespace string) ([]transaction.Record, error) {
	if err := s.check(ctx, namespace); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines(namespace)
	if err != nil {
		return nil, err
	}
	records := make([]transaction.Record, 0, len(lines))
	for i, line := range lines {
		r, err := decodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("log %s line %d: %w", namespace, i+1, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *FileStore) Truncate(ctx context.Context, namespace string, keep int) error {
	if err := s.check(ctx, namespace); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines(namespace)
	if err != nil {
		return err
	}
	if keep < 0 || keep >= len(lines) {
		return nil
	}

	var buf bytes.Buffer
	for _, line := range lines[:keep] {
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := filesystem.WriteFileAtomic(s.path(namespace), buf.Bytes(), 0o640); err != nil {
		return fmt.Errorf("truncating log %s: %w", namespace, err)
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) check(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return checkNamespace(namespace)
}

// readLines returns the raw record lines of a namespace. A missing file
// is an empty log.
func (s *FileStore) readLines(namespace string) ([][]byte, error) {
	f, err := os.Open(s.path(namespace)) //nolint:gosec // G304: path built from a validated namespace
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening log %s: %w", namespace, err)
	}
	defer f.Close() //nolint:errcheck

	var lines [][]byte
	rd := bufio.NewReader(f)
	for {
		line, err := rd.ReadBytes('\n')
		if len(line) > 0 {
			if line[len(line)-1] != '\n' {
				return nil, fmt.Errorf("%w: log %s ends in a partial record", ErrCorrupt, namespace)
			}
			lines = append(lines, line[:len(line)-1])
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading log %s: %w", namespace, err)
		}
	}
}

func encodeLine(r transaction.Record) ([]byte, error) {
	payload, sum, err := Encode(r)
	if err != nil {
		return nil, err
	}
	line := make([]byte, 0, len(payload)+10)
	line = fmt.Appendf(line, "%08x ", sum)
	line = append(line, payload...)
	return append(line, '\n'), nil
}

func decodeLine(line []byte) (transaction.Record, error) {
	sumHex, payload, ok := bytes.Cut(line, []byte{' '})
	if !ok || len(sumHex) != 8 {
		return transaction.Record{}, fmt.Errorf("%w: malformed record line", ErrCorrupt)
	}
	sum, err := strconv.ParseUint(string(sumHex), 16, 32)
	if err != nil {
		return transaction.Record{}, fmt.Errorf("%w: bad checksum field: %w", ErrCorrupt, err)
	}
	return Decode(payload, uint32(sum))
}
