// Package transactor owns the transaction log and the current Basis.
//
// All mutations pass through one ordered queue served by a single
// goroutine, so commits apply in submission order and published snapshots
// only ever move forward. Within a commit the log append and the resolve
// run concurrently; the new Basis is published only when both succeed.
package transactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kevink2022/Boomic-sub000/internal/basis"
	"github.com/kevink2022/Boomic-sub000/internal/event"
	"github.com/kevink2022/Boomic-sub000/internal/resolver"
	"github.com/kevink2022/Boomic-sub000/internal/transaction"
	"github.com/kevink2022/Boomic-sub000/internal/txlog"
)

var (
	// ErrStopped is returned for requests made after Stop.
	ErrStopped = errors.New("transactor stopped")

	// ErrUnknownTransaction is returned when a rollback names a transaction
	// that is not in the log.
	ErrUnknownTransaction = errors.New("unknown transaction")
)

// Request builds a transaction from the Basis it will be applied to.
type Request func(b *basis.Basis) transaction.Transaction

// Result describes the outcome of a queued request.
type Result struct {
	// Record is the committed record; zero when nothing was committed.
	Record transaction.Record
	// Committed is false when the request produced an empty transaction.
	Committed bool
	// Basis is the current snapshot once the request completed.
	Basis *basis.Basis
}

// Option configures a Transactor.
type Option func(*Transactor)

// WithBus publishes commit and rollback events to bus.
func WithBus(bus *event.Bus) Option {
	return func(t *Transactor) { t.bus = bus }
}

// WithQueueSize sets how many requests may wait in the queue.
func WithQueueSize(n int) Option {
	return func(t *Transactor) {
		if n > 0 {
			t.queueSize = n
		}
	}
}

type job struct {
	ctx      context.Context
	req      Request
	rollback *rollback
	done     chan outcome
}

type rollback struct {
	id    uuid.UUID
	after bool
}

type outcome struct {
	res Result
	err error
}

// Transactor serializes commits to a log store and folds them into the
// current Basis.
type Transactor struct {
	store     txlog.Store
	namespace string
	logger    *slog.Logger
	bus       *event.Bus
	queueSize int

	current atomic.Pointer[basis.Basis]

	mu      sync.RWMutex
	records []transaction.Record

	subMu   sync.Mutex
	subs    map[uint64]chan *basis.Basis
	nextSub uint64

	queue     chan job
	quit      chan struct{}
	finished  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New returns a Transactor over the namespace's log in store. Call Boot,
// then Start, before submitting requests.
func New(store txlog.Store, namespace string, logger *slog.Logger, opts ...Option) *Transactor {
	t := &Transactor{
		store:     store,
		namespace: namespace,
		logger:    logger.With(slog.String("component", "transactor"), slog.String("namespace", namespace)),
		queueSize: 64,
		subs:      make(map[uint64]chan *basis.Basis),
		quit:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.queue = make(chan job, t.queueSize)
	t.current.Store(basis.Empty())
	return t
}

// Boot replays the whole log from an empty Basis and publishes the result.
// A corrupted log is a fatal load error.
func (t *Transactor) Boot(ctx context.Context) error {
	start := time.Now()
	b, records, err := t.replay(ctx)
	if err != nil {
		return err
	}
	t.install(b, records)

	c := b.Counts()
	t.logger.Info("log replayed",
		"transactions", len(records),
		"tracks", c.Tracks,
		"albums", c.Albums,
		"artists", c.Artists,
		"taglists", c.Taglists,
		"duration", time.Since(start).String(),
	)
	return nil
}

func (t *Transactor) replay(ctx context.Context) (*basis.Basis, []transaction.Record, error) {
	records, err := t.store.ReadAll(ctx, t.namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("reading log %s: %w", t.namespace, err)
	}
	b := basis.Empty()
	for _, r := range records {
		b = resolver.Apply(r.Transaction.Assertions, b)
	}
	return b, records, nil
}

func (t *Transactor) install(b *basis.Basis, records []transaction.Record) {
	t.mu.Lock()
	t.records = records
	t.mu.Unlock()
	t.current.Store(b)
	t.broadcast(b)
}

// Start launches the queue consumer. It runs until Stop is called.
func (t *Transactor) Start() {
	t.startOnce.Do(func() { go t.run() })
}

// Stop finishes the request in flight, rejects queued ones with
// ErrStopped, and waits for the consumer to exit. Stop must only be
// called after Start.
func (t *Transactor) Stop() {
	t.stopOnce.Do(func() { close(t.quit) })
	<-t.finished
}

func (t *Transactor) run() {
	defer close(t.finished)
	for {
		select {
		case j := <-t.queue:
			j.done <- t.process(j)
		case <-t.quit:
			for {
				select {
				case j := <-t.queue:
					j.done <- outcome{err: ErrStopped}
				default:
					return
				}
			}
		}
	}
}

// Submit queues req and waits for it to be committed. A request that
// produces an empty transaction completes without touching the log.
// Cancelling ctx abandons the wait but not a request already queued.
func (t *Transactor) Submit(ctx context.Context, req Request) (Result, error) {
	return t.enqueue(ctx, job{req: req})
}

// Commit queues a prebuilt transaction.
func (t *Transactor) Commit(ctx context.Context, tx transaction.Transaction) (Result, error) {
	return t.Submit(ctx, func(*basis.Basis) transaction.Transaction { return tx })
}

// RollbackTo truncates the log just before the transaction id, or just
// after it when after is set, and replays what remains. It is queued like
// any commit.
func (t *Transactor) RollbackTo(ctx context.Context, id uuid.UUID, after bool) (Result, error) {
	return t.enqueue(ctx, job{rollback: &rollback{id: id, after: after}})
}

func (t *Transactor) enqueue(ctx context.Context, j job) (Result, error) {
	j.ctx = context.WithoutCancel(ctx)
	j.done = make(chan outcome, 1)

	select {
	case <-t.quit:
		return Result{}, ErrStopped
	default:
	}
	select {
	case t.queue <- j:
	case <-t.quit:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case o := <-j.done:
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-t.finished:
		select {
		case o := <-j.done:
			return o.res, o.err
		default:
			return Result{}, ErrStopped
		}
	}
}

func (t *Transactor) process(j job) outcome {
	if j.rollback != nil {
		return t.rollback(j.ctx, *j.rollback)
	}
	return t.commit(j.ctx, j.req)
}

func (t *Transactor) commit(ctx context.Context, req Request) outcome {
	cur := t.current.Load()
	tx := req(cur)
	if tx.IsEmpty() {
		t.logger.Debug("dropping empty transaction", "label", tx.Label)
		return outcome{res: Result{Basis: cur}}
	}
	if !tx.Significance.Valid() {
		tx.Significance = transaction.Normal
	}
	rec := transaction.NewRecord(tx)

	var next *basis.Basis
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return t.store.Append(gctx, t.namespace, rec)
	})
	g.Go(func() error {
		next = resolver.Apply(tx.Assertions, cur)
		return nil
	})
	if err := g.Wait(); err != nil {
		t.logger.Error("persisting transaction failed", "id", rec.ID.String(), "label", tx.Label, "error", err)
		return outcome{err: fmt.Errorf("persisting transaction %q: %w", tx.Label, err)}
	}

	t.mu.Lock()
	t.records = append(t.records, rec)
	t.mu.Unlock()
	t.current.Store(next)
	t.broadcast(next)

	t.logger.Info("transaction committed",
		"id", rec.ID.String(),
		"label", tx.Label,
		"significance", string(tx.Significance),
		"assertions", tx.Assertions.Len(),
	)
	t.emit(event.LibraryCommitted, map[string]any{
		"id":           rec.ID.String(),
		"label":        tx.Label,
		"significance": string(tx.Significance),
		"assertions":   tx.Assertions.Len(),
	})
	return outcome{res: Result{Record: rec, Committed: true, Basis: next}}
}

func (t *Transactor) rollback(ctx context.Context, rb rollback) outcome {
	t.mu.RLock()
	idx := -1
	for i, r := range t.records {
		if r.ID == rb.id {
			idx = i
			break
		}
	}
	total := len(t.records)
	t.mu.RUnlock()
	if idx < 0 {
		return outcome{err: fmt.Errorf("rolling back to %s: %w", rb.id, ErrUnknownTransaction)}
	}

	keep := idx
	if rb.after {
		keep = idx + 1
	}
	if err := t.store.Truncate(ctx, t.namespace, keep); err != nil {
		t.logger.Error("truncating log failed", "target", rb.id.String(), "error", err)
		return outcome{err: fmt.Errorf("truncating log: %w", err)}
	}

	b, records, err := t.replay(ctx)
	if err != nil {
		t.logger.Error("replay after rollback failed", "target", rb.id.String(), "error", err)
		return outcome{err: err}
	}
	t.install(b, records)

	dropped := total - len(records)
	t.logger.Info("rolled back",
		"target", rb.id.String(),
		"after", rb.after,
		"dropped", dropped,
		"remaining", len(records),
	)
	t.emit(event.LibraryRolledBack, map[string]any{
		"target":  rb.id.String(),
		"after":   rb.after,
		"dropped": dropped,
	})
	return outcome{res: Result{Basis: b}}
}

func (t *Transactor) emit(typ event.Type, data map[string]any) {
	if t.bus != nil {
		t.bus.Publish(event.Event{Type: typ, Data: data})
	}
}

// Current returns the latest published Basis.
func (t *Transactor) Current() *basis.Basis {
	return t.current.Load()
}

// ViewLast returns up to n of the most recent records, oldest first.
func (t *Transactor) ViewLast(n int) []transaction.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := max(len(t.records)-n, 0)
	return append([]transaction.Record(nil), t.records[start:]...)
}

// ViewSince returns the records stamped at or after since, oldest first.
func (t *Transactor) ViewSince(since time.Time) []transaction.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []transaction.Record
	for _, r := range t.records {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records in the log.
func (t *Transactor) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
