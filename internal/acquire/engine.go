// Package acquire downloads a batch of remote objects with a bounded
// worker pool, resuming past completed items and recovering from
// partial failures per item. Workers share nothing but the per-item
// outcome record.
package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"autorxte/internal/logging"
)

// State is an item's completion state. Transitions are monotonic
// (pending → in_progress → complete/failed) except failed → pending,
// which Retry performs to re-enter the batch.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Item is one remote object to acquire. The engine owns the item for
// the duration of a batch; State and Reason are the only mutable
// fields.
type Item struct {
	Key      string
	Dest     string
	Size     int64
	Checksum string // hex SHA-256 from the manifest; empty = size-only check

	State  State
	Reason string
}

// Fetcher streams one remote object. archive.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, key string, w io.Writer) (int64, error)
}

// BatchResult reports per-item outcomes for one acquisition batch.
type BatchResult struct {
	ID        string
	Completed []*Item
	Failed    []*Item
	Resumed   int // items found already complete before scheduling
	Bytes     int64
	Duration  time.Duration
}

// AllComplete reports whether nothing failed.
func (r *BatchResult) AllComplete() bool { return len(r.Failed) == 0 }

// Engine runs acquisition batches.
type Engine struct {
	Fetcher Fetcher
	// RecordPath, when set, persists completed keys so an interrupted
	// batch resumes without re-checking files item by item.
	RecordPath string

	mu        sync.Mutex
	completed map[string]bool
}

// AutoWorkers derives a worker count from the batch shape when the
// caller does not specify one: many small files tolerate more
// parallelism than few large ones.
func AutoWorkers(nItems int, avgKB float64) int {
	if nItems <= 0 {
		return 1
	}
	cpu := runtime.NumCPU()
	var w int
	if avgKB < 500 {
		w = min(nItems, min(max(8, cpu*10), 64))
	} else {
		w = min(nItems, min(max(4, cpu*5), 32))
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Run acquires the batch. Items whose destination already exists and
// passes the integrity check (or whose key is in the progress record)
// are marked complete and never scheduled; the rest are distributed
// across a pool of `workers` goroutines (≤0 = derived automatically).
// A per-item failure is recorded against that item and does not abort
// siblings. Cancelling ctx stops scheduling new items — not-yet-started
// items stay pending — and in-flight transfers abort and report failed.
func (e *Engine) Run(ctx context.Context, items []*Item, workers int) (*BatchResult, error) {
	logger := logging.New("acquire")
	start := time.Now()
	result := &BatchResult{ID: uuid.NewString()}

	if err := e.loadRecord(); err != nil {
		logger.Warn("progress record unreadable, starting fresh", "path", e.RecordPath, "error", err)
	}

	var todo []*Item
	var totalKB float64
	for _, it := range items {
		if it.State == StateComplete {
			result.Resumed++
			continue
		}
		if e.isRecorded(it.Key) || e.verifyExisting(it) {
			it.State = StateComplete
			result.Resumed++
			continue
		}
		it.State = StatePending
		it.Reason = ""
		todo = append(todo, it)
		totalKB += float64(it.Size) / 1024
	}

	if workers <= 0 {
		avgKB := 0.0
		if len(todo) > 0 {
			avgKB = totalKB / float64(len(todo))
		}
		workers = AutoWorkers(len(todo), avgKB)
	}
	logger.Info("acquisition batch", "batch", result.ID, "items", len(items),
		"resumed", result.Resumed, "scheduling", len(todo), "workers", workers)

	var bytes int64
	var bytesMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, it := range todo {
		g.Go(func() error {
			if gctx.Err() != nil {
				// Cancelled before starting: stays pending.
				return nil
			}
			it.State = StateInProgress
			n, err := e.fetchOne(gctx, it)
			if err != nil {
				it.State = StateFailed
				it.Reason = err.Error()
				logger.Error("item failed", "key", it.Key, "error", err)
				return nil
			}
			it.State = StateComplete
			e.record(it.Key)
			bytesMu.Lock()
			bytes += n
			bytesMu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // item errors are captured per item, never propagated

	for _, it := range items {
		switch it.State {
		case StateComplete:
			result.Completed = append(result.Completed, it)
		case StateFailed:
			result.Failed = append(result.Failed, it)
		}
	}
	result.Bytes = bytes
	result.Duration = time.Since(start)

	if err := e.saveRecord(); err != nil {
		logger.Warn("progress record not saved", "path", e.RecordPath, "error", err)
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("acquisition cancelled: %w", err)
	}
	logger.Info("batch finished", "batch", result.ID,
		"completed", len(result.Completed), "failed", len(result.Failed), "bytes", bytes)
	return result, nil
}

// Retry re-enters the batch for exactly the given failed items: each is
// reset to pending and run through the same resume-then-schedule path.
func (e *Engine) Retry(ctx context.Context, failed []*Item, workers int) (*BatchResult, error) {
	for _, it := range failed {
		if it.State == StateFailed {
			it.State = StatePending
			it.Reason = ""
		}
	}
	return e.Run(ctx, failed, workers)
}

// fetchOne downloads an item to a temp file, verifies it, and renames
// it into place so a reader never observes a partial destination.
func (e *Engine) fetchOne(ctx context.Context, it *Item) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(it.Dest), 0755); err != nil {
		return 0, fmt.Errorf("create dest dir: %w", err)
	}
	tmp := it.Dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}
	n, err := e.Fetcher.Fetch(ctx, it.Key, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := Verify(tmp, it.Size, it.Checksum); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, it.Dest); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	return n, nil
}

// verifyExisting reports whether the item's destination is already
// present and intact.
func (e *Engine) verifyExisting(it *Item) bool {
	if _, err := os.Stat(it.Dest); err != nil {
		return false
	}
	return Verify(it.Dest, it.Size, it.Checksum) == nil
}
