package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrJobCanceled is returned by RunBulk when the job's cancellation
// token fired before the remaining records were processed.
var ErrJobCanceled = errors.New("integration: bulk job canceled")

// BulkEventType classifies events emitted by a bulk run.
type BulkEventType string

const (
	// BulkEventProgress is emitted at a bounded cadence while records flow.
	BulkEventProgress BulkEventType = "progress"
	// BulkEventDone is the terminal event of a completed run.
	BulkEventDone BulkEventType = "done"
	// BulkEventCanceled is the terminal event of a canceled run,
	// distinct from an error.
	BulkEventCanceled BulkEventType = "canceled"
	// BulkEventError is the terminal event of a failed run.
	BulkEventError BulkEventType = "error"
)

// BulkStats accumulates per-record outcomes across a bulk run.
type BulkStats struct {
	Processed int `json:"processed"`
	Synced    int `json:"synced"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// BulkEvent is one line-delimited event on a streaming bulk response.
type BulkEvent struct {
	Type    BulkEventType `json:"type"`
	JobID   string        `json:"job_id"`
	Stats   BulkStats     `json:"stats"`
	Message string        `json:"message,omitempty"`
}

// BulkItemStatus is the outcome of one single-record sync.
type BulkItemStatus string

const (
	BulkItemSynced  BulkItemStatus = "synced"
	BulkItemSkipped BulkItemStatus = "skipped"
)

// PageFunc fetches one page of candidate records. An empty next cursor
// ends the iteration.
type PageFunc[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

// SyncFunc runs the single-record sync for one candidate.
type SyncFunc[T any] func(ctx context.Context, item T) (BulkItemStatus, error)

// EmitFunc receives events as the run progresses.
type EmitFunc func(event BulkEvent)

// BulkRunner is the batch wrapper shared by the contact, product and
// order bulk endpoints: paged iteration, a bounded worker pool, counter
// accumulation, bounded-cadence progress events and cooperative
// cancellation through the job registry.
type BulkRunner struct {
	registry *JobRegistry
	// workers bounds cross-record parallelism.
	workers int
	// progressEvery is the record cadence of progress events; progress
	// is never emitted per record to avoid flooding the stream.
	progressEvery int
	logger        *zap.Logger
}

// NewBulkRunner creates a new BulkRunner
func NewBulkRunner(registry *JobRegistry, workers, progressEvery int, logger *zap.Logger) *BulkRunner {
	if workers <= 0 {
		workers = 4
	}
	if progressEvery <= 0 {
		progressEvery = 25
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkRunner{
		registry:      registry,
		workers:       workers,
		progressEvery: progressEvery,
		logger:        logger,
	}
}

// RunBulk iterates candidate records and applies the single-record sync
// with the runner's worker pool. A cancellation check runs before each
// unit of work; on cancellation the distinguished canceled terminal
// event is emitted and ErrJobCanceled is returned with the stats
// accumulated so far.
func RunBulk[T any](ctx context.Context, r *BulkRunner, jobID string, page PageFunc[T], syncOne SyncFunc[T], emit EmitFunc) (BulkStats, error) {
	jobCtx, err := r.registry.Register(ctx, jobID)
	if err != nil {
		return BulkStats{}, fmt.Errorf("register bulk job %q: %w", jobID, err)
	}
	defer r.registry.Finish(jobID)

	var (
		mu    sync.Mutex
		stats BulkStats
	)
	record := func(status BulkItemStatus, err error) {
		mu.Lock()
		defer mu.Unlock()
		stats.Processed++
		switch {
		case err != nil:
			stats.Failed++
		case status == BulkItemSynced:
			stats.Synced++
		default:
			stats.Skipped++
		}
		if stats.Processed%r.progressEvery == 0 {
			emit(BulkEvent{Type: BulkEventProgress, JobID: jobID, Stats: stats})
		}
	}
	snapshot := func() BulkStats {
		mu.Lock()
		defer mu.Unlock()
		return stats
	}

	items := make(chan T)
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				if jobCtx.Err() != nil {
					return
				}
				status, err := syncOne(jobCtx, item)
				if err != nil {
					r.logger.Warn("bulk record sync failed", zap.String("job_id", jobID), zap.Error(err))
				}
				record(status, err)
			}
		}()
	}

	var pageErr error
	cursor := ""
feed:
	for {
		var batch []T
		var next string
		batch, next, pageErr = page(jobCtx, cursor)
		if pageErr != nil {
			break
		}
		for _, item := range batch {
			select {
			case items <- item:
			case <-jobCtx.Done():
				break feed
			}
		}
		if next == "" {
			break
		}
		cursor = next
	}
	close(items)
	wg.Wait()

	final := snapshot()
	switch {
	case jobCtx.Err() != nil:
		emit(BulkEvent{Type: BulkEventCanceled, JobID: jobID, Stats: final})
		return final, ErrJobCanceled
	case pageErr != nil:
		emit(BulkEvent{Type: BulkEventError, JobID: jobID, Stats: final, Message: pageErr.Error()})
		return final, pageErr
	default:
		emit(BulkEvent{Type: BulkEventDone, JobID: jobID, Stats: final})
		return final, nil
	}
}
