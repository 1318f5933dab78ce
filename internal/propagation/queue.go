// Package propagation batches rate-limited inventory writes. Updates
// land on an in-process FIFO; a lazily started flush loop drains it on
// a fixed interval, grouping each batch by destination shop and
// writing one bulk mutation per shop.
package propagation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/stockbridge-backend/internal/ratelimit"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
	"github.com/angelmondragon/stockbridge-backend/pkg/metrics"
)

// PendingInventoryUpdate is one deferred downstream write. Quantity is
// absolute, so re-delivery after a requeue is harmless.
type PendingInventoryUpdate struct {
	DestinationShopID    string
	DestinationVariantID string
	Quantity             int
	Reason               enums.UpdateReason
	LocationID           string
	EnqueuedAt           time.Time
}

// Writer issues one bulk remote write covering a shop's sub-batch.
type Writer interface {
	SetInventoryQuantities(ctx context.Context, shopID string, updates []PendingInventoryUpdate) error
}

// Params collects the queue's dependencies.
type Params struct {
	Writer  Writer
	Limits  *ratelimit.Controller
	Log     *logger.Logger
	Metrics *metrics.SyncMetrics

	FlushInterval      time.Duration
	BatchSize          int
	DelayHighWaterMark time.Duration
}

// Queue is the batched propagation queue. Safe for concurrent enqueue;
// at most one flush loop runs at a time and it exits once the queue
// drains.
type Queue struct {
	writer  Writer
	limits  *ratelimit.Controller
	log     *logger.Logger
	metrics *metrics.SyncMetrics

	flushInterval time.Duration
	batchSize     int
	highWaterMark time.Duration

	mu      sync.Mutex
	pending []PendingInventoryUpdate
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	sleep func(ctx context.Context, d time.Duration) error
}

func NewQueue(params Params) (*Queue, error) {
	if params.Writer == nil {
		return nil, fmt.Errorf("propagation: writer is required")
	}
	if params.Limits == nil {
		return nil, fmt.Errorf("propagation: rate-limit controller is required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("propagation: logger is required")
	}
	if params.FlushInterval <= 0 {
		params.FlushInterval = 2 * time.Second
	}
	if params.BatchSize <= 0 {
		params.BatchSize = 50
	}
	if params.DelayHighWaterMark <= 0 {
		params.DelayHighWaterMark = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		writer:        params.Writer,
		limits:        params.Limits,
		log:           params.Log,
		metrics:       params.Metrics,
		flushInterval: params.FlushInterval,
		batchSize:     params.BatchSize,
		highWaterMark: params.DelayHighWaterMark,
		ctx:           ctx,
		cancel:        cancel,
		sleep:         sleepCtx,
	}, nil
}

// Enqueue appends an update and starts the flush loop if none is
// running.
func (q *Queue) Enqueue(update PendingInventoryUpdate) {
	if update.EnqueuedAt.IsZero() {
		update.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	q.pending = append(q.pending, update)
	depth := len(q.pending)
	start := !q.running && q.ctx.Err() == nil
	if start {
		q.running = true
		q.done = make(chan struct{})
	}
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	if start {
		go q.run()
	}
}

// DropShop discards every pending update destined for the given shop
// and reports how many were removed. Used when a shop uninstalls and
// its queued writes can never land.
func (q *Queue) DropShop(shopID string) int {
	q.mu.Lock()
	kept := q.pending[:0]
	for _, update := range q.pending {
		if update.DestinationShopID != shopID {
			kept = append(kept, update)
		}
	}
	dropped := len(q.pending) - len(kept)
	q.pending = kept
	depth := len(q.pending)
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	return dropped
}

// Depth reports the number of updates awaiting flush.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stop halts the flush loop and waits for it to exit. Pending updates
// stay queued; they are not flushed on shutdown.
func (q *Queue) Stop() {
	q.cancel()

	q.mu.Lock()
	done := q.done
	running := q.running
	q.mu.Unlock()

	if running && done != nil {
		<-done
	}
}

func (q *Queue) run() {
	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			q.finish()
			return
		case <-ticker.C:
			if err := q.flushOnce(q.ctx); err != nil {
				q.log.Warn(q.log.WithField(q.ctx, "error", err.Error()), "propagation flush incomplete")
			}

			q.mu.Lock()
			if len(q.pending) == 0 {
				q.running = false
				done := q.done
				q.mu.Unlock()
				close(done)
				return
			}
			q.mu.Unlock()
		}
	}
}

func (q *Queue) finish() {
	q.mu.Lock()
	q.running = false
	done := q.done
	q.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// flushOnce dequeues up to one batch, groups it by destination shop,
// and attempts one bulk write per shop. Throttled or failed sub-batches
// go back on the queue untouched.
func (q *Queue) flushOnce(ctx context.Context) error {
	started := time.Now()

	q.mu.Lock()
	n := len(q.pending)
	if n == 0 {
		q.mu.Unlock()
		return nil
	}
	if n > q.batchSize {
		n = q.batchSize
	}
	batch := make([]PendingInventoryUpdate, n)
	copy(batch, q.pending[:n])
	q.pending = q.pending[n:]
	q.mu.Unlock()

	groups := groupByShop(batch)

	var flushErr error
	for _, group := range groups {
		if err := q.flushShop(ctx, group.shopID, group.updates); err != nil {
			flushErr = multierr.Append(flushErr, err)
		}
	}

	result := "ok"
	if flushErr != nil {
		result = "partial"
	}
	q.metrics.ObserveFlush(result, time.Since(started))
	q.metrics.SetQueueDepth(q.Depth())
	return flushErr
}

func (q *Queue) flushShop(ctx context.Context, shopID string, updates []PendingInventoryUpdate) error {
	ctx = q.log.WithShopID(ctx, shopID)

	if q.limits.ShouldDeadLetter(shopID) {
		q.requeue(updates)
		q.metrics.IncDeadLetter(shopID)
		q.log.Warn(ctx, "shop dead-lettered, holding sub-batch")
		return q.limits.DeadLetterError(shopID)
	}

	delay, _ := q.limits.RequiredDelay(shopID)
	if q.limits.Status(shopID) == enums.RateLimitThrottled || delay > q.highWaterMark {
		q.requeue(updates)
		return nil
	}
	if delay > 0 {
		if err := q.sleep(ctx, delay); err != nil {
			q.requeue(updates)
			return nil
		}
	}

	if err := q.writer.SetInventoryQuantities(ctx, shopID, updates); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeRateLimit {
			q.limits.RecordThrottle(shopID)
		}
		q.metrics.IncOutcome(string(enums.OutcomeFailure))
		if pkgerrors.IsRetryable(err) {
			q.requeue(updates)
			q.log.Error(ctx, "bulk inventory write failed, sub-batch requeued", err)
		} else {
			// Requeueing a permanent failure would retry it every tick
			// forever; the writer has already dropped what it could not
			// translate.
			q.log.Error(ctx, "bulk inventory write failed permanently, sub-batch dropped", err)
		}
		return err
	}

	q.limits.RecordSuccess(shopID)
	q.metrics.IncOutcome(string(enums.OutcomeSuccess))
	return nil
}

func (q *Queue) requeue(updates []PendingInventoryUpdate) {
	q.mu.Lock()
	q.pending = append(q.pending, updates...)
	q.mu.Unlock()
}

type shopGroup struct {
	shopID  string
	updates []PendingInventoryUpdate
}

// groupByShop preserves enqueue order both across groups (by first
// appearance) and within each group.
func groupByShop(batch []PendingInventoryUpdate) []shopGroup {
	index := make(map[string]int, len(batch))
	groups := make([]shopGroup, 0, len(batch))
	for _, update := range batch {
		i, ok := index[update.DestinationShopID]
		if !ok {
			i = len(groups)
			index[update.DestinationShopID] = i
			groups = append(groups, shopGroup{shopID: update.DestinationShopID})
		}
		groups[i].updates = append(groups[i].updates, update)
	}
	return groups
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
