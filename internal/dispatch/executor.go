// Package dispatch runs jobs on sharded workers keyed by principal. Jobs for
// the same key run one at a time in submission order; different keys may run
// in parallel on different shards.
//
// Callers must not Submit concurrently for the same key. FIFO order relies on
// that external serialisation (a single update poller satisfies it).
package dispatch

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config tunes an Executor. Zero values take defaults.
type Config struct {
	Shards         int
	QueueSize      int
	EnqueueTimeout time.Duration
	// ErrorHandler is called synchronously on the worker after a job returns
	// a non-nil error or panics.
	ErrorHandler func(key string, err error)
	Logger       zerolog.Logger
}

type queuedJob struct {
	ctx context.Context
	key string
	job Job
}

// Executor is a sharded FIFO-per-key work queue. Jobs are never retried.
type Executor struct {
	cfg    Config
	log    zerolog.Logger
	queues []chan queuedJob

	// mu orders enqueues against Stop: Submit holds it shared across the
	// closed check and the send, Stop holds it exclusively to close.
	mu     sync.RWMutex
	done   chan struct{}
	closed bool

	wg sync.WaitGroup
}

// NewExecutor starts one worker per shard.
func NewExecutor(cfg Config) *Executor {
	if cfg.Shards <= 0 {
		cfg.Shards = 8
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 2 * time.Second
	}

	e := &Executor{
		cfg:    cfg,
		log:    cfg.Logger.With().Str("component", "dispatch").Logger(),
		queues: make([]chan queuedJob, cfg.Shards),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		e.queues[i] = ch
		e.wg.Add(1)
		go e.runWorker(i, ch)
	}
	return e
}

// Submit enqueues job on the shard derived from key.
//
//   - Returns ErrExecutorClosed once Stop has been called.
//   - Returns a *QueueFullError if the shard stays full for EnqueueTimeout.
//   - Returns ctx.Err() if ctx ends first.
//
// ctx is also the context the job runs with.
func (e *Executor) Submit(ctx context.Context, key string, job Job) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrExecutorClosed
	}

	shard := e.shardFor(key)
	ch := e.queues[shard]

	timer := time.NewTimer(e.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- queuedJob{ctx: ctx, key: key, job: job}:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{Shard: shard, Length: len(ch), Capacity: cap(ch)}
	}
}

// Barrier waits until every job submitted for key before the call has run.
func (e *Executor) Barrier(ctx context.Context, key string) error {
	done := make(chan struct{})
	if err := e.Submit(ctx, key, JobFunc(func(context.Context) error {
		close(done)
		return nil
	})); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Stop rejects new work, lets every worker drain its queue, and waits for
// them to exit. Every job accepted by Submit runs before Stop returns. It is
// idempotent.
func (e *Executor) Stop() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.done)
	e.mu.Unlock()

	e.log.Info().Int("shards", e.cfg.Shards).Msg("stopping executor, draining shards")
	e.wg.Wait()
	e.log.Info().Msg("executor stopped")
}

// Close lets Executor satisfy io.Closer.
func (e *Executor) Close() error {
	e.Stop()
	return nil
}

func (e *Executor) runWorker(idx int, ch <-chan queuedJob) {
	defer e.wg.Done()
	label := labelFor(idx)

	for {
		select {
		case qj := <-ch:
			e.run(label, qj)
			queueDepth.WithLabelValues(label).Set(float64(len(ch)))

		case <-e.done:
			drained := 0
			for {
				select {
				case qj := <-ch:
					e.run(label, qj)
					drained++
				default:
					if drained > 0 {
						e.log.Info().Int("shard", idx).Int("drained", drained).Msg("shard drained")
					}
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// run executes one job. A cancelled job is reported, not run.
func (e *Executor) run(label string, qj queuedJob) {
	if qj.job == nil {
		return
	}
	if err := qj.ctx.Err(); err != nil {
		e.handleError(qj.key, err)
		return
	}

	start := time.Now()
	err := e.safeRun(qj)
	runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		e.handleError(qj.key, err)
	}
}

func (e *Executor) safeRun(qj queuedJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("key", qj.key).Interface("panic", r).Msg("job panicked")
			err = &PanicError{Key: qj.key, Value: r}
		}
	}()
	return qj.job.Run(qj.ctx)
}

func (e *Executor) handleError(key string, err error) {
	if err == nil || e.cfg.ErrorHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("error handler panicked")
		}
	}()
	e.cfg.ErrorHandler(key, err)
}

func (e *Executor) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(e.cfg.Shards))
}
