package worker

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"
)

// =============================================================================
// Worker Pool (go-pkgz/pool)
// =============================================================================

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	MaxWorkers     int
	QueueSize      int
	BatchSize      int
	WorkerChanSize int
	JobTimeout     time.Duration
	MaxRetries     int
	RatePerSecond  int
}

// DefaultPoolConfig returns default pool configuration. Analysis jobs are
// pure computation, so the default timeout is short.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxWorkers:     8,
		QueueSize:      1000,
		BatchSize:      10,
		WorkerChanSize: 100,
		JobTimeout:     30 * time.Second,
		MaxRetries:     3,
		RatePerSecond:  200,
	}
}

// PoolMetrics holds pool counters.
type PoolMetrics struct {
	JobsProcessed int64
	JobsFailed    int64
	JobsDropped   int64
	JobsRetried   int64
	QueueSize     int32
}

// Pool dispatches messages to the handler through a go-pkgz worker group,
// with retry, a dead-letter channel, and basic rate limiting.
type Pool struct {
	handler *Handler
	config  *PoolConfig

	group *pool.WorkerGroup[*Message]

	ctx    context.Context
	cancel context.CancelFunc

	metrics     *PoolMetrics
	log         zerolog.Logger
	rateLimiter *rateLimiter

	dlq   chan *Message
	dlqWg sync.WaitGroup

	started bool
	mu      sync.Mutex
}

// poolWorker implements pool.Worker.
type poolWorker struct {
	pool *Pool
}

func (w *poolWorker) Do(ctx context.Context, msg *Message) error {
	return w.pool.processJob(ctx, msg)
}

// NewPool creates a worker pool.
func NewPool(handler *Handler, config *PoolConfig, log zerolog.Logger) *Pool {
	if config == nil {
		config = DefaultPoolConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		handler:     handler,
		config:      config,
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &PoolMetrics{},
		log:         log.With().Str("component", "worker_pool").Logger(),
		rateLimiter: newRateLimiter(config.RatePerSecond, time.Second),
		dlq:         make(chan *Message, 100),
	}
}

// Start starts the worker pool.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.group = pool.New[*Message](p.config.MaxWorkers, &poolWorker{pool: p}).
		WithBatchSize(p.config.BatchSize).
		WithWorkerChanSize(p.config.WorkerChanSize).
		WithContinueOnError()

	if err := p.group.Go(p.ctx); err != nil {
		p.log.Error().Err(err).Msg("failed to start worker pool")
		return
	}

	p.started = true

	p.dlqWg.Add(1)
	go p.dlqProcessor()
	go p.metricsReporter()

	p.log.Info().
		Int("max_workers", p.config.MaxWorkers).
		Int("queue_size", p.config.QueueSize).
		Msg("worker pool started")
}

// Stop gracefully stops the worker pool.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer closeCancel()

	if p.group != nil {
		if err := p.group.Close(closeCtx); err != nil {
			p.log.Warn().Err(err).Msg("error closing worker pool")
		}
	}

	p.cancel()
	close(p.dlq)
	p.dlqWg.Wait()

	p.log.Info().
		Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
		Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
		Msg("worker pool stopped")
}

// Submit submits a job. Returns false when the pool is stopped or the rate
// limit is hit; callers leave the stream entry pending so it is retried.
func (p *Pool) Submit(msg *Message) bool {
	p.mu.Lock()
	if !p.started || p.group == nil {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	if !p.rateLimiter.Allow() {
		atomic.AddInt64(&p.metrics.JobsDropped, 1)
		p.log.Warn().
			Str("job_id", msg.ID).
			Str("job_type", msg.Type).
			Msg("job rejected by rate limiter")
		return false
	}

	p.group.Submit(msg)
	atomic.AddInt32(&p.metrics.QueueSize, 1)
	return true
}

// processJob runs one job with timeout, retry with backoff, and DLQ on
// exhaustion.
func (p *Pool) processJob(ctx context.Context, msg *Message) error {
	defer atomic.AddInt32(&p.metrics.QueueSize, -1)

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	err := p.handler.Process(jobCtx, msg)
	if err == nil {
		atomic.AddInt64(&p.metrics.JobsProcessed, 1)
		return nil
	}

	p.log.Error().
		Err(err).
		Str("job_id", msg.ID).
		Str("job_type", msg.Type).
		Int("retries", msg.Retries).
		Msg("job processing failed")

	if msg.Retries < p.config.MaxRetries {
		msg.Retries++
		atomic.AddInt64(&p.metrics.JobsRetried, 1)

		// Exponential backoff with jitter.
		backoff := time.Duration(1<<msg.Retries)*time.Second +
			time.Duration(rand.Intn(500))*time.Millisecond
		time.AfterFunc(backoff, func() {
			p.Submit(msg)
		})
		return err
	}

	atomic.AddInt64(&p.metrics.JobsFailed, 1)
	select {
	case p.dlq <- msg:
		p.log.Warn().
			Str("job_id", msg.ID).
			Str("job_type", msg.Type).
			Msg("job moved to DLQ after max retries")
	default:
		p.log.Error().Str("job_id", msg.ID).Msg("DLQ full, job lost")
	}
	return err
}

func (p *Pool) dlqProcessor() {
	defer p.dlqWg.Done()

	for msg := range p.dlq {
		p.log.Error().
			Str("job_id", msg.ID).
			Str("job_type", msg.Type).
			Int("retries", msg.Retries).
			Msg("DLQ: job permanently failed")
	}
}

func (p *Pool) metricsReporter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.log.Info().
				Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
				Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
				Int64("dropped", atomic.LoadInt64(&p.metrics.JobsDropped)).
				Int64("retried", atomic.LoadInt64(&p.metrics.JobsRetried)).
				Int32("queue_size", atomic.LoadInt32(&p.metrics.QueueSize)).
				Msg("worker pool metrics")
		}
	}
}

// =============================================================================
// Rate Limiter
// =============================================================================

// rateLimiter is a simple windowed counter.
type rateLimiter struct {
	mu       sync.Mutex
	limit    int
	interval time.Duration
	count    int
	windowAt time.Time
}

func newRateLimiter(limit int, interval time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:    limit,
		interval: interval,
		windowAt: time.Now(),
	}
}

// Allow reports whether another job fits in the current window.
func (r *rateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.windowAt) >= r.interval {
		r.windowAt = now
		r.count = 0
	}
	if r.count >= r.limit {
		return false
	}
	r.count++
	return true
}
