package bootstrap

import (
	"context"
	"os"
	"sync"
	"time"

	"assistant_server/adapter/in/worker"
	"assistant_server/adapter/out/messaging"
	"assistant_server/config"
	"assistant_server/pkg/logger"

	"github.com/rs/zerolog"
)

type Worker struct {
	pool     *worker.Pool
	consumer *messaging.Consumer
	deps     *Dependencies
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	zlog     zerolog.Logger
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	handler := worker.NewHandler(
		deps.AnalysisService,
		deps.Learner,
		deps.MessageProducer,
		logger.Default(),
	)

	defaultConfig := worker.DefaultPoolConfig()
	poolConfig := &worker.PoolConfig{
		MaxWorkers:     cfg.WorkerMax,
		QueueSize:      cfg.WorkerQueueSize,
		BatchSize:      defaultConfig.BatchSize,
		WorkerChanSize: defaultConfig.WorkerChanSize,
		JobTimeout:     cfg.JobTimeout,
		MaxRetries:     defaultConfig.MaxRetries,
		RatePerSecond:  cfg.WorkerRateLimit,
	}
	if poolConfig.MaxWorkers == 0 {
		poolConfig.MaxWorkers = defaultConfig.MaxWorkers
	}
	if poolConfig.QueueSize == 0 {
		poolConfig.QueueSize = defaultConfig.QueueSize
	}
	if poolConfig.JobTimeout == 0 {
		poolConfig.JobTimeout = defaultConfig.JobTimeout
	}

	pool := worker.NewPool(handler, poolConfig, zlog)

	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		pool:   pool,
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		zlog:   zlog,
	}

	if deps.Redis != nil {
		streams := []string{
			messaging.StreamEmailReceived,
			messaging.StreamPatternObserve,
		}

		w.consumer = messaging.NewConsumer(deps.Redis, &messaging.ConsumerConfig{
			Group:                "assistant-workers",
			Consumer:             cfg.WorkerID,
			Streams:              streams,
			Handler:              worker.NewStreamHandler(pool),
			Logger:               zlog,
			PendingCheckInterval: time.Duration(cfg.ConsumerPendingCheckSec) * time.Second,
			MaxRetries:           cfg.ConsumerMaxRetries,
		})
		logger.Info("Redis Stream Consumer configured for %d streams", len(streams))
	} else {
		logger.Warn("Redis not available, worker will only process direct submissions")
	}

	return w, cleanup, nil
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pool.Start()
	}()

	if w.consumer != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.zlog.Info().Msg("Starting Redis Stream Consumer...")
			if err := w.consumer.Run(w.ctx); err != nil && err != context.Canceled {
				w.zlog.Error().Err(err).Msg("Redis Stream Consumer error")
			}
		}()
	}

	<-w.ctx.Done()
}

func (w *Worker) Stop() {
	w.cancel()
	w.pool.Stop()
	w.wg.Wait()
}

func (w *Worker) Submit(msg *worker.Message) bool {
	return w.pool.Submit(msg)
}

func (w *Worker) Dependencies() *Dependencies {
	return w.deps
}
