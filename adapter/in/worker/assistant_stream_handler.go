package worker

import (
	"context"
	"fmt"

	"assistant_server/adapter/out/messaging"
)

// StreamHandler bridges the Redis Stream consumer and the worker pool. It
// implements messaging.JobHandler: each stream message becomes a pool job.
type StreamHandler struct {
	pool *Pool
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(pool *Pool) *StreamHandler {
	return &StreamHandler{pool: pool}
}

// Handle maps the stream to a job type and submits the payload to the pool.
// A full pool is an error so the stream entry stays pending and is retried.
func (h *StreamHandler) Handle(_ context.Context, stream string, data []byte) error {
	var msg *Message
	switch stream {
	case messaging.StreamEmailReceived:
		msg = NewMessage(JobEmailAnalyze, data)
	case messaging.StreamPatternObserve:
		msg = NewMessage(JobPatternObserve, data)
	default:
		return fmt.Errorf("no job mapping for stream %s", stream)
	}

	if !h.pool.Submit(msg) {
		return fmt.Errorf("worker pool rejected job from stream %s", stream)
	}
	return nil
}

var _ messaging.JobHandler = (*StreamHandler)(nil)
