// Package messaging provides Redis Stream adapters for the async analysis
// pipeline.
package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"assistant_server/core/port/out"

	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	StreamEmailReceived     = "email:received"
	StreamPatternObserve    = "pattern:observe"
	StreamAnalysisCompleted = "analysis:completed"
)

// RedisProducer implements out.MessageProducer using Redis Streams.
type RedisProducer struct {
	client *redis.Client
}

// NewRedisProducer creates a new RedisProducer.
func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client}
}

// PublishEmailReceived enqueues an incoming email for analysis.
func (p *RedisProducer) PublishEmailReceived(ctx context.Context, job *out.EmailReceivedJob) error {
	return p.publish(ctx, StreamEmailReceived, job)
}

// PublishObservation enqueues a pattern observation for folding.
func (p *RedisProducer) PublishObservation(ctx context.Context, job *out.ObservationJob) error {
	return p.publish(ctx, StreamPatternObserve, job)
}

// PublishAnalysisCompleted announces a finished analysis to downstream
// consumers.
func (p *RedisProducer) PublishAnalysisCompleted(ctx context.Context, event *out.AnalysisCompletedEvent) error {
	return p.publish(ctx, StreamAnalysisCompleted, event)
}

// publish serializes the job and appends it to a stream.
func (p *RedisProducer) publish(ctx context.Context, stream string, job interface{}) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}

	return nil
}

// Ensure RedisProducer implements out.MessageProducer
var _ out.MessageProducer = (*RedisProducer)(nil)
