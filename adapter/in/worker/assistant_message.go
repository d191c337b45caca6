// Package worker runs the async analysis pipeline: jobs read from Redis
// Streams are dispatched through a bounded worker pool.
package worker

import (
	"time"

	"github.com/google/uuid"
)

// Priority levels for job scheduling.
type Priority int

const (
	PriorityLow      Priority = 0
	PriorityNormal   Priority = 1
	PriorityHigh     Priority = 2
	PriorityCritical Priority = 3
)

// JobType represents the type of a job.
type JobType = string

// Job types
const (
	JobEmailAnalyze   JobType = "email.analyze"
	JobPatternObserve JobType = "pattern.observe"
)

// Message is one unit of work flowing through the pool.
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   []byte    `json:"payload"`
	Priority  Priority  `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	Retries   int       `json:"retries"`
}

// NewMessage creates a message with normal priority.
func NewMessage(jobType string, payload []byte) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		Priority:  PriorityNormal,
		CreatedAt: time.Now(),
	}
}

// NewPriorityMessage creates a message with a specific priority.
func NewPriorityMessage(jobType string, payload []byte, priority Priority) *Message {
	m := NewMessage(jobType, payload)
	m.Priority = priority
	return m
}
