package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assistant_server/core/domain"
	"assistant_server/pkg/cache"
	"assistant_server/pkg/logger"
)

// =============================================================================
// Pattern Learner
// =============================================================================

// Confidence steps per observation quality.
const (
	confidenceStepObserved = 0.1
	confidenceStepPositive = 0.2
	confidenceStepNegative = -0.15
)

// casRetries bounds the optimistic-concurrency retry loop.
const casRetries = 3

// Learner folds observations into stored patterns. Updates to the same key
// are serialized through a per-key mutex AND guarded by an occurrence
// check-and-set in the store, so two racing observations can never silently
// drop one contribution.
type Learner struct {
	repo  domain.PatternRepository
	cache *cache.RedisCache
	log   *logger.Logger
	keys  *keyedMutex
	now   func() time.Time
}

// NewLearner creates a pattern learner. cache may be nil; when present the
// user's adaptation cache entry is invalidated on every folded observation.
func NewLearner(repo domain.PatternRepository, c *cache.RedisCache, log *logger.Logger) *Learner {
	if log == nil {
		log = logger.Default()
	}
	return &Learner{
		repo:  repo,
		cache: c,
		log:   log,
		keys:  newKeyedMutex(),
		now:   time.Now,
	}
}

// WithClock fixes the learner clock for tests.
func (l *Learner) WithClock(now func() time.Time) *Learner {
	l.now = now
	return l
}

// Observe merges one observation into the pattern addressed by obs.Key.
// Missing patterns are created with a kind-specific confidence seed. On a
// stale write the read-fold-write cycle is retried. The folded in-memory
// pattern is returned even when the write ultimately fails; the failure is
// logged and durability is the caller's concern.
func (l *Learner) Observe(ctx context.Context, userID uuid.UUID, obs domain.Observation) (*domain.Pattern, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("learning: missing user id")
	}
	if obs.Key.Kind == "" {
		return nil, fmt.Errorf("learning: missing pattern kind")
	}
	if _, err := domain.NewPayload(obs.Key.Kind); err != nil {
		return nil, err
	}

	unlock := l.keys.Lock(userID.String() + "|" + obs.Key.String())
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		p, err := l.repo.Find(ctx, userID, obs.Key)
		if err != nil {
			return nil, fmt.Errorf("learning: find pattern: %w", err)
		}

		if p == nil {
			created, err := l.create(ctx, userID, obs)
			if err != nil {
				lastErr = err
				continue // a concurrent create may have won; re-read
			}
			l.invalidate(ctx, userID)
			return created, nil
		}

		updated := l.fold(p, obs)
		err = l.repo.UpdateObserved(ctx, p.ID, domain.PatternUpdate{
			Payload:     updated.Payload,
			Confidence:  updated.Confidence,
			Occurrences: updated.Occurrences,
			IsActive:    updated.IsActive,
			LastSeenAt:  updated.LastSeenAt,
		}, p.Occurrences)

		switch {
		case err == nil:
			l.invalidate(ctx, userID)
			return updated, nil
		case errors.Is(err, domain.ErrStalePattern):
			lastErr = err
			continue
		default:
			l.log.WithError(err).WithField("pattern_key", obs.Key.String()).
				Error("failed to persist pattern update, returning folded result")
			return updated, nil
		}
	}

	return nil, fmt.Errorf("learning: update lost to concurrent writers after %d attempts: %w", casRetries, lastErr)
}

func (l *Learner) create(ctx context.Context, userID uuid.UUID, obs domain.Observation) (*domain.Pattern, error) {
	payload, err := domain.NewPayload(obs.Key.Kind)
	if err != nil {
		return nil, err
	}
	payload.Seed(obs)

	now := l.now()
	p := &domain.Pattern{
		UserID:      userID,
		Key:         obs.Key,
		Payload:     payload,
		Confidence:  obs.Key.Kind.ConfidenceSeed(),
		Occurrences: 1,
		IsActive:    true,
		LastSeenAt:  now,
		CreatedAt:   now,
	}
	if err := l.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("learning: create pattern: %w", err)
	}
	return p, nil
}

// fold applies the running-average and confidence rules to a copy of p.
// Confidence and occurrences move together; occurrences never decreases.
func (l *Learner) fold(p *domain.Pattern, obs domain.Observation) *domain.Pattern {
	updated := *p

	payload := p.Payload
	if payload == nil {
		// Corrupt stored payload: treat the stored value as absent and
		// reseed from this observation, keeping the occurrence history.
		payload, _ = domain.NewPayload(obs.Key.Kind)
		payload.Seed(obs)
	} else {
		payload.Fold(obs, p.Occurrences)
	}
	updated.Payload = payload
	updated.Occurrences = p.Occurrences + 1

	step := confidenceStepObserved
	switch obs.Feedback {
	case domain.FeedbackPositive:
		step = confidenceStepPositive
	case domain.FeedbackNegative:
		step = confidenceStepNegative
	}
	updated.Confidence = domain.ClampConfidence(p.Confidence + step)

	floor := p.Key.Kind.DeactivationFloor()
	switch {
	case updated.Confidence <= floor:
		updated.IsActive = false
	case !p.IsActive && updated.Confidence > floor:
		updated.IsActive = true
	}

	updated.LastSeenAt = l.now()
	return &updated
}

func (l *Learner) invalidate(ctx context.Context, userID uuid.UUID) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, adaptationCacheKey(userID)); err != nil {
		l.log.WithError(err).Debug("failed to invalidate adaptation cache")
	}
}
