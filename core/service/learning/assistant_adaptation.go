package learning

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"assistant_server/core/domain"
	"assistant_server/pkg/cache"
	"assistant_server/pkg/logger"
)

// =============================================================================
// Adaptation Engine
// =============================================================================

const adaptationCacheTTL = 5 * time.Minute

func adaptationCacheKey(userID uuid.UUID) string {
	return "adaptations:" + userID.String()
}

// AdaptationEngine reads trusted patterns and turns them into typed
// recommendations. Patterns below the confidence threshold are silently
// excluded; a missing adaptation is nil, never an error.
type AdaptationEngine struct {
	repo  domain.PatternRepository
	cache *cache.RedisCache
	log   *logger.Logger
	now   func() time.Time
}

// NewAdaptationEngine creates an adaptation engine. cache may be nil.
func NewAdaptationEngine(repo domain.PatternRepository, c *cache.RedisCache, log *logger.Logger) *AdaptationEngine {
	if log == nil {
		log = logger.Default()
	}
	return &AdaptationEngine{repo: repo, cache: c, log: log, now: time.Now}
}

// cachedAdaptation carries a recommendation through Redis with its kind so
// the concrete type can be restored on read.
type cachedAdaptation struct {
	Key            domain.PatternKey `json:"key"`
	Confidence     float64           `json:"confidence"`
	Occurrences    int               `json:"occurrences"`
	Recommendation json.RawMessage   `json:"recommendation"`
}

// ListAdaptations returns one recommendation per trusted active pattern.
// Corrupt payloads are skipped, never fatal to the listing.
func (e *AdaptationEngine) ListAdaptations(ctx context.Context, userID uuid.UUID) ([]domain.Adaptation, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("learning: missing user id")
	}

	if cached, ok := e.fromCache(ctx, userID); ok {
		return cached, nil
	}

	patterns, err := e.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("learning: list patterns: %w", err)
	}

	adaptations := make([]domain.Adaptation, 0, len(patterns))
	for _, p := range patterns {
		a, ok := e.toAdaptation(p)
		if !ok {
			continue
		}
		adaptations = append(adaptations, a)
	}

	sort.SliceStable(adaptations, func(i, j int) bool {
		return adaptations[i].Confidence > adaptations[j].Confidence
	})

	e.toCache(ctx, userID, adaptations)
	return adaptations, nil
}

// ApplyAdaptation answers a point query for one pattern key. Returns
// (nil, nil) when the pattern is missing, inactive, below the confidence
// threshold, or unreadable: callers treat nil as "no adaptation available".
func (e *AdaptationEngine) ApplyAdaptation(ctx context.Context, userID uuid.UUID, key domain.PatternKey) (*domain.Adaptation, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("learning: missing user id")
	}

	p, err := e.repo.Find(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("learning: find pattern: %w", err)
	}
	if p == nil {
		return nil, nil
	}
	a, ok := e.toAdaptation(p)
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// BusinessProfile projects the user's trusted patterns into a profile
// summary. Pure projection; nothing is stored.
func (e *AdaptationEngine) BusinessProfile(ctx context.Context, userID uuid.UUID) (*domain.BusinessProfile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("learning: missing user id")
	}

	patterns, err := e.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("learning: list patterns: %w", err)
	}

	profile := &domain.BusinessProfile{
		UserID:      userID,
		GeneratedAt: e.now(),
	}

	var (
		bestTone       float64
		jobValueSum    float64
		jobValueCount  int
		bestTiming     float64
		segmentsSeen   = map[string]bool{}
	)

	for _, p := range patterns {
		if !p.IsActive || p.Confidence < domain.AdaptationThreshold || p.Payload == nil {
			continue
		}
		profile.PatternCount++

		switch payload := p.Payload.(type) {
		case *domain.TonePayload:
			if p.Confidence > bestTone {
				bestTone = p.Confidence
				profile.DominantTone = payload.Tone
			}
		case *domain.CategorizationPayload:
			if payload.Segment != "" && !segmentsSeen[payload.Segment] {
				segmentsSeen[payload.Segment] = true
				profile.CustomerSegments = append(profile.CustomerSegments, payload.Segment)
			}
		case *domain.JobValuePayload:
			jobValueSum += payload.AverageValue
			jobValueCount++
		case *domain.TimingPayload:
			if p.Confidence > bestTiming {
				bestTiming = p.Confidence
				profile.FollowUpHours = payload.AverageResponseHours
			}
		}
	}

	if jobValueCount > 0 {
		profile.AverageJobValue = jobValueSum / float64(jobValueCount)
	}
	sort.Strings(profile.CustomerSegments)

	return profile, nil
}

// toAdaptation maps one pattern to its recommendation, applying the
// confidence threshold and skipping unreadable payloads.
func (e *AdaptationEngine) toAdaptation(p *domain.Pattern) (domain.Adaptation, bool) {
	if !p.IsActive || p.Confidence < domain.AdaptationThreshold {
		return domain.Adaptation{}, false
	}
	if p.Payload == nil {
		e.log.WithField("pattern_key", p.Key.String()).Warn("skipping pattern with unreadable payload")
		return domain.Adaptation{}, false
	}

	var rec domain.Recommendation
	switch payload := p.Payload.(type) {
	case *domain.TimingPayload:
		rec = domain.TimingRecommendation{
			RecommendedFollowUpHours: payload.AverageResponseHours,
			UrgencyLabel:             payload.UrgencyLabel,
		}
	case *domain.TonePayload:
		rec = domain.ToneRecommendation{
			Tone:       payload.Tone,
			Vocabulary: payload.Vocabulary,
			Structure:  payload.Structure,
		}
	case *domain.CategorizationPayload:
		rec = domain.CategorizationRecommendation{
			Segment:           payload.Segment,
			SuggestedPriority: payload.AssignedPriority,
		}
	case *domain.JobValuePayload:
		rec = domain.JobValueRecommendation{
			EstimatedValue: payload.AverageValue,
			JobType:        payload.JobType,
		}
	case *domain.BatchingPayload:
		rec = domain.BatchingRecommendation{
			SuggestedBatchSize: int(math.Round(payload.AverageBatchSize)),
			PreferredWindow:    payload.PreferredWindow,
		}
	default:
		return domain.Adaptation{}, false
	}

	return domain.Adaptation{
		Key:            p.Key,
		Confidence:     p.Confidence,
		Occurrences:    p.Occurrences,
		Recommendation: rec,
	}, true
}

func (e *AdaptationEngine) fromCache(ctx context.Context, userID uuid.UUID) ([]domain.Adaptation, bool) {
	if e.cache == nil {
		return nil, false
	}

	var cached []cachedAdaptation
	found, err := e.cache.GetJSON(ctx, adaptationCacheKey(userID), &cached)
	if err != nil || !found {
		return nil, false
	}

	out := make([]domain.Adaptation, 0, len(cached))
	for _, c := range cached {
		rec, err := decodeRecommendation(c.Key.Kind, c.Recommendation)
		if err != nil {
			return nil, false // stale shape; recompute
		}
		out = append(out, domain.Adaptation{
			Key:            c.Key,
			Confidence:     c.Confidence,
			Occurrences:    c.Occurrences,
			Recommendation: rec,
		})
	}
	return out, true
}

func (e *AdaptationEngine) toCache(ctx context.Context, userID uuid.UUID, adaptations []domain.Adaptation) {
	if e.cache == nil {
		return
	}

	cached := make([]cachedAdaptation, 0, len(adaptations))
	for _, a := range adaptations {
		raw, err := json.Marshal(a.Recommendation)
		if err != nil {
			return
		}
		cached = append(cached, cachedAdaptation{
			Key:            a.Key,
			Confidence:     a.Confidence,
			Occurrences:    a.Occurrences,
			Recommendation: raw,
		})
	}
	if err := e.cache.SetJSON(ctx, adaptationCacheKey(userID), cached, adaptationCacheTTL); err != nil {
		e.log.WithError(err).Debug("failed to cache adaptations")
	}
}

func decodeRecommendation(kind domain.PatternKind, raw json.RawMessage) (domain.Recommendation, error) {
	switch kind {
	case domain.KindResponseTiming:
		var r domain.TimingRecommendation
		return r, json.Unmarshal(raw, &r)
	case domain.KindCommunicationTone:
		var r domain.ToneRecommendation
		return r, json.Unmarshal(raw, &r)
	case domain.KindCustomerCategorization:
		var r domain.CategorizationRecommendation
		return r, json.Unmarshal(raw, &r)
	case domain.KindJobValueEstimation:
		var r domain.JobValueRecommendation
		return r, json.Unmarshal(raw, &r)
	case domain.KindTaskBatching:
		var r domain.BatchingRecommendation
		return r, json.Unmarshal(raw, &r)
	default:
		return nil, fmt.Errorf("learning: unknown recommendation kind %q", kind)
	}
}
