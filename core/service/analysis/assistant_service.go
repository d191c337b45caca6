package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"assistant_server/core/domain"
	"assistant_server/pkg/logger"
)

// =============================================================================
// Analysis Service
// =============================================================================

// maxMatchedKeywords bounds the keyword list stored on an analysis.
const maxMatchedKeywords = 10

// Notifier is the dispatch boundary for urgent analyses. Delivery transport
// lives behind it.
type Notifier interface {
	NotifyUrgent(ctx context.Context, analysis *domain.EmailAnalysis) error
}

// Service runs the full analysis pipeline over email signals. All scoring is
// pure computation; the repository and notifier are best-effort
// collaborators whose failures never suppress a computed result.
type Service struct {
	extractor  *Extractor
	urgency    *UrgencyScorer
	relevance  *RelevanceScorer
	spam       *SpamScorer
	classifier *Classifier
	explainer  *Explainer

	repo     domain.AnalysisRepository
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates an analysis service. repo and notifier may be nil for
// pure in-memory scoring (tests, dry runs).
func NewService(repo domain.AnalysisRepository, notifier Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		extractor:  NewExtractor(),
		urgency:    NewUrgencyScorer(),
		relevance:  NewRelevanceScorer(),
		spam:       NewSpamScorer(),
		classifier: NewClassifier(),
		explainer:  NewExplainer(),
		repo:       repo,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

// WithClock fixes the evaluation clock. Scoring is deterministic for a fixed
// now.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Analyze scores and classifies a single email. The computed analysis is
// returned even when persistence fails; the error is logged and the caller
// decides whether an unsaved result is acceptable.
func (s *Service) Analyze(ctx context.Context, signal *domain.EmailSignal) (*domain.EmailAnalysis, error) {
	if signal == nil {
		return nil, fmt.Errorf("analysis: nil signal")
	}
	if signal.EmailID == "" {
		return nil, fmt.Errorf("analysis: missing email id")
	}
	if signal.UserID == uuid.Nil {
		return nil, fmt.Errorf("analysis: missing user id")
	}

	now := s.now()
	in := s.buildInput(signal, now)

	scores := Scores{
		Urgency:   s.urgency.Score(in),
		Relevance: s.relevance.Score(in),
		Spam:      s.spam.Score(in),
	}
	category := s.classifier.Category(scores, in)
	priority := s.classifier.Priority(category, scores)

	keywords := in.Signals.All()
	if len(keywords) > maxMatchedKeywords {
		keywords = keywords[:maxMatchedKeywords]
	}

	a := &domain.EmailAnalysis{
		UserID:                 signal.UserID,
		EmailID:                signal.EmailID,
		PriorityLevel:          priority,
		Category:               category,
		UrgencyScore:           scores.Urgency,
		BusinessRelevanceScore: scores.Relevance,
		ActionRequired:         s.explainer.ActionRequired(category, in),
		MatchedKeywords:        keywords,
		SuggestedActions:       s.explainer.SuggestedActions(category, scores),
		Reasoning:              s.explainer.Reasoning(category, scores),
		AnalyzedAt:             now,
	}

	if s.repo != nil {
		if err := s.repo.Create(ctx, a); err != nil {
			s.log.WithError(err).WithField("email_id", signal.EmailID).
				Error("failed to persist analysis, returning computed result")
		}
	}

	s.dispatchUrgent(ctx, a)

	return a, nil
}

// AnalyzeBatch processes each signal independently. One failure never aborts
// the batch; the returned list contains the successful analyses only and may
// be shorter than the input.
func (s *Service) AnalyzeBatch(ctx context.Context, signals []*domain.EmailSignal) []*domain.EmailAnalysis {
	results := make([]*domain.EmailAnalysis, 0, len(signals))
	for _, sig := range signals {
		a, err := s.Analyze(ctx, sig)
		if err != nil {
			s.log.WithError(err).Warn("skipping email in batch analysis")
			continue
		}
		results = append(results, a)
	}
	return results
}

// History returns persisted analyses for a user, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, page *domain.PageRequest) ([]*domain.EmailAnalysis, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("analysis: no repository configured")
	}
	return s.repo.ListByUser(ctx, userID, page.Limit(), page.Offset())
}

func (s *Service) buildInput(signal *domain.EmailSignal, now time.Time) *ScoreInput {
	var b strings.Builder
	b.WriteString(signal.Subject)
	if signal.Snippet != "" {
		b.WriteString(" ")
		b.WriteString(signal.Snippet)
	}
	if signal.BodyPreview != "" {
		b.WriteString(" ")
		b.WriteString(signal.BodyPreview)
	}
	content := b.String()

	return &ScoreInput{
		Subject:    signal.Subject,
		Content:    content,
		Sender:     signal.FromEmail,
		ReceivedAt: signal.ReceivedAt,
		Now:        now,
		Signals:    s.extractor.ExtractSignals(content),
	}
}

// dispatchUrgent hands urgent analyses to the notifier. Failures are logged;
// notification state only flips after a successful handoff.
func (s *Service) dispatchUrgent(ctx context.Context, a *domain.EmailAnalysis) {
	if s.notifier == nil || !a.IsUrgent() {
		return
	}
	if err := s.notifier.NotifyUrgent(ctx, a); err != nil {
		s.log.WithError(err).WithField("email_id", a.EmailID).Warn("urgent notification dispatch failed")
		return
	}
	a.NotificationSent = true
	if s.repo != nil && a.ID != 0 {
		if err := s.repo.MarkNotificationSent(ctx, a.ID); err != nil {
			s.log.WithError(err).Warn("failed to record notification dispatch")
		}
	}
}
