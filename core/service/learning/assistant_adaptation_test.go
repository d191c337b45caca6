package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"assistant_server/core/domain"
)

func seedPattern(t *testing.T, repo *fakePatternRepo, userID uuid.UUID, key domain.PatternKey, payload domain.PatternPayload, confidence float64, active bool) {
	t.Helper()
	p := &domain.Pattern{
		UserID:      userID,
		Key:         key,
		Payload:     payload,
		Confidence:  confidence,
		Occurrences: 3,
		IsActive:    active,
		LastSeenAt:  time.Now(),
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("seed pattern: %v", err)
	}
}

// TestListAdaptations verifies threshold filtering and kind-shaped
// recommendations.
func TestListAdaptations(t *testing.T) {
	repo := newFakePatternRepo()
	engine := NewAdaptationEngine(repo, nil, nil)
	userID := uuid.New()
	ctx := context.Background()

	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindResponseTiming, Discriminator: "high"},
		&domain.TimingPayload{AverageResponseHours: 5.5, UrgencyLabel: "high"}, 0.8, true)
	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindCommunicationTone, Discriminator: "customers"},
		&domain.TonePayload{Tone: "friendly"}, 0.5, true)
	// Below the 0.3 threshold: silently excluded.
	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindTaskBatching, Discriminator: "invoicing"},
		&domain.BatchingPayload{AverageBatchSize: 4.4}, 0.2, true)
	// Inactive: excluded regardless of confidence.
	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindJobValueEstimation, Discriminator: "fencing"},
		&domain.JobValuePayload{AverageValue: 2400}, 0.9, false)

	got, err := engine.ListAdaptations(ctx, userID)
	if err != nil {
		t.Fatalf("ListAdaptations() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d adaptations, want 2: %+v", len(got), got)
	}

	// Sorted by confidence, highest first.
	timing, ok := got[0].Recommendation.(domain.TimingRecommendation)
	if !ok {
		t.Fatalf("first recommendation type = %T, want TimingRecommendation", got[0].Recommendation)
	}
	if timing.RecommendedFollowUpHours != 5.5 {
		t.Errorf("recommended follow-up hours = %v, want 5.5", timing.RecommendedFollowUpHours)
	}
	if _, ok := got[1].Recommendation.(domain.ToneRecommendation); !ok {
		t.Errorf("second recommendation type = %T, want ToneRecommendation", got[1].Recommendation)
	}
}

// TestListAdaptationsSkipsCorruptPayloads verifies unreadable rows never
// fail the listing.
func TestListAdaptationsSkipsCorruptPayloads(t *testing.T) {
	repo := newFakePatternRepo()
	engine := NewAdaptationEngine(repo, nil, nil)
	userID := uuid.New()

	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindResponseTiming, Discriminator: "high"},
		&domain.TimingPayload{AverageResponseHours: 3}, 0.8, true)
	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindCommunicationTone, Discriminator: "customers"},
		&domain.TonePayload{Tone: "direct"}, 0.8, true)
	for _, r := range repo.rows {
		if r.key.Kind == domain.KindCommunicationTone {
			r.payload = []byte("{broken")
		}
	}

	got, err := engine.ListAdaptations(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListAdaptations() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d adaptations, want corrupt row skipped", len(got))
	}
	if got[0].Key.Kind != domain.KindResponseTiming {
		t.Errorf("surviving adaptation kind = %q", got[0].Key.Kind)
	}
}

// TestApplyAdaptation verifies the point query including its nil contract.
func TestApplyAdaptation(t *testing.T) {
	repo := newFakePatternRepo()
	engine := NewAdaptationEngine(repo, nil, nil)
	userID := uuid.New()
	ctx := context.Background()

	trusted := domain.PatternKey{Kind: domain.KindJobValueEstimation, Discriminator: "fencing"}
	belowFloor := domain.PatternKey{Kind: domain.KindTaskBatching, Discriminator: "invoicing"}
	seedPattern(t, repo, userID, trusted, &domain.JobValuePayload{AverageValue: 2400}, 0.7, true)
	seedPattern(t, repo, userID, belowFloor, &domain.BatchingPayload{AverageBatchSize: 3}, 0.2, true)

	t.Run("trusted pattern returns recommendation", func(t *testing.T) {
		a, err := engine.ApplyAdaptation(ctx, userID, trusted)
		if err != nil {
			t.Fatalf("ApplyAdaptation() error = %v", err)
		}
		if a == nil {
			t.Fatal("expected adaptation, got nil")
		}
		rec := a.Recommendation.(domain.JobValueRecommendation)
		if rec.EstimatedValue != 2400 {
			t.Errorf("estimated value = %v, want 2400", rec.EstimatedValue)
		}
	})

	t.Run("below floor returns nil without error", func(t *testing.T) {
		a, err := engine.ApplyAdaptation(ctx, userID, belowFloor)
		if err != nil {
			t.Fatalf("ApplyAdaptation() error = %v", err)
		}
		if a != nil {
			t.Errorf("expected nil for confidence below floor, got %+v", a)
		}
	})

	t.Run("missing key returns nil without error", func(t *testing.T) {
		a, err := engine.ApplyAdaptation(ctx, userID, domain.PatternKey{Kind: domain.KindResponseTiming, Discriminator: "none"})
		if err != nil {
			t.Fatalf("ApplyAdaptation() error = %v", err)
		}
		if a != nil {
			t.Errorf("expected nil for missing pattern, got %+v", a)
		}
	})
}

// TestBusinessProfile verifies the on-demand projection.
func TestBusinessProfile(t *testing.T) {
	repo := newFakePatternRepo()
	engine := NewAdaptationEngine(repo, nil, nil)
	userID := uuid.New()

	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindCommunicationTone, Discriminator: "customers"},
		&domain.TonePayload{Tone: "friendly"}, 0.6, true)
	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindCustomerCategorization, Discriminator: "acme"},
		&domain.CategorizationPayload{Segment: "commercial"}, 0.5, true)
	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindCustomerCategorization, Discriminator: "smith"},
		&domain.CategorizationPayload{Segment: "residential"}, 0.4, true)
	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindJobValueEstimation, Discriminator: "fencing"},
		&domain.JobValuePayload{AverageValue: 2000}, 0.5, true)
	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindJobValueEstimation, Discriminator: "decking"},
		&domain.JobValuePayload{AverageValue: 4000}, 0.5, true)
	// Below threshold, must not contribute.
	seedPattern(t, repo, userID,
		domain.PatternKey{Kind: domain.KindJobValueEstimation, Discriminator: "gutters"},
		&domain.JobValuePayload{AverageValue: 99999}, 0.2, true)

	profile, err := engine.BusinessProfile(context.Background(), userID)
	if err != nil {
		t.Fatalf("BusinessProfile() error = %v", err)
	}

	if profile.DominantTone != "friendly" {
		t.Errorf("dominant tone = %q, want friendly", profile.DominantTone)
	}
	if len(profile.CustomerSegments) != 2 {
		t.Errorf("segments = %v, want two", profile.CustomerSegments)
	}
	if profile.AverageJobValue != 3000 {
		t.Errorf("average job value = %v, want 3000", profile.AverageJobValue)
	}
	if profile.PatternCount != 5 {
		t.Errorf("pattern count = %d, want 5", profile.PatternCount)
	}
}
