package learning

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"assistant_server/core/domain"
)

// fakePatternRepo stores patterns with encoded payloads, mirroring what the
// persistence adapter does, so decode failures behave like real corrupt rows.
type fakePatternRepo struct {
	seq      int64
	rows     map[int64]*fakePatternRow
	staleHit int // inject ErrStalePattern for the first N updates
	updates  int
}

type fakePatternRow struct {
	id          int64
	userID      uuid.UUID
	key         domain.PatternKey
	payload     []byte
	confidence  float64
	occurrences int
	isActive    bool
	lastSeenAt  time.Time
}

func newFakePatternRepo() *fakePatternRepo {
	return &fakePatternRepo{rows: map[int64]*fakePatternRow{}}
}

func (f *fakePatternRepo) Find(_ context.Context, userID uuid.UUID, key domain.PatternKey) (*domain.Pattern, error) {
	for _, r := range f.rows {
		if r.userID == userID && r.key == key {
			return f.toEntity(r), nil
		}
	}
	return nil, nil
}

func (f *fakePatternRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Pattern, error) {
	var out []*domain.Pattern
	for _, r := range f.rows {
		if r.userID == userID {
			out = append(out, f.toEntity(r))
		}
	}
	return out, nil
}

func (f *fakePatternRepo) Create(_ context.Context, p *domain.Pattern) error {
	f.seq++
	p.ID = f.seq
	raw, err := domain.EncodePayload(p.Payload)
	if err != nil {
		return err
	}
	f.rows[p.ID] = &fakePatternRow{
		id:          p.ID,
		userID:      p.UserID,
		key:         p.Key,
		payload:     raw,
		confidence:  p.Confidence,
		occurrences: p.Occurrences,
		isActive:    p.IsActive,
		lastSeenAt:  p.LastSeenAt,
	}
	return nil
}

func (f *fakePatternRepo) UpdateObserved(_ context.Context, id int64, update domain.PatternUpdate, expectedOccurrences int) error {
	f.updates++
	if f.staleHit > 0 {
		f.staleHit--
		return domain.ErrStalePattern
	}
	r, ok := f.rows[id]
	if !ok || r.occurrences != expectedOccurrences {
		return domain.ErrStalePattern
	}
	raw, err := domain.EncodePayload(update.Payload)
	if err != nil {
		return err
	}
	r.payload = raw
	r.confidence = update.Confidence
	r.occurrences = update.Occurrences
	r.isActive = update.IsActive
	r.lastSeenAt = update.LastSeenAt
	return nil
}

func (f *fakePatternRepo) toEntity(r *fakePatternRow) *domain.Pattern {
	payload, err := domain.DecodePayload(r.key.Kind, r.payload)
	if err != nil {
		payload = nil // unreadable rows surface as absent payloads
	}
	return &domain.Pattern{
		ID:          r.id,
		UserID:      r.userID,
		Key:         r.key,
		Payload:     payload,
		Confidence:  r.confidence,
		Occurrences: r.occurrences,
		IsActive:    r.isActive,
		LastSeenAt:  r.lastSeenAt,
	}
}

func timingObs(value float64) domain.Observation {
	return domain.Observation{
		Key:      domain.PatternKey{Kind: domain.KindResponseTiming, Discriminator: "high"},
		Value:    value,
		Feedback: domain.FeedbackNone,
	}
}

// TestLearnerCreatesOnFirstObservation verifies seeding of a new pattern.
func TestLearnerCreatesOnFirstObservation(t *testing.T) {
	repo := newFakePatternRepo()
	learner := NewLearner(repo, nil, nil)
	userID := uuid.New()

	p, err := learner.Observe(context.Background(), userID, timingObs(6))
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	if p.Occurrences != 1 {
		t.Errorf("occurrences = %d, want 1", p.Occurrences)
	}
	if p.Confidence != domain.KindResponseTiming.ConfidenceSeed() {
		t.Errorf("confidence = %v, want seed %v", p.Confidence, domain.KindResponseTiming.ConfidenceSeed())
	}
	if !p.IsActive {
		t.Error("new pattern must start active")
	}
	payload, ok := p.Payload.(*domain.TimingPayload)
	if !ok {
		t.Fatalf("payload type = %T, want *TimingPayload", p.Payload)
	}
	if payload.AverageResponseHours != 6 {
		t.Errorf("seeded average = %v, want 6", payload.AverageResponseHours)
	}
}

// TestLearnerRunningAverage verifies the documented arithmetic: the average
// is taken over the stored average times occurrences plus the new sample.
func TestLearnerRunningAverage(t *testing.T) {
	repo := newFakePatternRepo()
	learner := NewLearner(repo, nil, nil)
	userID := uuid.New()
	ctx := context.Background()

	// Raw history 6, 8, 4 gives average 6 at occurrences 3.
	for _, v := range []float64{6, 8, 4} {
		if _, err := learner.Observe(ctx, userID, timingObs(v)); err != nil {
			t.Fatalf("Observe() error = %v", err)
		}
	}

	p, err := learner.Observe(ctx, userID, timingObs(4))
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	if p.Occurrences != 4 {
		t.Errorf("occurrences = %d, want 4", p.Occurrences)
	}
	avg := p.Payload.(*domain.TimingPayload).AverageResponseHours
	if math.Abs(avg-5.5) > 1e-9 {
		t.Errorf("running average = %v, want 5.5", avg)
	}
}

// TestLearnerConfidenceSteps verifies feedback-dependent confidence moves
// and the [0,1] clamp.
func TestLearnerConfidenceSteps(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	t.Run("positive feedback steps by 0.2 and clamps at 1", func(t *testing.T) {
		repo := newFakePatternRepo()
		learner := NewLearner(repo, nil, nil)

		var p *domain.Pattern
		var err error
		for i := 0; i < 10; i++ {
			obs := timingObs(5)
			obs.Feedback = domain.FeedbackPositive
			p, err = learner.Observe(ctx, userID, obs)
			if err != nil {
				t.Fatalf("Observe() error = %v", err)
			}
			if p.Confidence > 1 {
				t.Fatalf("confidence %v exceeded 1", p.Confidence)
			}
		}
		if p.Confidence != 1 {
			t.Errorf("confidence = %v, want clamped 1", p.Confidence)
		}
	})

	t.Run("negative feedback deactivates at floor without deleting", func(t *testing.T) {
		repo := newFakePatternRepo()
		learner := NewLearner(repo, nil, nil)

		p, err := learner.Observe(ctx, userID, timingObs(6))
		if err != nil {
			t.Fatalf("Observe() error = %v", err)
		}

		for i := 0; i < 10; i++ {
			obs := timingObs(6)
			obs.Feedback = domain.FeedbackNegative
			p, err = learner.Observe(ctx, userID, obs)
			if err != nil {
				t.Fatalf("Observe() error = %v", err)
			}
			if p.Confidence < 0 {
				t.Fatalf("confidence %v went below 0", p.Confidence)
			}
		}

		if p.IsActive {
			t.Error("pattern must deactivate once confidence decays to the floor")
		}
		if p.Payload.(*domain.TimingPayload).AverageResponseHours != 6 {
			t.Error("numeric payload must be preserved through deactivation")
		}
		stored, _ := repo.Find(ctx, userID, p.Key)
		if stored == nil {
			t.Fatal("deactivated pattern must not be deleted")
		}
	})

	t.Run("positive observation reactivates a floored pattern", func(t *testing.T) {
		repo := newFakePatternRepo()
		learner := NewLearner(repo, nil, nil)

		if _, err := learner.Observe(ctx, userID, timingObs(6)); err != nil {
			t.Fatalf("Observe() error = %v", err)
		}
		for i := 0; i < 5; i++ {
			obs := timingObs(6)
			obs.Feedback = domain.FeedbackNegative
			if _, err := learner.Observe(ctx, userID, obs); err != nil {
				t.Fatalf("Observe() error = %v", err)
			}
		}

		obs := timingObs(6)
		obs.Feedback = domain.FeedbackPositive
		p, err := learner.Observe(ctx, userID, obs)
		if err != nil {
			t.Fatalf("Observe() error = %v", err)
		}
		if !p.IsActive {
			t.Errorf("pattern with confidence %v must reactivate above the floor", p.Confidence)
		}
	})
}

// TestLearnerRetriesStaleWrites verifies the check-and-set retry loop.
func TestLearnerRetriesStaleWrites(t *testing.T) {
	repo := newFakePatternRepo()
	learner := NewLearner(repo, nil, nil)
	userID := uuid.New()
	ctx := context.Background()

	if _, err := learner.Observe(ctx, userID, timingObs(6)); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	repo.staleHit = 1
	p, err := learner.Observe(ctx, userID, timingObs(8))
	if err != nil {
		t.Fatalf("Observe() after stale write error = %v", err)
	}
	if p.Occurrences != 2 {
		t.Errorf("occurrences = %d, want 2", p.Occurrences)
	}
	if repo.updates < 2 {
		t.Errorf("expected a retried update, got %d update calls", repo.updates)
	}
}

// TestLearnerConcurrentObservations verifies no observation is lost when the
// same key is hammered in parallel.
func TestLearnerConcurrentObservations(t *testing.T) {
	repo := newFakePatternRepo()
	learner := NewLearner(repo, nil, nil)
	userID := uuid.New()
	ctx := context.Background()

	const workers = 16
	done := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := learner.Observe(ctx, userID, timingObs(5))
			done <- err
		}()
	}
	for i := 0; i < workers; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Observe() error = %v", err)
		}
	}

	p, err := repo.Find(ctx, userID, timingObs(0).Key)
	if err != nil || p == nil {
		t.Fatalf("Find() = %v, %v", p, err)
	}
	if p.Occurrences != workers {
		t.Errorf("occurrences = %d, want %d (no lost updates)", p.Occurrences, workers)
	}
}

// TestLearnerCorruptPayloadReseeds verifies unreadable stored payloads are
// treated as absent and reseeded from the incoming observation.
func TestLearnerCorruptPayloadReseeds(t *testing.T) {
	repo := newFakePatternRepo()
	learner := NewLearner(repo, nil, nil)
	userID := uuid.New()
	ctx := context.Background()

	if _, err := learner.Observe(ctx, userID, timingObs(6)); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	for _, r := range repo.rows {
		r.payload = []byte("{not json")
	}

	p, err := learner.Observe(ctx, userID, timingObs(9))
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if avg := p.Payload.(*domain.TimingPayload).AverageResponseHours; avg != 9 {
		t.Errorf("reseeded average = %v, want 9", avg)
	}
	if p.Occurrences != 2 {
		t.Errorf("occurrences = %d, want occurrence history kept", p.Occurrences)
	}
}
