package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"assistant_server/core/domain"
)

// fakeAnalysisRepo is an in-memory AnalysisRepository for service tests.
type fakeAnalysisRepo struct {
	created   []*domain.EmailAnalysis
	failSave  bool
	notifSent []int64
}

func (f *fakeAnalysisRepo) Create(_ context.Context, a *domain.EmailAnalysis) error {
	if f.failSave {
		return errors.New("db down")
	}
	a.ID = int64(len(f.created) + 1)
	f.created = append(f.created, a)
	return nil
}

func (f *fakeAnalysisRepo) GetByEmailID(_ context.Context, userID uuid.UUID, emailID string) (*domain.EmailAnalysis, error) {
	for _, a := range f.created {
		if a.UserID == userID && a.EmailID == emailID {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAnalysisRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*domain.EmailAnalysis, error) {
	var out []*domain.EmailAnalysis
	for _, a := range f.created {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAnalysisRepo) MarkNotificationSent(_ context.Context, id int64) error {
	f.notifSent = append(f.notifSent, id)
	return nil
}

type fakeNotifier struct {
	calls int
	fail  bool
}

func (f *fakeNotifier) NotifyUrgent(_ context.Context, _ *domain.EmailAnalysis) error {
	f.calls++
	if f.fail {
		return errors.New("webhook unreachable")
	}
	return nil
}

// TestAnalyzeUrgentScenario runs the canonical urgent email end to end.
func TestAnalyzeUrgentScenario(t *testing.T) {
	repo := &fakeAnalysisRepo{}
	notifier := &fakeNotifier{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo, notifier, nil).WithClock(func() time.Time { return now })

	signal := &domain.EmailSignal{
		UserID:     uuid.New(),
		EmailID:    "msg-1",
		Subject:    "URGENT: Need response ASAP",
		FromEmail:  "client@company.com",
		Snippet:    "This is critical and needs immediate attention",
		ReceivedAt: now,
	}

	a, err := svc.Analyze(context.Background(), signal)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if a.Category != domain.CategoryUrgent {
		t.Errorf("category = %q, want urgent", a.Category)
	}
	if a.PriorityLevel != domain.PriorityUrgent {
		t.Errorf("priority = %q, want urgent", a.PriorityLevel)
	}
	if a.UrgencyScore < 70 {
		t.Errorf("urgency score = %d, want >= 70", a.UrgencyScore)
	}
	if !a.ActionRequired {
		t.Error("urgent email must require action")
	}
	if len(a.SuggestedActions) == 0 || a.SuggestedActions[0] != "Prioritize this email" {
		t.Errorf("suggested actions = %v, want prioritize hint first", a.SuggestedActions)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
	if !a.NotificationSent {
		t.Error("notification flag not set after successful dispatch")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one persisted analysis, got %d", len(repo.created))
	}
}

// TestAnalyzeInvoiceScenario runs the canonical business invoice email.
func TestAnalyzeInvoiceScenario(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService(nil, nil, nil).WithClock(func() time.Time { return now })

	signal := &domain.EmailSignal{
		UserID:     uuid.New(),
		EmailID:    "msg-2",
		Subject:    "Invoice Payment Due",
		FromEmail:  "billing@supplier.com",
		Snippet:    "Please find attached invoice for services rendered",
		ReceivedAt: now.Add(-2 * time.Hour),
	}

	a, err := svc.Analyze(context.Background(), signal)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if a.BusinessRelevanceScore < 50 {
		t.Errorf("relevance score = %d, want >= 50", a.BusinessRelevanceScore)
	}
	found := false
	for _, k := range a.MatchedKeywords {
		if k == "invoice" {
			found = true
		}
	}
	if !found {
		t.Errorf("matched keywords %v missing invoice", a.MatchedKeywords)
	}
	t.Logf("invoice scenario: relevance=%d category=%s priority=%s",
		a.BusinessRelevanceScore, a.Category, a.PriorityLevel)
}

// TestAnalyzeBatchPartialFailure verifies one bad input never aborts the
// batch.
func TestAnalyzeBatchPartialFailure(t *testing.T) {
	svc := NewService(nil, nil, nil)
	userID := uuid.New()
	now := time.Now()

	signals := make([]*domain.EmailSignal, 0, 5)
	for i := 1; i <= 5; i++ {
		s := &domain.EmailSignal{
			UserID:     userID,
			EmailID:    fmt.Sprintf("msg-%d", i),
			Subject:    "hello",
			FromEmail:  "a@b.com",
			ReceivedAt: now,
		}
		if i == 3 {
			s.EmailID = "" // invalid, must be skipped
		}
		signals = append(signals, s)
	}

	results := svc.AnalyzeBatch(context.Background(), signals)
	if len(results) != 4 {
		t.Fatalf("expected 4 analyses, got %d", len(results))
	}
	for _, a := range results {
		if a.EmailID == "" {
			t.Error("invalid signal leaked into results")
		}
	}
}

// TestAnalyzePersistenceFailureStillReturns verifies the computed result
// survives a storage outage.
func TestAnalyzePersistenceFailureStillReturns(t *testing.T) {
	repo := &fakeAnalysisRepo{failSave: true}
	svc := NewService(repo, nil, nil)

	a, err := svc.Analyze(context.Background(), &domain.EmailSignal{
		UserID:     uuid.New(),
		EmailID:    "msg-9",
		Subject:    "Quote request",
		FromEmail:  "client@company.com",
		ReceivedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v, want computed result despite save failure", err)
	}
	if a == nil || a.BusinessRelevanceScore == 0 {
		t.Error("expected scored analysis even when persistence fails")
	}
}

// TestAnalyzeMissingTextDegradesToBase verifies empty fields never error and
// fall back to base scores.
func TestAnalyzeMissingTextDegradesToBase(t *testing.T) {
	svc := NewService(nil, nil, nil)

	a, err := svc.Analyze(context.Background(), &domain.EmailSignal{
		UserID:  uuid.New(),
		EmailID: "msg-10",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if a.UrgencyScore != 0 {
		t.Errorf("urgency = %d, want base 0", a.UrgencyScore)
	}
	if a.BusinessRelevanceScore != 30 {
		t.Errorf("relevance = %d, want base 30", a.BusinessRelevanceScore)
	}
	if a.Category != domain.CategoryStandard {
		t.Errorf("category = %q, want standard", a.Category)
	}
}
