package analysis

import (
	"testing"
	"time"
)

func scoreInput(ex *Extractor, subject, content, sender string, receivedAt, now time.Time) *ScoreInput {
	return &ScoreInput{
		Subject:    subject,
		Content:    content,
		Sender:     sender,
		ReceivedAt: receivedAt,
		Now:        now,
		Signals:    ex.ExtractSignals(content),
	}
}

// TestUrgencyScorer verifies the urgency increments.
func TestUrgencyScorer(t *testing.T) {
	ex := NewExtractor()
	scorer := NewUrgencyScorer()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		subject    string
		content    string
		receivedAt time.Time
		want       int
	}{
		{
			name:       "no signals, old email",
			subject:    "Quick question",
			content:    "Quick question about scheduling next month",
			receivedAt: now.Add(-10 * time.Hour),
			want:       0,
		},
		{
			name:       "single urgent phrase plus fresh age",
			subject:    "Please call",
			content:    "Please call, this is urgent",
			receivedAt: now.Add(-30 * time.Minute),
			want:       25, // +15 urgent, +10 under an hour
		},
		{
			name:       "emergency phrase scores higher",
			subject:    "Water leak",
			content:    "There is a water leak in the kitchen",
			receivedAt: now.Add(-2 * time.Hour),
			want:       30, // +25 emergency, +5 under four hours
		},
		{
			name:       "shouted subject with exclamation",
			subject:    "HELP NEEDED!",
			content:    "HELP NEEDED!",
			receivedAt: now.Add(-10 * time.Hour),
			want:       15, // +5 bang, +10 all-caps subject
		},
		{
			name:       "double reply marker",
			subject:    "RE: RE: quote request",
			content:    "RE: RE: quote request",
			receivedAt: now.Add(-10 * time.Hour),
			want:       8,
		},
		{
			name:       "time-sensitive wording",
			subject:    "Availability",
			content:    "Can you come today or tomorrow this week",
			receivedAt: now.Add(-10 * time.Hour),
			want:       18, // +10 today, +5 tomorrow, +3 this week
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scoreInput(ex, tt.subject, tt.content, "a@b.com", tt.receivedAt, now)
			got := scorer.Score(in)
			if got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestRelevanceScorer verifies the business-relevance increments, including
// the intentional double count of invoice signals.
func TestRelevanceScorer(t *testing.T) {
	ex := NewExtractor()
	scorer := NewRelevanceScorer()
	now := time.Now()

	tests := []struct {
		name    string
		content string
		sender  string
		want    int
	}{
		{
			name:    "base score only from webmail",
			content: "hello there",
			sender:  "friend@gmail.com",
			want:    30,
		},
		{
			name:    "business domain bonus",
			content: "hello there",
			sender:  "owner@plumbco.com",
			want:    45,
		},
		{
			name:    "invoice signals double count",
			content: "invoice attached",
			sender:  "friend@gmail.com",
			want:    62, // 30 + 12 keyword + 20 invoice bonus
		},
		{
			name:    "quote request from business address",
			content: "can you send a quote for the fence job",
			sender:  "client@company.com",
			// 30 + 8 quote keyword + 8 job keyword + 15 domain + 20 quote bonus
			want: 81,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scoreInput(ex, "", tt.content, tt.sender, now, now)
			got := scorer.Score(in)
			if got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestSpamScorer verifies spam increments and the punctuation cap.
func TestSpamScorer(t *testing.T) {
	ex := NewExtractor()
	scorer := NewSpamScorer()
	now := time.Now()

	tests := []struct {
		name    string
		subject string
		content string
		sender  string
		want    int
	}{
		{
			name:    "clean email",
			subject: "Site visit",
			content: "Confirming the site visit tomorrow",
			sender:  "client@company.com",
			want:    0,
		},
		{
			name:    "exclamation cap",
			subject: "Hi",
			content: "wow!!!!!!",
			sender:  "friend@gmail.com",
			want:    20, // 6 bangs capped at +20
		},
		{
			name:    "noreply click here combo",
			subject: "Offer",
			content: "click here to claim",
			sender:  "noreply@promo.example",
			want:    35, // +15 phrase, +20 combo
		},
		{
			name:    "dollar free combo",
			subject: "Deal",
			content: "get $100 free",
			sender:  "deals@shop.example",
			want:    15,
		},
		{
			name:    "long shouted subject",
			subject: "AMAZING DEAL JUST FOR YOU TODAY",
			content: "AMAZING DEAL JUST FOR YOU TODAY",
			sender:  "deals@shop.example",
			want:    10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scoreInput(ex, tt.subject, tt.content, tt.sender, now, now)
			got := scorer.Score(in)
			if got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestScorerBoundsAndDeterminism checks the clamp band and referential
// transparency for a fixed now.
func TestScorerBoundsAndDeterminism(t *testing.T) {
	ex := NewExtractor()
	urgency := NewUrgencyScorer()
	relevance := NewRelevanceScorer()
	spam := NewSpamScorer()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Stack every urgent signal at once to force the clamp.
	loaded := "urgent asap emergency water leak flooding no power critical immediately right away today tomorrow this week"
	in := scoreInput(ex, "URGENT HELP!!", loaded, "client@company.com", now.Add(-1*time.Minute), now)

	for i := 0; i < 2; i++ {
		u, r, sp := urgency.Score(in), relevance.Score(in), spam.Score(in)
		for _, v := range []int{u, r, sp} {
			if v < 0 || v > 100 {
				t.Fatalf("score %d outside [0,100]", v)
			}
		}
		if u != 100 {
			t.Errorf("expected clamped urgency 100, got %d", u)
		}
		if i == 1 {
			if u2 := urgency.Score(in); u2 != u {
				t.Errorf("urgency not deterministic: %d vs %d", u, u2)
			}
		}
	}
}
