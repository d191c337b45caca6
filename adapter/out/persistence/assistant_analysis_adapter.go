package persistence

import (
	"context"
	"fmt"

	"assistant_server/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// =============================================================================
// Email Analysis Adapter
// =============================================================================

// AnalysisAdapter implements domain.AnalysisRepository on a pgx pool.
type AnalysisAdapter struct {
	db *pgxpool.Pool
}

// NewAnalysisAdapter creates a new AnalysisAdapter.
func NewAnalysisAdapter(db *pgxpool.Pool) *AnalysisAdapter {
	return &AnalysisAdapter{db: db}
}

const analysisColumns = `
	id, user_id, email_id, priority, category,
	urgency_score, business_relevance_score, action_required,
	matched_keywords, suggested_actions, reasoning,
	notification_sent, analyzed_at`

// Create inserts an analysis record and assigns its id. One row per
// (user, email); re-analyzing the same email replaces the stored judgment.
func (a *AnalysisAdapter) Create(ctx context.Context, analysis *domain.EmailAnalysis) error {
	query := `
		INSERT INTO email_analyses (
			user_id, email_id, priority, category,
			urgency_score, business_relevance_score, action_required,
			matched_keywords, suggested_actions, reasoning,
			notification_sent, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, email_id) DO UPDATE SET
			priority = EXCLUDED.priority,
			category = EXCLUDED.category,
			urgency_score = EXCLUDED.urgency_score,
			business_relevance_score = EXCLUDED.business_relevance_score,
			action_required = EXCLUDED.action_required,
			matched_keywords = EXCLUDED.matched_keywords,
			suggested_actions = EXCLUDED.suggested_actions,
			reasoning = EXCLUDED.reasoning,
			analyzed_at = EXCLUDED.analyzed_at
		RETURNING id`

	err := a.db.QueryRow(ctx, query,
		analysis.UserID, analysis.EmailID, string(analysis.PriorityLevel), string(analysis.Category),
		analysis.UrgencyScore, analysis.BusinessRelevanceScore, analysis.ActionRequired,
		pq.Array(analysis.MatchedKeywords), pq.Array(analysis.SuggestedActions), analysis.Reasoning,
		analysis.NotificationSent, analysis.AnalyzedAt,
	).Scan(&analysis.ID)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}

	return nil
}

// GetByEmailID retrieves the stored analysis for one email. Returns
// (nil, nil) when the email has not been analyzed.
func (a *AnalysisAdapter) GetByEmailID(ctx context.Context, userID uuid.UUID, emailID string) (*domain.EmailAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM email_analyses WHERE user_id = $1 AND email_id = $2`

	analysis, err := scanAnalysis(a.db.QueryRow(ctx, query, userID, emailID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	return analysis, nil
}

// ListByUser retrieves analyses for a user, newest first.
func (a *AnalysisAdapter) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.EmailAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM email_analyses
		WHERE user_id = $1 ORDER BY analyzed_at DESC LIMIT $2 OFFSET $3`

	rows, err := a.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*domain.EmailAnalysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, analysis)
	}

	return analyses, rows.Err()
}

// MarkNotificationSent flips the notification flag after a successful
// dispatch handoff.
func (a *AnalysisAdapter) MarkNotificationSent(ctx context.Context, id int64) error {
	_, err := a.db.Exec(ctx, `UPDATE email_analyses SET notification_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.EmailAnalysis, error) {
	var (
		analysis domain.EmailAnalysis
		priority string
		category string
	)
	err := row.Scan(
		&analysis.ID, &analysis.UserID, &analysis.EmailID, &priority, &category,
		&analysis.UrgencyScore, &analysis.BusinessRelevanceScore, &analysis.ActionRequired,
		pq.Array(&analysis.MatchedKeywords), pq.Array(&analysis.SuggestedActions), &analysis.Reasoning,
		&analysis.NotificationSent, &analysis.AnalyzedAt,
	)
	if err != nil {
		return nil, err
	}
	analysis.PriorityLevel = domain.Priority(priority)
	analysis.Category = domain.EmailCategory(category)
	return &analysis, nil
}
