// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"assistant_server/core/domain"
	"assistant_server/pkg/logger"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// =============================================================================
// Pattern Adapter
// =============================================================================

// PatternAdapter implements domain.PatternRepository on Postgres. Writes from
// the learner go through an occurrence check-and-set so concurrent folds
// cannot silently lose an observation.
type PatternAdapter struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPatternAdapter creates a new PatternAdapter.
func NewPatternAdapter(db *sqlx.DB, log *logger.Logger) *PatternAdapter {
	if log == nil {
		log = logger.Default()
	}
	return &PatternAdapter{db: db, log: log}
}

// patternRow represents the database row.
type patternRow struct {
	ID            int64     `db:"id"`
	UserID        uuid.UUID `db:"user_id"`
	Kind          string    `db:"kind"`
	Discriminator string    `db:"discriminator"`
	Payload       []byte    `db:"payload"`
	Confidence    float64   `db:"confidence"`
	Occurrences   int       `db:"occurrences"`
	IsActive      bool      `db:"is_active"`
	LastSeenAt    time.Time `db:"last_seen_at"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// toEntity converts the row, decoding the payload for its kind. An
// unreadable payload is logged and surfaced as nil so callers treat the
// pattern as absent instead of failing the whole call.
func (r *patternRow) toEntity(log *logger.Logger) *domain.Pattern {
	kind := domain.PatternKind(r.Kind)
	payload, err := domain.DecodePayload(kind, r.Payload)
	if err != nil {
		log.WithError(err).WithField("pattern_id", r.ID).Warn("stored pattern payload unreadable")
		payload = nil
	}
	return &domain.Pattern{
		ID:          r.ID,
		UserID:      r.UserID,
		Key:         domain.PatternKey{Kind: kind, Discriminator: r.Discriminator},
		Payload:     payload,
		Confidence:  r.Confidence,
		Occurrences: r.Occurrences,
		IsActive:    r.IsActive,
		LastSeenAt:  r.LastSeenAt,
		CreatedAt:   r.CreatedAt,
	}
}

// Find retrieves one pattern by its composite key. Returns (nil, nil) when
// no row exists.
func (a *PatternAdapter) Find(ctx context.Context, userID uuid.UUID, key domain.PatternKey) (*domain.Pattern, error) {
	var row patternRow
	query := `SELECT * FROM patterns WHERE user_id = $1 AND kind = $2 AND discriminator = $3`

	if err := a.db.GetContext(ctx, &row, query, userID, string(key.Kind), key.Discriminator); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pattern: %w", err)
	}

	return row.toEntity(a.log), nil
}

// ListByUser retrieves all patterns for a user, most recently seen first.
func (a *PatternAdapter) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Pattern, error) {
	var rows []patternRow
	query := `SELECT * FROM patterns WHERE user_id = $1 ORDER BY last_seen_at DESC`

	if err := a.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}

	patterns := make([]*domain.Pattern, len(rows))
	for i, row := range rows {
		patterns[i] = row.toEntity(a.log)
	}

	return patterns, nil
}

// Create inserts a new pattern and assigns its id.
func (a *PatternAdapter) Create(ctx context.Context, p *domain.Pattern) error {
	raw, err := domain.EncodePayload(p.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode pattern payload: %w", err)
	}

	query := `
		INSERT INTO patterns (user_id, kind, discriminator, payload, confidence, occurrences, is_active, last_seen_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id`

	if err := a.db.QueryRowxContext(ctx, query,
		p.UserID, string(p.Key.Kind), p.Key.Discriminator, raw,
		p.Confidence, p.Occurrences, p.IsActive, p.LastSeenAt,
	).Scan(&p.ID); err != nil {
		return fmt.Errorf("failed to create pattern: %w", err)
	}

	return nil
}

// UpdateObserved writes the folded state back, guarded by the occurrence
// count the caller read. Zero rows affected means a concurrent fold won and
// the caller must re-read and retry.
func (a *PatternAdapter) UpdateObserved(ctx context.Context, id int64, update domain.PatternUpdate, expectedOccurrences int) error {
	raw, err := domain.EncodePayload(update.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode pattern payload: %w", err)
	}

	query := `
		UPDATE patterns
		SET payload = $1, confidence = $2, occurrences = $3, is_active = $4, last_seen_at = $5, updated_at = NOW()
		WHERE id = $6 AND occurrences = $7`

	result, err := a.db.ExecContext(ctx, query,
		raw, update.Confidence, update.Occurrences, update.IsActive, update.LastSeenAt,
		id, expectedOccurrences,
	)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrStalePattern
	}

	return nil
}
