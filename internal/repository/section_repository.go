package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-registrar-api/internal/models"
)

// SectionRepository reads sections and their derived seat counters.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a section joined with its course; sql.ErrNoRows when absent.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT s.id, s.course_id, s.term_id, s.code, c.code AS course_code, c.title AS course_title,
        s.capacity, s.waitlist_capacity, s.status, s.created_at, s.updated_at
        FROM sections s JOIN courses c ON c.id = s.course_id
        WHERE s.id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// SeatCounts returns the active and waitlisted counts without locking.
func (r *SectionRepository) SeatCounts(ctx context.Context, id string) (models.SeatCounts, error) {
	const query = `SELECT COUNT(*) FILTER (WHERE status = 'ACTIVE') AS active,
        COUNT(*) FILTER (WHERE status = 'WAITLISTED') AS waitlisted
        FROM section_enrollments WHERE section_id = $1`
	var counts models.SeatCounts
	if err := r.db.GetContext(ctx, &counts, query, id); err != nil {
		return counts, fmt.Errorf("count seats: %w", err)
	}
	return counts, nil
}

// ListPromotable returns sections that have a free seat and at least one
// waitlisted enrollment.
func (r *SectionRepository) ListPromotable(ctx context.Context) ([]string, error) {
	const query = `SELECT s.id FROM sections s
        WHERE s.status <> 'CANCELLED'
          AND EXISTS (SELECT 1 FROM section_enrollments w WHERE w.section_id = s.id AND w.status = 'WAITLISTED')
          AND (SELECT COUNT(*) FROM section_enrollments a WHERE a.section_id = s.id AND a.status = 'ACTIVE') < s.capacity
        ORDER BY s.id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list promotable sections: %w", err)
	}
	return ids, nil
}
