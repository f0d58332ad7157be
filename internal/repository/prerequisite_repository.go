package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academic-registrar-api/internal/models"
)

// PrerequisiteRepository reads course prerequisites and published transcripts.
type PrerequisiteRepository struct {
	db *sqlx.DB
}

// NewPrerequisiteRepository constructs the repository.
func NewPrerequisiteRepository(db *sqlx.DB) *PrerequisiteRepository {
	return &PrerequisiteRepository{db: db}
}

// ListByCourse returns the declared prerequisites of a course.
func (r *PrerequisiteRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	const query = `SELECT cp.course_id, cp.prerequisite_course_id, c.code AS prerequisite_code,
        c.title AS prerequisite_title, cp.minimum_grade
        FROM course_prerequisites cp JOIN courses c ON c.id = cp.prerequisite_course_id
        WHERE cp.course_id = $1 ORDER BY c.code`
	var prereqs []models.CoursePrerequisite
	if err := r.db.SelectContext(ctx, &prereqs, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return prereqs, nil
}

// ListPublishedTranscripts returns a student's published results for the given courses.
func (r *PrerequisiteRepository) ListPublishedTranscripts(ctx context.Context, studentID string, courseIDs []string) ([]models.Transcript, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, student_id, course_id, term_id, final_grade, grade_points, published_at
        FROM transcripts
        WHERE student_id = $1 AND course_id = ANY($2) AND published_at IS NOT NULL`
	var transcripts []models.Transcript
	if err := r.db.SelectContext(ctx, &transcripts, query, studentID, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	return transcripts, nil
}
