package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/pkg/database"
)

// SeatLedger is the view of a section's enrollments available while the
// section row is locked. Every method runs inside the same transaction.
type SeatLedger interface {
	SectionID() string
	CountSeats(ctx context.Context) (models.SeatCounts, error)
	Insert(ctx context.Context, enrollment *models.SectionEnrollment) error
	FindForUpdate(ctx context.Context, id string) (*models.SectionEnrollment, error)
	NextWaitlisted(ctx context.Context) (*models.SectionEnrollment, error)
	UpdateStatus(ctx context.Context, enrollment *models.SectionEnrollment) error
}

// EnrollmentRepository handles persistence of section enrollments.
type EnrollmentRepository struct {
	db          *sqlx.DB
	retry       database.RetryPolicy
	lockTimeout time.Duration
}

// NewEnrollmentRepository constructs the repository. Section locks wait at
// most lockTimeout and transient failures are retried per retry.
func NewEnrollmentRepository(db *sqlx.DB, retry database.RetryPolicy, lockTimeout time.Duration) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, retry: retry, lockTimeout: lockTimeout}
}

const enrollmentColumns = `id, section_id, student_id, role, status, enrolled_at, waitlisted_at, dropped_at, created_at, updated_at`

const enrollmentDetailSelect = `SELECT e.id, e.section_id, e.student_id, e.role, e.status, e.enrolled_at, e.waitlisted_at,
        e.dropped_at, e.created_at, e.updated_at,
        u.full_name AS student_name, u.email AS student_email, s.code AS section_code,
        c.code AS course_code, s.term_id
        FROM section_enrollments e
        JOIN users u ON u.id = e.student_id
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id`

// FindByID returns an enrollment by its ID; sql.ErrNoRows when absent.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.SectionEnrollment, error) {
	var enrollment models.SectionEnrollment
	if err := r.db.GetContext(ctx, &enrollment, "SELECT "+enrollmentColumns+" FROM section_enrollments WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student and section info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, enrollmentDetailSelect+" WHERE e.id = $1", id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns enrollments filtered by the provided criteria. Waitlisted rows
// come out in queue order.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("s.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`%s%s ORDER BY e.status, COALESCE(e.waitlisted_at, e.enrolled_at, e.created_at), e.created_at LIMIT %d OFFSET %d`,
		enrollmentDetailSelect, clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM section_enrollments e JOIN sections s ON s.id = e.section_id` + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ExistsOpen reports whether the student holds a non-dropped enrollment in the section.
func (r *EnrollmentRepository) ExistsOpen(ctx context.Context, studentID, sectionID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM section_enrollments WHERE student_id = $1 AND section_id = $2 AND status <> 'DROPPED')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, sectionID); err != nil {
		return false, fmt.Errorf("check open enrollment: %w", err)
	}
	return exists, nil
}

// ListCurrentByStudentTerm returns a student's active and waitlisted enrollments in a term.
func (r *EnrollmentRepository) ListCurrentByStudentTerm(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.student_id = $1 AND s.term_id = $2 AND e.status IN ('ACTIVE', 'WAITLISTED')
        ORDER BY c.code, s.code`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// WithSectionLock runs fn while holding the section's row lock. fn's writes
// commit together or not at all. Transient lock and serialization failures
// re-run the whole transaction, so fn must not retain state between calls.
func (r *EnrollmentRepository) WithSectionLock(ctx context.Context, sectionID string, fn func(SeatLedger) error) error {
	return database.WithRetry(ctx, r.retry, func(ctx context.Context) error {
		return r.lockOnce(ctx, sectionID, fn)
	})
}

func (r *EnrollmentRepository) lockOnce(ctx context.Context, sectionID string, fn func(SeatLedger) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin section tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if r.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM sections WHERE id = $1 FOR UPDATE`, sectionID); err != nil {
		return err
	}

	if err = fn(&seatLedger{tx: tx, sectionID: sectionID}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit section tx: %w", err)
	}
	return nil
}

type seatLedger struct {
	tx        *sqlx.Tx
	sectionID string
}

func (l *seatLedger) SectionID() string { return l.sectionID }

func (l *seatLedger) CountSeats(ctx context.Context) (models.SeatCounts, error) {
	const query = `SELECT COUNT(*) FILTER (WHERE status = 'ACTIVE') AS active,
        COUNT(*) FILTER (WHERE status = 'WAITLISTED') AS waitlisted
        FROM section_enrollments WHERE section_id = $1`
	var counts models.SeatCounts
	if err := l.tx.GetContext(ctx, &counts, query, l.sectionID); err != nil {
		return counts, fmt.Errorf("count seats: %w", err)
	}
	return counts, nil
}

func (l *seatLedger) Insert(ctx context.Context, enrollment *models.SectionEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.SectionID = l.sectionID
	enrollment.CreatedAt, enrollment.UpdatedAt = now, now

	const query = `INSERT INTO section_enrollments (id, section_id, student_id, role, status, enrolled_at,
        waitlisted_at, dropped_at, created_at, updated_at)
        VALUES (:id, :section_id, :student_id, :role, :status, :enrolled_at,
        :waitlisted_at, :dropped_at, :created_at, :updated_at)`
	if _, err := l.tx.NamedExecContext(ctx, query, enrollment); err != nil {
		if database.IsUniqueViolation(err, "uq_section_enrollments_open") {
			return ErrDuplicate
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func (l *seatLedger) FindForUpdate(ctx context.Context, id string) (*models.SectionEnrollment, error) {
	query := "SELECT " + enrollmentColumns + " FROM section_enrollments WHERE id = $1 AND section_id = $2 FOR UPDATE"
	var enrollment models.SectionEnrollment
	if err := l.tx.GetContext(ctx, &enrollment, query, id, l.sectionID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// NextWaitlisted returns the head of the FIFO queue; sql.ErrNoRows when empty.
func (l *seatLedger) NextWaitlisted(ctx context.Context) (*models.SectionEnrollment, error) {
	query := "SELECT " + enrollmentColumns + ` FROM section_enrollments
        WHERE section_id = $1 AND status = 'WAITLISTED'
        ORDER BY waitlisted_at ASC, created_at ASC, id ASC
        LIMIT 1 FOR UPDATE`
	var enrollment models.SectionEnrollment
	if err := l.tx.GetContext(ctx, &enrollment, query, l.sectionID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (l *seatLedger) UpdateStatus(ctx context.Context, enrollment *models.SectionEnrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE section_enrollments SET status = :status, enrolled_at = :enrolled_at,
        waitlisted_at = :waitlisted_at, dropped_at = :dropped_at, updated_at = :updated_at
        WHERE id = :id AND section_id = :section_id`
	res, err := l.tx.NamedExecContext(ctx, query, enrollment)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return expectAffected(res)
}
