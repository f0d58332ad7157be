package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/pkg/database"
)

// AppointmentRepository persists lecturer and TA appointments. Writes lock
// the parent section row so the summed load check and the write are atomic.
type AppointmentRepository struct {
	db    *sqlx.DB
	retry database.RetryPolicy
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB, retry database.RetryPolicy) *AppointmentRepository {
	return &AppointmentRepository{db: db, retry: retry}
}

const appointmentColumns = `id, section_id, term_id, user_id, role, load_percent, created_at, updated_at`

// FindByID returns an appointment; sql.ErrNoRows when absent.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, "SELECT "+appointmentColumns+" FROM section_appointments WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListBySection returns a section's appointments.
func (r *AppointmentRepository) ListBySection(ctx context.Context, sectionID string) ([]models.Appointment, error) {
	query := "SELECT " + appointmentColumns + " FROM section_appointments WHERE section_id = $1 ORDER BY role, user_id"
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, sectionID); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// CreateWithinLoad inserts appt unless the section's summed load would
// exceed the ceiling, in which case ErrLoadExceeded is returned.
func (r *AppointmentRepository) CreateWithinLoad(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt, appt.UpdatedAt = now, now

	const insert = `INSERT INTO section_appointments (id, section_id, term_id, user_id, role, load_percent, created_at, updated_at)
        VALUES (:id, :section_id, :term_id, :user_id, :role, :load_percent, :created_at, :updated_at)`
	return r.writeWithinLoad(ctx, appt, insert)
}

// UpdateWithinLoad changes role and load of an appointment under the same
// ceiling check; the appointment's previous load is not counted.
func (r *AppointmentRepository) UpdateWithinLoad(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	const update = `UPDATE section_appointments SET role = :role, load_percent = :load_percent, updated_at = :updated_at
        WHERE id = :id`
	return r.writeWithinLoad(ctx, appt, update)
}

func (r *AppointmentRepository) writeWithinLoad(ctx context.Context, appt *models.Appointment, statement string) error {
	return database.WithRetry(ctx, r.retry, func(ctx context.Context) (err error) {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin appointment tx: %w", err)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		var locked string
		if err = tx.GetContext(ctx, &locked, `SELECT id FROM sections WHERE id = $1 FOR UPDATE`, appt.SectionID); err != nil {
			return err
		}

		var load int
		const sumQuery = `SELECT COALESCE(SUM(load_percent), 0) FROM section_appointments WHERE section_id = $1 AND id::text <> $2`
		if err = tx.GetContext(ctx, &load, sumQuery, appt.SectionID, appt.ID); err != nil {
			return fmt.Errorf("sum section load: %w", err)
		}
		if load+appt.LoadPercent > models.MaxSectionLoad {
			err = ErrLoadExceeded
			return err
		}

		res, err := tx.NamedExecContext(ctx, statement, appt)
		if err != nil {
			if database.IsUniqueViolation(err, "") {
				err = ErrDuplicate
				return err
			}
			return fmt.Errorf("write appointment: %w", err)
		}
		if err = expectAffected(res); err != nil {
			return err
		}

		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit appointment: %w", err)
		}
		return nil
	})
}

// Delete removes an appointment.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM section_appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return expectAffected(res)
}
