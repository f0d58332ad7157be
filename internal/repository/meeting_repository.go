package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-registrar-api/internal/models"
)

// MeetingRepository persists section meetings and serves the indexed
// lookups the conflict detector pre-filters with.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository constructs the repository.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

const meetingSelect = `SELECT m.id, m.section_id, m.term_id, m.day_of_week,
        m.start_time::text AS start_time, m.end_time::text AS end_time,
        m.room_id, m.modality, m.repeat_rule, m.created_at, m.updated_at,
        r.name AS room_name, c.code AS course_code`

const meetingJoins = `
        FROM section_meetings m
        JOIN sections s ON s.id = m.section_id
        JOIN courses c ON c.id = s.course_id
        LEFT JOIN rooms r ON r.id = m.room_id`

// FindByID returns a meeting; sql.ErrNoRows when absent.
func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*models.SectionMeeting, error) {
	var meeting models.SectionMeeting
	if err := r.db.GetContext(ctx, &meeting, meetingSelect+meetingJoins+" WHERE m.id = $1", id); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// ListBySection returns a section's meetings ordered by weekday and start.
func (r *MeetingRepository) ListBySection(ctx context.Context, sectionID string) ([]models.SectionMeeting, error) {
	query := meetingSelect + meetingJoins + " WHERE m.section_id = $1 ORDER BY m.day_of_week, m.start_time"
	var meetings []models.SectionMeeting
	if err := r.db.SelectContext(ctx, &meetings, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section meetings: %w", err)
	}
	return meetings, nil
}

// ListRoomBookings returns other meetings in the same room, weekday and term.
// Served by idx_section_meetings_room_day_term.
func (r *MeetingRepository) ListRoomBookings(ctx context.Context, termID string, roomID int64, dayOfWeek int, excludeMeetingID string) ([]models.SectionMeeting, error) {
	query := meetingSelect + meetingJoins + `
        WHERE m.room_id = $1 AND m.day_of_week = $2 AND m.term_id = $3 AND m.id::text <> $4
        ORDER BY m.start_time`
	var meetings []models.SectionMeeting
	if err := r.db.SelectContext(ctx, &meetings, query, roomID, dayOfWeek, termID, excludeMeetingID); err != nil {
		return nil, fmt.Errorf("list room bookings: %w", err)
	}
	return meetings, nil
}

// ListUserBookings returns meetings on dayOfWeek of every section the user is
// appointed to in the term, skipping the excluded section and meeting.
// Served by idx_section_appointments_user_term.
func (r *MeetingRepository) ListUserBookings(ctx context.Context, termID, userID string, dayOfWeek int, excludeSectionID, excludeMeetingID string) ([]models.TeacherBooking, error) {
	query := meetingSelect + `, a.user_id, a.role AS appointment_role` + meetingJoins + `
        JOIN section_appointments a ON a.section_id = m.section_id
        WHERE a.user_id = $1 AND a.term_id = $2 AND m.day_of_week = $3
          AND m.section_id::text <> $4 AND m.id::text <> $5
        ORDER BY m.start_time`
	var bookings []models.TeacherBooking
	if err := r.db.SelectContext(ctx, &bookings, query, userID, termID, dayOfWeek, excludeSectionID, excludeMeetingID); err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	return bookings, nil
}

// Create inserts a meeting, assigning id and timestamps.
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.SectionMeeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	meeting.CreatedAt, meeting.UpdatedAt = now, now

	const query = `INSERT INTO section_meetings (id, section_id, term_id, day_of_week, start_time, end_time,
        room_id, modality, repeat_rule, created_at, updated_at)
        VALUES (:id, :section_id, :term_id, :day_of_week, :start_time, :end_time,
        :room_id, :modality, :repeat_rule, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, meeting); err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}
	return nil
}

// Update rewrites the schedule fields of a meeting.
func (r *MeetingRepository) Update(ctx context.Context, meeting *models.SectionMeeting) error {
	meeting.UpdatedAt = time.Now().UTC()
	const query = `UPDATE section_meetings SET day_of_week = :day_of_week, start_time = :start_time,
        end_time = :end_time, room_id = :room_id, modality = :modality, repeat_rule = :repeat_rule,
        updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, meeting)
	if err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a meeting.
func (r *MeetingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM section_meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	return expectAffected(res)
}
