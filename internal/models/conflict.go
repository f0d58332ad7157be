package models

// ConflictBooking is an existing booking that overlaps a candidate.
type ConflictBooking struct {
	SectionID  string          `json:"section_id"`
	MeetingID  string          `json:"meeting_id"`
	RoomID     *int64          `json:"room_id,omitempty"`
	DayOfWeek  int             `json:"day_of_week"`
	StartTime  string          `json:"start_time"`
	EndTime    string          `json:"end_time"`
	CourseCode string          `json:"course_code"`
	Role       AppointmentRole `json:"role,omitempty"`
}

// BookingOf describes meeting m as a conflict entry.
func BookingOf(m SectionMeeting) ConflictBooking {
	return ConflictBooking{
		SectionID:  m.SectionID,
		MeetingID:  m.ID,
		RoomID:     m.RoomID,
		DayOfWeek:  m.DayOfWeek,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
		CourseCode: m.CourseCode,
	}
}

// TeacherConflict groups the overlapping bookings of one appointed user.
type TeacherConflict struct {
	UserID   string            `json:"user_id"`
	Role     AppointmentRole   `json:"role"`
	Overlaps []ConflictBooking `json:"overlaps"`
}

// ConflictReport is the read-only result of a conflict check.
type ConflictReport struct {
	Room    []ConflictBooking `json:"room"`
	Teacher []TeacherConflict `json:"teacher"`
}

// NewConflictReport returns an empty report with non-nil slices.
func NewConflictReport() *ConflictReport {
	return &ConflictReport{Room: []ConflictBooking{}, Teacher: []TeacherConflict{}}
}

// Empty reports whether no conflicts were found.
func (r *ConflictReport) Empty() bool {
	return r == nil || (len(r.Room) == 0 && len(r.Teacher) == 0)
}

// TeacherBooking is a meeting of a section the user is appointed to.
type TeacherBooking struct {
	SectionMeeting
	UserID string          `db:"user_id"`
	Role   AppointmentRole `db:"appointment_role"`
}
