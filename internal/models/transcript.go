package models

import "time"

// Transcript is a published final result. Rows are immutable once published.
type Transcript struct {
	ID          string     `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	CourseID    string     `db:"course_id" json:"course_id"`
	TermID      string     `db:"term_id" json:"term_id"`
	FinalGrade  string     `db:"final_grade" json:"final_grade"`
	GradePoints *float64   `db:"grade_points" json:"grade_points,omitempty"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
}
