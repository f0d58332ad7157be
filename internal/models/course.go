package models

// Course is a catalogue entry.
type Course struct {
	ID       string `db:"id" json:"id"`
	BranchID string `db:"branch_id" json:"branch_id"`
	Code     string `db:"code" json:"code"`
	Title    string `db:"title" json:"title"`
	Credits  int    `db:"credits" json:"credits"`
}

// CoursePrerequisite requires a prior course, optionally with a minimum grade.
type CoursePrerequisite struct {
	CourseID             string  `db:"course_id" json:"course_id"`
	PrerequisiteCourseID string  `db:"prerequisite_course_id" json:"prerequisite_course_id"`
	PrerequisiteCode     string  `db:"prerequisite_code" json:"prerequisite_code"`
	PrerequisiteTitle    string  `db:"prerequisite_title" json:"prerequisite_title"`
	MinimumGrade         *string `db:"minimum_grade" json:"minimum_grade,omitempty"`
}

// MissingPrerequisite is an unmet requirement reported to the caller.
type MissingPrerequisite struct {
	CourseID     string  `json:"course_id"`
	CourseCode   string  `json:"course_code"`
	CourseTitle  string  `json:"course_title"`
	MinimumGrade *string `json:"minimum_grade,omitempty"`
}
