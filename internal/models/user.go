package models

// User is a person known to the registrar: a student, lecturer or staff member.
type User struct {
	ID       string   `db:"id" json:"id"`
	BranchID *string  `db:"branch_id" json:"branch_id,omitempty"`
	FullName string   `db:"full_name" json:"full_name"`
	Email    string   `db:"email" json:"email"`
	Role     UserRole `db:"role" json:"role"`
}
