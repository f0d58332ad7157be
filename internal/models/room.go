package models

// Room is a bookable teaching space.
type Room struct {
	ID       int64  `db:"id" json:"id"`
	BranchID string `db:"branch_id" json:"branch_id"`
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
	Capacity int    `db:"capacity" json:"capacity"`
}
