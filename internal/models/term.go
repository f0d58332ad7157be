package models

import (
	"fmt"
	"time"
)

// TermStatus is the planning state of a term.
type TermStatus string

const (
	TermStatusPlanned TermStatus = "PLANNED"
	TermStatusActive  TermStatus = "ACTIVE"
	TermStatusClosed  TermStatus = "CLOSED"
)

// Term is an academic term of a branch. Timezone is inherited from the branch.
type Term struct {
	ID           string     `db:"id" json:"id"`
	BranchID     string     `db:"branch_id" json:"branch_id"`
	Name         string     `db:"name" json:"name"`
	StartDate    Date       `db:"start_date" json:"start_date"`
	EndDate      Date       `db:"end_date" json:"end_date"`
	AddDropStart Date       `db:"add_drop_start" json:"add_drop_start"`
	AddDropEnd   Date       `db:"add_drop_end" json:"add_drop_end"`
	Status       TermStatus `db:"status" json:"status"`
	Timezone     string     `db:"timezone" json:"timezone"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate checks the date ordering the rest of the system relies on.
func (t *Term) Validate() error {
	switch {
	case t.StartDate.IsZero() || t.EndDate.IsZero():
		return fmt.Errorf("term %s has no date range", t.ID)
	case t.EndDate.Before(t.StartDate):
		return fmt.Errorf("term %s ends before it starts", t.ID)
	case t.AddDropStart.Before(t.StartDate):
		return fmt.Errorf("term %s add/drop window starts before the term", t.ID)
	case t.AddDropEnd.After(t.EndDate):
		return fmt.Errorf("term %s add/drop window ends after the term", t.ID)
	case t.AddDropEnd.Before(t.AddDropStart):
		return fmt.Errorf("term %s add/drop window is inverted", t.ID)
	}
	return nil
}

// Location resolves the term's timezone. An empty zone means UTC.
func (t *Term) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("term %s timezone %q: %w", t.ID, t.Timezone, err)
	}
	return loc, nil
}

// Editable reports whether sections and meetings of the term may change.
func (t *Term) Editable() bool {
	return t.Status == TermStatusPlanned || t.Status == TermStatusActive
}

// AddDropOpen reports whether now falls inside the add/drop window. Both
// bounds are inclusive whole days in the term's timezone.
func (t *Term) AddDropOpen(now time.Time) (bool, error) {
	if t.Status == TermStatusClosed {
		return false, nil
	}
	loc, err := t.Location()
	if err != nil {
		return false, err
	}
	today := DateOf(now.In(loc))
	return !today.Before(t.AddDropStart) && !today.After(t.AddDropEnd), nil
}
