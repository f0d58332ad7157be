package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-registrar-api/internal/models"
)

// TermRepository reads terms together with their branch timezone.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository instantiates a term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

const termColumns = `t.id, t.branch_id, t.name, t.start_date, t.end_date, t.add_drop_start, t.add_drop_end,
        t.status, b.timezone, t.created_at, t.updated_at
        FROM terms t JOIN branches b ON b.id = t.branch_id`

// FindByID returns a term by id; sql.ErrNoRows when absent.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	var term models.Term
	if err := r.db.GetContext(ctx, &term, "SELECT "+termColumns+" WHERE t.id = $1", id); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindBySection returns the term a section belongs to.
func (r *TermRepository) FindBySection(ctx context.Context, sectionID string) (*models.Term, error) {
	query := "SELECT " + termColumns + " JOIN sections s ON s.term_id = t.id WHERE s.id = $1"
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, sectionID); err != nil {
		return nil, err
	}
	return &term, nil
}
