package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"thesis-portal/internal/models"
)

var ErrCanceledThesisNotFound = errors.New("canceled thesis not found")

// CanceledThesisRepository stores theses removed by general assembly decision
type CanceledThesisRepository struct {
	db DBTX
}

// NewCanceledThesisRepository creates a new canceled thesis repository
func NewCanceledThesisRepository(db DBTX) *CanceledThesisRepository {
	return &CanceledThesisRepository{db: db}
}

// Create inserts the canceled record, keeping the former thesis id
func (r *CanceledThesisRepository) Create(ctx context.Context, c *models.CanceledThesis) error {
	query := `
		INSERT INTO canceled_theses (
			id, title, description, student_id, instructor_id, member1_id, member2_id,
			previous_state, reason, assembly_number, assembly_year, canceled_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING canceled_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.ID,
		c.Title,
		c.Description,
		c.StudentID,
		c.InstructorID,
		c.Member1ID,
		c.Member2ID,
		c.PreviousState,
		c.Reason,
		c.AssemblyNumber,
		c.AssemblyYear,
		c.CanceledBy,
	).Scan(&c.CanceledAt)
	if err != nil {
		return fmt.Errorf("failed to create canceled thesis: %w", err)
	}
	return nil
}

// GetByID retrieves a canceled thesis by its former thesis id
func (r *CanceledThesisRepository) GetByID(ctx context.Context, id uint) (*models.CanceledThesis, error) {
	query := `
		SELECT id, title, description, student_id, instructor_id, member1_id, member2_id,
		       previous_state, reason, assembly_number, assembly_year, canceled_by, canceled_at
		FROM canceled_theses
		WHERE id = $1
	`
	c := &models.CanceledThesis{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.StudentID,
		&c.InstructorID,
		&c.Member1ID,
		&c.Member2ID,
		&c.PreviousState,
		&c.Reason,
		&c.AssemblyNumber,
		&c.AssemblyYear,
		&c.CanceledBy,
		&c.CanceledAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCanceledThesisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get canceled thesis: %w", err)
	}
	return c, nil
}
